package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-5

func TestMat4MulAppliesRightOperandFirst(t *testing.T) {
	translate := NewMat4Translation(NewVec3(10, 0, 0))
	scale := NewMat4Scale(NewVec3(2, 2, 2))

	// scale first, then translate
	p := NewVec3(1, 1, 1).Transform(translate.Mul(scale))
	assert.True(t, p.Compare(NewVec3(12, 2, 2), tolerance), "got %v", p)

	// translate first, then scale
	p = NewVec3(1, 1, 1).Transform(scale.Mul(translate))
	assert.True(t, p.Compare(NewVec3(22, 2, 2), tolerance), "got %v", p)
}

func TestMat4InverseRoundTrip(t *testing.T) {
	mt := NewMat4TRS(
		NewVec3(1, -2, 3),
		NewQuatFromAxisAngle(NewVec3(0, 1, 0), DegToRad(30), true),
		NewVec3(2, 3, 4))

	assert.True(t, closeToIdentity(mt.Mul(mt.Inverse())))
	assert.True(t, NewMat4Identity().IsIdentity())
}

func closeToIdentity(mt Mat4) bool {
	id := NewMat4Identity()
	for i := range mt.Data {
		if kabs(mt.Data[i]-id.Data[i]) > 1e-4 {
			return false
		}
	}
	return true
}

func TestQuaternionRotation(t *testing.T) {
	q := NewQuatFromAxisAngle(NewVec3(0, 0, 1), DegToRad(90), true)
	p := NewVec3(1, 0, 0).Transform(q.ToMat4())
	assert.True(t, p.Compare(NewVec3(0, 1, 0), tolerance), "got %v", p)
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	mt := NewMat4Translation(NewVec3(5, 5, 5))
	d := NewVec3(0, 1, 0).TransformDirection(mt)
	assert.Equal(t, NewVec3(0, 1, 0), d)
}

func TestNormalMatrixUnderNonUniformScale(t *testing.T) {
	mt := NewMat4Scale(NewVec3(2, 1, 1))
	// A plane tilted 45 degrees in XY; its normal must stay perpendicular after scaling.
	n := NewVec3(1, 1, 0).Normalized()
	surface := NewVec3(1, -1, 0)

	scaledSurface := surface.TransformDirection(mt)
	scaledNormal := n.TransformDirection(mt.NormalMatrix()).Normalized()
	assert.InDelta(t, 0, scaledNormal.Dot(scaledSurface), tolerance)
}

func TestNormalizedZero(t *testing.T) {
	assert.Equal(t, NewVec3Zero(), NewVec3Zero().Normalized())
}

func TestMinMax(t *testing.T) {
	a := NewVec3(1, 5, -3)
	b := NewVec3(2, -1, 0)
	assert.Equal(t, NewVec3(1, -1, -3), a.Min(b))
	assert.Equal(t, NewVec3(2, 5, 0), a.Max(b))
}

func TestClampColour(t *testing.T) {
	assert.Equal(t, NewVec3(0, 0.5, 1), ClampColour(NewVec3(-1, 0.5, 3)))
	assert.Equal(t, 3, Clamp(7, 0, 3))
}
