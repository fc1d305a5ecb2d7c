package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vkmesh/engine/math"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `# a unit quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestObjParseQuad(t *testing.T) {
	scene, err := (&ObjParser{}).ParseBytes([]byte(quadOBJ), "quad.obj")
	require.NoError(t, err)
	require.Len(t, scene.Meshes, 1)

	m := scene.Meshes[0]
	assert.Len(t, m.Positions, 4)
	assert.True(t, m.HasNormals())
	assert.True(t, m.HasTextureCoords())
	assert.Nil(t, m.Colours)
	require.Len(t, m.Faces, 1)
	assert.Equal(t, []uint32{0, 1, 2, 3}, m.Faces[0].Indices)

	// Geometry without usemtl still references a material.
	assert.Equal(t, "default", m.Name)
	require.GreaterOrEqual(t, m.MaterialIndex, 0)
	require.Less(t, m.MaterialIndex, len(scene.Materials))
	assert.Equal(t, []int{0}, scene.Root.Meshes)
}

func materialByName(scene *metadata.Scene, name string) *metadata.SceneMaterial {
	for _, m := range scene.Materials {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func TestObjWeldsSharedCorners(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
f 1 2 3
f 2 4 3
`
	scene, err := (&ObjParser{}).ParseBytes([]byte(src), "strip.obj")
	require.NoError(t, err)
	m := scene.Meshes[0]

	assert.Len(t, m.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2}, m.Faces[0].Indices)
	assert.Equal(t, []uint32{1, 3, 2}, m.Faces[1].Indices)
	assert.Nil(t, m.Normals)
	assert.Nil(t, m.TexCoords)
}

func TestObjSplitsOnGroupAndMaterial(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
o first
usemtl red
f 1 2 3
usemtl blue
f 3 2 1
g second
f 1 3 2
`
	scene, err := (&ObjParser{}).ParseBytes([]byte(src), "parts.obj")
	require.NoError(t, err)
	require.Len(t, scene.Meshes, 3)

	assert.Equal(t, "first", scene.Meshes[0].Name)
	assert.Equal(t, "first", scene.Meshes[1].Name)
	assert.Equal(t, "second", scene.Meshes[2].Name)

	assert.Equal(t, "red", scene.Materials[scene.Meshes[0].MaterialIndex].Name)
	assert.Equal(t, "blue", scene.Materials[scene.Meshes[1].MaterialIndex].Name)
	assert.Equal(t, "blue", scene.Materials[scene.Meshes[2].MaterialIndex].Name)
}

func TestObjMixedUVAndNormalSlots(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
vt 0.5 0.25
vn 0 0 1
f 1/1/1 2//1 3/1
f 1/1/1 3/1 2
`
	scene, err := (&ObjParser{}).ParseBytes([]byte(src), "slots.obj")
	require.NoError(t, err)
	m := scene.Meshes[0]

	// 1/1/1 and 3/1 repeat, 2//1 and 2 are different triples.
	require.Len(t, m.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2}, m.Faces[0].Indices)
	assert.Equal(t, []uint32{0, 2, 3}, m.Faces[1].Indices)
	assert.Equal(t, math.NewVec2(0.5, 0.25), m.TexCoords[0])
	assert.Equal(t, math.Vec2{}, m.TexCoords[1])
	assert.Equal(t, math.NewVec3(0, 0, 1), m.Normals[1])
	assert.Equal(t, math.Vec3{}, m.Normals[2])
}

func TestObjErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no faces", "v 0 0 0\nv 1 0 0\n"},
		{"index out of range", "v 0 0 0\nf 1 2 3\n"},
		{"bad float", "v 0 zero 0\n"},
		{"short vertex", "v 0 0\n"},
		{"bad index", "v 0 0 0\nf a b c\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&ObjParser{}).ParseBytes([]byte(tt.src), "broken.obj")
			assert.Error(t, err)
		})
	}
}

func TestObjMaterialLibrary(t *testing.T) {
	dir := t.TempDir()
	mtl := `# materials
newmtl red
Kd 1.0 0.0 0.0
Ns 10
newmtl bright
Kd 2.0 0.5 -1.0
`
	obj := `mtllib scene.mtl
v 0 0 0
v 1 0 0
v 0 1 0
usemtl bright
f 1 2 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.mtl"), []byte(mtl), 0o644))
	path := filepath.Join(dir, "scene.obj")
	require.NoError(t, os.WriteFile(path, []byte(obj), 0o644))

	scene, err := (&ObjParser{}).ParseFile(path)
	require.NoError(t, err)
	red := materialByName(scene, "red")
	require.NotNil(t, red)
	assert.Equal(t, math.NewVec3(1, 0, 0), red.DiffuseColour)

	mat := scene.Materials[scene.Meshes[0].MaterialIndex]
	assert.Equal(t, "bright", mat.Name)
	assert.Equal(t, math.NewVec3(1, 0.5, 0), mat.DiffuseColour)
}

func TestObjMissingMaterialLibraryIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lonely.obj")
	require.NoError(t, os.WriteFile(path, []byte("mtllib missing.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl ghost\nf 1 2 3\n"), 0o644))

	scene, err := (&ObjParser{}).ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ghost", scene.Materials[scene.Meshes[0].MaterialIndex].Name)
}
