package metadata

import (
	"github.com/spaghettifunk/vkmesh/engine/math"
)

/**
 * @brief A single flattened vertex with every attribute the layouts can ask for.
 */
type Vertex struct {
	Position  math.Vec3
	TexCoord  math.Vec2
	Normal    math.Vec3
	Colour    math.Vec3
	Tangent   math.Vec3
	Bitangent math.Vec3
}

/**
 * @brief One imported mesh after flattening.
 */
type MeshEntry struct {
	/** @brief Number of indices, always a multiple of three. */
	NumIndices uint32
	/** @brief Material index in the source scene, -1 when unset. */
	MaterialIndex int
	/** @brief Offset of the first vertex of this entry in the combined vertex list. */
	VertexBase uint32
	Vertices   []Vertex
	Indices    []uint32
}

/**
 * @brief The bounds of every loaded position.
 */
type Dimension struct {
	Min  math.Vec3
	Max  math.Vec3
	Size math.Vec3
}

// NewDimension starts with inverted infinite bounds so the first position sets both.
func NewDimension() Dimension {
	return Dimension{
		Min: math.NewVec3Splat(math.K_FLOAT_MAX),
		Max: math.NewVec3Splat(-math.K_FLOAT_MAX),
	}
}

func (d *Dimension) Extend(p math.Vec3) {
	d.Max = d.Max.Max(p)
	d.Min = d.Min.Min(p)
	d.Size = d.Max.Sub(d.Min)
}

func (d Dimension) Scaled(scale float32) Dimension {
	return Dimension{
		Min:  d.Min.MulScalar(scale),
		Max:  d.Max.MulScalar(scale),
		Size: d.Size.MulScalar(scale),
	}
}

/**
 * @brief Interleaved CPU-side vertex and index data ready for upload.
 */
type MeshData struct {
	Layout     VertexLayout
	Vertices   []float32
	Indices    []uint32
	IndexCount uint32
	Dim        Dimension
}

// VertexBytes is the size of Vertices in bytes.
func (md *MeshData) VertexBytes() uint64 {
	return uint64(len(md.Vertices)) * 4
}

// IndexBytes is the size of Indices in bytes.
func (md *MeshData) IndexBytes() uint64 {
	return uint64(len(md.Indices)) * 4
}

// VertexCount is derived from the layout stride.
func (md *MeshData) VertexCount() uint32 {
	per := md.Layout.FloatsPerVertex()
	if per == 0 {
		return 0
	}
	return uint32(len(md.Vertices)) / per
}
