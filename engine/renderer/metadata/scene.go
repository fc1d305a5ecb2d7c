package metadata

import (
	"github.com/spaghettifunk/vkmesh/engine/math"
)

/**
 * @brief An imported scene: the raw output of an importer before it is
 * flattened into mesh entries.
 */
type Scene struct {
	/** @brief The source the scene came from, a path or a memory hint. */
	Name string
	/** @brief Every mesh referenced by the node hierarchy. */
	Meshes []*SceneMesh
	/** @brief Materials indexed by SceneMesh.MaterialIndex. */
	Materials []*SceneMaterial
	/** @brief The root of the node hierarchy. Never nil after import. */
	Root *SceneNode
}

type SceneNode struct {
	Name string
	// Transform is local to the parent node.
	Transform math.Mat4
	// Meshes are indices into Scene.Meshes.
	Meshes   []int
	Children []*SceneNode
}

// Face is a polygon referencing SceneMesh vertices. Points and lines are faces too.
type Face struct {
	Indices []uint32
}

/**
 * @brief A mesh as produced by the importer. Optional attribute slices are
 * either empty or exactly as long as Positions.
 */
type SceneMesh struct {
	Name       string
	Positions  []math.Vec3
	Normals    []math.Vec3
	TexCoords  []math.Vec2
	Colours    []math.Vec4
	Tangents   []math.Vec3
	Bitangents []math.Vec3
	Faces      []Face
	// MaterialIndex is an index into Scene.Materials, -1 when unset.
	MaterialIndex int
}

func (m *SceneMesh) HasNormals() bool {
	return len(m.Normals) > 0 && len(m.Normals) == len(m.Positions)
}

func (m *SceneMesh) HasTextureCoords() bool {
	return len(m.TexCoords) > 0 && len(m.TexCoords) == len(m.Positions)
}

func (m *SceneMesh) HasTangentsAndBitangents() bool {
	return len(m.Tangents) > 0 && len(m.Tangents) == len(m.Positions) &&
		len(m.Bitangents) == len(m.Positions)
}

// Triangles returns every three-index face, other faces are ignored.
func (m *SceneMesh) Triangles() [][3]uint32 {
	tris := make([][3]uint32, 0, len(m.Faces))
	for _, f := range m.Faces {
		if len(f.Indices) != 3 {
			continue
		}
		tris = append(tris, [3]uint32{f.Indices[0], f.Indices[1], f.Indices[2]})
	}
	return tris
}

type SceneMaterial struct {
	Name          string
	DiffuseColour math.Vec3
}

// NewSceneNode returns a node with an identity transform.
func NewSceneNode(name string) *SceneNode {
	return &SceneNode{
		Name:      name,
		Transform: math.NewMat4Identity(),
	}
}
