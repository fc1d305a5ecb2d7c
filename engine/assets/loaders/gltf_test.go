package loaders

import (
	"bytes"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/vkmesh/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleDocument builds a document with one triangle mesh placed by a translated node.
func triangleDocument(t *testing.T) *gltf.Document {
	t.Helper()

	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Materials = []*gltf.Material{{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 1},
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "triangle",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
			Attributes: map[string]int{attrPosition: pos, attrNormal: nrm},
		}},
	}}
	doc.Nodes = []*gltf.Node{{
		Name:        "placed",
		Mesh:        gltf.Index(0),
		Translation: [3]float64{1, 2, 3},
	}}
	doc.Scenes[0].Nodes = []int{0}
	return doc
}

func TestGLTFConvert(t *testing.T) {
	scene, err := (&GLTFParser{}).convert(triangleDocument(t), "triangle.glb")
	require.NoError(t, err)

	require.Len(t, scene.Meshes, 1)
	m := scene.Meshes[0]
	assert.Equal(t, "triangle", m.Name)
	assert.Len(t, m.Positions, 3)
	assert.True(t, m.HasNormals())
	assert.False(t, m.HasTextureCoords())
	require.Len(t, m.Faces, 1)
	assert.Equal(t, []uint32{0, 1, 2}, m.Faces[0].Indices)

	require.Len(t, scene.Materials, 1)
	assert.Equal(t, math.NewVec3(1, 0, 0), scene.Materials[m.MaterialIndex].DiffuseColour)

	require.Len(t, scene.Root.Children, 1)
	node := scene.Root.Children[0]
	assert.Equal(t, []int{0}, node.Meshes)
	assert.Equal(t, math.NewVec3(1, 2, 3), math.NewVec3Zero().Transform(node.Transform))
}

func TestGLTFParseBinary(t *testing.T) {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(triangleDocument(t)))

	scene, err := (&GLTFParser{}).ParseBytes(buf.Bytes(), "triangle.glb")
	require.NoError(t, err)
	require.Len(t, scene.Meshes, 1)
	assert.Equal(t, math.NewVec3(1, 0, 0), scene.Meshes[0].Positions[1])
}

func TestGLTFImplicitIndicesAndStrip(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}})
	doc.Meshes = []*gltf.Mesh{{
		Primitives: []*gltf.Primitive{{
			Mode:       gltf.PrimitiveTriangleStrip,
			Attributes: map[string]int{attrPosition: pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []int{0}

	scene, err := (&GLTFParser{}).convert(doc, "strip.gltf")
	require.NoError(t, err)
	m := scene.Meshes[0]
	require.Len(t, m.Faces, 2)
	assert.Equal(t, []uint32{0, 1, 2}, m.Faces[0].Indices)
	assert.Equal(t, []uint32{2, 1, 3}, m.Faces[1].Indices)
	assert.Equal(t, -1, m.MaterialIndex)

	// A zero scale and rotation on the node still gives an identity transform.
	assert.True(t, scene.Root.Children[0].Transform.IsIdentity())
}

func TestGLTFNoMeshes(t *testing.T) {
	_, err := (&GLTFParser{}).convert(gltf.NewDocument(), "empty.gltf")
	assert.Error(t, err)
}

func TestGLTFRejectsNodeCycle(t *testing.T) {
	doc := triangleDocument(t)
	doc.Nodes[0].Children = []int{0}
	_, err := (&GLTFParser{}).convert(doc, "cycle.gltf")
	assert.Error(t, err)
}

func TestPrimitiveFaces(t *testing.T) {
	assert.Len(t, primitiveFaces(gltf.PrimitiveTriangleFan, []uint32{0, 1, 2, 3, 4}), 3)
	assert.Len(t, primitiveFaces(gltf.PrimitiveLines, []uint32{0, 1, 2, 3}), 2)
	assert.Len(t, primitiveFaces(gltf.PrimitiveLineLoop, []uint32{0, 1, 2}), 3)
	assert.Len(t, primitiveFaces(gltf.PrimitivePoints, []uint32{0, 1}), 2)
}

func TestGLTFRejectsBadAccessorReferences(t *testing.T) {
	tests := map[string]func(doc *gltf.Document){
		"position accessor": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Attributes[attrPosition] = 5
		},
		"normal accessor": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Attributes[attrNormal] = -1
		},
		"index accessor": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Indices = gltf.Index(42)
		},
		"buffer view": func(doc *gltf.Document) {
			doc.Accessors[0].BufferView = gltf.Index(9)
		},
		"truncated buffer": func(doc *gltf.Document) {
			doc.Buffers[0].Data = doc.Buffers[0].Data[:8]
		},
		"accessor past its view": func(doc *gltf.Document) {
			doc.Accessors[0].Count = 100
		},
		"material": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Material = gltf.Index(3)
		},
	}
	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			doc := triangleDocument(t)
			corrupt(doc)
			assert.NotPanics(t, func() {
				_, err := (&GLTFParser{}).convert(doc, "broken.gltf")
				assert.Error(t, err)
			})
		})
	}
}

func TestGLTFRejectsIndicesPastVertexCount(t *testing.T) {
	doc := triangleDocument(t)
	doc.Meshes[0].Primitives[0].Indices = gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 99}))

	_, err := (&GLTFParser{}).convert(doc, "broken.gltf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 99")
}
