package loaders

import (
	"bytes"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/math"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
)

const (
	attrPosition = "POSITION"
	attrNormal   = "NORMAL"
	attrTangent  = "TANGENT"
	attrTexcoord = "TEXCOORD_0"
	attrColour   = "COLOR_0"
)

// GLTFParser reads glTF 2.0 documents, both the JSON and the binary container.
type GLTFParser struct{}

func (gp *GLTFParser) Extensions() []string {
	return []string{".gltf", ".glb"}
}

func (gp *GLTFParser) ParseFile(path string) (*metadata.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return gp.convert(doc, path)
}

func (gp *GLTFParser) ParseBytes(data []byte, name string) (*metadata.Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, err
	}
	return gp.convert(doc, name)
}

func (gp *GLTFParser) convert(doc *gltf.Document, name string) (*metadata.Scene, error) {
	scene := &metadata.Scene{Name: name}

	for i, m := range doc.Materials {
		scene.Materials = append(scene.Materials, convertMaterial(i, m))
	}

	// Every primitive becomes a mesh of its own; remember which ones belong to each glTF mesh.
	primitives := make([][]int, len(doc.Meshes))
	for mi, mesh := range doc.Meshes {
		for pi, prim := range mesh.Primitives {
			sm, err := convertPrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			if sm == nil {
				continue
			}
			sm.Name = mesh.Name
			primitives[mi] = append(primitives[mi], len(scene.Meshes))
			scene.Meshes = append(scene.Meshes, sm)
		}
	}
	if len(scene.Meshes) == 0 {
		return nil, fmt.Errorf("%s: document has no triangle meshes", name)
	}

	scene.Root = metadata.NewSceneNode("root")
	visited := make([]bool, len(doc.Nodes))
	for _, idx := range rootNodes(doc) {
		child, err := convertNode(doc, idx, primitives, visited)
		if err != nil {
			return nil, err
		}
		scene.Root.Children = append(scene.Root.Children, child)
	}
	return scene, nil
}

func convertMaterial(index int, m *gltf.Material) *metadata.SceneMaterial {
	out := &metadata.SceneMaterial{
		Name:          m.Name,
		DiffuseColour: math.NewVec3(1, 1, 1),
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("material_%d", index)
	}
	if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		c := *pbr.BaseColorFactor
		out.DiffuseColour = math.ClampColour(math.NewVec3(float32(c[0]), float32(c[1]), float32(c[2])))
	}
	return out
}

// rootNodes returns the nodes of the default scene, or every parentless node if the
// document declares no scene.
func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	roots := []int{}
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func convertNode(doc *gltf.Document, idx int, primitives [][]int, visited []bool) (*metadata.SceneNode, error) {
	if idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if visited[idx] {
		return nil, fmt.Errorf("node %d is part of a cycle", idx)
	}
	visited[idx] = true
	defer func() { visited[idx] = false }()

	n := doc.Nodes[idx]
	out := metadata.NewSceneNode(n.Name)
	out.Transform = nodeTransform(n)

	if n.Mesh != nil && *n.Mesh >= 0 && *n.Mesh < len(primitives) {
		out.Meshes = append(out.Meshes, primitives[*n.Mesh]...)
	}
	for _, c := range n.Children {
		child, err := convertNode(doc, c, primitives, visited)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

var identityColumns = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func nodeTransform(n *gltf.Node) math.Mat4 {
	if n.Matrix != identityColumns && n.Matrix != [16]float64{} {
		return math.NewMat4FromColumns(n.Matrix)
	}

	t := math.NewVec3(float32(n.Translation[0]), float32(n.Translation[1]), float32(n.Translation[2]))
	r := math.Quaternion{
		X: float32(n.Rotation[0]),
		Y: float32(n.Rotation[1]),
		Z: float32(n.Rotation[2]),
		W: float32(n.Rotation[3]),
	}
	s := math.NewVec3(float32(n.Scale[0]), float32(n.Scale[1]), float32(n.Scale[2]))
	if n.Scale == [3]float64{} {
		s = math.NewVec3(1, 1, 1)
	}
	return math.NewMat4TRS(t, r, s)
}

// convertPrimitive returns nil for primitives without positions.
func convertPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*metadata.SceneMesh, error) {
	posIdx, ok := prim.Attributes[attrPosition]
	if !ok {
		core.LogWarn("skipping primitive without %s", attrPosition)
		return nil, nil
	}

	sm := &metadata.SceneMesh{MaterialIndex: -1}
	if prim.Material != nil {
		if *prim.Material < 0 || *prim.Material >= len(doc.Materials) {
			return nil, fmt.Errorf("material %d out of range (count=%d)", *prim.Material, len(doc.Materials))
		}
		sm.MaterialIndex = *prim.Material
	}

	acr, err := accessor(doc, posIdx, attrPosition)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}
	sm.Positions = make([]math.Vec3, len(positions))
	for i, p := range positions {
		sm.Positions[i] = math.NewVec3(p[0], p[1], p[2])
	}

	if idx, ok := prim.Attributes[attrNormal]; ok {
		acr, err := accessor(doc, idx, attrNormal)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
		sm.Normals = make([]math.Vec3, len(normals))
		for i, n := range normals {
			sm.Normals[i] = math.NewVec3(n[0], n[1], n[2])
		}
	}

	if idx, ok := prim.Attributes[attrTexcoord]; ok {
		acr, err := accessor(doc, idx, attrTexcoord)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading texture coordinates: %w", err)
		}
		sm.TexCoords = make([]math.Vec2, len(uvs))
		for i, uv := range uvs {
			sm.TexCoords[i] = math.NewVec2(uv[0], uv[1])
		}
	}

	if idx, ok := prim.Attributes[attrColour]; ok {
		acr, err := accessor(doc, idx, attrColour)
		if err != nil {
			return nil, err
		}
		colours, err := modeler.ReadColor(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading colours: %w", err)
		}
		sm.Colours = make([]math.Vec4, len(colours))
		for i, c := range colours {
			sm.Colours[i] = math.NewVec4(float32(c[0])/255, float32(c[1])/255, float32(c[2])/255, float32(c[3])/255)
		}
	}

	// glTF stores the bitangent sign in tangent.w.
	if idx, ok := prim.Attributes[attrTangent]; ok && sm.HasNormals() {
		acr, err := accessor(doc, idx, attrTangent)
		if err != nil {
			return nil, err
		}
		tangents, err := modeler.ReadTangent(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading tangents: %w", err)
		}
		if len(tangents) == len(sm.Positions) {
			sm.Tangents = make([]math.Vec3, len(tangents))
			sm.Bitangents = make([]math.Vec3, len(tangents))
			for i, t := range tangents {
				tan := math.NewVec3(t[0], t[1], t[2])
				sm.Tangents[i] = tan
				sm.Bitangents[i] = sm.Normals[i].Cross(tan).MulScalar(t[3])
			}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acr, err := accessor(doc, *prim.Indices, "indices")
		if err != nil {
			return nil, err
		}
		indices, err = modeler.ReadIndices(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
		for i, v := range indices {
			if int(v) >= len(sm.Positions) {
				return nil, fmt.Errorf("index %d at %d out of range (vertices=%d)", v, i, len(sm.Positions))
			}
		}
	} else {
		indices = make([]uint32, len(sm.Positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	sm.Faces = primitiveFaces(prim.Mode, indices)
	return sm, nil
}

// accessor returns accessor idx once it and the bytes it reads are known to exist.
func accessor(doc *gltf.Document, idx int, what string) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) || doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("%s: accessor %d out of range (count=%d)", what, idx, len(doc.Accessors))
	}
	acr := doc.Accessors[idx]
	if acr.BufferView == nil {
		return acr, nil
	}

	bv := *acr.BufferView
	if bv < 0 || bv >= len(doc.BufferViews) || doc.BufferViews[bv] == nil {
		return nil, fmt.Errorf("%s: buffer view %d out of range (count=%d)", what, bv, len(doc.BufferViews))
	}
	view := doc.BufferViews[bv]
	if view.Buffer < 0 || view.Buffer >= len(doc.Buffers) || doc.Buffers[view.Buffer] == nil {
		return nil, fmt.Errorf("%s: buffer %d out of range (count=%d)", what, view.Buffer, len(doc.Buffers))
	}
	if end, size := view.ByteOffset+view.ByteLength, len(doc.Buffers[view.Buffer].Data); end > size {
		return nil, fmt.Errorf("%s: buffer view %d ends at byte %d, buffer %d holds %d", what, bv, end, view.Buffer, size)
	}

	if acr.Count > 0 {
		elem := gltf.SizeOfElement(acr.ComponentType, acr.Type)
		stride := view.ByteStride
		if stride == 0 {
			stride = elem
		}
		if end := acr.ByteOffset + (acr.Count-1)*stride + elem; end > view.ByteLength {
			return nil, fmt.Errorf("%s: accessor %d needs %d bytes, buffer view %d holds %d", what, idx, end, bv, view.ByteLength)
		}
	}
	return acr, nil
}

func primitiveFaces(mode gltf.PrimitiveMode, indices []uint32) []metadata.Face {
	faces := []metadata.Face{}
	switch mode {
	case gltf.PrimitiveTriangles:
		for i := 0; i+2 < len(indices); i += 3 {
			faces = append(faces, metadata.Face{Indices: []uint32{indices[i], indices[i+1], indices[i+2]}})
		}
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			// Every odd triangle is flipped to keep a consistent winding.
			if i%2 == 0 {
				faces = append(faces, metadata.Face{Indices: []uint32{indices[i], indices[i+1], indices[i+2]}})
			} else {
				faces = append(faces, metadata.Face{Indices: []uint32{indices[i+1], indices[i], indices[i+2]}})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(indices); i++ {
			faces = append(faces, metadata.Face{Indices: []uint32{indices[0], indices[i], indices[i+1]}})
		}
	case gltf.PrimitiveLines:
		for i := 0; i+1 < len(indices); i += 2 {
			faces = append(faces, metadata.Face{Indices: []uint32{indices[i], indices[i+1]}})
		}
	case gltf.PrimitiveLineStrip, gltf.PrimitiveLineLoop:
		for i := 0; i+1 < len(indices); i++ {
			faces = append(faces, metadata.Face{Indices: []uint32{indices[i], indices[i+1]}})
		}
		if mode == gltf.PrimitiveLineLoop && len(indices) > 2 {
			faces = append(faces, metadata.Face{Indices: []uint32{indices[len(indices)-1], indices[0]}})
		}
	case gltf.PrimitivePoints:
		for _, i := range indices {
			faces = append(faces, metadata.Face{Indices: []uint32{i}})
		}
	}
	return faces
}
