package loaders

import (
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/math"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
)

// PostProcess runs the requested steps on a freshly parsed scene, in a fixed order:
// triangulate, pre-transform, smooth normals, tangent space, winding flip.
func PostProcess(scene *metadata.Scene, flags metadata.ImportFlags) {
	if flags.Has(metadata.ImportTriangulate) {
		for _, m := range scene.Meshes {
			triangulate(m)
		}
	}
	if flags.Has(metadata.ImportPreTransformVertices) {
		preTransformVertices(scene)
	}
	if flags.Has(metadata.ImportGenSmoothNormals) {
		for _, m := range scene.Meshes {
			if m.HasNormals() {
				continue
			}
			m.Normals = math.GeometryGenerateSmoothNormals(m.Positions, m.Triangles())
		}
	}
	if flags.Has(metadata.ImportCalcTangentSpace) {
		for _, m := range scene.Meshes {
			if m.HasTangentsAndBitangents() {
				continue
			}
			if !m.HasTextureCoords() || !m.HasNormals() {
				core.LogDebug("mesh '%s' has no uvs or normals, skipping tangent generation", m.Name)
				continue
			}
			m.Tangents, m.Bitangents = math.GeometryGenerateTangents(m.Positions, m.Normals, m.TexCoords, m.Triangles())
		}
	}
	if flags.Has(metadata.ImportFlipWindingOrder) {
		for _, m := range scene.Meshes {
			flipWindingOrder(m)
		}
	}
}

// triangulate splits every polygon with more than three corners into a fan.
// Points and lines are left alone.
func triangulate(m *metadata.SceneMesh) {
	faces := make([]metadata.Face, 0, len(m.Faces))
	for _, f := range m.Faces {
		if len(f.Indices) <= 3 {
			faces = append(faces, f)
			continue
		}
		for i := 1; i+1 < len(f.Indices); i++ {
			faces = append(faces, metadata.Face{Indices: []uint32{f.Indices[0], f.Indices[i], f.Indices[i+1]}})
		}
	}
	m.Faces = faces
}

// preTransformVertices bakes every node's world transform into a copy of the meshes it
// references and collapses the hierarchy into a single identity root. Meshes no node
// references are dropped.
func preTransformVertices(scene *metadata.Scene) {
	if scene.Root == nil {
		return
	}

	meshes := []*metadata.SceneMesh{}
	used := make([]bool, len(scene.Meshes))

	var walk func(node *metadata.SceneNode, parent math.Mat4)
	walk = func(node *metadata.SceneNode, parent math.Mat4) {
		world := parent.Mul(node.Transform)
		for _, idx := range node.Meshes {
			if idx < 0 || idx >= len(scene.Meshes) {
				core.LogWarn("node '%s' references missing mesh %d", node.Name, idx)
				continue
			}
			src := scene.Meshes[idx]
			// The first identity reference can keep the source mesh, every other one needs a copy.
			if world.IsIdentity() && !used[idx] {
				meshes = append(meshes, src)
			} else {
				meshes = append(meshes, transformMesh(src, world))
			}
			used[idx] = true
		}
		for _, c := range node.Children {
			walk(c, world)
		}
	}
	walk(scene.Root, math.NewMat4Identity())

	root := metadata.NewSceneNode(scene.Root.Name)
	for i := range meshes {
		root.Meshes = append(root.Meshes, i)
	}
	scene.Meshes = meshes
	scene.Root = root
}

func transformMesh(src *metadata.SceneMesh, world math.Mat4) *metadata.SceneMesh {
	out := &metadata.SceneMesh{
		Name:          src.Name,
		TexCoords:     append([]math.Vec2(nil), src.TexCoords...),
		Colours:       append([]math.Vec4(nil), src.Colours...),
		MaterialIndex: src.MaterialIndex,
		Faces:         make([]metadata.Face, len(src.Faces)),
	}
	for i, f := range src.Faces {
		out.Faces[i] = metadata.Face{Indices: append([]uint32(nil), f.Indices...)}
	}

	out.Positions = make([]math.Vec3, len(src.Positions))
	for i, p := range src.Positions {
		out.Positions[i] = p.Transform(world)
	}

	normalMatrix := world.NormalMatrix()
	out.Normals = transformDirections(src.Normals, normalMatrix)
	out.Tangents = transformDirections(src.Tangents, world)
	out.Bitangents = transformDirections(src.Bitangents, world)
	return out
}

func transformDirections(dirs []math.Vec3, m math.Mat4) []math.Vec3 {
	if len(dirs) == 0 {
		return nil
	}
	out := make([]math.Vec3, len(dirs))
	for i, d := range dirs {
		out[i] = d.TransformDirection(m).Normalized()
	}
	return out
}

func flipWindingOrder(m *metadata.SceneMesh) {
	for _, f := range m.Faces {
		for i, j := 0, len(f.Indices)-1; i < j; i, j = i+1, j-1 {
			f.Indices[i], f.Indices[j] = f.Indices[j], f.Indices[i]
		}
	}
}
