package systems

import (
	"fmt"

	"github.com/spaghettifunk/vkmesh/engine/assets"
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/math"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
	"github.com/spaghettifunk/vkmesh/engine/renderer/vulkan"
)

/**
 * @brief Flattens imported scenes into mesh entries and builds the
 * interleaved vertex and index data uploaded to the GPU.
 */
type MeshLoader struct {
	Entries []metadata.MeshEntry
	/** @brief Bounds of every loaded position, before scaling and Y flip. */
	Dim         metadata.Dimension
	NumVertices uint32

	importer assets.Importer
}

// NewMeshLoader uses the default scene importer when importer is nil.
func NewMeshLoader(importer assets.Importer) *MeshLoader {
	if importer == nil {
		importer = assets.NewSceneImporter()
	}
	return &MeshLoader{
		Dim:      metadata.NewDimension(),
		importer: importer,
	}
}

// LoadMesh imports path with metadata.DefaultImportFlags.
func (ml *MeshLoader) LoadMesh(path string) error {
	return ml.LoadMeshWithFlags(path, metadata.DefaultImportFlags)
}

func (ml *MeshLoader) LoadMeshWithFlags(path string, flags metadata.ImportFlags) error {
	scene, err := ml.importer.Import(path, flags)
	if err != nil {
		return err
	}
	return ml.InitFromScene(scene)
}

// LoadMeshFromMemory imports an in-memory model. hint names the format, either an
// extension ("obj", ".glb") or a file name.
func (ml *MeshLoader) LoadMeshFromMemory(data []byte, hint string, flags metadata.ImportFlags) error {
	scene, err := ml.importer.ImportFromMemory(data, hint, flags)
	if err != nil {
		return err
	}
	return ml.InitFromScene(scene)
}

// InitFromScene replaces any previously loaded entries with the meshes of scene.
func (ml *MeshLoader) InitFromScene(scene *metadata.Scene) error {
	if scene == nil || len(scene.Meshes) == 0 {
		return fmt.Errorf("%w: scene has no meshes", core.ErrImportFailed)
	}
	for i, m := range scene.Meshes {
		if err := checkIndices(m); err != nil {
			return fmt.Errorf("%w: '%s' mesh %d: %s", core.ErrImportFailed, scene.Name, i, err)
		}
	}

	ml.Entries = make([]metadata.MeshEntry, len(scene.Meshes))
	ml.NumVertices = 0
	ml.Dim = metadata.NewDimension()

	// Counters
	for i, m := range scene.Meshes {
		ml.Entries[i].VertexBase = ml.NumVertices
		ml.NumVertices += uint32(len(m.Positions))
	}

	for i, m := range scene.Meshes {
		ml.InitMesh(i, m, scene)
	}

	core.LogDebug("'%s': %d meshes, %d vertices", scene.Name, len(ml.Entries), ml.NumVertices)
	return nil
}

// checkIndices reports the first kept triangle that references a missing vertex.
func checkIndices(mesh *metadata.SceneMesh) error {
	if mesh == nil {
		return fmt.Errorf("mesh is nil")
	}
	count := uint32(len(mesh.Positions))
	for f, t := range mesh.Triangles() {
		for _, i := range t {
			if i >= count {
				return fmt.Errorf("triangle %d references vertex %d of %d", f, i, count)
			}
		}
	}
	return nil
}

func (ml *MeshLoader) InitMesh(index int, mesh *metadata.SceneMesh, scene *metadata.Scene) {
	entry := &ml.Entries[index]
	entry.MaterialIndex = mesh.MaterialIndex

	colour := math.NewVec3Zero()
	if mesh.MaterialIndex >= 0 && mesh.MaterialIndex < len(scene.Materials) && scene.Materials[mesh.MaterialIndex] != nil {
		colour = scene.Materials[mesh.MaterialIndex].DiffuseColour
	}

	hasUV := mesh.HasTextureCoords()
	hasNormals := mesh.HasNormals()
	hasTangents := mesh.HasTangentsAndBitangents()

	entry.Vertices = make([]metadata.Vertex, len(mesh.Positions))
	for i, p := range mesh.Positions {
		v := metadata.Vertex{
			Position: math.NewVec3(p.X, -p.Y, p.Z),
			Colour:   colour,
		}
		if hasUV {
			v.TexCoord = mesh.TexCoords[i]
		}
		if hasNormals {
			v.Normal = mesh.Normals[i]
		}
		if hasTangents {
			v.Tangent = mesh.Tangents[i]
			v.Bitangent = mesh.Bitangents[i]
		}
		entry.Vertices[i] = v

		ml.Dim.Extend(p)
	}

	tris := mesh.Triangles()
	entry.Indices = make([]uint32, 0, len(tris)*3)
	for _, t := range tris {
		entry.Indices = append(entry.Indices, t[0], t[1], t[2])
	}
	entry.NumIndices = uint32(len(entry.Indices))
}

// BuildVertexData interleaves every loaded vertex in layout order. Positions and
// the returned dimension are multiplied by scale. Indices are rebased onto the
// combined vertex list.
func (ml *MeshLoader) BuildVertexData(layout metadata.VertexLayout, scale float32) (*metadata.MeshData, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if len(ml.Entries) == 0 {
		return nil, fmt.Errorf("no mesh loaded")
	}

	vertices := make([]float32, 0, ml.NumVertices*layout.FloatsPerVertex())
	for e := range ml.Entries {
		for _, v := range ml.Entries[e].Vertices {
			for _, c := range layout {
				switch c {
				case metadata.VertexComponentPosition:
					vertices = append(vertices, v.Position.X*scale, v.Position.Y*scale, v.Position.Z*scale)
				case metadata.VertexComponentNormal:
					vertices = append(vertices, v.Normal.X, -v.Normal.Y, v.Normal.Z)
				case metadata.VertexComponentUV:
					vertices = append(vertices, v.TexCoord.X, v.TexCoord.Y)
				case metadata.VertexComponentColour:
					vertices = append(vertices, v.Colour.X, v.Colour.Y, v.Colour.Z)
				case metadata.VertexComponentTangent:
					vertices = append(vertices, v.Tangent.X, v.Tangent.Y, v.Tangent.Z)
				case metadata.VertexComponentBitangent:
					vertices = append(vertices, v.Bitangent.X, v.Bitangent.Y, v.Bitangent.Z)
				case metadata.VertexComponentDummyFloat:
					vertices = append(vertices, 0)
				case metadata.VertexComponentDummyVec4:
					vertices = append(vertices, 0, 0, 0, 0)
				}
			}
		}
	}

	var indexCount int
	for e := range ml.Entries {
		indexCount += len(ml.Entries[e].Indices)
	}
	indices := make([]uint32, 0, indexCount)
	for e := range ml.Entries {
		base := ml.Entries[e].VertexBase
		for _, i := range ml.Entries[e].Indices {
			indices = append(indices, i+base)
		}
	}

	return &metadata.MeshData{
		Layout:     layout,
		Vertices:   vertices,
		Indices:    indices,
		IndexCount: uint32(len(indices)),
		Dim:        ml.Dim.Scaled(scale),
	}, nil
}

// CreateBuffers builds the vertex data and uploads it with opts.
func (ml *MeshLoader) CreateBuffers(context *vulkan.VulkanContext, layout metadata.VertexLayout, scale float32, opts vulkan.MeshUploadOptions) (*vulkan.MeshBuffer, error) {
	data, err := ml.BuildVertexData(layout, scale)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return vulkan.CreateMeshBuffers(context, data, opts)
}

// CreateVulkanBuffers uploads into host visible buffers without staging.
func (ml *MeshLoader) CreateVulkanBuffers(context *vulkan.VulkanContext, layout metadata.VertexLayout, scale float32) (*vulkan.MeshBuffer, error) {
	return ml.CreateBuffers(context, layout, scale, vulkan.MeshUploadOptions{})
}
