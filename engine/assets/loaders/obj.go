package loaders

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/g3n/engine/loader/obj"
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/math"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
)

// ObjParser reads Wavefront OBJ files and their MTL libraries.
type ObjParser struct{}

func (op *ObjParser) Extensions() []string {
	return []string{".obj"}
}

func (op *ObjParser) ParseFile(path string) (*metadata.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var mtl io.Reader = bytes.NewReader(nil)
	if lib := materialLibrary(data); lib != "" {
		file, err := os.Open(filepath.Join(filepath.Dir(path), lib))
		if err != nil {
			core.LogWarn("%s: failed to read material library '%s': %s", path, lib, err)
		} else {
			defer file.Close()
			mtl = file
		}
	}
	return op.decode(data, mtl, path)
}

func (op *ObjParser) ParseBytes(data []byte, name string) (*metadata.Scene, error) {
	if lib := materialLibrary(data); lib != "" {
		core.LogWarn("%s: material library '%s' cannot be resolved from memory", name, lib)
	}
	return op.decode(data, bytes.NewReader(nil), name)
}

func (op *ObjParser) decode(data []byte, mtl io.Reader, name string) (*metadata.Scene, error) {
	// Faces before the first o or g statement belong to this object.
	src := io.MultiReader(strings.NewReader("o default\n"), bytes.NewReader(data))
	dec, err := obj.DecodeReader(src, mtl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for _, w := range dec.Warnings {
		core.LogDebug("%s: %s", name, w)
	}

	b := &objBuilder{
		dec:   dec,
		scene: &metadata.Scene{Name: name, Root: metadata.NewSceneNode("root")},
	}
	b.materials = objMaterials(b.scene, dec.Materials)

	for _, o := range dec.Objects {
		for _, f := range o.Faces {
			if err := b.face(o.Name, f); err != nil {
				return nil, fmt.Errorf("%s: object '%s': %w", name, o.Name, err)
			}
		}
		b.finishMesh()
	}

	if len(b.scene.Meshes) == 0 {
		return nil, fmt.Errorf("%s: no faces found", name)
	}
	return b.scene, nil
}

// materialLibrary returns the first mtllib named by an OBJ source.
func materialLibrary(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 1 && fields[0] == "mtllib" {
			return fields[1]
		}
	}
	return ""
}

// objIndex identifies a unique position/uv/normal combination, -1 when a slot is absent.
type objIndex struct {
	v, t, n int
}

// objBuilder welds decoded faces into scene meshes, one per object and material run.
type objBuilder struct {
	dec       *obj.Decoder
	scene     *metadata.Scene
	materials map[string]int

	current  *metadata.SceneMesh
	welded   map[objIndex]uint32
	usesUV   bool
	usesN    bool
	material int
}

func (b *objBuilder) face(object string, f obj.Face) error {
	material := b.materialIndex(f.Material)
	if b.current != nil && b.material != material {
		b.finishMesh()
	}
	if b.current == nil {
		b.current = &metadata.SceneMesh{Name: object}
		b.welded = map[objIndex]uint32{}
		b.usesUV = false
		b.usesN = false
		b.material = material
	}

	face := metadata.Face{Indices: make([]uint32, 0, len(f.Vertices))}
	for i := range f.Vertices {
		key, err := b.resolve(f, i)
		if err != nil {
			return err
		}
		idx, ok := b.welded[key]
		if !ok {
			idx = uint32(len(b.current.Positions))
			b.welded[key] = idx
			b.current.Positions = append(b.current.Positions, b.position(key.v))
			uv := math.Vec2{}
			if key.t >= 0 {
				uv = math.NewVec2(b.dec.Uvs[key.t*2], b.dec.Uvs[key.t*2+1])
				b.usesUV = true
			}
			b.current.TexCoords = append(b.current.TexCoords, uv)
			n := math.Vec3{}
			if key.n >= 0 {
				n = math.NewVec3(b.dec.Normals[key.n*3], b.dec.Normals[key.n*3+1], b.dec.Normals[key.n*3+2])
				b.usesN = true
			}
			b.current.Normals = append(b.current.Normals, n)
		}
		face.Indices = append(face.Indices, idx)
	}
	b.current.Faces = append(b.current.Faces, face)
	return nil
}

// resolve checks the decoded indices of corner i. Missing or out of range uv and
// normal indices leave their slot empty, a bad position index is an error.
func (b *objBuilder) resolve(f obj.Face, i int) (objIndex, error) {
	key := objIndex{v: f.Vertices[i], t: -1, n: -1}

	count := len(b.dec.Vertices) / 3
	if key.v < 0 || key.v >= count {
		return key, fmt.Errorf("vertex index %d out of range (count=%d)", key.v+1, count)
	}
	if i < len(f.Uvs) && f.Uvs[i] >= 0 && f.Uvs[i] < len(b.dec.Uvs)/2 {
		key.t = f.Uvs[i]
	}
	if i < len(f.Normals) && f.Normals[i] >= 0 && f.Normals[i] < len(b.dec.Normals)/3 {
		key.n = f.Normals[i]
	}
	return key, nil
}

func (b *objBuilder) position(v int) math.Vec3 {
	return math.NewVec3(b.dec.Vertices[v*3], b.dec.Vertices[v*3+1], b.dec.Vertices[v*3+2])
}

// materialIndex looks a material up by name, registering a default-coloured one if unknown.
func (b *objBuilder) materialIndex(name string) int {
	if name == "" {
		name = "default"
	}
	if idx, ok := b.materials[name]; ok {
		return idx
	}
	idx := len(b.scene.Materials)
	b.materials[name] = idx
	b.scene.Materials = append(b.scene.Materials, &metadata.SceneMaterial{
		Name:          name,
		DiffuseColour: defaultDiffuse,
	})
	return idx
}

func (b *objBuilder) finishMesh() {
	m := b.current
	b.current = nil
	if m == nil || len(m.Faces) == 0 {
		return
	}
	if !b.usesUV {
		m.TexCoords = nil
	}
	if !b.usesN {
		m.Normals = nil
	}
	m.MaterialIndex = b.material

	b.scene.Root.Meshes = append(b.scene.Root.Meshes, len(b.scene.Meshes))
	b.scene.Meshes = append(b.scene.Meshes, m)
}
