package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func TestSceneImporterExtensions(t *testing.T) {
	si := NewSceneImporter()
	assert.Equal(t, []string{".glb", ".gltf", ".obj"}, si.Extensions())
	assert.True(t, si.Supports("models/Cube.OBJ"))
	assert.True(t, si.Supports("glb"))
	assert.False(t, si.Supports("models/cube.fbx"))
	assert.False(t, si.Supports("models/obj"))
}

func TestImportFromMemory(t *testing.T) {
	si := NewSceneImporter()
	scene, err := si.ImportFromMemory([]byte(triangleOBJ), "obj", metadata.DefaultImportFlags)
	require.NoError(t, err)
	require.Len(t, scene.Meshes, 1)
	assert.True(t, scene.Meshes[0].HasNormals())
	assert.Equal(t, []uint32{2, 1, 0}, scene.Meshes[0].Faces[0].Indices)
}

func TestImportErrors(t *testing.T) {
	si := NewSceneImporter()

	_, err := si.Import("model.fbx", metadata.DefaultImportFlags)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, err = si.Import(filepath.Join(t.TempDir(), "missing.obj"), metadata.DefaultImportFlags)
	assert.ErrorIs(t, err, core.ErrImportFailed)
	assert.Contains(t, err.Error(), "missing.obj")

	_, err = si.ImportFromMemory(nil, "model.obj", 0)
	assert.ErrorIs(t, err, core.ErrImportFailed)

	_, err = si.ImportFromMemory([]byte("v 0 0 0\n"), "model.obj", 0)
	assert.ErrorIs(t, err, core.ErrImportFailed)
}

func TestImportMalformedGLTF(t *testing.T) {
	doc := `{
	"asset": {"version": "2.0"},
	"accessors": [{"componentType": 5126, "count": 3, "type": "VEC3"}],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 5}}]}]
}`
	si := NewSceneImporter()
	assert.NotPanics(t, func() {
		_, err := si.ImportFromMemory([]byte(doc), "gltf", metadata.DefaultImportFlags)
		assert.ErrorIs(t, err, core.ErrImportFailed)
	})
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.obj")
	require.NoError(t, os.WriteFile(path, []byte(triangleOBJ), 0o644))

	scene, err := NewSceneImporter().Import(path, 0)
	require.NoError(t, err)
	assert.Equal(t, path, scene.Name)
	assert.Equal(t, []uint32{0, 1, 2}, scene.Meshes[0].Faces[0].Indices)
}
