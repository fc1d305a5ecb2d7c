package assets

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetManagerIndexesModels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.obj"), []byte(triangleOBJ), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.glb"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	am, err := NewAssetManager(NewSceneImporter())
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Close()

	list := am.Assets()
	require.Len(t, list, 2)
	assert.Equal(t, filepath.Join(dir, "a.obj"), list[0].Path)

	info, ok := am.Lookup("b.glb")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "nested", "b.glb"), info.Path)

	_, ok = am.Lookup("notes.txt")
	assert.False(t, ok)
}

func TestAssetManagerReportsChanges(t *testing.T) {
	dir := t.TempDir()
	am, err := NewAssetManager(NewSceneImporter())
	require.NoError(t, err)

	changed := make(chan AssetInfo, 16)
	am.OnChange(func(info AssetInfo) { changed <- info })
	require.NoError(t, am.Initialize(dir))
	defer am.Close()

	path := filepath.Join(dir, "new.obj")
	require.NoError(t, os.WriteFile(path, []byte(triangleOBJ), 0o644))

	select {
	case info := <-changed:
		assert.Equal(t, path, info.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, ok := am.Lookup(path)
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAssetManagerCloseTwice(t *testing.T) {
	am, err := NewAssetManager(NewSceneImporter())
	require.NoError(t, err)
	require.NoError(t, am.Close())
	require.NoError(t, am.Close())
}

func TestAssetManagerCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "burst.obj")
	require.NoError(t, os.WriteFile(path, []byte(triangleOBJ), 0o644))

	am, err := NewAssetManager(NewSceneImporter())
	require.NoError(t, err)
	defer am.Close()
	am.delay = 20 * time.Millisecond

	var calls atomic.Int32
	am.OnChange(func(info AssetInfo) {
		assert.Equal(t, path, info.Path)
		calls.Add(1)
	})

	_, ok := am.handleFileEvent(path)
	require.True(t, ok)
	// Create followed by writes.
	am.schedule(path)
	am.schedule(path)
	am.schedule(path)

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAssetManagerDropsPendingOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.obj")
	require.NoError(t, os.WriteFile(path, []byte(triangleOBJ), 0o644))

	am, err := NewAssetManager(NewSceneImporter())
	require.NoError(t, err)
	am.delay = 20 * time.Millisecond

	var calls atomic.Int32
	am.OnChange(func(AssetInfo) { calls.Add(1) })
	_, ok := am.handleFileEvent(path)
	require.True(t, ok)
	am.schedule(path)
	require.NoError(t, am.Close())

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
