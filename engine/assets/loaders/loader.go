package loaders

import (
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
)

// SceneParser turns one model format into an unprocessed scene.
type SceneParser interface {
	// ParseFile reads the model at path. Sidecar files (material libraries,
	// external buffers) are resolved relative to the model's directory.
	ParseFile(path string) (*metadata.Scene, error)
	// ParseBytes reads a model held in memory. Sidecar files are not resolved.
	ParseBytes(data []byte, name string) (*metadata.Scene, error)
	// Extensions lists the lower-case file extensions, dot included.
	Extensions() []string
}
