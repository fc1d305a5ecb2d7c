package assets

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spaghettifunk/vkmesh/engine/assets/loaders"
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

// Importer parses a model and applies the requested post-processing steps.
type Importer interface {
	Import(path string, flags metadata.ImportFlags) (*metadata.Scene, error)
	ImportFromMemory(data []byte, hint string, flags metadata.ImportFlags) (*metadata.Scene, error)
}

// SceneImporter dispatches to a parser by file extension.
type SceneImporter struct {
	mutex   sync.RWMutex
	parsers map[string]loaders.SceneParser
}

// NewSceneImporter returns an importer with the OBJ and glTF parsers registered.
func NewSceneImporter() *SceneImporter {
	si := &SceneImporter{
		parsers: make(map[string]loaders.SceneParser),
	}
	si.RegisterParser(&loaders.ObjParser{})
	si.RegisterParser(&loaders.GLTFParser{})
	return si
}

// RegisterParser binds every extension the parser declares, replacing earlier bindings.
func (si *SceneImporter) RegisterParser(parser loaders.SceneParser) {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	for _, ext := range parser.Extensions() {
		si.parsers[strings.ToLower(ext)] = parser
	}
}

// Extensions lists the registered extensions in sorted order.
func (si *SceneImporter) Extensions() []string {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	exts := make([]string, 0, len(si.parsers))
	for ext := range si.parsers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Supports reports whether a parser is registered for the path's extension.
func (si *SceneImporter) Supports(path string) bool {
	_, err := si.parserFor(path)
	return err == nil
}

func (si *SceneImporter) parserFor(path string) (loaders.SceneParser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" && !strings.ContainsAny(path, `./\`) {
		// Memory hints may be a bare extension such as "obj".
		ext = "." + strings.ToLower(path)
	}

	si.mutex.RLock()
	defer si.mutex.RUnlock()

	parser, ok := si.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("'%s': %w", path, core.ErrUnsupportedFormat)
	}
	return parser, nil
}

func (si *SceneImporter) Import(path string, flags metadata.ImportFlags) (*metadata.Scene, error) {
	parser, err := si.parserFor(path)
	if err != nil {
		return nil, err
	}
	scene, err := parser.ParseFile(path)
	return si.finish(scene, err, path, flags)
}

func (si *SceneImporter) ImportFromMemory(data []byte, hint string, flags metadata.ImportFlags) (*metadata.Scene, error) {
	parser, err := si.parserFor(hint)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("'%s': empty model data: %w", hint, core.ErrImportFailed)
	}
	scene, err := parser.ParseBytes(data, hint)
	return si.finish(scene, err, hint, flags)
}

func (si *SceneImporter) finish(scene *metadata.Scene, err error, name string, flags metadata.ImportFlags) (*metadata.Scene, error) {
	if err != nil {
		core.LogError("Error parsing '%s': '%s'", name, err)
		return nil, fmt.Errorf("%w: '%s': %s", core.ErrImportFailed, name, err)
	}
	if scene.Root == nil {
		scene.Root = metadata.NewSceneNode("root")
		for i := range scene.Meshes {
			scene.Root.Meshes = append(scene.Root.Meshes, i)
		}
	}

	loaders.PostProcess(scene, flags)

	if len(scene.Meshes) == 0 {
		core.LogError("Error parsing '%s': '%s'", name, "no meshes")
		return nil, fmt.Errorf("%w: '%s': no meshes", core.ErrImportFailed, name)
	}
	core.LogDebug("imported '%s': %d meshes, %d materials", name, len(scene.Meshes), len(scene.Materials))
	return scene, nil
}
