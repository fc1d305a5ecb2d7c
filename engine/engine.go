package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/spaghettifunk/vkmesh/engine/assets"
	"github.com/spaghettifunk/vkmesh/engine/core"
	"github.com/spaghettifunk/vkmesh/engine/renderer/metadata"
	"github.com/spaghettifunk/vkmesh/engine/renderer/vulkan"
	"github.com/spaghettifunk/vkmesh/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything was released
	EngineStageShutdown
)

// Engine loads models from disk and keeps one uploaded mesh per model path.
type Engine struct {
	config       *ApplicationConfig
	currentStage Stage

	layout metadata.VertexLayout
	flags  metadata.ImportFlags

	backend      *vulkan.Backend
	importer     *assets.SceneImporter
	assetManager *assets.AssetManager

	mutex   sync.Mutex
	meshes  map[string]*vulkan.Mesh
	reloads chan string
}

func New(cfg *ApplicationConfig) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultApplicationConfig()
	}
	if err := cfg.Validate(); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	core.SetLogLevel(cfg.Level())

	layout, _ := cfg.VertexLayout()
	flags, _ := cfg.ImportFlags()

	importer := assets.NewSceneImporter()
	am, err := assets.NewAssetManager(importer)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	return &Engine{
		config:       cfg,
		currentStage: EngineStageUninitialized,
		layout:       layout,
		flags:        flags,
		backend:      vulkan.NewBackend(cfg.Validation),
		importer:     importer,
		assetManager: am,
		meshes:       make(map[string]*vulkan.Mesh),
		reloads:      make(chan string, 16),
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine already initialized")
	}
	e.currentStage = EngineStageInitializing

	if err := e.backend.Initialize(e.config.Name); err != nil {
		return err
	}

	if err := e.indexAssets(); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// indexAssets indexes the assets directory. A missing directory is only an error
// when something depends on it: watch mode, or no model named explicitly.
func (e *Engine) indexAssets() error {
	dir := e.config.AssetsDir
	if dir == "" {
		return nil
	}
	err := e.assetManager.Initialize(dir)
	switch {
	case err == nil:
		core.LogInfo("indexed %d models under '%s'", len(e.assetManager.Assets()), dir)
		return nil
	case errors.Is(err, fs.ErrNotExist) && !e.config.RequiresAssetsDir():
		core.LogWarn("assets directory '%s' not found, skipping the index", dir)
		return nil
	default:
		core.LogError("%s", err)
		return err
	}
}

// Mesh returns the mesh uploaded for path, if any.
func (e *Engine) Mesh(path string) (*vulkan.Mesh, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	m, ok := e.meshes[path]
	return m, ok
}

func (e *Engine) uploadOptions() vulkan.MeshUploadOptions {
	device := e.backend.Context().Device
	// The single-use copy command comes from the graphics pool, so it must be
	// submitted on the graphics queue.
	return vulkan.MeshUploadOptions{
		UseStaging: e.config.UseStaging,
		CopyQueue:  device.GraphicsQueue,
	}
}

func (e *Engine) prepare(path string) (*metadata.MeshData, error) {
	loader := systems.NewMeshLoader(e.importer)
	if err := loader.LoadMeshWithFlags(path, e.flags); err != nil {
		return nil, err
	}
	return loader.BuildVertexData(e.layout, e.config.Scale)
}

func (e *Engine) upload(path string, data *metadata.MeshData) (*vulkan.Mesh, error) {
	ctx := e.backend.Context()
	mb, err := vulkan.CreateMeshBuffers(ctx, data, e.uploadOptions())
	if err != nil {
		return nil, err
	}
	mesh := vulkan.NewMesh(mb, e.layout)

	e.mutex.Lock()
	old := e.meshes[path]
	e.meshes[path] = mesh
	e.mutex.Unlock()
	if old != nil {
		old.Destroy(ctx)
	}

	core.LogInfo("'%s': %d vertices, %d indices, size %.3f x %.3f x %.3f",
		path, data.VertexCount(), data.IndexCount, data.Dim.Size.X, data.Dim.Size.Y, data.Dim.Size.Z)
	return mesh, nil
}

// LoadModel imports path and uploads it, replacing an earlier upload of the same path.
func (e *Engine) LoadModel(path string) (*vulkan.Mesh, error) {
	data, err := e.prepare(path)
	if err != nil {
		return nil, err
	}
	return e.upload(path, data)
}

// LoadModels prepares vertex data on the job system and uploads the results one
// by one. Failed models are reported together and do not stop the others.
func (e *Engine) LoadModels(paths []string) error {
	js, err := systems.NewJobSystem(e.config.Workers, len(paths))
	if err != nil {
		return err
	}

	var (
		mutex    sync.Mutex
		prepared = make(map[string]*metadata.MeshData, len(paths))
		errs     []error
	)
	for _, p := range paths {
		path := p
		js.Submit(systems.Job{
			Name: path,
			Run: func() error {
				data, err := e.prepare(path)
				if err != nil {
					return err
				}
				mutex.Lock()
				prepared[path] = data
				mutex.Unlock()
				return nil
			},
			OnFailure: func(err error) {
				mutex.Lock()
				errs = append(errs, err)
				mutex.Unlock()
			},
		})
	}
	js.Shutdown()

	for _, path := range paths {
		data, ok := prepared[path]
		if !ok {
			continue
		}
		if _, err := e.upload(path, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run loads the configured model, or every indexed model, and returns unless
// watch mode is on. In watch mode changed models are reloaded until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine not initialized")
	}
	e.currentStage = EngineStageRunning

	if e.config.Watch {
		e.assetManager.OnChange(func(info assets.AssetInfo) {
			select {
			case e.reloads <- info.Path:
			default:
				core.LogWarn("reload queue full, dropping '%s'", info.Path)
			}
		})
	}

	if err := e.loadInitial(); err != nil {
		if !e.config.Watch {
			return err
		}
		core.LogError("%s", err)
	}

	if !e.config.Watch {
		return nil
	}

	core.LogInfo("watching '%s' for changes", e.config.AssetsDir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-e.reloads:
			if e.config.Model != "" && !e.isConfiguredModel(path) {
				continue
			}
			if _, err := e.LoadModel(path); err != nil {
				core.LogError("reloading '%s': %s", path, err)
			}
		}
	}
}

func (e *Engine) loadInitial() error {
	if e.config.Model != "" {
		path := e.config.Model
		if info, ok := e.assetManager.Lookup(path); ok {
			path = info.Path
		}
		_, err := e.LoadModel(path)
		return err
	}

	infos := e.assetManager.Assets()
	if len(infos) == 0 {
		return fmt.Errorf("no model configured and none found under '%s'", e.config.AssetsDir)
	}
	paths := make([]string, len(infos))
	for i, info := range infos {
		paths[i] = info.Path
	}
	return e.LoadModels(paths)
}

func (e *Engine) isConfiguredModel(path string) bool {
	if path == e.config.Model {
		return true
	}
	info, ok := e.assetManager.Lookup(e.config.Model)
	return ok && info.Path == path
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	e.mutex.Lock()
	meshes := e.meshes
	e.meshes = make(map[string]*vulkan.Mesh)
	e.mutex.Unlock()

	if e.backend.Context().Device.LogicalDevice != nil {
		for _, m := range meshes {
			m.Destroy(e.backend.Context())
		}
	}

	err := e.assetManager.Close()
	e.backend.Shutdown()

	e.currentStage = EngineStageShutdown
	core.LogInfo("engine shut down")
	return err
}
