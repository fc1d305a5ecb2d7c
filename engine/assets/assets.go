package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkmesh/engine/core"
)

// ModelFilter decides which files the AssetManager indexes. SceneImporter satisfies it.
type ModelFilter interface {
	Supports(path string) bool
}

// changeDelay is how long a path must stay quiet before OnChange fires for it.
const changeDelay = 100 * time.Millisecond

type AssetInfo struct {
	Path     string
	Name     string
	Modified time.Time
}

// AssetManager keeps an index of the model files under a directory tree and reports
// every model that is created or rewritten while it runs.
type AssetManager struct {
	assets map[string]AssetInfo
	filter ModelFilter

	mutex    sync.RWMutex
	onChange func(AssetInfo)
	delay    time.Duration
	pending  map[string]*pendingChange

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	started  bool
}

func NewAssetManager(filter ModelFilter) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		filter:   filter,
		delay:    changeDelay,
		pending:  make(map[string]*pendingChange),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Initialize indexes assetsDir and starts watching it and every sub-directory.
func (am *AssetManager) Initialize(assetsDir string) error {
	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}
	am.mutex.Lock()
	am.started = true
	am.mutex.Unlock()
	go am.start()

	core.LogInfo("watching %d model(s) under '%s'", len(am.Assets()), assetsDir)
	return nil
}

// OnChange registers the callback fired when a model file is created or written.
// Bursts of events for one path are reported once. The callback runs on a timer
// goroutine.
func (am *AssetManager) OnChange(fn func(AssetInfo)) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.onChange = fn
}

// Assets returns the indexed models ordered by path.
func (am *AssetManager) Assets() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Lookup finds a model by its path or, failing that, by its file name.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	if a, ok := am.assets[filepath.Clean(name)]; ok {
		return a, true
	}
	for _, a := range am.assets {
		if a.Name == name {
			return a, true
		}
	}
	return AssetInfo{}, false
}

func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	started := am.started
	for path, p := range am.pending {
		p.timer.Stop()
		delete(am.pending, path)
	}
	am.mutex.Unlock()

	if !started {
		return am.fsnotify.Close()
	}
	close(am.done)
	<-am.stopped
	return nil
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name)
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch '%s': %s", e.Name, err)
			}
		}
		return
	}

	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if info, ok := am.handleFileEvent(e.Name); ok {
			am.schedule(info.Path)
		}
	}
	// A removed directory cannot be stat'ed, so removal is attempted for every path.
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

// watchRecursive adds all directories under the given one to the watch list and
// indexes the models it finds on the way.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes a created or modified file if it is a model.
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	path = filepath.Clean(path)
	if am.filter == nil || !am.filter.Supports(path) || strings.HasPrefix(filepath.Base(path), ".") {
		return AssetInfo{}, false
	}

	info := AssetInfo{
		Path:     path,
		Name:     filepath.Base(path),
		Modified: time.Now(),
	}
	if s, err := os.Stat(path); err == nil {
		info.Modified = s.ModTime()
	}

	am.mutex.Lock()
	am.assets[path] = info
	am.mutex.Unlock()
	return info, true
}

// removeAsset drops the asset from the index if it was deleted.
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

type pendingChange struct {
	timer *time.Timer
}

// schedule reports path once it has been quiet for am.delay. Every event in the
// meantime restarts the wait.
func (am *AssetManager) schedule(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if am.isClosed {
		return
	}
	if p, ok := am.pending[path]; ok {
		p.timer.Stop()
	}
	p := &pendingChange{}
	p.timer = time.AfterFunc(am.delay, func() { am.fire(path, p) })
	am.pending[path] = p
}

func (am *AssetManager) fire(path string, p *pendingChange) {
	am.mutex.Lock()
	if am.pending[path] != p {
		// Superseded by a later event.
		am.mutex.Unlock()
		return
	}
	delete(am.pending, path)
	info, ok := am.assets[path]
	fn := am.onChange
	am.mutex.Unlock()

	if ok && fn != nil {
		fn(info)
	}
}
