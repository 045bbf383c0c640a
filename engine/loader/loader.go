package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/animation"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"

	"github.com/charmbracelet/log"
	"github.com/qmuntal/gltf"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// Asset is everything imported from one model file: the skeleton, its clips, the skinned
// meshes bound to it and the scene-graph aware mesh asset holding the static geometry.
type Asset struct {
	// Name is the cache key the asset was loaded under.
	Name string

	// Skeleton is built from the first skin, or nil when the file has none.
	Skeleton *animation.Skeleton

	// Animations holds one clip per glTF animation, each with a track for every joint.
	Animations []*animation.Animation

	// Meshes holds the skinned meshes bound to Skeleton.
	Meshes []*model.Mesh

	// MeshAsset holds the interleaved geometry of every triangle primitive and the scene nodes
	// placing the static ones.
	MeshAsset *model.MeshAsset
}

// Animation returns the clip with the given name. An empty name returns the first clip.
// It returns nil when nothing matches.
//
// Parameters:
//   - name: the clip name
//
// Returns:
//   - *animation.Animation: the clip or nil
func (a *Asset) Animation(name string) *animation.Animation {
	for _, anim := range a.Animations {
		if name == "" || anim.Name() == name {
			return anim
		}
	}
	return nil
}

// Validate checks every mesh against the skeleton and the mesh asset's scene graph.
//
// Returns:
//   - error: the first validation error found
func (a *Asset) Validate() error {
	numJoints := 0
	if a.Skeleton != nil {
		numJoints = a.Skeleton.NumJoints()
	}
	for _, m := range a.Meshes {
		if err := m.Validate(numJoints); err != nil {
			return err
		}
	}
	for _, anim := range a.Animations {
		if a.Skeleton == nil {
			break
		}
		if err := animation.CheckCompatible(a.Skeleton, anim); err != nil {
			return err
		}
	}
	if a.MeshAsset != nil {
		return a.MeshAsset.Validate()
	}
	return nil
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu     sync.RWMutex
	logger *log.Logger

	cache map[string]*Asset

	backend loaderBackend
}

// Loader defines the public-facing interface for importing and caching model assets.
// It abstracts the file format behind a backend and keeps the last import of each path.
type Loader interface {
	// Load imports a model file and caches the result. A cached asset is returned as is.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *Asset: the loaded and cached asset
	//   - error: error if loading or validation fails
	Load(path string) (*Asset, error)

	// Reload imports a model file again, replacing any cached asset. The cache is left
	// untouched when the import fails, so a broken save during hot reload keeps the previous
	// asset in use.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *Asset: the freshly imported asset
	//   - error: error if loading or validation fails
	Reload(path string) (*Asset, error)

	// LoadDocument imports an already decoded glTF document and caches it by name.
	//
	// Parameters:
	//   - name: the cache key for the asset
	//   - doc: the glTF document
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if extraction or validation fails
	LoadDocument(name string, doc *gltf.Document) (*Asset, error)

	// Get retrieves a cached asset by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Asset: the cached asset or nil
	Get(name string) *Asset

	// Assets returns a copy of the asset cache.
	//
	// Returns:
	//   - map[string]*Asset: all cached assets keyed by name
	Assets() map[string]*Asset
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the model file format backend
//   - options: functional options applied to the loader
//
// Returns:
//   - Loader: the loader
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger: common.Logger().WithPrefix("loader"),
		cache:  make(map[string]*Asset),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.logger)
	}

	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) Load(path string) (*Asset, error) {
	if a := l.Get(path); a != nil {
		return a, nil
	}
	return l.Reload(path)
}

func (l *loader) Reload(path string) (*Asset, error) {
	if err := checkExtension(path); err != nil {
		return nil, err
	}

	asset, err := l.backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, asset)
}

func (l *loader) LoadDocument(name string, doc *gltf.Document) (*Asset, error) {
	asset, err := l.backend.LoadDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", name, err)
	}
	return l.store(name, asset)
}

func (l *loader) Get(name string) *Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

func (l *loader) Assets() map[string]*Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]*Asset, len(l.cache))
	for k, v := range l.cache {
		out[k] = v
	}
	return out
}

func (l *loader) store(name string, asset *Asset) (*Asset, error) {
	asset.Name = name
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("invalid asset %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = asset
	l.mu.Unlock()

	joints := 0
	if asset.Skeleton != nil {
		joints = asset.Skeleton.NumJoints()
	}
	l.logger.Info("asset loaded", "name", name, "joints", joints, "animations", len(asset.Animations), "meshes", len(asset.Meshes))
	return asset, nil
}

func checkExtension(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return nil
	default:
		return fmt.Errorf("unsupported model format %q", filepath.Ext(path))
	}
}
