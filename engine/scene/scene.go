package scene

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/animation"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// ErrNoSkeleton is returned when an asset cannot drive animated instances.
var ErrNoSkeleton = errors.New("asset has no skeleton")

// Scene is a crowd of animated instances of one asset, laid out on a grid. Each instance
// starts at a random phase and plays at a randomly varied speed; the randomness is seeded so a
// given configuration always produces the same crowd.
type Scene interface {
	// Name returns the scene name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Active reports whether the scene is updated and drawn.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// SetActive enables or disables the scene.
	//
	// Parameters:
	//   - active: whether the scene is active
	SetActive(active bool)

	// Camera returns the camera the scene is drawn with.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Renderer returns the renderer the scene draws with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Asset returns the asset the instances are built from.
	//
	// Returns:
	//   - *loader.Asset: the asset
	Asset() *loader.Asset

	// SetAsset swaps the asset, e.g. after a hot reload. The instances are rebuilt with the
	// same count and seed, so the crowd layout is preserved. On error the scene keeps its
	// previous asset.
	//
	// Parameters:
	//   - asset: the new asset
	//
	// Returns:
	//   - error: ErrNoSkeleton, a missing clip or an incompatible animation
	SetAsset(asset *loader.Asset) error

	// Updater returns the instance updater.
	//
	// Returns:
	//   - animation.Updater: the updater
	Updater() animation.Updater

	// Populate replaces the instances with count new ones laid out on a grid.
	//
	// Parameters:
	//   - count: number of instances
	Populate(count int)

	// Count returns the number of instances.
	//
	// Returns:
	//   - int: the instance count
	Count() int

	// Paused reports whether playback is paused.
	//
	// Returns:
	//   - bool: true if paused
	Paused() bool

	// SetPaused pauses or resumes every instance's playback.
	//
	// Parameters:
	//   - paused: whether playback is paused
	SetPaused(paused bool)

	// DrawPosture reports whether skeleton postures are drawn.
	//
	// Returns:
	//   - bool: true if postures are drawn
	DrawPosture() bool

	// SetDrawPosture toggles drawing each instance's skeleton posture.
	//
	// Parameters:
	//   - enabled: whether postures are drawn
	SetDrawPosture(enabled bool)

	// Update advances every instance, blocking until all are sampled, then auto-frames and
	// updates the camera.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - error: the first sampling error
	Update(dt float32) error

	// DrawCalls computes each instance's skinning matrices and submits every mesh, the
	// optional postures and the static parts. It must run between the renderer's BeginFrame
	// and EndFrame.
	//
	// Returns:
	//   - error: the first skinning or renderer error
	DrawCalls() error

	// Culled returns how many instances the last DrawCalls skipped because their bounds were
	// outside the camera frustum.
	//
	// Returns:
	//   - int: the culled instance count
	Culled() int

	// Release stops the updater's workers.
	Release()
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu     sync.Mutex
	logger *log.Logger

	name     string
	active   bool
	camera   camera.Camera
	renderer renderer.Renderer

	asset          *loader.Asset
	clip           string
	updater        animation.Updater
	updaterOptions []animation.UpdaterBuilderOption
	hasStatic      bool

	count       int
	spacing     float32
	seed        uint64
	speed       float32
	speedJitter float32
	paused      bool
	drawPosture bool
	drawStatic  bool
	cull        bool
	cullMargin  float32
	culled      int

	// Scratch reused every frame: skins[mesh][instance] holds that instance's skinning
	// matrices for the mesh.
	skins   [][][]mgl32.Mat4
	worlds  []mgl32.Mat4
	visible []*animation.Instance
}

var _ Scene = &scene{}

// NewScene creates a scene drawing instances of asset with cam and r. The scene starts
// active and is populated with the configured instance count.
//
// Parameters:
//   - name: the scene name
//   - cam: the camera
//   - r: an initialized renderer
//   - asset: the asset to instance
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the scene
//   - error: ErrNoSkeleton, a missing clip or an incompatible animation
func NewScene(name string, cam camera.Camera, r renderer.Renderer, asset *loader.Asset, options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		logger:      common.Logger().WithPrefix("scene"),
		name:        name,
		active:      true,
		camera:      cam,
		renderer:    r,
		count:       1,
		spacing:     1.5,
		seed:        1,
		speed:       1,
		speedJitter: 0.25,
		drawStatic:  true,
	}
	for _, opt := range options {
		opt(s)
	}

	if err := s.SetAsset(asset); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	return s.camera
}

func (s *scene) Renderer() renderer.Renderer {
	return s.renderer
}

func (s *scene) Asset() *loader.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset
}

func (s *scene) SetAsset(asset *loader.Asset) error {
	if asset == nil || asset.Skeleton == nil {
		return ErrNoSkeleton
	}
	anim := asset.Animation(s.clip)
	if anim == nil {
		return fmt.Errorf("clip %q not found in %s", s.clip, asset.Name)
	}

	updater, err := animation.NewUpdater(asset.Skeleton, anim, s.updaterOptions...)
	if err != nil {
		return fmt.Errorf("scene %s: %w", s.name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, oldAsset := s.updater, s.asset
	s.asset = asset
	s.updater = updater
	s.hasStatic = asset.MeshAsset != nil && len(asset.MeshAsset.StaticParts()) > 0
	s.skins = s.skins[:0]
	s.populate(s.count)
	if old != nil {
		old.Close()
	}
	if oldAsset != nil && oldAsset != asset {
		s.releaseMeshes(oldAsset, asset)
	}

	s.logger.Info("asset bound", "scene", s.name, "asset", asset.Name, "clip", anim.Name(), "meshes", len(asset.Meshes), "instances", s.count)
	return nil
}

// releaseMeshes frees the device buffers of the meshes of prev that next does not share.
func (s *scene) releaseMeshes(prev, next *loader.Asset) {
	for _, m := range prev.Meshes {
		if !slices.Contains(next.Meshes, m) {
			s.renderer.ReleaseMesh(m)
		}
	}
	if prev.MeshAsset != nil && prev.MeshAsset != next.MeshAsset {
		s.renderer.ReleaseMeshAsset(prev.MeshAsset)
	}
}

func (s *scene) Updater() animation.Updater {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updater
}

func (s *scene) Populate(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.populate(count)
}

// populate lays count instances out on a centered grid in the XZ plane. The random stream
// restarts from the seed, so repopulating reproduces the same phases and speeds.
func (s *scene) populate(count int) {
	count = max(count, 0)

	ids := make([]uuid.UUID, 0, s.updater.InstanceCount())
	for _, in := range s.updater.Instances() {
		ids = append(ids, in.ID)
	}
	for _, id := range ids {
		s.updater.RemoveInstance(id)
	}

	rng := rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	cols := int(math.Ceil(math.Sqrt(float64(count))))
	rows := 0
	if cols > 0 {
		rows = (count + cols - 1) / cols
	}

	for i := range count {
		col, row := i%cols, i/cols
		x := (float32(col) - float32(cols-1)/2) * s.spacing
		z := (float32(row) - float32(rows-1)/2) * s.spacing

		in := s.updater.AddInstance(mgl32.Translate3D(x, 0, z))
		in.Controller.SetTimeRatio(rng.Float32())
		in.Controller.SetSpeed(s.speed * (1 + s.speedJitter*(2*rng.Float32()-1)))
		if s.paused {
			in.Controller.Pause()
		}
	}
	s.count = count
}

func (s *scene) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *scene) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *scene) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = paused
	for _, in := range s.updater.Instances() {
		if paused {
			in.Controller.Pause()
		} else {
			in.Controller.Play()
		}
	}
}

func (s *scene) DrawPosture() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawPosture
}

func (s *scene) SetDrawPosture(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawPosture = enabled
}

func (s *scene) Update(dt float32) error {
	s.mu.Lock()
	updater := s.updater
	s.mu.Unlock()

	if err := updater.Update(dt); err != nil {
		return fmt.Errorf("scene %s: %w", s.name, err)
	}
	if s.camera != nil {
		s.camera.AutoFrame(updater.Bounds())
		s.camera.Update()
	}
	return nil
}

func (s *scene) DrawCalls() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.camera != nil {
		s.renderer.SetCamera(s.camera.View(), s.camera.Projection())
	}

	instances := s.visibleInstances()
	s.worlds = common.Grow(s.worlds, len(instances))
	for i, in := range instances {
		s.worlds[i] = in.World
	}

	for m, mesh := range s.asset.Meshes {
		skins := s.skinScratch(m, len(instances), mesh.NumJoints())
		for i, in := range instances {
			if err := skinning.BuildSkinningMatrices(in.Models(), mesh, skins[i]); err != nil {
				return fmt.Errorf("scene %s mesh %q: %w", s.name, mesh.Name, err)
			}
		}
		if err := s.renderer.DrawSkinned(mesh, skins, s.worlds); err != nil {
			return fmt.Errorf("scene %s mesh %q: %w", s.name, mesh.Name, err)
		}
	}

	if s.drawPosture {
		skel := s.updater.Skeleton()
		for _, in := range instances {
			if err := s.renderer.DrawPosture(skel, in.Models(), in.World); err != nil {
				return fmt.Errorf("scene %s posture: %w", s.name, err)
			}
		}
	}

	if s.drawStatic && s.hasStatic {
		if err := s.renderer.DrawMeshAsset(s.asset.MeshAsset, s.worlds); err != nil {
			return fmt.Errorf("scene %s static parts: %w", s.name, err)
		}
	}
	return nil
}

// visibleInstances returns the instances whose joint bounds, grown by the cull margin,
// touch the camera frustum. Without culling every instance is returned.
func (s *scene) visibleInstances() []*animation.Instance {
	instances := s.updater.Instances()
	s.culled = 0
	if !s.cull || s.camera == nil {
		return instances
	}

	frustum := common.ExtractFrustum(s.camera.ViewProjection())
	s.visible = s.visible[:0]
	for _, in := range instances {
		if frustum.IntersectsBox(in.Bounds(), s.cullMargin) {
			s.visible = append(s.visible, in)
		}
	}
	s.culled = len(instances) - len(s.visible)
	return s.visible
}

func (s *scene) Culled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.culled
}

// skinScratch returns n skinning matrix spans of jointCount matrices for mesh m, reusing the
// previous frame's storage.
func (s *scene) skinScratch(m, n, jointCount int) [][]mgl32.Mat4 {
	if m >= len(s.skins) {
		s.skins = common.Grow(s.skins, m+1)
		s.skins[m] = nil
	}
	skins := common.Grow(s.skins[m], n)
	for i := range skins {
		skins[i] = common.Grow(skins[i], jointCount)
	}
	s.skins[m] = skins
	return skins
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updater != nil {
		s.updater.Close()
	}
}
