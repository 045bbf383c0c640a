// Package config loads the sample's TOML settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/pelletier/go-toml/v2"
)

// Renderer backends, as spelled by renderer.BackendType.
const (
	BackendGL   = "gl"
	BackendWGPU = "wgpu"
)

// Config is the complete application configuration.
type Config struct {
	Window    WindowConfig    `toml:"window"`
	Renderer  RendererConfig  `toml:"renderer"`
	Animation AnimationConfig `toml:"animation"`
	Camera    CameraConfig    `toml:"camera"`
	Assets    AssetsConfig    `toml:"assets"`
	Log       LogConfig       `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

type RendererConfig struct {
	// Backend is "gl" (SDL2 + OpenGL 4.1) or "wgpu" (GLFW + WebGPU).
	Backend string `toml:"backend"`

	TextureWidth  int `toml:"texture_width"`
	TextureHeight int `toml:"texture_height"`

	// BatchSize caps instances per draw. 0 derives it from the texture capacity.
	BatchSize int `toml:"batch_size"`

	// Policy is "vtf", "cpu" or "auto"; auto uses the CPU path up to CPUThreshold instances.
	Policy       string `toml:"policy"`
	CPUThreshold int    `toml:"cpu_threshold"`

	ClearColor [4]float32 `toml:"clear_color"`

	// DrawPosture overlays each instance's skeleton as bone pieces.
	DrawPosture bool `toml:"draw_posture"`

	// InstancedArrays lets the GL backend report per-instance attributes. Disabling it
	// forces the one-draw-per-bone posture path.
	InstancedArrays bool `toml:"instanced_arrays"`

	FallbackAdapter bool `toml:"fallback_adapter"`
}

type AnimationConfig struct {
	Instances int `toml:"instances"`

	// Clip selects an animation by name; empty plays the first one.
	Clip string `toml:"clip"`

	Speed float32 `toml:"speed"`

	// SpeedJitter is how far each instance's speed may deviate from Speed, as a fraction.
	SpeedJitter float32 `toml:"speed_jitter"`

	// Spacing is the distance between instances on the layout grid.
	Spacing float32 `toml:"spacing"`

	// Seed drives the random phase and speed offsets of each instance.
	Seed int64 `toml:"seed"`

	// FixedStep is the simulation step in seconds; 0 steps by the frame time.
	FixedStep float32 `toml:"fixed_step"`

	Workers   int `toml:"workers"`
	ChunkSize int `toml:"chunk_size"`
}

type CameraConfig struct {
	// Fov is the vertical field of view in degrees.
	Fov       float32 `toml:"fov"`
	Near      float32 `toml:"near"`
	Far       float32 `toml:"far"`
	AutoFrame bool    `toml:"auto_frame"`

	// Cull skips instances outside the view. CullMargin grows each instance's joint bounds
	// to cover the mesh around them.
	Cull       bool    `toml:"cull"`
	CullMargin float32 `toml:"cull_margin"`
}

type AssetsConfig struct {
	// Path is a .gltf or .glb file holding the skeleton, animations and meshes.
	Path string `toml:"path"`

	// Watch reloads the asset when the file changes.
	Watch bool `toml:"watch"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	Profile bool   `toml:"profile"`
}

// Default returns a complete configuration that runs without a config file.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "oxy-skin",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Renderer: RendererConfig{
			Backend:         BackendGL,
			TextureWidth:    1024,
			TextureHeight:   1024,
			Policy:          renderer.PolicyVTF.String(),
			CPUThreshold:    4,
			ClearColor:      [4]float32{0.4, 0.42, 0.38, 1},
			InstancedArrays: true,
		},
		Animation: AnimationConfig{
			Instances:   100,
			Speed:       1,
			SpeedJitter: 0.25,
			Spacing:     1.5,
			Seed:        1,
			Workers:     4,
			ChunkSize:   64,
		},
		Camera: CameraConfig{
			Fov:        45,
			Near:       0.05,
			Far:        500,
			AutoFrame:  true,
			Cull:       true,
			CullMargin: 1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load decodes the TOML file at path over Default and validates the result. Unknown keys
// are rejected.
//
// Parameters:
//   - path: the config file
//
// Returns:
//   - Config: the loaded configuration
//   - error: a read, decode or validation error
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.TrimSpace(strict.String()))
		}
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
//
// Parameters:
//   - path: the destination file
//
// Returns:
//   - error: an encode or write error
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// BackendType returns the parsed renderer backend. Call Validate first.
func (c Config) BackendType() renderer.BackendType {
	b, _ := renderer.ParseBackendType(c.Renderer.Backend)
	return b
}

// Policy returns the parsed skinning policy. Call Validate first.
func (c Config) Policy() renderer.SkinningPolicy {
	p, _ := renderer.ParseSkinningPolicy(c.Renderer.Policy)
	return p
}

// Validate checks value ranges and cross-field constraints. Every problem is reported,
// each wrapping ErrInvalidConfig.
//
// Returns:
//   - error: nil, or the joined validation errors
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		fail("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}

	r := c.Renderer
	if _, err := renderer.ParseBackendType(r.Backend); err != nil {
		fail("renderer.backend: %v", err)
	}
	if r.TextureWidth <= 0 || r.TextureHeight <= 0 {
		fail("renderer texture %dx%d must be positive", r.TextureWidth, r.TextureHeight)
	}
	if r.BatchSize < 0 {
		fail("renderer.batch_size %d must not be negative", r.BatchSize)
	}
	// A batch must fit the texture even for a single-joint mesh.
	if capacity := r.TextureWidth * r.TextureHeight / 4; r.TextureWidth > 0 && r.TextureHeight > 0 && r.BatchSize > capacity {
		fail("renderer.batch_size %d exceeds the %d matrices a %dx%d texture holds", r.BatchSize, capacity, r.TextureWidth, r.TextureHeight)
	}
	if _, err := renderer.ParseSkinningPolicy(r.Policy); err != nil {
		fail("renderer.policy: %v", err)
	}
	if r.CPUThreshold < 0 {
		fail("renderer.cpu_threshold %d must not be negative", r.CPUThreshold)
	}

	a := c.Animation
	if a.Instances < 0 {
		fail("animation.instances %d must not be negative", a.Instances)
	}
	if a.SpeedJitter < 0 || a.SpeedJitter > 1 {
		fail("animation.speed_jitter %g must be in [0, 1]", a.SpeedJitter)
	}
	if a.Spacing <= 0 {
		fail("animation.spacing %g must be positive", a.Spacing)
	}
	if a.FixedStep < 0 {
		fail("animation.fixed_step %g must not be negative", a.FixedStep)
	}
	if a.Workers < 1 {
		fail("animation.workers %d must be at least 1", a.Workers)
	}
	if a.ChunkSize < 1 {
		fail("animation.chunk_size %d must be at least 1", a.ChunkSize)
	}

	cam := c.Camera
	if cam.Fov <= 0 || cam.Fov >= 180 {
		fail("camera.fov %g must be in (0, 180)", cam.Fov)
	}
	if cam.Near <= 0 || cam.Far <= cam.Near {
		fail("camera clip planes %g..%g must satisfy 0 < near < far", cam.Near, cam.Far)
	}

	if cam.CullMargin < 0 {
		fail("camera.cull_margin %g must not be negative", cam.CullMargin)
	}

	if err := common.ValidateLogLevel(c.Log.Level); err != nil {
		fail("log.level: %v", err)
	}

	return errors.Join(errs...)
}
