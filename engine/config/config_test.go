package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxy-skin.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, renderer.PolicyVTF, cfg.Policy())
	assert.Equal(t, config.BackendGL, cfg.Renderer.Backend)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[renderer]
backend = "wgpu"
batch_size = 128
policy = "auto"
cpu_threshold = 8

[animation]
instances = 2000
clip = "Walk"

[log]
level = "debug"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.BackendWGPU, cfg.Renderer.Backend)
	assert.Equal(t, 128, cfg.Renderer.BatchSize)
	assert.Equal(t, renderer.PolicyAuto, cfg.Policy())
	assert.Equal(t, 8, cfg.Renderer.CPUThreshold)
	assert.Equal(t, 2000, cfg.Animation.Instances)
	assert.Equal(t, "Walk", cfg.Animation.Clip)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched keys keep their defaults.
	def := config.Default()
	assert.Equal(t, def.Renderer.TextureWidth, cfg.Renderer.TextureWidth)
	assert.Equal(t, def.Window, cfg.Window)
	assert.Equal(t, def.Camera, cfg.Camera)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[renderer]
batchsize = 128
`)
	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestSaveLoad(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Policy = "cpu"
	cfg.Assets.Path = "assets/fox.glb"

	path := filepath.Join(t.TempDir(), "saved.toml")
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "window size", mutate: func(c *config.Config) { c.Window.Width = 0 }},
		{name: "backend", mutate: func(c *config.Config) { c.Renderer.Backend = "vulkan" }},
		{name: "texture size", mutate: func(c *config.Config) { c.Renderer.TextureHeight = -1 }},
		{name: "negative batch", mutate: func(c *config.Config) { c.Renderer.BatchSize = -1 }},
		{name: "batch over capacity", mutate: func(c *config.Config) {
			c.Renderer.TextureWidth, c.Renderer.TextureHeight = 4, 10
			c.Renderer.BatchSize = 11
		}},
		{name: "policy", mutate: func(c *config.Config) { c.Renderer.Policy = "software" }},
		{name: "cpu threshold", mutate: func(c *config.Config) { c.Renderer.CPUThreshold = -1 }},
		{name: "instances", mutate: func(c *config.Config) { c.Animation.Instances = -5 }},
		{name: "spacing", mutate: func(c *config.Config) { c.Animation.Spacing = 0 }},
		{name: "fixed step", mutate: func(c *config.Config) { c.Animation.FixedStep = -0.1 }},
		{name: "workers", mutate: func(c *config.Config) { c.Animation.Workers = 0 }},
		{name: "chunk size", mutate: func(c *config.Config) { c.Animation.ChunkSize = 0 }},
		{name: "fov", mutate: func(c *config.Config) { c.Camera.Fov = 180 }},
		{name: "clip planes", mutate: func(c *config.Config) { c.Camera.Far = c.Camera.Near }},
		{name: "log level", mutate: func(c *config.Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}

	t.Run("batch at capacity", func(t *testing.T) {
		cfg := config.Default()
		cfg.Renderer.TextureWidth, cfg.Renderer.TextureHeight = 4, 10
		cfg.Renderer.BatchSize = 10
		assert.NoError(t, cfg.Validate())
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := config.Default()
		cfg.Window.Height = 0
		cfg.Camera.Fov = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "window size")
		assert.Contains(t, err.Error(), "camera.fov")
	})
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "oxy-skin.toml"))
	require.NoError(t, err)
	assert.Equal(t, renderer.PolicyAuto, cfg.Policy())
	assert.Equal(t, renderer.BackendTypeGL, cfg.BackendType())
	assert.Equal(t, 256, cfg.Animation.Instances)
	assert.True(t, cfg.Assets.Watch)
}
