// Command oxy-skin draws a crowd of animated, skinned instances of one glTF asset.
//
// Usage:
//
//	oxy-skin [-config oxy-skin.toml] [-asset model.glb] [-instances n] [-backend gl|wgpu]
//	         [-batch n] [-policy vtf|cpu|auto] [-log-level level] [-profile] [-watch]
//
// Flags override the matching config file fields.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine"
	"github.com/Carmen-Shannon/oxy-skin/engine/animation"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gldevice"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/wgpudevice"
	"github.com/Carmen-Shannon/oxy-skin/engine/scene"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"

	"github.com/go-gl/mathgl/mgl32"
)

// The window, the GL context and every GPU call must stay on the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		common.Logger().WithPrefix("main").Error("oxy-skin failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := common.SetLogLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Assets.Path == "" {
		return errors.New("no asset: set assets.path or pass -asset")
	}

	l := loader.NewLoader(loader.BackendTypeGLTF)
	asset, err := l.Load(cfg.Assets.Path)
	if err != nil {
		return err
	}

	win, dev, err := openDisplay(cfg)
	if err != nil {
		return err
	}

	options := []renderer.RendererBuilderOption{
		renderer.WithTextureSize(cfg.Renderer.TextureWidth, cfg.Renderer.TextureHeight),
		renderer.WithSkinningPolicy(cfg.Policy(), cfg.Renderer.CPUThreshold),
		renderer.WithClearColor(cfg.Renderer.ClearColor),
	}
	if cfg.Renderer.BatchSize > 0 {
		options = append(options, renderer.WithBatchSize(cfg.Renderer.BatchSize))
	}
	r := renderer.NewRenderer(dev, options...)
	if err := r.Initialize(); err != nil {
		_ = win.Close()
		return err
	}
	r.Resize(win.Width(), win.Height())

	cam := camera.NewCamera(
		camera.WithFov(mgl32.DegToRad(cfg.Camera.Fov)),
		camera.WithAspect(float32(win.Width())/float32(win.Height())),
		camera.WithClipPlanes(cfg.Camera.Near, cfg.Camera.Far),
		camera.WithZeroToOneDepth(cfg.BackendType() == renderer.BackendTypeWGPU),
		camera.WithController(camera.NewCameraController(
			camera.WithAutoFraming(cfg.Camera.AutoFrame),
		)),
	)

	crowd, err := scene.NewScene("crowd", cam, r, asset,
		scene.WithClip(cfg.Animation.Clip),
		scene.WithInstances(cfg.Animation.Instances),
		scene.WithSpacing(cfg.Animation.Spacing),
		scene.WithSeed(uint64(cfg.Animation.Seed)),
		scene.WithSpeed(cfg.Animation.Speed, cfg.Animation.SpeedJitter),
		scene.WithDrawPosture(cfg.Renderer.DrawPosture),
		scene.WithCulling(cfg.Camera.Cull, cfg.Camera.CullMargin),
		scene.WithUpdaterOptions(
			animation.WithWorkers(cfg.Animation.Workers),
			animation.WithChunkSize(cfg.Animation.ChunkSize),
		),
	)
	if err != nil {
		r.Release()
		_ = win.Close()
		return err
	}

	engineOptions := []engine.EngineBuilderOption{
		engine.WithWindow(win),
		engine.WithScene(0, crowd),
		engine.WithProfiling(cfg.Log.Profile),
		engine.WithLoader(l),
	}
	if cfg.Animation.FixedStep > 0 {
		engineOptions = append(engineOptions, engine.WithFixedStep(1/float64(cfg.Animation.FixedStep), 5))
	}
	if cfg.Assets.Watch {
		engineOptions = append(engineOptions, engine.WithWatch(cfg.Assets.Path))
	}
	eng := engine.NewEngine(engineOptions...)
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return eng.Run(ctx)
}

// loadConfig reads the config file, if any, and applies the flags that were set explicitly.
func loadConfig() (config.Config, error) {
	var (
		path      = flag.String("config", "", "TOML config file")
		asset     = flag.String("asset", "", "glTF or GLB asset to instance")
		instances = flag.Int("instances", 0, "number of animated instances")
		backend   = flag.String("backend", "", "renderer backend: gl or wgpu")
		batch     = flag.Int("batch", 0, "instances per draw, 0 derives it from the texture size")
		policy    = flag.String("policy", "", "skinning policy: vtf, cpu or auto")
		level     = flag.String("log-level", "", "log level: debug, info, warn or error")
		profile   = flag.Bool("profile", false, "log frame statistics every second")
		watch     = flag.Bool("watch", false, "reload the asset when it changes on disk")
	)
	flag.Parse()

	cfg := config.Default()
	if *path != "" {
		var err error
		if cfg, err = config.Load(*path); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "asset":
			cfg.Assets.Path = *asset
		case "instances":
			cfg.Animation.Instances = *instances
		case "backend":
			cfg.Renderer.Backend = *backend
		case "batch":
			cfg.Renderer.BatchSize = *batch
		case "policy":
			cfg.Renderer.Policy = *policy
		case "log-level":
			cfg.Log.Level = *level
		case "profile":
			cfg.Log.Profile = *profile
		case "watch":
			cfg.Assets.Watch = *watch
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openDisplay opens the window and the graphics device of the configured backend: SDL2 with
// OpenGL 4.1 core, or GLFW with WebGPU.
func openDisplay(cfg config.Config) (window.Window, renderer.Device, error) {
	windowOptions := []window.WindowBuilderOption{
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithVSync(cfg.Window.VSync),
	}

	switch cfg.BackendType() {
	case renderer.BackendTypeGL:
		win, err := window.NewWindow(append(windowOptions, window.WithBackend(window.BackendSDL))...)
		if err != nil {
			return nil, nil, err
		}
		dev, err := gldevice.New(
			gldevice.WithSwapFunc(win.SwapBuffers),
			gldevice.WithInstancedArrays(cfg.Renderer.InstancedArrays),
		)
		if err != nil {
			_ = win.Close()
			return nil, nil, err
		}
		return win, dev, nil

	case renderer.BackendTypeWGPU:
		win, err := window.NewWindow(append(windowOptions, window.WithBackend(window.BackendGLFW))...)
		if err != nil {
			return nil, nil, err
		}
		mode := renderer.PresentModeUncapped
		if cfg.Window.VSync {
			mode = renderer.PresentModeVSync
		}
		dev, err := wgpudevice.New(win.SurfaceDescriptor(), win.Width(), win.Height(),
			wgpudevice.WithPresentMode(mode),
			wgpudevice.WithFallbackAdapter(cfg.Renderer.FallbackAdapter),
		)
		if err != nil {
			_ = win.Close()
			return nil, nil, err
		}
		return win, dev, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Renderer.Backend)
}
