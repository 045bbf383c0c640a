package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"

	"github.com/charmbracelet/log"
)

// Report is one interval's worth of aggregated measurements.
type Report struct {
	FPS            float64
	FrameTimeMax   time.Duration
	HeapMB         float64
	AllocRateMB    float64
	GCCount        uint32
	LastPauseUs    uint64
	MaxPauseUs     uint64
	SysMB          float64
	DrawCalls      float64
	Batches        float64
	TextureUploads float64
	Instances      float64
}

// Profiler tracks frame rate, memory statistics and renderer work for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	logger         *log.Logger
	now            func() time.Time
	updateInterval time.Duration

	frameCount   int
	lastTime     time.Time
	lastFrame    time.Time
	frameTimeMax time.Duration

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	drawCalls      int
	batches        int
	textureUploads int
	instances      int

	last Report
}

// ProfilerBuilderOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval is an option builder that sets how often stats are logged.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option to a profiler
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithLogger is an option builder that replaces the profiler's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the logger option to a profiler
func WithLogger(logger *log.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// WithClock is an option builder that replaces time.Now, for deterministic tests.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock option to a profiler
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options applied to the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         common.Logger().WithPrefix("profiler"),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	p.lastFrame = p.lastTime
	return p
}

// Tick should be called once per frame, after EndFrame, with the renderer's counters for
// that frame. Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, worst frame time, heap usage, allocation rate, GC count/pause
// times, total memory and the per-frame averages of draw calls, batches, texture uploads and
// instances.
//
// Parameters:
//   - stats: the renderer counters of the frame just submitted
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats renderer.Stats) bool {
	currentTime := p.now()
	p.frameCount++
	p.frameTimeMax = max(p.frameTimeMax, currentTime.Sub(p.lastFrame))
	p.lastFrame = currentTime

	p.drawCalls += stats.DrawCalls
	p.batches += stats.Batches
	p.textureUploads += stats.TextureUploads
	p.instances += stats.VtfInstances + stats.CPUSkinnedInstances

	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	frames := float64(p.frameCount)
	r := Report{
		FPS:            frames / elapsed.Seconds(),
		FrameTimeMax:   p.frameTimeMax,
		HeapMB:         float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:          float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:    float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:        p.memStats.NumGC,
		DrawCalls:      float64(p.drawCalls) / frames,
		Batches:        float64(p.batches) / frames,
		TextureUploads: float64(p.textureUploads) / frames,
		Instances:      float64(p.instances) / frames,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	if gcCount := p.memStats.NumGC; gcCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("frame stats",
		"fps", r.FPS,
		"frame_max", r.FrameTimeMax,
		"draws", r.DrawCalls,
		"batches", r.Batches,
		"tex_uploads", r.TextureUploads,
		"instances", r.Instances,
		"heap_mb", r.HeapMB,
		"alloc_mb_s", r.AllocRateMB,
		"gc", r.GCCount,
		"gc_last_us", r.LastPauseUs,
		"gc_max_us", r.MaxPauseUs,
		"sys_mb", r.SysMB,
	)

	p.last = r
	p.frameCount = 0
	p.frameTimeMax = 0
	p.drawCalls, p.batches, p.textureUploads, p.instances = 0, 0, 0, 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently logged report.
func (p *Profiler) Last() Report {
	return p.last
}
