package profiler

import (
	"io"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickReportsPerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(time.Second), WithLogger(log.New(io.Discard)))

	frame := renderer.Stats{DrawCalls: 4, Batches: 2, TextureUploads: 2, VtfInstances: 100}
	for i := range 9 {
		clock.advance(100 * time.Millisecond)
		assert.False(t, p.Tick(frame), "tick %d", i)
	}

	// The tenth frame is slow and closes the interval.
	clock.advance(200 * time.Millisecond)
	assert.True(t, p.Tick(frame))

	r := p.Last()
	assert.InDelta(t, 10/1.1, r.FPS, 1e-9)
	assert.Equal(t, 200*time.Millisecond, r.FrameTimeMax)
	assert.Equal(t, 4.0, r.DrawCalls)
	assert.Equal(t, 2.0, r.Batches)
	assert.Equal(t, 100.0, r.Instances)

	// Counters restart after a report.
	clock.advance(100 * time.Millisecond)
	assert.False(t, p.Tick(renderer.Stats{}))
}
