package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybackControllerLoops(t *testing.T) {
	anim, err := NewAnimation("loop", 2, nil)
	require.NoError(t, err)

	c := NewPlaybackController()
	c.Update(anim, 1)
	assert.InDelta(t, 0.5, c.TimeRatio(), 1e-6)

	c.Update(anim, 1.5)
	assert.InDelta(t, 0.25, c.TimeRatio(), 1e-6)
	assert.InDelta(t, 0.5, c.PreviousTimeRatio(), 1e-6)

	c.SetSpeed(-1)
	c.Update(anim, 1)
	assert.InDelta(t, 0.75, c.TimeRatio(), 1e-6)
}

func TestPlaybackControllerClampsWithoutLoop(t *testing.T) {
	anim, err := NewAnimation("once", 1, nil)
	require.NoError(t, err)

	c := NewPlaybackController()
	c.SetLoop(false)
	c.Update(anim, 5)
	assert.Equal(t, float32(1), c.TimeRatio())

	c.Pause()
	c.SetTimeRatio(0.5)
	c.Update(anim, 1)
	assert.Equal(t, float32(0.5), c.TimeRatio())

	c.Reset()
	assert.True(t, c.Playing())
	assert.True(t, c.Loop())
	assert.Equal(t, float32(0), c.TimeRatio())
}
