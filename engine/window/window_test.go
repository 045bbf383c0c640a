package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/stretchr/testify/assert"
)

type drag struct {
	dx, dy float32
	button int
}

func TestMouseDrag(t *testing.T) {
	w := newEngineWindow()
	var drags []drag
	w.SetMouseDragCallback(func(dx, dy float32, button int) {
		drags = append(drags, drag{dx, dy, button})
	})

	w.mouseMoved(10, 10)
	assert.Empty(t, drags, "motion without a held button is not a drag")

	w.mouseButtonChanged(common.MouseLeft, true, 10, 10)
	w.mouseMoved(15, 8)
	w.mouseMoved(15, 8)
	w.mouseButtonChanged(common.MouseRight, true, 15, 8)
	w.mouseMoved(20, 8)
	w.mouseButtonChanged(common.MouseRight, false, 20, 8)
	w.mouseMoved(21, 9)
	w.mouseButtonChanged(common.MouseLeft, false, 21, 9)
	w.mouseMoved(30, 30)

	assert.Equal(t, []drag{
		{5, -2, common.MouseLeft},
		{5, 0, common.MouseRight},
		{1, 1, common.MouseLeft},
	}, drags)
}

func TestResizeAndKeys(t *testing.T) {
	w := newEngineWindow(WithSize(800, 600))

	var sizes [][2]int
	w.SetResizeCallback(func(width, height int) { sizes = append(sizes, [2]int{width, height}) })
	w.resized(800, 600)
	w.resized(1024, 768)
	assert.Equal(t, [][2]int{{1024, 768}}, sizes)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())

	var down, up []int
	w.SetKeyDownCallback(func(key int) { down = append(down, key) })
	w.SetKeyUpCallback(func(key int) { up = append(up, key) })
	w.keyChanged(common.KeyW, true)
	w.keyChanged(-1, true)
	w.keyChanged(common.KeyW, false)
	assert.Equal(t, []int{common.KeyW}, down)
	assert.Equal(t, []int{common.KeyW}, up)
}

func TestUnopenedWindow(t *testing.T) {
	w := newEngineWindow(WithBackend(BackendGLFW))
	assert.Equal(t, BackendGLFW, w.Backend())
	assert.False(t, w.IsRunning())
	assert.False(t, w.ProcessMessages())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	assert.Equal(t, "glfw", BackendGLFW.String())
}
