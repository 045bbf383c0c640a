package engine

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
)

// onResize keeps every renderer viewport and camera aspect in step with the drawable.
func (e *engine) onResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	for _, s := range e.scenes {
		if r := s.Renderer(); r != nil {
			r.Resize(width, height)
		}
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
		}
	}
}

// onKeyDown handles toggle keys once per press and records camera keys as held. Platform
// key repeat is ignored.
func (e *engine) onKeyDown(key int) {
	if e.held[key] {
		return
	}
	e.held[key] = true
	e.keyOrder = append(e.keyOrder, key)

	switch key {
	case common.KeyEsc:
		e.Quit()
	case common.KeyP:
		for _, s := range e.activeScenes() {
			s.SetDrawPosture(!s.DrawPosture())
		}
	case common.KeySpace:
		for _, s := range e.activeScenes() {
			s.SetPaused(!s.Paused())
		}
	case common.KeyR:
		for _, s := range e.activeScenes() {
			if a := s.Asset(); a != nil {
				e.Reload(a.Name)
			}
		}
	}
}

func (e *engine) onKeyUp(key int) {
	delete(e.held, key)
	if i := slices.Index(e.keyOrder, key); i >= 0 {
		e.keyOrder = slices.Delete(e.keyOrder, i, i+1)
	}
}

func (e *engine) onMouseDrag(dx, dy float32, button int) {
	if ctrl := controllerOf(e.inputCamera()); ctrl != nil {
		ctrl.HandleMouseDrag(dx, dy, button)
	}
}

func (e *engine) onScroll(delta float32) {
	if ctrl := controllerOf(e.inputCamera()); ctrl != nil {
		ctrl.HandleScroll(delta)
	}
}

// handleHeldKeys feeds every held key to the camera controller for this frame's dt, in the
// order the keys went down.
func (e *engine) handleHeldKeys(cam camera.Camera, dt float32) {
	ctrl := controllerOf(cam)
	if ctrl == nil {
		return
	}
	for _, key := range e.keyOrder {
		ctrl.HandleKey(key, dt)
	}
}

func controllerOf(cam camera.Camera) camera.CameraController {
	if cam == nil {
		return nil
	}
	return cam.Controller()
}
