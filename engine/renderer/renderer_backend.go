package renderer

import (
	"fmt"
	"strings"
)

// BackendType identifies the GPU API a Device is implemented with.
type BackendType int

const (
	// BackendTypeGL selects the OpenGL 4.1 core device windowed through SDL2.
	BackendTypeGL BackendType = iota

	// BackendTypeWGPU selects the WebGPU device windowed through GLFW.
	BackendTypeWGPU
)

// String returns the config name of the backend.
func (b BackendType) String() string {
	switch b {
	case BackendTypeGL:
		return "gl"
	case BackendTypeWGPU:
		return "wgpu"
	}
	return fmt.Sprintf("BackendType(%d)", int(b))
}

// ParseBackendType parses a config name into a BackendType.
//
// Parameters:
//   - s: "gl" or "wgpu", case insensitive
//
// Returns:
//   - BackendType: the parsed backend
//   - error: an error if the name is unknown
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(s) {
	case "gl", "opengl":
		return BackendTypeGL, nil
	case "wgpu", "webgpu":
		return BackendTypeWGPU, nil
	}
	return 0, fmt.Errorf("unknown renderer backend %q", s)
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)
