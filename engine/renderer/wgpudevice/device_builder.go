package wgpudevice

import "github.com/Carmen-Shannon/oxy-skin/engine/renderer"

// DeviceBuilderOption is a functional option applied to a Device during construction via New.
type DeviceBuilderOption func(*Device)

// WithPresentMode sets the surface present mode. Defaults to renderer.PresentModeVSync.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode option to a device
func WithPresentMode(mode renderer.PresentMode) DeviceBuilderOption {
	return func(d *Device) {
		d.presentMode = mode
	}
}

// WithFallbackAdapter forces the software fallback adapter.
//
// Parameters:
//   - force: whether to request the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback adapter option to a device
func WithFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *Device) {
		d.forceFallbackAdapter = force
	}
}
