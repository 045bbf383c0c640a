package gldevice

// DeviceBuilderOption is a functional option applied to a Device during construction via New.
type DeviceBuilderOption func(*Device)

// WithSwapFunc sets the function EndFrame calls to present the back buffer, typically the
// window's GL swap.
//
// Parameters:
//   - swap: the buffer swap function
//
// Returns:
//   - DeviceBuilderOption: a function that applies the swap option to a device
func WithSwapFunc(swap func()) DeviceBuilderOption {
	return func(d *Device) {
		d.swap = swap
	}
}

// WithInstancedArrays overrides whether per-instance vertex attributes are reported as
// available. Disabling them routes skeleton postures through one draw per bone.
//
// Parameters:
//   - enabled: whether instanced arrays are reported
//
// Returns:
//   - DeviceBuilderOption: a function that applies the option to a device
func WithInstancedArrays(enabled bool) DeviceBuilderOption {
	return func(d *Device) {
		d.instancedArrays = enabled
	}
}
