
package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNilDevice is returned when a Device is built without a HAL device or queue.
	ErrNilDevice = errors.New("native: HAL device or queue is nil")

	// ErrNoHALProvider is returned when a device provider does not expose HAL types.
	ErrNoHALProvider = errors.New("native: provider does not expose HAL types")

	// ErrInvalidDimensions is returned when the target width or height is invalid.
	ErrInvalidDimensions = errors.New("native: invalid target dimensions")

	// ErrOutOfRange is returned by BufferSubData when the write does not fit
	// the bound buffer.
	ErrOutOfRange = errors.New("native: write outside buffer")

	// ErrClosed is returned by operations on a closed Device.
	ErrClosed = errors.New("native: device closed")
)
