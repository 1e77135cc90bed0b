package backend

import (
	"errors"

	"github.com/gogpu/shadow/device"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when Device is called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend name constants.
const (
	// BackendGLES is the OpenGL / OpenGL ES backend loaded at run time.
	BackendGLES = "gles"
	// BackendNative is the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendNative = "native"
	// BackendRecorder is the in-memory recording device.
	BackendRecorder = "recorder"
)

// Backend owns a device and its platform resources.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Backend interface {
	// Name returns the backend identifier (e.g., "gles", "native").
	Name() string

	// Init acquires the device. It must be called before Device.
	Init() error

	// Close releases the device and all backend resources.
	// The backend should not be used after Close is called.
	Close()

	// Device returns the device, or nil before Init.
	Device() device.Device
}
