//go:build !nogpu

package native

import (
	"sync"

	"github.com/gogpu/shadow/backend"
	"github.com/gogpu/shadow/device"
)

// init registers the native backend on package import.
// This enables automatic backend selection when using backend.InitDefault().
//
//	import _ "github.com/gogpu/shadow/backend/native"
func init() {
	backend.Register(backend.BackendNative, func() backend.Backend {
		return &Backend{}
	})
}

// Backend opens a standalone Device on Init.
//
// Backend is safe for concurrent use from multiple goroutines; the Device it
// returns is not.
type Backend struct {
	mu   sync.Mutex
	opts []Option
	dev  *Device
}

// NewBackend creates a native backend whose device is opened with opts.
func NewBackend(opts ...Option) *Backend {
	return &Backend{opts: opts}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendNative
}

// Init opens the GPU device. Calling Init again keeps the existing device.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev != nil {
		return nil
	}
	dev, err := Open(b.opts...)
	if err != nil {
		return err
	}
	b.dev = dev
	return nil
}

// Close closes the device.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev != nil {
		b.dev.Close()
		b.dev = nil
	}
}

// Device returns the device, or nil before Init.
func (b *Backend) Device() device.Device {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return nil
	}
	return b.dev
}

// Native returns the concrete device, or nil before Init.
func (b *Backend) Native() *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev
}
