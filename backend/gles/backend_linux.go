package gles

import (
	"sync"

	"github.com/gogpu/shadow/backend"
	"github.com/gogpu/shadow/device"
)

// init registers the GL backend on package import.
//
//	import _ "github.com/gogpu/shadow/backend/gles"
func init() {
	backend.Register(backend.BackendGLES, func() backend.Backend {
		return &Backend{}
	})
}

// Backend opens a headless GL context on Init. Init locks the calling
// goroutine to its OS thread; use the device from that goroutine only.
type Backend struct {
	mu   sync.Mutex
	opts []Option
	dev  *Device
}

// NewBackend creates a GL backend whose device is opened with opts.
func NewBackend(opts ...Option) *Backend {
	return &Backend{opts: opts}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendGLES
}

// Init opens the GL context. Calling Init again keeps the existing device.
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

// Close destroys the context.
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

// GL returns the concrete device, or nil before Init.
func (b *Backend) GL() *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev
}
