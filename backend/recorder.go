package backend

import (
	"github.com/gogpu/shadow/backend/recorder"
	"github.com/gogpu/shadow/device"
)

// RecorderBackend serves an in-memory recording device.
// It is always available and is used when no GPU backend initializes.
type RecorderBackend struct {
	opts []recorder.Option
	dev  *recorder.Device
}

// init registers the recorder backend on package import.
func init() {
	Register(BackendRecorder, func() Backend {
		return &RecorderBackend{}
	})
}

// NewRecorderBackend creates a recorder backend whose device is built with opts.
func NewRecorderBackend(opts ...recorder.Option) *RecorderBackend {
	return &RecorderBackend{opts: opts}
}

// Name returns the backend identifier.
func (b *RecorderBackend) Name() string {
	return BackendRecorder
}

// Init creates the device. Calling Init again keeps the existing device.
func (b *RecorderBackend) Init() error {
	if b.dev == nil {
		b.dev = recorder.New(b.opts...)
	}
	return nil
}

// Close drops the device.
func (b *RecorderBackend) Close() {
	b.dev = nil
}

// Device returns the device, or nil before Init.
func (b *RecorderBackend) Device() device.Device {
	if b.dev == nil {
		return nil
	}
	return b.dev
}

// Recorder returns the concrete device for call inspection, or nil before Init.
func (b *RecorderBackend) Recorder() *recorder.Device {
	return b.dev
}
