package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/shadow/backend/recorder"
	"github.com/gogpu/shadow/device"
)

func TestRecorderBackendName(t *testing.T) {
	b := NewRecorderBackend()
	if b.Name() != "recorder" {
		t.Errorf("Name() = %q, want %q", b.Name(), "recorder")
	}
}

func TestRecorderBackendInit(t *testing.T) {
	b := NewRecorderBackend()
	if b.Device() != nil {
		t.Error("Device() should be nil before Init")
	}
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	dev := b.Device()
	if dev == nil {
		t.Fatal("Device() returned nil after Init")
	}

	// Init again keeps the device
	if err := b.Init(); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if b.Device() != dev {
		t.Error("second Init() replaced the device")
	}

	b.Close()
	if b.Device() != nil {
		t.Error("Device() should be nil after Close")
	}
}

func TestRecorderBackendOptions(t *testing.T) {
	b := NewRecorderBackend(recorder.WithMaxBufferSize(4))
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	dev := b.Device()
	buf, err := dev.CreateBuffer()
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	dev.BindBuffer(buf)
	if err := dev.BufferData(make([]byte, 8), device.StaticDraw); !errors.Is(err, device.ErrOutOfMemory) {
		t.Errorf("BufferData(8 bytes) error = %v, want ErrOutOfMemory", err)
	}
	if got := b.Recorder().Count(recorder.OpBufferData); got != 1 {
		t.Errorf("recorded %d BufferData calls, want 1", got)
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	// Recorder backend is auto-registered via init()
	if !IsRegistered("recorder") {
		t.Error("recorder backend should be auto-registered")
	}

	b := Get("recorder")
	if b == nil {
		t.Fatal("Get(recorder) returned nil")
	}
	if b.Name() != "recorder" {
		t.Errorf("Get(recorder).Name() = %q, want %q", b.Name(), "recorder")
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	if b := Get("nonexistent"); b != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestRegistryAvailable(t *testing.T) {
	available := Available()
	if !slices.Contains(available, "recorder") {
		t.Errorf("Available() = %v, should include 'recorder'", available)
	}
	if !slices.IsSorted(available) {
		t.Errorf("Available() = %v, want sorted", available)
	}
}

func TestRegistryDefault(t *testing.T) {
	b := Default()
	if b == nil {
		t.Fatal("Default() returned nil")
	}
	// Recorder is the default when no GPU backend package is imported
	if b.Name() != "recorder" {
		t.Logf("Default() returned %q (may vary based on registered backends)", b.Name())
	}
}

func TestRegistryMustDefault(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	if b := MustDefault(); b == nil {
		t.Error("MustDefault() returned nil")
	}
}

// failingBackend never initializes.
type failingBackend struct{ name string }

var errNoHardware = errors.New("no hardware")

func (b *failingBackend) Name() string          { return b.name }
func (b *failingBackend) Init() error           { return errNoHardware }
func (b *failingBackend) Close()                {}
func (b *failingBackend) Device() device.Device { return nil }

func TestRegistryInitDefaultSkipsFailing(t *testing.T) {
	Register(BackendGLES, func() Backend { return &failingBackend{name: BackendGLES} })
	defer Unregister(BackendGLES)

	b, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	defer b.Close()

	if b.Name() == BackendGLES {
		t.Error("InitDefault() returned the backend that failed to initialize")
	}
	if b.Device() == nil {
		t.Error("backend from InitDefault() should have a device")
	}
}

func TestRegistryInitDefaultAllFail(t *testing.T) {
	Register(BackendRecorder, func() Backend { return &failingBackend{name: BackendRecorder} })
	defer Register(BackendRecorder, func() Backend { return &RecorderBackend{} })

	for _, name := range Available() {
		if name != BackendRecorder {
			t.Skipf("backend %q registered, cannot force every backend to fail", name)
		}
	}

	_, err := InitDefault()
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("InitDefault() error = %v, want ErrBackendNotAvailable", err)
	}
	if !errors.Is(err, errNoHardware) {
		t.Errorf("InitDefault() error = %v, should wrap the Init error", err)
	}
}

func TestRegistryPriority(t *testing.T) {
	Register("zzz-test", func() Backend { return &failingBackend{name: "zzz-test"} })
	defer Unregister("zzz-test")
	Register(BackendNative, func() Backend { return &failingBackend{name: BackendNative} })
	defer Unregister(BackendNative)

	got := candidates()
	native := slices.Index(got, BackendNative)
	rec := slices.Index(got, BackendRecorder)
	extra := slices.Index(got, "zzz-test")
	if native < 0 || rec < 0 || extra < 0 {
		t.Fatalf("candidates() = %v, missing registered backends", got)
	}
	if native > rec || rec > extra {
		t.Errorf("candidates() = %v, want native before recorder before unlisted names", got)
	}
}

func TestRegistryUnregister(t *testing.T) {
	Register("test-backend", func() Backend { return &RecorderBackend{} })

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}
