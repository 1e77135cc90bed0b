package shadow

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gogpu/shadow/device"
)

// VertexSource is anything a draw call can take its vertices or instances from.
type VertexSource interface {
	// Handle returns the buffer backing the source, or nil if the source
	// carries no vertex data.
	Handle() *BufferHandle

	// Len returns the number of elements.
	Len() int
}

// SyncResult is what BufferHandle.sync did to the device allocation.
type SyncResult uint8

const (
	SyncNone SyncResult = iota
	SyncAllocated
	SyncUpdated
	SyncReallocated
)

// String returns the result name.
func (r SyncResult) String() string {
	switch r {
	case SyncNone:
		return "none"
	case SyncAllocated:
		return "allocated"
	case SyncUpdated:
		return "updated"
	case SyncReallocated:
		return "reallocated"
	default:
		return fmt.Sprintf("SyncResult(%d)", uint8(r))
	}
}

var nextBufferID atomic.Uint64

// BufferHandle is the untyped, shared state of a vertex buffer: a CPU-side
// payload and a lazily created device allocation.
//
// Two handles are the same buffer only if they are the same pointer; equal
// contents do not make buffers interchangeable. A handle may be shared by
// any number of producers and draw calls. Mutations are serialized by an
// internal mutex.
type BufferHandle struct {
	id     uint64
	layout *recordLayout
	usage  device.Usage
	growth float64
	label  string

	mu    sync.Mutex
	data  []byte
	count int
	dirty bool
	alloc *allocation
	gen   uint64

	// observers are the renderers that drew from the current allocation.
	observers map[*releaseQueue]struct{}
}

type allocation struct {
	dev      device.Device
	buf      device.Buffer
	capacity int
}

func newBufferHandle(l *recordLayout, opts []BufferOption) *BufferHandle {
	o := bufferOptions{usage: device.StaticDraw}
	for _, opt := range opts {
		opt(&o)
	}
	return &BufferHandle{
		id:     nextBufferID.Add(1),
		layout: l,
		usage:  o.usage,
		growth: o.growth,
		label:  o.label,
		dirty:  true,
	}
}

// NewBufferHandle creates an untyped buffer for records described by attrs.
// Fill it with SetBytes.
func NewBufferHandle(attrs []AttributeDescriptor, opts ...BufferOption) (*BufferHandle, error) {
	l, err := newRecordLayout(append([]AttributeDescriptor(nil), attrs...))
	if err != nil {
		return nil, err
	}
	return newBufferHandle(l, opts), nil
}

// Handle returns h.
func (h *BufferHandle) Handle() *BufferHandle { return h }

func (h *BufferHandle) isNil() bool { return h == nil }

// ID returns the identity of the buffer, unique within the process.
func (h *BufferHandle) ID() uint64 { return h.id }

// Label returns the label set with WithLabel.
func (h *BufferHandle) Label() string { return h.label }

// Usage returns the usage hint.
func (h *BufferHandle) Usage() device.Usage { return h.usage }

// Attributes returns the record layout of the buffer.
func (h *BufferHandle) Attributes() []AttributeDescriptor {
	return append([]AttributeDescriptor(nil), h.layout.attrs...)
}

// Stride returns the packed size of one record.
func (h *BufferHandle) Stride() int { return h.layout.stride }

// Len returns the number of records in the payload.
func (h *BufferHandle) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Dirty reports whether the payload changed since the last upload.
func (h *BufferHandle) Dirty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dirty
}

// Capacity returns the size of the device allocation in bytes, 0 if none.
func (h *BufferHandle) Capacity() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.alloc == nil {
		return 0
	}
	return h.alloc.capacity
}

// Generation counts how many times the device allocation was replaced.
// Vertex layouts built against an older generation must be reissued.
func (h *BufferHandle) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen
}

// SetBytes replaces the payload with pre-packed records.
// len(data) must be a multiple of the stride.
func (h *BufferHandle) SetBytes(data []byte) error {
	stride := h.layout.stride
	if stride == 0 || len(data)%stride != 0 {
		return fmt.Errorf("shadow: %d bytes is not a whole number of %d-byte records", len(data), stride)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = append(h.data[:0], data...)
	h.count = len(data) / stride
	h.dirty = true
	return nil
}

// Release frees the device allocation. Every renderer that drew from the
// buffer drops the vertex layouts referencing it before its next draw or
// LayoutCount. The payload is kept and uploaded again by the next draw that
// uses the buffer.
func (h *BufferHandle) Release() {
	h.mu.Lock()
	observers := h.observers
	h.observers = nil
	if h.alloc != nil {
		h.alloc.dev.DeleteBuffer(h.alloc.buf)
		h.alloc = nil
		h.gen++
		h.dirty = true
	}
	h.mu.Unlock()

	for q := range observers {
		q.push(h)
	}
}

func (h *BufferHandle) addObserver(q *releaseQueue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.observers[q]; ok {
		return
	}
	if h.observers == nil {
		h.observers = make(map[*releaseQueue]struct{})
	}
	h.observers[q] = struct{}{}
}

// deviceBuffer returns the current allocation, 0 if none.
func (h *BufferHandle) deviceBuffer() device.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.alloc == nil {
		return 0
	}
	return h.alloc.buf
}

// sync brings the device allocation up to date with the payload:
// allocate when there is none, write in place when the payload fits,
// reallocate when it does not.
func (h *BufferHandle) sync(dev device.Device) (SyncResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.alloc != nil && h.alloc.dev != dev {
		return SyncNone, ErrForeignDevice
	}
	if h.alloc != nil && !h.dirty {
		return SyncNone, nil
	}

	size := len(h.data)
	if h.alloc != nil && size <= h.alloc.capacity {
		dev.BindBuffer(h.alloc.buf)
		if err := dev.BufferSubData(0, h.data); err != nil {
			return SyncNone, fmt.Errorf("%w: update buffer %d: %w", ErrBufferAllocation, h.id, err)
		}
		h.dirty = false
		return SyncUpdated, nil
	}

	result := SyncAllocated
	capacity := size
	if h.alloc != nil {
		result = SyncReallocated
		if h.growth > 1 {
			capacity = max(size, int(math.Ceil(float64(h.alloc.capacity)*h.growth)))
		}
		dev.DeleteBuffer(h.alloc.buf)
		h.alloc = nil
		h.gen++
	}

	buf, err := dev.CreateBuffer()
	if err != nil {
		return SyncNone, fmt.Errorf("%w: create buffer %d: %w", ErrBufferAllocation, h.id, err)
	}
	payload := h.data
	if capacity > size {
		payload = make([]byte, capacity)
		copy(payload, h.data)
	}
	dev.BindBuffer(buf)
	if err := dev.BufferData(payload, h.usage); err != nil {
		dev.DeleteBuffer(buf)
		return SyncNone, fmt.Errorf("%w: upload buffer %d: %w", ErrBufferAllocation, h.id, err)
	}
	h.alloc = &allocation{dev: dev, buf: buf, capacity: capacity}
	h.dirty = false
	return result, nil
}

// Buffer is a typed vertex buffer of records T. See Describe for the
// record rules. A *Buffer is the handle that is shared; it is never copied.
type Buffer[T any] struct {
	h *BufferHandle
}

// NewBuffer creates a buffer holding data. data may be nil.
//
// Example:
//
//	type Vertex struct {
//		Position [2]float32
//	}
//	buf, err := shadow.NewBuffer([]Vertex{{[2]float32{-0.5, -0.5}}, ...},
//	    shadow.WithUsage(device.DynamicDraw))
func NewBuffer[T any](data []T, opts ...BufferOption) (*Buffer[T], error) {
	l, err := layoutFor[T]()
	if err != nil {
		return nil, err
	}
	b := &Buffer[T]{h: newBufferHandle(l, opts)}
	b.SetData(data)
	return b, nil
}

// SetData replaces the payload and marks the buffer dirty. The device is not
// touched until the next draw that uses the buffer.
func (b *Buffer[T]) SetData(data []T) {
	h := b.h
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = packRecords(h.layout, data, h.data)
	h.count = len(data)
	h.dirty = true
}

// Handle returns the shared untyped handle, nil for a nil buffer.
func (b *Buffer[T]) Handle() *BufferHandle {
	if b == nil {
		return nil
	}
	return b.h
}

// Len returns the number of records.
func (b *Buffer[T]) Len() int {
	if b == nil {
		return 0
	}
	return b.h.Len()
}

func (b *Buffer[T]) isNil() bool { return b == nil }

// Release frees the device allocation. See BufferHandle.Release.
func (b *Buffer[T]) Release() { b.h.Release() }

// DummyBuffer draws Count vertices without vertex data. The vertex shader
// is expected to derive everything from the vertex or instance index.
type DummyBuffer struct {
	Count int
}

// Handle returns nil: a dummy buffer has no device allocation.
func (DummyBuffer) Handle() *BufferHandle { return nil }

// Len returns Count.
func (d DummyBuffer) Len() int { return d.Count }
