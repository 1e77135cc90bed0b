//go:build !nogpu

package native

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadow/device"
)

type bufferObject struct {
	raw hal.Buffer
	// data mirrors the buffer contents, padded to a multiple of four bytes
	// so partial writes can be widened to the copy alignment.
	data    []byte
	size    int
	usage   device.Usage
	deleted bool
}

type attribState struct {
	enabled bool
	set     bool
	buf     device.Buffer
	obj     *bufferObject
	format  gputypes.VertexFormat
	size    int
	integer bool
	stride  int
	offset  int
	divisor uint32
}

type vertexArrayObject struct {
	attribs map[uint32]*attribState
}

func (v *vertexArrayObject) attrib(loc uint32) *attribState {
	a, ok := v.attribs[loc]
	if !ok {
		a = &attribState{}
		v.attribs[loc] = a
	}
	return a
}

// Device is a device.Device backed by a gogpu/wgpu HAL device. It draws into
// an offscreen color and depth target that ReadPixels copies back.
//
// Vertex arrays and fixed-function state are emulated on the CPU and folded
// into cached render pipelines at draw time. Each draw is its own render pass
// and submission.
//
// Device is not safe for concurrent use.
type Device struct {
	dev   hal.Device
	queue hal.Queue
	opts  options

	// owned resources are destroyed by Close.
	owned    bool
	instance hal.Instance

	target    *renderTarget
	clear     *gputypes.Color
	pipelines *PipelineCache

	// pending command buffers are freed once the GPU is idle.
	pending []hal.CommandBuffer
	draws   uint64
	closed  bool

	err device.ErrorCode

	nextBuffer, nextVAO, nextShader, nextProgram uint32

	buffers  map[device.Buffer]*bufferObject
	vaos     map[device.VertexArray]*vertexArrayObject
	shaders  map[device.Shader]*shaderObject
	programs map[device.Program]*programObject

	arrayBuffer device.Buffer
	vertexArray device.VertexArray
	program     device.Program

	caps     map[device.Cap]bool
	blend    [4]device.BlendFactor
	equation device.BlendEquation
	cull     device.Face
	depth    device.DepthFunc
}

var _ device.Device = (*Device)(nil)

// New returns a Device drawing with dev and queue. The caller keeps
// ownership of both; Close releases only what the Device created.
func New(dev hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	target, err := newRenderTarget(dev, &o)
	if err != nil {
		return nil, err
	}
	d := &Device{
		dev:       dev,
		queue:     queue,
		opts:      o,
		target:    target,
		clear:     &gputypes.Color{},
		pipelines: NewPipelineCache(),
		buffers:   make(map[device.Buffer]*bufferObject),
		vaos:      make(map[device.VertexArray]*vertexArrayObject),
		shaders:   make(map[device.Shader]*shaderObject),
		programs:  make(map[device.Program]*programObject),
		caps:      make(map[device.Cap]bool),
		blend:     [4]device.BlendFactor{device.One, device.Zero, device.One, device.Zero},
		equation:  device.FuncAdd,
		cull:      device.Back,
		depth:     device.Less,
	}
	slogger().Info("native: device created", "width", o.width, "height", o.height, "format", o.colorFormat)
	return d, nil
}

// SetLogger implements the logger hook shadow propagates to devices.
func (d *Device) SetLogger(l *slog.Logger) { SetLogger(l) }

// Size returns the target size in pixels.
func (d *Device) Size() (width, height int) {
	return int(d.target.width), int(d.target.height)
}

// Draws returns the number of draws submitted to the GPU.
func (d *Device) Draws() uint64 { return d.draws }

// PipelineStats returns pipeline cache hits, misses and the cached count.
func (d *Device) PipelineStats() (hits, misses uint64, size int) {
	hits, misses = d.pipelines.Stats()
	return hits, misses, d.pipelines.Size()
}

// Clear makes the next pass clear the target to c and the depth to 1.
func (d *Device) Clear(c gputypes.Color) {
	d.clear = &c
}

// ReadPixels flushes a pending clear and returns the color target as RGBA.
func (d *Device) ReadPixels() (*image.RGBA, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if d.clear != nil {
		if err := d.submitPass(nil); err != nil {
			return nil, err
		}
	}
	if err := d.idle(); err != nil {
		return nil, err
	}
	return d.target.readback(d.dev, d.queue, d.opts.label)
}

// Close destroys every object created through the device, the target and the
// cached pipelines. A device opened with Open is destroyed as well.
func (d *Device) Close() {
	if d.closed {
		return
	}
	if err := d.idle(); err != nil {
		slogger().Warn("native: wait before close failed", "error", err)
	}
	for p := range d.programs {
		d.DeleteProgram(p)
	}
	for s := range d.shaders {
		d.DeleteShader(s)
	}
	for b := range d.buffers {
		d.DeleteBuffer(b)
	}
	clear(d.vaos)
	d.pipelines.DestroyAll(d.dev)
	d.target.destroy(d.dev)
	d.closed = true

	if d.owned {
		d.dev.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	slogger().Info("native: device closed", "draws", d.draws)
}

// setError records code unless an earlier error is still pending.
func (d *Device) setError(code device.ErrorCode, op, reason string) {
	slogger().Warn("native: device error", "code", code, "op", op, "reason", reason)
	if d.err == device.NoError {
		d.err = code
	}
}

// Error returns and clears the pending error code.
func (d *Device) Error() device.ErrorCode {
	code := d.err
	d.err = device.NoError
	return code
}

// idle waits for submitted work and frees its command buffers. Buffers are
// only rewritten or destroyed while the GPU is idle.
func (d *Device) idle() error {
	if len(d.pending) == 0 {
		return nil
	}
	err := d.dev.WaitIdle()
	for _, cmd := range d.pending {
		d.dev.FreeCommandBuffer(cmd)
	}
	d.pending = d.pending[:0]
	return err
}

func align4(n int) int { return (n + 3) &^ 3 }

// Buffers

func (d *Device) CreateBuffer() (device.Buffer, error) {
	d.nextBuffer++
	b := device.Buffer(d.nextBuffer)
	d.buffers[b] = &bufferObject{}
	return b, nil
}

func (d *Device) DeleteBuffer(b device.Buffer) {
	obj := d.buffers[b]
	if obj == nil {
		return
	}
	if err := d.idle(); err != nil {
		slogger().Warn("native: wait before buffer delete failed", "error", err)
	}
	if obj.raw != nil {
		d.dev.DestroyBuffer(obj.raw)
		obj.raw = nil
	}
	obj.deleted = true
	delete(d.buffers, b)
	if d.arrayBuffer == b {
		d.arrayBuffer = 0
	}
}

func (d *Device) BindBuffer(b device.Buffer) {
	if b != 0 && d.buffers[b] == nil {
		d.setError(device.InvalidOperation, "BindBuffer", "unknown buffer")
		return
	}
	d.arrayBuffer = b
}

func (d *Device) BufferData(data []byte, usage device.Usage) error {
	obj := d.buffers[d.arrayBuffer]
	if obj == nil {
		d.setError(device.InvalidOperation, "BufferData", "no buffer bound")
		return device.ErrNoBufferBound
	}
	if err := d.idle(); err != nil {
		return fmt.Errorf("native: wait before upload: %w", err)
	}
	if obj.raw != nil {
		d.dev.DestroyBuffer(obj.raw)
		obj.raw = nil
	}
	obj.data, obj.size, obj.usage = nil, 0, usage
	if len(data) == 0 {
		return nil
	}

	padded := make([]byte, align4(len(data)))
	copy(padded, data)
	raw, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: d.opts.label + "_vertices",
		Size:  uint64(len(padded)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.setError(device.OutOfMemory, "BufferData", err.Error())
		return fmt.Errorf("native: %d-byte buffer: %w: %w", len(data), device.ErrOutOfMemory, err)
	}
	if err := d.queue.WriteBuffer(raw, 0, padded); err != nil {
		d.dev.DestroyBuffer(raw)
		d.setError(device.OutOfMemory, "BufferData", err.Error())
		return fmt.Errorf("native: upload %d bytes: %w", len(data), err)
	}
	obj.raw, obj.data, obj.size = raw, padded, len(data)
	return nil
}

func (d *Device) BufferSubData(offset int, data []byte) error {
	obj := d.buffers[d.arrayBuffer]
	if obj == nil {
		d.setError(device.InvalidOperation, "BufferSubData", "no buffer bound")
		return device.ErrNoBufferBound
	}
	if offset < 0 || offset+len(data) > obj.size {
		d.setError(device.InvalidValue, "BufferSubData", "range exceeds buffer")
		return fmt.Errorf("%w: [%d,%d) of %d bytes", ErrOutOfRange, offset, offset+len(data), obj.size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.idle(); err != nil {
		return fmt.Errorf("native: wait before upload: %w", err)
	}
	copy(obj.data[offset:], data)
	start, end := offset&^3, align4(offset+len(data))
	if err := d.queue.WriteBuffer(obj.raw, uint64(start), obj.data[start:end]); err != nil {
		return fmt.Errorf("native: upload [%d,%d): %w", start, end, err)
	}
	return nil
}

// Vertex arrays

func (d *Device) CreateVertexArray() (device.VertexArray, error) {
	d.nextVAO++
	v := device.VertexArray(d.nextVAO)
	d.vaos[v] = &vertexArrayObject{attribs: make(map[uint32]*attribState)}
	return v, nil
}

func (d *Device) DeleteVertexArray(v device.VertexArray) {
	delete(d.vaos, v)
	if d.vertexArray == v {
		d.vertexArray = 0
	}
}

func (d *Device) BindVertexArray(v device.VertexArray) {
	if v != 0 && d.vaos[v] == nil {
		d.setError(device.InvalidOperation, "BindVertexArray", "unknown vertex array")
		return
	}
	d.vertexArray = v
}

func (d *Device) boundVAO(op string) *vertexArrayObject {
	v := d.vaos[d.vertexArray]
	if v == nil {
		d.setError(device.InvalidOperation, op, "no vertex array bound")
	}
	return v
}

func (d *Device) EnableVertexAttribArray(loc uint32) {
	if v := d.boundVAO("EnableVertexAttribArray"); v != nil {
		v.attrib(loc).enabled = true
	}
}

func (d *Device) VertexAttribPointer(loc uint32, components int, typ device.ScalarType, normalized bool, stride, offset int) {
	d.attribPointer("VertexAttribPointer", loc, components, typ, normalized, false, stride, offset)
}

func (d *Device) VertexAttribIPointer(loc uint32, components int, typ device.ScalarType, stride, offset int) {
	if !typ.IsInteger() {
		d.setError(device.InvalidEnum, "VertexAttribIPointer", "float type")
		return
	}
	d.attribPointer("VertexAttribIPointer", loc, components, typ, false, true, stride, offset)
}

func (d *Device) attribPointer(op string, loc uint32, components int, typ device.ScalarType, normalized, integer bool, stride, offset int) {
	v := d.boundVAO(op)
	if v == nil {
		return
	}
	if !typ.Valid() {
		d.setError(device.InvalidEnum, op, "scalar type")
		return
	}
	if components < 1 || components > 4 || stride < 0 || offset < 0 {
		d.setError(device.InvalidValue, op, "size, stride or offset")
		return
	}
	if d.arrayBuffer == 0 {
		d.setError(device.InvalidOperation, op, "no buffer bound")
		return
	}
	format, ok := vertexFormat(typ, components, normalized, integer)
	if !ok {
		d.setError(device.InvalidEnum, op, fmt.Sprintf("no vertex format for %s x%d", typ, components))
		return
	}
	a := v.attrib(loc)
	a.set = true
	a.buf = d.arrayBuffer
	a.obj = d.buffers[d.arrayBuffer]
	a.format = format
	a.size = components * typ.Size()
	a.integer = integer
	a.stride = stride
	if stride == 0 {
		a.stride = a.size
	}
	a.offset = offset
}

func (d *Device) VertexAttribDivisor(loc, divisor uint32) {
	v := d.boundVAO("VertexAttribDivisor")
	if v == nil {
		return
	}
	// WebGPU steps per vertex or per instance, nothing in between.
	if divisor > 1 {
		d.setError(device.InvalidValue, "VertexAttribDivisor", fmt.Sprintf("divisor %d", divisor))
		return
	}
	v.attrib(loc).divisor = divisor
}

// Fixed function

func (d *Device) Enable(c device.Cap)  { d.caps[c] = true }
func (d *Device) Disable(c device.Cap) { d.caps[c] = false }

func (d *Device) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha device.BlendFactor) {
	for _, f := range [...]device.BlendFactor{srcRGB, dstRGB, srcAlpha, dstAlpha} {
		if _, ok := blendFactor(f); !ok {
			d.setError(device.InvalidEnum, "BlendFuncSeparate", f.String())
			return
		}
	}
	d.blend = [4]device.BlendFactor{srcRGB, dstRGB, srcAlpha, dstAlpha}
}

func (d *Device) BlendEquation(eq device.BlendEquation) {
	if _, ok := blendOperation(eq); !ok {
		d.setError(device.InvalidEnum, "BlendEquation", eq.String())
		return
	}
	d.equation = eq
}

func (d *Device) CullFace(f device.Face) {
	if f != device.FrontAndBack {
		if _, ok := cullMode(f); !ok {
			d.setError(device.InvalidEnum, "CullFace", f.String())
			return
		}
	}
	d.cull = f
}

func (d *Device) DepthFunc(f device.DepthFunc) {
	if _, ok := compareFunction(f); !ok {
		d.setError(device.InvalidEnum, "DepthFunc", f.String())
		return
	}
	d.depth = f
}
