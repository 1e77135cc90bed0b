// Package recorder is an in-memory device that records every call made to it.
//
// It behaves like a GL 3.3 core context closely enough for the state shadow
// to be tested against it. Object names are reused after deletion and errors
// are sticky until queried. A draw needs a bound vertex array, and reading
// past the end of a buffer is an INVALID_OPERATION. So is reading a buffer
// deleted while still attached to the vertex array, which GL would allow.
// Shaders are WGSL, compiled and reflected with naga.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/shadow/device"
	"github.com/gogpu/shadow/internal/wgsl"
)

// ErrOutOfRange is returned by BufferSubData when the write does not fit the
// bound buffer.
var ErrOutOfRange = errors.New("recorder: write outside buffer")

// Option configures a Device.
type Option func(*Device)

// WithMaxBufferSize makes allocations larger than n bytes fail with
// device.ErrOutOfMemory.
func WithMaxBufferSize(n int) Option {
	return func(d *Device) {
		d.maxBuffer = n
	}
}

// WithFreshNames disables name reuse: every created object gets a new name.
func WithFreshNames() Option {
	return func(d *Device) {
		d.fresh = true
	}
}

type bufferObject struct {
	data    []byte
	usage   device.Usage
	deleted bool
}

type attribState struct {
	enabled    bool
	set        bool
	buf        device.Buffer
	obj        *bufferObject
	components int
	typ        device.ScalarType
	normalized bool
	integer    bool
	stride     int
	offset     int
	divisor    uint32
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

type shaderObject struct {
	stage device.Stage
	mod   *wgsl.Module
}

type programObject struct {
	prog     *wgsl.Program
	uniforms map[device.UniformLocation]device.UniformValue
}

// Device is the recording device. It is not safe for concurrent use.
type Device struct {
	maxBuffer int
	fresh     bool

	log   Log
	draws []DrawCall
	err   device.ErrorCode
	fail  map[Op]error

	bufferNames, vaoNames, shaderNames, programNames *names

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

// New returns an empty device.
func New(opts ...Option) *Device {
	d := &Device{}
	for _, opt := range opts {
		opt(d)
	}
	d.bufferNames = newNames(d.fresh)
	d.vaoNames = newNames(d.fresh)
	d.shaderNames = newNames(d.fresh)
	d.programNames = newNames(d.fresh)
	d.buffers = make(map[device.Buffer]*bufferObject)
	d.vaos = make(map[device.VertexArray]*vertexArrayObject)
	d.shaders = make(map[device.Shader]*shaderObject)
	d.programs = make(map[device.Program]*programObject)
	d.fail = make(map[Op]error)
	d.caps = make(map[device.Cap]bool)
	d.blend = [4]device.BlendFactor{device.One, device.Zero, device.One, device.Zero}
	d.equation = device.FuncAdd
	d.cull = device.Back
	d.depth = device.Less
	return d
}

// SetLogger implements the logger hook shadow propagates to devices.
func (d *Device) SetLogger(l *slog.Logger) { SetLogger(l) }

// Calls returns a copy of the call log.
func (d *Device) Calls() Log { return append(Log(nil), d.log...) }

// Count returns how many calls of op were recorded.
func (d *Device) Count(op Op) int { return d.log.Count(op) }

// Mutations returns how many recorded calls changed device state.
func (d *Device) Mutations() int { return d.log.Mutations() }

// Draws returns the recorded draws.
func (d *Device) Draws() []DrawCall { return append([]DrawCall(nil), d.draws...) }

// Reset clears the call and draw logs. Device objects and state are kept.
func (d *Device) Reset() {
	d.log = d.log[:0]
	d.draws = d.draws[:0]
}

// FailNext makes the next call of op return err. It applies to the methods
// that return an error.
func (d *Device) FailNext(op Op, err error) { d.fail[op] = err }

// LiveObjects reports how many objects of each kind exist.
func (d *Device) LiveObjects() (buffers, vertexArrays, shaders, programs int) {
	return d.bufferNames.live(), d.vaoNames.live(), d.shaderNames.live(), d.programNames.live()
}

// BufferContents returns a copy of the contents of b.
func (d *Device) BufferContents(b device.Buffer) ([]byte, bool) {
	obj, ok := d.buffers[b]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// UniformValue returns the value last uploaded to loc of p.
func (d *Device) UniformValue(p device.Program, loc device.UniformLocation) (device.UniformValue, bool) {
	obj, ok := d.programs[p]
	if !ok {
		return device.UniformValue{}, false
	}
	v, ok := obj.uniforms[loc]
	return v, ok
}

// Enabled reports whether capability c is enabled.
func (d *Device) Enabled(c device.Cap) bool { return d.caps[c] }

func (d *Device) record(op Op, obj uint32, format string, args ...any) {
	c := Call{Op: op, Object: obj}
	if format != "" {
		c.Args = fmt.Sprintf(format, args...)
	}
	d.log = append(d.log, c)
}

// setError records code unless an earlier error is still pending.
func (d *Device) setError(code device.ErrorCode, op Op, reason string) {
	slogger().Warn("recorder: device error", "code", code, "op", op, "reason", reason)
	if d.err == device.NoError {
		d.err = code
	}
}

func (d *Device) injected(op Op) error {
	err, ok := d.fail[op]
	if !ok {
		return nil
	}
	delete(d.fail, op)
	return err
}

// Error returns and clears the pending error code.
func (d *Device) Error() device.ErrorCode {
	d.record(OpError, 0, "")
	code := d.err
	d.err = device.NoError
	return code
}

// Buffers

func (d *Device) CreateBuffer() (device.Buffer, error) {
	if err := d.injected(OpCreateBuffer); err != nil {
		d.record(OpCreateBuffer, 0, "failed")
		return 0, err
	}
	b := device.Buffer(d.bufferNames.alloc())
	d.buffers[b] = &bufferObject{}
	d.record(OpCreateBuffer, uint32(b), "")
	return b, nil
}

func (d *Device) DeleteBuffer(b device.Buffer) {
	d.record(OpDeleteBuffer, uint32(b), "")
	if b == 0 {
		return
	}
	if !d.bufferNames.release(uint32(b)) {
		return
	}
	d.buffers[b].deleted = true
	delete(d.buffers, b)
	if d.arrayBuffer == b {
		d.arrayBuffer = 0
	}
}

func (d *Device) BindBuffer(b device.Buffer) {
	d.record(OpBindBuffer, uint32(b), "")
	if b != 0 && d.buffers[b] == nil {
		d.setError(device.InvalidOperation, OpBindBuffer, "unknown buffer")
		return
	}
	d.arrayBuffer = b
}

func (d *Device) BufferData(data []byte, usage device.Usage) error {
	d.record(OpBufferData, uint32(d.arrayBuffer), "size=%d usage=%s", len(data), usage)
	if err := d.injected(OpBufferData); err != nil {
		return err
	}
	obj := d.buffers[d.arrayBuffer]
	if obj == nil {
		d.setError(device.InvalidOperation, OpBufferData, "no buffer bound")
		return device.ErrNoBufferBound
	}
	if d.maxBuffer > 0 && len(data) > d.maxBuffer {
		d.setError(device.OutOfMemory, OpBufferData, "buffer too large")
		return fmt.Errorf("recorder: %d bytes: %w", len(data), device.ErrOutOfMemory)
	}
	obj.data = append(obj.data[:0:0], data...)
	obj.usage = usage
	return nil
}

func (d *Device) BufferSubData(offset int, data []byte) error {
	d.record(OpBufferSubData, uint32(d.arrayBuffer), "offset=%d size=%d", offset, len(data))
	if err := d.injected(OpBufferSubData); err != nil {
		return err
	}
	obj := d.buffers[d.arrayBuffer]
	if obj == nil {
		d.setError(device.InvalidOperation, OpBufferSubData, "no buffer bound")
		return device.ErrNoBufferBound
	}
	if offset < 0 || offset+len(data) > len(obj.data) {
		d.setError(device.InvalidValue, OpBufferSubData, "range exceeds buffer")
		return fmt.Errorf("%w: [%d,%d) of %d bytes", ErrOutOfRange, offset, offset+len(data), len(obj.data))
	}
	copy(obj.data[offset:], data)
	return nil
}

// Vertex arrays

func (d *Device) CreateVertexArray() (device.VertexArray, error) {
	if err := d.injected(OpCreateVertexArray); err != nil {
		d.record(OpCreateVertexArray, 0, "failed")
		return 0, err
	}
	v := device.VertexArray(d.vaoNames.alloc())
	d.vaos[v] = &vertexArrayObject{attribs: make(map[uint32]*attribState)}
	d.record(OpCreateVertexArray, uint32(v), "")
	return v, nil
}

func (d *Device) DeleteVertexArray(v device.VertexArray) {
	d.record(OpDeleteVertexArray, uint32(v), "")
	if v == 0 || !d.vaoNames.release(uint32(v)) {
		return
	}
	delete(d.vaos, v)
	if d.vertexArray == v {
		d.vertexArray = 0
	}
}

func (d *Device) BindVertexArray(v device.VertexArray) {
	d.record(OpBindVertexArray, uint32(v), "")
	if v != 0 && d.vaos[v] == nil {
		d.setError(device.InvalidOperation, OpBindVertexArray, "unknown vertex array")
		return
	}
	d.vertexArray = v
}

func (d *Device) boundVAO(op Op) *vertexArrayObject {
	v := d.vaos[d.vertexArray]
	if v == nil {
		d.setError(device.InvalidOperation, op, "no vertex array bound")
	}
	return v
}

func (d *Device) EnableVertexAttribArray(loc uint32) {
	d.record(OpEnableVertexAttribArray, 0, "loc=%d", loc)
	if v := d.boundVAO(OpEnableVertexAttribArray); v != nil {
		v.attrib(loc).enabled = true
	}
}

func (d *Device) VertexAttribPointer(loc uint32, components int, typ device.ScalarType, normalized bool, stride, offset int) {
	d.record(OpVertexAttribPointer, uint32(d.arrayBuffer), "loc=%d %s x%d norm=%t stride=%d offset=%d",
		loc, typ, components, normalized, stride, offset)
	d.attribPointer(OpVertexAttribPointer, loc, components, typ, normalized, false, stride, offset)
}

func (d *Device) VertexAttribIPointer(loc uint32, components int, typ device.ScalarType, stride, offset int) {
	d.record(OpVertexAttribIPointer, uint32(d.arrayBuffer), "loc=%d %s x%d stride=%d offset=%d",
		loc, typ, components, stride, offset)
	if !typ.IsInteger() {
		d.setError(device.InvalidEnum, OpVertexAttribIPointer, "float type")
		return
	}
	d.attribPointer(OpVertexAttribIPointer, loc, components, typ, false, true, stride, offset)
}

func (d *Device) attribPointer(op Op, loc uint32, components int, typ device.ScalarType, normalized, integer bool, stride, offset int) {
	v := d.boundVAO(op)
	if v == nil {
		return
	}
	switch {
	case !typ.Valid():
		d.setError(device.InvalidEnum, op, "scalar type")
		return
	case components < 1 || components > 4 || stride < 0 || offset < 0:
		d.setError(device.InvalidValue, op, "size, stride or offset")
		return
	case d.arrayBuffer == 0:
		d.setError(device.InvalidOperation, op, "no buffer bound")
		return
	}
	a := v.attrib(loc)
	a.set = true
	a.buf = d.arrayBuffer
	a.obj = d.buffers[d.arrayBuffer]
	a.components = components
	a.typ = typ
	a.normalized = normalized
	a.integer = integer
	a.stride = stride
	a.offset = offset
}

func (d *Device) VertexAttribDivisor(loc, divisor uint32) {
	d.record(OpVertexAttribDivisor, 0, "loc=%d divisor=%d", loc, divisor)
	if v := d.boundVAO(OpVertexAttribDivisor); v != nil {
		v.attrib(loc).divisor = divisor
	}
}

// Shaders and programs

func (d *Device) CompileShader(stage device.Stage, source string) (device.Shader, error) {
	if err := d.injected(OpCompileShader); err != nil {
		d.record(OpCompileShader, 0, "%s failed", stage)
		return 0, err
	}
	mod, err := wgsl.Compile(stage, source)
	if err != nil {
		d.record(OpCompileShader, 0, "%s failed", stage)
		return 0, &device.CompileError{Stage: stage, Log: err.Error()}
	}
	s := device.Shader(d.shaderNames.alloc())
	d.shaders[s] = &shaderObject{stage: stage, mod: mod}
	d.record(OpCompileShader, uint32(s), "%s entry=%s", stage, mod.EntryPoint)
	return s, nil
}

func (d *Device) DeleteShader(s device.Shader) {
	d.record(OpDeleteShader, uint32(s), "")
	if s == 0 || !d.shaderNames.release(uint32(s)) {
		return
	}
	delete(d.shaders, s)
}

func (d *Device) LinkProgram(vs, fs device.Shader) (device.Program, error) {
	if err := d.injected(OpLinkProgram); err != nil {
		d.record(OpLinkProgram, 0, "failed")
		return 0, err
	}
	v, f := d.shaders[vs], d.shaders[fs]
	if v == nil || f == nil {
		d.record(OpLinkProgram, 0, "failed")
		d.setError(device.InvalidValue, OpLinkProgram, "unknown shader")
		return 0, fmt.Errorf("recorder: link %d, %d: %w", vs, fs, device.ErrInvalidHandle)
	}
	prog, err := wgsl.Link(v.mod, f.mod)
	if err != nil {
		d.record(OpLinkProgram, 0, "failed")
		return 0, err
	}
	p := device.Program(d.programNames.alloc())
	d.programs[p] = &programObject{prog: prog, uniforms: make(map[device.UniformLocation]device.UniformValue)}
	d.record(OpLinkProgram, uint32(p), "vs=%d fs=%d", vs, fs)
	return p, nil
}

func (d *Device) DeleteProgram(p device.Program) {
	d.record(OpDeleteProgram, uint32(p), "")
	if p == 0 || !d.programNames.release(uint32(p)) {
		return
	}
	delete(d.programs, p)
	if d.program == p {
		d.program = 0
	}
}

func (d *Device) UseProgram(p device.Program) {
	d.record(OpUseProgram, uint32(p), "")
	if p != 0 && d.programs[p] == nil {
		d.setError(device.InvalidOperation, OpUseProgram, "unknown program")
		return
	}
	d.program = p
}

func (d *Device) ActiveAttributes(p device.Program) ([]device.ActiveAttribute, error) {
	d.record(OpActiveAttributes, uint32(p), "")
	obj := d.programs[p]
	if obj == nil {
		return nil, fmt.Errorf("recorder: program %d: %w", p, device.ErrInvalidHandle)
	}
	out := make([]device.ActiveAttribute, 0, len(obj.prog.Attributes))
	for _, a := range obj.prog.Attributes {
		if !a.Supported {
			return nil, fmt.Errorf("recorder: attribute %q: %w", a.Name, device.ErrUnsupported)
		}
		out = append(out, device.ActiveAttribute{
			Name:       a.Name,
			Location:   a.Location,
			Type:       a.Type,
			Components: a.Components,
			Size:       a.ArraySize,
		})
	}
	return out, nil
}

func (d *Device) UniformLocation(p device.Program, name string) (device.UniformLocation, bool) {
	d.record(OpUniformLocation, uint32(p), "%q", name)
	obj := d.programs[p]
	if obj == nil {
		return -1, false
	}
	u, ok := obj.prog.Uniform(name)
	if !ok {
		return -1, false
	}
	return u.Location(), true
}

func (d *Device) Uniform(loc device.UniformLocation, v device.UniformValue) {
	d.record(OpUniform, uint32(d.program), "loc=%d %s", loc, v)
	if loc < 0 {
		return
	}
	obj := d.programs[d.program]
	if obj == nil {
		d.setError(device.InvalidOperation, OpUniform, "no program in use")
		return
	}
	var decl *wgsl.Uniform
	for i := range obj.prog.Uniforms {
		if obj.prog.Uniforms[i].Location() == loc {
			decl = &obj.prog.Uniforms[i]
			break
		}
	}
	if decl == nil || decl.Kind != v.Kind {
		d.setError(device.InvalidOperation, OpUniform, "location or type")
		return
	}
	obj.uniforms[loc] = v
}

// Fixed function

func (d *Device) Enable(c device.Cap) {
	d.record(OpEnable, 0, "%s", c)
	d.caps[c] = true
}

func (d *Device) Disable(c device.Cap) {
	d.record(OpDisable, 0, "%s", c)
	d.caps[c] = false
}

func (d *Device) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha device.BlendFactor) {
	d.record(OpBlendFuncSeparate, 0, "%s %s %s %s", srcRGB, dstRGB, srcAlpha, dstAlpha)
	d.blend = [4]device.BlendFactor{srcRGB, dstRGB, srcAlpha, dstAlpha}
}

func (d *Device) BlendEquation(eq device.BlendEquation) {
	d.record(OpBlendEquation, 0, "%s", eq)
	d.equation = eq
}

func (d *Device) CullFace(f device.Face) {
	d.record(OpCullFace, 0, "%s", f)
	d.cull = f
}

func (d *Device) DepthFunc(f device.DepthFunc) {
	d.record(OpDepthFunc, 0, "%s", f)
	d.depth = f
}

// Draw

func (d *Device) DrawArrays(mode device.DrawMode, first, count int) {
	d.record(OpDrawArrays, 0, "%s first=%d count=%d", mode, first, count)
	d.draw(OpDrawArrays, mode, first, count, 0)
}

func (d *Device) DrawArraysInstanced(mode device.DrawMode, first, count, instances int) {
	d.record(OpDrawArraysInstanced, 0, "%s first=%d count=%d instances=%d", mode, first, count, instances)
	d.draw(OpDrawArraysInstanced, mode, first, count, instances)
}

func (d *Device) draw(op Op, mode device.DrawMode, first, count, instances int) {
	if mode > device.TriangleFan {
		d.setError(device.InvalidEnum, op, "draw mode")
		return
	}
	if first < 0 || count < 0 || instances < 0 {
		d.setError(device.InvalidValue, op, "negative count")
		return
	}
	if err := d.validateDraw(first, count, max(instances, 1)); err != nil {
		d.setError(device.InvalidOperation, op, err.Error())
		return
	}
	d.draws = append(d.draws, DrawCall{
		Mode:        mode,
		First:       first,
		Count:       count,
		Instances:   instances,
		Program:     d.program,
		VertexArray: d.vertexArray,
	})
}

var errDraw = errors.New("invalid draw")

// validateDraw checks that every enabled attribute consumed by the current
// program reads inside a live buffer.
func (d *Device) validateDraw(first, count, instances int) error {
	prog := d.programs[d.program]
	if prog == nil {
		return fmt.Errorf("%w: no program in use", errDraw)
	}
	vao := d.vaos[d.vertexArray]
	if vao == nil {
		return fmt.Errorf("%w: no vertex array bound", errDraw)
	}
	for _, in := range prog.prog.Attributes {
		a, ok := vao.attribs[in.Location]
		if !ok || !a.enabled {
			continue
		}
		if !a.set {
			return fmt.Errorf("%w: attribute %d enabled without a pointer", errDraw, in.Location)
		}
		// Attached buffers are tracked by object, not name: a deleted
		// buffer's name may already belong to a new buffer.
		buf := a.obj
		if buf == nil || buf.deleted {
			return fmt.Errorf("%w: attribute %d reads deleted buffer %d", errDraw, in.Location, a.buf)
		}
		if a.integer != (in.Type != device.Float) {
			return fmt.Errorf("%w: attribute %d integer pointer does not match %s input", errDraw, in.Location, in.Type)
		}
		elements := first + count
		if a.divisor != 0 {
			elements = (instances + int(a.divisor) - 1) / int(a.divisor)
		}
		if elements == 0 {
			continue
		}
		stride := a.stride
		if stride == 0 {
			stride = a.components * a.typ.Size()
		}
		end := a.offset + (elements-1)*stride + a.components*a.typ.Size()
		if end > len(buf.data) {
			return fmt.Errorf("%w: attribute %d reads %d bytes of %d-byte buffer %d",
				errDraw, in.Location, end, len(buf.data), a.buf)
		}
	}
	return nil
}
