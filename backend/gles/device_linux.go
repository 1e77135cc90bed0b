package gles

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"unsafe"

	"github.com/gogpu/shadow/device"
)

// Device is a device.Device over a real GL context. Almost every call maps to
// one GL call; the Device only tracks what it needs to return Go errors
// (buffer sizes, live object names) and to clean up on Close.
//
// A GL context is current on one OS thread. Open locks the calling goroutine
// to its thread, and the Device must only be used from that goroutine.
type Device struct {
	gl  functions
	ctx *eglContext
	es  bool

	width, height int
	version       string
	renderer      string

	// err holds a GL error read while checking a call, so that Error still
	// reports it.
	err    device.ErrorCode
	closed bool
	locked bool
	draws  uint64

	buffers  map[device.Buffer]int
	vaos     map[device.VertexArray]struct{}
	shaders  map[device.Shader]device.Stage
	programs map[device.Program]struct{}

	arrayBuffer device.Buffer
}

var _ device.Device = (*Device)(nil)

// Open creates a headless EGL context and returns a Device drawing into its
// pbuffer. The calling goroutine stays locked to its OS thread until Close.
func Open(opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.width <= 0 || o.height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, o.width, o.height)
	}

	apis := []API{o.api}
	if o.api == APIAuto {
		apis = []API{APIGL, APIGLES}
	}

	runtime.LockOSThread()
	var errs []error
	for _, api := range apis {
		ctx, err := newEGLContext(api, o.width, o.height)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		d, err := newDevice(ctx.glLib, ctx.getProc, o.width, o.height)
		if err != nil {
			ctx.destroy()
			errs = append(errs, err)
			continue
		}
		d.ctx, d.locked = ctx, true
		slogger().Info("gles: device opened", "api", api, "version", d.version, "renderer", d.renderer)
		return d, nil
	}
	runtime.UnlockOSThread()
	return nil, errors.Join(errs...)
}

// NewFromCurrent wraps the GL 3.3 or GLES 3.0 context current on the calling
// thread. getProc resolves entry points, for example eglGetProcAddress or
// glXGetProcAddress. The caller keeps the context; Close deletes only the
// objects created through the Device.
func NewFromCurrent(getProc func(name string) uintptr, width, height int) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return newDevice(0, getProc, width, height)
}

func newDevice(lib uintptr, getProc func(string) uintptr, width, height int) (*Device, error) {
	d := &Device{
		width:    width,
		height:   height,
		buffers:  make(map[device.Buffer]int),
		vaos:     make(map[device.VertexArray]struct{}),
		shaders:  make(map[device.Shader]device.Stage),
		programs: make(map[device.Program]struct{}),
	}
	if err := d.gl.load(lib, getProc); err != nil {
		return nil, err
	}
	d.version = d.gl.GetString(glVersion)
	d.renderer = d.gl.GetString(glRenderer)
	d.es = strings.HasPrefix(d.version, "OpenGL ES")
	d.gl.Viewport(0, 0, int32(width), int32(height)) //nolint:gosec // validated positive
	return d, nil
}

// SetLogger implements the logger hook shadow propagates to devices.
func (d *Device) SetLogger(l *slog.Logger) { SetLogger(l) }

// Size returns the target size in pixels.
func (d *Device) Size() (width, height int) { return d.width, d.height }

// Version returns the GL_VERSION string of the context.
func (d *Device) Version() string { return d.version }

// Renderer returns the GL_RENDERER string of the context.
func (d *Device) Renderer() string { return d.renderer }

// ES reports whether the context is OpenGL ES.
func (d *Device) ES() bool { return d.es }

// Draws returns the number of draw calls issued.
func (d *Device) Draws() uint64 { return d.draws }

// Clear clears the color target to (r, g, b, a) and the depth to 1.
func (d *Device) Clear(r, g, b, a float32) {
	if d.closed {
		return
	}
	d.gl.ClearColor(r, g, b, a)
	d.gl.Clear(glColorBufferBit | glDepthBufferBit)
}

// ReadPixels waits for rendering and returns the target as RGBA, top row
// first.
func (d *Device) ReadPixels() (*image.RGBA, error) {
	if d.closed {
		return nil, ErrClosed
	}
	d.gl.Finish()
	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	//nolint:gosec // target size is validated positive
	d.gl.ReadPixels(0, 0, int32(d.width), int32(d.height), glRGBA, glUnsignedByte, unsafe.Pointer(&img.Pix[0]))
	if code := d.check(); code != device.NoError {
		return nil, fmt.Errorf("gles: glReadPixels: %s", code)
	}
	flipRows(img.Pix, img.Stride, d.height)
	return img, nil
}

// Close deletes the objects created through the device and, for a device
// from Open, destroys the context and unlocks the OS thread.
func (d *Device) Close() {
	if d.closed {
		return
	}
	for p := range d.programs {
		d.gl.DeleteProgram(uint32(p))
	}
	for s := range d.shaders {
		d.gl.DeleteShader(uint32(s))
	}
	for v := range d.vaos {
		name := uint32(v)
		d.gl.DeleteVertexArrays(1, &name)
	}
	for b := range d.buffers {
		name := uint32(b)
		d.gl.DeleteBuffers(1, &name)
	}
	clear(d.programs)
	clear(d.shaders)
	clear(d.vaos)
	clear(d.buffers)
	d.closed = true

	if d.ctx != nil {
		d.ctx.destroy()
		d.ctx = nil
	}
	if d.locked {
		runtime.UnlockOSThread()
		d.locked = false
	}
	slogger().Info("gles: device closed", "draws", d.draws)
}

// check reads the GL error, keeping it for Error.
func (d *Device) check() device.ErrorCode {
	code := device.ErrorCode(d.gl.GetError())
	if code != device.NoError && d.err == device.NoError {
		d.err = code
	}
	return code
}

func (d *Device) setError(code device.ErrorCode, op, reason string) {
	slogger().Warn("gles: device error", "code", code, "op", op, "reason", reason)
	if d.err == device.NoError {
		d.err = code
	}
}

// Error returns and clears the oldest pending error code.
func (d *Device) Error() device.ErrorCode {
	if d.err != device.NoError {
		code := d.err
		d.err = device.NoError
		return code
	}
	if d.closed {
		return device.NoError
	}
	return device.ErrorCode(d.gl.GetError())
}

// Buffers

func (d *Device) CreateBuffer() (device.Buffer, error) {
	var name uint32
	d.gl.GenBuffers(1, &name)
	if name == 0 {
		return 0, fmt.Errorf("gles: glGenBuffers: %w", device.ErrOutOfMemory)
	}
	b := device.Buffer(name)
	d.buffers[b] = 0
	return b, nil
}

func (d *Device) DeleteBuffer(b device.Buffer) {
	if _, ok := d.buffers[b]; !ok {
		return
	}
	name := uint32(b)
	d.gl.DeleteBuffers(1, &name)
	delete(d.buffers, b)
	if d.arrayBuffer == b {
		d.arrayBuffer = 0
	}
}

func (d *Device) BindBuffer(b device.Buffer) {
	if _, ok := d.buffers[b]; b != 0 && !ok {
		d.setError(device.InvalidOperation, "BindBuffer", "unknown buffer")
		return
	}
	d.gl.BindBuffer(glArrayBuffer, uint32(b))
	d.arrayBuffer = b
}

func (d *Device) BufferData(data []byte, usage device.Usage) error {
	if d.arrayBuffer == 0 {
		d.setError(device.InvalidOperation, "BufferData", "no buffer bound")
		return device.ErrNoBufferBound
	}
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = unsafe.Pointer(&data[0])
	}
	d.gl.BufferData(glArrayBuffer, len(data), ptr, uint32(usage))
	switch code := d.check(); code {
	case device.NoError:
	case device.OutOfMemory:
		d.buffers[d.arrayBuffer] = 0
		return fmt.Errorf("gles: %d-byte buffer: %w", len(data), device.ErrOutOfMemory)
	default:
		return fmt.Errorf("gles: glBufferData: %s", code)
	}
	d.buffers[d.arrayBuffer] = len(data)
	return nil
}

func (d *Device) BufferSubData(offset int, data []byte) error {
	if d.arrayBuffer == 0 {
		d.setError(device.InvalidOperation, "BufferSubData", "no buffer bound")
		return device.ErrNoBufferBound
	}
	size := d.buffers[d.arrayBuffer]
	if offset < 0 || offset+len(data) > size {
		d.setError(device.InvalidValue, "BufferSubData", "range exceeds buffer")
		return fmt.Errorf("%w: [%d,%d) of %d bytes", ErrOutOfRange, offset, offset+len(data), size)
	}
	if len(data) == 0 {
		return nil
	}
	d.gl.BufferSubData(glArrayBuffer, offset, len(data), unsafe.Pointer(&data[0]))
	return nil
}

// Vertex arrays

func (d *Device) CreateVertexArray() (device.VertexArray, error) {
	var name uint32
	d.gl.GenVertexArrays(1, &name)
	if name == 0 {
		return 0, fmt.Errorf("gles: glGenVertexArrays: %w", device.ErrOutOfMemory)
	}
	v := device.VertexArray(name)
	d.vaos[v] = struct{}{}
	return v, nil
}

func (d *Device) DeleteVertexArray(v device.VertexArray) {
	if _, ok := d.vaos[v]; !ok {
		return
	}
	name := uint32(v)
	d.gl.DeleteVertexArrays(1, &name)
	delete(d.vaos, v)
}

func (d *Device) BindVertexArray(v device.VertexArray) {
	d.gl.BindVertexArray(uint32(v))
}

func (d *Device) EnableVertexAttribArray(loc uint32) {
	d.gl.EnableVertexAttribArray(loc)
}

func (d *Device) VertexAttribPointer(loc uint32, components int, typ device.ScalarType, normalized bool, stride, offset int) {
	if offset < 0 {
		d.setError(device.InvalidValue, "VertexAttribPointer", "negative offset")
		return
	}
	//nolint:gosec // GL validates size and stride
	d.gl.VertexAttribPointer(loc, int32(components), uint32(typ), normalized, int32(stride), uintptr(offset))
}

func (d *Device) VertexAttribIPointer(loc uint32, components int, typ device.ScalarType, stride, offset int) {
	if offset < 0 {
		d.setError(device.InvalidValue, "VertexAttribIPointer", "negative offset")
		return
	}
	//nolint:gosec // GL validates size and stride
	d.gl.VertexAttribIPointer(loc, int32(components), uint32(typ), int32(stride), uintptr(offset))
}

func (d *Device) VertexAttribDivisor(loc, divisor uint32) {
	d.gl.VertexAttribDivisor(loc, divisor)
}

// Shaders and programs

func (d *Device) CompileShader(stage device.Stage, source string) (device.Shader, error) {
	name := d.gl.CreateShader(uint32(stage))
	if name == 0 {
		return 0, &device.CompileError{Stage: stage, Log: fmt.Sprintf("glCreateShader: %s", d.check())}
	}

	src := append([]byte(withVersion(source, d.es)), 0)
	length := int32(len(src) - 1) //nolint:gosec // shader sources are small
	ptr := &src[0]
	var pinner runtime.Pinner
	pinner.Pin(ptr)
	pinner.Pin(&ptr)
	d.gl.ShaderSource(name, 1, &ptr, &length)
	pinner.Unpin()
	d.gl.CompileShader(name)

	var status int32
	d.gl.GetShaderiv(name, glCompileStatus, &status)
	if status != glTrue {
		log := d.shaderLog(name)
		d.gl.DeleteShader(name)
		return 0, &device.CompileError{Stage: stage, Log: log}
	}
	s := device.Shader(name)
	d.shaders[s] = stage
	return s, nil
}

func (d *Device) shaderLog(name uint32) string {
	var n int32
	d.gl.GetShaderiv(name, glInfoLogLength, &n)
	if n <= 1 {
		return ""
	}
	buf := make([]byte, n)
	var length int32
	d.gl.GetShaderInfoLog(name, n, &length, &buf[0])
	return strings.TrimSpace(string(buf[:length]))
}

func (d *Device) programLog(name uint32) string {
	var n int32
	d.gl.GetProgramiv(name, glInfoLogLength, &n)
	if n <= 1 {
		return ""
	}
	buf := make([]byte, n)
	var length int32
	d.gl.GetProgramInfoLog(name, n, &length, &buf[0])
	return strings.TrimSpace(string(buf[:length]))
}

func (d *Device) DeleteShader(s device.Shader) {
	if _, ok := d.shaders[s]; !ok {
		return
	}
	d.gl.DeleteShader(uint32(s))
	delete(d.shaders, s)
}

func (d *Device) LinkProgram(vs, fs device.Shader) (device.Program, error) {
	_, okv := d.shaders[vs]
	_, okf := d.shaders[fs]
	if !okv || !okf {
		d.setError(device.InvalidValue, "LinkProgram", "unknown shader")
		return 0, fmt.Errorf("gles: link %d, %d: %w", vs, fs, device.ErrInvalidHandle)
	}
	name := d.gl.CreateProgram()
	if name == 0 {
		return 0, fmt.Errorf("gles: glCreateProgram: %w", device.ErrOutOfMemory)
	}
	d.gl.AttachShader(name, uint32(vs))
	d.gl.AttachShader(name, uint32(fs))
	d.gl.LinkProgram(name)

	var status int32
	d.gl.GetProgramiv(name, glLinkStatus, &status)
	if status != glTrue {
		log := d.programLog(name)
		d.gl.DeleteProgram(name)
		return 0, &device.LinkError{Log: log}
	}
	p := device.Program(name)
	d.programs[p] = struct{}{}
	return p, nil
}

func (d *Device) DeleteProgram(p device.Program) {
	if _, ok := d.programs[p]; !ok {
		return
	}
	d.gl.DeleteProgram(uint32(p))
	delete(d.programs, p)
}

func (d *Device) UseProgram(p device.Program) {
	d.gl.UseProgram(uint32(p))
}

func (d *Device) ActiveAttributes(p device.Program) ([]device.ActiveAttribute, error) {
	if _, ok := d.programs[p]; !ok {
		return nil, fmt.Errorf("gles: program %d: %w", p, device.ErrInvalidHandle)
	}
	var count, maxLen int32
	d.gl.GetProgramiv(uint32(p), glActiveAttribs, &count)
	d.gl.GetProgramiv(uint32(p), glActiveAttribMax, &maxLen)
	buf := make([]byte, max(maxLen, 1))

	out := make([]device.ActiveAttribute, 0, count)
	for i := range uint32(count) { //nolint:gosec // count is non-negative
		var length, size int32
		var typ uint32
		d.gl.GetActiveAttrib(uint32(p), i, int32(len(buf)), &length, &size, &typ, &buf[0]) //nolint:gosec // buffer is small
		name := strings.TrimSuffix(string(buf[:length]), "[0]")
		if strings.HasPrefix(name, "gl_") {
			continue
		}
		loc := d.gl.GetAttribLocation(uint32(p), name)
		if loc < 0 {
			continue
		}
		st, components, ok := attribType(typ)
		if !ok {
			return nil, fmt.Errorf("gles: attribute %q type %#x: %w", name, typ, device.ErrUnsupported)
		}
		out = append(out, device.ActiveAttribute{
			Name:       name,
			Location:   uint32(loc),
			Type:       st,
			Components: components,
			Size:       int(size),
		})
	}
	slices.SortFunc(out, func(a, b device.ActiveAttribute) int { return int(a.Location) - int(b.Location) })
	return out, nil
}

func (d *Device) UniformLocation(p device.Program, name string) (device.UniformLocation, bool) {
	if _, ok := d.programs[p]; !ok {
		return -1, false
	}
	loc := d.gl.GetUniformLocation(uint32(p), name)
	if loc < 0 {
		return -1, false
	}
	return device.UniformLocation(loc), true
}

func (d *Device) Uniform(loc device.UniformLocation, v device.UniformValue) {
	if loc < 0 {
		return
	}
	l := int32(loc)
	switch v.Kind {
	case device.UniformMat2:
		d.gl.UniformMatrix2fv(l, 1, false, &v.F[0])
		return
	case device.UniformMat3:
		d.gl.UniformMatrix3fv(l, 1, false, &v.F[0])
		return
	case device.UniformMat4:
		d.gl.UniformMatrix4fv(l, 1, false, &v.F[0])
		return
	}

	n := v.Kind.Components()
	switch v.Kind.Scalar() {
	case device.Float:
		fn := [...]func(int32, int32, *float32){d.gl.Uniform1fv, d.gl.Uniform2fv, d.gl.Uniform3fv, d.gl.Uniform4fv}
		if n >= 1 && n <= 4 {
			fn[n-1](l, 1, &v.F[0])
			return
		}
	case device.Int:
		fn := [...]func(int32, int32, *int32){d.gl.Uniform1iv, d.gl.Uniform2iv, d.gl.Uniform3iv, d.gl.Uniform4iv}
		if n >= 1 && n <= 4 {
			fn[n-1](l, 1, &v.I[0])
			return
		}
	case device.UInt:
		fn := [...]func(int32, int32, *uint32){d.gl.Uniform1uiv, d.gl.Uniform2uiv, d.gl.Uniform3uiv, d.gl.Uniform4uiv}
		if n >= 1 && n <= 4 {
			fn[n-1](l, 1, &v.U[0])
			return
		}
	}
	d.setError(device.InvalidOperation, "Uniform", "kind "+v.Kind.String())
}

// Fixed function

func (d *Device) Enable(c device.Cap)  { d.gl.Enable(uint32(c)) }
func (d *Device) Disable(c device.Cap) { d.gl.Disable(uint32(c)) }

func (d *Device) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha device.BlendFactor) {
	d.gl.BlendFuncSeparate(uint32(srcRGB), uint32(dstRGB), uint32(srcAlpha), uint32(dstAlpha))
}

func (d *Device) BlendEquation(eq device.BlendEquation) { d.gl.BlendEquation(uint32(eq)) }
func (d *Device) CullFace(f device.Face)                { d.gl.CullFace(uint32(f)) }
func (d *Device) DepthFunc(f device.DepthFunc)          { d.gl.DepthFunc(uint32(f)) }

// Draws

func (d *Device) DrawArrays(mode device.DrawMode, first, count int) {
	if d.closed {
		d.setError(device.ContextLost, "DrawArrays", "device closed")
		return
	}
	d.gl.DrawArrays(uint32(mode), int32(first), int32(count)) //nolint:gosec // GL validates counts
	d.draws++
}

func (d *Device) DrawArraysInstanced(mode device.DrawMode, first, count, instances int) {
	if d.closed {
		d.setError(device.ContextLost, "DrawArraysInstanced", "device closed")
		return
	}
	d.gl.DrawArraysInstanced(uint32(mode), int32(first), int32(count), int32(instances)) //nolint:gosec // GL validates counts
	d.draws++
}
