package shadow

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/shadow/device"
)

type programStatus uint8

const (
	programUnbound programStatus = iota
	programBound
	programFailed
)

var nextProgramID atomic.Uint64

// Program is a shader program with its uniform bindings and fixed-function
// state.
//
// A Program starts unbound, holding only sources. The first draw (or an
// explicit Resolve) compiles and links it, reflects its attributes and
// resolves every attached uniform name to a location. That transition
// happens once: afterwards the program is immutable, and a failed
// transition is permanent.
type Program struct {
	id       uint64
	vertex   string
	fragment string
	mode     device.DrawMode
	state    GraphicsState
	uniforms []attachedUniform
	names    map[string]bool

	status programStatus
	err    error

	dev      device.Device
	handle   device.Program
	attrs    map[string]device.ActiveAttribute
	resolved []resolvedUniform
}

type attachedUniform struct {
	name string
	src  UniformSource
}

type resolvedUniform struct {
	name string
	loc  device.UniformLocation
	src  UniformSource
}

// NewProgram returns an unbound program. The sources are handed to the
// device compiler unchanged.
func NewProgram(vertexSource, fragmentSource string, mode device.DrawMode) *Program {
	return &Program{
		id:       nextProgramID.Add(1),
		vertex:   vertexSource,
		fragment: fragmentSource,
		mode:     mode,
		names:    make(map[string]bool),
	}
}

// AttachUniform binds a uniform name to a value source. The name is resolved
// to a location when the program is compiled.
func (p *Program) AttachUniform(name string, src UniformSource) error {
	if p.status != programUnbound {
		return fmt.Errorf("%w: cannot attach uniform %q", ErrProgramBound, name)
	}
	if src == nil {
		return &UniformError{Name: name, Err: ErrNilArgument}
	}
	if p.names[name] {
		return &UniformError{Name: name, Err: ErrDuplicateUniform}
	}
	p.names[name] = true
	p.uniforms = append(p.uniforms, attachedUniform{name: name, src: src})
	return nil
}

// WithUniform is the chaining form of AttachUniform. An attach error is kept
// and returned by Resolve (and so by the first draw).
//
//	color := shadow.NewUniform([4]float32{1, 0, 0, 1})
//	p := shadow.NewProgram(vs, fs, device.Triangles).
//	    WithUniform("u_color", color)
func (p *Program) WithUniform(name string, src UniformSource) *Program {
	if err := p.AttachUniform(name, src); err != nil && p.err == nil {
		p.err = err
	}
	return p
}

// WithState sets the fixed-function state used when drawing the program.
// It has no effect once the program is bound.
func (p *Program) WithState(s GraphicsState) *Program {
	if p.status == programUnbound {
		p.state = s
	}
	return p
}

// ID returns the identity of the program, unique within the process.
func (p *Program) ID() uint64 { return p.id }

// DrawMode returns the primitive topology of the program's draws.
func (p *Program) DrawMode() device.DrawMode { return p.mode }

// State returns the fixed-function state.
func (p *Program) State() GraphicsState { return p.state }

// Bound reports whether the program has been compiled successfully.
func (p *Program) Bound() bool { return p.status == programBound }

// Err returns the error that made the program unusable, or nil.
func (p *Program) Err() error {
	if p.status == programFailed {
		return p.err
	}
	return nil
}

// Attribute returns the reflected attribute with the given name.
// It reports false until the program is bound.
func (p *Program) Attribute(name string) (device.ActiveAttribute, bool) {
	a, ok := p.attrs[name]
	return a, ok
}

// Resolve compiles, links and reflects the program on dev if that has not
// happened yet. It is a no-op for a bound program and returns the original
// error for a failed one.
func (p *Program) Resolve(dev device.Device) error {
	return p.resolve(dev, slogger())
}

func (p *Program) resolve(dev device.Device, log *slog.Logger) error {
	switch p.status {
	case programBound:
		if p.dev != dev {
			return ErrForeignDevice
		}
		return nil
	case programFailed:
		return p.err
	}

	if p.err != nil {
		return p.fail(p.err)
	}
	if err := p.bind(dev); err != nil {
		return p.fail(err)
	}
	p.status = programBound
	p.dev = dev
	log.Info("shadow: program bound",
		"program", p.id, "attributes", len(p.attrs), "uniforms", len(p.resolved))
	return nil
}

func (p *Program) fail(err error) error {
	p.status = programFailed
	p.err = err
	return err
}

func (p *Program) bind(dev device.Device) error {
	vs, err := compileStage(dev, device.VertexStage, p.vertex)
	if err != nil {
		return err
	}
	defer dev.DeleteShader(vs)

	fs, err := compileStage(dev, device.FragmentStage, p.fragment)
	if err != nil {
		return err
	}
	defer dev.DeleteShader(fs)

	prog, err := dev.LinkProgram(vs, fs)
	if err != nil {
		var le *device.LinkError
		if errors.As(err, &le) {
			return &ShaderLinkError{Log: le.Log}
		}
		return &ShaderLinkError{Log: err.Error()}
	}

	attrs, err := reflectAttributes(dev, prog)
	if err != nil {
		dev.DeleteProgram(prog)
		return err
	}

	resolved := make([]resolvedUniform, 0, len(p.uniforms))
	for _, u := range p.uniforms {
		loc, ok := dev.UniformLocation(prog, u.name)
		if !ok {
			dev.DeleteProgram(prog)
			return &UniformError{Name: u.name, Err: ErrUnknownUniform}
		}
		resolved = append(resolved, resolvedUniform{name: u.name, loc: loc, src: u.src})
	}

	p.handle = prog
	p.attrs = attrs
	p.resolved = resolved
	return nil
}

func compileStage(dev device.Device, stage device.Stage, src string) (device.Shader, error) {
	s, err := dev.CompileShader(stage, src)
	if err == nil {
		return s, nil
	}
	var ce *device.CompileError
	if errors.As(err, &ce) {
		return 0, &ShaderCompileError{Stage: stage, Log: ce.Log}
	}
	return 0, &ShaderCompileError{Stage: stage, Log: err.Error()}
}

func reflectAttributes(dev device.Device, prog device.Program) (map[string]device.ActiveAttribute, error) {
	active, err := dev.ActiveAttributes(prog)
	if err != nil {
		return nil, fmt.Errorf("shadow: reflect attributes: %w", err)
	}
	attrs := make(map[string]device.ActiveAttribute, len(active))
	for _, a := range active {
		if a.Size > 1 {
			return nil, fmt.Errorf("%w: %q has %d elements", ErrAttributeArray, a.Name, a.Size)
		}
		attrs[a.Name] = a
	}
	return attrs, nil
}

// release deletes the device program. The program cannot be drawn again.
func (p *Program) release() {
	if p.status == programBound {
		p.dev.DeleteProgram(p.handle)
	}
	p.status = programFailed
	p.err = ErrProgramReleased
	p.attrs = nil
	p.resolved = nil
}
