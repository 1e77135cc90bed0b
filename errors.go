package shadow

import (
	"errors"
	"fmt"

	"github.com/gogpu/shadow/device"
)

// Sentinel errors. Typed errors below match them with errors.Is.
var (
	// ErrNilDevice is returned by NewRenderer without a device.
	ErrNilDevice = errors.New("shadow: device is nil")

	// ErrNilArgument is returned when a draw is issued without a program or vertex source.
	ErrNilArgument = errors.New("shadow: nil program or vertex source")

	// ErrClosed is returned by a Renderer after Close.
	ErrClosed = errors.New("shadow: renderer closed")

	// ErrShaderCompile matches every *ShaderCompileError.
	ErrShaderCompile = errors.New("shadow: shader compile failed")

	// ErrShaderLink matches every *ShaderLinkError.
	ErrShaderLink = errors.New("shadow: program link failed")

	// ErrUnknownUniform is returned when an attached uniform is not declared by the program.
	ErrUnknownUniform = errors.New("shadow: unknown uniform")

	// ErrDuplicateUniform is returned when a uniform name is attached twice.
	ErrDuplicateUniform = errors.New("shadow: duplicate uniform")

	// ErrProgramBound is returned when a program is modified after it was compiled.
	ErrProgramBound = errors.New("shadow: program already bound")

	// ErrProgramReleased is returned when a released program is drawn.
	ErrProgramReleased = errors.New("shadow: program released")

	// ErrVertexLayoutCreation matches every *VertexLayoutError.
	ErrVertexLayoutCreation = errors.New("shadow: vertex layout creation failed")

	// ErrDevice matches every *DeviceError.
	ErrDevice = errors.New("shadow: device error")

	// ErrAttributeArray is returned when a program declares an array attribute.
	ErrAttributeArray = errors.New("shadow: array attributes are not supported")

	// ErrAttributeTypeMismatch is returned when a buffer attribute cannot feed the program input of the same name.
	ErrAttributeTypeMismatch = errors.New("shadow: attribute type mismatch")

	// ErrInvalidAttributeType is returned for record types that cannot be described as vertex attributes.
	ErrInvalidAttributeType = errors.New("shadow: invalid attribute type")

	// ErrForeignDevice is returned when a resource allocated on one device is used with another.
	ErrForeignDevice = errors.New("shadow: resource belongs to another device")

	// ErrBufferAllocation matches buffer create and upload failures.
	ErrBufferAllocation = errors.New("shadow: buffer allocation failed")
)

// ShaderCompileError reports a rejected shader stage with the compiler log.
type ShaderCompileError struct {
	Stage device.Stage
	Log   string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("shadow: %s shader compile failed: %s", e.Stage, e.Log)
}

// Is reports whether target is ErrShaderCompile.
func (e *ShaderCompileError) Is(target error) bool { return target == ErrShaderCompile }

// ShaderLinkError reports a program that failed to link.
type ShaderLinkError struct {
	Log string
}

func (e *ShaderLinkError) Error() string {
	return "shadow: program link failed: " + e.Log
}

// Is reports whether target is ErrShaderLink.
func (e *ShaderLinkError) Is(target error) bool { return target == ErrShaderLink }

// UniformError names the uniform behind ErrUnknownUniform or ErrDuplicateUniform.
type UniformError struct {
	Name string
	Err  error
}

func (e *UniformError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Name)
}

func (e *UniformError) Unwrap() error { return e.Err }

// VertexLayoutError reports a failure to create a vertex layout object.
type VertexLayoutError struct {
	Err error
}

func (e *VertexLayoutError) Error() string {
	return fmt.Sprintf("shadow: vertex layout creation failed: %v", e.Err)
}

// Is reports whether target is ErrVertexLayoutCreation.
func (e *VertexLayoutError) Is(target error) bool { return target == ErrVertexLayoutCreation }

func (e *VertexLayoutError) Unwrap() error { return e.Err }

// DeviceError is a non-zero device error code observed after an operation.
type DeviceError struct {
	Code device.ErrorCode
	Op   string
}

func (e *DeviceError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("shadow: device error %s", e.Code)
	}
	return fmt.Sprintf("shadow: device error %s after %s", e.Code, e.Op)
}

// Is reports whether target is ErrDevice.
func (e *DeviceError) Is(target error) bool { return target == ErrDevice }
