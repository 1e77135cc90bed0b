package device

import (
	"errors"
	"fmt"
)

// Device errors returned by backends.
var (
	// ErrOutOfMemory is returned when an object cannot be allocated.
	ErrOutOfMemory = errors.New("device: out of memory")

	// ErrUnsupported is returned for operations or formats a backend cannot express.
	ErrUnsupported = errors.New("device: unsupported")

	// ErrInvalidHandle is returned when an operation names a deleted or unknown object.
	ErrInvalidHandle = errors.New("device: invalid handle")

	// ErrNoBufferBound is returned by buffer uploads with no buffer bound.
	ErrNoBufferBound = errors.New("device: no buffer bound")
)

// CompileError carries the compiler diagnostic for a rejected shader stage.
type CompileError struct {
	Stage Stage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("device: %s shader compile failed: %s", e.Stage, e.Log)
}

// LinkError carries the linker diagnostic for a program.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return "device: program link failed: " + e.Log
}

// ErrorCode is a GL-style error code reported by Device.Error.
type ErrorCode uint32

const (
	NoError                     ErrorCode = 0
	InvalidEnum                 ErrorCode = 0x0500
	InvalidValue                ErrorCode = 0x0501
	InvalidOperation            ErrorCode = 0x0502
	OutOfMemory                 ErrorCode = 0x0505
	InvalidFramebufferOperation ErrorCode = 0x0506
	ContextLost                 ErrorCode = 0x9242
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case InvalidEnum:
		return "INVALID_ENUM"
	case InvalidValue:
		return "INVALID_VALUE"
	case InvalidOperation:
		return "INVALID_OPERATION"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	case InvalidFramebufferOperation:
		return "INVALID_FRAMEBUFFER_OPERATION"
	case ContextLost:
		return "CONTEXT_LOST"
	default:
		return fmt.Sprintf("ErrorCode(%#x)", uint32(c))
	}
}
