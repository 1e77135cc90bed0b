package gles

import "errors"

var (
	// ErrNoLibrary is returned when no EGL or GL library can be loaded.
	ErrNoLibrary = errors.New("gles: GL library not found")

	// ErrNoContext is returned when EGL cannot create a context of the
	// requested API and version.
	ErrNoContext = errors.New("gles: cannot create GL context")

	// ErrMissingFunction is returned when a required GL entry point is absent.
	ErrMissingFunction = errors.New("gles: missing GL function")

	// ErrInvalidDimensions is returned when the target width or height is invalid.
	ErrInvalidDimensions = errors.New("gles: invalid target dimensions")

	// ErrOutOfRange is returned by BufferSubData when the write does not fit
	// the bound buffer.
	ErrOutOfRange = errors.New("gles: write outside buffer")

	// ErrClosed is returned by operations on a closed Device.
	ErrClosed = errors.New("gles: device closed")
)
