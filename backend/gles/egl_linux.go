package gles

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

var (
	eglOnce sync.Once
	eglLib  uintptr
	eglErr  error

	eglGetDisplay           func(nativeDisplay uintptr) uintptr
	eglInitialize           func(dpy uintptr, major, minor *int32) uint32
	eglTerminate            func(dpy uintptr) uint32
	eglBindAPI              func(api uint32) uint32
	eglChooseConfig         func(dpy uintptr, attribs *int32, configs *uintptr, size int32, num *int32) uint32
	eglCreatePbufferSurface func(dpy, config uintptr, attribs *int32) uintptr
	eglDestroySurface       func(dpy, surface uintptr) uint32
	eglCreateContext        func(dpy, config, share uintptr, attribs *int32) uintptr
	eglDestroyContext       func(dpy, ctx uintptr) uint32
	eglMakeCurrent          func(dpy, draw, read, ctx uintptr) uint32
	eglGetError             func() int32
	eglGetProcAddress       func(name string) uintptr
)

func loadEGL() error {
	eglOnce.Do(func() {
		lib, err := purego.Dlopen("libEGL.so.1", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			eglErr = fmt.Errorf("%w: libEGL.so.1: %w", ErrNoLibrary, err)
			return
		}
		eglLib = lib

		purego.RegisterLibFunc(&eglGetDisplay, lib, "eglGetDisplay")
		purego.RegisterLibFunc(&eglInitialize, lib, "eglInitialize")
		purego.RegisterLibFunc(&eglTerminate, lib, "eglTerminate")
		purego.RegisterLibFunc(&eglBindAPI, lib, "eglBindAPI")
		purego.RegisterLibFunc(&eglChooseConfig, lib, "eglChooseConfig")
		purego.RegisterLibFunc(&eglCreatePbufferSurface, lib, "eglCreatePbufferSurface")
		purego.RegisterLibFunc(&eglDestroySurface, lib, "eglDestroySurface")
		purego.RegisterLibFunc(&eglCreateContext, lib, "eglCreateContext")
		purego.RegisterLibFunc(&eglDestroyContext, lib, "eglDestroyContext")
		purego.RegisterLibFunc(&eglMakeCurrent, lib, "eglMakeCurrent")
		purego.RegisterLibFunc(&eglGetError, lib, "eglGetError")
		purego.RegisterLibFunc(&eglGetProcAddress, lib, "eglGetProcAddress")
	})
	return eglErr
}

// glLibraries are tried in order for each API.
var glLibraries = map[API][]string{
	APIGL:   {"libOpenGL.so.0", "libGL.so.1"},
	APIGLES: {"libGLESv2.so.2"},
}

// eglContext is a headless context current on the calling thread.
type eglContext struct {
	api     API
	display uintptr
	surface uintptr
	context uintptr
	glLib   uintptr
}

// newEGLContext creates a pbuffer-backed context of the given API and makes
// it current.
func newEGLContext(api API, width, height int) (*eglContext, error) {
	if err := loadEGL(); err != nil {
		return nil, err
	}
	dpy := eglGetDisplay(eglDefaultDisplay)
	if dpy == 0 {
		return nil, fmt.Errorf("%w: no EGL display", ErrNoContext)
	}
	var major, minor int32
	if eglInitialize(dpy, &major, &minor) == eglFalse {
		return nil, fmt.Errorf("%w: eglInitialize: %#x", ErrNoContext, eglGetError())
	}
	c := &eglContext{api: api, display: dpy}

	renderable, bindAPI := int32(eglOpenGLBit), uint32(eglOpenGLAPI)
	ctxAttribs := []int32{
		eglContextMajorVersion, 3,
		eglContextMinorVersion, 3,
		eglContextProfileMask, eglContextCoreProfile,
		eglNone,
	}
	if api == APIGLES {
		renderable, bindAPI = eglOpenGLES3Bit, eglOpenGLESAPI
		ctxAttribs = []int32{eglContextMajorVersion, 3, eglContextMinorVersion, 0, eglNone}
	}
	if eglBindAPI(bindAPI) == eglFalse {
		c.destroy()
		return nil, fmt.Errorf("%w: eglBindAPI(%s): %#x", ErrNoContext, api, eglGetError())
	}

	configAttribs := []int32{
		eglSurfaceType, eglPbufferBit,
		eglRenderableType, renderable,
		eglRedSize, 8,
		eglGreenSize, 8,
		eglBlueSize, 8,
		eglAlphaSize, 8,
		eglDepthSize, 24,
		eglNone,
	}
	var config uintptr
	var n int32
	if eglChooseConfig(dpy, &configAttribs[0], &config, 1, &n) == eglFalse || n == 0 {
		c.destroy()
		return nil, fmt.Errorf("%w: no %s pbuffer config", ErrNoContext, api)
	}

	surfaceAttribs := []int32{eglWidth, int32(width), eglHeight, int32(height), eglNone} //nolint:gosec // target size is validated by Open
	c.surface = eglCreatePbufferSurface(dpy, config, &surfaceAttribs[0])
	if c.surface == 0 {
		c.destroy()
		return nil, fmt.Errorf("%w: eglCreatePbufferSurface: %#x", ErrNoContext, eglGetError())
	}
	c.context = eglCreateContext(dpy, config, 0, &ctxAttribs[0])
	if c.context == 0 {
		c.destroy()
		return nil, fmt.Errorf("%w: eglCreateContext(%s 3.x): %#x", ErrNoContext, api, eglGetError())
	}
	if eglMakeCurrent(dpy, c.surface, c.surface, c.context) == eglFalse {
		c.destroy()
		return nil, fmt.Errorf("%w: eglMakeCurrent: %#x", ErrNoContext, eglGetError())
	}

	var err error
	for _, name := range glLibraries[api] {
		c.glLib, err = purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err == nil {
			break
		}
	}
	if c.glLib == 0 {
		c.destroy()
		return nil, fmt.Errorf("%w: %v: %w", ErrNoLibrary, glLibraries[api], err)
	}
	slogger().Debug("gles: EGL context created", "api", api, "egl", fmt.Sprintf("%d.%d", major, minor))
	return c, nil
}

func (c *eglContext) getProc(name string) uintptr {
	return eglGetProcAddress(name)
}

func (c *eglContext) destroy() {
	if c.display == 0 {
		return
	}
	eglMakeCurrent(c.display, 0, 0, 0)
	if c.context != 0 {
		eglDestroyContext(c.display, c.context)
		c.context = 0
	}
	if c.surface != 0 {
		eglDestroySurface(c.display, c.surface)
		c.surface = 0
	}
	eglTerminate(c.display)
	c.display = 0
	if c.glLib != 0 {
		if err := purego.Dlclose(c.glLib); err != nil {
			slogger().Warn("gles: dlclose failed", "error", err)
		}
		c.glLib = 0
	}
}
