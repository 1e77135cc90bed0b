package gles

// GL enums used by the device beyond those device already defines.
const (
	glArrayBuffer     = 0x8892
	glCompileStatus   = 0x8B81
	glLinkStatus      = 0x8B82
	glInfoLogLength   = 0x8B84
	glActiveAttribs   = 0x8B89
	glActiveAttribMax = 0x8B8A
	glColorBufferBit  = 0x4000
	glDepthBufferBit  = 0x0100
	glRGBA            = 0x1908
	glUnsignedByte    = 0x1401
	glVersion         = 0x1F02
	glRenderer        = 0x1F01
	glTrue            = 1

	glFloat     = 0x1406
	glFloatVec2 = 0x8B50
	glFloatVec3 = 0x8B51
	glFloatVec4 = 0x8B52
	glInt       = 0x1404
	glIntVec2   = 0x8B53
	glIntVec3   = 0x8B54
	glIntVec4   = 0x8B55
	glUint      = 0x1405
	glUintVec2  = 0x8DC6
	glUintVec3  = 0x8DC7
	glUintVec4  = 0x8DC8
)

// EGL enums for a headless pbuffer context.
const (
	eglDefaultDisplay      = 0
	eglNone                = 0x3038
	eglAlphaSize           = 0x3021
	eglBlueSize            = 0x3022
	eglGreenSize           = 0x3023
	eglRedSize             = 0x3024
	eglDepthSize           = 0x3025
	eglSurfaceType         = 0x3033
	eglRenderableType      = 0x3040
	eglHeight              = 0x3056
	eglWidth               = 0x3057
	eglPbufferBit          = 0x0001
	eglOpenGLBit           = 0x0008
	eglOpenGLES3Bit        = 0x0040
	eglOpenGLESAPI         = 0x30A0
	eglOpenGLAPI           = 0x30A2
	eglContextMajorVersion = 0x3098
	eglContextMinorVersion = 0x30FB
	eglContextProfileMask  = 0x30FD
	eglContextCoreProfile  = 0x0001
	eglSuccess             = 0x3000
	eglFalse               = 0
)
