// Package gles is a device.Device over a real OpenGL 3.3 core or OpenGL ES
// 3.0 context.
//
// The GL and EGL libraries are loaded at run time with purego, so the
// package needs no cgo and no GL headers at build time. Open creates a
// headless EGL pbuffer context; NewFromCurrent wraps a context the host
// application already made current, such as one owned by a window toolkit.
//
//	dev, err := gles.Open(gles.WithTargetSize(640, 480))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// Shaders are GLSL. A source without a #version line gets "#version 330 core"
// on desktop GL and "#version 300 es" with highp defaults on GLES, so one
// body serves both. Vertex inputs should carry layout(location = N) so
// locations agree across backends.
//
// Open and the registered backend are available on Linux. On other systems
// the package builds but registers nothing.
package gles
