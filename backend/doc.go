// Package backend provides a pluggable device backend registry.
//
// A backend owns a device.Device and the platform resources behind it.
// Backends are registered by name from init() functions and selected at
// runtime. The recorder backend is registered by this package and is always
// available; GPU backends register when their package is imported:
//
//	import (
//		"github.com/gogpu/shadow/backend"
//		_ "github.com/gogpu/shadow/backend/gles"
//		_ "github.com/gogpu/shadow/backend/native"
//	)
//
// # Backend Selection
//
// Use InitDefault to get the best backend that initializes on this machine,
// or Get to request one by name:
//
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	r, err := shadow.NewRenderer(b.Device())
//
// # Available Backends
//
//   - "gles": OpenGL 3.3 core or OpenGL ES 3.0, through EGL, loaded with purego (linux)
//   - "native": gogpu/wgpu HAL device drawing into an offscreen target
//   - "recorder": in-memory device that records calls (always available)
package backend
