// Package native is a device.Device on top of the gogpu/wgpu hardware
// abstraction layer.
//
// WebGPU has no vertex array objects, no mutable blend or depth state and no
// default framebuffer. The Device keeps the GL-shaped state on the CPU and
// combines it into a render pipeline at draw time. Pipelines are cached by
// descriptor hash, so a steady frame builds none. Draws render into an
// offscreen color and depth target of a fixed size; ReadPixels copies it back.
//
// # Opening a Device
//
// Open picks a Vulkan adapter and owns the HAL device:
//
//	dev, err := native.Open(native.WithTargetSize(640, 480))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// A host that already has a device, such as a gogpu window, passes it with
// NewFromProvider. New wraps a bare hal.Device and hal.Queue.
//
// # Limitations
//
// Shaders are WGSL. Vertex formats follow WebGPU: 8 and 16 bit attributes need
// two or four components, and strides must be multiples of four. Triangle
// fans and line loops have no WebGPU topology and fail with INVALID_ENUM.
// Instance divisors other than 0 and 1 fail with INVALID_VALUE.
//
// With -tags nogpu the package builds without a Device and registers no
// backend.
package native
