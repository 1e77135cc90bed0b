// Package shadow issues GPU draw calls through a retained-mode device while
// skipping the state changes the device already has.
//
// # Overview
//
// A caller describes typed vertex data (Buffer), shader programs (Program)
// and uniform values (Uniform) and draws them with a Renderer. The renderer
// keeps a shadow of what is bound on the device, the current program,
// vertex layout object, uniform values and fixed-function state, and issues
// only the calls that change it.
//
// # Quick Start
//
//	type Vertex struct {
//		Position [2]float32
//	}
//
//	dev := recorder.New()
//	r, err := shadow.NewRenderer(dev)
//
//	buf, err := shadow.NewBuffer([]Vertex{
//		{[2]float32{-0.5, -0.5}},
//		{[2]float32{0.5, -0.5}},
//		{[2]float32{0.5, 0.5}},
//	})
//	tint := shadow.NewUniform([4]float32{1, 0.5, 0, 1})
//	p := shadow.NewProgram(vertexWGSL, fragmentWGSL, device.Triangles).
//		WithUniform("u_tint", tint)
//
//	err = r.Render(p, buf) // compiles p, uploads buf, creates a vertex layout
//	err = r.Render(p, buf) // issues only the draw
//
// # Resources
//
// Buffers upload lazily: SetData only replaces the CPU payload. The next
// draw allocates the device buffer, writes into it in place when the new
// payload fits, or reallocates it when it does not. A reallocation bumps the
// buffer generation, which makes the renderer reissue the attribute pointers
// of every vertex layout built on the buffer.
//
// Programs compile on first draw. Uniforms are attached by name before that
// and resolved to locations during compilation.
//
// # Vertex layouts
//
// The set of buffers used by a draw, together with the attribute bindings
// obtained by matching buffer attributes to program inputs by name, forms a
// LayoutSignature. Each distinct signature gets one device vertex array,
// kept in an LRU cache. Buffer identity, not content, is part of the
// signature.
//
// # Backends
//
// The device boundary is package device. Backends are under backend/: an
// in-memory recorder, a native backend on gogpu/wgpu HAL, and an OpenGL
// backend loaded at run time.
//
// # Logging
//
// shadow is silent by default. See SetLogger.
package shadow
