package shadow

import (
	"log/slog"
	"runtime"

	"github.com/gogpu/shadow/device"
)

// Renderer issues draw calls on one device while eliding state changes the
// device already has.
//
// A Renderer owns the shadow of its device's state: the current program,
// vertex layout, uniform values and fixed-function state. It must be the
// only user of the device, and it is not safe for concurrent use. Buffers
// and uniform slots drawn by the renderer may be mutated from other
// goroutines between draws.
type Renderer struct {
	dev    device.Device
	opts   options
	state  *shadowState
	stats  Stats
	closed bool

	// cleanup stops logger propagation to dev if the renderer is dropped
	// without Close.
	cleanup runtime.Cleanup
	tracked bool
}

// NewRenderer returns a renderer drawing on dev.
//
// Call Close when done: it deletes the cached vertex layouts and stops
// handing SetLogger updates to dev. A renderer dropped without Close stops
// the logger updates once it is garbage collected, but its device objects
// stay allocated.
func NewRenderer(dev device.Device, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{dev: dev, opts: o}
	r.state = newShadowState(dev, o.layoutLimit, &r.stats, r.logger)

	if o.logger != nil {
		if ls, ok := dev.(loggerSetter); ok {
			ls.SetLogger(o.logger)
		}
	} else if propagateLogger(dev) {
		r.cleanup = runtime.AddCleanup(r, forgetLogger, any(dev))
		r.tracked = true
	}
	return r, nil
}

func (r *Renderer) logger() *slog.Logger {
	if r.opts.logger != nil {
		return r.opts.logger
	}
	return Logger()
}

// Device returns the device the renderer draws on.
func (r *Renderer) Device() device.Device { return r.dev }

// Render draws p with one vertex per element of vertices.
//
// The program is compiled on its first draw. Buffers are uploaded if their
// payload changed since the last draw. A draw of zero vertices does nothing.
func (r *Renderer) Render(p *Program, vertices VertexSource) error {
	return r.draw(p, vertices, nil)
}

// RenderInstanced draws p once per element of instances, advancing the
// attributes of instances once per instance.
func (r *Renderer) RenderInstanced(p *Program, vertices, instances VertexSource) error {
	if nilSource(instances) {
		return ErrNilArgument
	}
	return r.draw(p, vertices, instances)
}

func (r *Renderer) draw(p *Program, vertices, instances VertexSource) error {
	if r.closed {
		return ErrClosed
	}
	if p == nil || nilSource(vertices) || (instances != nil && nilSource(instances)) {
		return ErrNilArgument
	}
	r.state.dropReleased()
	if err := p.resolve(r.dev, r.logger()); err != nil {
		return err
	}

	count := vertices.Len()
	instanceCount := 0
	if instances != nil {
		instanceCount = instances.Len()
	}
	if count == 0 || (instances != nil && instanceCount == 0) {
		r.logger().Debug("shadow: empty draw skipped",
			"program", p.id, "vertices", count, "instances", instanceCount)
		return nil
	}

	srcs := make([]drawSource, 0, 2)
	if h := vertices.Handle(); h != nil {
		srcs = append(srcs, drawSource{h: h})
	}
	if instances != nil {
		if h := instances.Handle(); h != nil {
			srcs = append(srcs, drawSource{h: h, divisor: 1})
		}
	}

	for _, src := range srcs {
		r.state.observe(src.h)
		res, err := src.h.sync(r.dev)
		if err != nil {
			return err
		}
		r.stats.countSync(res)
		if res != SyncNone {
			r.logger().Debug("shadow: buffer synced",
				"buffer", src.h.id, "label", src.h.label, "result", res, "capacity", src.h.Capacity())
		}
	}

	m, err := matchAttributes(p, srcs, r.opts.permissive, r.logger())
	if err != nil {
		return err
	}
	r.stats.EmptyBindings += uint64(m.empty)

	if err := r.state.setState(p, m.sig); err != nil {
		return err
	}

	if instances != nil {
		r.dev.DrawArraysInstanced(p.mode, 0, count, instanceCount)
	} else {
		r.dev.DrawArrays(p.mode, 0, count)
	}
	r.stats.Draws++

	if r.opts.errorCheck {
		return r.checkError("draw")
	}
	return nil
}

// CheckError queries the device error code and returns it as a
// *DeviceError, or nil when the device reports no error.
func (r *Renderer) CheckError() error {
	return r.checkError("")
}

func (r *Renderer) checkError(op string) error {
	if code := r.dev.Error(); code != device.NoError {
		return &DeviceError{Code: code, Op: op}
	}
	return nil
}

// ReleaseBuffer frees the device allocation of src and deletes every vertex
// layout built on it. The payload is kept; a later draw uploads it again.
func (r *Renderer) ReleaseBuffer(src VertexSource) {
	if src == nil {
		return
	}
	h := src.Handle()
	if h == nil {
		return
	}
	if !r.closed {
		if n := r.state.forgetBuffer(h); n > 0 {
			r.logger().Debug("shadow: layouts dropped with buffer", "buffer", h.id, "layouts", n)
		}
	}
	h.Release()
}

// ReleaseProgram deletes the device program of p. p cannot be drawn again.
func (r *Renderer) ReleaseProgram(p *Program) {
	if p == nil {
		return
	}
	if !r.closed {
		r.state.forgetProgram(p)
	}
	p.release()
}

// Stats returns a snapshot of the renderer counters.
func (r *Renderer) Stats() Stats { return r.stats }

// ResetStats zeroes the renderer counters.
func (r *Renderer) ResetStats() { r.stats = Stats{} }

// LayoutCount returns the number of cached vertex layouts. Layouts of
// buffers released since the last draw are dropped first.
func (r *Renderer) LayoutCount() int {
	if !r.closed {
		r.state.dropReleased()
	}
	return r.state.layouts.Len()
}

// Close deletes every cached vertex layout and forgets the device state.
// Buffers and programs belong to the caller and are not released.
// Close is idempotent.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	n := r.state.layouts.Len()
	r.state.released.close()
	r.state.reset()
	if r.tracked {
		r.cleanup.Stop()
		forgetLogger(r.dev)
		r.tracked = false
	}
	r.closed = true
	r.logger().Info("shadow: renderer closed", "layouts", n, "draws", r.stats.Draws)
	return nil
}

// nilSource reports whether src is nil or a typed nil buffer.
func nilSource(src VertexSource) bool {
	if src == nil {
		return true
	}
	n, ok := src.(interface{ isNil() bool })
	return ok && n.isNil()
}
