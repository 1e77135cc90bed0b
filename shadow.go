package shadow

import (
	"log/slog"
	"sync"

	"github.com/gogpu/shadow/device"
	"github.com/gogpu/shadow/internal/cache"
)

// vertexLayout is a device vertex array together with the signature its
// attribute pointers were issued for.
type vertexLayout struct {
	vao device.VertexArray
	sig LayoutSignature

	// gens holds the generation of each signature buffer at the time the
	// pointers were last issued.
	gens []uint64
}

// stale reports whether any buffer of the layout was reallocated since its
// pointers were issued.
func (l *vertexLayout) stale() bool {
	for i, e := range l.sig.entries {
		if e.Buffer.Generation() != l.gens[i] {
			return true
		}
	}
	return false
}

func (l *vertexLayout) references(h *BufferHandle) bool {
	for _, e := range l.sig.entries {
		if e.Buffer == h {
			return true
		}
	}
	return false
}

// releaseQueue collects buffers released outside the draw path. A buffer
// pushes itself onto the queue of every renderer that drew it; the renderer
// drops the affected layouts on its own goroutine.
type releaseQueue struct {
	mu      sync.Mutex
	pending []*BufferHandle
	closed  bool
}

// push queues h unless the renderer is closed.
func (q *releaseQueue) push(h *BufferHandle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.pending = append(q.pending, h)
	}
}

func (q *releaseQueue) take() []*BufferHandle {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := q.pending
	q.pending = nil
	return p
}

func (q *releaseQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = nil
}

type uniformKey struct {
	program uint64
	loc     device.UniformLocation
}

// shadowState is what the renderer believes is bound on its device.
// It is owned by one Renderer and mutated only from its draw path.
type shadowState struct {
	dev   device.Device
	log   func() *slog.Logger
	stats *Stats

	program  *Program
	layout   *vertexLayout
	layouts  *cache.Cache[string, *vertexLayout]
	uniforms map[uniformKey]UniformValue
	fixed    fixedFunction
	released *releaseQueue
}

func newShadowState(dev device.Device, limit int, stats *Stats, log func() *slog.Logger) *shadowState {
	s := &shadowState{
		dev:      dev,
		log:      log,
		stats:    stats,
		uniforms: make(map[uniformKey]UniformValue),
		fixed:    initialFixedFunction(),
		released: &releaseQueue{},
	}
	s.layouts = cache.New(limit, s.releaseLayout)
	return s
}

// releaseLayout deletes the device object of a layout leaving the cache.
func (s *shadowState) releaseLayout(key string, l *vertexLayout) {
	s.dev.DeleteVertexArray(l.vao)
	if s.layout == l {
		// Deleting the bound vertex array reverts the binding to none.
		s.layout = nil
	}
	s.log().Debug("shadow: vertex layout released", "layout", l.vao, "signature", key)
}

// setState moves the device to program p drawing from sig, issuing only the
// calls whose effect is not already in place.
func (s *shadowState) setState(p *Program, sig LayoutSignature) error {
	if s.program != p {
		s.dev.UseProgram(p.handle)
		s.program = p
		s.stats.ProgramBinds++
	}

	if err := s.bindLayout(sig); err != nil {
		return err
	}

	for _, u := range p.resolved {
		v := u.src.Value()
		k := uniformKey{program: p.id, loc: u.loc}
		if cur, ok := s.uniforms[k]; ok && cur == v {
			s.stats.UniformSkips++
			continue
		}
		s.dev.Uniform(u.loc, v)
		s.uniforms[k] = v
		s.stats.UniformUploads++
	}

	s.stats.StateChanges += uint64(s.fixed.apply(s.dev, p.state))
	return nil
}

func (s *shadowState) bindLayout(sig LayoutSignature) error {
	if l, ok := s.layouts.Get(sig.key); ok {
		s.stats.LayoutHits++
		if s.layout != l {
			s.dev.BindVertexArray(l.vao)
			s.layout = l
			s.stats.LayoutBinds++
		}
		if l.stale() {
			s.issuePointers(l)
			s.stats.LayoutReissues++
			s.log().Debug("shadow: vertex layout reissued", "layout", l.vao, "signature", sig.key)
		}
		return nil
	}

	s.stats.LayoutMisses++
	vao, err := s.dev.CreateVertexArray()
	if err != nil {
		return &VertexLayoutError{Err: err}
	}
	l := &vertexLayout{vao: vao, sig: sig, gens: make([]uint64, len(sig.entries))}
	s.dev.BindVertexArray(vao)
	s.layout = l
	s.stats.LayoutBinds++
	s.issuePointers(l)
	s.stats.LayoutCreates++

	before := s.layouts.Stats().Evictions
	s.layouts.Set(sig.key, l)
	s.stats.LayoutEvictions += s.layouts.Stats().Evictions - before

	s.log().Debug("shadow: vertex layout created",
		"layout", vao, "buffers", sig.Len(), "bindings", sig.Bindings())
	return nil
}

// issuePointers records every binding of l into its vertex array, which must
// be bound.
func (s *shadowState) issuePointers(l *vertexLayout) {
	for i, e := range l.sig.entries {
		s.dev.BindBuffer(e.Buffer.deviceBuffer())
		for _, b := range e.Bindings {
			s.dev.EnableVertexAttribArray(b.Location)
			if b.Integer {
				s.dev.VertexAttribIPointer(b.Location, b.Components, b.Type, b.Stride, b.Offset)
			} else {
				s.dev.VertexAttribPointer(b.Location, b.Components, b.Type, b.Normalized, b.Stride, b.Offset)
			}
			if b.Divisor != 0 {
				s.dev.VertexAttribDivisor(b.Location, b.Divisor)
			}
		}
		l.gens[i] = e.Buffer.Generation()
	}
}

// forgetBuffer drops every layout built on h.
func (s *shadowState) forgetBuffer(h *BufferHandle) int {
	return s.layouts.DeleteFunc(func(_ string, l *vertexLayout) bool {
		return l.references(h)
	})
}

// observe asks h to report its release to this state.
func (s *shadowState) observe(h *BufferHandle) {
	h.addObserver(s.released)
}

// dropReleased drops the layouts of buffers released since the last call.
func (s *shadowState) dropReleased() int {
	n := 0
	for _, h := range s.released.take() {
		if d := s.forgetBuffer(h); d > 0 {
			s.log().Debug("shadow: layouts dropped with released buffer", "buffer", h.id, "layouts", d)
			n += d
		}
	}
	return n
}

// forgetProgram drops the shadow values of p.
func (s *shadowState) forgetProgram(p *Program) {
	for k := range s.uniforms {
		if k.program == p.id {
			delete(s.uniforms, k)
		}
	}
	if s.program == p {
		s.program = nil
	}
}

// reset deletes every cached layout and forgets everything believed bound.
func (s *shadowState) reset() {
	s.layouts.Clear()
	s.program = nil
	s.layout = nil
	clear(s.uniforms)
	s.fixed = initialFixedFunction()
}
