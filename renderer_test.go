package shadow

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/shadow/backend/recorder"
	"github.com/gogpu/shadow/device"
	"github.com/gogpu/shadow/internal/shadertest"
)

type vertex2 struct {
	Position [2]float32
}

type coloredVertex struct {
	Position [2]float32
	Color    [4]uint8 `attr:"color,normalized"`
}

type instanceOffset struct {
	Offset [2]float32
}

func triangle() []vertex2 {
	return []vertex2{
		{[2]float32{-0.5, -0.5}},
		{[2]float32{0.5, -0.5}},
		{[2]float32{0.5, 0.5}},
	}
}

func vertices(n int) []vertex2 {
	out := make([]vertex2, n)
	for i := range out {
		out[i].Position = [2]float32{float32(i), float32(-i)}
	}
	return out
}

func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *recorder.Device) {
	t.Helper()
	dev := recorder.New()
	r, err := NewRenderer(dev, opts...)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r, dev
}

func mustBuffer[T any](t *testing.T, data []T, opts ...BufferOption) *Buffer[T] {
	t.Helper()
	b, err := NewBuffer(data, opts...)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	return b
}

func solidProgram(color UniformSource) *Program {
	return NewProgram(shadertest.SolidVertex, shadertest.SolidFragment, device.Triangles).
		WithUniform("u_color", color)
}

func mustRender(t *testing.T, r *Renderer, p *Program, src VertexSource) {
	t.Helper()
	if err := r.Render(p, src); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := r.CheckError(); err != nil {
		t.Fatalf("device error after Render(): %v", err)
	}
}

func TestTriangleScenario(t *testing.T) {
	r, dev := newTestRenderer(t)
	buf := mustBuffer(t, triangle())
	p := solidProgram(NewUniform([4]float32{1, 0, 0, 1}))

	mustRender(t, r, p, buf)

	for _, c := range []struct {
		op   recorder.Op
		want int
	}{
		{recorder.OpCreateBuffer, 1},
		{recorder.OpBufferData, 1},
		{recorder.OpCreateVertexArray, 1},
		{recorder.OpUseProgram, 1},
		{recorder.OpUniform, 1},
		{recorder.OpDrawArrays, 1},
	} {
		if got := dev.Count(c.op); got != c.want {
			t.Errorf("first draw: %s called %d times, want %d", c.op, got, c.want)
		}
	}
	draws := dev.Draws()
	if len(draws) != 1 || draws[0].Count != 3 || draws[0].Mode != device.Triangles {
		t.Fatalf("Draws() = %+v, want one Triangles draw of 3 vertices", draws)
	}

	dev.Reset()
	mustRender(t, r, p, buf)

	if n := dev.Mutations(); n != 0 {
		t.Errorf("redraw issued %d state changes, want 0:\n%s", n, dev.Calls())
	}
	if got := dev.Count(recorder.OpDrawArrays); got != 1 {
		t.Errorf("redraw: DrawArrays called %d times, want 1", got)
	}

	s := r.Stats()
	if s.Draws != 2 || s.ProgramBinds != 1 || s.LayoutCreates != 1 || s.BufferAllocs != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if s.UniformUploads != 1 || s.UniformSkips != 1 {
		t.Errorf("uniform uploads/skips = %d/%d, want 1/1", s.UniformUploads, s.UniformSkips)
	}
}

func TestGrowScenario(t *testing.T) {
	r, dev := newTestRenderer(t)
	buf := mustBuffer(t, triangle())
	p := solidProgram(ConstUniform(ValueOf([4]float32{0, 1, 0, 1})))

	mustRender(t, r, p, buf)
	dev.Reset()

	buf.SetData(vertices(10))
	mustRender(t, r, p, buf)

	for _, c := range []struct {
		op   recorder.Op
		want int
	}{
		{recorder.OpDeleteBuffer, 1},
		{recorder.OpCreateBuffer, 1},
		{recorder.OpBufferData, 1},
		{recorder.OpCreateVertexArray, 0},
		{recorder.OpVertexAttribPointer, 1},
	} {
		if got := dev.Count(c.op); got != c.want {
			t.Errorf("grow: %s called %d times, want %d", c.op, got, c.want)
		}
	}
	if draws := dev.Draws(); len(draws) != 1 || draws[0].Count != 10 {
		t.Errorf("Draws() = %+v, want one draw of 10 vertices", draws)
	}
	if s := r.Stats(); s.BufferReallocs != 1 || s.LayoutReissues != 1 || s.LayoutCreates != 1 {
		t.Errorf("Stats() = %+v, want 1 realloc, 1 reissue, 1 layout", s)
	}
	if got := r.LayoutCount(); got != 1 {
		t.Errorf("LayoutCount() = %d, want 1", got)
	}
}

func TestGrowthCorrectness(t *testing.T) {
	r, dev := newTestRenderer(t)
	buf := mustBuffer[vertex2](t, nil)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))

	const n, m = 4, 9

	buf.SetData(vertices(n))
	mustRender(t, r, p, buf)
	buf.SetData(vertices(n))
	mustRender(t, r, p, buf)
	if s := r.Stats(); s.BufferReallocs != 0 || s.BufferUpdates != 1 {
		t.Fatalf("same size: reallocs=%d updates=%d, want 0 and 1", s.BufferReallocs, s.BufferUpdates)
	}

	buf.SetData(vertices(m))
	mustRender(t, r, p, buf)
	if s := r.Stats(); s.BufferReallocs != 1 {
		t.Fatalf("grow: reallocs=%d, want 1", s.BufferReallocs)
	}

	for _, k := range []int{m, n, 1, m - 1} {
		buf.SetData(vertices(k))
		mustRender(t, r, p, buf)
	}
	if s := r.Stats(); s.BufferReallocs != 1 {
		t.Errorf("after shrinking: reallocs=%d, want 1", s.BufferReallocs)
	}
	if got := buf.Handle().Capacity(); got != m*8 {
		t.Errorf("Capacity() = %d, want %d", got, m*8)
	}
	if got := dev.Count(recorder.OpCreateBuffer); got != 2 {
		t.Errorf("CreateBuffer called %d times, want 2", got)
	}
}

func TestSignatureIdentity(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	a := mustBuffer(t, triangle())
	b := mustBuffer(t, triangle())

	mustRender(t, r, p, a)
	mustRender(t, r, p, a)
	if got := dev.Count(recorder.OpCreateVertexArray); got != 1 {
		t.Fatalf("same buffer twice: %d vertex arrays, want 1", got)
	}

	mustRender(t, r, p, b)
	if got := dev.Count(recorder.OpCreateVertexArray); got != 2 {
		t.Errorf("equal content, different buffer: %d vertex arrays, want 2", got)
	}

	sigA, err := matchAttributes(p, []drawSource{{h: a.Handle()}}, false, Logger())
	if err != nil {
		t.Fatal(err)
	}
	sigA2, _ := matchAttributes(p, []drawSource{{h: a.Handle()}}, false, Logger())
	sigB, _ := matchAttributes(p, []drawSource{{h: b.Handle()}}, false, Logger())
	if !sigA.sig.Equal(sigA2.sig) {
		t.Errorf("signatures of the same draw differ: %s vs %s", sigA.sig, sigA2.sig)
	}
	if sigA.sig.Equal(sigB.sig) {
		t.Errorf("signatures of different buffers are equal: %s", sigA.sig)
	}
}

func TestAttributeSuperset(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, []coloredVertex{
		{[2]float32{0, 0}, [4]uint8{255, 0, 0, 255}},
		{[2]float32{1, 0}, [4]uint8{0, 255, 0, 255}},
		{[2]float32{0, 1}, [4]uint8{0, 0, 255, 255}},
	})

	mustRender(t, r, p, buf)

	if got := dev.Count(recorder.OpVertexAttribPointer); got != 1 {
		t.Errorf("VertexAttribPointer called %d times, want 1 (position only)", got)
	}
	m, err := matchAttributes(p, []drawSource{{h: buf.Handle()}}, false, Logger())
	if err != nil {
		t.Fatalf("matchAttributes() error = %v", err)
	}
	entries := m.sig.Entries()
	if len(entries) != 1 || len(entries[0].Bindings) != 1 {
		t.Fatalf("signature %s, want one binding", m.sig)
	}
	want := BufferBinding{Name: "position", Location: 0, Type: device.Float, Components: 2, Stride: 12, Offset: 0}
	if got := entries[0].Bindings[0]; got != want {
		t.Errorf("binding = %+v, want %+v", got, want)
	}
	if s := r.Stats(); s.EmptyBindings != 0 {
		t.Errorf("EmptyBindings = %d, want 0", s.EmptyBindings)
	}
}

func TestColoredAttributes(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := NewProgram(shadertest.ColoredVertex, shadertest.ColoredFragment, device.Triangles)
	buf := mustBuffer(t, []coloredVertex{
		{[2]float32{0, 0}, [4]uint8{255, 0, 0, 255}},
		{[2]float32{1, 0}, [4]uint8{0, 255, 0, 255}},
		{[2]float32{0, 1}, [4]uint8{0, 0, 255, 255}},
	})

	mustRender(t, r, p, buf)

	calls := dev.Calls().String()
	if !strings.Contains(calls, "loc=1 UByte x4 norm=true stride=12 offset=8") {
		t.Errorf("normalized color pointer missing from calls:\n%s", calls)
	}
}

func TestUniformDiff(t *testing.T) {
	r, dev := newTestRenderer(t)
	color := NewUniform([4]float32{1, 0, 0, 1})
	p := solidProgram(color)
	buf := mustBuffer(t, triangle())

	mustRender(t, r, p, buf)
	dev.Reset()

	color.Set([4]float32{1, 0, 0, 1})
	mustRender(t, r, p, buf)
	if got := dev.Count(recorder.OpUniform); got != 0 {
		t.Errorf("same value: %d uniform uploads, want 0", got)
	}

	color.Set([4]float32{0, 0, 1, 1})
	mustRender(t, r, p, buf)
	if got := dev.Count(recorder.OpUniform); got != 1 {
		t.Errorf("new value: %d uniform uploads, want 1", got)
	}

	color.Update(func(c [4]float32) [4]float32 { return c })
	mustRender(t, r, p, buf)
	if got := dev.Count(recorder.OpUniform); got != 1 {
		t.Errorf("unchanged after Update: %d uniform uploads, want 1", got)
	}

	loc, _ := dev.UniformLocation(p.handle, "u_color")
	if v, _ := dev.UniformValue(p.handle, loc); v != ValueOf([4]float32{0, 0, 1, 1}) {
		t.Errorf("device holds %v, want the last set color", v)
	}
}

func TestUniformShadowIsPerProgram(t *testing.T) {
	r, dev := newTestRenderer(t)
	buf := mustBuffer(t, triangle())
	red := ConstUniform(ValueOf([4]float32{1, 0, 0, 1}))
	blue := ConstUniform(ValueOf([4]float32{0, 0, 1, 1}))
	p1 := solidProgram(red)
	p2 := solidProgram(blue)

	for range 3 {
		mustRender(t, r, p1, buf)
		mustRender(t, r, p2, buf)
	}

	if got := dev.Count(recorder.OpUniform); got != 2 {
		t.Errorf("alternating programs: %d uniform uploads, want 2", got)
	}
	if got := dev.Count(recorder.OpUseProgram); got != 6 {
		t.Errorf("alternating programs: %d program binds, want 6", got)
	}
	if got := dev.Count(recorder.OpCreateVertexArray); got != 1 {
		t.Errorf("programs with equal inputs share the layout: %d vertex arrays, want 1", got)
	}
}

func TestProgramResolvesOnce(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())

	if p.Bound() {
		t.Fatal("new program reports Bound")
	}
	mustRender(t, r, p, buf)
	mustRender(t, r, p, buf)

	if !p.Bound() {
		t.Error("program not Bound after a draw")
	}
	if got := dev.Count(recorder.OpCompileShader); got != 2 {
		t.Errorf("CompileShader called %d times, want 2", got)
	}
	if got := dev.Count(recorder.OpLinkProgram); got != 1 {
		t.Errorf("LinkProgram called %d times, want 1", got)
	}
	if _, _, shaders, programs := dev.LiveObjects(); shaders != 0 || programs != 1 {
		t.Errorf("live shaders/programs = %d/%d, want 0/1", shaders, programs)
	}
	if a, ok := p.Attribute("position"); !ok || a.Components != 2 || a.Type != device.Float {
		t.Errorf("Attribute(position) = %+v, %v", a, ok)
	}
}

func TestProgramErrors(t *testing.T) {
	buf := mustBuffer(t, triangle())
	color := ConstUniform(ValueOf([4]float32{1, 1, 1, 1}))

	tests := []struct {
		name    string
		program func() *Program
		target  error
	}{
		{
			name: "vertex compile",
			program: func() *Program {
				return NewProgram("@vertex fn broken(", shadertest.SolidFragment, device.Triangles)
			},
			target: ErrShaderCompile,
		},
		{
			name: "fragment compile",
			program: func() *Program {
				return NewProgram(shadertest.SolidVertex, "not wgsl", device.Triangles)
			},
			target: ErrShaderCompile,
		},
		{
			name: "link",
			program: func() *Program {
				return NewProgram(shadertest.SolidVertex, shadertest.ColoredFragment, device.Triangles)
			},
			target: ErrShaderLink,
		},
		{
			name: "unknown uniform",
			program: func() *Program {
				return solidProgram(color).WithUniform("u_missing", color)
			},
			target: ErrUnknownUniform,
		},
		{
			name: "duplicate uniform",
			program: func() *Program {
				return solidProgram(color).WithUniform("u_color", color)
			},
			target: ErrDuplicateUniform,
		},
		{
			name: "nil uniform source",
			program: func() *Program {
				return NewProgram(shadertest.SolidVertex, shadertest.SolidFragment, device.Triangles).
					WithUniform("u_color", nil)
			},
			target: ErrNilArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, dev := newTestRenderer(t)
			p := tt.program()

			err := r.Render(p, buf)
			if !errors.Is(err, tt.target) {
				t.Fatalf("Render() error = %v, want %v", err, tt.target)
			}
			compiles := dev.Count(recorder.OpCompileShader)

			// Failure is permanent and not retried.
			if err2 := r.Render(p, buf); !errors.Is(err2, tt.target) {
				t.Errorf("second Render() error = %v, want %v", err2, tt.target)
			}
			if got := dev.Count(recorder.OpCompileShader); got != compiles {
				t.Errorf("failed program compiled again (%d -> %d)", compiles, got)
			}
			if p.Err() == nil {
				t.Error("Err() = nil for a failed program")
			}
			if _, _, shaders, programs := dev.LiveObjects(); shaders != 0 || programs != 0 {
				t.Errorf("failed program leaked %d shaders and %d programs", shaders, programs)
			}
			if len(dev.Draws()) != 0 {
				t.Error("failed program was drawn")
			}
		})
	}
}

func TestShaderCompileErrorCarriesLog(t *testing.T) {
	r, _ := newTestRenderer(t)
	p := NewProgram(shadertest.SolidVertex, "fn (", device.Triangles)
	err := r.Render(p, mustBuffer(t, triangle()))

	var ce *ShaderCompileError
	if !errors.As(err, &ce) {
		t.Fatalf("Render() error = %v, want *ShaderCompileError", err)
	}
	if ce.Stage != device.FragmentStage || ce.Log == "" {
		t.Errorf("ShaderCompileError = %+v, want fragment stage with a log", ce)
	}
}

func TestAttachUniformAfterBind(t *testing.T) {
	r, _ := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	mustRender(t, r, p, mustBuffer(t, triangle()))

	err := p.AttachUniform("u_other", ConstUniform(ValueOf(float32(1))))
	if !errors.Is(err, ErrProgramBound) {
		t.Errorf("AttachUniform() on bound program error = %v, want ErrProgramBound", err)
	}
}

// arrayDevice reports every attribute as a two-element array.
type arrayDevice struct {
	*recorder.Device
}

func (d arrayDevice) ActiveAttributes(p device.Program) ([]device.ActiveAttribute, error) {
	attrs, err := d.Device.ActiveAttributes(p)
	for i := range attrs {
		attrs[i].Size = 2
	}
	return attrs, err
}

func TestArrayAttributeRejected(t *testing.T) {
	dev := arrayDevice{recorder.New()}
	r, err := NewRenderer(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	p := NewProgram(shadertest.SolidVertex, shadertest.SolidFragment, device.Triangles)
	err = r.Render(p, mustBuffer(t, triangle()))
	if !errors.Is(err, ErrAttributeArray) {
		t.Fatalf("Render() error = %v, want ErrAttributeArray", err)
	}
	if !strings.Contains(err.Error(), "position") {
		t.Errorf("error %q should name the attribute", err)
	}
	if _, _, _, programs := dev.LiveObjects(); programs != 0 {
		t.Errorf("rejected program left %d device programs", programs)
	}
}

type intVertex struct {
	Position [2]int32
}

func TestAttributeTypeMismatch(t *testing.T) {
	ints := []intVertex{{[2]int32{0, 0}}, {[2]int32{1, 0}}, {[2]int32{0, 1}}}

	t.Run("strict", func(t *testing.T) {
		r, dev := newTestRenderer(t)
		p := NewProgram(shadertest.SolidVertex, shadertest.SolidFragment, device.Triangles)
		err := r.Render(p, mustBuffer(t, ints))
		if !errors.Is(err, ErrAttributeTypeMismatch) {
			t.Fatalf("Render() error = %v, want ErrAttributeTypeMismatch", err)
		}
		if len(dev.Draws()) != 0 {
			t.Error("mismatched draw was issued")
		}
	})

	t.Run("permissive", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
		r, dev := newTestRenderer(t, WithPermissiveAttributeTypes(), WithLogger(logger))
		p := NewProgram(shadertest.SolidVertex, shadertest.SolidFragment, device.Triangles)

		mustRender(t, r, p, mustBuffer(t, ints))

		if len(dev.Draws()) != 1 {
			t.Fatal("permissive draw was not issued")
		}
		if !strings.Contains(logs.String(), "attribute type mismatch") {
			t.Errorf("no mismatch warning in log:\n%s", logs.String())
		}
		// The buffer's declared type is used, converted to float by the device.
		if got := dev.Count(recorder.OpVertexAttribPointer); got != 1 {
			t.Errorf("VertexAttribPointer called %d times, want 1", got)
		}
	})
}

type taggedVertex struct {
	Position [2]float32
	Tag      uint32
}

func TestIntegerAttribute(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := NewProgram(shadertest.TaggedVertex, shadertest.TaggedFragment, device.Triangles)
	buf := mustBuffer(t, []taggedVertex{
		{[2]float32{0, 0}, 1},
		{[2]float32{1, 0}, 2},
		{[2]float32{0, 1}, 3},
	})

	mustRender(t, r, p, buf)

	if got := dev.Count(recorder.OpVertexAttribIPointer); got != 1 {
		t.Errorf("VertexAttribIPointer called %d times, want 1", got)
	}
	if got := dev.Count(recorder.OpVertexAttribPointer); got != 1 {
		t.Errorf("VertexAttribPointer called %d times, want 1", got)
	}
}

func TestRenderInstanced(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := NewProgram(shadertest.InstancedVertex, shadertest.InstancedFragment, device.Triangles).
		WithUniform("u_color", ConstUniform(ValueOf([4]float32{1, 1, 0, 1})))
	shape := mustBuffer(t, triangle())
	offsets := mustBuffer(t, []instanceOffset{{[2]float32{0, 0}}, {[2]float32{1, 1}}, {[2]float32{2, 2}}, {[2]float32{3, 3}}})

	if err := r.RenderInstanced(p, shape, offsets); err != nil {
		t.Fatalf("RenderInstanced() error = %v", err)
	}
	if err := r.CheckError(); err != nil {
		t.Fatalf("device error: %v", err)
	}

	draws := dev.Draws()
	if len(draws) != 1 || draws[0].Count != 3 || draws[0].Instances != 4 {
		t.Fatalf("Draws() = %+v, want 3 vertices x 4 instances", draws)
	}
	if got := dev.Count(recorder.OpVertexAttribDivisor); got != 1 {
		t.Errorf("VertexAttribDivisor called %d times, want 1", got)
	}
	if got := dev.Count(recorder.OpCreateBuffer); got != 2 {
		t.Errorf("CreateBuffer called %d times, want 2", got)
	}

	// More instances than before: only the instance buffer grows.
	dev.Reset()
	offsets.SetData(make([]instanceOffset, 16))
	if err := r.RenderInstanced(p, shape, offsets); err != nil {
		t.Fatalf("RenderInstanced() error = %v", err)
	}
	if err := r.CheckError(); err != nil {
		t.Fatalf("device error after growing instances: %v", err)
	}
	if got := dev.Count(recorder.OpCreateVertexArray); got != 0 {
		t.Errorf("growing instances created %d vertex arrays, want 0", got)
	}
	if got := dev.Draws()[0].Instances; got != 16 {
		t.Errorf("Instances = %d, want 16", got)
	}

	if err := r.RenderInstanced(p, shape, nil); !errors.Is(err, ErrNilArgument) {
		t.Errorf("RenderInstanced(nil instances) error = %v, want ErrNilArgument", err)
	}
}

func TestDummyBuffer(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := NewProgram(shadertest.IndexedVertex, shadertest.IndexedFragment, device.Triangles).
		WithUniform("u_color", ConstUniform(ValueOf([4]float32{0, 0, 0, 1})))

	mustRender(t, r, p, DummyBuffer{Count: 3})
	mustRender(t, r, p, DummyBuffer{Count: 6})

	if got := dev.Count(recorder.OpCreateBuffer); got != 0 {
		t.Errorf("dummy draw created %d buffers", got)
	}
	if got := dev.Count(recorder.OpCreateVertexArray); got != 1 {
		t.Errorf("dummy draws created %d vertex arrays, want 1", got)
	}
	draws := dev.Draws()
	if len(draws) != 2 || draws[0].Count != 3 || draws[1].Count != 6 {
		t.Errorf("Draws() = %+v", draws)
	}
}

func TestEmptyDrawSkipped(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))

	if err := r.Render(p, mustBuffer[vertex2](t, nil)); err != nil {
		t.Fatalf("Render(empty) error = %v", err)
	}
	if err := r.Render(p, DummyBuffer{}); err != nil {
		t.Fatalf("Render(DummyBuffer{}) error = %v", err)
	}
	if got := len(dev.Draws()); got != 0 {
		t.Errorf("%d draws issued for empty sources", got)
	}
	if got := dev.Count(recorder.OpCreateBuffer); got != 0 {
		t.Errorf("empty buffer allocated %d device buffers", got)
	}
	if !p.Bound() {
		t.Error("program should still be compiled by an empty draw")
	}
}

func TestEmptyBindingsCounted(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	r, _ := newTestRenderer(t, WithLogger(logger))
	p := NewProgram(shadertest.InstancedVertex, shadertest.InstancedFragment, device.Triangles)

	type unrelated struct {
		Weight float32
	}
	shape := mustBuffer(t, triangle())
	extra := mustBuffer(t, []unrelated{{1}, {2}})

	if err := r.RenderInstanced(p, shape, extra); err != nil {
		t.Fatalf("RenderInstanced() error = %v", err)
	}
	if s := r.Stats(); s.EmptyBindings != 1 {
		t.Errorf("EmptyBindings = %d, want 1", s.EmptyBindings)
	}
	if !strings.Contains(logs.String(), "contributes no attributes") {
		t.Errorf("no warning for the unused buffer:\n%s", logs.String())
	}
}

func TestGraphicsStateDiff(t *testing.T) {
	r, dev := newTestRenderer(t)
	buf := mustBuffer(t, triangle())
	color := ConstUniform(ValueOf([4]float32{1, 1, 1, 0.5}))
	blended := solidProgram(color).WithState(GraphicsState{Blend: AlphaBlending()})
	plain := solidProgram(color)
	culled := solidProgram(color).WithState(GraphicsState{Cull: device.Front, Depth: device.LessEqual})

	mustRender(t, r, blended, buf)
	if got, want := dev.Count(recorder.OpEnable), 1; got != want {
		t.Errorf("blended: Enable called %d times, want %d", got, want)
	}
	if got := dev.Count(recorder.OpBlendFuncSeparate); got != 1 {
		t.Errorf("blended: BlendFuncSeparate called %d times, want 1", got)
	}
	if got := dev.Count(recorder.OpBlendEquation); got != 0 {
		t.Errorf("default equation should not be reissued, got %d calls", got)
	}
	if !dev.Enabled(device.CapBlend) {
		t.Error("blending not enabled on the device")
	}

	mustRender(t, r, plain, buf)
	mustRender(t, r, blended, buf)
	if got := dev.Count(recorder.OpDisable); got != 1 {
		t.Errorf("Disable called %d times, want 1", got)
	}
	if got := dev.Count(recorder.OpBlendFuncSeparate); got != 1 {
		t.Errorf("blend factors reissued: %d calls, want 1", got)
	}

	dev.Reset()
	mustRender(t, r, culled, buf)
	if got := dev.Count(recorder.OpCullFace); got != 1 {
		t.Errorf("CullFace called %d times, want 1", got)
	}
	if got := dev.Count(recorder.OpDepthFunc); got != 1 {
		t.Errorf("DepthFunc called %d times, want 1", got)
	}
	if !dev.Enabled(device.CapCullFace) || !dev.Enabled(device.CapDepthTest) || dev.Enabled(device.CapBlend) {
		t.Error("device capabilities do not match the culled program state")
	}

	dev.Reset()
	mustRender(t, r, culled, buf)
	if n := dev.Mutations(); n != 0 {
		t.Errorf("redraw with unchanged state issued %d calls:\n%s", n, dev.Calls())
	}
}

func TestLayoutCacheEviction(t *testing.T) {
	r, dev := newTestRenderer(t, WithLayoutCacheLimit(2))
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	bufs := []*Buffer[vertex2]{
		mustBuffer(t, triangle()),
		mustBuffer(t, triangle()),
		mustBuffer(t, triangle()),
	}

	for _, b := range bufs {
		mustRender(t, r, p, b)
	}

	s := r.Stats()
	if s.LayoutEvictions == 0 {
		t.Fatal("no layout evicted past the cache limit")
	}
	if got := dev.Count(recorder.OpDeleteVertexArray); uint64(got) != s.LayoutEvictions {
		t.Errorf("DeleteVertexArray called %d times, want %d", got, s.LayoutEvictions)
	}
	if _, vaos, _, _ := dev.LiveObjects(); vaos != r.LayoutCount() || vaos > 2 {
		t.Errorf("live vertex arrays = %d, cached = %d, limit 2", vaos, r.LayoutCount())
	}

	// The newest layout survives eviction.
	dev.Reset()
	mustRender(t, r, p, bufs[2])
	if got := dev.Count(recorder.OpCreateVertexArray); got != 0 {
		t.Errorf("newest layout was evicted")
	}
	// An evicted one is rebuilt.
	mustRender(t, r, p, bufs[0])
	if got := dev.Count(recorder.OpCreateVertexArray); got != 1 {
		t.Errorf("evicted layout: %d vertex arrays created, want 1", got)
	}
}

func TestReleaseBuffer(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())
	other := mustBuffer(t, triangle())

	mustRender(t, r, p, buf)
	mustRender(t, r, p, other)
	r.ReleaseBuffer(buf)

	if got := dev.Count(recorder.OpDeleteBuffer); got != 1 {
		t.Errorf("DeleteBuffer called %d times, want 1", got)
	}
	if got := r.LayoutCount(); got != 1 {
		t.Errorf("LayoutCount() = %d after release, want 1", got)
	}
	if buf.Handle().Capacity() != 0 || !buf.Handle().Dirty() {
		t.Error("released buffer should have no allocation and be dirty")
	}

	dev.Reset()
	mustRender(t, r, p, buf)
	if got := dev.Count(recorder.OpCreateBuffer); got != 1 {
		t.Errorf("redraw after release: %d buffers created, want 1", got)
	}
	if got := dev.Count(recorder.OpCreateVertexArray); got != 1 {
		t.Errorf("redraw after release: %d vertex arrays created, want 1", got)
	}
}

func TestBufferReleaseOutsideRenderer(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())
	mustRender(t, r, p, buf)

	buf.Release()
	if got := r.LayoutCount(); got != 0 {
		t.Errorf("LayoutCount() = %d after Buffer.Release, want 0", got)
	}
	if got := dev.Count(recorder.OpDeleteVertexArray); got != 1 {
		t.Errorf("DeleteVertexArray called %d times, want 1", got)
	}

	dev.Reset()
	mustRender(t, r, p, buf)
	if got := dev.Count(recorder.OpCreateVertexArray); got != 1 {
		t.Errorf("%d vertex arrays created after release, want 1", got)
	}
	if got := dev.Count(recorder.OpVertexAttribPointer); got != 1 {
		t.Errorf("VertexAttribPointer called %d times, want 1", got)
	}
}

func TestBufferReleaseLoopUnbounded(t *testing.T) {
	r, dev := newTestRenderer(t, WithLayoutCacheLimit(0))
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))

	for i := range 8 {
		buf := mustBuffer(t, triangle())
		mustRender(t, r, p, buf)
		buf.Release()
		if got := r.LayoutCount(); got != 0 {
			t.Fatalf("iteration %d: LayoutCount() = %d, want 0", i, got)
		}
	}
	if _, vaos, _, _ := dev.LiveObjects(); vaos != 0 {
		t.Errorf("%d vertex arrays live after releasing every buffer, want 0", vaos)
	}
	if buffers, _, _, _ := dev.LiveObjects(); buffers != 0 {
		t.Errorf("%d buffers live after releasing every buffer, want 0", buffers)
	}
}

func TestBufferReleaseReachesEveryRenderer(t *testing.T) {
	dev := recorder.New()
	var renderers []*Renderer
	for range 2 {
		r, err := NewRenderer(dev)
		if err != nil {
			t.Fatalf("NewRenderer() error = %v", err)
		}
		t.Cleanup(func() { _ = r.Close() })
		renderers = append(renderers, r)
	}
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())
	for _, r := range renderers {
		mustRender(t, r, p, buf)
	}

	buf.Release()
	for i, r := range renderers {
		if got := r.LayoutCount(); got != 0 {
			t.Errorf("renderer %d: LayoutCount() = %d, want 0", i, got)
		}
	}
}

func TestBufferReleaseAfterClose(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())
	mustRender(t, r, p, buf)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	dev.Reset()
	buf.Release()
	if got := dev.Count(recorder.OpDeleteVertexArray); got != 0 {
		t.Errorf("closed renderer deleted %d vertex arrays, want 0", got)
	}
	if got := r.LayoutCount(); got != 0 {
		t.Errorf("LayoutCount() = %d after Close, want 0", got)
	}
}

func TestReleaseProgram(t *testing.T) {
	r, dev := newTestRenderer(t)
	buf := mustBuffer(t, triangle())
	red := ConstUniform(ValueOf([4]float32{1, 0, 0, 1}))
	p1 := solidProgram(red)
	mustRender(t, r, p1, buf)
	old := p1.handle

	r.ReleaseProgram(p1)
	if err := r.Render(p1, buf); !errors.Is(err, ErrProgramReleased) {
		t.Errorf("Render(released) error = %v, want ErrProgramReleased", err)
	}

	// The device reuses the name for the next program. The shadow must not
	// mistake it for the released one.
	dev.Reset()
	p2 := solidProgram(red)
	mustRender(t, r, p2, buf)
	if p2.handle != old {
		t.Logf("device program name not reused (%d, %d)", old, p2.handle)
	}
	if got := dev.Count(recorder.OpUseProgram); got != 1 {
		t.Errorf("UseProgram called %d times, want 1", got)
	}
	if got := dev.Count(recorder.OpUniform); got != 1 {
		t.Errorf("Uniform called %d times, want 1", got)
	}
}

func TestCloseRenderer(t *testing.T) {
	dev := recorder.New()
	r, err := NewRenderer(dev)
	if err != nil {
		t.Fatal(err)
	}
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())
	mustRender(t, r, p, buf)
	mustRender(t, r, p, mustBuffer(t, triangle()))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, vaos, _, _ := dev.LiveObjects(); vaos != 0 {
		t.Errorf("Close() left %d vertex arrays", vaos)
	}
	if err := r.Render(p, buf); !errors.Is(err, ErrClosed) {
		t.Errorf("Render() after Close error = %v, want ErrClosed", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestErrorCheck(t *testing.T) {
	r, dev := newTestRenderer(t, WithErrorCheck())
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())

	dev.BindVertexArray(1234) // leaves INVALID_OPERATION pending
	err := r.Render(p, buf)

	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("Render() error = %v, want *DeviceError", err)
	}
	if de.Code != device.InvalidOperation || !errors.Is(err, ErrDevice) {
		t.Errorf("DeviceError = %v", de)
	}
	if err := r.Render(p, buf); err != nil {
		t.Errorf("Render() after the error was read = %v", err)
	}
}

func TestCheckError(t *testing.T) {
	r, dev := newTestRenderer(t)
	if err := r.CheckError(); err != nil {
		t.Fatalf("CheckError() on fresh device = %v", err)
	}
	dev.UseProgram(99)
	if err := r.CheckError(); !errors.Is(err, ErrDevice) {
		t.Errorf("CheckError() = %v, want ErrDevice", err)
	}
}

func TestVertexLayoutCreationFailure(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())

	dev.FailNext(recorder.OpCreateVertexArray, device.ErrOutOfMemory)
	err := r.Render(p, buf)
	if !errors.Is(err, ErrVertexLayoutCreation) || !errors.Is(err, device.ErrOutOfMemory) {
		t.Fatalf("Render() error = %v, want ErrVertexLayoutCreation wrapping ErrOutOfMemory", err)
	}
	if len(dev.Draws()) != 0 {
		t.Error("draw issued without a vertex layout")
	}

	mustRender(t, r, p, buf)
	if got := r.LayoutCount(); got != 1 {
		t.Errorf("LayoutCount() = %d, want 1", got)
	}
}

func TestBufferAllocationFailure(t *testing.T) {
	r, dev := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())

	dev.FailNext(recorder.OpBufferData, device.ErrOutOfMemory)
	if err := r.Render(p, buf); !errors.Is(err, ErrBufferAllocation) {
		t.Fatalf("Render() error = %v, want ErrBufferAllocation", err)
	}
	if buf.Handle().Capacity() != 0 || !buf.Handle().Dirty() {
		t.Error("failed upload should leave the buffer unallocated and dirty")
	}
	if _, bufs, _, _ := dev.LiveObjects(); bufs != 0 {
		t.Errorf("failed upload leaked %d device buffers", bufs)
	}

	mustRender(t, r, p, buf)
}

func TestForeignDevice(t *testing.T) {
	r1, _ := newTestRenderer(t)
	r2, _ := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())
	mustRender(t, r1, p, buf)

	if err := r2.Render(p, mustBuffer(t, triangle())); !errors.Is(err, ErrForeignDevice) {
		t.Errorf("program from another device: error = %v, want ErrForeignDevice", err)
	}
	q := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	if err := r2.Render(q, buf); !errors.Is(err, ErrForeignDevice) {
		t.Errorf("buffer from another device: error = %v, want ErrForeignDevice", err)
	}
}

func TestNilArguments(t *testing.T) {
	if _, err := NewRenderer(nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewRenderer(nil) error = %v, want ErrNilDevice", err)
	}
	r, _ := newTestRenderer(t)
	if err := r.Render(nil, DummyBuffer{Count: 3}); !errors.Is(err, ErrNilArgument) {
		t.Errorf("Render(nil program) error = %v, want ErrNilArgument", err)
	}
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	if err := r.Render(p, nil); !errors.Is(err, ErrNilArgument) {
		t.Errorf("Render(nil source) error = %v, want ErrNilArgument", err)
	}

	tests := []struct {
		name string
		src  VertexSource
	}{
		{"nil typed buffer", (*Buffer[vertex2])(nil)},
		{"nil handle", (*BufferHandle)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Render(p, tt.src); !errors.Is(err, ErrNilArgument) {
				t.Errorf("Render() error = %v, want ErrNilArgument", err)
			}
			if err := r.RenderInstanced(p, DummyBuffer{Count: 3}, tt.src); !errors.Is(err, ErrNilArgument) {
				t.Errorf("RenderInstanced() error = %v, want ErrNilArgument", err)
			}
		})
	}
}

func TestStats(t *testing.T) {
	r, _ := newTestRenderer(t)
	p := solidProgram(ConstUniform(ValueOf([4]float32{1, 1, 1, 1})))
	buf := mustBuffer(t, triangle())
	for range 4 {
		mustRender(t, r, p, buf)
	}

	s := r.Stats()
	if s.LayoutHits != 3 || s.LayoutMisses != 1 {
		t.Errorf("hits/misses = %d/%d, want 3/1", s.LayoutHits, s.LayoutMisses)
	}
	if got := s.HitRate(); got != 0.75 {
		t.Errorf("HitRate() = %v, want 0.75", got)
	}
	if !strings.Contains(s.String(), "draws=4") {
		t.Errorf("String() = %q", s.String())
	}

	r.ResetStats()
	if s := r.Stats(); s != (Stats{}) {
		t.Errorf("Stats() after ResetStats = %+v", s)
	}
	if got := (Stats{}).HitRate(); got != 0 {
		t.Errorf("empty HitRate() = %v", got)
	}
}
