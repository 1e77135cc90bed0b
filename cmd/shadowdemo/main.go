// Command shadowdemo draws a few scenes through a shadow renderer and reports
// how many device calls the state shadow elided.
package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadow"
	"github.com/gogpu/shadow/backend"
	_ "github.com/gogpu/shadow/backend/gles"
	_ "github.com/gogpu/shadow/backend/native"
	"github.com/gogpu/shadow/device"
	"github.com/gogpu/shadow/internal/shadertest"
)

type vertex struct {
	Position [2]float32
}

type instance struct {
	Offset [2]float32
}

func main() {
	var (
		name      = flag.String("backend", "", "backend name (gles, native, recorder); empty picks the best available")
		frames    = flag.Int("frames", 60, "animated frames to draw")
		instances = flag.Int("instances", 16, "instances per side of the instanced grid")
		output    = flag.String("output", "", "write the last frame to this PNG file")
		verbose   = flag.Bool("v", false, "log device activity")
	)
	flag.Parse()

	if *verbose {
		shadow.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	b, err := openBackend(*name)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer b.Close()

	r, err := shadow.NewRenderer(b.Device(), shadow.WithErrorCheck())
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer func() { _ = r.Close() }()

	log.Printf("Backend: %s (available: %v)", b.Name(), backend.Available())

	scenes := []struct {
		name string
		draw func(*shadow.Renderer, string) error
	}{
		{"triangle", drawTriangle},
		{"instanced", func(r *shadow.Renderer, bn string) error { return drawInstanced(r, bn, *instances) }},
		{"animated", func(r *shadow.Renderer, bn string) error { return drawAnimated(r, bn, *frames) }},
	}
	for _, s := range scenes {
		r.ResetStats()
		if err := s.draw(r, b.Name()); err != nil {
			log.Fatalf("Scene %s failed: %v", s.name, err)
		}
		log.Printf("%-9s %s", s.name, r.Stats())
	}
	log.Printf("Vertex layouts cached: %d", r.LayoutCount())

	if ps, ok := b.Device().(interface {
		PipelineStats() (hits, misses uint64, size int)
	}); ok {
		hits, misses, size := ps.PipelineStats()
		log.Printf("Pipelines: %d cached, %d hits, %d misses", size, hits, misses)
	}

	if *output != "" {
		if err := savePNG(b.Device(), *output); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Last frame saved to %s", *output)
	}
}

func openBackend(name string) (backend.Backend, error) {
	if name == "" {
		return backend.InitDefault()
	}
	b := backend.Get(name)
	if b == nil {
		return nil, backend.ErrBackendNotAvailable
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// clearTarget resets the color target on backends that have one.
func clearTarget(dev device.Device, r, g, b, a float32) {
	switch d := dev.(type) {
	case interface{ Clear(r, g, b, a float32) }:
		d.Clear(r, g, b, a)
	case interface{ Clear(c gputypes.Color) }:
		d.Clear(gputypes.Color{R: float64(r), G: float64(g), B: float64(b), A: float64(a)})
	}
}

func program(backendName, name string, mode device.DrawMode) *shadow.Program {
	src := shadertest.For(backendName, name)
	return shadow.NewProgram(src.Vertex, src.Fragment, mode)
}

func drawTriangle(r *shadow.Renderer, bn string) error {
	buf, err := shadow.NewBuffer([]vertex{
		{[2]float32{-0.8, -0.8}},
		{[2]float32{0.8, -0.8}},
		{[2]float32{0, 0.8}},
	})
	if err != nil {
		return err
	}
	defer buf.Release()

	p := program(bn, "solid", device.Triangles).
		WithUniform("u_color", shadow.NewUniform([4]float32{1, 0.5, 0, 1}))
	defer r.ReleaseProgram(p)

	clearTarget(r.Device(), 0.1, 0.1, 0.15, 1)
	for range 3 {
		if err := r.Render(p, buf); err != nil {
			return err
		}
	}
	return nil
}

func drawInstanced(r *shadow.Renderer, bn string, n int) error {
	size := 1.6 / float32(n)
	quad, err := shadow.NewBuffer([]vertex{
		{[2]float32{0, 0}},
		{[2]float32{size * 0.8, 0}},
		{[2]float32{0, size * 0.8}},
		{[2]float32{size * 0.8, size * 0.8}},
	})
	if err != nil {
		return err
	}
	defer quad.Release()

	offsets := make([]instance, 0, n*n)
	for y := range n {
		for x := range n {
			offsets = append(offsets, instance{[2]float32{-0.8 + float32(x)*size, -0.8 + float32(y)*size}})
		}
	}
	inst, err := shadow.NewBuffer(offsets)
	if err != nil {
		return err
	}
	defer inst.Release()

	p := program(bn, "instanced", device.TriangleStrip).
		WithUniform("u_color", shadow.NewUniform([4]float32{0.3, 0.8, 1, 0.8})).
		WithState(shadow.GraphicsState{Blend: shadow.AlphaBlending()})
	defer r.ReleaseProgram(p)

	clearTarget(r.Device(), 0.1, 0.1, 0.15, 1)
	return r.RenderInstanced(p, quad, inst)
}

func drawAnimated(r *shadow.Renderer, bn string, frames int) error {
	buf, err := shadow.NewBuffer([]vertex{
		{[2]float32{-0.5, -0.5}},
		{[2]float32{0.5, -0.5}},
		{[2]float32{0, 0.6}},
	})
	if err != nil {
		return err
	}
	defer buf.Release()

	transform := shadow.NewUniform(shadow.IdentityMat4())
	elapsed := shadow.NewUniform(float32(0))
	p := program(bn, "animated", device.Triangles).
		WithUniform("u_transform", transform).
		WithUniform("u_time", elapsed).
		WithUniform("u_color", shadow.ConstUniform(shadow.ValueOf([4]float32{0.9, 0.2, 0.6, 1})))
	defer r.ReleaseProgram(p)

	for frame := range frames {
		t := float32(frame) / 60
		transform.Set(rotation(t))
		elapsed.Set(t * 4)
		clearTarget(r.Device(), 0.1, 0.1, 0.15, 1)
		if err := r.Render(p, buf); err != nil {
			return err
		}
	}
	return nil
}

// rotation returns a column-major rotation about the z axis.
func rotation(angle float32) shadow.Mat4 {
	s, c := float32(math.Sin(float64(angle))), float32(math.Cos(float64(angle)))
	m := shadow.IdentityMat4()
	m[0], m[1] = c, s
	m[4], m[5] = -s, c
	return m
}

func savePNG(dev device.Device, path string) error {
	rp, ok := dev.(interface{ ReadPixels() (*image.RGBA, error) })
	if !ok {
		return backend.ErrBackendNotAvailable
	}
	img, err := rp.ReadPixels()
	if err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
