package wgsl

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/shadow/device"
)

const vertexSource = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
};

@group(0) @binding(0) var<uniform> u_tint: vec4<f32>;
@group(0) @binding(1) var<uniform> u_scale: f32;

@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) color: vec4<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(position * u_scale, 0.0, 1.0);
    out.color = color * u_tint;
    return out;
}
`

const fragmentSource = `
@group(0) @binding(0) var<uniform> u_tint: vec4<f32>;

@fragment
fn fs_main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return color * u_tint;
}
`

const structInputSource = `
struct Instance {
    @location(2) offset: vec2<f32>,
    @location(3) id: u32,
};

@vertex
fn vs_main(inst: Instance, @builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    let x = f32(vi) + f32(inst.id);
    return vec4<f32>(inst.offset.x + x, inst.offset.y, 0.0, 1.0);
}
`

func mustCompile(t *testing.T, stage device.Stage, src string) *Module {
	t.Helper()
	m, err := Compile(stage, src)
	if err != nil {
		t.Fatalf("Compile(%s) failed: %v", stage, err)
	}
	return m
}

func TestCompileReflectsVertexInputs(t *testing.T) {
	m := mustCompile(t, device.VertexStage, vertexSource)

	if m.EntryPoint != "vs_main" {
		t.Errorf("EntryPoint = %q, want vs_main", m.EntryPoint)
	}
	if len(m.Inputs) != 2 {
		t.Fatalf("len(Inputs) = %d, want 2", len(m.Inputs))
	}
	want := []Varying{
		{Name: "position", Location: 0, Type: device.Float, Components: 2, ArraySize: 1, Supported: true},
		{Name: "color", Location: 1, Type: device.Float, Components: 4, ArraySize: 1, Supported: true},
	}
	for i, w := range want {
		if m.Inputs[i] != w {
			t.Errorf("Inputs[%d] = %+v, want %+v", i, m.Inputs[i], w)
		}
	}
	if len(m.Outputs) != 1 || m.Outputs[0].Location != 0 || m.Outputs[0].Components != 4 {
		t.Errorf("Outputs = %+v, want one vec4 at location 0", m.Outputs)
	}
}

func TestCompileReflectsStructInputs(t *testing.T) {
	m := mustCompile(t, device.VertexStage, structInputSource)

	if len(m.Inputs) != 2 {
		t.Fatalf("Inputs = %+v, want offset and id", m.Inputs)
	}
	if m.Inputs[0].Name != "offset" || m.Inputs[0].Location != 2 || m.Inputs[0].Components != 2 {
		t.Errorf("Inputs[0] = %+v", m.Inputs[0])
	}
	if m.Inputs[1].Name != "id" || m.Inputs[1].Type != device.UInt || m.Inputs[1].Components != 1 {
		t.Errorf("Inputs[1] = %+v", m.Inputs[1])
	}
}

func TestCompileReflectsUniforms(t *testing.T) {
	m := mustCompile(t, device.VertexStage, vertexSource)

	if len(m.Uniforms) != 2 {
		t.Fatalf("Uniforms = %+v, want 2", m.Uniforms)
	}
	kinds := map[string]device.UniformKind{}
	for _, u := range m.Uniforms {
		kinds[u.Name] = u.Kind
	}
	if kinds["u_tint"] != device.UniformVec4 {
		t.Errorf("u_tint kind = %v, want vec4", kinds["u_tint"])
	}
	if kinds["u_scale"] != device.UniformFloat {
		t.Errorf("u_scale kind = %v, want float", kinds["u_scale"])
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		stage device.Stage
		src   string
	}{
		{"syntax", device.VertexStage, "fn vs_main( {"},
		{"wrong stage", device.VertexStage, fragmentSource},
		{"unknown identifier", device.FragmentStage, `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return missing;
}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.stage, tt.src); err == nil {
				t.Fatal("Compile succeeded, want error")
			}
		})
	}

	_, err := Compile(device.VertexStage, fragmentSource)
	if !errors.Is(err, ErrNoEntryPoint) {
		t.Errorf("err = %v, want ErrNoEntryPoint", err)
	}
}

func TestLink(t *testing.T) {
	vs := mustCompile(t, device.VertexStage, vertexSource)
	fs := mustCompile(t, device.FragmentStage, fragmentSource)

	p, err := Link(vs, fs)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if len(p.Attributes) != 2 || p.Attributes[0].Name != "position" {
		t.Errorf("Attributes = %+v", p.Attributes)
	}
	if len(p.Uniforms) != 2 {
		t.Fatalf("Uniforms = %+v, want union of 2", p.Uniforms)
	}
	if u, ok := p.Uniform("u_scale"); !ok || u.Binding != 1 {
		t.Errorf("Uniform(u_scale) = %+v, %v", u, ok)
	}
}

func TestLinkRejectsUnwrittenVarying(t *testing.T) {
	vs := mustCompile(t, device.VertexStage, structInputSource)
	fs := mustCompile(t, device.FragmentStage, fragmentSource)

	_, err := Link(vs, fs)
	var le *device.LinkError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *device.LinkError", err)
	}
	if !strings.Contains(le.Log, "location 0") {
		t.Errorf("Log = %q, want mention of location 0", le.Log)
	}
}

func TestPackUniform(t *testing.T) {
	tests := []struct {
		name string
		v    device.UniformValue
		size int
	}{
		{"float", device.UniformValue{Kind: device.UniformFloat, F: [16]float32{2}}, 16},
		{"vec3", device.UniformValue{Kind: device.UniformVec3, F: [16]float32{1, 2, 3}}, 16},
		{"ivec2", device.UniformValue{Kind: device.UniformIVec2, I: [4]int32{-1, 7}}, 16},
		{"mat2", device.UniformValue{Kind: device.UniformMat2, F: [16]float32{1, 2, 3, 4}}, 16},
		{"mat3", device.UniformValue{Kind: device.UniformMat3, F: [16]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}}, 48},
		{"mat4", device.UniformValue{Kind: device.UniformMat4}, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := PackUniform(tt.v)
			if len(b) != tt.size {
				t.Fatalf("len = %d, want %d", len(b), tt.size)
			}
			if uint64(len(b)) != UniformSize(tt.v.Kind) {
				t.Errorf("UniformSize = %d, len = %d", UniformSize(tt.v.Kind), len(b))
			}
		})
	}

	// Second column of a mat3 starts at byte 16.
	b := PackUniform(device.UniformValue{Kind: device.UniformMat3, F: [16]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}})
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[16:])); got != 4 {
		t.Errorf("mat3 column 1 row 0 = %v, want 4", got)
	}
	if got := binary.LittleEndian.Uint32(b[12:]); got != 0 {
		t.Errorf("mat3 column 0 padding = %#x, want 0", got)
	}
}
