// Package shadertest holds small shader programs shared by tests, examples and
// the demo.
package shadertest

// Solid draws 2D positions with one uniform color.
const (
	SolidVertex = `
@vertex
fn vs_main(@location(0) position: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 0.0, 1.0);
}
`

	SolidFragment = `
@group(0) @binding(0) var<uniform> u_color: vec4<f32>;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return u_color;
}
`
)

// Colored draws 2D positions with a per-vertex color.
const (
	ColoredVertex = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
};

@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) color: vec4<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(position, 0.0, 1.0);
    out.color = color;
    return out;
}
`

	ColoredFragment = `
@fragment
fn fs_main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return color;
}
`
)

// Animated transforms positions with a matrix and fades with time.
const (
	AnimatedVertex = `
@group(0) @binding(0) var<uniform> u_transform: mat4x4<f32>;

@vertex
fn vs_main(@location(0) position: vec2<f32>) -> @builtin(position) vec4<f32> {
    return u_transform * vec4<f32>(position, 0.0, 1.0);
}
`

	AnimatedFragment = `
@group(0) @binding(1) var<uniform> u_time: f32;
@group(0) @binding(2) var<uniform> u_color: vec4<f32>;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    let fade = 0.5 + 0.5 * sin(u_time);
    return vec4<f32>(u_color.rgb * fade, u_color.a);
}
`
)

// Instanced offsets a shared shape by a per-instance position.
const (
	InstancedVertex = `
@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) offset: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position + offset, 0.0, 1.0);
}
`

	InstancedFragment = SolidFragment
)

// Indexed derives a full-screen triangle from the vertex index alone.
const (
	IndexedVertex = `
@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(vi & 1u) * 4 - 1);
    let y = f32(i32(vi >> 1u) * 4 - 1);
    return vec4<f32>(x, y, 0.0, 1.0);
}
`

	IndexedFragment = SolidFragment
)

// Tagged reads an unconverted integer attribute next to the position.
const (
	TaggedVertex = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) @interpolate(flat) tag: u32,
};

@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) tag: u32) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(position, 0.0, 1.0);
    out.tag = tag;
    return out;
}
`

	TaggedFragment = `
@fragment
fn fs_main(@location(0) @interpolate(flat) tag: u32) -> @location(0) vec4<f32> {
    return vec4<f32>(f32(tag & 1u), f32((tag >> 1u) & 1u), 0.0, 1.0);
}
`
)
