package shadertest

// GLSL bodies of the same programs for the gles backend. They carry no
// #version line; the backend adds the one its context needs.
const (
	SolidVertexGLSL = `
layout(location = 0) in vec2 position;

void main() {
    gl_Position = vec4(position, 0.0, 1.0);
}
`

	SolidFragmentGLSL = `
uniform vec4 u_color;
out vec4 frag_color;

void main() {
    frag_color = u_color;
}
`

	ColoredVertexGLSL = `
layout(location = 0) in vec2 position;
layout(location = 1) in vec4 color;
out vec4 v_color;

void main() {
    v_color = color;
    gl_Position = vec4(position, 0.0, 1.0);
}
`

	ColoredFragmentGLSL = `
in vec4 v_color;
out vec4 frag_color;

void main() {
    frag_color = v_color;
}
`

	AnimatedVertexGLSL = `
layout(location = 0) in vec2 position;
uniform mat4 u_transform;

void main() {
    gl_Position = u_transform * vec4(position, 0.0, 1.0);
}
`

	AnimatedFragmentGLSL = `
uniform float u_time;
uniform vec4 u_color;
out vec4 frag_color;

void main() {
    float fade = 0.5 + 0.5 * sin(u_time);
    frag_color = vec4(u_color.rgb * fade, u_color.a);
}
`

	InstancedVertexGLSL = `
layout(location = 0) in vec2 position;
layout(location = 1) in vec2 offset;

void main() {
    gl_Position = vec4(position + offset, 0.0, 1.0);
}
`

	InstancedFragmentGLSL = SolidFragmentGLSL

	IndexedVertexGLSL = `
void main() {
    float x = float((gl_VertexID & 1) * 4 - 1);
    float y = float((gl_VertexID >> 1) * 4 - 1);
    gl_Position = vec4(x, y, 0.0, 1.0);
}
`

	IndexedFragmentGLSL = SolidFragmentGLSL

	TaggedVertexGLSL = `
layout(location = 0) in vec2 position;
layout(location = 1) in uint tag;
flat out uint v_tag;

void main() {
    v_tag = tag;
    gl_Position = vec4(position, 0.0, 1.0);
}
`

	TaggedFragmentGLSL = `
flat in uint v_tag;
out vec4 frag_color;

void main() {
    frag_color = vec4(float(v_tag & 1u), float((v_tag >> 1u) & 1u), 0.0, 1.0);
}
`
)

// Pair is a vertex and fragment source for one program.
type Pair struct {
	Vertex, Fragment string
}

// Programs by name, in WGSL and GLSL.
var (
	WGSL = map[string]Pair{
		"solid":     {SolidVertex, SolidFragment},
		"colored":   {ColoredVertex, ColoredFragment},
		"animated":  {AnimatedVertex, AnimatedFragment},
		"instanced": {InstancedVertex, InstancedFragment},
		"indexed":   {IndexedVertex, IndexedFragment},
		"tagged":    {TaggedVertex, TaggedFragment},
	}
	GLSL = map[string]Pair{
		"solid":     {SolidVertexGLSL, SolidFragmentGLSL},
		"colored":   {ColoredVertexGLSL, ColoredFragmentGLSL},
		"animated":  {AnimatedVertexGLSL, AnimatedFragmentGLSL},
		"instanced": {InstancedVertexGLSL, InstancedFragmentGLSL},
		"indexed":   {IndexedVertexGLSL, IndexedFragmentGLSL},
		"tagged":    {TaggedVertexGLSL, TaggedFragmentGLSL},
	}
)

// For returns the sources of the named program in the language a backend
// compiles: GLSL for "gles", WGSL otherwise.
func For(backendName, program string) Pair {
	if backendName == "gles" {
		return GLSL[program]
	}
	return WGSL[program]
}
