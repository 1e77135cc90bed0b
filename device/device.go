// Package device defines the graphics device boundary used by shadow.
//
// A Device is a retained-mode, GL-style API: objects are referred to by opaque
// handles, vertex array objects capture the buffer bound at the time an
// attribute pointer is set, and draw calls use whatever program, vertex array
// and fixed-function state is current. Backends live under backend/.
//
// Device methods are not safe for concurrent use. A Device belongs to one
// logical thread, in the same way a GL context does.
package device

// Handle types. The zero value of each handle means "none".
type (
	// Buffer names a device buffer object.
	Buffer uint32

	// VertexArray names a vertex layout object.
	VertexArray uint32

	// Shader names a compiled shader stage.
	Shader uint32

	// Program names a linked program.
	Program uint32

	// UniformLocation is a program-relative uniform slot.
	UniformLocation int32
)

// ActiveAttribute is one vertex input reported by program reflection.
type ActiveAttribute struct {
	Name       string
	Location   uint32
	Type       ScalarType
	Components int

	// Size is the array length of the attribute; 1 for non-array inputs.
	Size int
}

// Device is the set of primitive operations the state shadow needs.
type Device interface {
	CreateBuffer() (Buffer, error)
	DeleteBuffer(b Buffer)
	// BindBuffer makes b the current vertex data buffer.
	BindBuffer(b Buffer)
	// BufferData (re)allocates the bound buffer to len(data) bytes and fills it.
	BufferData(data []byte, usage Usage) error
	// BufferSubData writes data into the bound buffer at offset.
	BufferSubData(offset int, data []byte) error

	CreateVertexArray() (VertexArray, error)
	DeleteVertexArray(v VertexArray)
	BindVertexArray(v VertexArray)
	EnableVertexAttribArray(location uint32)
	// VertexAttribPointer records a float (or normalized integer) attribute
	// sourced from the currently bound buffer into the bound vertex array.
	VertexAttribPointer(location uint32, components int, typ ScalarType, normalized bool, stride, offset int)
	// VertexAttribIPointer records an integer attribute.
	VertexAttribIPointer(location uint32, components int, typ ScalarType, stride, offset int)
	VertexAttribDivisor(location, divisor uint32)

	// CompileShader returns a *CompileError when the source is rejected.
	CompileShader(stage Stage, source string) (Shader, error)
	DeleteShader(s Shader)
	// LinkProgram returns a *LinkError when the stages do not link.
	LinkProgram(vs, fs Shader) (Program, error)
	DeleteProgram(p Program)
	UseProgram(p Program)
	ActiveAttributes(p Program) ([]ActiveAttribute, error)
	UniformLocation(p Program, name string) (UniformLocation, bool)
	// Uniform uploads v to loc of the current program.
	Uniform(loc UniformLocation, v UniformValue)

	Enable(c Cap)
	Disable(c Cap)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha BlendFactor)
	BlendEquation(eq BlendEquation)
	CullFace(f Face)
	DepthFunc(f DepthFunc)

	DrawArrays(mode DrawMode, first, count int)
	DrawArraysInstanced(mode DrawMode, first, count, instances int)

	// Error returns and clears the oldest recorded error code.
	Error() ErrorCode
}
