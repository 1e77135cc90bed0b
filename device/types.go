package device

import "fmt"

// ScalarType is the component type of a vertex attribute.
// Values match the GL enums so GL backends can pass them through.
type ScalarType uint32

const (
	Byte   ScalarType = 0x1400
	UByte  ScalarType = 0x1401
	Short  ScalarType = 0x1402
	UShort ScalarType = 0x1403
	Int    ScalarType = 0x1404
	UInt   ScalarType = 0x1405
	Float  ScalarType = 0x1406
)

// Size returns the byte size of one component, or 0 for an unknown type.
func (t ScalarType) Size() int {
	switch t {
	case Byte, UByte:
		return 1
	case Short, UShort:
		return 2
	case Int, UInt, Float:
		return 4
	default:
		return 0
	}
}

// IsInteger reports whether t is an integer type.
func (t ScalarType) IsInteger() bool {
	return t != Float && t.Size() > 0
}

// Valid reports whether t is one of the supported scalar types.
func (t ScalarType) Valid() bool {
	return t.Size() > 0
}

// String returns the type name.
func (t ScalarType) String() string {
	switch t {
	case Byte:
		return "Byte"
	case UByte:
		return "UByte"
	case Short:
		return "Short"
	case UShort:
		return "UShort"
	case Int:
		return "Int"
	case UInt:
		return "UInt"
	case Float:
		return "Float"
	default:
		return fmt.Sprintf("ScalarType(%#x)", uint32(t))
	}
}

// Usage is a buffer usage hint.
type Usage uint32

const (
	StreamDraw  Usage = 0x88E0
	StaticDraw  Usage = 0x88E4
	DynamicDraw Usage = 0x88E8
)

// String returns the usage name.
func (u Usage) String() string {
	switch u {
	case StreamDraw:
		return "StreamDraw"
	case StaticDraw:
		return "StaticDraw"
	case DynamicDraw:
		return "DynamicDraw"
	default:
		return fmt.Sprintf("Usage(%#x)", uint32(u))
	}
}

// DrawMode is the primitive topology of a draw call.
type DrawMode uint32

const (
	Points        DrawMode = 0x0000
	Lines         DrawMode = 0x0001
	LineLoop      DrawMode = 0x0002
	LineStrip     DrawMode = 0x0003
	Triangles     DrawMode = 0x0004
	TriangleStrip DrawMode = 0x0005
	TriangleFan   DrawMode = 0x0006
)

// String returns the draw mode name.
func (m DrawMode) String() string {
	switch m {
	case Points:
		return "Points"
	case Lines:
		return "Lines"
	case LineLoop:
		return "LineLoop"
	case LineStrip:
		return "LineStrip"
	case Triangles:
		return "Triangles"
	case TriangleStrip:
		return "TriangleStrip"
	case TriangleFan:
		return "TriangleFan"
	default:
		return fmt.Sprintf("DrawMode(%#x)", uint32(m))
	}
}

// Stage is a shader stage.
type Stage uint32

const (
	FragmentStage Stage = 0x8B30
	VertexStage   Stage = 0x8B31
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%#x)", uint32(s))
	}
}

// Cap is a fixed-function capability toggled with Enable/Disable.
type Cap uint32

const (
	CapCullFace  Cap = 0x0B44
	CapDepthTest Cap = 0x0B71
	CapBlend     Cap = 0x0BE2
)

// String returns the capability name.
func (c Cap) String() string {
	switch c {
	case CapCullFace:
		return "CullFace"
	case CapDepthTest:
		return "DepthTest"
	case CapBlend:
		return "Blend"
	default:
		return fmt.Sprintf("Cap(%#x)", uint32(c))
	}
}

// BlendFactor is a source or destination blend factor.
type BlendFactor uint32

const (
	Zero                  BlendFactor = 0
	One                   BlendFactor = 1
	SrcColor              BlendFactor = 0x0300
	OneMinusSrcColor      BlendFactor = 0x0301
	SrcAlpha              BlendFactor = 0x0302
	OneMinusSrcAlpha      BlendFactor = 0x0303
	DstAlpha              BlendFactor = 0x0304
	OneMinusDstAlpha      BlendFactor = 0x0305
	DstColor              BlendFactor = 0x0306
	OneMinusDstColor      BlendFactor = 0x0307
	SrcAlphaSaturate      BlendFactor = 0x0308
	ConstantColor         BlendFactor = 0x8001
	OneMinusConstantColor BlendFactor = 0x8002
	ConstantAlpha         BlendFactor = 0x8003
	OneMinusConstantAlpha BlendFactor = 0x8004
)

// String returns the blend factor name.
func (f BlendFactor) String() string {
	switch f {
	case Zero:
		return "Zero"
	case One:
		return "One"
	case SrcColor:
		return "SrcColor"
	case OneMinusSrcColor:
		return "OneMinusSrcColor"
	case SrcAlpha:
		return "SrcAlpha"
	case OneMinusSrcAlpha:
		return "OneMinusSrcAlpha"
	case DstAlpha:
		return "DstAlpha"
	case OneMinusDstAlpha:
		return "OneMinusDstAlpha"
	case DstColor:
		return "DstColor"
	case OneMinusDstColor:
		return "OneMinusDstColor"
	case SrcAlphaSaturate:
		return "SrcAlphaSaturate"
	case ConstantColor:
		return "ConstantColor"
	case OneMinusConstantColor:
		return "OneMinusConstantColor"
	case ConstantAlpha:
		return "ConstantAlpha"
	case OneMinusConstantAlpha:
		return "OneMinusConstantAlpha"
	default:
		return fmt.Sprintf("BlendFactor(%#x)", uint32(f))
	}
}

// BlendEquation combines source and destination terms.
type BlendEquation uint32

const (
	FuncAdd             BlendEquation = 0x8006
	Min                 BlendEquation = 0x8007
	Max                 BlendEquation = 0x8008
	FuncSubtract        BlendEquation = 0x800A
	FuncReverseSubtract BlendEquation = 0x800B
)

// String returns the equation name.
func (e BlendEquation) String() string {
	switch e {
	case FuncAdd:
		return "Add"
	case Min:
		return "Min"
	case Max:
		return "Max"
	case FuncSubtract:
		return "Subtract"
	case FuncReverseSubtract:
		return "ReverseSubtract"
	default:
		return fmt.Sprintf("BlendEquation(%#x)", uint32(e))
	}
}

// Face selects the polygons culled when CapCullFace is enabled.
type Face uint32

const (
	Front        Face = 0x0404
	Back         Face = 0x0405
	FrontAndBack Face = 0x0408
)

// String returns the face name.
func (f Face) String() string {
	switch f {
	case Front:
		return "Front"
	case Back:
		return "Back"
	case FrontAndBack:
		return "FrontAndBack"
	default:
		return fmt.Sprintf("Face(%#x)", uint32(f))
	}
}

// DepthFunc is the depth comparison used when CapDepthTest is enabled.
type DepthFunc uint32

const (
	Never        DepthFunc = 0x0200
	Less         DepthFunc = 0x0201
	Equal        DepthFunc = 0x0202
	LessEqual    DepthFunc = 0x0203
	Greater      DepthFunc = 0x0204
	NotEqual     DepthFunc = 0x0205
	GreaterEqual DepthFunc = 0x0206
	Always       DepthFunc = 0x0207
)

// String returns the comparison name.
func (f DepthFunc) String() string {
	switch f {
	case Never:
		return "Never"
	case Less:
		return "Less"
	case Equal:
		return "Equal"
	case LessEqual:
		return "LessEqual"
	case Greater:
		return "Greater"
	case NotEqual:
		return "NotEqual"
	case GreaterEqual:
		return "GreaterEqual"
	case Always:
		return "Always"
	default:
		return fmt.Sprintf("DepthFunc(%#x)", uint32(f))
	}
}
