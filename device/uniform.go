package device

import "fmt"

// UniformKind is the shape of a uniform value.
type UniformKind uint8

const (
	UniformInvalid UniformKind = iota
	UniformFloat
	UniformVec2
	UniformVec3
	UniformVec4
	UniformInt
	UniformIVec2
	UniformIVec3
	UniformIVec4
	UniformUint
	UniformUVec2
	UniformUVec3
	UniformUVec4
	UniformMat2
	UniformMat3
	UniformMat4
)

var uniformKindNames = [...]string{
	UniformInvalid: "invalid",
	UniformFloat:   "float",
	UniformVec2:    "vec2",
	UniformVec3:    "vec3",
	UniformVec4:    "vec4",
	UniformInt:     "int",
	UniformIVec2:   "ivec2",
	UniformIVec3:   "ivec3",
	UniformIVec4:   "ivec4",
	UniformUint:    "uint",
	UniformUVec2:   "uvec2",
	UniformUVec3:   "uvec3",
	UniformUVec4:   "uvec4",
	UniformMat2:    "mat2",
	UniformMat3:    "mat3",
	UniformMat4:    "mat4",
}

// String returns the GLSL-style name of the kind.
func (k UniformKind) String() string {
	if int(k) < len(uniformKindNames) {
		return uniformKindNames[k]
	}
	return fmt.Sprintf("UniformKind(%d)", uint8(k))
}

// Scalar returns the component type of the kind.
func (k UniformKind) Scalar() ScalarType {
	switch {
	case k >= UniformInt && k <= UniformIVec4:
		return Int
	case k >= UniformUint && k <= UniformUVec4:
		return UInt
	default:
		return Float
	}
}

// Components returns the number of scalar components.
func (k UniformKind) Components() int {
	switch k {
	case UniformFloat, UniformInt, UniformUint:
		return 1
	case UniformVec2, UniformIVec2, UniformUVec2:
		return 2
	case UniformVec3, UniformIVec3, UniformUVec3:
		return 3
	case UniformVec4, UniformIVec4, UniformUVec4, UniformMat2:
		return 4
	case UniformMat3:
		return 9
	case UniformMat4:
		return 16
	default:
		return 0
	}
}

// IsMatrix reports whether k is a square float matrix.
func (k UniformKind) IsMatrix() bool {
	return k == UniformMat2 || k == UniformMat3 || k == UniformMat4
}

// MatrixSize returns the column (and row) count of a matrix kind, or 0.
func (k UniformKind) MatrixSize() int {
	switch k {
	case UniformMat2:
		return 2
	case UniformMat3:
		return 3
	case UniformMat4:
		return 4
	default:
		return 0
	}
}

// UniformValue is a tagged value for one uniform slot.
//
// Only the array that matches Kind.Scalar() is meaningful, and only its first
// Kind.Components() entries. Unused entries stay zero so that values compare
// with ==. Matrices are stored column-major.
type UniformValue struct {
	Kind UniformKind
	F    [16]float32
	I    [4]int32
	U    [4]uint32
}

// Floats returns the float components of a float or matrix value.
func (v UniformValue) Floats() []float32 {
	if v.Kind.Scalar() != Float {
		return nil
	}
	return v.F[:v.Kind.Components()]
}

// Ints returns the components of a signed integer value.
func (v UniformValue) Ints() []int32 {
	if v.Kind.Scalar() != Int {
		return nil
	}
	return v.I[:v.Kind.Components()]
}

// Uints returns the components of an unsigned integer value.
func (v UniformValue) Uints() []uint32 {
	if v.Kind.Scalar() != UInt {
		return nil
	}
	return v.U[:v.Kind.Components()]
}

// String formats the value for diagnostics.
func (v UniformValue) String() string {
	switch v.Kind.Scalar() {
	case Int:
		return fmt.Sprintf("%s%v", v.Kind, v.Ints())
	case UInt:
		return fmt.Sprintf("%s%v", v.Kind, v.Uints())
	default:
		return fmt.Sprintf("%s%v", v.Kind, v.Floats())
	}
}
