package shadow

import (
	"sync"

	"github.com/gogpu/shadow/device"
)

// UniformValue is the tagged value uploaded to one uniform location.
// Values are comparable with ==.
type UniformValue = device.UniformValue

// Square float matrices, column-major.
type (
	Mat2 [4]float32
	Mat3 [9]float32
	Mat4 [16]float32
)

// IdentityMat4 returns the 4x4 identity matrix.
func IdentityMat4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// UniformType is the closed set of Go types a uniform slot can hold.
type UniformType interface {
	float32 | [2]float32 | [3]float32 | [4]float32 |
		int32 | [2]int32 | [3]int32 | [4]int32 |
		uint32 | [2]uint32 | [3]uint32 | [4]uint32 |
		Mat2 | Mat3 | Mat4
}

// ValueOf converts v to its tagged form.
func ValueOf[T UniformType](v T) UniformValue {
	var u UniformValue
	switch x := any(v).(type) {
	case float32:
		u.Kind, u.F[0] = device.UniformFloat, x
	case [2]float32:
		u.Kind = device.UniformVec2
		copy(u.F[:], x[:])
	case [3]float32:
		u.Kind = device.UniformVec3
		copy(u.F[:], x[:])
	case [4]float32:
		u.Kind = device.UniformVec4
		copy(u.F[:], x[:])
	case int32:
		u.Kind, u.I[0] = device.UniformInt, x
	case [2]int32:
		u.Kind = device.UniformIVec2
		copy(u.I[:], x[:])
	case [3]int32:
		u.Kind = device.UniformIVec3
		copy(u.I[:], x[:])
	case [4]int32:
		u.Kind = device.UniformIVec4
		copy(u.I[:], x[:])
	case uint32:
		u.Kind, u.U[0] = device.UniformUint, x
	case [2]uint32:
		u.Kind = device.UniformUVec2
		copy(u.U[:], x[:])
	case [3]uint32:
		u.Kind = device.UniformUVec3
		copy(u.U[:], x[:])
	case [4]uint32:
		u.Kind = device.UniformUVec4
		copy(u.U[:], x[:])
	case Mat2:
		u.Kind = device.UniformMat2
		copy(u.F[:], x[:])
	case Mat3:
		u.Kind = device.UniformMat3
		copy(u.F[:], x[:])
	case Mat4:
		u.Kind = device.UniformMat4
		copy(u.F[:], x[:])
	}
	return u
}

// UniformSource supplies the current value of a uniform at draw time.
type UniformSource interface {
	Value() UniformValue
}

// Uniform is a shared, mutable uniform slot. The program that a slot is
// attached to reads it on every draw; any other code holding the pointer
// (an animation loop, input handling) may change it between draws.
type Uniform[T UniformType] struct {
	mu sync.Mutex
	v  T
}

// NewUniform returns a slot holding v.
func NewUniform[T UniformType](v T) *Uniform[T] {
	return &Uniform[T]{v: v}
}

// Get returns the current value.
func (u *Uniform[T]) Get() T {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.v
}

// Set replaces the current value.
func (u *Uniform[T]) Set(v T) {
	u.mu.Lock()
	u.v = v
	u.mu.Unlock()
}

// Update replaces the value with fn(current) atomically with respect to
// other Set and Update calls.
func (u *Uniform[T]) Update(fn func(T) T) {
	u.mu.Lock()
	u.v = fn(u.v)
	u.mu.Unlock()
}

// Value implements UniformSource.
func (u *Uniform[T]) Value() UniformValue {
	return ValueOf(u.Get())
}

// ConstUniform is a UniformSource that never changes.
type ConstUniform UniformValue

// Value implements UniformSource.
func (c ConstUniform) Value() UniformValue { return UniformValue(c) }
