package wgsl

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/shadow/device"
)

// UniformSize returns the byte size of kind in the uniform address space,
// rounded up to 16 bytes so it can back its own binding.
func UniformSize(kind device.UniformKind) uint64 {
	n := uint64(kind.Components()) * 4
	switch kind {
	case device.UniformMat3:
		n = 48 // vec3 columns are 16-byte aligned
	case device.UniformMat2:
		n = 16
	}
	return (n + 15) &^ 15
}

// PackUniform encodes v with the uniform address space layout: little endian,
// matrix columns padded to their vector alignment, total padded to UniformSize.
func PackUniform(v device.UniformValue) []byte {
	size := UniformSize(v.Kind)
	buf := make([]byte, 0, size)

	switch v.Kind.Scalar() {
	case device.Int:
		for _, x := range v.Ints() {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(x))
		}
	case device.UInt:
		for _, x := range v.Uints() {
			buf = binary.LittleEndian.AppendUint32(buf, x)
		}
	default:
		cols := v.Kind.MatrixSize()
		if cols == 0 {
			for _, x := range v.Floats() {
				buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
			}
			break
		}
		colBytes := 8
		if cols > 2 {
			colBytes = 16
		}
		f := v.Floats()
		for c := 0; c < cols; c++ {
			start := len(buf)
			for r := 0; r < cols; r++ {
				buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f[c*cols+r]))
			}
			for len(buf)-start < colBytes {
				buf = append(buf, 0)
			}
		}
	}

	for uint64(len(buf)) < size {
		buf = append(buf, 0)
	}
	return buf
}
