package gles

import (
	"strings"

	"github.com/gogpu/shadow/device"
)

// Version headers prepended to sources that carry none.
const (
	versionGL   = "#version 330 core\n"
	versionGLES = "#version 300 es\nprecision highp float;\nprecision highp int;\n"
)

// withVersion prepends the context's #version line unless src has one, so the
// same GLSL body builds on desktop GL and GLES.
func withVersion(src string, es bool) string {
	for line := range strings.Lines(src) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "#version") {
			return src
		}
		break
	}
	if es {
		return versionGLES + src
	}
	return versionGL + src
}

// attribType splits a GL attribute type into scalar type and component count.
// Matrix and double inputs report false.
func attribType(glType uint32) (device.ScalarType, int, bool) {
	switch glType {
	case glFloat:
		return device.Float, 1, true
	case glFloatVec2:
		return device.Float, 2, true
	case glFloatVec3:
		return device.Float, 3, true
	case glFloatVec4:
		return device.Float, 4, true
	case glInt:
		return device.Int, 1, true
	case glIntVec2:
		return device.Int, 2, true
	case glIntVec3:
		return device.Int, 3, true
	case glIntVec4:
		return device.Int, 4, true
	case glUint:
		return device.UInt, 1, true
	case glUintVec2:
		return device.UInt, 2, true
	case glUintVec3:
		return device.UInt, 3, true
	case glUintVec4:
		return device.UInt, 4, true
	}
	return 0, 0, false
}

// flipRows reverses the row order of an image in place. GL reads pixels
// bottom row first.
func flipRows(pix []byte, stride, height int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
