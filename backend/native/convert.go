
package native

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadow/device"
)

// vertexFormat maps a GL-style attribute pointer to a vertex format.
// WebGPU has no 8 or 16-bit formats with one or three components, and no
// implicit conversion of raw integers to floats; those report false.
func vertexFormat(typ device.ScalarType, components int, normalized, integer bool) (gputypes.VertexFormat, bool) {
	if components < 1 || components > 4 {
		return 0, false
	}
	if typ == device.Float {
		if integer || normalized {
			return 0, false
		}
		return [...]gputypes.VertexFormat{
			gputypes.VertexFormatFloat32,
			gputypes.VertexFormatFloat32x2,
			gputypes.VertexFormatFloat32x3,
			gputypes.VertexFormatFloat32x4,
		}[components-1], true
	}
	if !integer && !normalized {
		return 0, false
	}

	switch typ {
	case device.Int, device.UInt:
		if !integer {
			return 0, false
		}
		if typ == device.Int {
			return [...]gputypes.VertexFormat{
				gputypes.VertexFormatSint32,
				gputypes.VertexFormatSint32x2,
				gputypes.VertexFormatSint32x3,
				gputypes.VertexFormatSint32x4,
			}[components-1], true
		}
		return [...]gputypes.VertexFormat{
			gputypes.VertexFormatUint32,
			gputypes.VertexFormatUint32x2,
			gputypes.VertexFormatUint32x3,
			gputypes.VertexFormatUint32x4,
		}[components-1], true
	}

	// 8 and 16-bit formats come in pairs and quads only.
	var pair, quad gputypes.VertexFormat
	switch {
	case typ == device.UByte && integer:
		pair, quad = gputypes.VertexFormatUint8x2, gputypes.VertexFormatUint8x4
	case typ == device.UByte:
		pair, quad = gputypes.VertexFormatUnorm8x2, gputypes.VertexFormatUnorm8x4
	case typ == device.Byte && integer:
		pair, quad = gputypes.VertexFormatSint8x2, gputypes.VertexFormatSint8x4
	case typ == device.Byte:
		pair, quad = gputypes.VertexFormatSnorm8x2, gputypes.VertexFormatSnorm8x4
	case typ == device.UShort && integer:
		pair, quad = gputypes.VertexFormatUint16x2, gputypes.VertexFormatUint16x4
	case typ == device.UShort:
		pair, quad = gputypes.VertexFormatUnorm16x2, gputypes.VertexFormatUnorm16x4
	case typ == device.Short && integer:
		pair, quad = gputypes.VertexFormatSint16x2, gputypes.VertexFormatSint16x4
	case typ == device.Short:
		pair, quad = gputypes.VertexFormatSnorm16x2, gputypes.VertexFormatSnorm16x4
	default:
		return 0, false
	}
	switch components {
	case 2:
		return pair, true
	case 4:
		return quad, true
	}
	return 0, false
}

// topology maps a draw mode. Fans and loops have no WebGPU equivalent.
func topology(mode device.DrawMode) (gputypes.PrimitiveTopology, bool) {
	switch mode {
	case device.Points:
		return gputypes.PrimitiveTopologyPointList, true
	case device.Lines:
		return gputypes.PrimitiveTopologyLineList, true
	case device.LineStrip:
		return gputypes.PrimitiveTopologyLineStrip, true
	case device.Triangles:
		return gputypes.PrimitiveTopologyTriangleList, true
	case device.TriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip, true
	}
	return 0, false
}

func blendFactor(f device.BlendFactor) (gputypes.BlendFactor, bool) {
	switch f {
	case device.Zero:
		return gputypes.BlendFactorZero, true
	case device.One:
		return gputypes.BlendFactorOne, true
	case device.SrcColor:
		return gputypes.BlendFactorSrc, true
	case device.OneMinusSrcColor:
		return gputypes.BlendFactorOneMinusSrc, true
	case device.SrcAlpha:
		return gputypes.BlendFactorSrcAlpha, true
	case device.OneMinusSrcAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha, true
	case device.DstColor:
		return gputypes.BlendFactorDst, true
	case device.OneMinusDstColor:
		return gputypes.BlendFactorOneMinusDst, true
	case device.DstAlpha:
		return gputypes.BlendFactorDstAlpha, true
	case device.OneMinusDstAlpha:
		return gputypes.BlendFactorOneMinusDstAlpha, true
	case device.SrcAlphaSaturate:
		return gputypes.BlendFactorSrcAlphaSaturated, true
	case device.ConstantColor, device.ConstantAlpha:
		return gputypes.BlendFactorConstant, true
	case device.OneMinusConstantColor, device.OneMinusConstantAlpha:
		return gputypes.BlendFactorOneMinusConstant, true
	}
	return 0, false
}

func blendOperation(eq device.BlendEquation) (gputypes.BlendOperation, bool) {
	switch eq {
	case device.FuncAdd:
		return gputypes.BlendOperationAdd, true
	case device.FuncSubtract:
		return gputypes.BlendOperationSubtract, true
	case device.FuncReverseSubtract:
		return gputypes.BlendOperationReverseSubtract, true
	case device.Min:
		return gputypes.BlendOperationMin, true
	case device.Max:
		return gputypes.BlendOperationMax, true
	}
	return 0, false
}

func compareFunction(f device.DepthFunc) (gputypes.CompareFunction, bool) {
	switch f {
	case device.Never:
		return gputypes.CompareFunctionNever, true
	case device.Less:
		return gputypes.CompareFunctionLess, true
	case device.Equal:
		return gputypes.CompareFunctionEqual, true
	case device.LessEqual:
		return gputypes.CompareFunctionLessEqual, true
	case device.Greater:
		return gputypes.CompareFunctionGreater, true
	case device.NotEqual:
		return gputypes.CompareFunctionNotEqual, true
	case device.GreaterEqual:
		return gputypes.CompareFunctionGreaterEqual, true
	case device.Always:
		return gputypes.CompareFunctionAlways, true
	}
	return 0, false
}

// cullMode maps the cull face. FrontAndBack has no equivalent.
func cullMode(f device.Face) (gputypes.CullMode, bool) {
	switch f {
	case device.Front:
		return gputypes.CullModeFront, true
	case device.Back:
		return gputypes.CullModeBack, true
	}
	return 0, false
}
