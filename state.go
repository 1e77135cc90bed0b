package shadow

import "github.com/gogpu/shadow/device"

// BlendState configures color blending. The zero value disables blending.
type BlendState struct {
	Enabled  bool
	SrcRGB   device.BlendFactor
	DstRGB   device.BlendFactor
	SrcAlpha device.BlendFactor
	DstAlpha device.BlendFactor
	Equation device.BlendEquation
}

// Blend returns an enabled blend state using the same factors for color and
// alpha, combined with addition.
func Blend(src, dst device.BlendFactor) BlendState {
	return BlendState{
		Enabled:  true,
		SrcRGB:   src,
		DstRGB:   dst,
		SrcAlpha: src,
		DstAlpha: dst,
		Equation: device.FuncAdd,
	}
}

// AlphaBlending is conventional non-premultiplied "over" compositing.
func AlphaBlending() BlendState {
	return Blend(device.SrcAlpha, device.OneMinusSrcAlpha)
}

// AdditiveBlending adds the source onto the destination.
func AdditiveBlending() BlendState {
	return Blend(device.One, device.One)
}

// GraphicsState is the fixed-function state a program draws with.
// The zero value disables blending, culling and depth testing.
type GraphicsState struct {
	Blend BlendState

	// Cull selects the faces to discard; 0 disables culling.
	Cull device.Face

	// Depth is the depth comparison; 0 disables depth testing.
	Depth device.DepthFunc
}

// fixedFunction is the shadow of the device's fixed-function state.
// Parameters persist on the device while a capability is disabled, so they
// are tracked separately from the enable bits.
type fixedFunction struct {
	blendOn bool
	blend   BlendState
	cullOn  bool
	cull    device.Face
	depthOn bool
	depth   device.DepthFunc
}

// initialFixedFunction is the state of a fresh GL context.
func initialFixedFunction() fixedFunction {
	return fixedFunction{
		blend: BlendState{
			SrcRGB:   device.One,
			DstRGB:   device.Zero,
			SrcAlpha: device.One,
			DstAlpha: device.Zero,
			Equation: device.FuncAdd,
		},
		cull:  device.Back,
		depth: device.Less,
	}
}

// apply issues the calls that move the device from f to next and returns
// how many were issued.
func (f *fixedFunction) apply(dev device.Device, next GraphicsState) int {
	n := 0
	toggle := func(on *bool, want bool, c device.Cap) {
		if *on == want {
			return
		}
		if want {
			dev.Enable(c)
		} else {
			dev.Disable(c)
		}
		*on = want
		n++
	}

	toggle(&f.blendOn, next.Blend.Enabled, device.CapBlend)
	if next.Blend.Enabled {
		b := next.Blend
		if b.SrcRGB != f.blend.SrcRGB || b.DstRGB != f.blend.DstRGB ||
			b.SrcAlpha != f.blend.SrcAlpha || b.DstAlpha != f.blend.DstAlpha {
			dev.BlendFuncSeparate(b.SrcRGB, b.DstRGB, b.SrcAlpha, b.DstAlpha)
			f.blend.SrcRGB, f.blend.DstRGB = b.SrcRGB, b.DstRGB
			f.blend.SrcAlpha, f.blend.DstAlpha = b.SrcAlpha, b.DstAlpha
			n++
		}
		eq := b.Equation
		if eq == 0 {
			eq = device.FuncAdd
		}
		if eq != f.blend.Equation {
			dev.BlendEquation(eq)
			f.blend.Equation = eq
			n++
		}
	}

	toggle(&f.cullOn, next.Cull != 0, device.CapCullFace)
	if next.Cull != 0 && next.Cull != f.cull {
		dev.CullFace(next.Cull)
		f.cull = next.Cull
		n++
	}

	toggle(&f.depthOn, next.Depth != 0, device.CapDepthTest)
	if next.Depth != 0 && next.Depth != f.depth {
		dev.DepthFunc(next.Depth)
		f.depth = next.Depth
		n++
	}
	return n
}
