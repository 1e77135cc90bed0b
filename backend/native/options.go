
package native

import "github.com/gogpu/gputypes"

// Default target configuration.
const (
	DefaultTargetWidth  = 256
	DefaultTargetHeight = 256
)

type options struct {
	width, height int
	colorFormat   gputypes.TextureFormat
	depthFormat   gputypes.TextureFormat
	label         string
}

func defaultOptions() options {
	return options{
		width:       DefaultTargetWidth,
		height:      DefaultTargetHeight,
		colorFormat: gputypes.TextureFormatRGBA8Unorm,
		depthFormat: gputypes.TextureFormatDepth24Plus,
		label:       "shadow",
	}
}

// Option configures a Device.
type Option func(*options)

// WithTargetSize sets the size of the offscreen color and depth targets.
func WithTargetSize(width, height int) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithColorFormat sets the color target format. ReadPixels expects a
// four-byte RGBA or BGRA format.
func WithColorFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		if f != gputypes.TextureFormatUndefined {
			o.colorFormat = f
		}
	}
}

// WithDepthFormat sets the depth target format.
func WithDepthFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		if f != gputypes.TextureFormatUndefined {
			o.depthFormat = f
		}
	}
}

// WithLabel sets the prefix of HAL debug labels.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}
