package shadow

import (
	"log/slog"

	"github.com/gogpu/shadow/device"
)

// DefaultLayoutCacheLimit is the number of vertex layout objects a Renderer
// keeps before evicting the least recently used ones.
const DefaultLayoutCacheLimit = 64

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := shadow.NewRenderer(dev,
//	    shadow.WithLayoutCacheLimit(256),
//	    shadow.WithErrorCheck(),
//	)
type Option func(*options)

type options struct {
	layoutLimit int
	errorCheck  bool
	permissive  bool
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		layoutLimit: DefaultLayoutCacheLimit,
	}
}

// WithLayoutCacheLimit sets the soft limit of the vertex layout cache.
// A limit of 0 keeps every layout until the renderer is closed.
func WithLayoutCacheLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.layoutLimit = n
		}
	}
}

// WithErrorCheck makes every draw query the device error code and return a
// *DeviceError when it is set. Useful in tests and debug builds; costs one
// device round trip per draw.
func WithErrorCheck() Option {
	return func(o *options) {
		o.errorCheck = true
	}
}

// WithPermissiveAttributeTypes downgrades attribute type mismatches between a
// buffer and a program from an error to a warning. The draw then proceeds
// with the buffer's declared type.
func WithPermissiveAttributeTypes() Option {
	return func(o *options) {
		o.permissive = true
	}
}

// WithLogger sets a logger for this renderer only, overriding SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// BufferOption configures a buffer during creation.
type BufferOption func(*bufferOptions)

type bufferOptions struct {
	usage  device.Usage
	growth float64
	label  string
}

// WithUsage sets the usage hint passed to the device on allocation.
// The default is device.StaticDraw.
func WithUsage(u device.Usage) BufferOption {
	return func(o *bufferOptions) {
		o.usage = u
	}
}

// WithGrowthFactor over-allocates by factor when a buffer has to grow, so
// that a sequence of slowly growing uploads reallocates less often.
// Factors below 1 are ignored. The first allocation is always exact.
func WithGrowthFactor(factor float64) BufferOption {
	return func(o *bufferOptions) {
		if factor >= 1 {
			o.growth = factor
		}
	}
}

// WithLabel attaches a name used in log output.
func WithLabel(label string) BufferOption {
	return func(o *bufferOptions) {
		o.label = label
	}
}
