package gles

// API selects the GL flavor of the context.
type API int

const (
	// APIAuto tries desktop GL 3.3 core first, then GLES 3.0.
	APIAuto API = iota
	// APIGL requests a desktop OpenGL 3.3 core profile context.
	APIGL
	// APIGLES requests an OpenGL ES 3.0 context.
	APIGLES
)

func (a API) String() string {
	switch a {
	case APIGL:
		return "gl"
	case APIGLES:
		return "gles"
	default:
		return "auto"
	}
}

// Default target configuration.
const (
	DefaultTargetWidth  = 256
	DefaultTargetHeight = 256
)

type options struct {
	api           API
	width, height int
}

func defaultOptions() options {
	return options{
		api:    APIAuto,
		width:  DefaultTargetWidth,
		height: DefaultTargetHeight,
	}
}

// Option configures Open.
type Option func(*options)

// WithAPI selects the GL flavor.
func WithAPI(api API) Option {
	return func(o *options) {
		o.api = api
	}
}

// WithTargetSize sets the size of the pbuffer surface draws render into.
func WithTargetSize(width, height int) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}
