//go:build !nogpu

package native

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the row alignment texture-to-buffer copies require.
const copyPitchAlignment = 256

// renderTarget is the offscreen framebuffer draws render into.
type renderTarget struct {
	width, height uint32
	colorFormat   gputypes.TextureFormat
	depthFormat   gputypes.TextureFormat

	color     hal.Texture
	colorView hal.TextureView
	depth     hal.Texture
	depthView hal.TextureView
}

func newRenderTarget(dev hal.Device, o *options) (*renderTarget, error) {
	if o.width <= 0 || o.height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, o.width, o.height)
	}
	t := &renderTarget{
		width:       uint32(o.width),  //nolint:gosec // checked positive above
		height:      uint32(o.height), //nolint:gosec // checked positive above
		colorFormat: o.colorFormat,
		depthFormat: o.depthFormat,
	}

	var err error
	t.color, t.colorView, err = t.createTexture(dev, o.label+"_color", t.colorFormat,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		return nil, err
	}
	t.depth, t.depthView, err = t.createTexture(dev, o.label+"_depth", t.depthFormat,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		t.destroy(dev)
		return nil, err
	}
	return t, nil
}

func (t *renderTarget) createTexture(dev hal.Device, label string, format gputypes.TextureFormat, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	tex, err := dev.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		dev.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

func (t *renderTarget) destroy(dev hal.Device) {
	if t.colorView != nil {
		dev.DestroyTextureView(t.colorView)
		t.colorView = nil
	}
	if t.color != nil {
		dev.DestroyTexture(t.color)
		t.color = nil
	}
	if t.depthView != nil {
		dev.DestroyTextureView(t.depthView)
		t.depthView = nil
	}
	if t.depth != nil {
		dev.DestroyTexture(t.depth)
		t.depth = nil
	}
}

// passDescriptor loads the previous contents, or clears them when clearColor
// is not nil. Depth is cleared together with color.
func (t *renderTarget) passDescriptor(label string, clearColor *gputypes.Color) *hal.RenderPassDescriptor {
	color := hal.RenderPassColorAttachment{
		View:    t.colorView,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	depth := &hal.RenderPassDepthStencilAttachment{
		View:            t.depthView,
		DepthLoadOp:     gputypes.LoadOpLoad,
		DepthStoreOp:    gputypes.StoreOpStore,
		DepthClearValue: 1.0,
	}
	if clearColor != nil {
		color.LoadOp = gputypes.LoadOpClear
		color.ClearValue = *clearColor
		depth.DepthLoadOp = gputypes.LoadOpClear
	}
	return &hal.RenderPassDescriptor{
		Label:                  label,
		ColorAttachments:       []hal.RenderPassColorAttachment{color},
		DepthStencilAttachment: depth,
	}
}

// readback copies the color target into a staging buffer, waits for the GPU
// and returns the pixels as RGBA.
func (t *renderTarget) readback(dev hal.Device, queue hal.Queue, label string) (*image.RGBA, error) {
	bytesPerRow := t.width * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(alignedBytesPerRow) * uint64(t.height)

	staging, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer dev.DestroyBuffer(staging)

	encoder, err := dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_readback"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label + "_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.color,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.color, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: alignedBytesPerRow, RowsPerImage: t.height},
		TextureBase:  hal.ImageCopyTexture{Texture: t.color},
		Size:         hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.color,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer dev.FreeCommandBuffer(cmd)

	if _, err := queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if err := dev.WaitIdle(); err != nil {
		return nil, fmt.Errorf("wait for GPU: %w", err)
	}

	mapping, err := dev.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)

	img := image.NewRGBA(image.Rect(0, 0, int(t.width), int(t.height)))
	for y := 0; y < int(t.height); y++ {
		row := src[y*int(alignedBytesPerRow) : y*int(alignedBytesPerRow)+int(bytesPerRow)]
		copy(img.Pix[y*img.Stride:], row)
	}
	if err := dev.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}

	if isBGRA(t.colorFormat) {
		swapRedBlue(img.Pix)
	}
	return img, nil
}

func isBGRA(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatBGRA8Unorm || f == gputypes.TextureFormatBGRA8UnormSrgb
}

// swapRedBlue converts BGRA pixels to RGBA in place.
func swapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
