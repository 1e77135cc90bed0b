//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan backend
)

// Open creates a standalone Device on the first discrete or integrated Vulkan
// adapter, falling back to any adapter. Close destroys the HAL device and
// instance.
func Open(opts ...Option) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoGPU, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d, err := New(open.Device, open.Queue, opts...)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.owned = true
	d.instance = instance
	slogger().Info("native: device opened", "adapter", selected.Info.Name, "type", selected.Info.DeviceType)
	return d, nil
}

// NewFromProvider creates a Device on the HAL device and queue of a host
// application. The provider must expose them through HalDevice and HalQueue,
// as gogpu windows do. The surface format, when set, becomes the color
// target format unless an option overrides it.
func NewFromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}

	all := make([]Option, 0, len(opts)+1)
	all = append(all, WithColorFormat(p.SurfaceFormat()))
	all = append(all, opts...)

	info := p.AdapterInfo()
	slogger().Info("native: using provider device", "adapter", info.Name, "type", info.Type)
	return New(dev, queue, all...)
}
