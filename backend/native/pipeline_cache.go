//go:build !nogpu

package native

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline cache errors.
var (
	// ErrPipelineCacheNilDescriptor is returned when creating a pipeline with nil descriptor.
	ErrPipelineCacheNilDescriptor = errors.New("native: pipeline descriptor is nil")

	// ErrPipelineCacheNilShader is returned when creating a pipeline with nil shader module.
	ErrPipelineCacheNilShader = errors.New("native: shader module is nil")
)

// PipelineCache caches render pipelines by the state that went into them.
//
// A GL-style device has no pipeline objects: program, vertex array and
// fixed-function state are combined at draw time. Building a pipeline for
// every draw would be far too slow, so pipelines are looked up by an FNV-1a
// hash of their descriptor.
//
// PipelineCache is safe for concurrent use. It uses RWMutex with double-check
// locking for efficient reads and safe writes.
type PipelineCache struct {
	mu sync.RWMutex

	pipelines map[uint64]*RenderPipeline

	hits   uint64
	misses uint64
}

// NewPipelineCache creates an empty cache.
func NewPipelineCache() *PipelineCache {
	return &PipelineCache{pipelines: make(map[uint64]*RenderPipeline)}
}

// GetOrCreate returns a cached pipeline or creates a new one on dev.
func (c *PipelineCache) GetOrCreate(dev hal.Device, desc *PipelineDescriptor) (*RenderPipeline, error) {
	if desc == nil {
		return nil, ErrPipelineCacheNilDescriptor
	}
	key := HashPipelineDescriptor(desc)

	c.mu.RLock()
	if p, ok := c.pipelines[key]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[key]; ok {
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}

	p, err := createRenderPipeline(dev, desc)
	if err != nil {
		return nil, err
	}
	c.pipelines[key] = p
	atomic.AddUint64(&c.misses, 1)
	return p, nil
}

// Stats returns the number of cache hits and misses.
func (c *PipelineCache) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// Size returns the number of cached pipelines.
func (c *PipelineCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

// DestroyProgram destroys every pipeline built from program and returns how
// many were removed.
func (c *PipelineCache) DestroyProgram(dev hal.Device, program uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, p := range c.pipelines {
		if p.program != program {
			continue
		}
		if dev != nil && p.raw != nil {
			dev.DestroyRenderPipeline(p.raw)
		}
		delete(c.pipelines, key)
		n++
	}
	return n
}

// DestroyAll destroys all cached pipelines and resets statistics.
func (c *PipelineCache) DestroyAll(dev hal.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.pipelines {
		if dev != nil && p.raw != nil {
			dev.DestroyRenderPipeline(p.raw)
		}
	}
	c.pipelines = make(map[uint64]*RenderPipeline)
	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.misses, 0)
}

// RenderPipeline is a cached pipeline.
type RenderPipeline struct {
	id      uint64
	program uint64
	label   string
	raw     hal.RenderPipeline
}

// ID returns the pipeline's unique identifier.
func (p *RenderPipeline) ID() uint64 { return p.id }

// Label returns the pipeline's debug label.
func (p *RenderPipeline) Label() string { return p.label }

// PipelineDescriptor is the draw-time state a pipeline is built from.
type PipelineDescriptor struct {
	Label string

	// Program identifies the linked program. Its shader modules and layout
	// are fixed for the program's lifetime.
	Program        uint64
	Layout         hal.PipelineLayout
	VertexModule   hal.ShaderModule
	VertexEntry    string
	FragmentModule hal.ShaderModule
	FragmentEntry  string

	Buffers []gputypes.VertexBufferLayout

	Topology gputypes.PrimitiveTopology
	CullMode gputypes.CullMode

	ColorFormat gputypes.TextureFormat
	// Blend is nil when blending is disabled.
	Blend *gputypes.BlendState

	DepthFormat  gputypes.TextureFormat
	DepthTest    bool
	DepthCompare gputypes.CompareFunction
}

// HashPipelineDescriptor computes an FNV-1a hash of every field of desc that
// affects the pipeline. Labels are not hashed.
func HashPipelineDescriptor(desc *PipelineDescriptor) uint64 {
	h := fnv.New64a()

	hashWriteUint64(h, desc.Program)
	hashWriteString(h, desc.VertexEntry)
	hashWriteString(h, desc.FragmentEntry)

	//nolint:gosec // G115: vertex buffer count is bounded by GPU limits (< 16)
	hashWriteUint32(h, uint32(len(desc.Buffers)))
	for i := range desc.Buffers {
		layout := &desc.Buffers[i]
		hashWriteUint64(h, layout.ArrayStride)
		hashWriteUint32(h, uint32(layout.StepMode))
		//nolint:gosec // G115: attribute count is bounded by GPU limits (< 32)
		hashWriteUint32(h, uint32(len(layout.Attributes)))
		for j := range layout.Attributes {
			attr := &layout.Attributes[j]
			hashWriteUint32(h, attr.ShaderLocation)
			hashWriteUint32(h, uint32(attr.Format))
			hashWriteUint64(h, attr.Offset)
		}
	}

	hashWriteUint32(h, uint32(desc.Topology))
	hashWriteUint32(h, uint32(desc.CullMode))
	hashWriteUint32(h, uint32(desc.ColorFormat))
	hashWriteUint32(h, uint32(desc.DepthFormat))
	hashWriteBool(h, desc.DepthTest)
	hashWriteUint32(h, uint32(desc.DepthCompare))

	if desc.Blend != nil {
		hashWriteBool(h, true)
		hashWriteUint32(h, uint32(desc.Blend.Color.SrcFactor))
		hashWriteUint32(h, uint32(desc.Blend.Color.DstFactor))
		hashWriteUint32(h, uint32(desc.Blend.Color.Operation))
		hashWriteUint32(h, uint32(desc.Blend.Alpha.SrcFactor))
		hashWriteUint32(h, uint32(desc.Blend.Alpha.DstFactor))
		hashWriteUint32(h, uint32(desc.Blend.Alpha.Operation))
	} else {
		hashWriteBool(h, false)
	}

	return h.Sum64()
}

func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

//nolint:gosec // G115: entry point names are short
func hashWriteString(h hash.Hash64, s string) {
	hashWriteUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}

func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}

var pipelineIDCounter uint64

func nextPipelineID() uint64 {
	return atomic.AddUint64(&pipelineIDCounter, 1)
}

// createRenderPipeline is called by GetOrCreate on a cache miss.
func createRenderPipeline(dev hal.Device, desc *PipelineDescriptor) (*RenderPipeline, error) {
	if desc.VertexModule == nil || desc.FragmentModule == nil {
		return nil, ErrPipelineCacheNilShader
	}

	// Depth is always attached; a disabled test passes everything and
	// writes nothing.
	depth := &hal.DepthStencilState{
		Format:       desc.DepthFormat,
		DepthCompare: gputypes.CompareFunctionAlways,
		StencilFront: hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
		StencilBack:  hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
	}
	if desc.DepthTest {
		depth.DepthWriteEnabled = true
		depth.DepthCompare = desc.DepthCompare
	}

	raw, err := dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: desc.Layout,
		Vertex: hal.VertexState{
			Module:     desc.VertexModule,
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.Buffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  desc.CullMode,
		},
		DepthStencil: depth,
		Multisample:  gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     desc.FragmentModule,
			EntryPoint: desc.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    desc.ColorFormat,
				Blend:     desc.Blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	return &RenderPipeline{
		id:      nextPipelineID(),
		program: desc.Program,
		label:   desc.Label,
		raw:     raw,
	}, nil
}
