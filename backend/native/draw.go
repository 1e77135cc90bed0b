//go:build !nogpu

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadow/device"
)

var errDraw = errors.New("invalid draw")

// vertexSlot is one vertex buffer binding of a draw.
type vertexSlot struct {
	buf    hal.Buffer
	offset uint64
}

func (d *Device) DrawArrays(mode device.DrawMode, first, count int) {
	d.draw("DrawArrays", mode, first, count, 1)
}

func (d *Device) DrawArraysInstanced(mode device.DrawMode, first, count, instances int) {
	d.draw("DrawArraysInstanced", mode, first, count, instances)
}

func (d *Device) draw(op string, mode device.DrawMode, first, count, instances int) {
	if d.closed {
		d.setError(device.ContextLost, op, "device closed")
		return
	}
	if mode > device.TriangleFan {
		d.setError(device.InvalidEnum, op, "draw mode")
		return
	}
	topo, ok := topology(mode)
	if !ok {
		d.setError(device.InvalidEnum, op, mode.String()+" is not supported")
		return
	}
	if first < 0 || count < 0 || instances < 0 {
		d.setError(device.InvalidValue, op, "negative count")
		return
	}
	prog := d.programs[d.program]
	if prog == nil {
		d.setError(device.InvalidOperation, op, "no program in use")
		return
	}
	vao := d.vaos[d.vertexArray]
	if vao == nil {
		d.setError(device.InvalidOperation, op, "no vertex array bound")
		return
	}
	buffers, slots, err := d.vertexLayouts(prog, vao, first, count, instances)
	if err != nil {
		d.setError(device.InvalidOperation, op, err.Error())
		return
	}
	if count == 0 || instances == 0 {
		return
	}
	if d.caps[device.CapCullFace] && d.cull == device.FrontAndBack {
		slogger().Debug("native: draw culled", "mode", mode, "count", count)
		return
	}

	desc := d.pipelineDescriptor(prog, buffers, topo)
	pipeline, err := d.pipelines.GetOrCreate(d.dev, desc)
	if err != nil {
		d.setError(device.OutOfMemory, op, err.Error())
		return
	}

	err = d.submitPass(func(rp hal.RenderPassEncoder) {
		rp.SetPipeline(pipeline.raw)
		for i, g := range prog.groups {
			rp.SetBindGroup(uint32(i), g, nil) //nolint:gosec // group count is bounded by GPU limits
		}
		for i, s := range slots {
			rp.SetVertexBuffer(uint32(i), s.buf, s.offset) //nolint:gosec // slot count is bounded by GPU limits
		}
		//nolint:gosec // counts were checked non-negative above
		rp.Draw(uint32(count), uint32(instances), uint32(first), 0)
	})
	if err != nil {
		d.setError(device.ContextLost, op, err.Error())
		return
	}
	d.draws++
}

// submitPass encodes one render pass over the target and submits it. A
// pending clear is applied by the pass. record may be nil.
func (d *Device) submitPass(record func(hal.RenderPassEncoder)) error {
	label := d.opts.label
	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label + "_draw"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(d.target.passDescriptor(label+"_pass", d.clear))
	rp.SetViewport(0, 0, float32(d.target.width), float32(d.target.height), 0, 1)
	if record != nil {
		record(rp)
	}
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		d.dev.FreeCommandBuffer(cmd)
		return fmt.Errorf("submit: %w", err)
	}
	d.pending = append(d.pending, cmd)
	d.clear = nil
	return nil
}

// vertexLayouts groups the attributes the program consumes into vertex
// buffer layouts, one per (buffer, stride, step mode), and checks that every
// read stays inside its buffer.
func (d *Device) vertexLayouts(prog *programObject, vao *vertexArrayObject, first, count, instances int) ([]gputypes.VertexBufferLayout, []vertexSlot, error) {
	type slotKey struct {
		obj     *bufferObject
		stride  int
		divisor uint32
	}
	var (
		layouts []gputypes.VertexBufferLayout
		slots   []vertexSlot
		bases   []int
		index   = make(map[slotKey]int)
	)

	for _, in := range prog.prog.Attributes {
		a, ok := vao.attribs[in.Location]
		if !ok || !a.enabled {
			return nil, nil, fmt.Errorf("%w: attribute %d is not enabled", errDraw, in.Location)
		}
		if !a.set {
			return nil, nil, fmt.Errorf("%w: attribute %d enabled without a pointer", errDraw, in.Location)
		}
		buf := a.obj
		if buf == nil || buf.deleted {
			return nil, nil, fmt.Errorf("%w: attribute %d reads deleted buffer %d", errDraw, in.Location, a.buf)
		}
		if a.integer != (in.Type != device.Float) {
			return nil, nil, fmt.Errorf("%w: attribute %d integer pointer does not match %s input", errDraw, in.Location, in.Type)
		}

		elements := first + count
		if a.divisor != 0 {
			elements = instances
		}
		if elements > 0 {
			end := a.offset + (elements-1)*a.stride + a.size
			if end > buf.size {
				return nil, nil, fmt.Errorf("%w: attribute %d reads %d bytes of %d-byte buffer %d",
					errDraw, in.Location, end, buf.size, a.buf)
			}
		}

		key := slotKey{obj: buf, stride: a.stride, divisor: a.divisor}
		i, ok := index[key]
		if !ok {
			if a.stride%4 != 0 {
				return nil, nil, fmt.Errorf("%w: attribute %d stride %d is not a multiple of 4", errDraw, in.Location, a.stride)
			}
			step := gputypes.VertexStepModeVertex
			if a.divisor != 0 {
				step = gputypes.VertexStepModeInstance
			}
			i = len(layouts)
			index[key] = i
			layouts = append(layouts, gputypes.VertexBufferLayout{ArrayStride: uint64(a.stride), StepMode: step})
			slots = append(slots, vertexSlot{buf: buf.raw})
			// The slot starts at the record holding the attribute so
			// attribute offsets stay below the stride.
			bases = append(bases, a.offset-a.offset%a.stride)
		}
		layouts[i].Attributes = append(layouts[i].Attributes, gputypes.VertexAttribute{
			Format:         a.format,
			Offset:         uint64(a.offset - bases[i]),
			ShaderLocation: in.Location,
		})
	}

	for i := range layouts {
		for _, attr := range layouts[i].Attributes {
			// All attributes of a slot share its base offset.
			if attr.Offset >= layouts[i].ArrayStride {
				return nil, nil, fmt.Errorf("%w: attribute %d offset does not fit stride %d", errDraw, attr.ShaderLocation, layouts[i].ArrayStride)
			}
		}
		slots[i].offset = uint64(bases[i])
	}
	return layouts, slots, nil
}

func (d *Device) pipelineDescriptor(prog *programObject, buffers []gputypes.VertexBufferLayout, topo gputypes.PrimitiveTopology) *PipelineDescriptor {
	desc := &PipelineDescriptor{
		Label:          fmt.Sprintf("%s_program%d", d.opts.label, prog.id),
		Program:        prog.id,
		Layout:         prog.layout,
		VertexModule:   prog.vs.raw,
		VertexEntry:    prog.prog.Vertex.EntryPoint,
		FragmentModule: prog.fs.raw,
		FragmentEntry:  prog.prog.Fragment.EntryPoint,
		Buffers:        buffers,
		Topology:       topo,
		ColorFormat:    d.target.colorFormat,
		DepthFormat:    d.target.depthFormat,
	}
	if d.caps[device.CapCullFace] {
		desc.CullMode, _ = cullMode(d.cull)
	}
	if d.caps[device.CapDepthTest] {
		desc.DepthTest = true
		desc.DepthCompare, _ = compareFunction(d.depth)
	}
	if d.caps[device.CapBlend] {
		op, _ := blendOperation(d.equation)
		src, _ := blendFactor(d.blend[0])
		dst, _ := blendFactor(d.blend[1])
		srcA, _ := blendFactor(d.blend[2])
		dstA, _ := blendFactor(d.blend[3])
		desc.Blend = &gputypes.BlendState{
			Color: gputypes.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: op},
			Alpha: gputypes.BlendComponent{SrcFactor: srcA, DstFactor: dstA, Operation: op},
		}
	}
	return desc
}
