//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadow/device"
	"github.com/gogpu/shadow/internal/wgsl"
)

// shaderModule is shared by a shader and the programs linked from it, so a
// shader can be deleted right after linking, as GL allows.
type shaderModule struct {
	raw  hal.ShaderModule
	refs int
}

func (m *shaderModule) release(dev hal.Device) {
	m.refs--
	if m.refs == 0 && m.raw != nil {
		dev.DestroyShaderModule(m.raw)
		m.raw = nil
	}
}

type shaderObject struct {
	stage  device.Stage
	mod    *wgsl.Module
	module *shaderModule
}

type uniformSlot struct {
	decl  wgsl.Uniform
	buf   hal.Buffer
	value device.UniformValue
}

type programObject struct {
	id     uint64
	prog   *wgsl.Program
	vs, fs *shaderModule

	layout       hal.PipelineLayout
	groupLayouts []hal.BindGroupLayout
	// groups holds one bind group per group index up to the highest used;
	// unused indices get an empty group.
	groups   []hal.BindGroup
	uniforms map[device.UniformLocation]*uniformSlot
}

// Shaders and programs

func (d *Device) CompileShader(stage device.Stage, source string) (device.Shader, error) {
	mod, err := wgsl.Compile(stage, source)
	if err != nil {
		return 0, &device.CompileError{Stage: stage, Log: err.Error()}
	}
	raw, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("%s_%s", d.opts.label, stage),
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return 0, &device.CompileError{Stage: stage, Log: err.Error()}
	}
	d.nextShader++
	s := device.Shader(d.nextShader)
	d.shaders[s] = &shaderObject{stage: stage, mod: mod, module: &shaderModule{raw: raw, refs: 1}}
	slogger().Debug("native: shader compiled", "shader", s, "stage", stage, "entry", mod.EntryPoint)
	return s, nil
}

func (d *Device) DeleteShader(s device.Shader) {
	obj := d.shaders[s]
	if obj == nil {
		return
	}
	obj.module.release(d.dev)
	delete(d.shaders, s)
}

func (d *Device) LinkProgram(vs, fs device.Shader) (device.Program, error) {
	v, f := d.shaders[vs], d.shaders[fs]
	if v == nil || f == nil {
		d.setError(device.InvalidValue, "LinkProgram", "unknown shader")
		return 0, fmt.Errorf("native: link %d, %d: %w", vs, fs, device.ErrInvalidHandle)
	}
	prog, err := wgsl.Link(v.mod, f.mod)
	if err != nil {
		return 0, err
	}
	for _, u := range prog.Uniforms {
		if u.Kind == device.UniformInvalid {
			return 0, &device.LinkError{Log: fmt.Sprintf("uniform %q: only scalar, vector and matrix uniforms are supported", u.Name)}
		}
	}

	d.nextProgram++
	p := device.Program(d.nextProgram)
	obj := &programObject{
		id:       uint64(p),
		prog:     prog,
		vs:       v.module,
		fs:       f.module,
		uniforms: make(map[device.UniformLocation]*uniformSlot, len(prog.Uniforms)),
	}
	if err := d.buildBindings(obj); err != nil {
		d.destroyProgram(obj)
		d.setError(device.OutOfMemory, "LinkProgram", err.Error())
		return 0, fmt.Errorf("native: link: %w: %w", device.ErrOutOfMemory, err)
	}
	v.module.refs++
	f.module.refs++
	d.programs[p] = obj
	slogger().Debug("native: program linked", "program", p, "attributes", len(prog.Attributes), "uniforms", len(prog.Uniforms))
	return p, nil
}

// buildBindings creates a uniform buffer per uniform, a bind group per group
// index and the pipeline layout.
func (d *Device) buildBindings(obj *programObject) error {
	groups := 0
	for _, u := range obj.prog.Uniforms {
		groups = max(groups, int(u.Group)+1)
	}
	label := d.opts.label

	for g := range groups {
		var layoutEntries []gputypes.BindGroupLayoutEntry
		var entries []gputypes.BindGroupEntry
		for _, u := range obj.prog.Uniforms {
			if int(u.Group) != g {
				continue
			}
			size := wgsl.UniformSize(u.Kind)
			buf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
				Label: label + "_uniform_" + u.Name,
				Size:  size,
				Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("uniform %q buffer: %w", u.Name, err)
			}
			obj.uniforms[u.Location()] = &uniformSlot{decl: u, buf: buf, value: device.UniformValue{Kind: u.Kind}}
			if err := d.queue.WriteBuffer(buf, 0, make([]byte, size)); err != nil {
				return fmt.Errorf("uniform %q init: %w", u.Name, err)
			}

			layoutEntries = append(layoutEntries, gputypes.BindGroupLayoutEntry{
				Binding:    u.Binding,
				Visibility: gputypes.ShaderStagesVertexFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: size},
			})
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  u.Binding,
				Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Size: size},
			})
		}

		bgl, err := d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d_layout", label, g),
			Entries: layoutEntries,
		})
		if err != nil {
			return fmt.Errorf("group %d layout: %w", g, err)
		}
		obj.groupLayouts = append(obj.groupLayouts, bgl)

		bg, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s_group%d", label, g),
			Layout:  bgl,
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("group %d: %w", g, err)
		}
		obj.groups = append(obj.groups, bg)
	}

	layout, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipeline_layout",
		BindGroupLayouts: obj.groupLayouts,
	})
	if err != nil {
		return fmt.Errorf("pipeline layout: %w", err)
	}
	obj.layout = layout
	return nil
}

// destroyProgram releases the bindings of obj. Shader module references are
// released by DeleteProgram, which owns them.
func (d *Device) destroyProgram(obj *programObject) {
	if obj.layout != nil {
		d.dev.DestroyPipelineLayout(obj.layout)
	}
	for _, bg := range obj.groups {
		d.dev.DestroyBindGroup(bg)
	}
	for _, bgl := range obj.groupLayouts {
		d.dev.DestroyBindGroupLayout(bgl)
	}
	for _, u := range obj.uniforms {
		d.dev.DestroyBuffer(u.buf)
	}
	obj.layout, obj.groups, obj.groupLayouts = nil, nil, nil
	clear(obj.uniforms)
}

func (d *Device) DeleteProgram(p device.Program) {
	obj := d.programs[p]
	if obj == nil {
		return
	}
	if err := d.idle(); err != nil {
		slogger().Warn("native: wait before program delete failed", "error", err)
	}
	n := d.pipelines.DestroyProgram(d.dev, obj.id)
	d.destroyProgram(obj)
	obj.vs.release(d.dev)
	obj.fs.release(d.dev)
	delete(d.programs, p)
	if d.program == p {
		d.program = 0
	}
	slogger().Debug("native: program deleted", "program", p, "pipelines", n)
}

func (d *Device) UseProgram(p device.Program) {
	if p != 0 && d.programs[p] == nil {
		d.setError(device.InvalidOperation, "UseProgram", "unknown program")
		return
	}
	d.program = p
}

func (d *Device) ActiveAttributes(p device.Program) ([]device.ActiveAttribute, error) {
	obj := d.programs[p]
	if obj == nil {
		return nil, fmt.Errorf("native: program %d: %w", p, device.ErrInvalidHandle)
	}
	out := make([]device.ActiveAttribute, 0, len(obj.prog.Attributes))
	for _, a := range obj.prog.Attributes {
		if !a.Supported {
			return nil, fmt.Errorf("native: attribute %q: %w", a.Name, device.ErrUnsupported)
		}
		out = append(out, device.ActiveAttribute{
			Name:       a.Name,
			Location:   a.Location,
			Type:       a.Type,
			Components: a.Components,
			Size:       a.ArraySize,
		})
	}
	return out, nil
}

func (d *Device) UniformLocation(p device.Program, name string) (device.UniformLocation, bool) {
	obj := d.programs[p]
	if obj == nil {
		return -1, false
	}
	u, ok := obj.prog.Uniform(name)
	if !ok {
		return -1, false
	}
	return u.Location(), true
}

func (d *Device) Uniform(loc device.UniformLocation, v device.UniformValue) {
	if loc < 0 {
		return
	}
	obj := d.programs[d.program]
	if obj == nil {
		d.setError(device.InvalidOperation, "Uniform", "no program in use")
		return
	}
	slot := obj.uniforms[loc]
	if slot == nil || slot.decl.Kind != v.Kind {
		d.setError(device.InvalidOperation, "Uniform", "location or type")
		return
	}
	if err := d.idle(); err != nil {
		d.setError(device.ContextLost, "Uniform", err.Error())
		return
	}
	if err := d.queue.WriteBuffer(slot.buf, 0, wgsl.PackUniform(v)); err != nil {
		d.setError(device.OutOfMemory, "Uniform", err.Error())
		return
	}
	slot.value = v
}

// UniformValue returns the value last uploaded to loc of p.
func (d *Device) UniformValue(p device.Program, loc device.UniformLocation) (device.UniformValue, bool) {
	obj := d.programs[p]
	if obj == nil {
		return device.UniformValue{}, false
	}
	slot := obj.uniforms[loc]
	if slot == nil {
		return device.UniformValue{}, false
	}
	return slot.value, true
}
