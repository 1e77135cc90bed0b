// Package wgsl compiles WGSL shader stages with naga and reflects the
// interface the state shadow needs: vertex inputs, inter-stage varyings and
// uniform bindings.
package wgsl

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/shadow/device"
)

// ErrNoEntryPoint is returned when a stage source has no entry point of that stage.
var ErrNoEntryPoint = errors.New("wgsl: no entry point for stage")

// Varying is a location-bound stage input or output.
type Varying struct {
	Name       string
	Location   uint32
	Type       device.ScalarType
	Components int

	// ArraySize is 1 for plain values. WGSL rejects arrays at IO
	// locations, but reflection reports what the IR holds.
	ArraySize int

	// Supported is false when the IR type has no vertex attribute
	// equivalent (f16, bool, matrices).
	Supported bool
}

// Uniform is a var<uniform> declaration.
type Uniform struct {
	Name    string
	Group   uint32
	Binding uint32

	// Kind is UniformInvalid for types the variant cannot hold (structs, arrays).
	Kind device.UniformKind
}

// Location packs the group and binding of u into a program-relative uniform
// location.
func (u Uniform) Location() device.UniformLocation {
	return device.UniformLocation(u.Group<<8 | u.Binding&0xff)
}

// Module is the reflected interface of one compiled stage.
type Module struct {
	Stage      device.Stage
	EntryPoint string
	Inputs     []Varying
	Outputs    []Varying
	Uniforms   []Uniform
}

// Compile parses, lowers and validates source and reflects the entry point of
// the given stage. Errors carry naga's diagnostic text.
func Compile(stage device.Stage, source string) (*Module, error) {
	want, err := irStage(stage)
	if err != nil {
		return nil, err
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("lowering error: %w", err)
	}
	verrs, err := naga.Validate(mod)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", verrs[0])
	}

	for i := range mod.EntryPoints {
		ep := &mod.EntryPoints[i]
		if ep.Stage != want {
			continue
		}
		m := &Module{
			Stage:      stage,
			EntryPoint: ep.Name,
			Inputs:     entryInputs(mod, &ep.Function),
			Outputs:    entryOutputs(mod, &ep.Function),
			Uniforms:   uniforms(mod),
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, stage)
}

func irStage(stage device.Stage) (ir.ShaderStage, error) {
	switch stage {
	case device.VertexStage:
		return ir.StageVertex, nil
	case device.FragmentStage:
		return ir.StageFragment, nil
	default:
		return 0, fmt.Errorf("wgsl: %w stage %s", device.ErrUnsupported, stage)
	}
}

func entryInputs(mod *ir.Module, fn *ir.Function) []Varying {
	var out []Varying
	for _, arg := range fn.Arguments {
		out = appendVaryings(out, mod, arg.Name, arg.Type, arg.Binding)
	}
	return out
}

func entryOutputs(mod *ir.Module, fn *ir.Function) []Varying {
	if fn.Result == nil {
		return nil
	}
	return appendVaryings(nil, mod, "", fn.Result.Type, fn.Result.Binding)
}

// appendVaryings adds a location-bound value, or the location-bound members
// of an unbound struct.
func appendVaryings(out []Varying, mod *ir.Module, name string, th ir.TypeHandle, binding *ir.Binding) []Varying {
	if binding != nil {
		if loc, ok := (*binding).(ir.LocationBinding); ok {
			out = append(out, varying(mod, name, loc.Location, th))
		}
		return out
	}
	st, ok := typeInner(mod, th).(ir.StructType)
	if !ok {
		return out
	}
	for _, m := range st.Members {
		if m.Binding == nil {
			continue
		}
		if loc, ok := (*m.Binding).(ir.LocationBinding); ok {
			out = append(out, varying(mod, m.Name, loc.Location, m.Type))
		}
	}
	return out
}

func varying(mod *ir.Module, name string, location uint32, th ir.TypeHandle) Varying {
	v := Varying{Name: name, Location: location, ArraySize: 1}
	inner := typeInner(mod, th)
	if arr, ok := inner.(ir.ArrayType); ok {
		if arr.Size.Constant != nil {
			v.ArraySize = int(*arr.Size.Constant)
		}
		inner = typeInner(mod, arr.Base)
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		v.Type, v.Supported = scalar(t)
		v.Components = 1
	case ir.VectorType:
		v.Type, v.Supported = scalar(t.Scalar)
		v.Components = int(t.Size)
	}
	return v
}

func scalar(s ir.ScalarType) (device.ScalarType, bool) {
	if s.Width != 4 {
		return 0, false
	}
	switch s.Kind {
	case ir.ScalarFloat:
		return device.Float, true
	case ir.ScalarSint:
		return device.Int, true
	case ir.ScalarUint:
		return device.UInt, true
	default:
		return 0, false
	}
}

func uniforms(mod *ir.Module) []Uniform {
	var out []Uniform
	for _, gv := range mod.GlobalVariables {
		if gv.Space != ir.SpaceUniform || gv.Binding == nil {
			continue
		}
		out = append(out, Uniform{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Kind:    uniformKind(typeInner(mod, gv.Type)),
		})
	}
	return out
}

var (
	floatKinds = [...]device.UniformKind{1: device.UniformFloat, 2: device.UniformVec2, 3: device.UniformVec3, 4: device.UniformVec4}
	intKinds   = [...]device.UniformKind{1: device.UniformInt, 2: device.UniformIVec2, 3: device.UniformIVec3, 4: device.UniformIVec4}
	uintKinds  = [...]device.UniformKind{1: device.UniformUint, 2: device.UniformUVec2, 3: device.UniformUVec3, 4: device.UniformUVec4}
)

func uniformKind(inner ir.TypeInner) device.UniformKind {
	var (
		s     ir.ScalarType
		comps int
	)
	switch t := inner.(type) {
	case ir.ScalarType:
		s, comps = t, 1
	case ir.VectorType:
		s, comps = t.Scalar, int(t.Size)
	case ir.MatrixType:
		if t.Columns != t.Rows || t.Scalar.Kind != ir.ScalarFloat || t.Scalar.Width != 4 {
			return device.UniformInvalid
		}
		switch t.Columns {
		case ir.Vec2:
			return device.UniformMat2
		case ir.Vec3:
			return device.UniformMat3
		case ir.Vec4:
			return device.UniformMat4
		}
		return device.UniformInvalid
	default:
		return device.UniformInvalid
	}
	typ, ok := scalar(s)
	if !ok || comps < 1 || comps > 4 {
		return device.UniformInvalid
	}
	switch typ {
	case device.Int:
		return intKinds[comps]
	case device.UInt:
		return uintKinds[comps]
	default:
		return floatKinds[comps]
	}
}

func typeInner(mod *ir.Module, th ir.TypeHandle) ir.TypeInner {
	if int(th) >= len(mod.Types) {
		return nil
	}
	return mod.Types[th].Inner
}
