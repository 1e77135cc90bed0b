package wgsl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/shadow/device"
)

// Program is the linked interface of a vertex and fragment stage.
type Program struct {
	Vertex   *Module
	Fragment *Module

	// Attributes are the vertex stage inputs, ordered by location.
	Attributes []Varying

	// Uniforms is the union of both stages' uniforms, ordered by binding.
	Uniforms []Uniform
}

// Uniform returns the uniform with the given name.
func (p *Program) Uniform(name string) (Uniform, bool) {
	for _, u := range p.Uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return Uniform{}, false
}

// Link checks that the fragment inputs are produced by the vertex stage and
// that both stages agree on uniform bindings. The returned error text is the
// full list of problems, one per line.
func Link(vs, fs *Module) (*Program, error) {
	var problems []string
	if vs == nil || vs.Stage != device.VertexStage {
		problems = append(problems, "vertex stage missing")
	}
	if fs == nil || fs.Stage != device.FragmentStage {
		problems = append(problems, "fragment stage missing")
	}
	if len(problems) > 0 {
		return nil, linkError(problems)
	}

	outputs := make(map[uint32]Varying, len(vs.Outputs))
	for _, o := range vs.Outputs {
		outputs[o.Location] = o
	}
	for _, in := range fs.Inputs {
		out, ok := outputs[in.Location]
		if !ok {
			problems = append(problems, fmt.Sprintf("fragment input %q at location %d is not written by the vertex stage", in.Name, in.Location))
			continue
		}
		if out.Type != in.Type || out.Components != in.Components {
			problems = append(problems, fmt.Sprintf("location %d: vertex writes %s x%d, fragment reads %s x%d",
				in.Location, out.Type, out.Components, in.Type, in.Components))
		}
	}

	byName := make(map[string]Uniform)
	bySlot := make(map[[2]uint32]string)
	var merged []Uniform
	for _, m := range [...]*Module{vs, fs} {
		for _, u := range m.Uniforms {
			slot := [2]uint32{u.Group, u.Binding}
			if prev, ok := byName[u.Name]; ok {
				if prev.Group != u.Group || prev.Binding != u.Binding || prev.Kind != u.Kind {
					problems = append(problems, fmt.Sprintf("uniform %q declared differently in the two stages", u.Name))
				}
				continue
			}
			if other, ok := bySlot[slot]; ok {
				problems = append(problems, fmt.Sprintf("uniforms %q and %q share @group(%d) @binding(%d)", other, u.Name, u.Group, u.Binding))
				continue
			}
			byName[u.Name] = u
			bySlot[slot] = u.Name
			merged = append(merged, u)
		}
	}
	if len(problems) > 0 {
		return nil, linkError(problems)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Group != merged[j].Group {
			return merged[i].Group < merged[j].Group
		}
		return merged[i].Binding < merged[j].Binding
	})
	attrs := append([]Varying(nil), vs.Inputs...)
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Location < attrs[j].Location })

	return &Program{Vertex: vs, Fragment: fs, Attributes: attrs, Uniforms: merged}, nil
}

func linkError(problems []string) error {
	return &device.LinkError{Log: strings.Join(problems, "\n")}
}
