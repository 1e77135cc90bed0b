package shadow

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/gogpu/shadow/device"
)

// BufferBinding is one buffer attribute bound to one program input.
type BufferBinding struct {
	Name       string
	Location   uint32
	Type       device.ScalarType
	Components int
	Stride     int
	Offset     int

	// Divisor is 0 for per-vertex and 1 for per-instance attributes.
	Divisor    uint32
	Normalized bool

	// Integer selects VertexAttribIPointer: the input is an integer vector
	// fed with unconverted integer data.
	Integer bool
}

// SignatureEntry is the binding list contributed by one buffer.
type SignatureEntry struct {
	Buffer   *BufferHandle
	Bindings []BufferBinding
}

// LayoutSignature is the exact set of buffers and attribute bindings used
// by one draw. It is the key of the vertex layout cache.
//
// Entries are ordered by buffer identity, so the same buffers and program
// always produce the same signature, while a different buffer with equal
// contents does not.
type LayoutSignature struct {
	entries []SignatureEntry
	key     string
}

// Key returns the canonical string form of the signature.
func (s LayoutSignature) Key() string { return s.key }

// Len returns the number of buffers in the signature.
func (s LayoutSignature) Len() int { return len(s.entries) }

// Entries returns the buffers and their bindings in signature order.
func (s LayoutSignature) Entries() []SignatureEntry { return s.entries }

// Equal reports whether s and o describe the same layout.
func (s LayoutSignature) Equal(o LayoutSignature) bool { return s.key == o.key }

// Bindings returns the total number of attribute bindings.
func (s LayoutSignature) Bindings() int {
	n := 0
	for _, e := range s.entries {
		n += len(e.Bindings)
	}
	return n
}

func (s LayoutSignature) String() string {
	if s.key == "" {
		return "<empty>"
	}
	return s.key
}

func newLayoutSignature(entries []SignatureEntry) LayoutSignature {
	slices.SortStableFunc(entries, func(a, b SignatureEntry) int {
		switch {
		case a.Buffer.id < b.Buffer.id:
			return -1
		case a.Buffer.id > b.Buffer.id:
			return 1
		}
		return 0
	})

	var key []byte
	for _, e := range entries {
		key = append(key, 'b')
		key = strconv.AppendUint(key, e.Buffer.id, 10)
		key = append(key, '{')
		for _, b := range e.Bindings {
			key = strconv.AppendUint(key, uint64(b.Location), 10)
			key = append(key, ':')
			key = strconv.AppendUint(key, uint64(b.Type), 16)
			key = append(key, 'x')
			key = strconv.AppendInt(key, int64(b.Components), 10)
			key = append(key, '/')
			key = strconv.AppendInt(key, int64(b.Stride), 10)
			key = append(key, '+')
			key = strconv.AppendInt(key, int64(b.Offset), 10)
			key = append(key, '@')
			key = strconv.AppendUint(key, uint64(b.Divisor), 10)
			if b.Normalized {
				key = append(key, 'n')
			}
			if b.Integer {
				key = append(key, 'i')
			}
			key = append(key, ';')
		}
		key = append(key, '}')
	}
	return LayoutSignature{entries: entries, key: string(key)}
}

// drawSource is one buffer participating in a draw.
type drawSource struct {
	h       *BufferHandle
	divisor uint32
}

// matchResult is the outcome of matching the buffers of a draw against the
// attributes a program consumes.
type matchResult struct {
	sig   LayoutSignature
	empty int // non-empty buffers that contributed no binding
}

// matchAttributes pairs each buffer attribute with the program input of the
// same name. Attributes the program does not consume are dropped.
func matchAttributes(p *Program, srcs []drawSource, permissive bool, log *slog.Logger) (matchResult, error) {
	var res matchResult
	taken := make(map[uint32]uint64, len(p.attrs))
	entries := make([]SignatureEntry, 0, len(srcs))

	for _, src := range srcs {
		l := src.h.layout
		var bindings []BufferBinding
		offset := 0
		for _, d := range l.attrs {
			off := offset
			offset += d.Size()

			a, ok := p.attrs[d.Name]
			if !ok {
				log.Debug("shadow: attribute not consumed by program",
					"attribute", d.Name, "buffer", src.h.id, "program", p.id)
				continue
			}
			if prev, dup := taken[a.Location]; dup {
				log.Warn("shadow: attribute supplied by more than one buffer",
					"attribute", d.Name, "buffer", src.h.id, "first", prev)
				continue
			}
			if err := checkAttributeType(d, a); err != nil {
				if !permissive {
					return res, err
				}
				log.Warn("shadow: attribute type mismatch",
					"attribute", d.Name, "buffer", src.h.id, "program", p.id, "err", err)
			}

			taken[a.Location] = src.h.id
			bindings = append(bindings, BufferBinding{
				Name:       d.Name,
				Location:   a.Location,
				Type:       d.Type,
				Components: d.Components,
				Stride:     l.stride,
				Offset:     off,
				Divisor:    src.divisor,
				Normalized: d.Normalized,
				Integer:    d.Type.IsInteger() && !d.Normalized && a.Type.IsInteger(),
			})
		}

		if len(bindings) == 0 {
			if len(l.attrs) > 0 {
				res.empty++
				log.Warn("shadow: buffer contributes no attributes to the draw",
					"buffer", src.h.id, "label", src.h.label, "program", p.id)
			}
			continue
		}
		entries = append(entries, SignatureEntry{Buffer: src.h, Bindings: bindings})
	}

	for name, a := range p.attrs {
		if _, ok := taken[a.Location]; !ok {
			log.Debug("shadow: program input has no buffer attribute", "attribute", name, "program", p.id)
		}
	}

	res.sig = newLayoutSignature(entries)
	return res, nil
}

// checkAttributeType reports whether buffer data described by d can feed the
// program input a. Float inputs take float or normalized integer data;
// integer inputs take integer data of the same signedness. The buffer may
// supply fewer components than the input declares.
func checkAttributeType(d AttributeDescriptor, a device.ActiveAttribute) error {
	ok := true
	switch a.Type {
	case device.Float:
		ok = d.Type == device.Float || d.Normalized
	case device.Int:
		ok = !d.Normalized && (d.Type == device.Byte || d.Type == device.Short || d.Type == device.Int)
	case device.UInt:
		ok = !d.Normalized && (d.Type == device.UByte || d.Type == device.UShort || d.Type == device.UInt)
	}
	if !ok {
		return fmt.Errorf("%w: %q is %s%s in the buffer and %s in the program",
			ErrAttributeTypeMismatch, d.Name, d.Type, normSuffix(d.Normalized), a.Type)
	}
	if d.Components > a.Components {
		return fmt.Errorf("%w: %q has %d components in the buffer and %d in the program",
			ErrAttributeTypeMismatch, d.Name, d.Components, a.Components)
	}
	return nil
}

func normSuffix(normalized bool) string {
	if normalized {
		return " (normalized)"
	}
	return ""
}
