package shadow

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/shadow/device"
)

func TestCheckAttributeType(t *testing.T) {
	tests := []struct {
		name  string
		data  AttributeDescriptor
		input device.ActiveAttribute
		ok    bool
	}{
		{"float to float", AttributeDescriptor{Type: device.Float, Components: 2}, device.ActiveAttribute{Type: device.Float, Components: 2}, true},
		{"fewer components", AttributeDescriptor{Type: device.Float, Components: 2}, device.ActiveAttribute{Type: device.Float, Components: 4}, true},
		{"more components", AttributeDescriptor{Type: device.Float, Components: 4}, device.ActiveAttribute{Type: device.Float, Components: 2}, false},
		{"normalized ubyte to float", AttributeDescriptor{Type: device.UByte, Components: 4, Normalized: true}, device.ActiveAttribute{Type: device.Float, Components: 4}, true},
		{"raw int to float", AttributeDescriptor{Type: device.Int, Components: 2}, device.ActiveAttribute{Type: device.Float, Components: 2}, false},
		{"uint to uint", AttributeDescriptor{Type: device.UInt, Components: 1}, device.ActiveAttribute{Type: device.UInt, Components: 1}, true},
		{"ushort to uint", AttributeDescriptor{Type: device.UShort, Components: 1}, device.ActiveAttribute{Type: device.UInt, Components: 1}, true},
		{"signed to uint", AttributeDescriptor{Type: device.Int, Components: 1}, device.ActiveAttribute{Type: device.UInt, Components: 1}, false},
		{"byte to int", AttributeDescriptor{Type: device.Byte, Components: 3}, device.ActiveAttribute{Type: device.Int, Components: 3}, true},
		{"normalized to int", AttributeDescriptor{Type: device.Short, Components: 1, Normalized: true}, device.ActiveAttribute{Type: device.Int, Components: 1}, false},
		{"float to int", AttributeDescriptor{Type: device.Float, Components: 1}, device.ActiveAttribute{Type: device.Int, Components: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.data.Name = "a"
			err := checkAttributeType(tt.data, tt.input)
			if tt.ok && err != nil {
				t.Errorf("checkAttributeType() error = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrAttributeTypeMismatch) {
				t.Errorf("checkAttributeType() error = %v, want ErrAttributeTypeMismatch", err)
			}
		})
	}
}

// boundProgram returns a program that looks bound with the given inputs.
func boundProgram(attrs ...device.ActiveAttribute) *Program {
	p := NewProgram("", "", device.Triangles)
	p.status = programBound
	p.attrs = make(map[string]device.ActiveAttribute, len(attrs))
	for _, a := range attrs {
		if a.Size == 0 {
			a.Size = 1
		}
		p.attrs[a.Name] = a
	}
	return p
}

func TestMatchAttributesOrdersByBuffer(t *testing.T) {
	p := boundProgram(
		device.ActiveAttribute{Name: "position", Location: 0, Type: device.Float, Components: 2},
		device.ActiveAttribute{Name: "offset", Location: 1, Type: device.Float, Components: 2},
	)
	shape := mustBuffer(t, triangle())
	offsets := mustBuffer(t, []instanceOffset{{}})

	forward, err := matchAttributes(p, []drawSource{{h: shape.Handle()}, {h: offsets.Handle(), divisor: 1}}, false, Logger())
	if err != nil {
		t.Fatal(err)
	}
	reversed, err := matchAttributes(p, []drawSource{{h: offsets.Handle(), divisor: 1}, {h: shape.Handle()}}, false, Logger())
	if err != nil {
		t.Fatal(err)
	}
	if !forward.sig.Equal(reversed.sig) {
		t.Errorf("source order changed the signature:\n%s\n%s", forward.sig, reversed.sig)
	}
	if forward.sig.Len() != 2 || forward.sig.Bindings() != 2 {
		t.Errorf("signature %s: Len()=%d Bindings()=%d", forward.sig, forward.sig.Len(), forward.sig.Bindings())
	}
	e := forward.sig.Entries()
	if e[0].Buffer != shape.Handle() || e[1].Bindings[0].Divisor != 1 {
		t.Errorf("entries = %+v", e)
	}
}

func TestMatchAttributesDuplicateLocation(t *testing.T) {
	var logs strings.Builder
	log := slog.New(slog.NewTextHandler(&logs, nil))
	p := boundProgram(device.ActiveAttribute{Name: "position", Location: 0, Type: device.Float, Components: 2})
	a := mustBuffer(t, triangle())
	b := mustBuffer(t, triangle())

	m, err := matchAttributes(p, []drawSource{{h: a.Handle()}, {h: b.Handle()}}, false, log)
	if err != nil {
		t.Fatal(err)
	}
	if m.sig.Bindings() != 1 {
		t.Errorf("Bindings() = %d, want the first buffer only", m.sig.Bindings())
	}
	if m.sig.Entries()[0].Buffer != a.Handle() {
		t.Error("the second buffer won the location")
	}
	if m.empty != 1 {
		t.Errorf("empty = %d, want 1", m.empty)
	}
	if !strings.Contains(logs.String(), "more than one buffer") {
		t.Errorf("no duplicate warning:\n%s", logs.String())
	}
}

func TestMatchAttributesIntegerFlag(t *testing.T) {
	type record struct {
		Tag   uint32
		Level uint8 `attr:"level,normalized"`
		Count uint16
	}
	p := boundProgram(
		device.ActiveAttribute{Name: "tag", Location: 0, Type: device.UInt, Components: 1},
		device.ActiveAttribute{Name: "level", Location: 1, Type: device.Float, Components: 1},
		device.ActiveAttribute{Name: "count", Location: 2, Type: device.UInt, Components: 1},
	)
	buf := mustBuffer(t, []record{{1, 2, 3}})

	m, err := matchAttributes(p, []drawSource{{h: buf.Handle()}}, false, Logger())
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"tag": true, "level": false, "count": true}
	for _, b := range m.sig.Entries()[0].Bindings {
		if b.Integer != want[b.Name] {
			t.Errorf("%s: Integer = %v, want %v", b.Name, b.Integer, want[b.Name])
		}
	}
	offsets := map[string]int{"tag": 0, "level": 4, "count": 5}
	for _, b := range m.sig.Entries()[0].Bindings {
		if b.Offset != offsets[b.Name] || b.Stride != 7 {
			t.Errorf("%s: offset=%d stride=%d", b.Name, b.Offset, b.Stride)
		}
	}
}

func TestLayoutSignatureString(t *testing.T) {
	if got := newLayoutSignature(nil).String(); got != "<empty>" {
		t.Errorf("empty signature String() = %q", got)
	}

	h := mustBuffer(t, triangle()).Handle()
	sig := newLayoutSignature([]SignatureEntry{{
		Buffer: h,
		Bindings: []BufferBinding{
			{Location: 3, Type: device.UByte, Components: 4, Stride: 12, Offset: 8, Divisor: 1, Normalized: true},
		},
	}})
	key := sig.Key()
	for _, part := range []string{"{3:1401x4/12+8@1n;}"} {
		if !strings.Contains(key, part) {
			t.Errorf("Key() = %q, want it to contain %q", key, part)
		}
	}
	if !strings.HasPrefix(key, "b") {
		t.Errorf("Key() = %q, want buffer prefix", key)
	}
}

func BenchmarkMatchAttributes(b *testing.B) {
	p := boundProgram(
		device.ActiveAttribute{Name: "position", Location: 0, Type: device.Float, Components: 2},
		device.ActiveAttribute{Name: "color", Location: 1, Type: device.Float, Components: 4},
	)
	buf, err := NewBuffer([]coloredVertex{{}})
	if err != nil {
		b.Fatal(err)
	}
	srcs := []drawSource{{h: buf.Handle()}}
	log := Logger()
	for b.Loop() {
		if _, err := matchAttributes(p, srcs, false, log); err != nil {
			b.Fatal(err)
		}
	}
}
