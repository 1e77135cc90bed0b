package shadow

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gogpu/shadow/device"
)

// AttributeDescriptor describes one field of a vertex record.
type AttributeDescriptor struct {
	Name       string
	Type       device.ScalarType
	Components int

	// Normalized maps integer data to [0,1] or [-1,1] floats in the shader.
	Normalized bool
}

// Size returns the packed byte size of the attribute.
func (d AttributeDescriptor) Size() int {
	return d.Type.Size() * d.Components
}

func (d AttributeDescriptor) validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: attribute without a name", ErrInvalidAttributeType)
	case !d.Type.Valid():
		return fmt.Errorf("%w: attribute %q has type %s", ErrInvalidAttributeType, d.Name, d.Type)
	case d.Components < 1 || d.Components > 4:
		return fmt.Errorf("%w: attribute %q has %d components, want 1..4", ErrInvalidAttributeType, d.Name, d.Components)
	case d.Normalized && !d.Type.IsInteger():
		return fmt.Errorf("%w: attribute %q is normalized but not an integer type", ErrInvalidAttributeType, d.Name)
	}
	return nil
}

// AttributeDescriber is implemented by record types that describe and pack
// themselves instead of relying on struct tags. AppendAttributes must append
// exactly the packed size of the described attributes.
type AttributeDescriber interface {
	Attributes() []AttributeDescriptor
	AppendAttributes(b []byte) []byte
}

// Describe returns the attribute layout of T.
//
// T is either an AttributeDescriber or a struct whose fields are all vertex
// attributes. Field types are int8, uint8, int16, uint16, int32, uint32,
// float32 or arrays of 1 to 4 of them. The attribute name comes from the
// `attr` tag, or the field name with its first letter lower-cased:
//
//	type Vertex struct {
//		Position [2]float32
//		Color    [4]uint8 `attr:"color,normalized"`
//	}
//
// Fields are packed in declaration order without padding.
func Describe[T any]() ([]AttributeDescriptor, error) {
	l, err := layoutFor[T]()
	if err != nil {
		return nil, err
	}
	return append([]AttributeDescriptor(nil), l.attrs...), nil
}

// recordLayout is the cached description of a record type.
type recordLayout struct {
	attrs  []AttributeDescriptor
	stride int
	custom bool
}

var layouts sync.Map // reflect.Type -> *recordLayout

func layoutFor[T any]() (*recordLayout, error) {
	t := reflect.TypeFor[T]()
	if l, ok := layouts.Load(t); ok {
		return l.(*recordLayout), nil
	}

	var (
		l   *recordLayout
		err error
	)
	var zero T
	if d, ok := any(zero).(AttributeDescriber); ok {
		l, err = newRecordLayout(d.Attributes())
		if l != nil {
			l.custom = true
		}
	} else {
		l, err = structLayout(t)
	}
	if err != nil {
		return nil, err
	}
	actual, _ := layouts.LoadOrStore(t, l)
	return actual.(*recordLayout), nil
}

func newRecordLayout(attrs []AttributeDescriptor) (*recordLayout, error) {
	l := &recordLayout{attrs: attrs}
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if err := a.validate(); err != nil {
			return nil, err
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("%w: attribute %q declared twice", ErrInvalidAttributeType, a.Name)
		}
		seen[a.Name] = true
		l.stride += a.Size()
	}
	return l, nil
}

var scalarKinds = map[reflect.Kind]device.ScalarType{
	reflect.Int8:    device.Byte,
	reflect.Uint8:   device.UByte,
	reflect.Int16:   device.Short,
	reflect.Uint16:  device.UShort,
	reflect.Int32:   device.Int,
	reflect.Uint32:  device.UInt,
	reflect.Float32: device.Float,
}

func structLayout(t reflect.Type) (*recordLayout, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidAttributeType, t)
	}
	attrs := make([]AttributeDescriptor, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			return nil, fmt.Errorf("%w: %s.%s is unexported", ErrInvalidAttributeType, t, f.Name)
		}
		d, err := fieldDescriptor(f)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t, f.Name, err)
		}
		attrs = append(attrs, d)
	}
	return newRecordLayout(attrs)
}

func fieldDescriptor(f reflect.StructField) (AttributeDescriptor, error) {
	d := AttributeDescriptor{Name: lowerFirst(f.Name), Components: 1}

	if tag, ok := f.Tag.Lookup("attr"); ok {
		name, opts, _ := strings.Cut(tag, ",")
		if name != "" {
			d.Name = name
		}
		for _, opt := range strings.Split(opts, ",") {
			switch opt {
			case "":
			case "normalized":
				d.Normalized = true
			default:
				return d, fmt.Errorf("%w: unknown tag option %q", ErrInvalidAttributeType, opt)
			}
		}
	}

	ft := f.Type
	if ft.Kind() == reflect.Array {
		d.Components = ft.Len()
		ft = ft.Elem()
	}
	typ, ok := scalarKinds[ft.Kind()]
	if !ok {
		return d, fmt.Errorf("%w: field type %s", ErrInvalidAttributeType, f.Type)
	}
	d.Type = typ
	return d, nil
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

// packRecords encodes elements with the layout of T.
func packRecords[T any](l *recordLayout, elements []T, dst []byte) []byte {
	dst = dst[:0]
	if l.custom {
		for i := range elements {
			n := len(dst)
			dst = any(elements[i]).(AttributeDescriber).AppendAttributes(dst)
			if len(dst)-n != l.stride {
				panic(fmt.Sprintf("shadow: %T.AppendAttributes wrote %d bytes, layout stride is %d", elements[i], len(dst)-n, l.stride))
			}
		}
		return dst
	}
	if len(elements) == 0 {
		return dst
	}
	// Every field is a fixed-size scalar or array, so the encoding is the
	// declared field order without padding.
	out, err := binary.Append(dst, binary.LittleEndian, elements)
	if err != nil {
		panic("shadow: packing validated record type: " + err.Error())
	}
	return out
}
