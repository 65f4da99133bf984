package value

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cellsim/internal/fault"
)

// Kind names a Value variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindColor
	KindHandle
	KindImage
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindText:    "text",
	KindColor:   "color",
	KindHandle:  "handle",
	KindImage:   "image",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind parses a kind name as produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if k != KindInvalid && name == s {
			return k, nil
		}
	}
	return KindInvalid, fault.New(fault.CodeTypeMismatch, "unknown value kind %q", s)
}

// Value is a sealed interface over the closed set of property value
// variants. Only the types in this file implement it.
type Value interface {
	Kind() Kind
	value() // sealed
}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Int is an integer value.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Float is a floating-point value.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) value()     {}

// Text is a string value, NFC-normalized when built with NewText.
type Text string

func (Text) Kind() Kind { return KindText }
func (Text) value()     {}

// NewText returns s as a Text in Unicode normalization form C, so equal
// strings typed on different platforms compare equal.
func NewText(s string) Text {
	return Text(norm.NFC.String(s))
}

// Color is an RGBA color value.
type Color color.RGBA

func (Color) Kind() Kind { return KindColor }
func (Color) value()     {}

// RGBA returns c as a color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA(c)
}

// Handle is an opaque reference to a cell, cargo item or participant.
// The low 32 bits hold an arena index, the high 32 bits a generation.
// The zero Handle is never valid.
type Handle uint64

func (Handle) Kind() Kind { return KindHandle }
func (Handle) value()     {}

// MakeHandle packs an arena index and generation.
func MakeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

// Index returns the arena index.
func (h Handle) Index() uint32 { return uint32(h) }

// Gen returns the generation.
func (h Handle) Gen() uint32 { return uint32(h >> 32) }

// Valid reports whether h can refer to anything at all.
func (h Handle) Valid() bool { return h.Gen() != 0 }

func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.Index(), h.Gen())
}

// Image is an image blob value.
type Image struct {
	RGBA *image.RGBA
}

func (Image) Kind() Kind { return KindImage }
func (Image) value()     {}

// Equal reports whether two values have the same variant and content.
// Images compare by identity.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if ai, ok := a.(Image); ok {
		return ai.RGBA == b.(Image).RGBA
	}
	return a == b
}

// Zero returns the zero value of a kind.
func Zero(k Kind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindText:
		return Text("")
	case KindColor:
		return Color{}
	case KindHandle:
		return Handle(0)
	case KindImage:
		return Image{}
	default:
		return nil
	}
}

func mismatch(v Value, want Kind) error {
	got := KindInvalid
	if v != nil {
		got = v.Kind()
	}
	return fault.New(fault.CodeTypeMismatch, "cannot read %s value as %s", got, want)
}

// AsBool reads v as a bool.
func AsBool(v Value) (bool, error) {
	b, ok := v.(Bool)
	if !ok {
		return false, mismatch(v, KindBool)
	}
	return bool(b), nil
}

// AsInt reads v as an int64.
func AsInt(v Value) (int64, error) {
	i, ok := v.(Int)
	if !ok {
		return 0, mismatch(v, KindInt)
	}
	return int64(i), nil
}

// AsFloat reads v as a float64. Int values are not converted.
func AsFloat(v Value) (float64, error) {
	f, ok := v.(Float)
	if !ok {
		return 0, mismatch(v, KindFloat)
	}
	return float64(f), nil
}

// AsText reads v as a string.
func AsText(v Value) (string, error) {
	s, ok := v.(Text)
	if !ok {
		return "", mismatch(v, KindText)
	}
	return string(s), nil
}

// AsColor reads v as a color.RGBA.
func AsColor(v Value) (color.RGBA, error) {
	c, ok := v.(Color)
	if !ok {
		return color.RGBA{}, mismatch(v, KindColor)
	}
	return color.RGBA(c), nil
}

// AsHandle reads v as a Handle.
func AsHandle(v Value) (Handle, error) {
	h, ok := v.(Handle)
	if !ok {
		return 0, mismatch(v, KindHandle)
	}
	return h, nil
}

// AsImage reads v as an image.
func AsImage(v Value) (*image.RGBA, error) {
	img, ok := v.(Image)
	if !ok {
		return nil, mismatch(v, KindImage)
	}
	return img.RGBA, nil
}
