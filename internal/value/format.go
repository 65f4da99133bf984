package value

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/roach88/cellsim/internal/fault"
)

// Format renders v as text. Parse(v.Kind(), Format(v)) round-trips every
// kind except images, which render as a size summary.
func Format(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Text:
		return string(val)
	case Color:
		return fmt.Sprintf("#%02x%02x%02x%02x", val.R, val.G, val.B, val.A)
	case Handle:
		return strconv.FormatUint(uint64(val), 10)
	case Image:
		if val.RGBA == nil {
			return "image(empty)"
		}
		b := val.RGBA.Bounds()
		return fmt.Sprintf("image(%dx%d)", b.Dx(), b.Dy())
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Parse parses text as a value of the given kind.
func Parse(kind Kind, s string) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fault.Wrap(fault.CodeTypeMismatch, err, "parse bool %q", s)
		}
		return Bool(b), nil
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fault.Wrap(fault.CodeTypeMismatch, err, "parse int %q", s)
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fault.Wrap(fault.CodeTypeMismatch, err, "parse float %q", s)
		}
		return Float(f), nil
	case KindText:
		return NewText(s), nil
	case KindColor:
		return parseColor(s)
	case KindHandle:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fault.Wrap(fault.CodeTypeMismatch, err, "parse handle %q", s)
		}
		return Handle(u), nil
	default:
		return nil, fault.New(fault.CodeTypeMismatch, "cannot parse %s from text", kind)
	}
}

// parseColor accepts #rrggbb and #rrggbbaa.
func parseColor(s string) (Value, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, fault.New(fault.CodeTypeMismatch, "parse color %q: want #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fault.Wrap(fault.CodeTypeMismatch, err, "parse color %q", s)
	}
	return Color(color.RGBA{
		R: uint8(n >> 24),
		G: uint8(n >> 16),
		B: uint8(n >> 8),
		A: uint8(n),
	}), nil
}

// Convert turns a decoded YAML/CUE/JSON scalar into a value of the declared
// kind. It is the input boundary for configuration files: integer literals
// are accepted for float properties and strings are parsed for every kind.
// Reads through AsXxx never convert.
func Convert(kind Kind, raw any) (Value, error) {
	switch x := raw.(type) {
	case Value:
		if x.Kind() != kind {
			return nil, mismatch(x, kind)
		}
		return x, nil
	case string:
		return Parse(kind, x)
	case bool:
		if kind == KindBool {
			return Bool(x), nil
		}
	case int:
		return convertInt(kind, int64(x))
	case int64:
		return convertInt(kind, x)
	case uint64:
		if kind == KindHandle {
			return Handle(x), nil
		}
		return convertInt(kind, int64(x))
	case float64:
		if kind == KindFloat {
			return Float(x), nil
		}
		if kind == KindInt && x == float64(int64(x)) {
			return Int(int64(x)), nil
		}
	}
	return nil, fault.New(fault.CodeTypeMismatch, "cannot convert %T to %s", raw, kind)
}

func convertInt(kind Kind, n int64) (Value, error) {
	switch kind {
	case KindInt:
		return Int(n), nil
	case KindFloat:
		return Float(float64(n)), nil
	case KindHandle:
		if n >= 0 {
			return Handle(uint64(n)), nil
		}
	}
	return nil, fault.New(fault.CodeTypeMismatch, "cannot convert integer %d to %s", n, kind)
}
