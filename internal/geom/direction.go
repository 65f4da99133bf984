// Package geom holds the small geometric vocabulary of the grid: directions,
// integer grid points, sizes and fractional cargo offsets.
package geom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/cellsim/internal/fault"
)

// Direction names a neighbor slot of a grid cell. The four cardinals link
// geometric neighbors; numbered pins link arbitrary cells.
type Direction int32

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

// Pin returns the numbered non-cardinal direction PIN[n]. n must be >= 0.
func Pin(n int) Direction {
	if n < 0 {
		return None
	}
	return Direction(-(n + 1))
}

// Cardinals returns the four cardinal directions in UP, DOWN, LEFT, RIGHT order.
func Cardinals() []Direction {
	return []Direction{Up, Down, Left, Right}
}

// IsPin reports whether d is a numbered pin.
func (d Direction) IsPin() bool {
	return d < 0
}

// IsCardinal reports whether d is one of UP, DOWN, LEFT, RIGHT.
func (d Direction) IsCardinal() bool {
	return d >= Up && d <= Right
}

// PinNumber returns n for PIN[n], or -1 for any other direction.
func (d Direction) PinNumber() int {
	if !d.IsPin() {
		return -1
	}
	return -int(d) - 1
}

// Opposite returns the direction under which the far end of a link sees the
// near end. Pins are their own opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return d
	}
}

// Offset returns the grid step for a cardinal direction. Y grows downward.
// Pins and NONE have no geometric offset.
func (d Direction) Offset() Point {
	switch d {
	case Up:
		return Point{0, -1}
	case Down:
		return Point{0, 1}
	case Left:
		return Point{-1, 0}
	case Right:
		return Point{1, 0}
	default:
		return Point{}
	}
}

// Unit returns Offset as a fractional vector.
func (d Direction) Unit() Vec {
	o := d.Offset()
	return Vec{X: float64(o.X), Y: float64(o.Y)}
}

// String returns the textual encoding: UP, DOWN, LEFT, RIGHT, NONE or PIN[n].
func (d Direction) String() string {
	switch {
	case d == Up:
		return "UP"
	case d == Down:
		return "DOWN"
	case d == Left:
		return "LEFT"
	case d == Right:
		return "RIGHT"
	case d.IsPin():
		return fmt.Sprintf("PIN[%d]", d.PinNumber())
	default:
		return "NONE"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using strict parsing.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirectionStrict(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection parses the textual encoding case-insensitively. Any
// unrecognized token yields NONE rather than an error.
func ParseDirection(s string) Direction {
	d, err := ParseDirectionStrict(s)
	if err != nil {
		return None
	}
	return d
}

// ParseDirectionStrict parses the textual encoding case-insensitively and
// fails with CodeInvalidDirection on an unrecognized token.
func ParseDirectionStrict(s string) (Direction, error) {
	// cases.Caser is stateful; build one per call.
	token := cases.Upper(language.Und).String(strings.TrimSpace(s))

	switch token {
	case "UP":
		return Up, nil
	case "DOWN":
		return Down, nil
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	case "NONE":
		return None, nil
	}

	if strings.HasPrefix(token, "PIN[") && strings.HasSuffix(token, "]") {
		n, err := strconv.Atoi(token[len("PIN[") : len(token)-1])
		if err == nil && n >= 0 {
			return Pin(n), nil
		}
	}

	return None, fault.New(fault.CodeInvalidDirection, "invalid direction %q", s)
}
