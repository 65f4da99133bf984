package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cellsim/internal/config"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/harness"
)

// Pattern is a starting model: placements plus cargo spawned before the
// first cycle. Pattern files use the same placement and spawn syntax as
// scenarios:
//
//	size: {w: 8, h: 8}
//	place:
//	  - {at: {x: 1, y: 1}, part: life, props: {alive: true}}
//	spawn:
//	  - {part: crate, at: {x: 0.5, y: 0.5}}
type Pattern struct {
	Size  geom.Size           `yaml:"size,omitempty"`
	Place []harness.Placement `yaml:"place"`
	Spawn []harness.SpawnStep `yaml:"spawn,omitempty"`
}

// LoadPattern returns the built-in pattern called name sized to size, or
// reads name as a pattern file.
func LoadPattern(name string, size geom.Size) (*Pattern, error) {
	switch name {
	case config.PatternBlinker:
		return blinker(size)
	case config.PatternGlider:
		return glider(size)
	case config.PatternDemo:
		return demo(size)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	var p Pattern
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse pattern %s: %w", name, err)
	}
	if p.Size.W <= 0 || p.Size.H <= 0 {
		p.Size = size
	}
	for i, pl := range p.Place {
		if !p.Size.Contains(pl.At) {
			return nil, fmt.Errorf("pattern %s: place[%d]: %s is outside the %s grid", name, i, pl.At, p.Size)
		}
	}
	return &p, nil
}

// lifeField fills the grid with dead life cells and marks the given points
// alive.
func lifeField(size geom.Size, alive ...geom.Point) *Pattern {
	live := make(map[geom.Point]bool, len(alive))
	for _, pt := range alive {
		live[pt] = true
	}
	p := &Pattern{Size: size}
	for y := 0; y < size.H; y++ {
		for x := 0; x < size.W; x++ {
			pt := geom.Point{X: x, Y: y}
			pl := harness.Placement{At: pt, Part: "life"}
			if live[pt] {
				pl.Props = map[string]any{"alive": true}
			}
			p.Place = append(p.Place, pl)
		}
	}
	return p
}

func blinker(size geom.Size) (*Pattern, error) {
	if size.W < 3 || size.H < 3 {
		return nil, fmt.Errorf("blinker needs at least a 3x3 grid, got %s", size)
	}
	cx, cy := size.W/2, size.H/2
	return lifeField(size,
		geom.Point{X: cx, Y: cy - 1},
		geom.Point{X: cx, Y: cy},
		geom.Point{X: cx, Y: cy + 1},
	), nil
}

func glider(size geom.Size) (*Pattern, error) {
	if size.W < 3 || size.H < 3 {
		return nil, fmt.Errorf("glider needs at least a 3x3 grid, got %s", size)
	}
	return lifeField(size,
		geom.Point{X: 1, Y: 0},
		geom.Point{X: 2, Y: 1},
		geom.Point{X: 0, Y: 2},
		geom.Point{X: 1, Y: 2},
		geom.Point{X: 2, Y: 2},
	), nil
}

// demo puts a button and lamp on the top row and a conveyor belt ending in
// a wall on the second, with one crate at the start of the belt.
func demo(size geom.Size) (*Pattern, error) {
	if size.W < 4 || size.H < 2 {
		return nil, fmt.Errorf("demo needs at least a 4x2 grid, got %s", size)
	}
	p := &Pattern{Size: size}
	p.Place = append(p.Place,
		harness.Placement{At: geom.Point{X: 0, Y: 0}, Part: "button"},
		harness.Placement{At: geom.Point{X: 1, Y: 0}, Part: "lamp"},
	)
	for x := 0; x < size.W-1; x++ {
		p.Place = append(p.Place, harness.Placement{At: geom.Point{X: x, Y: 1}, Part: "conveyor"})
	}
	p.Place = append(p.Place, harness.Placement{At: geom.Point{X: size.W - 1, Y: 1}, Part: "wall"})
	p.Spawn = append(p.Spawn, harness.SpawnStep{Part: "crate", At: geom.Vec{X: 0.5, Y: 1.5}})
	return p, nil
}
