package grid

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/value"
)

type dumpProperty struct {
	ID      string `yaml:"id"`
	Kind    string `yaml:"kind"`
	Current string `yaml:"current"`
	Staged  string `yaml:"staged,omitempty"`
}

type dumpRecord struct {
	Handle     string         `yaml:"handle"`
	Kind       string         `yaml:"kind"`
	Part       string         `yaml:"part"`
	Owner      string         `yaml:"owner,omitempty"`
	Cell       geom.Point     `yaml:"cell"`
	Offset     geom.Vec       `yaml:"offset"`
	Moving     *geom.Vec      `yaml:"moving,omitempty"`
	Destroyed  bool           `yaml:"destroyed,omitempty"`
	Properties []dumpProperty `yaml:"properties"`
}

func (v *fullCargoView) Dump() (string, error) {
	rec, err := v.g.cargoRecord(v.h)
	if err != nil {
		return "", err
	}
	d := dumpRecord{
		Handle:    rec.handle.String(),
		Kind:      rec.kind.String(),
		Part:      rec.part.ID(),
		Owner:     rec.owner.String(),
		Offset:    rec.offset,
		Destroyed: rec.destroyed,
	}
	if owner := v.g.arena.get(rec.owner); owner != nil {
		d.Cell = owner.pos
	}
	if rec.moving {
		moveBy := rec.moveBy
		d.Moving = &moveBy
	}
	for _, p := range rec.props.All() {
		dp := dumpProperty{
			ID:      p.ID().String(),
			Kind:    p.Kind().String(),
			Current: value.Format(p.Get()),
		}
		if p.Dirty() {
			dp.Staged = value.Format(p.GetNow())
		}
		d.Properties = append(d.Properties, dp)
	}

	out, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("dump cargo %s: %w", rec.handle, err)
	}
	return string(out), nil
}
