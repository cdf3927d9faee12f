package material

import (
	"maps"
	"slices"
)

// Group classifies a wall for default material assignment.
type Group int

const (
	Side Group = iota
	Floor
	Ceiling
)

func (g Group) String() string {
	switch g {
	case Floor:
		return "floor"
	case Ceiling:
		return "ceiling"
	default:
		return "wall"
	}
}

// Faces assigns a material to every face group, with optional per-wall
// overrides keyed by wall name.
type Faces struct {
	ceiling   Material
	floor     Material
	walls     Material
	overrides map[string]Material
}

// NewFaces builds an assignment from one material per face group.
func NewFaces(ceiling, floor, walls Material) Faces {
	return Faces{ceiling: ceiling, floor: floor, walls: walls}
}

// AllFaces uses m on every surface.
func AllFaces(m Material) Faces {
	return NewFaces(m, m, m)
}

// DefaultFaces resolves the default presets: plasterboard ceiling, thin
// carpet floor and thin plywood walls.
func DefaultFaces(t *Table) (Faces, error) {
	ceiling, err := t.Resolve("ceiling_plasterboard")
	if err != nil {
		return Faces{}, err
	}

	floor, err := t.Resolve("carpet_thin")
	if err != nil {
		return Faces{}, err
	}

	walls, err := t.Resolve("plywood_thin")
	if err != nil {
		return Faces{}, err
	}

	return NewFaces(ceiling, floor, walls), nil
}

// WithOverride returns a copy of f with wall name assigned m.
func (f Faces) WithOverride(name string, m Material) Faces {
	out := f
	out.overrides = maps.Clone(f.overrides)
	if out.overrides == nil {
		out.overrides = make(map[string]Material)
	}
	out.overrides[name] = m
	return out
}

// Overrides returns the overridden wall names, sorted.
func (f Faces) Overrides() []string {
	return slices.Sorted(maps.Keys(f.overrides))
}

// Ceiling returns the ceiling material.
func (f Faces) Ceiling() Material { return f.ceiling }

// Floor returns the floor material.
func (f Faces) Floor() Material { return f.floor }

// Wall returns the side wall material.
func (f Faces) Wall() Material { return f.walls }

// For returns the material of the wall called name in group g.
func (f Faces) For(name string, g Group) Material {
	if m, ok := f.overrides[name]; ok {
		return m
	}

	switch g {
	case Floor:
		return f.floor
	case Ceiling:
		return f.ceiling
	default:
		return f.walls
	}
}
