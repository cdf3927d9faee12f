package material

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Spec names a material either by preset or by explicit coefficients. In
// YAML a bare string is a preset name:
//
//	floor: carpet_thin
//	ceiling: {coeffs: [0.2, 0.3], center_freqs: [125, 250]}
//	walls: {name: brickwork, scattering_preset: rpg_qrd}
type Spec struct {
	Name             string    `yaml:"name,omitempty"`
	Description      string    `yaml:"description,omitempty"`
	Coeffs           []float64 `yaml:"coeffs,omitempty"`
	CenterFreqs      []float64 `yaml:"center_freqs,omitempty"`
	Scattering       []float64 `yaml:"scattering,omitempty"`
	ScatteringPreset string    `yaml:"scattering_preset,omitempty"`
}

// UnmarshalYAML accepts a scalar preset name or a mapping.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = Spec{Name: node.Value}
		return nil
	}

	type plain Spec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}

	*s = Spec(p)
	return nil
}

// IsZero reports whether no field of the spec is set.
func (s Spec) IsZero() bool {
	return s.Name == "" && s.Description == "" && s.ScatteringPreset == "" &&
		len(s.Coeffs) == 0 && len(s.CenterFreqs) == 0 && len(s.Scattering) == 0
}

// ResolveSpec builds the material described by s. Explicit coefficients
// without centre frequencies use the leading table frequencies.
func (t *Table) ResolveSpec(s Spec) (Material, error) {
	var (
		m   Material
		err error
	)

	switch {
	case s.Name != "":
		m, err = t.Resolve(s.Name)
	case len(s.Coeffs) > 0:
		freqs := s.CenterFreqs
		if len(freqs) == 0 && len(s.Coeffs) > 1 {
			freqs, err = t.freqsFor(Entry{Coeffs: s.Coeffs})
			if err != nil {
				return Material{}, err
			}
		}
		m, err = New(freqs, s.Coeffs, nil, s.Description)
	default:
		return Material{}, fmt.Errorf("%w: material spec has neither a preset name nor coefficients", ErrInvalidMaterial)
	}

	if err != nil {
		return Material{}, err
	}

	switch {
	case s.ScatteringPreset != "":
		freqs, coeffs, err := t.ResolveScattering(s.ScatteringPreset)
		if err != nil {
			return Material{}, err
		}
		return m.WithScattering(freqs, coeffs)
	case len(s.Scattering) == 1:
		return m.WithScattering(nil, s.Scattering)
	case len(s.Scattering) > 1:
		return m.WithScattering(m.centerFreqs, s.Scattering)
	}

	return m, nil
}
