package material

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed materials.yaml
var defaultTableYAML []byte

// Entry is one named preset in a material table.
type Entry struct {
	Description string    `yaml:"description"`
	Coeffs      []float64 `yaml:"coeffs"`
	CenterFreqs []float64 `yaml:"center_freqs,omitempty"`
}

// Table maps category → preset name → coefficients. It is loaded once and
// read-only afterwards.
type Table struct {
	CenterFreqs []float64                   `yaml:"center_freqs"`
	Absorption  map[string]map[string]Entry `yaml:"absorption"`
	Scattering  map[string]map[string]Entry `yaml:"scattering"`
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := LoadTable(bytes.NewReader(defaultTableYAML))
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTable returns the embedded material table.
func DefaultTable() *Table {
	return defaultTable()
}

// LoadTable decodes and validates a YAML or JSON material table.
func LoadTable(r io.Reader) (*Table, error) {
	var t Table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("material: decode table: %w", err)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}

	return &t, nil
}

// LoadTableFile reads a material table from path.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("material: %w", err)
	}
	defer f.Close()

	return LoadTable(f)
}

func (t *Table) validate() error {
	for i, f := range t.CenterFreqs {
		if !(f > 0) || (i > 0 && f <= t.CenterFreqs[i-1]) {
			return fmt.Errorf("%w: table center frequencies must be positive and strictly increasing",
				ErrInvalidMaterial)
		}
	}

	for _, group := range []map[string]map[string]Entry{t.Absorption, t.Scattering} {
		for cat, entries := range group {
			for name, e := range entries {
				freqs, err := t.freqsFor(e)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", cat, name, err)
				}
				if err := validateBands(freqs, e.Coeffs, name); err != nil {
					return fmt.Errorf("%s/%s: %w", cat, name, err)
				}
			}
		}
	}

	return nil
}

// freqsFor returns the centre frequencies of an entry: its own when given,
// otherwise the leading table frequencies.
func (t *Table) freqsFor(e Entry) ([]float64, error) {
	if len(e.CenterFreqs) > 0 {
		return e.CenterFreqs, nil
	}

	if len(e.Coeffs) > len(t.CenterFreqs) {
		return nil, fmt.Errorf("%w: %d coefficients but only %d table frequencies",
			ErrInvalidMaterial, len(e.Coeffs), len(t.CenterFreqs))
	}

	return t.CenterFreqs[:len(e.Coeffs)], nil
}

func lookup(group map[string]map[string]Entry, name string) (Entry, string, bool) {
	cats := make([]string, 0, len(group))
	for c := range group {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	for _, c := range cats {
		if e, ok := group[c][name]; ok {
			return e, c, true
		}
	}

	return Entry{}, "", false
}

// Resolve returns the absorption preset called name.
func (t *Table) Resolve(name string) (Material, error) {
	e, _, ok := lookup(t.Absorption, name)
	if !ok {
		return Material{}, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}

	freqs, err := t.freqsFor(e)
	if err != nil {
		return Material{}, err
	}

	return New(freqs, e.Coeffs, nil, e.Description)
}

// ResolveScattering returns the centre frequencies and coefficients of the
// scattering preset called name.
func (t *Table) ResolveScattering(name string) (freqs, coeffs []float64, err error) {
	e, _, ok := lookup(t.Scattering, name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: scattering %q", ErrUnknownMaterial, name)
	}

	freqs, err = t.freqsFor(e)
	if err != nil {
		return nil, nil, err
	}

	return slices.Clone(freqs), slices.Clone(e.Coeffs), nil
}

// Category returns the category of an absorption preset.
func (t *Table) Category(name string) (string, bool) {
	_, c, ok := lookup(t.Absorption, name)
	return c, ok
}

// Names returns all absorption preset names, sorted.
func (t *Table) Names() []string {
	var out []string
	for _, entries := range t.Absorption {
		for name := range entries {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
