// Package taxonomy defines the closed classifier vocabulary for each
// record kind. The defaults ship embedded; fleets with custom categories
// can point TAXONOMY_FILE at their own YAML.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fleetledger/internal/core"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Taxonomy maps record kinds to their allowed classifiers.
type Taxonomy struct {
	byKind map[core.RecordKind][]string
}

type fileFormat struct {
	Earnings     []string `yaml:"earnings"`
	Expenses     []string `yaml:"expenses"`
	AutoExpenses []string `yaml:"auto_expenses"`
}

// Default returns the embedded taxonomy. The embedded file is part of the
// build, so a parse failure here is a programming error and panics.
func Default() *Taxonomy {
	t, err := parse(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded file invalid: %v", err))
	}
	return t
}

// LoadFile reads a taxonomy YAML from disk.
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	t, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse taxonomy file %s: %w", path, err)
	}
	return t, nil
}

// Load returns the taxonomy from path when non-empty, else the default.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

func parse(data []byte) (*Taxonomy, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Earnings) == 0 || len(f.Expenses) == 0 || len(f.AutoExpenses) == 0 {
		return nil, fmt.Errorf("taxonomy must list classifiers for all record kinds")
	}
	return &Taxonomy{byKind: map[core.RecordKind][]string{
		core.KindEarning:     f.Earnings,
		core.KindExpense:     f.Expenses,
		core.KindAutoExpense: f.AutoExpenses,
	}}, nil
}

// Allowed reports whether classifier belongs to the kind's vocabulary.
func (t *Taxonomy) Allowed(kind core.RecordKind, classifier string) bool {
	for _, c := range t.byKind[kind] {
		if c == classifier {
			return true
		}
	}
	return false
}

// Classifiers returns the vocabulary for a kind, in file order.
func (t *Taxonomy) Classifiers(kind core.RecordKind) []string {
	src := t.byKind[kind]
	out := make([]string, len(src))
	copy(out, src)
	return out
}
