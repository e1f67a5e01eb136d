// Package decisions serves the catalogue of DMN decision tables deployed on
// the process engine. Tables are listed, never evaluated here.
package decisions

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var bundled []byte

// Decision describes one deployed decision table.
type Decision struct {
	ID           string              `yaml:"id" json:"id"`
	Name         string              `yaml:"nome" json:"nome"`
	Version      string              `yaml:"versione" json:"versione"`
	RuleCount    int                 `yaml:"-" json:"numeroRegole"`
	LastModified string              `yaml:"ultimaModifica" json:"ultimaModifica"`
	Description  string              `yaml:"descrizione" json:"descrizione"`
	Inputs       []string            `yaml:"inputs" json:"inputs"`
	Outputs      []string            `yaml:"outputs" json:"outputs"`
	Rules        []map[string]string `yaml:"regole" json:"regole"`
}

type Catalogue struct {
	Decisions []Decision `yaml:"decisions"`
}

// Load parses the bundled catalogue.
func Load() (*Catalogue, error) {
	return Parse(bundled)
}

// Parse decodes a catalogue document. Every rule must set each declared
// input and output column.
func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse decision catalogue: %w", err)
	}
	seen := make(map[string]bool, len(c.Decisions))
	for i := range c.Decisions {
		d := &c.Decisions[i]
		if d.ID == "" {
			return nil, fmt.Errorf("decision %d: id is required", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("decision %s: duplicate id", d.ID)
		}
		seen[d.ID] = true
		for j, rule := range d.Rules {
			for _, col := range append(append([]string{}, d.Inputs...), d.Outputs...) {
				if _, ok := rule[col]; !ok {
					return nil, fmt.Errorf("decision %s rule %d: missing column %q", d.ID, j+1, col)
				}
			}
		}
		d.RuleCount = len(d.Rules)
	}
	return &c, nil
}

// Find returns the decision with the given id.
func (c *Catalogue) Find(id string) (Decision, bool) {
	for _, d := range c.Decisions {
		if d.ID == id {
			return d, true
		}
	}
	return Decision{}, false
}
