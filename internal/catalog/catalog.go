// Package catalog loads the ordered list of compliance rules.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"compliance/internal/domain"
)

// Format is the encoding of a catalog file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Catalog is an immutable, ordered set of rules with unique ids.
type Catalog struct {
	rules []domain.Rule
	byID  map[int]int
}

type document struct {
	Rules []domain.Rule `json:"rules" yaml:"rules"`
}

// Load reads a catalog file. The format follows the extension: .yaml and .yml
// are YAML, anything else is JSON.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalog, err)
	}
	return Parse(data, FormatFor(path))
}

// FormatFor picks the format for a file name.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes and validates a catalog.
func Parse(data []byte, format Format) (*Catalog, error) {
	var doc document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", domain.ErrCatalog, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalog, err)
	}
	return New(doc.Rules)
}

// New validates rules and builds a catalog preserving their order.
func New(rules []domain.Rule) (*Catalog, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no rules", domain.ErrCatalog)
	}
	c := &Catalog{rules: make([]domain.Rule, len(rules)), byID: make(map[int]int, len(rules))}
	for i, r := range rules {
		switch {
		case r.ID <= 0:
			return nil, fmt.Errorf("%w: rule #%d has invalid id %d", domain.ErrCatalog, i+1, r.ID)
		case strings.TrimSpace(r.Name) == "":
			return nil, fmt.Errorf("%w: rule %d has no name", domain.ErrCatalog, r.ID)
		case strings.TrimSpace(r.Description) == "":
			return nil, fmt.Errorf("%w: rule %d has no description", domain.ErrCatalog, r.ID)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule id %d", domain.ErrCatalog, r.ID)
		}
		c.byID[r.ID] = i
		c.rules[i] = r
	}
	return c, nil
}

// Rules returns a copy of the rules in catalog order.
func (c *Catalog) Rules() []domain.Rule {
	out := make([]domain.Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Get returns the rule with the given id or domain.ErrRuleNotFound.
func (c *Catalog) Get(id int) (domain.Rule, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Rule{}, fmt.Errorf("%w: %d", domain.ErrRuleNotFound, id)
	}
	return c.rules[i], nil
}

// Len returns the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }
