// Package catalog holds the vehicle makes, models, model years, and
// conditions offered to users, and canonicalizes user-typed names.
package catalog

import (
	_ "embed"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed makes.yaml
var makesYAML []byte

// Make is a manufacturer and its popular models.
type Make struct {
	Name   string   `yaml:"name" json:"name"`
	Models []string `yaml:"models" json:"models"`
}

// Catalog is the parsed make/model list.
type Catalog struct {
	YearsBack  int      `yaml:"years_back" json:"-"`
	Conditions []string `yaml:"conditions" json:"conditions"`
	Makes      []Make   `yaml:"makes" json:"makes"`

	byName map[string]int
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "catalog: unmarshal")
	}
	if len(c.Makes) == 0 {
		return nil, eris.New("catalog: no makes defined")
	}
	c.byName = make(map[string]int, len(c.Makes))
	for i, m := range c.Makes {
		key := fold(m.Name)
		if _, dup := c.byName[key]; dup {
			return nil, eris.Errorf("catalog: duplicate make %q", m.Name)
		}
		c.byName[key] = i
	}
	return &c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(makesYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// MakeNames lists make names in catalog order.
func (c *Catalog) MakeNames() []string {
	out := make([]string, len(c.Makes))
	for i, m := range c.Makes {
		out[i] = m.Name
	}
	return out
}

// Models returns the models for a make, matched case-insensitively.
func (c *Catalog) Models(makeName string) ([]string, bool) {
	i, ok := c.byName[fold(makeName)]
	if !ok {
		return nil, false
	}
	return c.Makes[i].Models, true
}

// Canonical returns the catalog spelling of make and model. Names not in the
// catalog come back trimmed but otherwise as given; known reports whether
// the make was found.
func (c *Catalog) Canonical(makeName, modelName string) (mk, md string, known bool) {
	mk, md = strings.TrimSpace(makeName), strings.TrimSpace(modelName)
	i, ok := c.byName[fold(mk)]
	if !ok {
		return mk, md, false
	}
	m := c.Makes[i]
	for _, candidate := range m.Models {
		if fold(candidate) == fold(md) {
			return m.Name, candidate, true
		}
	}
	return m.Name, md, true
}

// Years lists selectable model years, newest first, ending at now's year.
func (c *Catalog) Years(now time.Time) []int {
	newest := now.Year()
	out := make([]int, 0, c.YearsBack+1)
	for y := newest; y >= newest-c.YearsBack; y-- {
		out = append(out, y)
	}
	return out
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
