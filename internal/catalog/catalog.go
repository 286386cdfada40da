// Package catalog loads and serves the derived-variable definitions that
// drive the census viewer. The catalog is loaded once at startup from a JSON
// document and is immutable afterwards, so it is safe for concurrent reads.
package catalog

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// ErrConfig marks a malformed or unreadable variable configuration. It is
// fatal at startup.
var ErrConfig = eris.New("catalog: invalid config")

// Definition describes one derived output variable: the raw ACS variable
// codes it needs, the arithmetic expression that combines them, and the
// display category it belongs to.
type Definition struct {
	Name        string   `json:"name"`
	Vars        []string `json:"vars"`
	Definition  string   `json:"definition"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`

	// ID is the zero-based position in load order. It is never persisted;
	// ids shift when the config file changes between restarts.
	ID int `json:"-"`
}

// Catalog holds the loaded variable definitions.
type Catalog struct {
	defs []Definition
}

// Load reads and validates the variable configuration at path.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrConfig, "read %s: %v", path, err)
	}
	return Parse(raw)
}

// Parse validates and loads a variable configuration document.
func Parse(raw []byte) (*Catalog, error) {
	var defs []Definition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, eris.Wrapf(ErrConfig, "parse: %v", err)
	}

	for i := range defs {
		d := &defs[i]
		if d.Name == "" {
			return nil, eris.Wrapf(ErrConfig, "entry %d: missing name", i)
		}
		if len(d.Vars) == 0 {
			return nil, eris.Wrapf(ErrConfig, "entry %d (%s): vars must be non-empty", i, d.Name)
		}
		for j, v := range d.Vars {
			if v == "" {
				return nil, eris.Wrapf(ErrConfig, "entry %d (%s): empty var at position %d", i, d.Name, j)
			}
		}
		if len(d.Definition) < 3 {
			return nil, eris.Wrapf(ErrConfig, "entry %d (%s): definition too short", i, d.Name)
		}
		if d.Category == "" {
			return nil, eris.Wrapf(ErrConfig, "entry %d (%s): missing category", i, d.Name)
		}
		d.ID = i
	}

	return &Catalog{defs: defs}, nil
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// Definitions returns all definitions in load order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Choice is one selectable variable within a category group.
type Choice struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Group is a display category with its selectable variables.
type Group struct {
	Category string   `json:"category"`
	Choices  []Choice `json:"choices"`
}

// Groups returns the selectable variables grouped by category. Categories
// are sorted; variables within a category keep load order.
func (c *Catalog) Groups() []Group {
	byCat := make(map[string][]Choice)
	var cats []string
	for _, d := range c.defs {
		if _, ok := byCat[d.Category]; !ok {
			cats = append(cats, d.Category)
		}
		byCat[d.Category] = append(byCat[d.Category], Choice{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
		})
	}
	sort.Strings(cats)

	out := make([]Group, 0, len(cats))
	for _, cat := range cats {
		out = append(out, Group{Category: cat, Choices: byCat[cat]})
	}
	return out
}

// ResolveIDs returns the definitions whose ids match the given strings, in
// load order. Ids are matched as strings to tolerate form-encoded input;
// unmatched ids are silently skipped so stale client-side selections do not
// fail the request.
func (c *Catalog) ResolveIDs(ids []string) []Definition {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var out []Definition
	for _, d := range c.defs {
		if want[strconv.Itoa(d.ID)] {
			out = append(out, d)
		}
	}
	return out
}

// Categories returns the distinct categories of the given definitions,
// sorted for deterministic iteration.
func Categories(defs []Definition) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range defs {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	sort.Strings(out)
	return out
}
