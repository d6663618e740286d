package faulttree

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// ErrUnknownTree is returned for a model without a preset tree.
var ErrUnknownTree = errors.New("no fault tree for model")

// CatalogNode is a node of a preset tree. Level is a display label such as
// "一级节点".
type CatalogNode struct {
	Name     string         `json:"name" yaml:"name"`
	Level    string         `json:"level,omitempty" yaml:"level,omitempty"`
	Children []*CatalogNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Preset is one embedded tree file.
type Preset struct {
	ModelID string       `json:"model_id" yaml:"model_id"`
	Title   string       `json:"title" yaml:"title"`
	Tree    *CatalogNode `json:"tree" yaml:"tree"`
}

// Catalog holds the preset trees keyed by model id.
type Catalog struct {
	presets map[string]*Preset
}

// LoadCatalog parses the embedded presets.
func LoadCatalog() (*Catalog, error) {
	return loadCatalog(presetFS, "presets")
}

func loadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	c := &Catalog{presets: map[string]*Preset{}}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read preset %s: %w", e.Name(), err)
		}
		var p Preset
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse preset %s: %w", e.Name(), err)
		}
		if p.ModelID == "" || p.Tree == nil {
			return nil, fmt.Errorf("preset %s: model_id and tree are required", e.Name())
		}
		if _, dup := c.presets[p.ModelID]; dup {
			return nil, fmt.Errorf("preset %s: duplicate model_id %q", e.Name(), p.ModelID)
		}
		c.presets[p.ModelID] = &p
	}
	return c, nil
}

// TreeByModel returns the preset tree of a model.
func (c *Catalog) TreeByModel(modelID string) (*Preset, error) {
	p, ok := c.presets[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTree, modelID)
	}
	return p, nil
}

// ModelIDs lists the models with a preset, sorted.
func (c *Catalog) ModelIDs() []string {
	ids := make([]string, 0, len(c.presets))
	for id := range c.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Leaves returns the names of all leaves of the tree, depth-first.
func (n *CatalogNode) Leaves() []string {
	var out []string
	stack := []*CatalogNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(cur.Children) == 0 {
			out = append(out, cur.Name)
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return out
}
