package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/microsoft/tolstack/internal/models"
)

// Catalog is the registry of known product variants keyed by name.
type Catalog struct {
	variants map[string]*Variant
}

// NewCatalog validates the given variants and indexes them by name.
func NewCatalog(variants ...*Variant) (*Catalog, error) {
	c := &Catalog{variants: make(map[string]*Variant, len(variants))}
	for _, v := range variants {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.variants[v.Name]; dup {
			return nil, &models.ConfigError{Param: "name", Msg: fmt.Sprintf("duplicate variant %q", v.Name)}
		}
		c.variants[v.Name] = v
	}
	return c, nil
}

// LoadCatalog loads every *.yaml and *.yml variant file in dir.
func LoadCatalog(dir string) (*Catalog, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("listing variants in %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	variants := make([]*Variant, 0, len(paths))
	for _, p := range paths {
		v, err := LoadVariant(p)
		if err != nil {
			return nil, err
		}
		slog.Debug("loaded variant", "name", v.Name, "path", p, "test_points", len(v.TestPoints))
		variants = append(variants, v)
	}
	return NewCatalog(variants...)
}

// Get returns the variant with the given name.
func (c *Catalog) Get(name string) (*Variant, error) {
	v, ok := c.variants[name]
	if !ok {
		return nil, &models.ConfigError{Param: "config_name", Msg: fmt.Sprintf("unknown variant %q", name)}
	}
	return v, nil
}

// Names returns the registered variant names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.variants))
	for name := range c.variants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
