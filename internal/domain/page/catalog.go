package page

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Preset maps a requested page height to a target block count.
type Preset struct {
	Key      string `yaml:"key"`
	Sections int    `yaml:"sections"`
	Label    string `yaml:"label"`
}

// Catalog holds the size presets and per-category copy guidance.
type Catalog struct {
	DefaultPreset    string            `yaml:"default_preset"`
	FallbackCategory string            `yaml:"fallback_category"`
	Presets          []Preset          `yaml:"presets"`
	Categories       map[string]string `yaml:"categories"`

	presetByKey map[string]Preset
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := ParseCatalog(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("page: embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c.presetByKey = make(map[string]Preset, len(c.Presets))
	for _, p := range c.Presets {
		if p.Key == "" || p.Sections <= 0 {
			return nil, fmt.Errorf("preset %q: sections must be positive", p.Key)
		}
		c.presetByKey[p.Key] = p
	}
	if _, ok := c.presetByKey[c.DefaultPreset]; !ok {
		return nil, fmt.Errorf("default preset %q not defined", c.DefaultPreset)
	}
	if _, ok := c.Categories[c.FallbackCategory]; !ok {
		return nil, fmt.Errorf("fallback category %q not defined", c.FallbackCategory)
	}
	return &c, nil
}

// Preset resolves key, falling back to the default preset for unknown keys.
func (c *Catalog) Preset(key string) Preset {
	if p, ok := c.presetByKey[strings.TrimSpace(key)]; ok {
		return p
	}
	return c.presetByKey[c.DefaultPreset]
}

// Guidance returns the copy instruction for category, falling back to the
// generic category for anything unrecognized.
func (c *Catalog) Guidance(category string) string {
	if g, ok := c.Categories[strings.ToLower(strings.TrimSpace(category))]; ok {
		return g
	}
	return c.Categories[c.FallbackCategory]
}

func (c *Catalog) HasCategory(category string) bool {
	_, ok := c.Categories[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

func (c *Catalog) CategoryNames() []string {
	out := make([]string, 0, len(c.Categories))
	for k := range c.Categories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
