// Package presets exposes the scene, pose, detail and model tables the
// workflows compose prompts from. The catalog is embedded as YAML.
package presets

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Preset is one selectable prompt fragment.
type Preset struct {
	ID       string `yaml:"id" json:"id"`
	Label    string `yaml:"label" json:"label"`
	Desc     string `yaml:"desc,omitempty" json:"desc,omitempty"`
	Prompt   string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Src      string `yaml:"src,omitempty" json:"src,omitempty"`
	Ratio    string `yaml:"ratio,omitempty" json:"ratio,omitempty"`
	Category string `yaml:"-" json:"category,omitempty"`
}

// Category groups presets under one heading.
type Category struct {
	ID         string   `yaml:"id" json:"id"`
	Label      string   `yaml:"label" json:"label"`
	Atmosphere string   `yaml:"atmosphere,omitempty" json:"atmosphere,omitempty"`
	Items      []Preset `yaml:"items" json:"items"`
}

// Catalog is the full preset table set.
type Catalog struct {
	Scenes      []Category `yaml:"scenes" json:"scenes"`
	Poses       []Category `yaml:"poses" json:"poses"`
	Planting    []Preset   `yaml:"planting" json:"planting"`
	Extraction  []Preset   `yaml:"extraction" json:"extraction"`
	Details     []Preset   `yaml:"details" json:"details"`
	Models      []Preset   `yaml:"models" json:"models"`
	FixedModels []Preset   `yaml:"fixed_models" json:"fixed_models"`
	SkinTones   []Preset   `yaml:"skin_tones" json:"skin_tones"`
	BodyShapes  []Preset   `yaml:"body_shapes" json:"body_shapes"`
	Crops       []Preset   `yaml:"crops" json:"crops"`
	Lighting    []Preset   `yaml:"lighting" json:"lighting"`
	ModelStyles []Preset   `yaml:"model_styles" json:"model_styles"`
	Expressions []Preset   `yaml:"expressions" json:"expressions"`
	Platforms   []Preset   `yaml:"platforms" json:"platforms"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog, parsed once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(catalogYAML)
	})
	return defaultCatalog, defaultErr
}

// MustDefault panics if the embedded catalog is malformed.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a YAML catalog and fills derived fields.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("presets: decode catalog: %w", err)
	}
	for ci := range c.Scenes {
		for i := range c.Scenes[ci].Items {
			c.Scenes[ci].Items[i].Category = c.Scenes[ci].ID
		}
	}
	for ci := range c.Poses {
		for i := range c.Poses[ci].Items {
			c.Poses[ci].Items[i].Category = c.Poses[ci].ID
		}
	}
	for _, list := range [][]Preset{c.Planting, c.Extraction, c.Details, c.Models, c.FixedModels,
		c.SkinTones, c.BodyShapes, c.Crops, c.Lighting, c.ModelStyles, c.Expressions, c.Platforms} {
		for i := range list {
			if list[i].Label == "" {
				list[i].Label = Title(list[i].ID)
			}
		}
	}
	return &c, nil
}

// Scene finds a scene across all categories.
func (c *Catalog) Scene(id string) (Preset, bool) {
	return findInCategories(c.Scenes, id)
}

// SceneCategory returns the category a scene belongs to.
func (c *Catalog) SceneCategory(categoryID string) (Category, bool) {
	for _, cat := range c.Scenes {
		if cat.ID == categoryID {
			return cat, true
		}
	}
	return Category{}, false
}

// Pose finds a pose across all categories.
func (c *Catalog) Pose(id string) (Preset, bool) {
	return findInCategories(c.Poses, id)
}

func (c *Catalog) Detail(id string) (Preset, bool)         { return find(c.Details, id) }
func (c *Catalog) PlantingVibe(id string) (Preset, bool)   { return find(c.Planting, id) }
func (c *Catalog) ExtractionKind(id string) (Preset, bool) { return find(c.Extraction, id) }
func (c *Catalog) SkinTone(id string) (Preset, bool)       { return find(c.SkinTones, id) }
func (c *Catalog) BodyShape(id string) (Preset, bool)      { return find(c.BodyShapes, id) }
func (c *Catalog) LightingStyle(id string) (Preset, bool)  { return find(c.Lighting, id) }
func (c *Catalog) Platform(id string) (Preset, bool)       { return find(c.Platforms, id) }

// PresetModel looks up a preset model only.
func (c *Catalog) PresetModel(id string) (Preset, bool) {
	return find(c.Models, id)
}

// Model looks up preset and fixed brand models.
func (c *Catalog) Model(id string) (Preset, bool) {
	if p, ok := find(c.Models, id); ok {
		return p, true
	}
	return find(c.FixedModels, id)
}

func find(list []Preset, id string) (Preset, bool) {
	id = strings.TrimSpace(id)
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

func findInCategories(cats []Category, id string) (Preset, bool) {
	for _, cat := range cats {
		if p, ok := find(cat.Items, id); ok {
			return p, true
		}
	}
	return Preset{}, false
}

// Title turns an id such as "full_body" into "Full Body".
func Title(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.TrimSpace(id), "_", " "))
}
