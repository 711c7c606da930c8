package imagegen

import (
	"studio/internal/domain"
	"studio/internal/presets"
)

// DefaultNegativePrompt is the baseline exclusion list when a job omits one.
const DefaultNegativePrompt = "low quality, bad anatomy, worst quality, text, watermark"

const (
	axisVariant = "variant"
	axisImage   = "image"
	axisPose    = "pose"
	axisScene   = "scene"
	axisDetail  = "detail"

	customPoseID = "custom_upload"

	maxQuantity = 9
	maxPoses    = 12
)

// Composition is the provider-ready form of one task.
type Composition struct {
	Prompt     string
	Negative   string
	References []domain.ImageRef
	LayerName  string
}

// Composer turns a job plus one axis combination into a Composition. It is
// pure: the same inputs always produce the same output.
type Composer struct {
	catalog          *presets.Catalog
	baselineNegative string
}

// NewComposer builds a Composer. An empty baseline uses DefaultNegativePrompt.
func NewComposer(catalog *presets.Catalog, baselineNegative string) *Composer {
	if catalog == nil {
		catalog = presets.MustDefault()
	}
	if baselineNegative == "" {
		baselineNegative = DefaultNegativePrompt
	}
	return &Composer{catalog: catalog, baselineNegative: baselineNegative}
}

// Catalog exposes the preset tables the composer resolves ids against.
func (c *Composer) Catalog() *presets.Catalog {
	return c.catalog
}
