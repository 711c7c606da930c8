package imagegen

import (
	"fmt"
	"strconv"
	"strings"

	"studio/internal/domain"
)

type modeRule struct {
	axes      func(c *Composer, job domain.Job) ([]domain.Axis, error)
	body      func(c *Composer, job domain.Job, combo domain.Combination) (string, string)
	layerName func(c *Composer, job domain.Job, combo domain.Combination) string
	refs      func(c *Composer, job domain.Job, combo domain.Combination) ([]domain.ImageRef, []string)
}

var modeRules = map[domain.WorkflowMode]modeRule{
	domain.ModeCreative: {
		axes:      variantAxes(nil),
		body:      creativeBody,
		layerName: fixedName("Gen"),
		refs:      standardRefs,
	},
	domain.ModePlanting: {
		axes:      variantAxes(requireReference("alert.upload_ref_garment", "clothing reference image is required")),
		body:      plantingBody,
		layerName: plantingName,
		refs:      standardRefs,
	},
	domain.ModeFusion: {
		axes:      variantAxes(requireFusion),
		body:      fusionBody,
		layerName: fixedName("RealModel"),
		refs:      fusionRefs,
	},
	domain.ModeExtraction: {
		axes:      variantAxes(requireReference("alert.upload_ref_product", "product reference image is required")),
		body:      extractionBody,
		layerName: fixedName("Product"),
		refs:      standardRefs,
	},
	domain.ModeFaceSwap: {
		axes:      variantAxes(requireReference("alert.upload_base", "base product or model image is required")),
		body:      faceSwapBody,
		layerName: fixedName("FaceSwap"),
		refs:      faceSwapRefs,
	},
	domain.ModeFission: {
		axes:      fissionAxes,
		body:      fissionBody,
		layerName: fissionName,
		refs:      standardRefs,
	},
	domain.ModeBgSwap: {
		axes:      bgSwapAxes,
		body:      bgSwapBody,
		layerName: bgSwapName,
		refs:      bgSwapRefs,
	},
	domain.ModeDetail: {
		axes:      detailAxes,
		body:      detailBody,
		layerName: detailName,
		refs:      standardRefs,
	},
	domain.ModeBatch: {
		axes:      batchAxes,
		body:      batchBody,
		layerName: func(_ *Composer, _ domain.Job, combo domain.Combination) string { return fmt.Sprintf("Batch-%d", combo.Ordinal+1) },
		refs:      batchRefs,
	},
}

// Axes validates the job's required inputs and returns its fan-out axes in
// expansion order.
func (c *Composer) Axes(job domain.Job) ([]domain.Axis, error) {
	rule, ok := modeRules[job.Mode]
	if !ok {
		return nil, domain.Invalid("alert.unknown_mode", fmt.Sprintf("unsupported workflow mode %q", job.Mode))
	}
	return rule.axes(c, job)
}

func variantAxes(check func(job domain.Job) error) func(*Composer, domain.Job) ([]domain.Axis, error) {
	return func(_ *Composer, job domain.Job) ([]domain.Axis, error) {
		if check != nil {
			if err := check(job); err != nil {
				return nil, err
			}
		}
		n := clampQuantity(job.Quantity)
		values := make([]string, n)
		for i := range values {
			values[i] = strconv.Itoa(i + 1)
		}
		return []domain.Axis{{Name: axisVariant, Values: values}}, nil
	}
}

func requireReference(key, msg string) func(domain.Job) error {
	return func(job domain.Job) error {
		if job.ReferenceImage == nil || job.ReferenceImage.Empty() {
			return domain.Invalid(key, msg)
		}
		return nil
	}
}

func requireFusion(job domain.Job) error {
	if len(job.FusionImages) == 0 && (job.ReferenceImage == nil || job.ReferenceImage.Empty()) {
		return domain.Invalid("alert.upload_mannequin", "mannequin images are required")
	}
	return nil
}

func fissionAxes(c *Composer, job domain.Job) ([]domain.Axis, error) {
	if contains(job.Poses, customPoseID) {
		if job.PoseImage == nil || job.PoseImage.Empty() {
			return nil, domain.Invalid("alert.upload_skeleton", "skeleton image is required for a custom pose")
		}
		return []domain.Axis{{Name: axisPose, Values: []string{customPoseID}}}, nil
	}
	if len(job.Poses) == 0 {
		return nil, domain.Invalid("alert.select_pose", "select at least one pose")
	}
	if len(job.Poses) > maxPoses {
		return nil, domain.Invalid("alert.pose_limit", fmt.Sprintf("at most %d poses", maxPoses))
	}
	for _, id := range job.Poses {
		if _, ok := c.catalog.Pose(id); !ok {
			return nil, unknownPreset("pose", id)
		}
	}
	return []domain.Axis{{Name: axisPose, Values: job.Poses}}, nil
}

func bgSwapAxes(c *Composer, job domain.Job) ([]domain.Axis, error) {
	if job.ReferenceImage == nil || job.ReferenceImage.Empty() {
		return nil, domain.Invalid("alert.upload_base", "base product or model image is required")
	}
	if len(job.Scenes) == 0 {
		return nil, domain.Invalid("alert.select_scene", "select at least one scene")
	}
	for _, id := range job.Scenes {
		if _, ok := c.catalog.Scene(id); !ok {
			return nil, unknownPreset("scene", id)
		}
	}
	return []domain.Axis{{Name: axisScene, Values: job.Scenes}}, nil
}

func detailAxes(c *Composer, job domain.Job) ([]domain.Axis, error) {
	if job.ReferenceImage == nil || job.ReferenceImage.Empty() {
		return nil, domain.Invalid("alert.upload_ref_product", "product reference image is required")
	}
	if len(job.Details) == 0 {
		return nil, domain.Invalid("alert.select_detail", "select at least one detail area")
	}
	for _, id := range job.Details {
		if _, ok := c.catalog.Detail(id); !ok {
			return nil, unknownPreset("detail", id)
		}
	}
	return []domain.Axis{{Name: axisDetail, Values: job.Details}}, nil
}

// batchAxes is images x poses x scenes. Empty pose or scene selections
// collapse to the sentinel during expansion.
func batchAxes(c *Composer, job domain.Job) ([]domain.Axis, error) {
	if len(job.ProductImages) == 0 {
		return nil, domain.Invalid("alert.upload_product", "upload at least one product image")
	}
	images := make([]string, len(job.ProductImages))
	for i := range images {
		images[i] = strconv.Itoa(i)
	}
	for _, id := range job.Poses {
		if _, ok := c.catalog.Pose(id); !ok {
			return nil, unknownPreset("pose", id)
		}
	}
	for _, id := range job.Scenes {
		if _, ok := c.catalog.Scene(id); !ok {
			return nil, unknownPreset("scene", id)
		}
	}
	return []domain.Axis{
		{Name: axisImage, Values: images},
		{Name: axisPose, Values: job.Poses},
		{Name: axisScene, Values: job.Scenes},
	}, nil
}

func unknownPreset(kind, id string) error {
	return domain.Invalid("alert.unknown_preset", fmt.Sprintf("unknown %s preset %q", kind, id))
}

func fixedName(prefix string) func(*Composer, domain.Job, domain.Combination) string {
	return func(_ *Composer, _ domain.Job, combo domain.Combination) string {
		return fmt.Sprintf("%s %d", prefix, combo.Ordinal+1)
	}
}

func plantingName(c *Composer, job domain.Job, combo domain.Combination) string {
	label := "Seeding"
	if vibe, ok := c.catalog.PlantingVibe(job.Options.PlantingPreset); ok {
		label = vibe.Label
	}
	return fmt.Sprintf("%s %d", label, combo.Ordinal+1)
}

func fissionName(c *Composer, _ domain.Job, combo domain.Combination) string {
	id := combo.Value(axisPose)
	if id == customPoseID {
		return "Custom Pose 1"
	}
	label := "Pose"
	if p, ok := c.catalog.Pose(id); ok {
		label = p.Label
	}
	return fmt.Sprintf("%s %d", label, combo.Ordinal+1)
}

func bgSwapName(c *Composer, _ domain.Job, combo domain.Combination) string {
	label := "Scene"
	if s, ok := c.catalog.Scene(combo.Value(axisScene)); ok {
		label = s.Label
	}
	return fmt.Sprintf("%s %d", label, combo.Ordinal+1)
}

func detailName(c *Composer, _ domain.Job, combo domain.Combination) string {
	label := "Detail"
	if d, ok := c.catalog.Detail(combo.Value(axisDetail)); ok {
		label = d.Label
	}
	return fmt.Sprintf("%s %d", label, combo.Ordinal+1)
}

func clampQuantity(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxQuantity {
		return maxQuantity
	}
	return n
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func appendDetails(b *strings.Builder, tag, text string) {
	if text = strings.TrimSpace(text); text != "" {
		fmt.Fprintf(b, "[%s]: %s", tag, text)
	}
}
