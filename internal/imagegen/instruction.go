package imagegen

import (
	"fmt"
	"strconv"
	"strings"

	"studio/internal/domain"
)

// masterPrompt is the quality preamble placed ahead of every mode body.
const masterPrompt = "STYLE: High-end commercial photography, award-winning editorial style, luxury brand aesthetic.\n" +
	"EQUIPMENT: Shot on Hasselblad X2D 100C or Phase One IQ4, 80mm f/1.9 lens.\n" +
	"QUALITY: 8k resolution, hyper-realistic, exquisite texture details, perfect lighting.\n" +
	"LIGHTING: Professional cinematic lighting, soft diffused light, high dynamic range (HDR), masterful control of highlights and shadows.\n" +
	"COMPOSITION: Balanced and elegant composition, depth of field to separate subject from background (bokeh) where appropriate."

const (
	poseInstruction    = "[Instruction]: Use this first image as a POSE REFERENCE (skeleton/structure). The generated model must follow this exact pose.\n\n"
	contentInstruction = "[Instruction]: Use this image as the CONTENT REFERENCE (Subject/Product). Maintain the character's outfit and product details from this image.\n\n"
	fusionInstruction  = "[Instruction]: The provided images are multiple angles/details of the SAME product (mannequin). Analyze all images to understand the garment's structure, fabric, and details comprehensively. \n"
	retouchInstruction = "[Instruction]: You are a world-class photo retoucher and compositor. TASK: Background Replacement. " +
		"PRESERVE: The main subject (product/person) MUST remain exactly identical in pose, clothing, and features. Do not change the subject. " +
		"CHANGE: Replace the background completely based on the description to create a masterpiece. "
)

// Compose renders one task for a validated job and one combination drawn
// from the job's axes.
func (c *Composer) Compose(job domain.Job, combo domain.Combination) (Composition, error) {
	rule, ok := modeRules[job.Mode]
	if !ok {
		return Composition{}, domain.Invalid("alert.unknown_mode", fmt.Sprintf("unsupported workflow mode %q", job.Mode))
	}
	body, negSuffix := rule.body(c, job, combo)
	refs, prefixes := rule.refs(c, job, combo)

	// Each prefix is prepended in turn, so the last one reads first.
	text := masterPrompt
	if body != "" {
		text += "\n\n" + body
	}
	for _, p := range prefixes {
		text = p + text
	}

	return Composition{
		Prompt:     text,
		Negative:   c.negative(job.NegativePrompt, negSuffix),
		References: refs,
		LayerName:  rule.layerName(c, job, combo),
	}, nil
}

func (c *Composer) negative(custom, suffix string) string {
	base := strings.TrimSpace(custom)
	if base == "" {
		base = c.baselineNegative
	}
	if suffix == "" {
		return base
	}
	return base + ", " + suffix
}

// standardRefs sends the skeleton first when present, then the content image.
func standardRefs(_ *Composer, job domain.Job, _ domain.Combination) ([]domain.ImageRef, []string) {
	var refs []domain.ImageRef
	var prefixes []string
	if present(job.PoseImage) {
		refs = append(refs, *job.PoseImage)
		prefixes = append(prefixes, poseInstruction)
	}
	if present(job.ReferenceImage) {
		refs = append(refs, *job.ReferenceImage)
		prefixes = append(prefixes, contentInstruction)
	}
	return refs, prefixes
}

func fusionRefs(_ *Composer, job domain.Job, _ domain.Combination) ([]domain.ImageRef, []string) {
	refs := append([]domain.ImageRef(nil), job.FusionImages...)
	if len(refs) == 0 && present(job.ReferenceImage) {
		refs = append(refs, *job.ReferenceImage)
	}
	if job.Options.FusionModelMode == "custom" && present(job.FaceImage) {
		refs = append(refs, *job.FaceImage)
	}
	return refs, []string{fusionInstruction}
}

func faceSwapRefs(_ *Composer, job domain.Job, _ domain.Combination) ([]domain.ImageRef, []string) {
	var refs []domain.ImageRef
	var prefixes []string
	if present(job.ReferenceImage) {
		refs = append(refs, *job.ReferenceImage)
		var b strings.Builder
		b.WriteString("[Instruction]: This first image is the PRODUCT/BODY REFERENCE. ")
		switch job.Options.FaceSwapMode {
		case "model_swap":
			b.WriteString("Keep the outfit and background exactly as is. GENERATE A NEW MODEL (face, hair, skin tone) inside the clothes. ")
		case "head_swap":
			b.WriteString("Keep the outfit, body posture, and background. SWAP THE HEAD AND HAIR only. ")
		default:
			b.WriteString("Keep the outfit, hair, body, and background. SWAP ONLY THE FACIAL FEATURES (eyes, nose, mouth). ")
		}
		prefixes = append(prefixes, b.String())
	}
	if job.Options.FaceSource == "custom" && present(job.FaceImage) {
		refs = append(refs, *job.FaceImage)
		prefixes = append(prefixes, fmt.Sprintf("[Instruction]: This second image is the FACE REFERENCE. Target Similarity: %d%%. ", faceSimilarity(job.Options)))
	}
	return refs, prefixes
}

func bgSwapRefs(c *Composer, job domain.Job, combo domain.Combination) ([]domain.ImageRef, []string) {
	if !present(job.ReferenceImage) {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString(retouchInstruction)
	if light, ok := c.catalog.LightingStyle(job.Options.Lighting); ok && light.Prompt != "" {
		fmt.Fprintf(&b, "LIGHTING: %s Ensure the subject's lighting blends realistically with the new background. ", light.Prompt)
	}
	if scene, ok := c.catalog.Scene(combo.Value(axisScene)); ok {
		if cat, ok := c.catalog.SceneCategory(scene.Category); ok && cat.Atmosphere != "" {
			fmt.Fprintf(&b, "ATMOSPHERE: %s ", cat.Atmosphere)
		}
	}
	if blur := job.Options.Blur; blur > 0 {
		depth := "Slight depth of field separation, f/5.6 aperture"
		switch {
		case blur > 60:
			depth = "Strong bokeh, creamy background blur, f/1.2 aperture"
		case blur > 30:
			depth = "Moderate depth of field, pleasing bokeh, f/2.8 aperture"
		}
		fmt.Fprintf(&b, "DEPTH OF FIELD: %s. Focus strictly on the product. ", depth)
	}
	return []domain.ImageRef{*job.ReferenceImage}, []string{b.String()}
}

// batchRefs sends only the product image selected by the image axis.
func batchRefs(_ *Composer, job domain.Job, combo domain.Combination) ([]domain.ImageRef, []string) {
	idx, err := strconv.Atoi(combo.Value(axisImage))
	if err != nil || idx < 0 || idx >= len(job.ProductImages) {
		return nil, nil
	}
	return []domain.ImageRef{job.ProductImages[idx]}, nil
}

func present(ref *domain.ImageRef) bool {
	return ref != nil && !ref.Empty()
}
