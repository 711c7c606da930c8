package imagegen

import (
	"fmt"
	"strings"

	"studio/internal/domain"
)

const (
	batchNegative      = "bad anatomy, deformed"
	fissionNegative    = "grid, collage, split screen, multiple views, multiple panels, storyboard, comic strip, borders, frames"
	plantingNegative   = "ugly, deformed, mannequin, plastic, stiff pose, studio background, low resolution, bad hands"
	fusionNegative     = "changing clothes, new outfit, different fabric, deformed body, plastic skin, mannequin joints, artificial look"
	extractionNegative = "busy background, messy, low resolution, blurry, distorted, mannequin parts visible"
	detailNegative     = "blurry, out of focus, low resolution, distorted, whole product shown, messy background"
)

var plantingVariations = []string{
	"walking towards camera",
	"standing casually",
	"looking back over shoulder",
	"interacting with environment",
	"close up shot",
	"full body relaxed shot",
	"sitting comfortably",
}

func creativeBody(_ *Composer, job domain.Job, _ domain.Combination) (string, string) {
	return strings.TrimSpace(job.Prompt), ""
}

func plantingBody(c *Composer, job domain.Job, combo domain.Combination) (string, string) {
	vibe, _ := c.catalog.PlantingVibe(job.Options.PlantingPreset)
	var b strings.Builder
	b.WriteString(`[TASK]: Create a high-engagement "Social Media Seeding" photo. `)
	b.WriteString("[INPUT]: Product Reference (Clothing). ")
	b.WriteString("[OUTFIT]: Preserve the clothing design, fabric, and fit EXACTLY as shown in the reference. ")
	fmt.Fprintf(&b, "[VIBE]: %s ", vibe.Prompt)
	b.WriteString("[STYLE]: Influencer lifestyle shot, OOTD (Outfit of the Day), high aesthetic quality, candid and natural pose. ")
	b.WriteString("[LIGHTING]: Natural, flattering, soft shadows, golden hour or cinematic ambient light. ")
	b.WriteString("[MODEL]: Attractive model fitting the scene, engaging with the camera or environment naturally. ")
	if clampQuantity(job.Quantity) > 1 {
		fmt.Fprintf(&b, "[POSE VARIATION]: %s. ", plantingVariations[combo.Ordinal%len(plantingVariations)])
	}
	appendDetails(&b, "ADDITIONAL", job.Prompt)
	return strings.TrimSpace(b.String()), plantingNegative
}

func fusionBody(c *Composer, job domain.Job, _ domain.Combination) (string, string) {
	opts := job.Options
	var b strings.Builder
	b.WriteString("[TASK]: Mannequin to Real Human Model Transformation. ")
	b.WriteString("[INPUT]: The uploaded images are mannequin/ghost mannequin shots of the SAME product from different angles. ")
	if opts.FusionAutoCutout {
		b.WriteString("[ACTION]: Ignore the original background of the uploaded images. Extract the garment cleanly. ")
	}

	switch opts.FusionModelMode {
	case "preset":
		if model, ok := c.catalog.PresetModel(opts.ModelID); ok {
			fmt.Fprintf(&b, "[MODEL IDENTITY]: Face and features resembling: %s (%s). ", model.Label, model.Desc)
		} else {
			b.WriteString("[MODEL IDENTITY]: Use provided face reference in the second image. ")
		}
	case "custom":
		b.WriteString("[MODEL IDENTITY]: Use provided face reference in the second image. ")
	default:
		skin := "Medium Skin"
		if s, ok := c.catalog.SkinTone(opts.FusionSkinTone); ok {
			skin = s.Label
		}
		body := "Slim"
		if s, ok := c.catalog.BodyShape(opts.FusionBodyShape); ok {
			body = s.Label
		}
		fmt.Fprintf(&b, "[MODEL ATTRIBUTES]: Skin Tone: %s. Body Shape: %s. ", skin, body)
	}

	pose, hasPose := c.catalog.Pose(opts.FusionPoseID)
	if opts.FusionPoseMode == "template" && hasPose {
		fmt.Fprintf(&b, "[POSE REFERENCE]: The model must follow this pose: %s. Use this to infer missing limbs/torso if mannequin is incomplete. ", pose.Prompt)
	} else {
		b.WriteString("[POSE]: Infer pose from the mannequin's shape. ")
	}

	switch opts.FusionSceneMode {
	case "white":
		b.WriteString("[SCENE]: Pure white background (#FFFFFF). ")
	case "template":
		if scene, ok := c.catalog.Scene(opts.FusionSceneID); ok {
			fmt.Fprintf(&b, "[SCENE]: %s. ", scene.Prompt)
		}
	case "custom":
		b.WriteString("[SCENE]: Use provided background reference. ")
	}

	b.WriteString("[GOAL]: Generate a realistic human model wearing this EXACT garment. ")
	b.WriteString("[CONSTRAINT]: CRITICAL - DO NOT CHANGE THE CLOTHING. Keep the fabric, folds, logo, and cut exactly as the reference. ")
	switch opts.FusionComposition {
	case "headless":
		b.WriteString("[COMPOSITION]: Headless crop. Focus strictly on the torso and garment fit. ")
	case "detail":
		b.WriteString("[COMPOSITION]: Close-up detail shot. Focus on fabric texture. ")
	default:
		b.WriteString("[COMPOSITION]: Full body shot (including head and face). ")
	}
	appendDetails(&b, "ADDITIONAL", job.Prompt)
	return strings.TrimSpace(b.String()), fusionNegative
}

func extractionBody(c *Composer, job domain.Job, _ domain.Combination) (string, string) {
	kind, ok := c.catalog.ExtractionKind(job.Options.ExtractCategory)
	label := "product"
	if ok {
		label = kind.Label
	}
	var b strings.Builder
	b.WriteString("[TASK]: Professional E-commerce Product Extraction. ")
	fmt.Fprintf(&b, "[INPUT]: Reference image containing a %s. ", label)
	fmt.Fprintf(&b, "[GOAL]: Extract the %s from the image and place it on a clean background. ", label)
	if ok {
		fmt.Fprintf(&b, "[SUBJECT]: %s. ", kind.Prompt)
	}
	if job.Options.ExtractMode == "" || job.Options.ExtractMode == "standard" {
		b.WriteString("[BACKGROUND]: Pure White Background (#FFFFFF). No shadows, no props. ")
		b.WriteString("[STYLE]: High-end commercial product photography. Flat lay or Mannequin view. Sharp focus, high resolution. ")
	} else {
		instruction := strings.TrimSpace(job.Prompt)
		if instruction == "" {
			instruction = "Place on a clean, fitting background."
		}
		fmt.Fprintf(&b, "[INSTRUCTION]: %s ", instruction)
	}
	b.WriteString("[CONSTRAINT]: Preserve all fabric details, lace textures, and transparency of the product. Do NOT alter the product design. ")
	return strings.TrimSpace(b.String()), extractionNegative
}

func faceSwapBody(c *Composer, job domain.Job, _ domain.Combination) (string, string) {
	opts := job.Options
	var b strings.Builder
	b.WriteString("TARGET: High-end e-commerce photography. ")
	switch opts.FaceSwapMode {
	case "model_swap":
		b.WriteString("ACTION: Swap Model Body & Head. PRESERVE: Clothing & Background strictly. ")
	case "head_swap":
		b.WriteString("ACTION: Swap Head & Hair only. PRESERVE: Clothing, Body Posture, Background. ")
	default:
		b.WriteString("ACTION: Face Inpainting only. PRESERVE: Hair, Head shape, Clothing, Body, Background. ")
	}
	if opts.FaceSource == "preset" || opts.FaceSource == "fixed" {
		if model, ok := c.catalog.Model(opts.ModelID); ok {
			fmt.Fprintf(&b, "FACE REFERENCE: Generate a face resembling: %s (%s). ", model.Label, model.ID)
		}
	}
	fmt.Fprintf(&b, "SIMILARITY: %d%%. EXPRESSION: %s. AGE: %s. ", faceSimilarity(opts), orDefault(opts.Expression, "neutral"), orDefault(opts.AgeGroup, "adult"))
	if details := strings.TrimSpace(job.Prompt); details != "" {
		fmt.Fprintf(&b, "DETAILS: %s", details)
	}
	return strings.TrimSpace(b.String()), ""
}

func fissionBody(c *Composer, job domain.Job, combo domain.Combination) (string, string) {
	var lines []string
	if combo.Value(axisPose) == customPoseID {
		style := "keep model identity identical"
		if job.Options.ModelStyle != "" && job.Options.ModelStyle != "original" {
			style = "model ethnicity: " + job.Options.ModelStyle
		}
		lines = []string{
			"[TASK]: Generate a SINGLE high-quality fashion photograph based on the skeleton pose.",
			"[LAYOUT]: Single full frame. Strictly NO collage, NO grid, NO multiple views.",
			fmt.Sprintf("[STYLE]: %s.", style),
			"[ACTION]: Follow provided skeleton perfectly.",
		}
	} else {
		pose, _ := c.catalog.Pose(combo.Value(axisPose))
		model := "Keep original model consistency"
		if job.Options.ModelStyle != "" && job.Options.ModelStyle != "original" {
			model = "Model ethnicity: " + job.Options.ModelStyle
		}
		lines = []string{
			"[TASK]: Generate a SINGLE professional fashion portrait.",
			"[LAYOUT]: Single full frame image. Strictly NO collage, NO grid, NO split screen, NO multiple angles.",
			fmt.Sprintf("[MODEL]: %s.", model),
			fmt.Sprintf("[POSE]: %s.", pose.Prompt),
		}
	}
	if details := strings.TrimSpace(job.Prompt); details != "" {
		lines = append(lines, "[DETAILS]: "+details)
	}
	return strings.Join(lines, "\n"), fissionNegative
}

func bgSwapBody(c *Composer, job domain.Job, combo domain.Combination) (string, string) {
	scene, ok := c.catalog.Scene(combo.Value(axisScene))
	if !ok {
		return strings.TrimSpace(job.Prompt), ""
	}
	return strings.TrimSpace(scene.Prompt + " " + job.Prompt), ""
}

func detailBody(c *Composer, job domain.Job, combo domain.Combination) (string, string) {
	focus, _ := c.catalog.Detail(combo.Value(axisDetail))
	desc := orDefault(focus.Desc, "fabric")
	var b strings.Builder
	b.WriteString("[TASK]: Commercial Product Photography - Macro Detail Shot. ")
	b.WriteString("[INPUT]: Reference image of a product. ")
	fmt.Fprintf(&b, "[GOAL]: Generate an extreme close-up detail shot of the %s. ", desc)
	fmt.Fprintf(&b, "[VISUAL]: %s ", focus.Prompt)
	b.WriteString("[STYLE]: Hasselblad X2D quality, f/2.8 aperture, shallow depth of field, sharp focus on texture, soft professional lighting. ")
	b.WriteString("[CONSTRAINT]: The material/texture must match the reference image exactly. ")
	appendDetails(&b, "ADDITIONAL", job.Prompt)
	return strings.TrimSpace(b.String()), detailNegative
}

func batchBody(c *Composer, job domain.Job, combo domain.Combination) (string, string) {
	model := "Professional model"
	if m, ok := c.catalog.PresetModel(job.Options.ModelID); ok {
		model = m.Desc
	}
	var b strings.Builder
	b.WriteString("[TASK]: Professional E-commerce Batch Production. ")
	b.WriteString("[INPUT]: Product Reference Image. ")
	fmt.Fprintf(&b, "[MODEL]: %s. ", model)
	if pose, ok := c.catalog.Pose(combo.Value(axisPose)); ok {
		fmt.Fprintf(&b, "[POSE]: %s. ", pose.Prompt)
	}
	if scene, ok := c.catalog.Scene(combo.Value(axisScene)); ok {
		fmt.Fprintf(&b, "[SCENE]: %s. ", scene.Prompt)
	} else {
		b.WriteString("[SCENE]: Clean professional background. ")
	}
	b.WriteString("[CONSTRAINT]: Maintain the product clothing details exactly. Change the model and background. ")
	appendDetails(&b, "DETAILS", job.Prompt)
	return strings.TrimSpace(b.String()), batchNegative
}

func faceSimilarity(opts domain.JobOptions) int {
	if opts.FaceSimilarity <= 0 || opts.FaceSimilarity > 100 {
		return 80
	}
	return opts.FaceSimilarity
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
