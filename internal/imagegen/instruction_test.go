package imagegen

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"studio/internal/domain"
)

func img(b byte) *domain.ImageRef {
	return &domain.ImageRef{MIMEType: "image/png", Data: []byte{b}}
}

func combo(ordinal int, kv ...string) domain.Combination {
	values := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i]] = kv[i+1]
	}
	return domain.Combination{Ordinal: ordinal, Values: values}
}

func TestComposeCreative(t *testing.T) {
	c := NewComposer(nil, "")
	job := domain.Job{Mode: domain.ModeCreative, Prompt: "silk gown on a marble stair"}

	got, err := c.Compose(job, combo(1, axisVariant, "2"))
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if !strings.HasPrefix(got.Prompt, "STYLE: High-end commercial photography") {
		t.Fatalf("prompt missing master preamble: %q", got.Prompt)
	}
	if !strings.HasSuffix(got.Prompt, "silk gown on a marble stair") {
		t.Fatalf("prompt missing body: %q", got.Prompt)
	}
	if got.Negative != DefaultNegativePrompt {
		t.Fatalf("Negative = %q, want %q", got.Negative, DefaultNegativePrompt)
	}
	if got.LayerName != "Gen 2" {
		t.Fatalf("LayerName = %q, want %q", got.LayerName, "Gen 2")
	}
	if len(got.References) != 0 {
		t.Fatalf("References = %d, want 0", len(got.References))
	}
}

func TestComposeStandardRefsOrder(t *testing.T) {
	c := NewComposer(nil, "")
	pose, ref := img(1), img(2)
	job := domain.Job{Mode: domain.ModeCreative, Prompt: "x", PoseImage: pose, ReferenceImage: ref}

	got, err := c.Compose(job, combo(0))
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if len(got.References) != 2 || got.References[0].Data[0] != 1 || got.References[1].Data[0] != 2 {
		t.Fatalf("references out of order: %+v", got.References)
	}
	if !strings.HasPrefix(got.Prompt, contentInstruction+poseInstruction+masterPrompt) {
		t.Fatalf("instruction prefixes out of order: %q", got.Prompt[:120])
	}
}

func TestComposeNegativeSuffix(t *testing.T) {
	c := NewComposer(nil, "blurry")
	job := domain.Job{
		Mode:           domain.ModeFission,
		Poses:          []string{"stand_37"},
		ReferenceImage: img(1),
	}
	got, err := c.Compose(job, combo(0, axisPose, "stand_37"))
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if got.Negative != "blurry, "+fissionNegative {
		t.Fatalf("Negative = %q", got.Negative)
	}
	if got.LayerName != "Contrapposto 1" {
		t.Fatalf("LayerName = %q", got.LayerName)
	}

	job.NegativePrompt = "text"
	got, _ = c.Compose(job, combo(0, axisPose, "stand_37"))
	if !strings.HasPrefix(got.Negative, "text, ") {
		t.Fatalf("custom negative not used: %q", got.Negative)
	}
}

func TestComposeBatchSelectsImage(t *testing.T) {
	c := NewComposer(nil, "")
	job := domain.Job{
		Mode:          domain.ModeBatch,
		ProductImages: []domain.ImageRef{*img(10), *img(11)},
		Options:       domain.JobOptions{ModelID: "eu_1"},
	}
	got, err := c.Compose(job, combo(4, axisImage, "1", axisPose, "default", axisScene, "film_noir"))
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if len(got.References) != 1 || got.References[0].Data[0] != 11 {
		t.Fatalf("References = %+v", got.References)
	}
	if got.LayerName != "Batch-5" {
		t.Fatalf("LayerName = %q", got.LayerName)
	}
	for _, want := range []string{"[MODEL]: Caucasian female, blonde, classic beauty.", "[SCENE]: ", "Maintain the product clothing details exactly"} {
		if !strings.Contains(got.Prompt, want) {
			t.Fatalf("prompt missing %q: %s", want, got.Prompt)
		}
	}
	if strings.Contains(got.Prompt, "[POSE]") {
		t.Fatalf("default pose should be omitted: %s", got.Prompt)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	job := domain.Job{
		Mode:          domain.ModeBatch,
		ProductImages: []domain.ImageRef{*img(10), *img(11)},
		Poses:         []string{"stand_37"},
		Scenes:        []string{"film_noir"},
		Options:       domain.JobOptions{ModelID: "eu_1", Lighting: "cinematic", Blur: 40},
	}
	cb := combo(3, axisImage, "1", axisPose, "stand_37", axisScene, "film_noir")

	first, err := NewComposer(nil, "blurry").Compose(job, cb)
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	second, err := NewComposer(nil, "blurry").Compose(job, cb)
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if first.Prompt != second.Prompt || first.Negative != second.Negative || first.LayerName != second.LayerName {
		t.Fatalf("compositions differ:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(first.References, second.References) {
		t.Fatalf("references differ: %+v vs %+v", first.References, second.References)
	}
}

func TestComposeBgSwapInstruction(t *testing.T) {
	c := NewComposer(nil, "")
	job := domain.Job{
		Mode:           domain.ModeBgSwap,
		ReferenceImage: img(1),
		Scenes:         []string{"film_noir"},
		Options:        domain.JobOptions{Lighting: "cinematic", Blur: 70},
	}
	got, err := c.Compose(job, combo(0, axisScene, "film_noir"))
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	for _, want := range []string{"TASK: Background Replacement", "LIGHTING: Dramatic cinematic", "ATMOSPHERE: ", "f/1.2 aperture"} {
		if !strings.Contains(got.Prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestComposeFaceSwapCustomFace(t *testing.T) {
	c := NewComposer(nil, "")
	job := domain.Job{
		Mode:           domain.ModeFaceSwap,
		ReferenceImage: img(1),
		FaceImage:      img(2),
		Options:        domain.JobOptions{FaceSwapMode: "head_swap", FaceSource: "custom", FaceSimilarity: 65},
	}
	got, err := c.Compose(job, combo(0))
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if len(got.References) != 2 {
		t.Fatalf("References = %d, want 2", len(got.References))
	}
	if !strings.HasPrefix(got.Prompt, "[Instruction]: This second image is the FACE REFERENCE. Target Similarity: 65%. ") {
		t.Fatalf("face instruction should read first: %q", got.Prompt[:90])
	}
	if !strings.Contains(got.Prompt, "SWAP THE HEAD AND HAIR only") {
		t.Fatal("head swap instruction missing")
	}
}

func TestAxesValidation(t *testing.T) {
	c := NewComposer(nil, "")
	cases := []struct {
		name string
		job  domain.Job
		key  string
	}{
		{"unknown mode", domain.Job{Mode: "poster"}, "alert.unknown_mode"},
		{"planting without garment", domain.Job{Mode: domain.ModePlanting}, "alert.upload_ref_garment"},
		{"fission without poses", domain.Job{Mode: domain.ModeFission}, "alert.select_pose"},
		{"fission custom without skeleton", domain.Job{Mode: domain.ModeFission, Poses: []string{customPoseID}}, "alert.upload_skeleton"},
		{"fission unknown pose", domain.Job{Mode: domain.ModeFission, Poses: []string{"moonwalk"}}, "alert.unknown_preset"},
		{"bg swap without scene", domain.Job{Mode: domain.ModeBgSwap, ReferenceImage: img(1)}, "alert.select_scene"},
		{"detail without areas", domain.Job{Mode: domain.ModeDetail, ReferenceImage: img(1)}, "alert.select_detail"},
		{"batch without products", domain.Job{Mode: domain.ModeBatch}, "alert.upload_product"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Axes(tc.job)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Axes() error = %v, want ValidationError", err)
			}
			if verr.Key != tc.key {
				t.Fatalf("Key = %q, want %q", verr.Key, tc.key)
			}
		})
	}
}

func TestAxesShapes(t *testing.T) {
	c := NewComposer(nil, "")

	axes, err := c.Axes(domain.Job{Mode: domain.ModeCreative, Quantity: 20})
	if err != nil {
		t.Fatalf("Axes error: %v", err)
	}
	if got := len(axes[0].Values); got != maxQuantity {
		t.Fatalf("variant count = %d, want %d", got, maxQuantity)
	}

	poses := make([]string, 13)
	for i := range poses {
		poses[i] = "stand_basic"
	}
	if _, err := c.Axes(domain.Job{Mode: domain.ModeFission, Poses: poses}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("13 poses error = %v, want validation", err)
	}

	axes, err = c.Axes(domain.Job{
		Mode:          domain.ModeBatch,
		ProductImages: []domain.ImageRef{*img(1), *img(2)},
		Scenes:        []string{"studio_missing"},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown scene error = %v", err)
	}

	axes, err = c.Axes(domain.Job{
		Mode:          domain.ModeBatch,
		ProductImages: []domain.ImageRef{*img(1), *img(2)},
		Poses:         []string{"stand_37", "sit_chair"},
	})
	if err != nil {
		t.Fatalf("Axes error: %v", err)
	}
	if len(axes) != 3 || axes[0].Name != axisImage || len(axes[2].Values) != 0 {
		t.Fatalf("batch axes = %+v", axes)
	}
}
