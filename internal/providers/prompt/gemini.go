package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/providers/genai"
)

// ContentGenerator is the slice of *genai.Client the enhancer needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, req genai.GenerateContentRequest) (genai.GenerateContentResponse, error)
}

type GeminiOptions struct {
	Client     ContentGenerator
	Model      string
	Fallback   Enhancer
	OnFallback func(reason string, err error)
	// AuthSignal is raised when analysis is denied.
	AuthSignal interface{ Raise(reason string) }
}

type GeminiEnhancer struct {
	client     ContentGenerator
	model      string
	fallback   Enhancer
	onFallback func(string, error)
	signal     interface{ Raise(reason string) }
}

const enhanceTemplate = `Role: Professional E-commerce Photographer & AI Prompt Engineer.
Task: Expand the user's basic input into a high-quality, professional image generation prompt suitable for Amazon/Shein product photography.

Guidelines:
1. Lighting: Add professional lighting terms (e.g., "soft studio lighting", "cinematic rim light", "natural window light").
2. Atmosphere: Enhance the vibe (e.g., "luxury", "minimalist", "romantic wedding atmosphere").
3. Technical: Add quality keywords (e.g., "8k resolution", "photorealistic", "sharp focus", "highly detailed", "bokeh").
4. Composition: Suggest composition if missing (e.g., "eye-level shot", "symmetrical", "rule of thirds").

Input: %q

Output: Return ONLY the enhanced prompt string in English. Do not add conversational text.`

const analyzePrompt = `As a professional e-commerce visual director, analyze this image.
1. Describe the core product (gown or accessory): material, color, style.
2. Describe the model's pose, ethnicity and expression.
3. Describe the background environment and lighting.

Return JSON with 'description' (detailed description) and 'tags' (keyword list).
Do not use Markdown code fences. Return the JSON string directly.`

func NewGeminiEnhancer(opts GeminiOptions) (*GeminiEnhancer, error) {
	if opts.Client == nil {
		return nil, errors.New("gemini client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticEnhancer()
	}
	return &GeminiEnhancer{
		client:     opts.Client,
		model:      model,
		fallback:   fallback,
		onFallback: opts.OnFallback,
		signal:     opts.AuthSignal,
	}, nil
}

// Enhance never fails on provider errors: the original text comes back.
func (g *GeminiEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	input := strings.TrimSpace(req.Prompt)
	if input == "" {
		return nil, domain.Invalid("alert.enter_prompt", "prompt is required")
	}
	resp, err := g.client.GenerateContent(ctx, g.model, genai.GenerateContentRequest{
		Contents: []genai.Content{{Role: "user", Parts: []genai.Part{{Text: fmt.Sprintf(enhanceTemplate, input)}}}},
	})
	if err != nil {
		return g.useFallback(ctx, req, "http_request", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return g.useFallback(ctx, req, "empty_response", nil)
	}
	return &EnhanceResponse{
		Prompt:   text,
		Metadata: map[string]string{"locale": req.Locale, "model": g.model},
		Provider: geminiProviderName,
	}, nil
}

// Analyze surfaces provider errors so callers can show an auth prompt.
func (g *GeminiEnhancer) Analyze(ctx context.Context, img domain.ImageRef) (*Analysis, error) {
	if img.Empty() {
		return nil, domain.Invalid("alert.upload_first", "image is required")
	}
	resp, err := g.client.GenerateContent(ctx, g.model, genai.GenerateContentRequest{
		Contents: []genai.Content{{Role: "user", Parts: []genai.Part{
			genai.InlinePart(img),
			{Text: analyzePrompt},
		}}},
		GenerationConfig: &genai.GenerationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuthDenied) && g.signal != nil {
			g.signal.Raise(err.Error())
		}
		return nil, fmt.Errorf("prompt: analyze image: %w", err)
	}
	var out Analysis
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &out); err != nil {
		return nil, fmt.Errorf("prompt: decode analysis: %w", err)
	}
	return &out, nil
}

func (g *GeminiEnhancer) useFallback(ctx context.Context, req EnhanceRequest, reason string, cause error) (*EnhanceResponse, error) {
	if g.onFallback != nil {
		g.onFallback(reason, cause)
	}
	res, err := g.fallback.Enhance(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	res.Metadata["fallback_reason"] = reason
	return res, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var _ Enhancer = (*GeminiEnhancer)(nil)
