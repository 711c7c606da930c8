// Package image selects the image model tier for a task and applies the
// single primary-to-fallback retry.
package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/genai"
)

// Generator is the raw image transport, satisfied by *genai.Client.
type Generator interface {
	GenerateImage(ctx context.Context, req genai.ImageRequest) (genai.ImageAsset, error)
}

// AuthSignal receives terminal credential failures.
type AuthSignal interface {
	Raise(reason string)
}

// Models names the two image tiers.
type Models struct {
	Primary  string
	Fallback string
}

// DefaultModels are the tiers used when configuration leaves them empty.
var DefaultModels = Models{
	Primary:  "gemini-3-pro-image-preview",
	Fallback: "gemini-2.5-flash-image",
}

// SynthesisRequest is one fully composed task.
type SynthesisRequest struct {
	Prompt      string
	Negative    string
	References  []domain.ImageRef
	AspectRatio string
	ImageSize   domain.ImageSize
}

// Synthesizer is what batch and agent code depend on.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (domain.AssetRef, error)
}

type SynthesisClient struct {
	gen    Generator
	models Models
	signal AuthSignal
	logger *infra.Logger
}

func NewSynthesisClient(gen Generator, models Models, signal AuthSignal, logger *infra.Logger) *SynthesisClient {
	if models.Primary == "" {
		models.Primary = DefaultModels.Primary
	}
	if models.Fallback == "" {
		models.Fallback = DefaultModels.Fallback
	}
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &SynthesisClient{gen: gen, models: models, signal: signal, logger: logger}
}

// TierFor picks the starting tier: high resolutions need the primary model.
func TierFor(size domain.ImageSize) domain.Tier {
	switch size {
	case domain.Size2K, domain.Size4K:
		return domain.TierPrimary
	default:
		return domain.TierFallback
	}
}

// Synthesize runs one task. A primary attempt failing with an auth,
// not-found or unavailable error is retried once, immediately, on the
// fallback tier. Nothing else is retried.
func (c *SynthesisClient) Synthesize(ctx context.Context, req SynthesisRequest) (domain.AssetRef, error) {
	if c == nil || c.gen == nil {
		return domain.AssetRef{}, fmt.Errorf("image: synthesis client not configured: %w", domain.ErrProviderUnavailable)
	}
	tier := TierFor(req.ImageSize)
	asset, err := c.attempt(ctx, tier, req)
	if err != nil && tier == domain.TierPrimary && domain.IsTierFallback(err) && ctx.Err() == nil {
		c.logger.Warn().
			Err(err).
			Str("model", c.models.Primary).
			Str("fallback_model", c.models.Fallback).
			Msg("image: primary tier failed; retrying on fallback")
		asset, err = c.attempt(ctx, domain.TierFallback, req)
	}
	if err != nil {
		if errors.Is(err, domain.ErrAuthDenied) && c.signal != nil {
			c.signal.Raise(err.Error())
		}
		return domain.AssetRef{}, err
	}
	return asset, nil
}

func (c *SynthesisClient) attempt(ctx context.Context, tier domain.Tier, req SynthesisRequest) (domain.AssetRef, error) {
	model := c.models.Fallback
	imageSize := ""
	if tier == domain.TierPrimary {
		model = c.models.Primary
		imageSize = string(req.ImageSize)
	}
	out, err := c.gen.GenerateImage(ctx, genai.ImageRequest{
		Model:       model,
		Prompt:      fullPrompt(req.Prompt, req.Negative),
		References:  req.References,
		AspectRatio: req.AspectRatio,
		ImageSize:   imageSize,
	})
	if err != nil {
		return domain.AssetRef{}, fmt.Errorf("image: %s tier (%s): %w", tier, model, err)
	}
	if len(out.Data) == 0 {
		return domain.AssetRef{}, fmt.Errorf("image: %s tier (%s): %w", tier, model, domain.ErrTransient)
	}
	return domain.AssetRef{MIMEType: out.Format, Data: out.Data, Model: model, Tier: tier}, nil
}

func fullPrompt(prompt, negative string) string {
	prompt = strings.TrimSpace(prompt)
	if negative = strings.TrimSpace(negative); negative != "" {
		prompt += "\nNegative prompt: " + negative
	}
	return prompt
}

var _ Synthesizer = (*SynthesisClient)(nil)
