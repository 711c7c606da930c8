// Package prompt polishes short user ideas into production prompts and
// describes reference images. Both use the fast chat model.
package prompt

import (
	"context"
	"strings"

	"studio/internal/domain"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
)

type EnhanceRequest struct {
	Prompt string `json:"prompt"`
	Locale string `json:"locale,omitempty"`
}

type EnhanceResponse struct {
	Prompt   string            `json:"prompt"`
	Metadata map[string]string `json:"metadata"`
	Provider string            `json:"-"`
}

// Analysis is the structured description of a reference image.
type Analysis struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error)
	Analyze(ctx context.Context, img domain.ImageRef) (*Analysis, error)
}

// StaticEnhancer never calls a model: enhancement echoes the input and
// analysis reports that no analyzer is available.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (s *StaticEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	return &EnhanceResponse{
		Prompt:   strings.TrimSpace(req.Prompt),
		Metadata: map[string]string{"locale": req.Locale},
		Provider: staticProviderName,
	}, nil
}

func (s *StaticEnhancer) Analyze(ctx context.Context, img domain.ImageRef) (*Analysis, error) {
	return nil, domain.ErrAuthDenied
}

var _ Enhancer = (*StaticEnhancer)(nil)
