package image

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"studio/internal/domain"
	"studio/internal/providers/genai"
)

type stubGenerator struct {
	requests []genai.ImageRequest
	errs     map[string]error
}

func (s *stubGenerator) GenerateImage(ctx context.Context, req genai.ImageRequest) (genai.ImageAsset, error) {
	s.requests = append(s.requests, req)
	if err := s.errs[req.Model]; err != nil {
		return genai.ImageAsset{}, err
	}
	return genai.ImageAsset{Format: "image/png", Data: []byte(req.Model)}, nil
}

type stubSignal struct {
	reasons []string
}

func (s *stubSignal) Raise(reason string) {
	s.reasons = append(s.reasons, reason)
}

func TestTierFor(t *testing.T) {
	cases := map[domain.ImageSize]domain.Tier{
		domain.Size1K: domain.TierFallback,
		"":            domain.TierFallback,
		domain.Size2K: domain.TierPrimary,
		domain.Size4K: domain.TierPrimary,
	}
	for size, want := range cases {
		if got := TierFor(size); got != want {
			t.Fatalf("TierFor(%q) = %q, want %q", size, got, want)
		}
	}
}

func TestSynthesizeFallbackTierOmitsImageSize(t *testing.T) {
	gen := &stubGenerator{}
	client := NewSynthesisClient(gen, Models{}, nil, nil)

	asset, err := client.Synthesize(context.Background(), SynthesisRequest{Prompt: "p", Negative: "n", ImageSize: domain.Size1K})
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	if len(gen.requests) != 1 {
		t.Fatalf("calls = %d, want 1", len(gen.requests))
	}
	req := gen.requests[0]
	if req.Model != DefaultModels.Fallback || req.ImageSize != "" {
		t.Fatalf("request = %+v", req)
	}
	if !strings.HasSuffix(req.Prompt, "\nNegative prompt: n") {
		t.Fatalf("prompt = %q", req.Prompt)
	}
	if asset.Tier != domain.TierFallback || asset.Model != DefaultModels.Fallback {
		t.Fatalf("asset = %+v", asset)
	}
}

func TestSynthesizePrimarySendsImageSize(t *testing.T) {
	gen := &stubGenerator{}
	client := NewSynthesisClient(gen, Models{}, nil, nil)

	asset, err := client.Synthesize(context.Background(), SynthesisRequest{Prompt: "p", ImageSize: domain.Size4K})
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	if gen.requests[0].ImageSize != "4K" || asset.Tier != domain.TierPrimary {
		t.Fatalf("request = %+v asset = %+v", gen.requests[0], asset)
	}
}

func TestSynthesizeRetriesOnceOnFallback(t *testing.T) {
	for _, sentinel := range []error{domain.ErrAuthDenied, domain.ErrNotFound, domain.ErrProviderUnavailable} {
		gen := &stubGenerator{errs: map[string]error{DefaultModels.Primary: fmt.Errorf("boom: %w", sentinel)}}
		client := NewSynthesisClient(gen, Models{}, nil, nil)

		asset, err := client.Synthesize(context.Background(), SynthesisRequest{Prompt: "p", ImageSize: domain.Size2K})
		if err != nil {
			t.Fatalf("%v: Synthesize error: %v", sentinel, err)
		}
		if len(gen.requests) != 2 {
			t.Fatalf("%v: calls = %d, want 2", sentinel, len(gen.requests))
		}
		if gen.requests[1].Model != DefaultModels.Fallback || gen.requests[1].ImageSize != "" {
			t.Fatalf("%v: retry request = %+v", sentinel, gen.requests[1])
		}
		if asset.Tier != domain.TierFallback {
			t.Fatalf("%v: asset tier = %q", sentinel, asset.Tier)
		}
	}
}

func TestSynthesizeDoesNotRetryOtherErrors(t *testing.T) {
	for _, sentinel := range []error{domain.ErrRateLimited, domain.ErrTransient} {
		gen := &stubGenerator{errs: map[string]error{DefaultModels.Primary: sentinel}}
		client := NewSynthesisClient(gen, Models{}, nil, nil)

		_, err := client.Synthesize(context.Background(), SynthesisRequest{ImageSize: domain.Size2K})
		if !errors.Is(err, sentinel) {
			t.Fatalf("err = %v, want %v", err, sentinel)
		}
		if len(gen.requests) != 1 {
			t.Fatalf("calls = %d, want 1", len(gen.requests))
		}
	}
}

func TestSynthesizeFallbackFailureIsTerminal(t *testing.T) {
	gen := &stubGenerator{errs: map[string]error{DefaultModels.Fallback: domain.ErrProviderUnavailable}}
	client := NewSynthesisClient(gen, Models{}, nil, nil)

	_, err := client.Synthesize(context.Background(), SynthesisRequest{ImageSize: domain.Size1K})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if len(gen.requests) != 1 {
		t.Fatalf("fallback tier must not retry; calls = %d", len(gen.requests))
	}
}

func TestSynthesizeRaisesAuthSignal(t *testing.T) {
	gen := &stubGenerator{errs: map[string]error{
		DefaultModels.Primary:  domain.ErrAuthDenied,
		DefaultModels.Fallback: domain.ErrAuthDenied,
	}}
	signal := &stubSignal{}
	client := NewSynthesisClient(gen, Models{}, signal, nil)

	_, err := client.Synthesize(context.Background(), SynthesisRequest{ImageSize: domain.Size2K})
	if !errors.Is(err, domain.ErrAuthDenied) {
		t.Fatalf("err = %v", err)
	}
	if len(signal.reasons) != 1 {
		t.Fatalf("signal raised %d times, want 1", len(signal.reasons))
	}

	gen.errs = map[string]error{DefaultModels.Primary: domain.ErrAuthDenied}
	signal.reasons = nil
	if _, err := client.Synthesize(context.Background(), SynthesisRequest{ImageSize: domain.Size2K}); err != nil {
		t.Fatalf("recovered call error: %v", err)
	}
	if len(signal.reasons) != 0 {
		t.Fatal("signal must not be raised when fallback succeeds")
	}
}

func TestSynthesizeWithoutGeneratorIsUnavailable(t *testing.T) {
	c := NewSynthesisClient(nil, Models{}, nil, nil)
	if _, err := c.Synthesize(context.Background(), SynthesisRequest{Prompt: "x"}); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want provider unavailable", err)
	}
}
