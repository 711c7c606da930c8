package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini generateContent endpoint. Without an
// API key image generation renders deterministic synthetic assets so local
// runs and tests exercise the full pipeline; chat calls report ErrAuthDenied.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageRequest is one image generation call.
type ImageRequest struct {
	Model       string
	Prompt      string
	References  []domain.ImageRef
	AspectRatio string
	// ImageSize is forwarded only when non-empty.
	ImageSize string
}

// ImageAsset is the normalized representation returned by the Gemini client.
type ImageAsset struct {
	Format    string
	Width     int
	Height    int
	Data      []byte
	Synthetic bool
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; one bounded by Options.Timeout is created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Synthetic reports whether the client runs without credentials.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

// GenerateImage produces exactly one image. Remote failures are returned as
// *APIError so callers can classify them; there is no synthetic fallback once
// a key is configured.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return ImageAsset{}, err
	}
	if req.Model == "" {
		return ImageAsset{}, errors.New("genai: model is required")
	}
	if c.Synthetic() {
		return c.syntheticImage(req), nil
	}

	parts := make([]Part, 0, len(req.References)+1)
	for _, ref := range req.References {
		if ref.Empty() {
			continue
		}
		parts = append(parts, InlinePart(ref))
	}
	parts = append(parts, Part{Text: req.Prompt})

	cfg := &GenerationConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig:        &ImageConfig{AspectRatio: strings.TrimSpace(req.AspectRatio), ImageSize: req.ImageSize},
	}
	resp, err := c.GenerateContent(ctx, req.Model, GenerateContentRequest{
		Contents:         []Content{{Role: "user", Parts: parts}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return ImageAsset{}, err
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return ImageAsset{}, fmt.Errorf("genai: decode inline data: %w", err)
			}
			w, h := decodeImageDimensions(data)
			c.logger.Debug().
				Str("model", req.Model).
				Int("bytes", len(data)).
				Msg("genai: generated remote image")
			return ImageAsset{
				Format: firstNonEmpty(part.InlineData.MimeType, "image/png"),
				Width:  w,
				Height: h,
				Data:   data,
			}, nil
		}
	}
	return ImageAsset{}, &APIError{Status: http.StatusOK, Code: "NO_IMAGE", Message: "response contained no image data"}
}

// GenerateContent performs one generateContent call against model.
func (c *Client) GenerateContent(ctx context.Context, model string, req GenerateContentRequest) (GenerateContentResponse, error) {
	var out GenerateContentResponse
	if c.Synthetic() {
		return out, &APIError{Status: http.StatusForbidden, Code: "PERMISSION_DENIED", Message: "no API key configured"}
	}
	endpoint, err := url.JoinPath(c.baseURL, "models", model+":generateContent")
	if err != nil {
		return out, fmt.Errorf("genai: endpoint for %q: %w", model, err)
	}
	started := time.Now()
	err = c.post(ctx, endpoint, req, &out)
	c.logger.Debug().
		Str("model", model).
		Dur("elapsed", time.Since(started)).
		Bool("ok", err == nil).
		Msg("genai: generateContent")
	return out, err
}

// post sends payload as JSON and decodes a 2xx body into out. Non-2xx
// responses become *APIError; transport failures are NETWORK errors unless
// the caller's context ended first.
func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("genai: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("genai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{Code: "NETWORK", Message: err.Error(), cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return parseAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("genai: decode response: %w", err)
	}
	return nil
}

// parseAPIError reads Google's {"error":{code,message,status}} envelope and
// falls back to the raw body.
func parseAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
