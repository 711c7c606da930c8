package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/genai"
)

// ContentGenerator is the slice of *genai.Client sessions need.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, req genai.GenerateContentRequest) (genai.GenerateContentResponse, error)
}

// Models names the two chat tiers.
type Models struct {
	Primary  string
	Fallback string
}

var DefaultModels = Models{
	Primary:  "gemini-3-pro-preview",
	Fallback: "gemini-2.5-flash",
}

type Provider struct {
	client ContentGenerator
	models Models
	logger *infra.Logger
}

func NewProvider(client ContentGenerator, models Models, logger *infra.Logger) *Provider {
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
	return &Provider{client: client, models: models, logger: logger}
}

// Model returns the model identifier serving tier.
func (p *Provider) Model(tier domain.Tier) string {
	if tier == domain.TierPrimary {
		return p.models.Primary
	}
	return p.models.Fallback
}

func (p *Provider) Open(ctx context.Context, cfg SessionConfig) (Session, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("chat: provider not configured: %w", domain.ErrProviderUnavailable)
	}
	if cfg.Tier == "" {
		cfg.Tier = domain.TierFallback
	}
	s := &session{
		client:    p.client,
		model:     p.Model(cfg.Tier),
		cfg:       cfg,
		generated: map[string]bool{},
		logger:    p.logger,
	}
	if len(cfg.Tools) > 0 {
		s.tools = []genai.Tool{{FunctionDeclarations: cfg.Tools}}
	}
	return s, nil
}

type session struct {
	mu        sync.Mutex
	client    ContentGenerator
	model     string
	cfg       SessionConfig
	tools     []genai.Tool
	history   []genai.Content
	generated map[string]bool
	logger    *infra.Logger
}

func (s *session) Tier() domain.Tier { return s.cfg.Tier }

func (s *session) Send(ctx context.Context, msg Message) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, err := s.userTurn(msg)
	if err != nil {
		return Reply{}, err
	}
	contents := append(append([]genai.Content(nil), s.history...), turn)
	req := genai.GenerateContentRequest{
		Contents: contents,
		Tools:    s.tools,
		GenerationConfig: &genai.GenerationConfig{
			Temperature:    genai.Float(s.cfg.Temperature),
			ThinkingConfig: &genai.ThinkingConfig{IncludeThoughts: true},
		},
	}
	if sys := strings.TrimSpace(s.cfg.SystemInstruction); sys != "" {
		req.SystemInstruction = &genai.Content{Parts: []genai.Part{{Text: sys}}}
	}

	resp, err := s.client.GenerateContent(ctx, s.model, req)
	if err != nil {
		return Reply{}, fmt.Errorf("chat: %s: %w", s.model, err)
	}
	parts := resp.Parts()
	s.history = append(contents, genai.Content{Role: "model", Parts: parts})
	return s.reply(parts), nil
}

func (s *session) userTurn(msg Message) (genai.Content, error) {
	var parts []genai.Part
	for _, res := range msg.Results {
		key := "result"
		if res.IsError {
			key = "error"
		}
		fr := &genai.FunctionResponse{Name: res.Name, Response: map[string]any{key: res.Output}}
		if !s.generated[res.ID] {
			fr.ID = res.ID
		}
		parts = append(parts, genai.Part{FunctionResponse: fr})
	}
	if msg.Image != nil && !msg.Image.Empty() {
		parts = append(parts, genai.InlinePart(*msg.Image))
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		parts = append(parts, genai.Part{Text: text})
	}
	if len(parts) == 0 {
		return genai.Content{}, domain.Invalid("alert.enter_prompt", "message is empty")
	}
	return genai.Content{Role: "user", Parts: parts}, nil
}

func (s *session) reply(parts []genai.Part) Reply {
	var text, reasoning strings.Builder
	var calls []FunctionCall
	for _, part := range parts {
		switch {
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
				s.generated[id] = true
			}
			calls = append(calls, FunctionCall{ID: id, Name: part.FunctionCall.Name, Args: part.FunctionCall.Args})
		case part.Thought:
			reasoning.WriteString(part.Text)
		default:
			text.WriteString(part.Text)
		}
	}
	s.logger.Debug().
		Str("model", s.model).
		Int("calls", len(calls)).
		Msg("chat: reply received")
	return Reply{
		Text:      strings.TrimSpace(text.String()),
		Reasoning: strings.TrimSpace(reasoning.String()),
		Calls:     calls,
	}
}

var _ Opener = (*Provider)(nil)
