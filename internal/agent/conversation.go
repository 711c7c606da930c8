// Package agent runs the conversational design assistant: a bounded
// model/tool loop over one pinned chat session per conversation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/i18n"
	"studio/internal/infra"
	"studio/internal/providers/chat"
)

// AuthSignal receives terminal credential failures.
type AuthSignal interface {
	Raise(reason string)
}

// Options configures a Conversation.
type Options struct {
	Opener      chat.Opener
	Store       domain.LayerStore
	Tools       ToolExecutor
	Signal      AuthSignal
	UsePrimary  bool
	MaxLoops    int
	Temperature float64
	Locale      string
	Logger      *infra.Logger
}

// Submission is one user message.
type Submission struct {
	Text  string
	Image *domain.ImageRef
}

// Conversation owns its session value. Once it falls back from the primary
// tier the session stays on the fallback tier until Reset.
type Conversation struct {
	id     string
	opts   Options
	loop   *Loop
	logger *infra.Logger

	mu      sync.Mutex
	session chat.Session
	primary bool
	last    Turn

	busy       atomic.Bool
	token      domain.CancelToken
	transcript *Transcript
	updatedAt  atomic.Int64
}

func NewConversation(id string, opts Options) *Conversation {
	if opts.Logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		opts.Logger = &l
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	logger := opts.Logger.With().Str("conversation_id", id).Logger()
	c := &Conversation{
		id:         id,
		opts:       opts,
		loop:       NewLoop(opts.Tools, opts.MaxLoops, &logger),
		logger:     &logger,
		primary:    opts.UsePrimary,
		last:       Turn{State: StateIdle},
		transcript: NewTranscript(),
	}
	c.touch()
	return c
}

func (c *Conversation) ID() string { return c.id }

// Submit runs one turn to completion.
func (c *Conversation) Submit(ctx context.Context, sub Submission) (Turn, error) {
	if err := c.acquire(sub); err != nil {
		return Turn{}, err
	}
	defer c.release()
	return c.run(ctx, sub), nil
}

// Start runs one turn in the background. Busy and validation errors are
// reported synchronously.
func (c *Conversation) Start(ctx context.Context, sub Submission) error {
	if err := c.acquire(sub); err != nil {
		return err
	}
	go func() {
		defer c.release()
		c.run(ctx, sub)
	}()
	return nil
}

// Cancel asks the running turn to stop at its next checkpoint.
func (c *Conversation) Cancel() {
	c.token.Cancel()
}

// Reset drops the session and transcript. The next turn opens a new session
// on the configured tier.
func (c *Conversation) Reset() error {
	if !c.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("agent: conversation %s: %w", c.id, domain.ErrBusy)
	}
	defer c.busy.Store(false)
	c.mu.Lock()
	c.session = nil
	c.primary = c.opts.UsePrimary
	c.last = Turn{State: StateIdle}
	c.mu.Unlock()
	c.transcript.Clear()
	c.touch()
	return nil
}

// Snapshot is a read-only view for API responses.
type Snapshot struct {
	ID       string                `json:"id"`
	Busy     bool                  `json:"busy"`
	Tier     domain.Tier           `json:"tier"`
	State    State                 `json:"state"`
	Loops    int                   `json:"loops"`
	Error    string                `json:"error,omitempty"`
	Messages []domain.AgentMessage `json:"messages"`
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	tier := domain.TierFallback
	if c.primary {
		tier = domain.TierPrimary
	}
	last := c.last
	c.mu.Unlock()
	snap := Snapshot{
		ID:       c.id,
		Busy:     c.busy.Load(),
		Tier:     tier,
		State:    last.State,
		Loops:    last.Loops,
		Messages: c.transcript.Messages(),
	}
	if last.Err != nil {
		snap.Error = last.Err.Error()
	}
	return snap
}

// Tier reports the tier the next session send will use.
func (c *Conversation) Tier() domain.Tier {
	return c.Snapshot().Tier
}

func (c *Conversation) acquire(sub Submission) error {
	if strings.TrimSpace(sub.Text) == "" && (sub.Image == nil || sub.Image.Empty()) {
		return domain.Invalid("alert.enter_prompt", "message is empty")
	}
	if !c.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("agent: conversation %s: %w", c.id, domain.ErrBusy)
	}
	c.token.Reset()
	return nil
}

func (c *Conversation) release() {
	c.touch()
	c.busy.Store(false)
}

func (c *Conversation) run(ctx context.Context, sub Submission) Turn {
	c.transcript.Append(domain.AgentMessage{Role: domain.RoleUser, Content: sub.Text, Image: sub.Image})
	c.setLast(Turn{State: StateAwaitingModel})

	reply, err := c.firstSend(ctx, chat.Message{Text: sub.Text, Image: sub.Image})
	var turn Turn
	switch {
	case err != nil:
		c.logger.Error().Err(err).Msg("agent: turn failed")
		c.transcript.Append(domain.AgentMessage{Role: domain.RoleModel, Content: ErrorMessage(err, c.opts.Locale)})
		turn = Turn{State: StateFailed, Err: err}
	case c.token.Cancelled():
		turn = c.loop.halt(Turn{}, c.transcript, c.opts.Locale)
	default:
		turn = c.loop.Run(ctx, c.currentSession(), reply, &c.token, c.transcript, c.opts.Locale)
	}

	if turn.Err != nil && errors.Is(turn.Err, domain.ErrAuthDenied) && c.opts.Signal != nil {
		c.opts.Signal.Raise(turn.Err.Error())
	}
	c.setLast(turn)
	c.logger.Info().
		Str("state", string(turn.State)).
		Int("loops", turn.Loops).
		Msg("agent: turn finished")
	return turn
}

// firstSend opens the session lazily and applies the one-time fallback: an
// auth, not-found or unavailable error on a primary session replaces it with
// a fresh fallback session that is kept from then on.
func (c *Conversation) firstSend(ctx context.Context, msg chat.Message) (chat.Reply, error) {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return chat.Reply{}, err
	}
	reply, err := session.Send(ctx, msg)
	if err == nil || session.Tier() != domain.TierPrimary || !domain.IsTierFallback(err) || ctx.Err() != nil {
		return reply, err
	}

	c.logger.Warn().Err(err).Msg("agent: primary session failed; pinning conversation to fallback tier")
	c.mu.Lock()
	c.primary = false
	c.session = nil
	c.mu.Unlock()
	fallback, openErr := c.ensureSession(ctx)
	if openErr != nil {
		return chat.Reply{}, errors.Join(err, openErr)
	}
	return fallback.Send(ctx, msg)
}

func (c *Conversation) ensureSession(ctx context.Context) (chat.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}
	if c.opts.Opener == nil {
		return nil, fmt.Errorf("agent: no chat provider: %w", domain.ErrProviderUnavailable)
	}
	tier := domain.TierFallback
	if c.primary {
		tier = domain.TierPrimary
	}
	instruction := directorInstruction
	if c.opts.Store != nil {
		layers, err := c.opts.Store.Layers(ctx)
		if err != nil {
			return nil, err
		}
		instruction = SystemInstruction(c.opts.Store.CanvasSize(), layers)
	}
	session, err := c.opts.Opener.Open(ctx, chat.SessionConfig{
		SystemInstruction: instruction,
		Tools:             Declarations(),
		Tier:              tier,
		Temperature:       c.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}
	c.session = session
	return session, nil
}

func (c *Conversation) currentSession() chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Conversation) setLast(t Turn) {
	c.mu.Lock()
	c.last = t
	c.mu.Unlock()
}

func (c *Conversation) touch() {
	c.updatedAt.Store(time.Now().UnixNano())
}

// ErrorMessage is the localized chat line for a failed turn.
func ErrorMessage(err error, locale string) string {
	if errors.Is(err, domain.ErrAuthDenied) {
		return i18n.T(locale, "agent.auth_error")
	}
	return i18n.T(locale, "agent.connection_error")
}
