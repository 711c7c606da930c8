package agent

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/i18n"
	"studio/internal/infra"
	"studio/internal/providers/chat"
)

// MaxLoops bounds tool round trips per user submission.
const MaxLoops = 8

// State is the agent loop position.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingModel  State = "awaiting_model"
	StateExecutingTools State = "executing_tools"
	StateDone           State = "done"
	StateAborted        State = "aborted"
	StateFailed         State = "failed"
)

// ToolExecutor runs one tool call; satisfied by *Dispatcher.
type ToolExecutor interface {
	Execute(ctx context.Context, call chat.FunctionCall) (string, error)
}

// Turn summarizes one submission.
type Turn struct {
	State State
	// Loops counts tool round trips sent back to the model.
	Loops int
	// LoopLimited is set when the model still requested tools at MaxLoops.
	LoopLimited bool
	Err         error
}

// Loop drives model replies and tool execution until the model stops
// calling tools, the loop bound is hit or the token is cancelled.
type Loop struct {
	tools    ToolExecutor
	maxLoops int
	logger   *infra.Logger
}

func NewLoop(tools ToolExecutor, maxLoops int, logger *infra.Logger) *Loop {
	if maxLoops <= 0 {
		maxLoops = MaxLoops
	}
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Loop{tools: tools, maxLoops: maxLoops, logger: logger}
}

// Run continues a turn from the model's first reply. Tool calls execute in
// declaration order; results go back in a single message.
func (l *Loop) Run(ctx context.Context, session chat.Session, reply chat.Reply, token *domain.CancelToken, log *Transcript, locale string) Turn {
	var turn Turn
	for turn.Loops < l.maxLoops {
		if token.Cancelled() {
			return l.halt(turn, log, locale)
		}
		l.record(reply, log)
		if len(reply.Calls) == 0 {
			turn.State = StateDone
			return turn
		}

		results, halted := l.execute(ctx, reply.Calls, token, log, locale)
		if halted || token.Cancelled() {
			return l.halt(turn, log, locale)
		}

		next, err := session.Send(ctx, chat.Message{Results: results})
		if err != nil {
			l.logger.Error().Err(err).Int("loop", turn.Loops).Msg("agent: send tool results")
			log.Append(domain.AgentMessage{Role: domain.RoleModel, Content: ErrorMessage(err, locale)})
			turn.State = StateFailed
			turn.Err = err
			return turn
		}
		reply = next
		turn.Loops++
	}

	if token.Cancelled() {
		return l.halt(turn, log, locale)
	}
	l.record(reply, log)
	turn.State = StateDone
	turn.LoopLimited = len(reply.Calls) > 0
	if turn.LoopLimited {
		l.logger.Warn().Int("loops", turn.Loops).Msg("agent: loop limit reached with pending tool calls")
	}
	return turn
}

func (l *Loop) record(reply chat.Reply, log *Transcript) {
	visible, reasoning := SplitReply(reply)
	if visible == "" && reasoning == "" {
		return
	}
	log.Append(domain.AgentMessage{Role: domain.RoleModel, Content: visible, Reasoning: reasoning})
}

func (l *Loop) execute(ctx context.Context, calls []chat.FunctionCall, token *domain.CancelToken, log *Transcript, locale string) ([]chat.FunctionResult, bool) {
	states := make([]domain.ToolCallState, len(calls))
	for i, call := range calls {
		states[i] = domain.ToolCallState{ID: call.ID, Name: call.Name, Args: call.Args, Status: domain.ToolPending}
	}
	msg := log.Append(domain.AgentMessage{Role: domain.RoleModel, ToolCalls: states})

	results := make([]chat.FunctionResult, 0, len(calls))
	for i, call := range calls {
		if token.Cancelled() {
			for _, rest := range calls[i:] {
				log.UpdateTool(msg.ID, rest.ID, func(s *domain.ToolCallState) {
					s.Status = domain.ToolError
					s.Result = i18n.T(locale, "agent.tool_halted")
				})
			}
			return results, true
		}

		out, err := l.safeExecute(ctx, call)
		res := chat.FunctionResult{ID: call.ID, Name: call.Name, Output: out}
		status := domain.ToolSuccess
		if err != nil {
			res.Output = "Error: " + err.Error()
			res.IsError = true
			status = domain.ToolError
			l.logger.Warn().Err(err).Str("tool", call.Name).Msg("agent: tool failed")
		}
		log.UpdateTool(msg.ID, call.ID, func(s *domain.ToolCallState) {
			s.Status = status
			s.Result = res.Output
		})
		results = append(results, res)
	}
	return results, false
}

func (l *Loop) safeExecute(ctx context.Context, call chat.FunctionCall) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent: tool %s panicked: %v", call.Name, r)
		}
	}()
	return l.tools.Execute(ctx, call)
}

func (l *Loop) halt(turn Turn, log *Transcript, locale string) Turn {
	log.Append(domain.AgentMessage{Role: domain.RoleSystem, Content: i18n.T(locale, "agent.halted")})
	turn.State = StateAborted
	turn.Err = domain.ErrCancelled
	return turn
}
