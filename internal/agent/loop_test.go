package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"studio/internal/domain"
	"studio/internal/providers/chat"
)

type scriptedSession struct {
	mu      sync.Mutex
	tier    domain.Tier
	replies []chat.Reply
	errs    []error
	sent    []chat.Message
	// block, when set, is waited on before every Send returns.
	block chan struct{}
}

func (s *scriptedSession) Tier() domain.Tier { return s.tier }

func (s *scriptedSession) Send(ctx context.Context, msg chat.Message) (chat.Reply, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.sent)
	s.sent = append(s.sent, msg)
	if i < len(s.errs) && s.errs[i] != nil {
		return chat.Reply{}, s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	if len(s.replies) > 0 {
		return s.replies[len(s.replies)-1], nil
	}
	return chat.Reply{Text: "ok"}, nil
}

func (s *scriptedSession) sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type recordingTools struct {
	mu    sync.Mutex
	calls []string
	fn    func(call chat.FunctionCall) (string, error)
}

func (r *recordingTools) Execute(ctx context.Context, call chat.FunctionCall) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call.Name)
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(call)
	}
	return "done " + call.Name, nil
}

func calls(names ...string) []chat.FunctionCall {
	out := make([]chat.FunctionCall, len(names))
	for i, n := range names {
		out[i] = chat.FunctionCall{ID: n + "-id", Name: n}
	}
	return out
}

func TestLoopRunsToolsInOrderAndReturnsResults(t *testing.T) {
	tools := &recordingTools{fn: func(call chat.FunctionCall) (string, error) {
		if call.Name == "b" {
			return "", errors.New("boom")
		}
		return "ok " + call.Name, nil
	}}
	session := &scriptedSession{replies: []chat.Reply{{Text: "all done"}}}
	log := NewTranscript()

	turn := NewLoop(tools, 0, nil).Run(context.Background(), session, chat.Reply{Calls: calls("a", "b", "c")}, &domain.CancelToken{}, log, "en")
	if turn.State != StateDone || turn.Loops != 1 {
		t.Fatalf("turn = %+v", turn)
	}
	if got := tools.calls; len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("tool order = %v", got)
	}
	results := session.sent[0].Results
	if len(results) != 3 || results[1].IsError == false || results[1].Output != "Error: boom" || results[2].Output != "ok c" {
		t.Fatalf("results = %+v", results)
	}

	msgs := log.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	states := msgs[0].ToolCalls
	if states[0].Status != domain.ToolSuccess || states[1].Status != domain.ToolError || states[2].Status != domain.ToolSuccess {
		t.Fatalf("states = %+v", states)
	}
	if msgs[1].Content != "all done" {
		t.Fatalf("final content = %q", msgs[1].Content)
	}
}

func TestLoopStopsAtMaxLoops(t *testing.T) {
	tools := &recordingTools{}
	forever := chat.Reply{Calls: calls(ToolInspectCanvas)}
	session := &scriptedSession{replies: []chat.Reply{forever}}

	turn := NewLoop(tools, MaxLoops, nil).Run(context.Background(), session, forever, &domain.CancelToken{}, NewTranscript(), "en")
	if turn.Loops != MaxLoops || !turn.LoopLimited || turn.State != StateDone {
		t.Fatalf("turn = %+v", turn)
	}
	if session.sends() != MaxLoops {
		t.Fatalf("sends = %d, want %d", session.sends(), MaxLoops)
	}
	if len(tools.calls) != MaxLoops {
		t.Fatalf("tool executions = %d, want %d", len(tools.calls), MaxLoops)
	}
}

func TestLoopCancelDuringToolsHaltsRemaining(t *testing.T) {
	token := &domain.CancelToken{}
	tools := &recordingTools{fn: func(call chat.FunctionCall) (string, error) {
		token.Cancel()
		return "ok", nil
	}}
	session := &scriptedSession{}
	log := NewTranscript()

	turn := NewLoop(tools, 0, nil).Run(context.Background(), session, chat.Reply{Calls: calls("a", "b")}, token, log, "en")
	if turn.State != StateAborted || !errors.Is(turn.Err, domain.ErrCancelled) {
		t.Fatalf("turn = %+v", turn)
	}
	if session.sends() != 0 {
		t.Fatalf("sent %d requests after cancellation", session.sends())
	}
	if len(tools.calls) != 1 {
		t.Fatalf("tool executions = %d, want 1", len(tools.calls))
	}
	msgs := log.Messages()
	states := msgs[0].ToolCalls
	if states[0].Status != domain.ToolSuccess || states[1].Status != domain.ToolError || states[1].Result != "halted before execution" {
		t.Fatalf("states = %+v", states)
	}
	last := msgs[len(msgs)-1]
	if last.Role != domain.RoleSystem || last.Content != "🛑 Production Halted." {
		t.Fatalf("last = %+v", last)
	}
}

func TestLoopSendFailureEndsTurnWithMessage(t *testing.T) {
	session := &scriptedSession{errs: []error{domain.ErrTransient}}
	log := NewTranscript()
	turn := NewLoop(&recordingTools{}, 0, nil).Run(context.Background(), session, chat.Reply{Calls: calls("a")}, &domain.CancelToken{}, log, "zh")
	if turn.State != StateFailed || !errors.Is(turn.Err, domain.ErrTransient) {
		t.Fatalf("turn = %+v", turn)
	}
	msgs := log.Messages()
	if got := msgs[len(msgs)-1].Content; got != "连接错误" {
		t.Fatalf("error message = %q", got)
	}
}

func TestSplitReasoning(t *testing.T) {
	text := "**Analysis (Director's Vision):**\nSoft knit needs warm light.\n\n**Production Plan:**\nA cafe window scene."
	visible, reasoning := SplitReasoning(text)
	if reasoning != "Soft knit needs warm light." {
		t.Fatalf("reasoning = %q", reasoning)
	}
	if visible != "**Production Plan:**\nA cafe window scene." {
		t.Fatalf("visible = %q", visible)
	}

	visible, reasoning = SplitReasoning("**Analysis**: quick take **Production Plan:** go")
	if reasoning != "quick take" || visible != "**Production Plan:** go" {
		t.Fatalf("inline split = %q / %q", visible, reasoning)
	}

	visible, reasoning = SplitReasoning("  just text  ")
	if visible != "just text" || reasoning != "" {
		t.Fatalf("unmarked = %q / %q", visible, reasoning)
	}
}

func TestSplitReplyPrefersAdapterReasoning(t *testing.T) {
	visible, reasoning := SplitReply(chat.Reply{Text: "**Analysis:** x", Reasoning: "thought"})
	if visible != "**Analysis:** x" || reasoning != "thought" {
		t.Fatalf("got %q / %q", visible, reasoning)
	}
}
