package agent

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// Transcript is the ordered message log of one conversation.
type Transcript struct {
	mu       sync.RWMutex
	messages []domain.AgentMessage
	now      func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Append stores msg, assigning an id and timestamp when missing.
func (t *Transcript) Append(msg domain.AgentMessage) domain.AgentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = t.now().UTC()
	}
	t.messages = append(t.messages, msg)
	return msg
}

// UpdateTool applies fn to one tool call of one message.
func (t *Transcript) UpdateTool(msgID, callID string, fn func(*domain.ToolCallState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if t.messages[i].ID != msgID {
			continue
		}
		for j := range t.messages[i].ToolCalls {
			if t.messages[i].ToolCalls[j].ID == callID {
				fn(&t.messages[i].ToolCalls[j])
				return
			}
		}
	}
}

// Messages returns a deep enough copy for readers: tool call slices are not
// shared with the live log.
func (t *Transcript) Messages() []domain.AgentMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := slices.Clone(t.messages)
	for i := range out {
		out[i].ToolCalls = slices.Clone(out[i].ToolCalls)
	}
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}
