package domain

import (
	"sync/atomic"
	"time"
)

// Role identifies the author of an agent transcript entry.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// ToolStatus is the lifecycle of one tool call.
type ToolStatus string

const (
	ToolPending ToolStatus = "pending"
	ToolSuccess ToolStatus = "success"
	ToolError   ToolStatus = "error"
)

// ToolCallState tracks one model-requested tool invocation.
type ToolCallState struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Status ToolStatus     `json:"status"`
	Result string         `json:"result,omitempty"`
}

// AgentMessage is one entry of a conversation transcript.
type AgentMessage struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content,omitempty"`
	Reasoning string          `json:"reasoning,omitempty"`
	Image     *ImageRef       `json:"image,omitempty"`
	ToolCalls []ToolCallState `json:"tool_calls,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CancelToken is a cooperative stop flag owned by one job or conversation.
// It is polled at chunk and loop boundaries and never interrupts in-flight
// provider calls.
type CancelToken struct {
	flag atomic.Bool
}

// Cancel requests a stop.
func (t *CancelToken) Cancel() {
	if t != nil {
		t.flag.Store(true)
	}
}

// Cancelled reports whether a stop was requested.
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.flag.Load()
}

// Reset clears the flag at the start of a new job or submission.
func (t *CancelToken) Reset() {
	if t != nil {
		t.flag.Store(false)
	}
}
