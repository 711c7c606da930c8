// Package chat adapts the Gemini content API to stateful, tier-bound
// conversation sessions with function calling.
package chat

import (
	"context"

	"studio/internal/domain"
	"studio/internal/providers/genai"
)

type (
	ToolDeclaration = genai.FunctionDeclaration
	Schema          = genai.Schema
)

// FunctionCall is one tool invocation requested by the model.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

// FunctionResult answers one FunctionCall in the next turn.
type FunctionResult struct {
	ID      string
	Name    string
	Output  string
	IsError bool
}

// Message is what the caller sends: user text with an optional image, or
// the results of the previous turn's calls.
type Message struct {
	Text    string
	Image   *domain.ImageRef
	Results []FunctionResult
}

// Reply separates visible text from reasoning. Reasoning is filled only
// when the provider labels thought parts.
type Reply struct {
	Text      string
	Reasoning string
	Calls     []FunctionCall
}

// SessionConfig is fixed for the lifetime of a session.
type SessionConfig struct {
	SystemInstruction string
	Tools             []ToolDeclaration
	Tier              domain.Tier
	Temperature       float64
}

// Session keeps its own history. A failed Send leaves the history as it was.
type Session interface {
	Send(ctx context.Context, msg Message) (Reply, error)
	Tier() domain.Tier
}

// Opener creates sessions bound to a tier.
type Opener interface {
	Open(ctx context.Context, cfg SessionConfig) (Session, error)
}
