package agent

import (
	"regexp"
	"strings"

	"studio/internal/providers/chat"
)

// analysisHeader matches "**Analysis (…):**" and "**Analysis…**:".
var analysisHeader = regexp.MustCompile(`(?i)\*\*Analysis[^\n]*?(?::\*\*|\*\*:)[ \t]*`)

// SplitReply separates reasoning from visible text. Adapter-labelled thought
// parts win; otherwise the marker heuristic is tried on the visible text.
func SplitReply(reply chat.Reply) (visible, reasoning string) {
	if reply.Reasoning != "" {
		return reply.Text, reply.Reasoning
	}
	return SplitReasoning(reply.Text)
}

// SplitReasoning extracts the analysis block the system instruction asks
// the model to open with. The block ends at the production plan heading or
// the first blank line. Text without the marker is returned unchanged.
func SplitReasoning(text string) (visible, reasoning string) {
	loc := analysisHeader.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), ""
	}
	rest := text[loc[1]:]
	body := strings.TrimLeft(rest, " \t\r\n")
	end := len(body)
	if i := strings.Index(strings.ToLower(body), "**production plan"); i >= 0 {
		end = i
	}
	if i := strings.Index(body, "\n\n"); i >= 0 && i < end {
		end = i
	}
	reasoning = strings.TrimSpace(body[:end])
	visible = strings.TrimSpace(text[:loc[0]] + body[end:])
	return visible, reasoning
}
