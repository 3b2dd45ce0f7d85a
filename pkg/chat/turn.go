// Package chat defines the conversation turn model shared by the session
// store, the inference client, and the request orchestrator.
package chat

import "strings"

// Roles a turn can carry. The system role is only ever injected transiently
// as the persona preamble; it is never stored in a session's history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single role-tagged message in a conversation history.
// Turns are immutable once appended to a session.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewTurn creates a turn with the given role and content.
func NewTurn(role, content string) Turn {
	return Turn{Role: role, Content: content}
}

// RenderTranscript renders a stored history as a human-readable transcript for
// the completion-shaped fallback tier, rewriting role tags as the given labels.
// Unknown roles fall back to the assistant label.
func RenderTranscript(history []Turn, userLabel, assistantLabel string) string {
	var b strings.Builder
	for _, turn := range history {
		label := assistantLabel
		if turn.Role == RoleUser {
			label = userLabel
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String()
}
