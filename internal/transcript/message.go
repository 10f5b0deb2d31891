// Package transcript reads AI assistant session logs into ordered messages.
package transcript

import "strings"

// Format identifies a session log dialect.
type Format string

const (
	FormatAuto    Format = ""
	FormatClaude  Format = "claude"
	FormatCodex   Format = "codex"
	FormatGeneric Format = "generic"
)

// Role values used by Message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one rendered turn of a conversation.
type Message struct {
	Role      string
	Text      string
	ToolCalls []string // short summaries like "Read: main.go"
	Index     int
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// Body returns the text followed by one line per tool call.
func (m Message) Body() string {
	if len(m.ToolCalls) == 0 {
		return m.Text
	}
	var b strings.Builder
	b.WriteString(m.Text)
	for _, tc := range m.ToolCalls {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("⚙ ")
		b.WriteString(tc)
	}
	return b.String()
}
