package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Dicklesworthstone/chatrail/internal/util"
)

const maxLineSize = 10 * 1024 * 1024

// Decoder turns session log lines into messages. It keeps the state needed to
// merge consecutive assistant entries, so a file can be fed incrementally.
type Decoder struct {
	format   Format
	messages []Message
}

// NewDecoder creates a decoder. FormatAuto detects the dialect from the first
// line that parses.
func NewDecoder(f Format) *Decoder {
	return &Decoder{format: f}
}

// Format returns the dialect in use, which may still be FormatAuto.
func (d *Decoder) Format() Format { return d.format }

// Messages returns the messages decoded so far.
func (d *Decoder) Messages() []Message { return d.messages }

// Feed decodes one line. It returns the index of the first message that was
// added or changed, or -1 when the line produced nothing.
func (d *Decoder) Feed(line []byte) int {
	line = []byte(strings.TrimSpace(string(line)))
	if len(line) == 0 {
		return -1
	}
	if d.format == FormatAuto {
		d.format = DetectFormat(line)
		if d.format == FormatAuto {
			return -1
		}
	}
	var role, text string
	var tools []string
	switch d.format {
	case FormatClaude:
		role, text, tools = claudeEntry(line)
	case FormatCodex:
		role, text = codexEntry(line)
	default:
		role, text = genericEntry(line)
	}
	if role == "" || (text == "" && len(tools) == 0) {
		return -1
	}
	return d.add(role, text, tools)
}

func (d *Decoder) add(role, text string, tools []string) int {
	if role == RoleAssistant && len(d.messages) > 0 && d.messages[len(d.messages)-1].Role == RoleAssistant {
		prev := &d.messages[len(d.messages)-1]
		if text != "" {
			if prev.Text != "" {
				prev.Text += "\n" + text
			} else {
				prev.Text = text
			}
		}
		prev.ToolCalls = append(prev.ToolCalls, tools...)
		return prev.Index
	}
	idx := len(d.messages)
	d.messages = append(d.messages, Message{Role: role, Text: text, ToolCalls: tools, Index: idx})
	return idx
}

// DetectFormat guesses the dialect of a single log line.
func DetectFormat(line []byte) Format {
	var probe struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
		Message json.RawMessage `json:"message"`
		Role    string          `json:"role"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return FormatAuto
	}
	switch {
	case len(probe.Payload) > 0 || probe.Type == "session_meta" || probe.Type == "response_item":
		return FormatCodex
	case len(probe.Message) > 0 || probe.Type == "summary":
		return FormatClaude
	case probe.Role != "":
		return FormatGeneric
	}
	return FormatAuto
}

// Parse reads a whole log. A read failure part-way keeps what was decoded and
// returns the error alongside it.
func Parse(r io.Reader, f Format) ([]Message, error) {
	d := NewDecoder(f)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256*1024), maxLineSize)
	for sc.Scan() {
		d.Feed(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return d.Messages(), fmt.Errorf("parse stopped at an oversized line: %w", err)
		}
		return d.Messages(), fmt.Errorf("read transcript: %w", err)
	}
	return d.Messages(), nil
}

// ParseFile opens path and parses it.
func ParseFile(path string, f Format) ([]Message, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close()
	return Parse(file, f)
}

func claudeEntry(line []byte) (string, string, []string) {
	var entry struct {
		Type    string `json:"type"`
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(line, &entry); err != nil {
		return "", "", nil
	}
	switch entry.Type {
	case RoleUser:
		text, toolResult := claudeUserContent(entry.Message.Content)
		if toolResult {
			return "", "", nil
		}
		return RoleUser, text, nil
	case RoleAssistant:
		text, tools := claudeAssistantContent(entry.Message.Content)
		return RoleAssistant, text, tools
	}
	return "", "", nil
}

// claudeUserContent returns the text and whether the entry only carried tool results.
func claudeUserContent(raw json.RawMessage) (string, bool) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if isSystemContent(str) {
			return "", false
		}
		return str, false
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", false
	}
	toolResult := false
	var texts []string
	for _, b := range blocks {
		if b.Type == "tool_result" {
			toolResult = true
		}
		if b.Type == "text" && b.Text != "" && !isSystemContent(b.Text) {
			texts = append(texts, b.Text)
		}
	}
	if len(texts) > 0 {
		return strings.Join(texts, "\n"), false
	}
	return "", toolResult
}

func claudeAssistantContent(raw json.RawMessage) (string, []string) {
	var blocks []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", nil
	}
	var texts, tools []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				texts = append(texts, b.Text)
			}
		case "tool_use":
			tools = append(tools, summarizeTool(b.Name, b.Input))
		}
	}
	return strings.Join(texts, "\n"), tools
}

func codexEntry(line []byte) (string, string) {
	var entry struct {
		Type    string `json:"type"`
		Payload struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(line, &entry); err != nil {
		return "", ""
	}
	if entry.Type != "response_item" || entry.Payload.Type != "message" {
		return "", ""
	}
	role := entry.Payload.Role
	if role != RoleUser && role != RoleAssistant {
		return "", ""
	}
	var texts []string
	for _, c := range entry.Payload.Content {
		if c.Type != "input_text" && c.Type != "output_text" {
			continue
		}
		if c.Text == "" || (role == RoleUser && isCodexSystemMessage(c.Text)) {
			continue
		}
		texts = append(texts, c.Text)
	}
	return role, strings.Join(texts, "\n")
}

func genericEntry(line []byte) (string, string) {
	var entry struct {
		Role    string `json:"role"`
		Text    string `json:"text"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(line, &entry); err != nil {
		return "", ""
	}
	text := entry.Text
	if text == "" {
		text = entry.Content
	}
	switch strings.ToLower(entry.Role) {
	case "user", "human":
		return RoleUser, text
	case "assistant", "ai", "model":
		return RoleAssistant, text
	}
	return "", ""
}

func isSystemContent(text string) bool {
	return strings.HasPrefix(text, "<local-command-") ||
		strings.HasPrefix(text, "<command-name>") ||
		strings.Contains(text, "<system-reminder>") ||
		strings.HasPrefix(text, "<environment_context>")
}

func isCodexSystemMessage(text string) bool {
	return strings.Contains(text, "<environment_context>") ||
		strings.Contains(text, "AGENTS.md") ||
		strings.Contains(text, "<permissions")
}

func summarizeTool(name string, input json.RawMessage) string {
	var params map[string]any
	if err := json.Unmarshal(input, &params); err != nil {
		return name
	}
	key := map[string]string{
		"Read":      "file_path",
		"Write":     "file_path",
		"Edit":      "file_path",
		"Glob":      "pattern",
		"Grep":      "pattern",
		"Bash":      "command",
		"WebSearch": "query",
		"WebFetch":  "url",
		"Task":      "description",
	}[name]
	if key != "" {
		if v, ok := params[key].(string); ok {
			if key == "file_path" {
				return name + ": " + shortPath(v)
			}
			return name + ": " + oneLine(v, 60)
		}
	}
	return name
}

func shortPath(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) <= 3 {
		return p
	}
	return strings.Join(parts[len(parts)-3:], "/")
}

func oneLine(s string, n int) string {
	return util.Truncate(strings.ReplaceAll(s, "\n", " "), n)
}
