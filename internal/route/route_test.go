package route

import (
	"errors"
	"testing"
)

func TestConversationID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"/chat/abc-123_X", "abc-123_X", true},
		{"/chat/abc/extra", "abc", true},
		{"/org/chat/xyz", "xyz", true},
		{"/chat/", "", false},
		{"/chat/bad.token", "", false},
		{"/settings", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ConversationID(tt.path)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ConversationID(%q) = %q,%v want %q,%v", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsConversationRoute(t *testing.T) {
	t.Parallel()
	if !IsConversationRoute("/chat/a1") {
		t.Error("expected /chat/a1 to be a conversation route")
	}
	if IsConversationRoute("/org/chat/a1") {
		t.Error("route pattern is anchored at the root")
	}
	if IsConversationRoute("/chat/") {
		t.Error("empty token must not match")
	}
}

func TestParseConversationID(t *testing.T) {
	t.Parallel()
	if _, err := ParseConversationID("/nope"); !errors.Is(err, ErrNotConversation) {
		t.Fatalf("expected ErrNotConversation, got %v", err)
	}
	id, err := ParseConversationID(Path("tok"))
	if err != nil || id != "tok" {
		t.Fatalf("round trip failed: %q %v", id, err)
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	if got := Sanitize("2024-01-01 session.v2"); got != "2024-01-01-session-v2" {
		t.Errorf("Sanitize = %q", got)
	}
	if !ValidToken(Sanitize("ünïcode name")) {
		t.Error("sanitized token should be valid")
	}
}
