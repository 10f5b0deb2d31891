// Package route maps viewer locations to conversation identities.
// A conversation lives at /chat/<token>; the token is the storage identity.
package route

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotConversation is returned when a location does not name a conversation.
var ErrNotConversation = errors.New("not a conversation route")

var (
	tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	routePattern = regexp.MustCompile(`^/chat/[A-Za-z0-9_-]+`)
)

// IsConversationRoute reports whether path starts with a /chat/<token> segment pair.
func IsConversationRoute(path string) bool {
	return routePattern.MatchString(path)
}

// ConversationID extracts the token following the first "chat" segment.
func ConversationID(path string) (string, bool) {
	segs := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	for i, seg := range segs {
		if seg != "chat" {
			continue
		}
		if i+1 < len(segs) && ValidToken(segs[i+1]) {
			return segs[i+1], true
		}
		return "", false
	}
	return "", false
}

// ParseConversationID is ConversationID reporting ErrNotConversation when
// path does not name a conversation.
func ParseConversationID(path string) (string, error) {
	id, ok := ConversationID(path)
	if !ok {
		return "", ErrNotConversation
	}
	return id, nil
}

// ValidToken reports whether s can be used as a conversation token.
func ValidToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// Path builds the route for token.
func Path(token string) string {
	return "/chat/" + token
}

// Sanitize turns an arbitrary name (typically a file stem) into a token by
// replacing disallowed characters with '-'.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
