// Package validate holds the pure input validators shared by the HTTP
// handlers and the pub/sub dispatcher. All functions are side-effect-free
// and deterministic.
package validate

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	MinNicknameLength = 2
	MaxNicknameLength = 10
	MaxMessageLength  = 1000
)

// Error describes a rejected input field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) *Error {
	return &Error{Field: field, Message: msg}
}

// Nickname returns the trimmed nickname, or an error unless the trimmed
// value is 2-10 characters drawn from ASCII letters, digits, Korean
// syllables, '_' and '-'.
func Nickname(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	n := len([]rune(trimmed))
	if n < MinNicknameLength {
		return "", invalid("nickname", "must be at least 2 characters")
	}
	if n > MaxNicknameLength {
		return "", invalid("nickname", "must be at most 10 characters")
	}
	for _, r := range trimmed {
		if !nicknameRune(r) {
			return "", invalid("nickname", "only letters, digits, Korean, '_' and '-' are allowed")
		}
	}
	return trimmed, nil
}

func nicknameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	}
	return false
}

// MessageContent returns the trimmed content, or an error unless the
// trimmed value is 1-1000 characters.
func MessageContent(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", invalid("content", "must not be empty")
	}
	if len([]rune(trimmed)) > MaxMessageLength {
		return "", invalid("content", "must be at most 1000 characters")
	}
	return trimmed, nil
}

// Mentions decodes an optional raw mentions value. Absent or null is valid
// and yields an empty slice; anything but an array of strings is rejected.
func Mentions(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}
	var mentions []string
	if err := json.Unmarshal(raw, &mentions); err != nil {
		return nil, invalid("mentions", "must be an array of strings")
	}
	if mentions == nil {
		mentions = []string{}
	}
	return mentions, nil
}

// Reaction is a normalized reaction payload.
type Reaction struct {
	MessageID    int64
	ReactionType string
	Nickname     string
}

// ReactionPayload normalizes a decoded reaction payload. The message id may
// arrive as a JSON number or a numeric string; the reaction type must be a
// non-empty string and the nickname must pass Nickname.
func ReactionPayload(messageID any, reactionType, nickname string) (Reaction, error) {
	id, ok := coerceMessageID(messageID)
	if !ok {
		return Reaction{}, invalid("messageId", "must be an integer")
	}

	rt := strings.TrimSpace(reactionType)
	if rt == "" {
		return Reaction{}, invalid("reactionType", "must be a non-empty string")
	}

	nick, err := Nickname(nickname)
	if err != nil {
		return Reaction{}, err
	}

	return Reaction{MessageID: id, ReactionType: rt, Nickname: nick}, nil
}

func coerceMessageID(v any) (int64, bool) {
	switch id := v.(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	case float64:
		if id != float64(int64(id)) {
			return 0, false
		}
		return int64(id), true
	case json.Number:
		n, err := id.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		return n, err == nil
	}
	return 0, false
}
