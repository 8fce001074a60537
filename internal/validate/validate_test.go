package validate

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNickname(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple ascii", input: "alice", want: "alice"},
		{name: "trims whitespace", input: "  alice  ", want: "alice"},
		{name: "digits and separators", input: "user_1-a", want: "user_1-a"},
		{name: "korean syllables", input: "홍길동", want: "홍길동"},
		{name: "mixed korean ascii", input: "김abc12", want: "김abc12"},
		{name: "min length", input: "ab", want: "ab"},
		{name: "max length", input: "abcdefghij", want: "abcdefghij"},
		{name: "too short", input: "a", wantErr: true},
		{name: "too short after trim", input: " a ", wantErr: true},
		{name: "too long", input: "abcdefghijk", wantErr: true},
		{name: "korean max length counts runes", input: "가나다라마바사아자차", want: "가나다라마바사아자차"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "space inside", input: "a b", wantErr: true},
		{name: "punctuation", input: "al!ce", wantErr: true},
		{name: "emoji", input: "ab😀", wantErr: true},
		{name: "korean jamo rejected", input: "ㄱㄴㄷ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Nickname(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Nickname(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Nickname(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Nickname(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMessageContent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: "hello", want: "hello"},
		{name: "trims", input: "  hello  ", want: "hello"},
		{name: "single char", input: "h", want: "h"},
		{name: "max length", input: strings.Repeat("a", 1000), want: strings.Repeat("a", 1000)},
		{name: "max length korean runes", input: strings.Repeat("가", 1000), want: strings.Repeat("가", 1000)},
		{name: "too long", input: strings.Repeat("a", 1001), wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "  \t ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MessageContent(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("MessageContent(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("MessageContent(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("MessageContent(%q) mismatch", tt.input)
			}
		})
	}
}

func TestMentions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "absent", raw: "", want: []string{}},
		{name: "null", raw: "null", want: []string{}},
		{name: "empty array", raw: "[]", want: []string{}},
		{name: "strings", raw: `["alice","bob"]`, want: []string{"alice", "bob"}},
		{name: "not an array", raw: `"alice"`, wantErr: true},
		{name: "mixed types", raw: `["alice", 1]`, wantErr: true},
		{name: "object", raw: `{"a":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Mentions(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Mentions(%s) = %v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Mentions(%s) unexpected error: %v", tt.raw, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Mentions(%s) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Mentions(%s)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReactionPayload(t *testing.T) {
	tests := []struct {
		name         string
		messageID    any
		reactionType string
		nickname     string
		wantID       int64
		wantType     string
		wantNick     string
		wantErr      bool
	}{
		{name: "float64 id", messageID: float64(42), reactionType: "like", nickname: "alice", wantID: 42, wantType: "like", wantNick: "alice"},
		{name: "string id", messageID: "42", reactionType: "like", nickname: "alice", wantID: 42, wantType: "like", wantNick: "alice"},
		{name: "json number id", messageID: json.Number("7"), reactionType: "heart", nickname: "bob_1", wantID: 7, wantType: "heart", wantNick: "bob_1"},
		{name: "trims reaction type", messageID: float64(1), reactionType: "  like  ", nickname: "alice", wantID: 1, wantType: "like", wantNick: "alice"},
		{name: "trims nickname", messageID: float64(1), reactionType: "like", nickname: " alice ", wantID: 1, wantType: "like", wantNick: "alice"},
		{name: "missing id", messageID: nil, reactionType: "like", nickname: "alice", wantErr: true},
		{name: "fractional id", messageID: 1.5, reactionType: "like", nickname: "alice", wantErr: true},
		{name: "non-numeric string id", messageID: "abc", reactionType: "like", nickname: "alice", wantErr: true},
		{name: "empty reaction type", messageID: float64(1), reactionType: "  ", nickname: "alice", wantErr: true},
		{name: "bad nickname", messageID: float64(1), reactionType: "like", nickname: "!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReactionPayload(tt.messageID, tt.reactionType, tt.nickname)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ReactionPayload(%v, %q, %q) = %+v, want error", tt.messageID, tt.reactionType, tt.nickname, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.MessageID != tt.wantID || got.ReactionType != tt.wantType || got.Nickname != tt.wantNick {
				t.Errorf("got %+v, want {%d %s %s}", got, tt.wantID, tt.wantType, tt.wantNick)
			}
		})
	}
}
