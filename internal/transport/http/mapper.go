package http

import (
	"time"

	"github.com/kmindev/chat-archiver/internal/store"
)

// MessageResponse represents an archived message in API responses.
type MessageResponse struct {
	ID        int64               `json:"id"`
	Nickname  string              `json:"nickname"`
	Content   string              `json:"content"`
	CreatedAt string              `json:"created_at"`
	Reactions map[string][]string `json:"reactions"`
	Mentions  []string            `json:"mentions"`
}

func toMessageResponse(msg *store.Message) MessageResponse {
	reactions := msg.Reactions
	if reactions == nil {
		reactions = map[string][]string{}
	}
	mentions := msg.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return MessageResponse{
		ID:        msg.ID,
		Nickname:  msg.Nickname,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		Reactions: reactions,
		Mentions:  mentions,
	}
}

func toMessageResponses(messages []*store.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, toMessageResponse(msg))
	}
	return out
}
