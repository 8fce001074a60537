package store

import (
	"context"
	"errors"
	"time"
)

// Message represents an archived chat message. A message is immutable once
// written except for Reactions, which only ToggleReaction may mutate.
type Message struct {
	ID        int64
	Nickname  string
	Content   string
	CreatedAt time.Time
	Reactions map[string][]string
	Mentions  []string
}

// ErrMessageNotFound is returned when a reaction targets a message id that
// does not exist.
var ErrMessageNotFound = errors.New("message not found")

const (
	// DefaultMessageLimit is used when no limit is supplied.
	DefaultMessageLimit = 50
	// MaxMessageLimit bounds the recent-messages window.
	MaxMessageLimit = 100
)

// ClampLimit normalizes a requested window size into [1, MaxMessageLimit],
// substituting the default for non-positive values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		return MaxMessageLimit
	}
	return limit
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage inserts a message and returns the assigned id and timestamp.
	SaveMessage(ctx context.Context, nickname, content string, mentions []string) (int64, time.Time, error)

	// RecentMessages returns up to limit most recent messages in
	// chronological (oldest first) order. Limit is clamped via ClampLimit.
	RecentMessages(ctx context.Context, limit int) ([]*Message, error)

	// RecentDuplicateExists reports whether the same nickname archived the
	// same content within the given window. Used by the optional
	// redelivery dedupe gate.
	RecentDuplicateExists(ctx context.Context, nickname, content string, window time.Duration) (bool, error)

	// ToggleReaction flips nickname's membership in the reactionType bucket
	// of the message, under a row lock. Returns ErrMessageNotFound if the
	// message does not exist.
	ToggleReaction(ctx context.Context, messageID int64, reactionType, nickname string) error

	// HealthCheck reports store liveness; it never returns an error.
	HealthCheck(ctx context.Context) bool

	// Close closes the underlying database connection.
	Close() error
}
