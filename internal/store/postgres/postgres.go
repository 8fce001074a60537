package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kmindev/chat-archiver/internal/store"
)

// Store implements store.MessageStore against PostgreSQL.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id         SERIAL PRIMARY KEY,
    nickname   VARCHAR(10) NOT NULL,
    content    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    reactions  JSONB NOT NULL DEFAULT '{}',
    mentions   TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_nickname ON messages (nickname);
`

// New opens a connection pool, verifies it and ensures the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection without touching the schema.
// Useful for tests that prepare their own database.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMessage inserts a message row and returns the server-assigned id and timestamp.
func (s *Store) SaveMessage(ctx context.Context, nickname, content string, mentions []string) (int64, time.Time, error) {
	if mentions == nil {
		mentions = []string{}
	}

	query := `
		INSERT INTO messages (nickname, content, mentions)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	var (
		id        int64
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query, nickname, content, pq.Array(mentions)).Scan(&id, &createdAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("insert message: %w", err)
	}

	return id, createdAt, nil
}

// RecentMessages fetches the newest messages and returns them oldest first.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]*store.Message, error) {
	limit = store.ClampLimit(limit)

	query := `
		SELECT id, nickname, content, created_at, reactions, mentions
		FROM messages
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, limit)
	for rows.Next() {
		var (
			msg      store.Message
			raw      []byte
			mentions pq.StringArray
		)
		if err := rows.Scan(&msg.ID, &msg.Nickname, &msg.Content, &msg.CreatedAt, &raw, &mentions); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal(raw, &msg.Reactions); err != nil {
			return nil, fmt.Errorf("decode reactions for message %d: %w", msg.ID, err)
		}
		if msg.Reactions == nil {
			msg.Reactions = map[string][]string{}
		}
		msg.Mentions = []string(mentions)
		if msg.Mentions == nil {
			msg.Mentions = []string{}
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// query is newest-first; callers expect chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// RecentDuplicateExists reports whether the same nickname archived the same
// content within the window.
func (s *Store) RecentDuplicateExists(ctx context.Context, nickname, content string, window time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE nickname = $1 AND content = $2 AND created_at > NOW() - make_interval(secs => $3)
		)
	`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, nickname, content, window.Seconds()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return exists, nil
}

// ToggleReaction flips nickname's membership in the reactionType bucket of
// the message. The row lock serializes concurrent toggles on the same
// message; no partial update is ever visible outside the transaction.
func (s *Store) ToggleReaction(ctx context.Context, messageID int64, reactionType, nickname string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin toggle tx: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT reactions FROM messages WHERE id = $1 FOR UPDATE`, messageID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrMessageNotFound
		}
		return fmt.Errorf("lock message %d: %w", messageID, err)
	}

	var reactions map[string][]string
	if err := json.Unmarshal(raw, &reactions); err != nil {
		return fmt.Errorf("decode reactions for message %d: %w", messageID, err)
	}
	if reactions == nil {
		reactions = map[string][]string{}
	}

	toggleNickname(reactions, reactionType, nickname)

	updated, err := json.Marshal(reactions)
	if err != nil {
		return fmt.Errorf("encode reactions for message %d: %w", messageID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET reactions = $1 WHERE id = $2`, updated, messageID,
	); err != nil {
		return fmt.Errorf("update reactions for message %d: %w", messageID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit toggle for message %d: %w", messageID, err)
	}
	return nil
}

// HealthCheck issues a trivial round-trip query.
func (s *Store) HealthCheck(ctx context.Context) bool {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return false
	}
	return true
}
