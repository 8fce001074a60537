// Package registry tracks the set of currently-present nicknames in a
// shared Redis set.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNicknameTaken is returned by Join when the nickname is already active.
var ErrNicknameTaken = errors.New("nickname already in use")

// Conn is the subset of redis.Client commands the registry needs.
type Conn interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SCard(ctx context.Context, key string) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Registry manages active nicknames under a single well-known set key.
type Registry struct {
	conn Conn
	key  string
	log  *zerolog.Logger
}

// New creates a registry over the given connection and set key.
func New(conn Conn, key string, logger *zerolog.Logger) *Registry {
	return &Registry{conn: conn, key: key, log: logger}
}

// Join atomically adds the nickname to the active set and returns the new
// cardinality. SADD reports whether the member was newly added, so two
// concurrent joins of the same nickname cannot both succeed.
func (r *Registry) Join(ctx context.Context, nickname string) (int64, error) {
	added, err := r.conn.SAdd(ctx, r.key, nickname).Result()
	if err != nil {
		return 0, fmt.Errorf("add active nickname: %w", err)
	}
	if added == 0 {
		return 0, ErrNicknameTaken
	}

	count, err := r.conn.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count active nicknames: %w", err)
	}

	r.log.Info().Str("nickname", nickname).Int64("active_users", count).Msg("user joined")
	return count, nil
}

// Leave removes the nickname if present and returns the new cardinality.
// Removing an absent nickname is not an error.
func (r *Registry) Leave(ctx context.Context, nickname string) (int64, error) {
	removed, err := r.conn.SRem(ctx, r.key, nickname).Result()
	if err != nil {
		return 0, fmt.Errorf("remove active nickname: %w", err)
	}

	count, err := r.conn.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count active nicknames: %w", err)
	}

	if removed == 0 {
		r.log.Debug().Str("nickname", nickname).Msg("nickname was not in active set")
	} else {
		r.log.Info().Str("nickname", nickname).Int64("active_users", count).Msg("user left")
	}
	return count, nil
}

// List returns all active nicknames sorted lexicographically, plus the count.
func (r *Registry) List(ctx context.Context) ([]string, int, error) {
	members, err := r.conn.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list active nicknames: %w", err)
	}
	sort.Strings(members)
	return members, len(members), nil
}

// HealthCheck reports registry liveness; it never returns an error.
func (r *Registry) HealthCheck(ctx context.Context) bool {
	if err := r.conn.Ping(ctx).Err(); err != nil {
		r.log.Error().Err(err).Msg("redis health check failed")
		return false
	}
	return true
}
