package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fakeConn is a map-backed Conn with the SADD/SREM semantics the registry
// relies on.
type fakeConn struct {
	mu      sync.Mutex
	members map[string]struct{}
	failing bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{members: make(map[string]struct{})}
}

var errConn = errors.New("connection refused")

func (f *fakeConn) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return redis.NewIntResult(0, errConn)
	}
	var added int64
	for _, m := range members {
		s := m.(string)
		if _, ok := f.members[s]; !ok {
			f.members[s] = struct{}{}
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeConn) SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return redis.NewIntResult(0, errConn)
	}
	var removed int64
	for _, m := range members {
		s := m.(string)
		if _, ok := f.members[s]; ok {
			delete(f.members, s)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeConn) SCard(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return redis.NewIntResult(0, errConn)
	}
	return redis.NewIntResult(int64(len(f.members)), nil)
}

func (f *fakeConn) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return redis.NewStringSliceResult(nil, errConn)
	}
	out := make([]string, 0, len(f.members))
	for m := range f.members {
		out = append(out, m)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (f *fakeConn) Ping(ctx context.Context) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return redis.NewStatusResult("", errConn)
	}
	return redis.NewStatusResult("PONG", nil)
}

func newTestRegistry(conn Conn) *Registry {
	logger := zerolog.New(nil)
	return New(conn, "active_nicknames", &logger)
}

func TestJoinRejectsDuplicate(t *testing.T) {
	r := newTestRegistry(newFakeConn())
	ctx := context.Background()

	count, err := r.Join(ctx, "alice")
	if err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	_, err = r.Join(ctx, "alice")
	if !errors.Is(err, ErrNicknameTaken) {
		t.Fatalf("expected ErrNicknameTaken, got %v", err)
	}

	// count must have increased by exactly 1 overall
	_, n, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 active user, got %d", n)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := newTestRegistry(newFakeConn())
	ctx := context.Background()

	if _, err := r.Join(ctx, "alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	count, err := r.Leave(ctx, "ghost")
	if err != nil {
		t.Fatalf("leave of absent nickname failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected unchanged count 1, got %d", count)
	}

	count, err = r.Leave(ctx, "alice")
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
}

func TestListIsSorted(t *testing.T) {
	r := newTestRegistry(newFakeConn())
	ctx := context.Background()

	for _, n := range []string{"charlie", "alice", "bob"} {
		if _, err := r.Join(ctx, n); err != nil {
			t.Fatalf("join %s failed: %v", n, err)
		}
	}

	users, count, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 users, got %d", count)
	}
	want := []string{"alice", "bob", "charlie"}
	for i := range want {
		if users[i] != want[i] {
			t.Errorf("users[%d] = %q, want %q", i, users[i], want[i])
		}
	}
}

func TestConcurrentJoinsOnlyOneWins(t *testing.T) {
	r := newTestRegistry(newFakeConn())
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Join(ctx, "alice")
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNicknameTaken):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != attempts-1 {
		t.Errorf("expected exactly one successful join, got %d ok / %d conflicts", ok, conflict)
	}
}

func TestHealthCheck(t *testing.T) {
	conn := newFakeConn()
	r := newTestRegistry(conn)
	ctx := context.Background()

	if !r.HealthCheck(ctx) {
		t.Error("expected healthy registry")
	}

	conn.failing = true
	if r.HealthCheck(ctx) {
		t.Error("expected unhealthy registry")
	}

	if _, err := r.Join(ctx, "alice"); err == nil {
		t.Error("expected join to fail on broken connection")
	}
}
