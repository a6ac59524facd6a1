package session

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

// newTestRegistry creates a registry with a 15-minute window driven by a
// fake clock.
func newTestRegistry() (*Registry, *fakeClock) {
	clock := newFakeClock()
	r := NewRegistry(15 * time.Minute)
	r.now = clock.Now
	return r, clock
}

func TestCreateThenResolve(t *testing.T) {
	r, _ := newTestRegistry()

	created, err := r.Create("user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a session id")
	}

	resolved, err := r.Resolve(created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", resolved.UserID)
	}
}

func TestResolveUnknownID(t *testing.T) {
	r, _ := newTestRegistry()

	if _, err := r.Resolve("no-such-session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveAfterExpiryEvicts(t *testing.T) {
	r, clock := newTestRegistry()

	created, err := r.Create("user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(16 * time.Minute)

	if _, err := r.Resolve(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}

	// The entry was evicted, not merely reported expired once.
	if _, err := r.Resolve(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second resolve, got %v", err)
	}
	if n := r.Len(); n != 0 {
		t.Errorf("expected empty registry after eviction, got %d entries", n)
	}
}

func TestExpiryAtExactBoundary(t *testing.T) {
	r, clock := newTestRegistry()

	created, _ := r.Create("user-1")

	// now == expiresAt means expired: live requires now < expiresAt.
	clock.Advance(15 * time.Minute)

	if _, err := r.Resolve(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound at exact expiry instant, got %v", err)
	}
}

func TestSlidingWindowExtendsFromResolveTime(t *testing.T) {
	r, clock := newTestRegistry()

	created, _ := r.Create("user-1")

	// Touch at minute 10. Extension must use the resolution time, not the
	// creation time, so the session stays live until minute 25.
	clock.Advance(10 * time.Minute)
	resolved, err := r.Resolve(created.ID)
	if err != nil {
		t.Fatalf("unexpected error at minute 10: %v", err)
	}
	want := clock.Now().Add(15 * time.Minute)
	if !resolved.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, resolved.ExpiresAt)
	}

	// Minute 20 is past the original window but inside the extended one.
	clock.Advance(10 * time.Minute)
	if _, err := r.Resolve(created.ID); err != nil {
		t.Fatalf("expected live session at minute 20, got %v", err)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	r, _ := newTestRegistry()

	created, _ := r.Create("user-1")

	if !r.Remove(created.ID) {
		t.Error("expected first Remove to report removal")
	}
	if r.Remove(created.ID) {
		t.Error("expected second Remove to report not-found")
	}

	if _, err := r.Resolve(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestResolveDoesNotExtendExpired(t *testing.T) {
	r, clock := newTestRegistry()

	created, _ := r.Create("user-1")

	clock.Advance(20 * time.Minute)
	if _, err := r.Resolve(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A failed resolve must not have revived the session.
	clock.Advance(time.Minute)
	if _, err := r.Resolve(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentCreates(t *testing.T) {
	r, _ := newTestRegistry()

	const n = 200
	ids := make([]string, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			s, err := r.Create("user-concurrent")
			if err != nil {
				t.Errorf("create %d: %v", i, err)
				return
			}
			ids[i] = s.ID
		}(i)
	}
	wg.Wait()

	if got := r.Len(); got != n {
		t.Fatalf("expected %d sessions, got %d", n, got)
	}

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
		if _, err := r.Resolve(id); err != nil {
			t.Errorf("resolve %s: %v", id, err)
		}
	}
}

func TestConcurrentResolveAndRemove(t *testing.T) {
	r, _ := newTestRegistry()

	created, _ := r.Create("user-1")

	// Hammer a single entry from many goroutines. Exactly one Remove may
	// win; Resolve either sees the session or ErrNotFound, never a panic
	// or a corrupted snapshot.
	var wg sync.WaitGroup
	removed := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if s, err := r.Resolve(created.ID); err == nil && s.UserID != "user-1" {
				t.Errorf("corrupted snapshot: %+v", s)
			}
		}()
		go func() {
			defer wg.Done()
			removed <- r.Remove(created.ID)
		}()
	}
	wg.Wait()
	close(removed)

	wins := 0
	for ok := range removed {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winning Remove, got %d", wins)
	}
}

func TestDefaultTTLFallback(t *testing.T) {
	r := NewRegistry(0)
	if r.ttl != DefaultTTL {
		t.Errorf("expected fallback to DefaultTTL, got %v", r.ttl)
	}
}
