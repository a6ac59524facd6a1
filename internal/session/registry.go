// Package session holds the in-process session registry. Sessions live in
// memory only -- a server restart invalidates every session. The registry is
// the single authority over session state: callers get value snapshots back,
// never references into the map.
package session

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the sliding expiration window. Every successful Resolve
// pushes the session's expiry to now + DefaultTTL.
const DefaultTTL = 15 * time.Minute

// shardCount is the number of independent map shards. Operations on
// different session ids land on different shards with high probability, so
// unrelated sessions do not contend on a single lock.
const shardCount = 32

var (
	// ErrNotFound is returned by Resolve for ids that are unknown or have
	// expired. The two cases are deliberately indistinguishable so callers
	// cannot probe which ids ever existed.
	ErrNotFound = errors.New("session: not found")

	// ErrCollision is returned by Create when a freshly generated id is
	// already present. The registry never overwrites an existing session;
	// whether to regenerate and retry is the caller's decision.
	ErrCollision = errors.New("session: id collision")
)

// Session is a read-only snapshot of a registry entry.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// record is the mutable registry entry. ExpiresAt is guarded by the owning
// shard's lock.
type record struct {
	userID    string
	expiresAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*record
}

// Registry is a concurrency-safe mapping from session id to session record
// with sliding expiration. Create one at process start and pass it to every
// handler that needs it; there is no package-level singleton.
type Registry struct {
	ttl    time.Duration
	shards [shardCount]shard

	// now is the clock source, overridable in tests.
	now func() time.Time
}

// NewRegistry creates an empty registry with the given sliding window.
// A non-positive ttl falls back to DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{
		ttl: ttl,
		now: time.Now,
	}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]*record)
	}
	return r
}

// shardFor maps a session id to its shard.
func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &r.shards[h.Sum32()%shardCount]
}

// Create generates a new session id, inserts a session for userID expiring
// at now + ttl, and returns a snapshot of it. If the generated id is already
// present the existing session is left untouched and ErrCollision is
// returned.
func (r *Registry) Create(userID string) (Session, error) {
	id := uuid.NewString()
	expires := r.now().Add(r.ttl)

	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return Session{}, ErrCollision
	}
	s.entries[id] = &record{userID: userID, expiresAt: expires}

	return Session{ID: id, UserID: userID, ExpiresAt: expires}, nil
}

// Resolve looks up a session by id. A live session has its expiry extended
// to now + ttl and the extended snapshot is returned. An expired session is
// removed as a side effect of the lookup and reported as ErrNotFound,
// exactly like an id that never existed.
func (r *Registry) Resolve(id string) (Session, error) {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[id]
	if !ok {
		return Session{}, ErrNotFound
	}

	now := r.now()
	if !now.Before(rec.expiresAt) {
		delete(s.entries, id)
		return Session{}, ErrNotFound
	}

	rec.expiresAt = now.Add(r.ttl)
	return Session{ID: id, UserID: rec.userID, ExpiresAt: rec.expiresAt}, nil
}

// Remove deletes a session by id and reports whether one was present.
// Removing an unknown id is not an error.
func (r *Registry) Remove(id string) bool {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// Len reports the number of physically present sessions, including expired
// entries that have not been resolved (and therefore evicted) yet. Used for
// operational visibility; entries themselves are never exposed.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
