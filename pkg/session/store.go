package session

import (
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Store keeps sessions in memory and forgets them after ttl without access.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewStore creates a store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &Store{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

// Create stores a new session with the given settings.
func (st *Store) Create(settings Settings) *Session {
	sess := New(settings)
	st.cache.Set(sess.ID, sess, st.ttl)
	return sess
}

// Get returns the session and refreshes its expiry.
func (st *Store) Get(id string) (*Session, error) {
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess, ok := v.(*Session)
	if !ok {
		return nil, ErrSessionNotFound
	}
	st.cache.Set(id, sess, st.ttl)
	return sess, nil
}

// Delete ends a session.
func (st *Store) Delete(id string) error {
	if _, ok := st.cache.Get(id); !ok {
		return ErrSessionNotFound
	}
	st.cache.Delete(id)
	return nil
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	return st.cache.ItemCount()
}
