// Package session keeps the signed-in user's context: who they are, which
// clinic they act for and their UI preferences. It is populated at login and
// cleared at logout.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session: not found")

type Context struct {
	UserID           string    `json:"user_id"`
	ClinicID         string    `json:"clinic_id"`
	Token            string    `json:"token,omitempty"`
	SidebarCollapsed bool      `json:"sidebar_collapsed"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store is the session context provider.
type Store interface {
	Get(ctx context.Context, userID string) (Context, error)
	Set(ctx context.Context, sc Context) error
	Clear(ctx context.Context, userID string) error
}

// MemoryStore keeps sessions in process. Entries expire after ttl; zero
// means never.
type MemoryStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]memoryEntry
}

type memoryEntry struct {
	sc      Context
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, m: map[string]memoryEntry{}}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Context, error) {
	s.mu.RLock()
	e, ok := s.m[userID]
	s.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && s.now().After(e.expires)) {
		return Context{}, ErrNotFound
	}
	return e.sc, nil
}

func (s *MemoryStore) Set(_ context.Context, sc Context) error {
	if sc.UserID == "" {
		return errors.New("session: user id is required")
	}
	var exp time.Time
	if s.ttl > 0 {
		exp = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.m[sc.UserID] = memoryEntry{sc: sc, expires: exp}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.m, userID)
	s.mu.Unlock()
	return nil
}
