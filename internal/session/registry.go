// Package session keeps live planner sessions for concurrent tool callers.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aatrey56/lineup-planner/internal/lineup"
)

var ErrNotFound = errors.New("session: not found")

// Session wraps one Planner. All access goes through Do so that a mutation
// and the recompute it triggers happen under one lock.
type Session struct {
	ID      string
	Source  string
	Created time.Time

	mu       sync.Mutex
	planner  *lineup.Planner
	lastUsed time.Time
	clk      func() time.Time
}

// Do runs fn with exclusive access to the planner.
func (s *Session) Do(fn func(p *lineup.Planner) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.clk()
	return fn(s.planner)
}

func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Registry maps session ids to sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	clk      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		clk:      time.Now,
	}
}

// WithClock swaps the time source, for tests.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	if clock != nil {
		r.clk = clock
	}
	return r
}

// Open registers a new session around p. source names the snapshot p was
// built from.
func (r *Registry) Open(p *lineup.Planner, source string) *Session {
	now := r.clk()
	s := &Session{
		ID:       uuid.NewString(),
		Source:   source,
		Created:  now,
		planner:  p,
		lastUsed: now,
		clk:      r.clk,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs lists open sessions, oldest first.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.Unlock()
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Created.Equal(list[j].Created) {
			return list[i].Created.Before(list[j].Created)
		}
		return list[i].ID < list[j].ID
	})
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

// Prune closes sessions idle for longer than maxIdle and returns how many
// were dropped.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := r.clk().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.LastUsed().Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
