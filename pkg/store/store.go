// Package store provides in-memory storage for calculator sessions and
// keystroke scripts.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/calcfield/pkg/session"
)

var (
	// ErrNotFound is returned when a session or script does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a script under a taken name.
	ErrAlreadyExists = errors.New("already exists")
)

// Session is a stored calculator session. Access to the underlying state is
// serialised, so network callers can share one store.
type Session struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreateTime time.Time `json:"createTime"`

	mu         sync.Mutex
	updateTime time.Time
	operations int64
	state      *session.Session
}

// Script is a stored keystroke script.
type Script struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source"`
	CreateTime  time.Time `json:"createTime"`
}

// Store is a thread-safe in-memory storage for sessions and scripts.
type Store struct {
	mu       sync.RWMutex
	opts     session.Options
	sessions map[string]*Session
	scripts  map[string]*Script
}

// New creates a new empty store. Sessions it creates use opts.
func New(opts session.Options) *Store {
	if opts.ErrorIndicator == "" {
		opts.ErrorIndicator = session.DefaultErrorIndicator
	}
	return &Store{
		opts:     opts,
		sessions: make(map[string]*Session),
		scripts:  make(map[string]*Script),
	}
}

// Options returns the options new sessions are created with.
func (s *Store) Options() session.Options {
	return s.opts
}

// CreateSession creates a new empty session.
func (s *Store) CreateSession() *Session {
	id := uuid.NewString()
	now := time.Now()
	rec := &Session{
		ID:         id,
		Name:       "sessions/" + id,
		CreateTime: now,
		updateTime: now,
		state:      session.New(s.opts),
	}
	rec.state.OnChange(func(session.Snapshot) {
		rec.operations++
		rec.updateTime = time.Now()
	})

	s.mu.Lock()
	s.sessions[id] = rec
	s.mu.Unlock()
	return rec
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session '%s' %w", id, ErrNotFound)
	}
	return rec, nil
}

// ListSessions returns all sessions, oldest first.
func (s *Store) ListSessions() []*Session {
	s.mu.RLock()
	result := make([]*Session, 0, len(s.sessions))
	for _, rec := range s.sessions {
		result = append(result, rec)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreateTime.Before(result[j].CreateTime)
	})
	return result
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session '%s' %w", id, ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

// Do runs fn with exclusive access to the session state.
func (r *Session) Do(fn func(*session.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.state)
}

// Snapshot returns the current session state.
func (r *Session) Snapshot() session.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot()
}

// UpdateTime returns when the session last changed.
func (r *Session) UpdateTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateTime
}

// Operations returns how many operations changed the session.
func (r *Session) Operations() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operations
}

// CreateScript stores a script source under name.
func (s *Store) CreateScript(name, source, description string) (*Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.scripts[name]; exists {
		return nil, fmt.Errorf("script '%s' %w", name, ErrAlreadyExists)
	}
	sc := &Script{
		Name:        name,
		Description: description,
		Source:      source,
		CreateTime:  time.Now(),
	}
	s.scripts[name] = sc
	return sc, nil
}

// GetScript retrieves a script by name.
func (s *Store) GetScript(name string) (*Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scripts[name]
	if !ok {
		return nil, fmt.Errorf("script '%s' %w", name, ErrNotFound)
	}
	return sc, nil
}

// ListScripts returns all scripts sorted by name.
func (s *Store) ListScripts() []*Script {
	s.mu.RLock()
	result := make([]*Script, 0, len(s.scripts))
	for _, sc := range s.scripts {
		result = append(result, sc)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// DeleteScript removes a script.
func (s *Store) DeleteScript(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scripts[name]; !ok {
		return fmt.Errorf("script '%s' %w", name, ErrNotFound)
	}
	delete(s.scripts, name)
	return nil
}
