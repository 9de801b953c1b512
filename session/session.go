// Package session holds the receiver's in-memory table of active ingestion
// sessions. The table is safe for concurrent use; each check-and-mutate runs
// in a single critical section so concurrent submissions for the same
// sequence cannot both succeed.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sonnes/logsink/core"
)

var (
	// ErrNotFound is returned when the session ID is not in the table.
	ErrNotFound = errors.New("session not found")
	// ErrBadSequence is returned when the submitted sequence is not the
	// session's next expected sequence.
	ErrBadSequence = errors.New("bad sequence")
)

// Table maps session IDs to their state. The zero value is not usable; call
// NewTable.
type Table struct {
	mu       sync.Mutex
	sessions map[string]*core.Session

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

// NewTable constructs an empty session table.
func NewTable() *Table {
	return &Table{
		sessions: make(map[string]*core.Session),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Create inserts a new session expecting sequence 0 and returns a copy of it.
func (t *Table) Create() core.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.newID()
	for _, taken := t.sessions[id]; taken; _, taken = t.sessions[id] {
		id = t.newID()
	}
	now := t.now()
	s := &core.Session{ID: id, CreatedAt: now, LastActive: now}
	t.sessions[id] = s
	return *s
}

// Get returns a copy of the session with the given ID.
func (t *Table) Get(id string) (core.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok {
		return core.Session{}, false
	}
	return *s, true
}

// Check validates id and seq without mutating anything. It lets callers
// reject a submission before reading its body.
func (t *Table) Check(id string, seq int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.lookupLocked(id, seq)
	return err
}

// Advance moves the session past seq and returns the updated copy.
func (t *Table) Advance(id string, seq int) (core.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookupLocked(id, seq)
	if err != nil {
		return core.Session{}, err
	}
	s.NextSequence++
	s.LastActive = t.now()
	return *s, nil
}

// Finish removes the session if seq is its next expected sequence.
func (t *Table) Finish(id string, seq int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.lookupLocked(id, seq); err != nil {
		return err
	}
	delete(t.sessions, id)
	return nil
}

// Expire removes every session whose last activity is older than maxIdle and
// returns the removed IDs. A non-positive maxIdle removes nothing.
func (t *Table) Expire(maxIdle time.Duration) []string {
	if maxIdle <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxIdle)
	var expired []string
	for id, s := range t.sessions {
		if s.LastActive.Before(cutoff) {
			delete(t.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// Len returns the number of active sessions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *Table) lookupLocked(id string, seq int) (*core.Session, error) {
	s, ok := t.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if seq != s.NextSequence {
		return nil, ErrBadSequence
	}
	return s, nil
}
