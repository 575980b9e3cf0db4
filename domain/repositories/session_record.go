package repositories

import (
	"sync"
	"time"

	"github.com/satriahrh/interview-partner/domain/entities"
)

// SessionRecord serializes access to one session so that operations on the
// same session never overlap.
type SessionRecord struct {
	mu      sync.Mutex
	session *entities.Session
}

// NewSessionRecord wraps a session
func NewSessionRecord(session *entities.Session) *SessionRecord {
	return &SessionRecord{session: session}
}

// ID returns the wrapped session ID
func (r *SessionRecord) ID() string {
	return r.session.ID
}

// Do runs fn while holding the session lock
func (r *SessionRecord) Do(fn func(session *entities.Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.session)
}

// IsIdle reports whether the session has been inactive for longer than
// timeout. A session that is busy with an operation is never idle.
func (r *SessionRecord) IsIdle(timeout time.Duration) bool {
	if !r.mu.TryLock() {
		return false
	}
	defer r.mu.Unlock()
	return r.session.IsIdle(timeout)
}
