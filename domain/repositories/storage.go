package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/interview-partner/domain/entities"
)

// AudioArtifact is a temporary audio file owned by an AudioArtifactStore
type AudioArtifact struct {
	ID   string
	Path string
	Size int
}

// AudioArtifactStore manages the lifecycle of temporary audio files
type AudioArtifactStore interface {
	// Create writes data to a new temporary artifact
	Create(ctx context.Context, data []byte) (*AudioArtifact, error)
	// Read reads the artifact content back
	Read(ctx context.Context, artifact *AudioArtifact) ([]byte, error)
	// Release deletes the artifact. Releasing twice is not an error.
	Release(ctx context.Context, artifact *AudioArtifact) error
	// IsReleased reports whether the artifact with id has been released
	IsReleased(id string) bool
}

// ErrSessionNotFound is returned when no live session has the requested ID
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository keeps interview sessions for the lifetime of the process
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByID(ctx context.Context, id string) (*SessionRecord, error)
	Delete(ctx context.Context, id string) error
	// ExpireIdle removes sessions idle for longer than their timeout and
	// returns how many were removed
	ExpireIdle(ctx context.Context) (int, error)
}
