package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
)

const defaultSuffix = ".wav"

// TempAudioStore implements AudioArtifactStore with files in a temp directory
type TempAudioStore struct {
	dir    string
	suffix string
	logger *zap.Logger

	mu   sync.Mutex
	live map[string]string // artifact id -> path
}

// Ensure TempAudioStore implements the AudioArtifactStore interface
var _ repositories.AudioArtifactStore = (*TempAudioStore)(nil)

// NewTempAudioStore creates a store writing into dir. An empty dir uses the
// system temp directory.
func NewTempAudioStore(dir string, logger *zap.Logger) (*TempAudioStore, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create audio temp dir: %w", err)
		}
	}

	return &TempAudioStore{
		dir:    dir,
		suffix: defaultSuffix,
		logger: logger,
		live:   make(map[string]string),
	}, nil
}

// Create writes data to a new temporary file
func (s *TempAudioStore) Create(ctx context.Context, data []byte) (*repositories.AudioArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	file, err := os.CreateTemp(s.dir, "answer-"+id+"-*"+s.suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp audio file: %w", err)
	}

	artifact := &repositories.AudioArtifact{ID: id, Path: file.Name(), Size: len(data)}

	s.mu.Lock()
	s.live[id] = file.Name()
	s.mu.Unlock()

	if _, err := file.Write(data); err != nil {
		file.Close()
		s.Release(ctx, artifact)
		return nil, fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := file.Close(); err != nil {
		s.Release(ctx, artifact)
		return nil, fmt.Errorf("failed to close temp audio file: %w", err)
	}

	s.logger.Debug("Audio artifact created",
		zap.String("artifactID", id),
		zap.String("path", artifact.Path),
		zap.Int("size", len(data)))

	return artifact, nil
}

// Read reads the artifact content back
func (s *TempAudioStore) Read(ctx context.Context, artifact *repositories.AudioArtifact) ([]byte, error) {
	if s.IsReleased(artifact.ID) {
		return nil, fmt.Errorf("audio artifact %s already released", artifact.ID)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio artifact: %w", err)
	}
	return data, nil
}

// Release deletes the artifact file. The artifact is considered released
// even when the file removal fails, so callers never retry.
func (s *TempAudioStore) Release(ctx context.Context, artifact *repositories.AudioArtifact) error {
	s.mu.Lock()
	path, ok := s.live[artifact.ID]
	delete(s.live, artifact.ID)
	s.mu.Unlock()

	if !ok {
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove audio artifact",
			zap.String("artifactID", artifact.ID),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("failed to remove audio artifact: %w", err)
	}

	s.logger.Debug("Audio artifact released", zap.String("artifactID", artifact.ID))
	return nil
}

// IsReleased reports whether the artifact is no longer tracked by the store
func (s *TempAudioStore) IsReleased(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[id]
	return !ok
}

// LiveCount returns the number of artifacts not yet released
func (s *TempAudioStore) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
