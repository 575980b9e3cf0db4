package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/domain/repositories"
)

const defaultIdleTimeout = 30 * time.Minute

// MemorySessionRepository keeps interview sessions in memory for the lifetime
// of the process. Each session is wrapped in its own record so operations on
// different sessions never contend.
type MemorySessionRepository struct {
	mu          sync.RWMutex
	records     map[string]*repositories.SessionRecord // id -> record mapping
	idleTimeout time.Duration
	logger      *zap.Logger
}

var _ repositories.SessionRepository = (*MemorySessionRepository)(nil)

// NewMemorySessionRepository creates a new in-memory session repository
func NewMemorySessionRepository(idleTimeout time.Duration, logger *zap.Logger) *MemorySessionRepository {
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
		logger.Info("Using default session idle timeout", zap.Duration("idleTimeout", idleTimeout))
	}

	return &MemorySessionRepository{
		records:     make(map[string]*repositories.SessionRecord),
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// Create implements SessionRepository interface
func (m *MemorySessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	m.records[session.ID] = repositories.NewSessionRecord(session)

	m.logger.Debug("Session created", zap.String("sessionID", session.ID))
	return nil
}

// GetByID implements SessionRepository interface
func (m *MemorySessionRepository) GetByID(ctx context.Context, id string) (*repositories.SessionRecord, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[id]
	if !exists {
		return nil, repositories.ErrSessionNotFound
	}
	return record, nil
}

// Delete implements SessionRepository interface
func (m *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		return repositories.ErrSessionNotFound
	}
	delete(m.records, id)
	return nil
}

// ExpireIdle implements SessionRepository interface
func (m *MemorySessionRepository) ExpireIdle(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for id, record := range m.records {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if record.IsIdle(m.idleTimeout) {
			delete(m.records, id)
			expired++
		}
	}

	if expired > 0 {
		m.logger.Info("Expired idle sessions",
			zap.Int("expired", expired),
			zap.Int("remaining", len(m.records)))
	}
	return expired, nil
}

// Count returns the number of live sessions
func (m *MemorySessionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
