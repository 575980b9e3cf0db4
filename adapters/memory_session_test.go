package adapters

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/domain/repositories"
)

func TestMemorySessionRepository_CreateAndGet(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	session := entities.NewSession()
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := repo.Create(ctx, session); err == nil {
		t.Error("Expected error creating duplicate session")
	}
	if err := repo.Create(ctx, nil); err == nil {
		t.Error("Expected error for nil session")
	}

	record, err := repo.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if record.ID() != session.ID {
		t.Errorf("Expected ID %s, got %s", session.ID, record.ID())
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, repositories.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemorySessionRepository_SessionsAreIndependent(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	a, b := entities.NewSession(), entities.NewSession()
	repo.Create(ctx, a)
	repo.Create(ctx, b)

	recordA, _ := repo.GetByID(ctx, a.ID)
	recordA.Do(func(s *entities.Session) error {
		return s.Start("Backend Engineer")
	})

	recordB, _ := repo.GetByID(ctx, b.ID)
	recordB.Do(func(s *entities.Session) error {
		if s.Mode != entities.ModeSetup {
			t.Errorf("Session B should be untouched, got mode %s", s.Mode)
		}
		return nil
	})
}

func TestMemorySessionRepository_RecordSerializesOperations(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()
	session := entities.NewSession()
	repo.Create(ctx, session)
	record, _ := repo.GetByID(ctx, session.ID)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record.Do(func(s *entities.Session) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("Expected 50 serialized operations, got %d", counter)
	}
}

func TestMemorySessionRepository_Delete(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()
	session := entities.NewSession()
	repo.Create(ctx, session)

	if err := repo.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := repo.Delete(ctx, session.ID); !errors.Is(err, repositories.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if repo.Count() != 0 {
		t.Errorf("Expected no sessions, got %d", repo.Count())
	}
}

func TestMemorySessionRepository_ExpireIdle(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	idle := entities.NewSession()
	idle.LastActiveAt = time.Now().Add(-2 * time.Minute)
	active := entities.NewSession()
	busy := entities.NewSession()
	busy.LastActiveAt = time.Now().Add(-2 * time.Minute)

	for _, s := range []*entities.Session{idle, active, busy} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}

	busyRecord, _ := repo.GetByID(ctx, busy.ID)
	release := make(chan struct{})
	locked := make(chan struct{})
	go busyRecord.Do(func(s *entities.Session) error {
		close(locked)
		<-release
		return nil
	})
	<-locked

	expired, err := repo.ExpireIdle(ctx)
	close(release)
	if err != nil {
		t.Fatalf("ExpireIdle failed: %v", err)
	}
	if expired != 1 {
		t.Errorf("Expected 1 expired session, got %d", expired)
	}
	if _, err := repo.GetByID(ctx, idle.ID); !errors.Is(err, repositories.ErrSessionNotFound) {
		t.Error("Idle session should be gone")
	}
	if _, err := repo.GetByID(ctx, busy.ID); err != nil {
		t.Error("Busy session should survive expiry")
	}
	if repo.Count() != 2 {
		t.Errorf("Expected 2 sessions left, got %d", repo.Count())
	}
}
