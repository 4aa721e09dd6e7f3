package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository keeps per-session workflow state for at most the
// configured TTL. Nothing outlives the session.
type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
}

// ExpiringSessionRepository is implemented by stores without native
// expiry; they are swept periodically.
type ExpiringSessionRepository interface {
	SessionRepository
	DeleteExpired(ctx context.Context) (int64, error)
}

const defaultSessionTTL = 2 * time.Hour

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

type memorySessionRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) ExpiringSessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &memorySessionRepository{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// FindByID implements SessionRepository.
func (r *memorySessionRepository) FindByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.entries, id)
		return nil, ErrSessionNotFound
	}

	return decodeSession(entry.payload)
}

// Save implements SessionRepository. The session is stored as a copy so
// callers cannot mutate stored state without saving.
func (r *memorySessionRepository) Save(_ context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[session.ID] = memoryEntry{
		payload:   payload,
		expiresAt: r.now().Add(r.ttl),
	}

	return nil
}

// Delete implements SessionRepository.
func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
	return nil
}

// DeleteExpired implements ExpiringSessionRepository.
func (r *memorySessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var removed int64
	for id, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed, nil
}

func decodeSession(payload []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}
