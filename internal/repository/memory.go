package repository

import (
	"context"
	"sync"
	"time"

	"coworking/internal/models"
)

type memoryEntry struct {
	draft     models.Draft
	expiresAt time.Time
}

// MemoryDraftRepository keeps drafts in process memory with the same TTL
// semantics as the Redis repository.
type MemoryDraftRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *MemoryDraftRepository) GetDraft(_ context.Context, sessionID string) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return nil, nil
	}
	if r.ttl > 0 && !r.now().Before(entry.expiresAt) {
		delete(r.entries, sessionID)
		return nil, nil
	}
	draft := entry.draft
	draft.Resources = append([]string{}, entry.draft.Resources...)
	return &draft, nil
}

func (r *MemoryDraftRepository) SetDraft(_ context.Context, draft *models.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *draft
	stored.Resources = append([]string{}, draft.Resources...)
	r.entries[draft.SessionID] = memoryEntry{draft: stored, expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *MemoryDraftRepository) ClearDraft(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
	return nil
}

// Len counts stored drafts, expired ones included until they are read.
func (r *MemoryDraftRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
