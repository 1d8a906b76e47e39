package repository

import (
	"context"
	"sync"
	"time"

	"coworking/internal/domain"
	"coworking/internal/models"

	"github.com/rs/zerolog"
)

const defaultRecoveryInterval = time.Minute

// FailoverDraftRepository serves drafts from primary and switches to
// fallback after a primary error. Every recovery interval one call probes
// the primary again.
type FailoverDraftRepository struct {
	primary  domain.DraftRepository
	fallback domain.DraftRepository
	logger   *zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	down     bool
	lastFail time.Time
}

func NewFailoverDraftRepository(primary, fallback domain.DraftRepository, logger *zerolog.Logger) *FailoverDraftRepository {
	return &FailoverDraftRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		interval: defaultRecoveryInterval,
		now:      time.Now,
	}
}

// usePrimary decides whether the next call should go to the primary.
func (r *FailoverDraftRepository) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down {
		return true
	}
	if r.now().Sub(r.lastFail) >= r.interval {
		// let this call probe; push the next probe out by one interval
		r.lastFail = r.now()
		return true
	}
	return false
}

func (r *FailoverDraftRepository) report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		if r.down {
			r.logger.Info().Msg("Primary draft repository recovered")
		}
		r.down = false
		return
	}
	if !r.down {
		r.logger.Error().Err(err).Msg("Primary draft repository failed, falling back to memory")
	}
	r.down = true
	r.lastFail = r.now()
}

func (r *FailoverDraftRepository) IsDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.down
}

func (r *FailoverDraftRepository) GetDraft(ctx context.Context, sessionID string) (*models.Draft, error) {
	if r.usePrimary() {
		draft, err := r.primary.GetDraft(ctx, sessionID)
		r.report(err)
		if err == nil {
			return draft, nil
		}
	}
	return r.fallback.GetDraft(ctx, sessionID)
}

func (r *FailoverDraftRepository) SetDraft(ctx context.Context, draft *models.Draft) error {
	if r.usePrimary() {
		err := r.primary.SetDraft(ctx, draft)
		r.report(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetDraft(ctx, draft)
}

func (r *FailoverDraftRepository) ClearDraft(ctx context.Context, sessionID string) error {
	// the draft may live in either store
	fallbackErr := r.fallback.ClearDraft(ctx, sessionID)
	if r.usePrimary() {
		err := r.primary.ClearDraft(ctx, sessionID)
		r.report(err)
		if err == nil {
			return nil
		}
	}
	return fallbackErr
}
