package repository

import (
	"context"
	"sync/atomic"
	"time"

	"tripvera/internal/domain"
	"tripvera/internal/models"

	"github.com/rs/zerolog"
)

// FailoverSelectionRepository prefers the primary (redis) repository and
// falls back to the secondary (memory) while the primary is down, retrying
// the primary once a minute.
type FailoverSelectionRepository struct {
	primary   domain.SelectionRepository
	fallback  domain.SelectionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSelectionRepository(primary, fallback domain.SelectionRepository, logger *zerolog.Logger) *FailoverSelectionRepository {
	return &FailoverSelectionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSelectionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary selection repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverSelectionRepository) shouldRetryPrimary() bool {
	return r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func (r *FailoverSelectionRepository) GetSelection(ctx context.Context, sessionID string, activityID int64) (*models.SelectionState, error) {
	if !r.isDown.Load() {
		state, err := r.primary.GetSelection(ctx, sessionID, activityID)
		if err == nil {
			return state, nil
		}
		r.markDown(err)
	}

	if r.shouldRetryPrimary() {
		state, err := r.primary.GetSelection(ctx, sessionID, activityID)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetSelection(ctx, sessionID, activityID)
}

func (r *FailoverSelectionRepository) SetSelection(ctx context.Context, state *models.SelectionState) error {
	if !r.isDown.Load() {
		err := r.primary.SetSelection(ctx, state)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetSelection(ctx, state)
}

func (r *FailoverSelectionRepository) ClearSelection(ctx context.Context, sessionID string, activityID int64) error {
	if !r.isDown.Load() {
		err := r.primary.ClearSelection(ctx, sessionID, activityID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.ClearSelection(ctx, sessionID, activityID)
}

func (r *FailoverSelectionRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, sessionID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, sessionID, limit, window)
}
