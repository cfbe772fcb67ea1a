package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tripvera/internal/models"

	"github.com/rs/zerolog"
)

// RecentViewedStore tracks the activities a visitor looked at, most recent
// first. The list is capped and entries expire after a configured number of
// days; viewing an already listed activity moves it to the front with a
// fresh timestamp. Keys are owner strings so both anonymous sessions and
// signed-in users are supported.
type RecentViewedStore struct {
	adapter Adapter
	cap     int
	expiry  time.Duration
	logger  *zerolog.Logger

	now func() time.Time
}

func NewRecentViewedStore(adapter Adapter, cap, expiryDays int, logger *zerolog.Logger) *RecentViewedStore {
	if cap <= 0 {
		cap = models.RecentViewedCap
	}
	if expiryDays <= 0 {
		expiryDays = models.RecentViewedExpiryDays
	}
	return &RecentViewedStore{
		adapter: adapter,
		cap:     cap,
		expiry:  time.Duration(expiryDays) * 24 * time.Hour,
		logger:  logger,
		now:     time.Now,
	}
}

func recentKey(owner string) string {
	return fmt.Sprintf("recent_viewed:%s", owner)
}

// Record registers a detail-page view. Re-viewing moves the entry to the
// front; the list never grows past the cap, the oldest entry falls off.
func (s *RecentViewedStore) Record(ctx context.Context, owner string, activity models.Activity) error {
	entries, err := s.load(ctx, owner)
	if err != nil {
		return err
	}

	kept := make([]models.RecentlyViewedActivity, 0, len(entries)+1)
	kept = append(kept, models.RecentlyViewedActivity{
		Activity: activity,
		ViewedAt: s.now(),
	})
	for _, e := range entries {
		if e.Activity.ID == activity.ID {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) > s.cap {
		kept = kept[:s.cap]
	}

	return s.save(ctx, owner, kept)
}

// List returns the non-expired entries, most recent first.
func (s *RecentViewedStore) List(ctx context.Context, owner string) ([]models.RecentlyViewedActivity, error) {
	return s.load(ctx, owner)
}

// Clear forgets the owner's history.
func (s *RecentViewedStore) Clear(ctx context.Context, owner string) error {
	if err := s.adapter.Delete(ctx, recentKey(owner)); err != nil {
		return fmt.Errorf("failed to clear recently viewed: %w", err)
	}
	return nil
}

// load reads the list and prunes expired entries. Pruning happens on read
// only; the pruned list is written back on the next Record.
func (s *RecentViewedStore) load(ctx context.Context, owner string) ([]models.RecentlyViewedActivity, error) {
	raw, err := s.adapter.Get(ctx, recentKey(owner))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recently viewed: %w", err)
	}

	var entries []models.RecentlyViewedActivity
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn().Err(err).Str("owner", owner).Msg("corrupt recently viewed record, resetting")
		return nil, nil
	}

	cutoff := s.now().Add(-s.expiry)
	kept := entries[:0]
	for _, e := range entries {
		if e.ViewedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

func (s *RecentViewedStore) save(ctx context.Context, owner string, entries []models.RecentlyViewedActivity) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to serialize recently viewed: %w", err)
	}
	if err := s.adapter.Set(ctx, recentKey(owner), raw); err != nil {
		return fmt.Errorf("failed to save recently viewed: %w", err)
	}
	return nil
}
