package repository

import (
	"context"
	"sync"
	"time"

	"tripvera/internal/models"
)

type MemorySelectionRepository struct {
	selections sync.Map
	ttl        time.Duration

	rateMu     sync.Mutex
	rateLimits map[string]*rateLimitEntry
}

func NewMemorySelectionRepository(ttl time.Duration) *MemorySelectionRepository {
	return &MemorySelectionRepository{
		ttl:        ttl,
		rateLimits: make(map[string]*rateLimitEntry),
	}
}

type selectionEntry struct {
	state     *models.SelectionState
	expiresAt time.Time
}

// copyState detaches the stored struct from callers. Словарь redis отдает
// свежую копию на каждый Get, in-memory ведет себя так же.
func copyState(state *models.SelectionState) *models.SelectionState {
	if state == nil {
		return nil
	}
	clone := *state
	if state.Slot != nil {
		slot := *state.Slot
		clone.Slot = &slot
	}
	return &clone
}

func (r *MemorySelectionRepository) GetSelection(ctx context.Context, sessionID string, activityID int64) (*models.SelectionState, error) {
	key := selectionKey(sessionID, activityID)
	val, ok := r.selections.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(*selectionEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.selections.Delete(key)
		return nil, nil
	}
	return copyState(entry.state), nil
}

func (r *MemorySelectionRepository) SetSelection(ctx context.Context, state *models.SelectionState) error {
	r.selections.Store(selectionKey(state.SessionID, state.ActivityID), &selectionEntry{
		state:     copyState(state),
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySelectionRepository) ClearSelection(ctx context.Context, sessionID string, activityID int64) error {
	r.selections.Delete(selectionKey(sessionID, activityID))
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySelectionRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	r.rateMu.Lock()
	defer r.rateMu.Unlock()

	entry, ok := r.rateLimits[sessionID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
		r.rateLimits[sessionID] = entry
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
