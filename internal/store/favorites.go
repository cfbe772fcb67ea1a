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

// FavoritesStore keeps per-user favorite activity snapshots. The remote
// service stays authoritative for activity data; a favorite is a local
// bookmark, so stale snapshots are acceptable.
//
// Persistence goes through the injected Adapter with last-writer-wins
// semantics. Concurrent writers are not merged.
type FavoritesStore struct {
	adapter Adapter
	logger  *zerolog.Logger
}

func NewFavoritesStore(adapter Adapter, logger *zerolog.Logger) *FavoritesStore {
	return &FavoritesStore{
		adapter: adapter,
		logger:  logger,
	}
}

func favoritesKey(userID int64) string {
	return fmt.Sprintf("favorites:%d", userID)
}

// List returns the user's favorites, most recently added first.
func (s *FavoritesStore) List(ctx context.Context, userID int64) ([]models.FavoriteActivity, error) {
	return s.load(ctx, userID)
}

// Toggle adds the activity to favorites, or removes it when already there.
// Returns true when the activity is a favorite after the call.
func (s *FavoritesStore) Toggle(ctx context.Context, userID int64, activity models.Activity) (bool, error) {
	favorites, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}

	for i, f := range favorites {
		if f.Activity.ID == activity.ID {
			favorites = append(favorites[:i], favorites[i+1:]...)
			return false, s.save(ctx, userID, favorites)
		}
	}

	favorites = append([]models.FavoriteActivity{{
		UserID:   userID,
		Activity: activity,
		AddedAt:  time.Now(),
	}}, favorites...)
	return true, s.save(ctx, userID, favorites)
}

// Remove drops the activity from favorites. Removing a non-favorite is a
// no-op.
func (s *FavoritesStore) Remove(ctx context.Context, userID int64, activityID int64) error {
	favorites, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	for i, f := range favorites {
		if f.Activity.ID == activityID {
			return s.save(ctx, userID, append(favorites[:i], favorites[i+1:]...))
		}
	}
	return nil
}

// IsFavorite reports whether the activity is bookmarked.
func (s *FavoritesStore) IsFavorite(ctx context.Context, userID int64, activityID int64) (bool, error) {
	favorites, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, f := range favorites {
		if f.Activity.ID == activityID {
			return true, nil
		}
	}
	return false, nil
}

func (s *FavoritesStore) load(ctx context.Context, userID int64) ([]models.FavoriteActivity, error) {
	raw, err := s.adapter.Get(ctx, favoritesKey(userID))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}

	var favorites []models.FavoriteActivity
	if err := json.Unmarshal(raw, &favorites); err != nil {
		// Битая запись не должна ломать весь список
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("corrupt favorites record, resetting")
		return nil, nil
	}
	return favorites, nil
}

func (s *FavoritesStore) save(ctx context.Context, userID int64, favorites []models.FavoriteActivity) error {
	raw, err := json.Marshal(favorites)
	if err != nil {
		return fmt.Errorf("failed to serialize favorites: %w", err)
	}
	if err := s.adapter.Set(ctx, favoritesKey(userID), raw); err != nil {
		return fmt.Errorf("failed to save favorites: %w", err)
	}
	return nil
}
