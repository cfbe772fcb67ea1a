package selection

import (
	"context"
	"errors"
	"time"

	"tripvera/internal/domain"
	"tripvera/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNoDateSelected is returned when a slot is picked before a date.
	ErrNoDateSelected = errors.New("no date selected")

	// ErrSlotNotListed is returned when the picked slot is not among the
	// slots displayed for the selected date. A slot is only meaningful in
	// the context of the date it was listed under.
	ErrSlotNotListed = errors.New("slot not listed for the selected date")
)

// Service owns the date -> slot -> head count flow. Every transition is
// persisted so the selection survives gateway restarts within its TTL.
type Service struct {
	repo   domain.SelectionRepository
	logger *zerolog.Logger
}

func NewService(repo domain.SelectionRepository, logger *zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Get returns the stored selection, or a fresh empty one.
func (s *Service) Get(ctx context.Context, sessionID string, activityID int64) (*models.SelectionState, error) {
	state, err := s.repo.GetSelection(ctx, sessionID, activityID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Int64("activity_id", activityID).Msg("failed to get selection")
		return nil, err
	}
	if state == nil {
		state = newState(sessionID, activityID)
	}
	return state, nil
}

// SelectDate moves the flow to DateSelected. Changing to a different date
// (or clearing it) always drops the previously selected slot and its
// idempotency key: a slot never outlives the date it was listed under.
func (s *Service) SelectDate(ctx context.Context, sessionID string, activityID int64, date string) (*models.SelectionState, error) {
	state, err := s.Get(ctx, sessionID, activityID)
	if err != nil {
		return nil, err
	}

	if state.Date != date {
		state.Slot = nil
		state.IdempotencyKey = ""
	}
	state.Date = date

	if err := s.repo.SetSelection(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SelectSlot moves the flow to SlotSelected. The slot must be one of the
// slots currently listed for the selected date; picking a slot also fixes
// the idempotency key used for submission.
func (s *Service) SelectSlot(ctx context.Context, sessionID string, activityID int64, slots []models.TimeSlot, slotID int64) (*models.SelectionState, error) {
	state, err := s.Get(ctx, sessionID, activityID)
	if err != nil {
		return nil, err
	}

	if state.Date == "" {
		return nil, ErrNoDateSelected
	}

	var picked *models.TimeSlot
	for i := range slots {
		if slots[i].ID == slotID {
			picked = &slots[i]
			break
		}
	}
	if picked == nil {
		return nil, ErrSlotNotListed
	}

	slot := *picked
	state.Slot = &slot
	state.IdempotencyKey = uuid.NewString()

	if err := s.repo.SetSelection(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetHeadCount updates the participant count. The count is independent of
// the date/slot steps; values below 1 clamp to 1, there is no ceiling (the
// remote service is the final arbiter of capacity).
func (s *Service) SetHeadCount(ctx context.Context, sessionID string, activityID int64, count int) (*models.SelectionState, error) {
	state, err := s.Get(ctx, sessionID, activityID)
	if err != nil {
		return nil, err
	}

	if count < 1 {
		count = 1
	}
	state.HeadCount = count

	if err := s.repo.SetSelection(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear destroys the selection, e.g. when the flow is abandoned or a
// booking succeeded.
func (s *Service) Clear(ctx context.Context, sessionID string, activityID int64) error {
	return s.repo.ClearSelection(ctx, sessionID, activityID)
}

// CheckRateLimit delegates to the repository's sliding-window counter.
func (s *Service) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	return s.repo.CheckRateLimit(ctx, sessionID, limit, window)
}

func newState(sessionID string, activityID int64) *models.SelectionState {
	return &models.SelectionState{
		SessionID:  sessionID,
		ActivityID: activityID,
		HeadCount:  models.DefaultHeadCount,
	}
}
