package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripvera/internal/availability"
	"tripvera/internal/config"
	"tripvera/internal/domain"
	"tripvera/internal/events"
	"tripvera/internal/metrics"
	"tripvera/internal/models"
	"tripvera/internal/travelapi"

	"github.com/rs/zerolog"
)

var (
	// ErrNoSlotSelected rejects confirmation before a slot is picked.
	ErrNoSlotSelected = errors.New("no slot selected")

	// ErrReauthRequired signals an expired session. The selection is kept
	// intact so a retry after sign-in submits the identical request.
	ErrReauthRequired = errors.New("authentication required")

	// ErrRateLimited rejects submissions over the per-session quota.
	ErrRateLimited = errors.New("too many booking attempts")
)

// Service drives reservation submission: it turns a completed selection
// into a remote reservation, clears local state and fans out events.
type Service struct {
	selections domain.SelectionManager
	api        domain.ReservationAPI
	bus        domain.EventPublisher
	notify     domain.NotifyEnqueuer
	cfg        config.BookingConfig
	logger     *zerolog.Logger
}

func NewService(selections domain.SelectionManager, api domain.ReservationAPI, bus domain.EventPublisher, notify domain.NotifyEnqueuer, cfg config.BookingConfig, logger *zerolog.Logger) *Service {
	return &Service{
		selections: selections,
		api:        api,
		bus:        bus,
		notify:     notify,
		cfg:        cfg,
		logger:     logger,
	}
}

// Submit confirms the (session, activity) selection against the remote
// reservation service.
//
// On success the selection is destroyed and the cached month availability
// invalidated. On 401 the selection survives untouched, ErrReauthRequired
// comes back and no retry happens here: the caller re-authenticates and
// calls Submit again, which replays the identical request under the same
// idempotency key. Remote rejections (sold out, duplicate) pass through
// with the server's message verbatim.
func (s *Service) Submit(ctx context.Context, sessionID string, user models.User, activity models.Activity) (*models.Reservation, error) {
	state, err := s.selections.Get(ctx, sessionID, activity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}

	if !state.CanConfirm() {
		metrics.IncSubmit("rejected")
		return nil, ErrNoSlotSelected
	}

	allowed, err := s.selections.CheckRateLimit(ctx, sessionID, s.cfg.RateLimitSubmits, time.Duration(s.cfg.RateLimitWindowSeconds)*time.Second)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("rate limit check failed, allowing submit")
	} else if !allowed {
		metrics.IncSubmit("rate_limited")
		return nil, ErrRateLimited
	}

	req := models.ReservationRequest{
		ScheduleID: state.Slot.ID,
		HeadCount:  state.HeadCount,
	}

	reservation, err := s.api.CreateReservation(ctx, activity.ID, req, state.IdempotencyKey)
	if err != nil {
		if travelapi.IsUnauthorized(err) {
			metrics.IncSubmit("unauthorized")
			s.logger.Info().Str("session_id", sessionID).Int64("activity_id", activity.ID).Msg("submit rejected, re-auth required")
			return nil, fmt.Errorf("%w: %s", ErrReauthRequired, travelapi.UserMessage(err))
		}

		metrics.IncSubmit("error")
		s.logger.Error().Err(err).
			Str("session_id", sessionID).
			Int64("activity_id", activity.ID).
			Int64("schedule_id", req.ScheduleID).
			Msg("failed to create reservation")
		return nil, err
	}

	metrics.IncSubmit("ok")
	s.logger.Info().
		Int64("reservation_id", reservation.ID).
		Int64("activity_id", activity.ID).
		Int64("schedule_id", reservation.ScheduleID).
		Int("head_count", reservation.HeadCount).
		Msg("reservation created")

	payload := events.ReservationEventPayload{
		ReservationID: reservation.ID,
		ActivityID:    activity.ID,
		ActivityTitle: activity.Title,
		ScheduleID:    reservation.ScheduleID,
		UserID:        user.ID,
		UserEmail:     user.Email,
		Status:        reservation.Status,
		HeadCount:     reservation.HeadCount,
		TotalPrice:    state.TotalPrice(activity.Price),
		Date:          state.Date,
		StartTime:     state.Slot.StartTime,
		EndTime:       state.Slot.EndTime,
	}

	// Selection destroyed only after the remote accepted; a failed clear
	// leaves a harmless stale record behind the TTL.
	if err := s.selections.Clear(ctx, sessionID, activity.ID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Int64("activity_id", activity.ID).Msg("failed to clear selection after submit")
	}

	if year, month, err := availability.MonthOf(state.Date); err == nil {
		s.api.InvalidateAvailability(ctx, activity.ID, year, month)
	}

	if s.bus != nil {
		if err := s.bus.PublishJSON(events.EventReservationCreated, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish reservation event")
		}
	}

	if s.notify != nil {
		if err := s.notify.Enqueue(ctx, events.EventReservationCreated, payload); err != nil {
			s.logger.Warn().Err(err).Int64("reservation_id", reservation.ID).Msg("failed to enqueue notification")
		}
	}

	return reservation, nil
}
