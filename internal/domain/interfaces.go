package domain

import (
	"context"
	"time"

	"tripvera/internal/events"
	"tripvera/internal/models"
)

// SelectionRepository persists in-progress booking selections keyed by
// (session, activity). Implementations: redis, in-memory, failover wrapper.
type SelectionRepository interface {
	GetSelection(ctx context.Context, sessionID string, activityID int64) (*models.SelectionState, error)
	SetSelection(ctx context.Context, state *models.SelectionState) error
	ClearSelection(ctx context.Context, sessionID string, activityID int64) error
	CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error)
}

// SelectionManager drives the date -> slot -> head count selection flow.
type SelectionManager interface {
	Get(ctx context.Context, sessionID string, activityID int64) (*models.SelectionState, error)
	SelectDate(ctx context.Context, sessionID string, activityID int64, date string) (*models.SelectionState, error)
	SelectSlot(ctx context.Context, sessionID string, activityID int64, slots []models.TimeSlot, slotID int64) (*models.SelectionState, error)
	SetHeadCount(ctx context.Context, sessionID string, activityID int64, count int) (*models.SelectionState, error)
	Clear(ctx context.Context, sessionID string, activityID int64) error
	CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error)
}

// EventPublisher fans out reservation lifecycle events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ScheduleAPI is the slice of the remote API the availability adapter needs.
type ScheduleAPI interface {
	GetAvailableSchedule(ctx context.Context, activityID int64, year int, month string) ([]models.Schedule, error)
}

// ReservationAPI is the slice of the remote API the booking flow needs.
type ReservationAPI interface {
	CreateReservation(ctx context.Context, activityID int64, req models.ReservationRequest, idempotencyKey string) (*models.Reservation, error)
	InvalidateAvailability(ctx context.Context, activityID int64, year int, month string)
}

// Mailer sends reservation notifications.
type Mailer interface {
	SendReservationUpdate(ctx context.Context, toEmail, subject, text, html string) error
}

// NotifyEnqueuer accepts notification tasks for asynchronous delivery.
type NotifyEnqueuer interface {
	Enqueue(ctx context.Context, eventType string, payload events.ReservationEventPayload) error
}
