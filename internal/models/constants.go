package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDeclined  = "declined"
	StatusCanceled  = "canceled"
	StatusCompleted = "completed"
)

const (
	StepNoDate       = "no_date"
	StepDateSelected = "date_selected"
	StepSlotSelected = "slot_selected"
)

const (
	// DefaultSelectionTTL время жизни выбора в Redis (seconds)
	DefaultSelectionTTL = 24 * 60 * 60

	// DefaultHeadCount starting participant count for a fresh selection
	DefaultHeadCount = 1

	// AvailabilityCacheTTL seconds a fetched month stays cached
	AvailabilityCacheTTL = 5 * 60

	// RecentViewedCap maximum entries kept in the recently-viewed list
	RecentViewedCap = 10

	// RecentViewedExpiryDays rolling expiry of recently-viewed entries
	RecentViewedExpiryDays = 7

	// WorkerQueueSize размер очереди воркера уведомлений
	WorkerQueueSize = 1000

	// RateLimitSubmits booking submissions allowed per window
	RateLimitSubmits = 10

	// RateLimitWindow window for submission rate limiting (seconds)
	RateLimitWindow = 60
)

// DateLayout matches the date strings the remote service sends. Keys in
// SchedulesByDate compare by string equality against this format.
const DateLayout = "2006-01-02"

// TimeLayout is the "HH:mm" layout of slot boundaries.
const TimeLayout = "15:04"
