package models

// SelectionState is the persisted form of an in-progress booking selection.
// One instance exists per (session, activity); it is created empty when the
// booking flow starts and destroyed on success or abandonment.
type SelectionState struct {
	SessionID      string    `json:"session_id"`
	ActivityID     int64     `json:"activity_id"`
	Date           string    `json:"date,omitempty"`
	Slot           *TimeSlot `json:"slot,omitempty"`
	HeadCount      int       `json:"head_count"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// Step reports the flow step the selection is in.
func (s *SelectionState) Step() string {
	switch {
	case s == nil || s.Date == "":
		return StepNoDate
	case s.Slot == nil:
		return StepDateSelected
	default:
		return StepSlotSelected
	}
}

// CanConfirm is true only when a slot is selected for the current date and
// the head count is sane. Confirmation in any other step is a no-op.
func (s *SelectionState) CanConfirm() bool {
	return s.Step() == StepSlotSelected && s.HeadCount >= 1
}

// TotalPrice derives the price of the selection. It is never stored.
func (s *SelectionState) TotalPrice(unitPrice int64) int64 {
	if s == nil || s.HeadCount < 1 {
		return 0
	}
	return unitPrice * int64(s.HeadCount)
}
