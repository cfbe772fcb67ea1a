package models

import "time"

type Reservation struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	ActivityID int64     `json:"activityId"`
	ScheduleID int64     `json:"scheduleId"`
	Status     string    `json:"status"` // pending, confirmed, declined, canceled, completed
	HeadCount  int       `json:"headCount"`
	TotalPrice int64     `json:"totalPrice"`
	Date       string    `json:"date"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ReservationRequest is the payload submitted to the remote reservation
// endpoint.
type ReservationRequest struct {
	ScheduleID int64 `json:"scheduleId"`
	HeadCount  int   `json:"headCount"`
}
