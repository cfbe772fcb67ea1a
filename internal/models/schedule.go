package models

// Schedule is a single bookable date+time slot of an activity. Date is the
// raw "2006-01-02" string as sent by the remote service; no timezone
// normalization happens on this side.
type Schedule struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// TimeSlot is a schedule entry stripped of its date, as stored under a
// date key in SchedulesByDate.
type TimeSlot struct {
	ID        int64  `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// SchedulesByDate indexes an activity's schedules by date string for
// calendar lookups.
type SchedulesByDate map[string][]TimeSlot

// Slot returns the TimeSlot portion of a schedule.
func (s Schedule) Slot() TimeSlot {
	return TimeSlot{ID: s.ID, StartTime: s.StartTime, EndTime: s.EndTime}
}
