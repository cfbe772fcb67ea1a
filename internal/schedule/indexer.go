package schedule

import (
	"sort"

	"tripvera/internal/models"
)

// GroupByDate builds the date-keyed slot index from a flat schedule list.
// Grouping is a pure function of the input: no network access, identical
// input yields a structurally identical result. Keys are the raw date
// strings of the records, compared by string equality only.
//
// Duplicate (date, startTime, endTime) tuples are NOT deduplicated and show
// up as separate selectable slots. The remote service emits them for
// activities with several capacity pools at the same time.
func GroupByDate(schedules []models.Schedule) models.SchedulesByDate {
	grouped := make(models.SchedulesByDate, len(schedules))
	for _, s := range schedules {
		grouped[s.Date] = append(grouped[s.Date], s.Slot())
	}

	for date, slots := range grouped {
		sortSlots(slots)
		grouped[date] = slots
	}

	return grouped
}

// MergeMonth overlays freshly fetched month schedules onto a base index.
// Every date present in the month data overwrites the matching base key;
// all other base keys stay untouched. Neither input is mutated.
func MergeMonth(base models.SchedulesByDate, month []models.Schedule) models.SchedulesByDate {
	merged := make(models.SchedulesByDate, len(base))
	for date, slots := range base {
		merged[date] = append([]models.TimeSlot(nil), slots...)
	}

	fetched := GroupByDate(month)
	for date, slots := range fetched {
		merged[date] = slots
	}

	return merged
}

// OverlayDate replaces a single date key of the base index with that date's
// entries from the month data. The fetched data is authoritative for that
// date: no entries means the date has no bookable slots and its key is
// dropped. Other base keys stay untouched.
func OverlayDate(base models.SchedulesByDate, month []models.Schedule, date string) models.SchedulesByDate {
	merged := make(models.SchedulesByDate, len(base))
	for d, slots := range base {
		merged[d] = append([]models.TimeSlot(nil), slots...)
	}

	var replacement []models.TimeSlot
	for _, s := range month {
		if s.Date == date {
			replacement = append(replacement, s.Slot())
		}
	}
	if replacement == nil {
		delete(merged, date)
		return merged
	}

	sortSlots(replacement)
	merged[date] = replacement
	return merged
}

// SlotsFor returns the slots listed under a date, in start-time order.
func SlotsFor(index models.SchedulesByDate, date string) []models.TimeSlot {
	return index[date]
}

// Dates returns the sorted date keys of the index.
func Dates(index models.SchedulesByDate) []string {
	out := make([]string, 0, len(index))
	for date := range index {
		out = append(out, date)
	}
	sort.Strings(out)
	return out
}

// sortSlots orders slots by start time, then end time, then id. The sort is
// stable so equal duplicates keep their input order.
func sortSlots(slots []models.TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		if slots[i].EndTime != slots[j].EndTime {
			return slots[i].EndTime < slots[j].EndTime
		}
		return slots[i].ID < slots[j].ID
	})
}
