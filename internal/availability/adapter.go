package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tripvera/internal/domain"
	"tripvera/internal/metrics"
	"tripvera/internal/models"
	"tripvera/internal/schedule"

	"github.com/rs/zerolog"
)

// ErrStaleResult marks a fetch that finished after a newer date was picked.
// Callers drop the result and keep whatever index they already display.
var ErrStaleResult = errors.New("availability result is stale")

// Adapter overlays authoritative month availability from the remote service
// onto a locally indexed base schedule. Rapid date switching is sequenced
// with a generation counter per (session, activity): only the fetch started
// for the session's latest selected date may touch the index, regardless of
// network ordering. Date picks in other sessions do not interfere.
type Adapter struct {
	api    domain.ScheduleAPI
	logger *zerolog.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

func NewAdapter(api domain.ScheduleAPI, logger *zerolog.Logger) *Adapter {
	return &Adapter{
		api:    api,
		logger: logger,
		gens:   make(map[string]uint64),
	}
}

func genKey(sessionID string, activityID int64) string {
	return fmt.Sprintf("%s:%d", sessionID, activityID)
}

// Invalidate bumps the session's generation for one activity. Call it
// whenever that session's selected date changes; its in-flight fetches for
// older dates then come back stale.
func (a *Adapter) Invalidate(sessionID string, activityID int64) {
	a.mu.Lock()
	a.gens[genKey(sessionID, activityID)]++
	a.mu.Unlock()
}

func (a *Adapter) generation(sessionID string, activityID int64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gens[genKey(sessionID, activityID)]
}

// Refresh fetches the month containing selectedDate and overlays that exact
// date's entries onto base. Other date keys are left untouched. With no
// selected date the fetch is suspended and base comes back unchanged.
func (a *Adapter) Refresh(ctx context.Context, sessionID string, activityID int64, base models.SchedulesByDate, selectedDate string) (models.SchedulesByDate, error) {
	if selectedDate == "" {
		return base, nil
	}

	year, month, err := MonthOf(selectedDate)
	if err != nil {
		return base, err
	}

	gen := a.generation(sessionID, activityID)

	fetched, err := a.api.GetAvailableSchedule(ctx, activityID, year, month)
	if err != nil {
		metrics.IncAvailability("error")
		a.logger.Error().Err(err).Int64("activity_id", activityID).Str("date", selectedDate).Msg("availability fetch failed")
		return base, err
	}

	if a.generation(sessionID, activityID) != gen {
		metrics.IncAvailability("stale")
		return base, ErrStaleResult
	}

	metrics.IncAvailability("ok")
	return schedule.OverlayDate(base, fetched, selectedDate), nil
}

// MonthOf derives the (year, "MM") pair of a "2006-01-02" date string.
func MonthOf(date string) (int, string, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.Year(), fmt.Sprintf("%02d", int(t.Month())), nil
}
