package availability

import (
	"context"
	"errors"
	"testing"

	"tripvera/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduleAPI struct {
	schedules []models.Schedule
	err       error

	gotActivityID int64
	gotYear       int
	gotMonth      string
	calls         int

	// beforeReturn runs inside the fetch, after arguments are recorded.
	// Tests use it to simulate a date change racing the response.
	beforeReturn func()
}

func (f *fakeScheduleAPI) GetAvailableSchedule(_ context.Context, activityID int64, year int, month string) ([]models.Schedule, error) {
	f.calls++
	f.gotActivityID = activityID
	f.gotYear = year
	f.gotMonth = month
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	return f.schedules, f.err
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestMonthOf(t *testing.T) {
	year, month, err := MonthOf("2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, "03", month)

	_, _, err = MonthOf("07.03.2026")
	assert.Error(t, err)
}

func TestAdapterRefresh(t *testing.T) {
	base := models.SchedulesByDate{
		"2026-03-07": {
			{ID: 1, StartTime: "10:00", EndTime: "12:00"},
			{ID: 2, StartTime: "14:00", EndTime: "16:00"},
		},
		"2026-03-08": {
			{ID: 3, StartTime: "10:00", EndTime: "12:00"},
		},
	}

	t.Run("overlays only the selected date", func(t *testing.T) {
		api := &fakeScheduleAPI{
			schedules: []models.Schedule{
				{ID: 2, Date: "2026-03-07", StartTime: "14:00", EndTime: "16:00"},
			},
		}
		adapter := NewAdapter(api, nopLogger())

		merged, err := adapter.Refresh(context.Background(), "sess-1", 42, base, "2026-03-07")
		require.NoError(t, err)

		assert.Equal(t, int64(42), api.gotActivityID)
		assert.Equal(t, 2026, api.gotYear)
		assert.Equal(t, "03", api.gotMonth)

		require.Len(t, merged["2026-03-07"], 1)
		assert.Equal(t, int64(2), merged["2026-03-07"][0].ID)
		// соседняя дата не тронута
		assert.Equal(t, base["2026-03-08"], merged["2026-03-08"])
	})

	t.Run("no selected date suspends the fetch", func(t *testing.T) {
		api := &fakeScheduleAPI{}
		adapter := NewAdapter(api, nopLogger())

		merged, err := adapter.Refresh(context.Background(), "sess-1", 42, base, "")
		require.NoError(t, err)
		assert.Equal(t, base, merged)
		assert.Zero(t, api.calls)
	})

	t.Run("fetch error keeps base", func(t *testing.T) {
		api := &fakeScheduleAPI{err: errors.New("upstream down")}
		adapter := NewAdapter(api, nopLogger())

		merged, err := adapter.Refresh(context.Background(), "sess-1", 42, base, "2026-03-07")
		assert.Error(t, err)
		assert.Equal(t, base, merged)
	})

	t.Run("invalid date is rejected before fetching", func(t *testing.T) {
		api := &fakeScheduleAPI{}
		adapter := NewAdapter(api, nopLogger())

		_, err := adapter.Refresh(context.Background(), "sess-1", 42, base, "not-a-date")
		assert.Error(t, err)
		assert.Zero(t, api.calls)
	})

	t.Run("result finishing after a date change is discarded", func(t *testing.T) {
		adapter := NewAdapter(nil, nopLogger())
		api := &fakeScheduleAPI{
			schedules: []models.Schedule{
				{ID: 99, Date: "2026-03-07", StartTime: "09:00", EndTime: "10:00"},
			},
			beforeReturn: func() { adapter.Invalidate("sess-1", 42) },
		}
		adapter.api = api

		merged, err := adapter.Refresh(context.Background(), "sess-1", 42, base, "2026-03-07")
		require.ErrorIs(t, err, ErrStaleResult)
		assert.Equal(t, base, merged)
	})

	t.Run("date pick in another session does not discard the result", func(t *testing.T) {
		adapter := NewAdapter(nil, nopLogger())
		api := &fakeScheduleAPI{
			schedules: []models.Schedule{
				{ID: 2, Date: "2026-03-07", StartTime: "14:00", EndTime: "16:00"},
			},
			// другая сессия меняет дату, пока запрос в полете
			beforeReturn: func() { adapter.Invalidate("sess-2", 99) },
		}
		adapter.api = api

		merged, err := adapter.Refresh(context.Background(), "sess-1", 42, base, "2026-03-07")
		require.NoError(t, err)
		require.Len(t, merged["2026-03-07"], 1)
		assert.Equal(t, int64(2), merged["2026-03-07"][0].ID)
	})

	t.Run("empty month clears the selected date only", func(t *testing.T) {
		api := &fakeScheduleAPI{schedules: nil}
		adapter := NewAdapter(api, nopLogger())

		merged, err := adapter.Refresh(context.Background(), "sess-1", 42, base, "2026-03-07")
		require.NoError(t, err)
		assert.Empty(t, merged["2026-03-07"])
		assert.Equal(t, base["2026-03-08"], merged["2026-03-08"])
	})
}
