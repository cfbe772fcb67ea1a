package travelapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripvera/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAvailableSchedule(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/activities/7/available-schedule", r.URL.Path)
		assert.Equal(t, "2024", r.URL.Query().Get("year"))
		assert.Equal(t, "06", r.URL.Query().Get("month"))

		_ = json.NewEncoder(w).Encode([]models.Schedule{
			{ID: 1, Date: "2024-06-01", StartTime: "10:00", EndTime: "11:00"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	schedules, err := client.GetAvailableSchedule(context.Background(), 7, 2024, "06")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "2024-06-01", schedules[0].Date)
	assert.Equal(t, 1, hits)
}

func TestGetSchedulesBareArray(t *testing.T) {
	// Обе ручки расписаний отдают плоский массив, без обертки.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities/7/schedules", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]models.Schedule{
			{ID: 1, Date: "2024-06-01", StartTime: "10:00", EndTime: "11:00"},
			{ID: 2, Date: "2024-06-02", StartTime: "10:00", EndTime: "11:00"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	schedules, err := client.GetSchedules(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "2024-06-02", schedules[1].Date)
}

func TestGetAvailableScheduleCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode([]models.Schedule{
			{ID: 1, Date: "2024-06-01", StartTime: "10:00", EndTime: "11:00"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	client.UseRedisCache(redisClient, 5*time.Minute)
	ctx := context.Background()

	_, err = client.GetAvailableSchedule(ctx, 7, 2024, "06")
	require.NoError(t, err)
	_, err = client.GetAvailableSchedule(ctx, 7, 2024, "06")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second read must come from cache")

	// Invalidate, then the next read goes to the network again.
	client.InvalidateAvailability(ctx, 7, 2024, "06")
	_, err = client.GetAvailableSchedule(ctx, 7, 2024, "06")
	require.NoError(t, err)
	assert.Equal(t, 2, hits)

	// Expired cache entries refetch too.
	mr.FastForward(6 * time.Minute)
	_, err = client.GetAvailableSchedule(ctx, 7, 2024, "06")
	require.NoError(t, err)
	assert.Equal(t, 3, hits)
}

func TestCreateReservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/activities/7/reservations", r.URL.Path)
		assert.Equal(t, "idem-123", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

		var req models.ReservationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(1), req.ScheduleID)
		assert.Equal(t, 2, req.HeadCount)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Reservation{
			ID: 99, ScheduleID: req.ScheduleID, HeadCount: req.HeadCount, Status: models.StatusPending,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	client.UseBearerToken(func() string { return "token-abc" })

	res, err := client.CreateReservation(context.Background(), 7,
		models.ReservationRequest{ScheduleID: 1, HeadCount: 2}, "idem-123")
	require.NoError(t, err)
	assert.Equal(t, int64(99), res.ID)
	assert.Equal(t, models.StatusPending, res.Status)
}

func TestCreateReservationUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, err := client.CreateReservation(context.Background(), 7,
		models.ReservationRequest{ScheduleID: 1, HeadCount: 1}, "")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "token expired", UserMessage(err))
}

func TestAPIErrorMessageSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "already booked for this slot"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, err := client.CreateReservation(context.Background(), 7,
		models.ReservationRequest{ScheduleID: 1, HeadCount: 1}, "")
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, "already booked for this slot", UserMessage(err))
}

func TestListActivitiesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities", r.URL.Path)
		assert.Equal(t, "culture", r.URL.Query().Get("category"))
		assert.Equal(t, "20", r.URL.Query().Get("size"))

		_ = json.NewEncoder(w).Encode(ActivitiesPage{
			Activities: []models.Activity{{ID: 1, Title: "City walking tour"}},
			TotalCount: 1,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	page, err := client.ListActivities(context.Background(), ListActivitiesOptions{Category: "culture", Size: 20})
	require.NoError(t, err)
	require.Len(t, page.Activities, 1)
	assert.Equal(t, "City walking tour", page.Activities[0].Title)
}

func TestUserMessageTransportFallback(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", 50*time.Millisecond)
	_, err := client.GetActivity(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "request failed, please try again", UserMessage(err))
}

func TestContextTokenWinsOverSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer per-request", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(models.Activity{ID: 1})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	client.UseBearerToken(func() string { return "global" })

	ctx := WithToken(context.Background(), "per-request")
	_, err := client.GetActivity(ctx, 1)
	require.NoError(t, err)
}
