package selection

import (
	"context"
	"testing"
	"time"

	"tripvera/internal/models"
	"tripvera/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	logger := zerolog.Nop()
	repo := repository.NewMemorySelectionRepository(time.Hour)
	return NewService(repo, &logger)
}

var testSlots = []models.TimeSlot{
	{ID: 1, StartTime: "10:00", EndTime: "11:00"},
	{ID: 2, StartTime: "14:00", EndTime: "15:00"},
}

func TestGetReturnsEmptySelection(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	state, err := s.Get(ctx, "sess", 7)
	require.NoError(t, err)
	assert.Equal(t, models.StepNoDate, state.Step())
	assert.Equal(t, models.DefaultHeadCount, state.HeadCount)
	assert.False(t, state.CanConfirm())
}

func TestSelectDateThenSlot(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	state, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, models.StepDateSelected, state.Step())

	state, err = s.SelectSlot(ctx, "sess", 7, testSlots, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StepSlotSelected, state.Step())
	require.NotNil(t, state.Slot)
	assert.Equal(t, "10:00", state.Slot.StartTime)
	assert.NotEmpty(t, state.IdempotencyKey)
	assert.True(t, state.CanConfirm())
}

func TestDateChangeClearsSlot(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)
	_, err = s.SelectSlot(ctx, "sess", 7, testSlots, 2)
	require.NoError(t, err)

	state, err := s.SelectDate(ctx, "sess", 7, "2024-06-02")
	require.NoError(t, err)
	assert.Nil(t, state.Slot)
	assert.Empty(t, state.IdempotencyKey)
	assert.Equal(t, models.StepDateSelected, state.Step())
	assert.False(t, state.CanConfirm())
}

func TestReselectingSameDateKeepsSlot(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)
	_, err = s.SelectSlot(ctx, "sess", 7, testSlots, 1)
	require.NoError(t, err)

	state, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)
	require.NotNil(t, state.Slot)
	assert.Equal(t, int64(1), state.Slot.ID)
}

func TestClearingDateResetsFlow(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)
	_, err = s.SelectSlot(ctx, "sess", 7, testSlots, 1)
	require.NoError(t, err)

	state, err := s.SelectDate(ctx, "sess", 7, "")
	require.NoError(t, err)
	assert.Equal(t, models.StepNoDate, state.Step())
	assert.Nil(t, state.Slot)
}

func TestSelectSlotWithoutDate(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SelectSlot(ctx, "sess", 7, testSlots, 1)
	assert.ErrorIs(t, err, ErrNoDateSelected)
}

func TestSelectSlotNotListed(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)

	_, err = s.SelectSlot(ctx, "sess", 7, testSlots, 42)
	assert.ErrorIs(t, err, ErrSlotNotListed)
}

func TestHeadCountFloor(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	state, err := s.SetHeadCount(ctx, "sess", 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, state.HeadCount)

	state, err = s.SetHeadCount(ctx, "sess", 7, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, state.HeadCount)

	// No ceiling client-side.
	state, err = s.SetHeadCount(ctx, "sess", 7, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, state.HeadCount)
}

func TestHeadCountIndependentOfSlot(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SetHeadCount(ctx, "sess", 7, 4)
	require.NoError(t, err)

	state, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 4, state.HeadCount)
}

func TestSlotPickRegeneratesIdempotencyKey(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)

	first, err := s.SelectSlot(ctx, "sess", 7, testSlots, 1)
	require.NoError(t, err)
	second, err := s.SelectSlot(ctx, "sess", 7, testSlots, 2)
	require.NoError(t, err)

	assert.NotEqual(t, first.IdempotencyKey, second.IdempotencyKey)
}

func TestClearDestroysSelection(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "sess", 7, "2024-06-01")
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "sess", 7))

	state, err := s.Get(ctx, "sess", 7)
	require.NoError(t, err)
	assert.Equal(t, models.StepNoDate, state.Step())
}
