package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"tripvera/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetSelection(ctx context.Context, sessionID string, activityID int64) (*models.SelectionState, error) {
	args := m.Called(ctx, sessionID, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SelectionState), args.Error(1)
}

func (m *mockRepo) SetSelection(ctx context.Context, state *models.SelectionState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *mockRepo) ClearSelection(ctx context.Context, sessionID string, activityID int64) error {
	args := m.Called(ctx, sessionID, activityID)
	return args.Error(0)
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, sessionID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverSelectionRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSelectionRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		state := &models.SelectionState{SessionID: "s1", ActivityID: 1}
		primary.On("GetSelection", ctx, "s1", int64(1)).Return(state, nil).Once()

		got, err := repo.GetSelection(ctx, "s1", 1)
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		state := &models.SelectionState{SessionID: "s2", ActivityID: 2}
		primary.On("GetSelection", ctx, "s2", int64(2)).Return(nil, errors.New("fail")).Once()
		fallback.On("GetSelection", ctx, "s2", int64(2)).Return(state, nil).Once()

		got, err := repo.GetSelection(ctx, "s2", 2)
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		state := &models.SelectionState{SessionID: "s3", ActivityID: 3}
		primary.On("GetSelection", ctx, "s3", int64(3)).Return(state, nil).Once()

		got, err := repo.GetSelection(ctx, "s3", 3)
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("GetSelection", ctx, "s4", int64(4)).Return(nil, errors.New("still fail")).Once()
		fallback.On("GetSelection", ctx, "s4", int64(4)).Return(nil, nil).Once()

		_, err := repo.GetSelection(ctx, "s4", 4)
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetSelectionPrimary", func(t *testing.T) {
		repo.isDown.Store(false)
		state := &models.SelectionState{SessionID: "s5", ActivityID: 5}
		primary.On("SetSelection", ctx, state).Return(nil).Once()

		err := repo.SetSelection(ctx, state)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
	})

	t.Run("SetSelectionFallsBack", func(t *testing.T) {
		repo.isDown.Store(false)
		state := &models.SelectionState{SessionID: "s6", ActivityID: 6}
		primary.On("SetSelection", ctx, state).Return(errors.New("down")).Once()
		fallback.On("SetSelection", ctx, state).Return(nil).Once()

		err := repo.SetSelection(ctx, state)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RateLimitFallsBack", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().UnixNano())
		fallback.On("CheckRateLimit", ctx, "s7", 5, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "s7", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		fallback.AssertExpectations(t)
	})
}
