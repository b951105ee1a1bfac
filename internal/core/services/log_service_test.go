package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
)

func TestLogService_SaveDay(t *testing.T) {
	ctx := context.Background()
	today := domain.DateOf(time.Now().UTC())

	t.Run("Success: saves and schedules progress", func(t *testing.T) {
		logs := new(MockDayLogWriter)
		sched := new(MockScheduler)
		svc := services.NewLogService(logs, new(MockBodyWriter), sched)

		logs.On("SaveDay", ctx, mock.MatchedBy(func(l *domain.RawDayLog) bool {
			return l.UserID == "u1" && l.Date.Equal(today) && l.Tasks["diet"] == true && !l.UpdatedAt.IsZero()
		})).Return(nil)
		sched.On("Enqueue", "u1", today).Return(true)

		queued, err := svc.SaveDay(ctx, services.SaveDayInput{
			UserID: "u1",
			Date:   today,
			Tasks:  map[string]any{"diet": true, "reading": map[string]any{"pages": 10}},
		})

		require.NoError(t, err)
		assert.True(t, queued)
		logs.AssertExpectations(t)
		sched.AssertExpectations(t)
	})

	t.Run("Edge Case: tomorrow is accepted", func(t *testing.T) {
		logs := new(MockDayLogWriter)
		sched := new(MockScheduler)
		svc := services.NewLogService(logs, new(MockBodyWriter), sched)

		logs.On("SaveDay", ctx, mock.Anything).Return(nil)
		sched.On("Enqueue", "u1", today.AddDays(1)).Return(false)

		queued, err := svc.SaveDay(ctx, services.SaveDayInput{UserID: "u1", Date: today.AddDays(1)})

		require.NoError(t, err)
		assert.False(t, queued, "a full queue is reported, not an error")
	})

	tests := []struct {
		name    string
		in      services.SaveDayInput
		wantErr error
	}{
		{
			name:    "Error: unknown task key",
			in:      services.SaveDayInput{UserID: "u1", Date: today, Tasks: map[string]any{"yoga": true}},
			wantErr: domain.ErrUnknownTask,
		},
		{
			name:    "Error: date too far ahead",
			in:      services.SaveDayInput{UserID: "u1", Date: today.AddDays(2)},
			wantErr: domain.ErrFutureDate,
		},
		{
			name:    "Error: missing date",
			in:      services.SaveDayInput{UserID: "u1"},
			wantErr: domain.ErrInvalidDate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := new(MockDayLogWriter)
			sched := new(MockScheduler)
			svc := services.NewLogService(logs, new(MockBodyWriter), sched)

			_, err := svc.SaveDay(ctx, tt.in)

			assert.ErrorIs(t, err, tt.wantErr)
			logs.AssertNotCalled(t, "SaveDay", mock.Anything, mock.Anything)
			sched.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
		})
	}

	t.Run("Error: missing user", func(t *testing.T) {
		svc := services.NewLogService(new(MockDayLogWriter), new(MockBodyWriter), new(MockScheduler))
		_, err := svc.SaveDay(ctx, services.SaveDayInput{Date: today})
		assert.Error(t, err)
	})

	t.Run("Error: store failure skips scheduling", func(t *testing.T) {
		logs := new(MockDayLogWriter)
		sched := new(MockScheduler)
		svc := services.NewLogService(logs, new(MockBodyWriter), sched)
		logs.On("SaveDay", ctx, mock.Anything).Return(errors.New("db down"))

		_, err := svc.SaveDay(ctx, services.SaveDayInput{UserID: "u1", Date: today})

		assert.EqualError(t, err, "db down")
		sched.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})
}

func TestLogService_BodyMetrics(t *testing.T) {
	ctx := context.Background()
	today := domain.DateOf(time.Now().UTC())

	t.Run("Success: weight", func(t *testing.T) {
		body := new(MockBodyWriter)
		sched := new(MockScheduler)
		svc := services.NewLogService(new(MockDayLogWriter), body, sched)
		w := &domain.WeightEntry{UserID: "u1", Date: today, Weight: 81.4, Unit: "kg"}

		body.On("AddWeight", ctx, w).Return(nil)
		sched.On("Enqueue", "u1", today).Return(true)

		queued, err := svc.AddWeight(ctx, w)

		require.NoError(t, err)
		assert.True(t, queued)
	})

	t.Run("Success: fast", func(t *testing.T) {
		body := new(MockBodyWriter)
		sched := new(MockScheduler)
		svc := services.NewLogService(new(MockDayLogWriter), body, sched)
		f := &domain.FastingEntry{UserID: "u1", Date: today, TargetHours: 16, ActualHours: 18, Completed: true}

		body.On("AddFast", ctx, f).Return(nil)
		sched.On("Enqueue", "u1", today).Return(true)

		_, err := svc.AddFast(ctx, f)

		require.NoError(t, err)
		body.AssertExpectations(t)
	})

	t.Run("Error: invalid weight is not scheduled", func(t *testing.T) {
		body := new(MockBodyWriter)
		sched := new(MockScheduler)
		svc := services.NewLogService(new(MockDayLogWriter), body, sched)
		w := &domain.WeightEntry{UserID: "u1", Date: today, Weight: -1}

		body.On("AddWeight", ctx, w).Return(domain.ErrInvalidWeight)

		_, err := svc.AddWeight(ctx, w)

		assert.ErrorIs(t, err, domain.ErrInvalidWeight)
		sched.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})
}
