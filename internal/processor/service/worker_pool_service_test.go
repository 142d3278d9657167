package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skyfare/booking-finance/internal/domain/booking"
)

type MockPostingService struct {
	mock.Mock
}

func (m *MockPostingService) ProcessEvent(ctx context.Context, evt *booking.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func TestWorkerPoolService_ProcessEvent(t *testing.T) {
	posting := &MockPostingService{}
	pool, err := NewWorkerPoolService(slog.Default(), posting, 4)
	require.NoError(t, err)
	defer pool.Release()

	evt := createdEvent()
	posting.On("ProcessEvent", mock.Anything, evt).Return(nil)

	err = pool.ProcessEvent(context.Background(), evt)
	assert.NoError(t, err)
	posting.AssertExpectations(t)
}

func TestWorkerPoolService_PropagatesWorkerError(t *testing.T) {
	posting := &MockPostingService{}
	pool, err := NewWorkerPoolService(slog.Default(), posting, 2)
	require.NoError(t, err)
	defer pool.Release()

	evt := createdEvent()
	procErr := errors.New("posting failed")
	posting.On("ProcessEvent", mock.Anything, evt).Return(procErr)

	err = pool.ProcessEvent(context.Background(), evt)
	assert.ErrorIs(t, err, procErr)
}

func TestWorkerPoolService_ConcurrentEvents(t *testing.T) {
	posting := &MockPostingService{}
	pool, err := NewWorkerPoolService(slog.Default(), posting, 4)
	require.NoError(t, err)
	defer pool.Release()

	posting.On("ProcessEvent", mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pool.ProcessEvent(context.Background(), createdEvent()))
		}()
	}
	wg.Wait()
}
