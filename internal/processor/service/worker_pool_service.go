package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/skyfare/booking-finance/internal/domain/booking"
)

// WorkerPoolService distributes booking event processing across a bounded
// pool of workers while giving every caller a synchronous result.
type WorkerPoolService struct {
	logger  *slog.Logger
	posting PostingService
	pool    *ants.Pool
	results map[string]chan error
	mu      sync.Mutex
}

// NewWorkerPoolService creates a worker pool of the given size wrapping the
// posting service.
func NewWorkerPoolService(logger *slog.Logger, posting PostingService, poolSize int) (*WorkerPoolService, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolService{
		logger:  logger,
		posting: posting,
		pool:    pool,
		results: make(map[string]chan error),
	}, nil
}

// ProcessEvent submits the event to the pool and blocks until a worker has
// finished it, so the Kafka offset is committed only after processing.
func (s *WorkerPoolService) ProcessEvent(ctx context.Context, evt *booking.Event) error {
	resultChan := make(chan error, 1)

	eventID := evt.EventID.String()
	s.mu.Lock()
	s.results[eventID] = resultChan
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.results, eventID)
		s.mu.Unlock()
	}()

	err := s.pool.Submit(func() {
		resultChan <- s.posting.ProcessEvent(ctx, evt)
	})
	if err != nil {
		return fmt.Errorf("failed to submit event to worker pool: %w", err)
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release shuts down the pool; pending tasks are abandoned
func (s *WorkerPoolService) Release() {
	s.logger.Info("Releasing worker pool", "running", s.pool.Running())
	s.pool.Release()
}
