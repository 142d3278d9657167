package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
)

// JournalServiceImpl implements the JournalService interface
type JournalServiceImpl struct {
	journal accounting.Repository
	chart   *accounting.Chart
	logger  *slog.Logger
}

// NewJournalService creates a new journal read service
func NewJournalService(logger *slog.Logger, journal accounting.Repository, chart *accounting.Chart) JournalService {
	return &JournalServiceImpl{
		journal: journal,
		chart:   chart,
		logger:  logger,
	}
}

// GetEntryByID retrieves a journal entry; returns nil when not found
func (s *JournalServiceImpl) GetEntryByID(ctx context.Context, id uuid.UUID) (*accounting.JournalEntry, error) {
	entry, err := s.journal.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, accounting.ErrEntryNotFound{}) {
			return nil, nil
		}
		s.logger.Error("Failed to get journal entry", "entry_id", id.String(), "error", err)
		return nil, err
	}
	return entry, nil
}

// GetEntriesByBookingID retrieves all entries for a booking in posting order
func (s *JournalServiceImpl) GetEntriesByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*accounting.JournalEntry, error) {
	return s.journal.GetByBookingID(ctx, bookingID)
}

// GetEntriesByTimeRange retrieves paginated entries within the window
func (s *JournalServiceImpl) GetEntriesByTimeRange(ctx context.Context, startTime, endTime time.Time, page, perPage int) ([]*accounting.JournalEntry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.journal.GetByTimeRange(ctx, startTime, endTime, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.journal.CountByTimeRange(ctx, startTime, endTime)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Accounts returns the chart of accounts in stable order
func (s *JournalServiceImpl) Accounts() []*accounting.Account {
	return s.chart.Accounts()
}
