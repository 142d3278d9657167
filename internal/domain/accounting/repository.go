package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages journal entry persistence. The journal is append-only:
// there is no update or delete, only new entries.
type Repository interface {
	Append(ctx context.Context, entry *JournalEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*JournalEntry, error)

	// GetByEventID retrieves the entry produced for a booking lifecycle event.
	// Used for idempotent event processing; returns ErrEntryNotFound when the
	// event has not been posted yet.
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*JournalEntry, error)

	GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*JournalEntry, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*JournalEntry, error)
	CountByTimeRange(ctx context.Context, startTime, endTime time.Time) (int64, error)
}

// ErrEntryNotFound indicates a missing journal entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "journal entry not found: " + e.EntryID.String()
}

// Is matches any ErrEntryNotFound when the target carries a nil ID
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates an entry ID collision in the journal
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate journal entry: " + e.EntryID.String()
}
