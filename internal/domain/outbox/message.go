package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
)

// Status defines outbox publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stages a journal entry for reliable publication to the journal
// store. It is written in the same database transaction as the wallet and
// status mutations it belongs to, which is what makes refund payment and
// journal posting atomic.
type Message struct {
	ID            int64           `json:"id"`
	EntryID       uuid.UUID       `json:"entry_id"`
	EventID       uuid.UUID       `json:"event_id"`
	BookingID     uuid.UUID       `json:"booking_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage stages a journal entry as a pending outbox message
func NewMessage(entry *accounting.JournalEntry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:   entry.ID,
		EventID:   entry.EventID,
		BookingID: entry.BookingID,
		Payload:   payload,
		Status:    StatusPending,
		Attempts:  0,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// JournalEntry extracts the staged entry from the payload
func (m *Message) JournalEntry() (*accounting.JournalEntry, error) {
	var entry accounting.JournalEntry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}
