// Package mongo provides the MongoDB implementation of the journal
// repository. The journal is the system of record for double-entry
// postings and is strictly append-only.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
)

const (
	// JournalCollectionName is the name of the journal collection in MongoDB
	JournalCollectionName = "journal_entries"
)

// JournalRepository implements the accounting.Repository interface for MongoDB
type JournalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal repository
func NewJournalRepository(logger *slog.Logger, db *mongo.Database) accounting.Repository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a journal entry after checking for duplicates. Returns
// ErrDuplicateEntry if an entry with the same ID is already in the journal.
func (r *JournalRepository) Append(ctx context.Context, entry *accounting.JournalEntry) error {
	collection := r.db.Collection(JournalCollectionName)

	existing, err := r.GetByID(ctx, entry.ID)
	if err != nil && !errors.Is(err, accounting.ErrEntryNotFound{}) {
		r.logger.Error("Failed to check for existing journal entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing journal entry: %w", err)
	}
	if existing != nil {
		return accounting.ErrDuplicateEntry{EntryID: entry.ID}
	}

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		r.logger.Error("Failed to append journal entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	return nil
}

// GetByID retrieves a journal entry by its ID
func (r *JournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*accounting.JournalEntry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"id": id}
	var entry accounting.JournalEntry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, accounting.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get journal entry",
			"entry_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	return &entry, nil
}

// GetByEventID retrieves the entry produced for a booking lifecycle event.
// Returns ErrEntryNotFound when the event has not been posted, which lets the
// processor detect already-handled events.
func (r *JournalRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*accounting.JournalEntry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"event_id": eventID}
	var entry accounting.JournalEntry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, accounting.ErrEntryNotFound{}
		}
		r.logger.Error("Failed to get journal entry by event ID",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entry by event ID: %w", err)
	}

	return &entry, nil
}

// GetByBookingID retrieves all entries for a booking, oldest first, so the
// sale and its reversal read in posting order.
func (r *JournalRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*accounting.JournalEntry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"booking_id": bookingID}
	opts := options.Find().SetSort(bson.M{"date": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries by booking ID",
			"booking_id", bookingID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entries by booking ID: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*accounting.JournalEntry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"booking_id", bookingID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

// GetByTimeRange retrieves paginated entries within the time window, newest
// first.
func (r *JournalRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*accounting.JournalEntry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{
		"date": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"date": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get journal entries by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*accounting.JournalEntry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

// CountByTimeRange counts entries within the time window
func (r *JournalRepository) CountByTimeRange(ctx context.Context, startTime, endTime time.Time) (int64, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{
		"date": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count journal entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	return count, nil
}
