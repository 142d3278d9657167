package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfare/booking-finance/internal/domain/refund"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
)

// RefundRepository implements the refund.Repository interface for PostgreSQL
type RefundRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRefundRepository creates a new PostgreSQL refund repository
func NewRefundRepository(logger *slog.Logger, db *persistence.PostgresDB) refund.Repository {
	return &RefundRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *RefundRepository) WithTx(tx pgx.Tx) refund.Repository {
	return &RefundRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const refundColumns = `
	id, booking_id, user_id, request_date, status,
	original_amount, penalty_amount, refund_amount,
	expert_reviewed_by, expert_reviewed_at,
	financial_reviewed_by, financial_reviewed_at,
	processed_by, processed_at,
	rejected_by, rejected_at, reject_reason
`

// Create stores a new refund request
func (r *RefundRepository) Create(ctx context.Context, rf *refund.Refund) error {
	query := `
		INSERT INTO refunds (` + refundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.querier.Exec(ctx, query,
		rf.ID,
		rf.BookingID,
		rf.UserID,
		rf.RequestDate,
		rf.Status,
		rf.OriginalAmount,
		rf.PenaltyAmount,
		rf.RefundAmount,
		nullable(rf.ExpertReviewedBy),
		rf.ExpertReviewedAt,
		nullable(rf.FinancialReviewedBy),
		rf.FinancialReviewedAt,
		nullable(rf.ProcessedBy),
		rf.ProcessedAt,
		nullable(rf.RejectedBy),
		rf.RejectedAt,
		rf.RejectReason,
	)
	if err != nil {
		r.logger.Error("Failed to create refund", "id", rf.ID.String(), "error", err)
		return fmt.Errorf("failed to create refund: %w", err)
	}

	return nil
}

// GetByID retrieves a refund by its ID
func (r *RefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`

	rf, err := r.scanRefund(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, refund.ErrRefundNotFound{RefundID: id}
		}
		r.logger.Error("Failed to get refund", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}

	return rf, nil
}

// GetOpenByBookingID retrieves the non-terminal refund for a booking, or nil
// when the booking has no open refund.
func (r *RefundRepository) GetOpenByBookingID(ctx context.Context, bookingID uuid.UUID) (*refund.Refund, error) {
	query := `
		SELECT ` + refundColumns + `
		FROM refunds
		WHERE booking_id = $1 AND status NOT IN ($2, $3)
		ORDER BY request_date DESC
		LIMIT 1
	`

	rf, err := r.scanRefund(r.querier.QueryRow(ctx, query, bookingID, refund.StatusCompleted, refund.StatusRejected))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get open refund", "booking_id", bookingID.String(), "error", err)
		return nil, fmt.Errorf("failed to get open refund: %w", err)
	}

	return rf, nil
}

// Update persists the refund's workflow state and stage metadata
func (r *RefundRepository) Update(ctx context.Context, rf *refund.Refund) error {
	query := `
		UPDATE refunds
		SET status = $1,
			expert_reviewed_by = $2, expert_reviewed_at = $3,
			financial_reviewed_by = $4, financial_reviewed_at = $5,
			processed_by = $6, processed_at = $7,
			rejected_by = $8, rejected_at = $9, reject_reason = $10
		WHERE id = $11
	`

	result, err := r.querier.Exec(ctx, query,
		rf.Status,
		nullable(rf.ExpertReviewedBy),
		rf.ExpertReviewedAt,
		nullable(rf.FinancialReviewedBy),
		rf.FinancialReviewedAt,
		nullable(rf.ProcessedBy),
		rf.ProcessedAt,
		nullable(rf.RejectedBy),
		rf.RejectedAt,
		rf.RejectReason,
		rf.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update refund", "id", rf.ID.String(), "error", err)
		return fmt.Errorf("failed to update refund: %w", err)
	}

	if result.RowsAffected() == 0 {
		return refund.ErrRefundNotFound{RefundID: rf.ID}
	}

	return nil
}

// List retrieves a page of refunds, newest first
func (r *RefundRepository) List(ctx context.Context, limit, offset int) ([]*refund.Refund, error) {
	query := `
		SELECT ` + refundColumns + `
		FROM refunds
		ORDER BY request_date DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list refunds", "error", err)
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*refund.Refund
	for rows.Next() {
		rf, err := r.scanRefund(rows)
		if err != nil {
			r.logger.Error("Failed to scan refund", "error", err)
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refunds = append(refunds, rf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over refunds: %w", err)
	}

	return refunds, nil
}

// Count returns the total number of refunds
func (r *RefundRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM refunds`).Scan(&count); err != nil {
		r.logger.Error("Failed to count refunds", "error", err)
		return 0, fmt.Errorf("failed to count refunds: %w", err)
	}
	return count, nil
}

// scanRefund maps one row onto a refund, turning NULL reviewer columns back
// into zero values and nil timestamps.
func (r *RefundRepository) scanRefund(row pgx.Row) (*refund.Refund, error) {
	var rf refund.Refund
	var expertBy, financialBy, processedBy, rejectedBy *string
	err := row.Scan(
		&rf.ID,
		&rf.BookingID,
		&rf.UserID,
		&rf.RequestDate,
		&rf.Status,
		&rf.OriginalAmount,
		&rf.PenaltyAmount,
		&rf.RefundAmount,
		&expertBy,
		&rf.ExpertReviewedAt,
		&financialBy,
		&rf.FinancialReviewedAt,
		&processedBy,
		&rf.ProcessedAt,
		&rejectedBy,
		&rf.RejectedAt,
		&rf.RejectReason,
	)
	if err != nil {
		return nil, err
	}

	rf.ExpertReviewedBy = deref(expertBy)
	rf.FinancialReviewedBy = deref(financialBy)
	rf.ProcessedBy = deref(processedBy)
	rf.RejectedBy = deref(rejectedBy)

	return &rf, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
