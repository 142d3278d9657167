package refund

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines refund persistence operations
type Repository interface {
	Create(ctx context.Context, r *Refund) error
	GetByID(ctx context.Context, id uuid.UUID) (*Refund, error)
	GetOpenByBookingID(ctx context.Context, bookingID uuid.UUID) (*Refund, error)
	Update(ctx context.Context, r *Refund) error
	List(ctx context.Context, limit, offset int) ([]*Refund, error)
	Count(ctx context.Context) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrRefundNotFound indicates a missing refund
type ErrRefundNotFound struct {
	RefundID uuid.UUID
}

func (e ErrRefundNotFound) Error() string {
	return "refund not found: " + e.RefundID.String()
}

// Is matches any ErrRefundNotFound when the target carries a nil ID
func (e ErrRefundNotFound) Is(target error) bool {
	t, ok := target.(ErrRefundNotFound)
	if !ok {
		return false
	}
	if t.RefundID == uuid.Nil {
		return true
	}
	return e.RefundID == t.RefundID
}
