package refund

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrMissingActor     = errors.New("refund action requires an actor identity")
	ErrUnknownAction    = errors.New("unknown refund action")
	ErrNegativeAmount   = errors.New("refund amounts must be non-negative")
	ErrPenaltyExceeds   = errors.New("penalty exceeds original amount")
	ErrAlreadyRequested = errors.New("booking already has an open refund request")
)

// Status defines the refund workflow states. Transitions are monotonic:
// once a terminal state is reached no further transition succeeds.
type Status string

const (
	StatusPendingExpertReview    Status = "PENDING_EXPERT_REVIEW"
	StatusPendingFinancialReview Status = "PENDING_FINANCIAL_REVIEW"
	StatusPendingPayment         Status = "PENDING_PAYMENT"
	StatusCompleted              Status = "COMPLETED"
	StatusRejected               Status = "REJECTED"
)

// Terminal reports whether the status admits no further transitions
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Action is an admin command against the refund workflow
type Action string

const (
	ActionExpertApprove    Action = "expert_approve"
	ActionFinancialApprove Action = "financial_approve"
	ActionProcessPayment   Action = "process_payment"
	ActionReject           Action = "reject"
)

// Outcome distinguishes a real state change from an idempotent no-op.
// Duplicate admin actions (retries, double clicks) yield OutcomeNoOp rather
// than an error.
type Outcome string

const (
	OutcomeTransitioned Outcome = "TRANSITIONED"
	OutcomeNoOp         Outcome = "NO_OP"
)

// Result reports what an action did to a refund
type Result struct {
	Outcome Outcome `json:"outcome"`
	From    Status  `json:"from"`
	To      Status  `json:"to"`
}

// Refund tracks a staged human-approval refund for a booking. Amounts are in
// minor currency units; RefundAmount = OriginalAmount - PenaltyAmount.
// Reviewer metadata is recorded per stage; a nil timestamp means the stage
// has not happened, which keeps an empty reject reason distinguishable from
// "not rejected".
type Refund struct {
	ID             uuid.UUID `json:"id"`
	BookingID      uuid.UUID `json:"booking_id"`
	UserID         string    `json:"user_id"`
	RequestDate    time.Time `json:"request_date"`
	Status         Status    `json:"status"`
	OriginalAmount int64     `json:"original_amount"`
	PenaltyAmount  int64     `json:"penalty_amount"`
	RefundAmount   int64     `json:"refund_amount"`

	ExpertReviewedBy    string     `json:"expert_reviewed_by,omitempty"`
	ExpertReviewedAt    *time.Time `json:"expert_reviewed_at,omitempty"`
	FinancialReviewedBy string     `json:"financial_reviewed_by,omitempty"`
	FinancialReviewedAt *time.Time `json:"financial_reviewed_at,omitempty"`
	ProcessedBy         string     `json:"processed_by,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
	RejectedBy          string     `json:"rejected_by,omitempty"`
	RejectedAt          *time.Time `json:"rejected_at,omitempty"`
	RejectReason        string     `json:"reject_reason,omitempty"`
}

// New validates and creates a refund request awaiting expert review
func New(bookingID uuid.UUID, userID string, originalAmount, penaltyAmount int64) (*Refund, error) {
	if originalAmount < 0 || penaltyAmount < 0 {
		return nil, ErrNegativeAmount
	}
	if penaltyAmount > originalAmount {
		return nil, ErrPenaltyExceeds
	}

	return &Refund{
		ID:             uuid.New(),
		BookingID:      bookingID,
		UserID:         userID,
		RequestDate:    time.Now().UTC(),
		Status:         StatusPendingExpertReview,
		OriginalAmount: originalAmount,
		PenaltyAmount:  penaltyAmount,
		RefundAmount:   originalAmount - penaltyAmount,
	}, nil
}

// Rejected reports whether the refund was rejected, independent of whether a
// reason was supplied.
func (r *Refund) Rejected() bool {
	return r.RejectedAt != nil
}
