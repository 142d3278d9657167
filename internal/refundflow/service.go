// Package refundflow drives the staged human-approval refund workflow:
// expert review, financial review, payment, with rejection possible at any
// stage before completion.
package refundflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/outbox"
	"github.com/skyfare/booking-finance/internal/domain/refund"
	"github.com/skyfare/booking-finance/internal/domain/wallet"
	"github.com/skyfare/booking-finance/internal/journal"
	"github.com/skyfare/booking-finance/internal/platform/messaging/producers"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
)

// WalletCrediter credits a wallet inside the caller's transaction. Satisfied
// by the wallet ledger service.
type WalletCrediter interface {
	CreditTx(ctx context.Context, tx pgx.Tx, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error)
}

// Command is an admin action applied to a refund
type Command struct {
	Action        refund.Action
	Actor         string
	Reason        string
	CorrelationID string
}

// Service applies workflow commands to refunds. Commands against the same
// refund are serialized, and duplicate commands are idempotent no-ops.
type Service struct {
	logger   *slog.Logger
	db       persistence.TxRunner
	refunds  refund.Repository
	bookings booking.Repository
	outbox   outbox.Repository
	engine   *journal.Engine
	wallets  WalletCrediter
	activity producers.MessagePublisher // nil when activity logging is disabled

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(
	logger *slog.Logger,
	db persistence.TxRunner,
	refunds refund.Repository,
	bookings booking.Repository,
	outboxRepo outbox.Repository,
	engine *journal.Engine,
	wallets WalletCrediter,
	activity producers.MessagePublisher,
) *Service {
	return &Service{
		logger:   logger,
		db:       db,
		refunds:  refunds,
		bookings: bookings,
		outbox:   outboxRepo,
		engine:   engine,
		wallets:  wallets,
		activity: activity,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Service) refundLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Request opens a refund for a booking. A booking can hold at most one open
// refund at a time.
func (s *Service) Request(ctx context.Context, bookingID uuid.UUID, originalAmount, penaltyAmount int64) (*refund.Refund, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	existing, err := s.refunds.GetOpenByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, refund.ErrAlreadyRequested
	}

	r, err := refund.New(bookingID, b.UserID, originalAmount, penaltyAmount)
	if err != nil {
		return nil, err
	}

	if err := s.refunds.Create(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("Opened refund request",
		"refund_id", r.ID,
		"booking_id", bookingID,
		"refund_amount", r.RefundAmount,
	)
	return r, nil
}

// Get returns a refund by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	return s.refunds.GetByID(ctx, id)
}

// List returns a page of refunds, newest first
func (s *Service) List(ctx context.Context, page, perPage int) ([]*refund.Refund, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	refunds, err := s.refunds.List(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.refunds.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return refunds, total, nil
}

// Apply runs one workflow command against a refund. A command whose source
// state does not match the refund's current state returns OutcomeNoOp with
// the state left untouched, so retried commands are harmless.
func (s *Service) Apply(ctx context.Context, refundID uuid.UUID, cmd Command) (*refund.Result, error) {
	if cmd.Actor == "" {
		return nil, refund.ErrMissingActor
	}

	lock := s.refundLock(refundID)
	lock.Lock()
	defer lock.Unlock()

	r, err := s.refunds.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}

	from := r.Status
	now := time.Now().UTC()

	switch cmd.Action {
	case refund.ActionExpertApprove:
		if r.Status != refund.StatusPendingExpertReview {
			return noOp(from), nil
		}
		r.Status = refund.StatusPendingFinancialReview
		r.ExpertReviewedBy = cmd.Actor
		r.ExpertReviewedAt = &now
		if err := s.refunds.Update(ctx, r); err != nil {
			return nil, err
		}

	case refund.ActionFinancialApprove:
		if r.Status != refund.StatusPendingFinancialReview {
			return noOp(from), nil
		}
		r.Status = refund.StatusPendingPayment
		r.FinancialReviewedBy = cmd.Actor
		r.FinancialReviewedAt = &now
		if err := s.refunds.Update(ctx, r); err != nil {
			return nil, err
		}

	case refund.ActionProcessPayment:
		if r.Status != refund.StatusPendingPayment {
			return noOp(from), nil
		}
		if err := s.processPayment(ctx, r, cmd, now); err != nil {
			return nil, err
		}

	case refund.ActionReject:
		// An empty reason is recorded as-is; RejectedAt marks the rejection
		if r.Status.Terminal() {
			return noOp(from), nil
		}
		r.Status = refund.StatusRejected
		r.RejectedBy = cmd.Actor
		r.RejectedAt = &now
		r.RejectReason = cmd.Reason
		if err := s.refunds.Update(ctx, r); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %q", refund.ErrUnknownAction, cmd.Action)
	}

	s.logger.Info("Applied refund action",
		"refund_id", r.ID,
		"action", cmd.Action,
		"actor", cmd.Actor,
		"from", from,
		"to", r.Status,
	)
	s.publishActivity(ctx, r, cmd, from)

	return &refund.Result{Outcome: refund.OutcomeTransitioned, From: from, To: r.Status}, nil
}

// processPayment pays the refund out. The wallet credit, the journal entry
// staging, the booking status and the refund completion commit in one
// database transaction, so the payout either fully happens or not at all.
func (s *Service) processPayment(ctx context.Context, r *refund.Refund, cmd Command, now time.Time) error {
	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		b, err := s.bookings.WithTx(tx).GetByID(ctx, r.BookingID)
		if err != nil {
			return fmt.Errorf("failed to load booking for refund %s: %w", r.ID, err)
		}

		if r.RefundAmount > 0 {
			entry, err := s.engine.PostRefund(b, r, cmd.CorrelationID)
			if err != nil {
				return err
			}

			msg, err := outbox.NewMessage(entry)
			if err != nil {
				return fmt.Errorf("failed to stage journal entry for refund %s: %w", r.ID, err)
			}
			if err := s.outbox.WithTx(tx).Create(ctx, msg); err != nil {
				return fmt.Errorf("failed to create outbox message for refund %s: %w", r.ID, err)
			}

			description := fmt.Sprintf("Refund for booking %s", b.ID)
			if _, err := s.wallets.CreditTx(ctx, tx, b.UserID, wallet.CurrencyIRR, r.RefundAmount, wallet.TypeRefund, description); err != nil {
				return fmt.Errorf("failed to credit wallet for refund %s: %w", r.ID, err)
			}
		}

		if err := s.bookings.WithTx(tx).UpdateStatus(ctx, b.ID, booking.StatusRefunded); err != nil {
			return fmt.Errorf("failed to mark booking %s refunded: %w", b.ID, err)
		}

		r.Status = refund.StatusCompleted
		r.ProcessedBy = cmd.Actor
		r.ProcessedAt = &now
		if err := s.refunds.WithTx(tx).Update(ctx, r); err != nil {
			return fmt.Errorf("failed to complete refund %s: %w", r.ID, err)
		}

		return nil
	})
}

func noOp(state refund.Status) *refund.Result {
	return &refund.Result{Outcome: refund.OutcomeNoOp, From: state, To: state}
}

type activityRecord struct {
	Kind     string `json:"kind"`
	RefundID string `json:"refund_id"`
	Action   string `json:"action"`
	Actor    string `json:"actor"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func (s *Service) publishActivity(ctx context.Context, r *refund.Refund, cmd Command, from refund.Status) {
	if s.activity == nil {
		return
	}
	record := activityRecord{
		Kind:     "REFUND_ACTION",
		RefundID: r.ID.String(),
		Action:   string(cmd.Action),
		Actor:    cmd.Actor,
		From:     string(from),
		To:       string(r.Status),
	}
	if err := s.activity.Publish(ctx, r.ID.String(), record); err != nil {
		s.logger.Warn("Failed to publish refund activity record", "refund_id", r.ID, "error", err)
	}
}
