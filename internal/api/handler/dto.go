package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/commission"
	"github.com/skyfare/booking-finance/internal/domain/refund"
	"github.com/skyfare/booking-finance/internal/domain/wallet"
)

// CommissionModelPayload carries a flight's commission rule set
type CommissionModelPayload struct {
	ID                   string  `json:"id" binding:"omitempty,uuid"`
	CalculationType      string  `json:"calculation_type" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	CharterCommission    float64 `json:"charter_commission"`
	CreatorCommission    float64 `json:"creator_commission"`
	WebServiceCommission float64 `json:"web_service_commission"`
}

// FlightPayload carries a priced flight. Price and taxes are per passenger in
// minor currency units.
type FlightPayload struct {
	ID              string                  `json:"id" binding:"omitempty,uuid"`
	FlightNumber    string                  `json:"flight_number" binding:"required"`
	FromCity        string                  `json:"from_city" binding:"required"`
	ToCity          string                  `json:"to_city" binding:"required"`
	DepartureTime   time.Time               `json:"departure_time"`
	Price           int64                   `json:"price" binding:"min=0"`
	Taxes           int64                   `json:"taxes" binding:"min=0"`
	CommissionModel *CommissionModelPayload `json:"commission_model,omitempty"`
}

// BookingPayload carries the booking a lifecycle event refers to
type BookingPayload struct {
	ID            string        `json:"id" binding:"omitempty,uuid"`
	UserID        string        `json:"user_id" binding:"required"`
	Passengers    int           `json:"passengers" binding:"required,gt=0"`
	PurchasePrice *int64        `json:"purchase_price,omitempty"`
	Flight        FlightPayload `json:"flight" binding:"required"`
}

// BookingEventRequest represents a booking lifecycle event submission
type BookingEventRequest struct {
	Type    string         `json:"type" binding:"required,oneof=BOOKING_CREATED BOOKING_CANCELLED MANUAL_BOOKING"`
	Booking BookingPayload `json:"booking" binding:"required"`
}

// CreateRefundRequest opens a refund for a booking
type CreateRefundRequest struct {
	BookingID      string `json:"booking_id" binding:"required,uuid"`
	OriginalAmount int64  `json:"original_amount" binding:"required,gt=0"`
	PenaltyAmount  int64  `json:"penalty_amount" binding:"min=0"`
}

// RefundActionRequest applies a workflow action to a refund. Reason is
// optional even for rejections.
type RefundActionRequest struct {
	Action string `json:"action" binding:"required,oneof=expert_approve financial_approve process_payment reject"`
	Actor  string `json:"actor" binding:"required"`
	Reason string `json:"reason"`
}

// WalletMutationRequest deposits to or withdraws from a wallet
type WalletMutationRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

// AdmissionRequest asks which search results may be shown to a user
type AdmissionRequest struct {
	CanBypassRateLimit bool            `json:"can_bypass_rate_limit"`
	Flights            []FlightPayload `json:"flights" binding:"required"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// RefundResponse represents a refund in API responses
type RefundResponse struct {
	ID             string `json:"id"`
	BookingID      string `json:"booking_id"`
	UserID         string `json:"user_id"`
	RequestDate    string `json:"request_date"`
	Status         string `json:"status"`
	OriginalAmount int64  `json:"original_amount"`
	PenaltyAmount  int64  `json:"penalty_amount"`
	RefundAmount   int64  `json:"refund_amount"`

	ExpertReviewedBy    string `json:"expert_reviewed_by,omitempty"`
	ExpertReviewedAt    string `json:"expert_reviewed_at,omitempty"`
	FinancialReviewedBy string `json:"financial_reviewed_by,omitempty"`
	FinancialReviewedAt string `json:"financial_reviewed_at,omitempty"`
	ProcessedBy         string `json:"processed_by,omitempty"`
	ProcessedAt         string `json:"processed_at,omitempty"`
	RejectedBy          string `json:"rejected_by,omitempty"`
	RejectedAt          string `json:"rejected_at,omitempty"`
	RejectReason        string `json:"reject_reason,omitempty"`
	Rejected            bool   `json:"rejected"`
}

// WalletBalanceResponse represents a wallet balance in API responses
type WalletBalanceResponse struct {
	UserID    string `json:"user_id"`
	Currency  string `json:"currency"`
	Balance   int64  `json:"balance"`
	UpdatedAt string `json:"updated_at"`
}

// WalletTransactionResponse represents a wallet movement in API responses
type WalletTransactionResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

// JournalTransactionResponse represents one leg of a journal entry
type JournalTransactionResponse struct {
	AccountID string `json:"account_id"`
	Debit     int64  `json:"debit"`
	Credit    int64  `json:"credit"`
}

// JournalEntryResponse represents a journal entry in API responses
type JournalEntryResponse struct {
	ID           string                       `json:"id"`
	Date         string                       `json:"date"`
	Description  string                       `json:"description"`
	Source       string                       `json:"source"`
	BookingID    string                       `json:"booking_id"`
	EventID      string                       `json:"event_id"`
	UserID       string                       `json:"user_id,omitempty"`
	Transactions []JournalTransactionResponse `json:"transactions"`
	TotalDebit   int64                        `json:"total_debit"`
	TotalCredit  int64                        `json:"total_credit"`
}

func mapRefundToResponse(r *refund.Refund) RefundResponse {
	return RefundResponse{
		ID:                  r.ID.String(),
		BookingID:           r.BookingID.String(),
		UserID:              r.UserID,
		RequestDate:         r.RequestDate.Format(time.RFC3339),
		Status:              string(r.Status),
		OriginalAmount:      r.OriginalAmount,
		PenaltyAmount:       r.PenaltyAmount,
		RefundAmount:        r.RefundAmount,
		ExpertReviewedBy:    r.ExpertReviewedBy,
		ExpertReviewedAt:    formatTimePtr(r.ExpertReviewedAt),
		FinancialReviewedBy: r.FinancialReviewedBy,
		FinancialReviewedAt: formatTimePtr(r.FinancialReviewedAt),
		ProcessedBy:         r.ProcessedBy,
		ProcessedAt:         formatTimePtr(r.ProcessedAt),
		RejectedBy:          r.RejectedBy,
		RejectedAt:          formatTimePtr(r.RejectedAt),
		RejectReason:        r.RejectReason,
		Rejected:            r.Rejected(),
	}
}

func mapBalanceToResponse(b *wallet.Balance) WalletBalanceResponse {
	resp := WalletBalanceResponse{
		UserID:   b.UserID,
		Currency: b.Currency,
		Balance:  b.Balance,
	}
	if !b.UpdatedAt.IsZero() {
		resp.UpdatedAt = b.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func mapWalletTransactionToResponse(t *wallet.Transaction) WalletTransactionResponse {
	return WalletTransactionResponse{
		ID:          t.ID.String(),
		UserID:      t.UserID,
		Currency:    t.Currency,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		Date:        t.Date.Format(time.RFC3339),
	}
}

func mapJournalEntryToResponse(e *accounting.JournalEntry) JournalEntryResponse {
	legs := make([]JournalTransactionResponse, len(e.Transactions))
	for i, t := range e.Transactions {
		legs[i] = JournalTransactionResponse{
			AccountID: string(t.AccountID),
			Debit:     t.Debit,
			Credit:    t.Credit,
		}
	}
	return JournalEntryResponse{
		ID:           e.ID.String(),
		Date:         e.Date.Format(time.RFC3339),
		Description:  e.Description,
		Source:       string(e.Source),
		BookingID:    e.BookingID.String(),
		EventID:      e.EventID.String(),
		UserID:       e.UserID,
		Transactions: legs,
		TotalDebit:   e.TotalDebit(),
		TotalCredit:  e.TotalCredit(),
	}
}

// toDomain converts the payload into a domain flight. Missing IDs are
// generated so manually entered flights get identities too.
func (p FlightPayload) toDomain() (booking.Flight, error) {
	id, err := parseOrNewUUID(p.ID)
	if err != nil {
		return booking.Flight{}, err
	}

	f := booking.Flight{
		ID:            id,
		FlightNumber:  p.FlightNumber,
		FromCity:      p.FromCity,
		ToCity:        p.ToCity,
		DepartureTime: p.DepartureTime,
		Price:         p.Price,
		Taxes:         p.Taxes,
	}

	if p.CommissionModel != nil {
		modelID, err := parseOrNewUUID(p.CommissionModel.ID)
		if err != nil {
			return booking.Flight{}, err
		}
		f.CommissionModel = &commission.Model{
			ID:                   modelID,
			CalculationType:      commission.CalculationType(p.CommissionModel.CalculationType),
			CharterCommission:    p.CommissionModel.CharterCommission,
			CreatorCommission:    p.CommissionModel.CreatorCommission,
			WebServiceCommission: p.CommissionModel.WebServiceCommission,
		}
	}

	return f, nil
}

// toDomain converts the payload into a domain booking
func (p BookingPayload) toDomain() (*booking.Booking, error) {
	id, err := parseOrNewUUID(p.ID)
	if err != nil {
		return nil, err
	}

	flight, err := p.Flight.toDomain()
	if err != nil {
		return nil, err
	}

	return &booking.Booking{
		ID:            id,
		UserID:        p.UserID,
		Flight:        flight,
		Passengers:    p.Passengers,
		BookingDate:   time.Now().UTC(),
		Status:        booking.StatusConfirmed,
		PurchasePrice: p.PurchasePrice,
	}, nil
}

func parseOrNewUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
