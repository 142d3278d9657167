package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/skyfare/booking-finance/internal/api/service"
	"github.com/skyfare/booking-finance/internal/domain/wallet"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	wallets service.WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, wallets service.WalletService) *WalletHandler {
	return &WalletHandler{
		wallets: wallets,
		logger:  logger,
	}
}

// GetBalance returns the wallet balance, zero for untouched wallets
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.Param("user_id")
	currency := c.Param("currency")

	balance, err := h.wallets.Balance(c.Request.Context(), userID, currency)
	if err != nil {
		h.logger.Error("Failed to get wallet balance", "user_id", userID, "currency", currency, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapBalanceToResponse(balance))
}

// Deposit credits a wallet
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.mutate(c, wallet.TypeDeposit)
}

// Withdraw debits a wallet. Returns 422 when the balance does not cover the
// requested amount.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.mutate(c, wallet.TypeWithdrawal)
}

func (h *WalletHandler) mutate(c *gin.Context, txType wallet.TransactionType) {
	userID := c.Param("user_id")
	currency := c.Param("currency")

	var req WalletMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var (
		t   *wallet.Transaction
		err error
	)
	if txType == wallet.TypeDeposit {
		t, err = h.wallets.Credit(c.Request.Context(), userID, currency, req.Amount, txType, req.Description)
	} else {
		t, err = h.wallets.Debit(c.Request.Context(), userID, currency, req.Amount, txType, req.Description)
	}

	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInsufficientFunds):
			RespondUnprocessable(c, "INSUFFICIENT_FUNDS", "Wallet balance does not cover the requested amount")
		case errors.Is(err, wallet.ErrInvalidAmount),
			errors.Is(err, wallet.ErrEmptyUserID),
			errors.Is(err, wallet.ErrInvalidCurrencyFormat):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to apply wallet mutation", "user_id", userID, "currency", currency, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapWalletTransactionToResponse(t))
}

// GetTransactions returns paginated wallet history, newest first
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := c.Param("user_id")
	currency := c.Param("currency")

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	transactions, total, err := h.wallets.Transactions(c.Request.Context(), userID, currency, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get wallet transactions", "user_id", userID, "currency", currency, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]WalletTransactionResponse, len(transactions))
	for i, t := range transactions {
		responses[i] = mapWalletTransactionToResponse(t)
	}

	RespondWithPaginatedData(c, 200, gin.H{"transactions": responses}, pagination.Page, pagination.PerPage, int(total))
}
