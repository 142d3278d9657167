package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyfare/booking-finance/internal/api/handler"
	"github.com/skyfare/booking-finance/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	bookingHandler *handler.BookingHandler,
	refundHandler *handler.RefundHandler,
	walletHandler *handler.WalletHandler,
	journalHandler *handler.JournalHandler,
	searchHandler *handler.SearchHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Booking lifecycle events, processed asynchronously
		bookings := v1.Group("/bookings")
		{
			bookings.POST("/events", bookingHandler.SubmitEvent)
			bookings.GET("/:id/journal", journalHandler.GetByBookingID)
		}

		// Refund workflow
		refunds := v1.Group("/refunds")
		{
			refunds.POST("", refundHandler.Create)
			refunds.GET("", refundHandler.List)
			refunds.GET("/:id", refundHandler.GetByID)
			refunds.POST("/:id/actions", refundHandler.ApplyAction)
		}

		// Wallet operations
		wallets := v1.Group("/wallets/:user_id/:currency")
		{
			wallets.GET("", walletHandler.GetBalance)
			wallets.GET("/transactions", walletHandler.GetTransactions)
			wallets.POST("/deposits", walletHandler.Deposit)
			wallets.POST("/withdrawals", walletHandler.Withdraw)
		}

		// Journal reads and the chart of accounts
		journal := v1.Group("/journal")
		{
			journal.GET("", journalHandler.List)
			journal.GET("/:id", journalHandler.GetByID)
		}
		v1.GET("/accounts", journalHandler.Accounts)

		// Search result admission control
		v1.POST("/search/admission", searchHandler.Admit)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
