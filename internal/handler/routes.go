package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/kasapp/kas-backend/internal/middleware"
)

// Handlers bundles every HTTP handler for route registration
type Handlers struct {
	Account     *AccountHandler
	Category    *CategoryHandler
	Budget      *BudgetHandler
	Tag         *TagHandler
	Transaction *TransactionHandler
	Transfer    *TransferHandler
	Import      *ImportHandler
	Receipt     *ReceiptHandler
	Dashboard   *DashboardHandler
	Onboarding  *OnboardingHandler
	WebSocket   *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Account routes
	accounts := api.Group("/accounts")
	accounts.POST("", h.Account.CreateAccount)
	accounts.GET("", h.Account.GetAccounts)
	accounts.GET("/:id", h.Account.GetAccount)
	accounts.PATCH("/:id", h.Account.UpdateAccount)
	accounts.DELETE("/:id", h.Account.DeleteAccount)

	// Category routes
	categories := api.Group("/categories")
	categories.POST("", h.Category.CreateCategory)
	categories.GET("", h.Category.GetCategories)
	categories.PATCH("/:id", h.Category.UpdateCategory)
	categories.DELETE("/:id", h.Category.DeleteCategory)

	// Budget routes
	budgets := api.Group("/budgets")
	budgets.POST("", h.Budget.CreateBudget)
	budgets.GET("", h.Budget.GetBudgets)
	budgets.PATCH("/:id", h.Budget.UpdateBudget)
	budgets.DELETE("/:id", h.Budget.DeleteBudget)

	// Tag routes
	api.GET("/tags", h.Tag.GetTags)

	// Transaction routes
	transactions := api.Group("/transactions")
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.GetTransactions)
	transactions.GET("/count", h.Transaction.CountTransactions)
	transactions.GET("/:id", h.Transaction.GetTransaction)
	transactions.PATCH("/:id", h.Transaction.UpdateTransaction)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)
	transactions.POST("/:id/receipt", h.Receipt.UploadReceipt)
	transactions.GET("/:id/receipt", h.Receipt.GetReceiptURL)
	transactions.DELETE("/:id/receipt", h.Receipt.DeleteReceipt)

	// Transfer routes
	transfers := api.Group("/transfers")
	transfers.POST("", h.Transfer.CreateTransfer)
	transfers.GET("/:id", h.Transfer.GetTransfer)
	transfers.GET("/:id/pair", h.Transfer.GetPairedTransaction)
	transfers.PATCH("/:id", h.Transfer.UpdateTransfer)
	transfers.DELETE("/:id", h.Transfer.DeleteTransfer)

	// Import routes
	imports := api.Group("/imports")
	imports.POST("/parse", h.Import.ParseFile)
	imports.POST("/preview", h.Import.PreviewImport)
	imports.POST("/execute", h.Import.ExecuteImport)
	imports.GET("/profiles", h.Import.GetProfiles)
	imports.DELETE("/profiles/:id", h.Import.DeleteProfile)

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.GET("/stats", h.Dashboard.GetStats)
	dashboard.GET("/recent", h.Dashboard.GetRecent)

	// Onboarding routes
	onboarding := api.Group("/onboarding")
	onboarding.GET("/status", h.Onboarding.GetStatus)
	onboarding.POST("/complete", h.Onboarding.Complete)

	// WebSocket endpoint authenticates via query token, outside the JWT
	// header middleware.
	e.GET("/ws", h.WebSocket.HandleWS)
}
