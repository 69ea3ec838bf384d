package routes

import (
	"net/http"
	"time"

	"github.com/un-caught/agri-invest/controllers/auth"
	"github.com/un-caught/agri-invest/controllers/users"
	"github.com/un-caught/agri-invest/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers the auth and user-facing routes on the given subrouter.
func UsersRoutes(api *mux.Router) {
	// Auth endpoints: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	// Session endpoints: 120 per IP per minute
	userLimiter := middleware.NewIPRateLimiter(120, time.Minute)

	// Register & Login
	api.Handle("/auth/register", loginLimiter.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/auth/login", loginLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/auth/refresh", loginLimiter.Middleware(http.HandlerFunc(auth.RefreshHandler))).Methods(http.MethodPost)
	api.Handle("/auth/logout", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(auth.LogoutHandler)))).Methods(http.MethodPost)

	// Profile
	api.Handle("/users/profile", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.GetProfileHandler)))).Methods(http.MethodGet)
	api.Handle("/users/profile", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.UpdateProfileHandler)))).Methods(http.MethodPut)
	api.Handle("/users/change-password", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.ChangePasswordHandler)))).Methods(http.MethodPost)

	// Investments
	api.Handle("/users/investments", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.CreateInvestmentHandler)))).Methods(http.MethodPost)
	api.Handle("/users/investments", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.ListInvestmentsHandler)))).Methods(http.MethodGet)
	api.Handle("/users/investments/active", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.GetActiveInvestmentsHandler)))).Methods(http.MethodGet)
	api.Handle("/users/investments/summary", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.InvestmentSummaryHandler)))).Methods(http.MethodGet)
	api.Handle("/users/investments/withdrawable", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.WithdrawableInvestmentsHandler)))).Methods(http.MethodGet)
	api.Handle("/users/investments/{id:[0-9]+}", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.GetInvestmentHandler)))).Methods(http.MethodGet)
	api.Handle("/users/investments/{id:[0-9]+}/complete", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.CompleteInvestmentHandler)))).Methods(http.MethodPost)
	api.Handle("/users/investments/{id:[0-9]+}", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.CancelInvestmentHandler)))).Methods(http.MethodDelete)

	// Payment poll-verify fallback
	api.Handle("/users/payments/verify", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.VerifyPaymentHandler)))).Methods(http.MethodPost)

	// Ledger
	api.Handle("/users/transactions", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.ListTransactionsHandler)))).Methods(http.MethodGet)
	api.Handle("/users/transactions/recent", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.RecentTransactionsHandler)))).Methods(http.MethodGet)

	// Withdrawals
	api.Handle("/users/withdrawals", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.CreateWithdrawalHandler)))).Methods(http.MethodPost)
	api.Handle("/users/withdrawals", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.ListWithdrawalsHandler)))).Methods(http.MethodGet)
}
