package routes

import (
	"net/http"

	"github.com/un-caught/agri-invest/controllers/admins"
	"github.com/un-caught/agri-invest/middleware"

	"github.com/gorilla/mux"
)

func SetAdminRoutes(api *mux.Router) {
	adminRouter := api.PathPrefix("/admins").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	// Withdrawal management
	adminRouter.Handle("/withdrawals", http.HandlerFunc(admins.GetWithdrawalsHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/withdrawals/{id:[0-9]+}", http.HandlerFunc(admins.GetWithdrawalHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/withdrawals/{id:[0-9]+}/notes", http.HandlerFunc(admins.AddWithdrawalNoteHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/withdrawals/{id:[0-9]+}/{action:approve|reject|mark_paid}", http.HandlerFunc(admins.WithdrawalActionHandler)).Methods(http.MethodPost)

	// Package management
	adminRouter.Handle("/packages", http.HandlerFunc(admins.ListPackagesAdminHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/packages", http.HandlerFunc(admins.CreatePackageHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/packages/stats", http.HandlerFunc(admins.PackageStatsHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/packages/{id:[0-9]+}", http.HandlerFunc(admins.UpdatePackageHandler)).Methods(http.MethodPut)
	adminRouter.Handle("/packages/{id:[0-9]+}", http.HandlerFunc(admins.DeletePackageHandler)).Methods(http.MethodDelete)

	// User management
	adminRouter.Handle("/users", http.HandlerFunc(admins.GetUsersHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/users/{id:[0-9]+}", http.HandlerFunc(admins.UpdateUserHandler)).Methods(http.MethodPut)

	// Investment oversight
	adminRouter.Handle("/investments", http.HandlerFunc(admins.GetInvestmentsHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/investments/stats", http.HandlerFunc(admins.InvestmentStatsHandler)).Methods(http.MethodGet)
}
