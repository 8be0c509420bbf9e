// Package api assembles the HTTP surface.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/jask/moneyboard/internal/api/handlers"
	"github.com/jask/moneyboard/internal/api/middleware"
)

// NewRouter registers every route behind request-id, logging, recovery and
// CORS middleware.
func NewRouter(h *handlers.Handler, log zerolog.Logger, allowedOrigin string) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logger(log), middleware.Recovery(log))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/name", h.RenameAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}/type", h.SetAccountType).Methods(http.MethodPost)

	api.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/export.csv", h.ExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/transactions/by-payee", h.AssignPayee).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}/category", h.SetCategory).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}/hidden", h.SetHidden).Methods(http.MethodPost)
	api.HandleFunc("/categories", h.Categories).Methods(http.MethodGet)

	api.HandleFunc("/backlog", h.NextBacklogItem).Methods(http.MethodGet)
	api.HandleFunc("/backlog/count", h.BacklogCount).Methods(http.MethodGet)
	api.HandleFunc("/transfers/mark", h.MarkTransfers).Methods(http.MethodPost)

	api.HandleFunc("/sync/recent", h.SyncRecent).Methods(http.MethodPost)
	api.HandleFunc("/sync/full", h.SyncFull).Methods(http.MethodPost)
	api.HandleFunc("/classifier/train", h.Train).Methods(http.MethodPost)
	api.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.GetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.CancelTask).Methods(http.MethodDelete)

	api.HandleFunc("/config", h.GetConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", h.DeleteConfig).Methods(http.MethodDelete)
	api.HandleFunc("/config/display-name", h.SetDisplayName).Methods(http.MethodPost)
	api.HandleFunc("/config/auto-categorize", h.SetAutoCategorize).Methods(http.MethodPost)
	api.HandleFunc("/config/auto-mark-duplicates", h.SetAutoMarkDuplicates).Methods(http.MethodPost)
	api.HandleFunc("/config/simplefin", h.ConnectSimpleFIN).Methods(http.MethodPost)

	api.HandleFunc("/charts/{name}", h.Chart).Methods(http.MethodGet)
	api.HandleFunc("/insights", h.Ask).Methods(http.MethodPost)

	// Preflight requests never reach method matching.
	return middleware.CORS(allowedOrigin)(r)
}
