package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jask/moneyboard/internal/api/middleware"
)

// ListAccounts handles GET /api/accounts?days=N
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", 0)
	if !ok || days > 3650 {
		middleware.WriteError(w, http.StatusBadRequest, "days must be between 0 and 3650")
		return
	}
	accounts, err := h.Dashboard.AccountsWithHistory(r.Context(), days)
	if err != nil {
		h.fail(w, r, err, "list accounts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, accounts)
}

// RenameAccount handles POST /api/accounts/{id}/name
func (h *Handler) RenameAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if err := h.accounts().Rename(r.Context(), mux.Vars(r)["id"], name); err != nil {
		h.fail(w, r, err, "rename account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Account name updated"})
}

// SetAccountType handles POST /api/accounts/{id}/type
func (h *Handler) SetAccountType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if !decode(w, r, &req) {
		return
	}
	typ := strings.TrimSpace(req.Type)
	if typ == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Type is required")
		return
	}
	if err := h.accounts().SetType(r.Context(), mux.Vars(r)["id"], typ); err != nil {
		h.fail(w, r, err, "update account type")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Account type updated"})
}
