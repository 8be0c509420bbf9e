package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/gorilla/mux"

	"github.com/jask/moneyboard/internal/api/middleware"
	"github.com/jask/moneyboard/internal/database/repository"
)

func listFilters(r *http.Request) repository.TransactionFilters {
	q := r.URL.Query()
	include, _ := strconv.ParseBool(q.Get("includeHidden"))
	return repository.TransactionFilters{
		AccountID:     q.Get("account"),
		Category:      q.Get("category"),
		IncludeHidden: include,
	}
}

// ListTransactions handles GET /api/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactions().List(r.Context(), listFilters(r))
	if err != nil {
		h.fail(w, r, err, "list transactions")
		return
	}
	if txs == nil {
		txs = []repository.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

type csvTransaction struct {
	ID          string `csv:"id"`
	Date        string `csv:"date"`
	AccountID   string `csv:"account_id"`
	Amount      string `csv:"amount"`
	Description string `csv:"description"`
	Payee       string `csv:"payee"`
	Category    string `csv:"category"`
	Pending     bool   `csv:"pending"`
}

// ExportCSV handles GET /api/transactions/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactions().List(r.Context(), listFilters(r))
	if err != nil {
		h.fail(w, r, err, "export transactions")
		return
	}
	rows := make([]csvTransaction, 0, len(txs))
	for _, t := range txs {
		row := csvTransaction{
			ID:          t.ID,
			Date:        time.Unix(t.EffectiveTime(), 0).UTC().Format("2006-01-02"),
			AccountID:   t.AccountID,
			Amount:      t.Amount,
			Description: t.Description,
			Category:    t.Category,
			Pending:     t.Pending,
		}
		if t.Payee != nil {
			row.Payee = *t.Payee
		}
		rows = append(rows, row)
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := gocsv.Marshal(rows, w); err != nil {
		h.Log.Error().Err(err).Msg("csv export failed mid-stream")
	}
}

// SetCategory handles POST /api/transactions/{id}/category
func (h *Handler) SetCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Backlog.Assign(r.Context(), mux.Vars(r)["id"], req.Category)
	if err != nil {
		h.fail(w, r, err, "update category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// SetHidden handles POST /api/transactions/{id}/hidden
func (h *Handler) SetHidden(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hidden *bool `json:"hidden"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Hidden == nil {
		middleware.WriteError(w, http.StatusBadRequest, "hidden is required")
		return
	}
	if err := h.transactions().SetHidden(r.Context(), mux.Vars(r)["id"], *req.Hidden); err != nil {
		h.fail(w, r, err, "update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"hidden": *req.Hidden})
}

// AssignPayee handles POST /api/transactions/by-payee
func (h *Handler) AssignPayee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payee    string `json:"payee"`
		Category string `json:"category"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Payee == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Payee is required")
		return
	}
	n, err := h.Backlog.AssignPayee(r.Context(), req.Payee, req.Category)
	if err != nil {
		h.fail(w, r, err, "update transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Categories handles GET /api/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Backlog.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err, "list categories")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cats)
}

// MarkTransfers handles POST /api/transfers/mark
func (h *Handler) MarkTransfers(w http.ResponseWriter, r *http.Request) {
	n, err := h.transactions().MarkInternalTransfers(r.Context(), nil)
	if err != nil {
		h.fail(w, r, err, "mark internal transfers")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Internal transfers marked",
		"changedCount": n,
	})
}

// NextBacklogItem handles GET /api/backlog?skip=N
func (h *Handler) NextBacklogItem(w http.ResponseWriter, r *http.Request) {
	skip, ok := queryInt(r, "skip", 0)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	item, err := h.Backlog.Next(r.Context(), skip)
	if err != nil {
		h.fail(w, r, err, "load backlog")
		return
	}
	if item == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"item": nil, "remaining": 0})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"item": item, "remaining": item.Remaining})
}

// BacklogCount handles GET /api/backlog/count
func (h *Handler) BacklogCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Backlog.Count(r.Context())
	if err != nil {
		h.fail(w, r, err, "count backlog")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}
