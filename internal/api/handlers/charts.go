package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jask/moneyboard/internal/api/middleware"
	"github.com/jask/moneyboard/internal/charts"
)

// Chart handles GET /api/charts/{name}?range=7d|30d|90d|365d
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng := charts.ParseTimeRange(q.Get("range"))
	ctx := r.Context()

	var (
		out interface{}
		err error
	)
	switch name := mux.Vars(r)["name"]; name {
	case "balances":
		view := charts.ViewByAccount
		if q.Get("view") == string(charts.ViewByType) {
			view = charts.ViewByType
		}
		out, err = h.Dashboard.Balances(ctx, rng, view)
	case "weekly":
		out, err = h.Dashboard.Weekly(ctx)
	case "cash-savings-investments":
		out, err = h.Dashboard.CashSavingsInvestments(ctx, rng)
	case "cumulative-spend":
		out, err = h.Dashboard.CumulativeSpend(ctx, rng)
	case "spend":
		period := charts.PeriodDay
		if q.Get("period") == string(charts.PeriodWeek) {
			period = charts.PeriodWeek
		}
		out, err = h.Dashboard.Spend(ctx, rng, period)
	case "composition":
		out, err = h.Dashboard.Composition(ctx, rng)
	case "summary":
		out, err = h.Dashboard.Summary(ctx, rng)
	default:
		middleware.WriteError(w, http.StatusNotFound, "Unknown chart "+name)
		return
	}
	if err != nil {
		h.fail(w, r, err, "build chart")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}
