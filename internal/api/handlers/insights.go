package handlers

import (
	"net/http"

	"github.com/jask/moneyboard/internal/api/middleware"
)

// Ask handles POST /api/insights
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.Insights == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "AI insights are not configured")
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Insights.Ask(r.Context(), req.Prompt)
	if err != nil {
		h.fail(w, r, err, "answer insight")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
