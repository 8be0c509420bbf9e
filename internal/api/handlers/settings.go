package handlers

import (
	"net/http"

	"github.com/jask/moneyboard/internal/api/middleware"
)

type configResponse struct {
	DisplayName            *string `json:"displayName"`
	ClassifierTrainingDate *string `json:"classifierTrainingDate"`
	AutoCategorize         bool    `json:"autoCategorize"`
	AutoMarkDuplicates     bool    `json:"autoMarkDuplicates"`
	SimpleFINConfigured    bool    `json:"simplefinConfigured"`
}

// GetConfig handles GET /api/config. The access URL is never returned.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Settings.Get(r.Context())
	if err != nil {
		h.fail(w, r, err, "load config")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, configResponse{
		DisplayName:            cfg.DisplayName,
		ClassifierTrainingDate: cfg.ClassifierTrainingDate,
		AutoCategorize:         cfg.AutoCategorize,
		AutoMarkDuplicates:     cfg.AutoMarkDuplicates,
		SimpleFINConfigured:    cfg.HasSimpleFIN(),
	})
}

// SetDisplayName handles POST /api/config/display-name
func (h *Handler) SetDisplayName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.Settings.SetDisplayName(r.Context(), req.Name); err != nil {
		h.fail(w, r, err, "save display name")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Display name saved"})
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, what string, set func(*http.Request, bool) error) {
	var req toggleRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		middleware.WriteError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := set(r, *req.Enabled); err != nil {
		h.fail(w, r, err, "save "+what)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

// SetAutoCategorize handles POST /api/config/auto-categorize
func (h *Handler) SetAutoCategorize(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "auto-categorize", func(r *http.Request, on bool) error {
		return h.Settings.SetAutoCategorize(r.Context(), on)
	})
}

// SetAutoMarkDuplicates handles POST /api/config/auto-mark-duplicates
func (h *Handler) SetAutoMarkDuplicates(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "auto-mark-duplicates", func(r *http.Request, on bool) error {
		return h.Settings.SetAutoMarkDuplicates(r.Context(), on)
	})
}

// ConnectSimpleFIN handles POST /api/config/simplefin
func (h *Handler) ConnectSimpleFIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SetupToken string `json:"setupToken"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.SetupToken == "" {
		middleware.WriteError(w, http.StatusBadRequest, "setupToken is required")
		return
	}
	if err := h.Settings.ConnectSimpleFIN(r.Context(), req.SetupToken); err != nil {
		h.fail(w, r, err, "connect SimpleFIN")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "SimpleFIN connected"})
}

// DeleteConfig handles DELETE /api/config
func (h *Handler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.Delete(r.Context()); err != nil {
		h.fail(w, r, err, "delete config")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "User config deleted"})
}
