// Package handlers implements the JSON endpoints.
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jask/moneyboard/internal/api/middleware"
	"github.com/jask/moneyboard/internal/database/repository"
	"github.com/jask/moneyboard/internal/insights"
	"github.com/jask/moneyboard/internal/logger"
	"github.com/jask/moneyboard/internal/service"
	"github.com/jask/moneyboard/internal/simplefin"
)

const maxBody = 1 << 20

// Trainer retrains the classifier.
type Trainer interface {
	Train(ctx context.Context) (service.ClassifierRun, error)
}

// Asker answers insight questions.
type Asker interface {
	Ask(ctx context.Context, prompt string) (*insights.Result, error)
}

// Handler serves every endpoint. Nil optional collaborators (Trainer,
// Insights) make their endpoints answer 503.
type Handler struct {
	DB        *sql.DB
	Sync      service.Syncer
	Backlog   *service.BacklogService
	Settings  *service.SettingsService
	Dashboard *service.DashboardService
	Trainer   Trainer
	Tasks     *service.TaskRegistry
	Insights  Asker
	Log       zerolog.Logger
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) accounts() *repository.AccountRepo { return repository.NewAccountRepo(h.DB) }

func (h *Handler) transactions() *repository.TransactionRepo {
	return repository.NewTransactionRepo(h.DB)
}

// decode reads a JSON body into dst, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// fail maps err to a status and message. Anything unrecognized is a 500
// whose detail only goes to the log.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, what string) {
	var (
		insightErr *insights.Error
		apiErr     *simplefin.APIError
	)
	switch {
	case errors.As(err, &insightErr):
		body := map[string]string{"error": insightErr.Message}
		if insightErr.Raw != "" {
			body["raw"] = insightErr.Raw
		}
		middleware.WriteJSON(w, insightErr.Status, body)
	case errors.As(err, &apiErr):
		middleware.WriteError(w, http.StatusBadGateway, apiErr.Error())
	case errors.Is(err, service.ErrSimpleFINNotConfigured):
		middleware.WriteError(w, http.StatusBadRequest, "SimpleFIN URL not found in database. Please initialize it first.")
	case errors.Is(err, simplefin.ErrInvalidSetupToken), errors.Is(err, simplefin.ErrInvalidAccessURL),
		errors.Is(err, service.ErrEmptyCategory), errors.Is(err, service.ErrEmptyDisplayName):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, simplefin.ErrInvalidPayload):
		middleware.WriteError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrTaskNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrTaskFinished):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		middleware.WriteError(w, http.StatusGatewayTimeout, what+" timed out")
	default:
		log := logger.FromContext(r.Context())
		if log.GetLevel() == zerolog.Disabled {
			log = h.Log
		}
		log.Error().Err(err).Str("op", what).Msg("request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to "+what)
	}
}
