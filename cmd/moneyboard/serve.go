package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jask/moneyboard/internal/api"
	"github.com/jask/moneyboard/internal/api/handlers"
	"github.com/jask/moneyboard/internal/database"
	"github.com/jask/moneyboard/internal/database/repository"
	"github.com/jask/moneyboard/internal/insights"
	"github.com/jask/moneyboard/internal/llm"
	"github.com/jask/moneyboard/internal/secrets"
	"github.com/jask/moneyboard/internal/service"
	"github.com/jask/moneyboard/internal/simplefin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	client := simplefin.NewClient(cfg.SimpleFIN.Timeout)
	classifier := newClassifier(db)
	syncer := newSyncService(db, client, classifier)
	txs := repository.NewTransactionRepo(db)
	tasks := service.NewTaskRegistry(log)

	h := &handlers.Handler{
		DB:        db,
		Sync:      syncer,
		Backlog:   &service.BacklogService{Transactions: txs},
		Settings:  &service.SettingsService{Config: repository.NewUserConfigRepo(db), Claimer: client, Log: log},
		Dashboard: &service.DashboardService{DB: db},
		Trainer:   classifier,
		Tasks:     tasks,
		Log:       log,
	}

	bridge, closeBridge, err := newInsights(txs)
	if err != nil {
		log.Warn().Err(err).Msg("insights disabled")
	} else {
		defer closeBridge()
		h.Insights = bridge
	}

	sched, err := service.NewScheduler(cfg.Sync.Schedule, syncer, cfg.Classifier.ClassifyTimeout+cfg.SimpleFIN.Timeout, log)
	if err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(h, log, cfg.Server.AllowedOrigin),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown")
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("task shutdown")
	}
	return nil
}

// newInsights builds the bridge over a read-only handle. A missing API key
// still yields a bridge; its generator reports the missing key on use.
func newInsights(categories insights.CategorySource) (*insights.Bridge, func(), error) {
	keys, err := secrets.DefaultStore()
	if err != nil {
		return nil, nil, err
	}
	apiKey := llm.ResolveAPIKey(cfg.LLM.Provider, cfg.LLM.APIKeyEnv, cfg.LLM.APIKey, keys.Get)
	gen, err := llm.New(cfg.LLM.Provider, apiKey, cfg.LLM.Model)
	if err != nil {
		return nil, nil, err
	}
	ro, err := database.OpenReadOnly(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open read-only db: %w", err)
	}
	bridge := &insights.Bridge{
		Generator:  llm.WithTimeout(gen, cfg.LLM.Timeout),
		Categories: categories,
		Store:      &insights.ReadOnlyStore{DB: ro, Timeout: cfg.LLM.QueryTimeout},
		Log:        log,
	}
	return bridge, func() { _ = ro.Close() }, nil
}
