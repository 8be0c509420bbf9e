package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jask/moneyboard/internal/config"
	"github.com/jask/moneyboard/internal/database"
	"github.com/jask/moneyboard/internal/database/repository"
	"github.com/jask/moneyboard/internal/logger"
	"github.com/jask/moneyboard/internal/service"
	"github.com/jask/moneyboard/internal/simplefin"
)

var (
	cfg config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "moneyboard",
	Short:         "Personal finance dashboard backed by SimpleFIN",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		log = logger.New(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, syncCmd, transfersCmd, trainCmd, backlogCmd, keyCmd, configCmd, demoCmd, resetCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openDB migrates and opens the main database.
func openDB() (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func newClassifier(db *sql.DB) *service.Classifier {
	return &service.Classifier{
		Runner:          service.ExecRunner{},
		Python:          cfg.Classifier.Python,
		ScriptDir:       cfg.Classifier.ScriptDir,
		ModelDir:        cfg.Classifier.ModelDir,
		DBPath:          cfg.Database.Path,
		TrainTimeout:    cfg.Classifier.TrainTimeout,
		ClassifyTimeout: cfg.Classifier.ClassifyTimeout,
		Config:          repository.NewUserConfigRepo(db),
		Log:             log,
	}
}

func newSyncService(db *sql.DB, client *simplefin.Client, cls *service.Classifier) *service.SyncService {
	return &service.SyncService{
		DB:         db,
		Fetcher:    client,
		Classifier: cls,
		Log:        log,
	}
}
