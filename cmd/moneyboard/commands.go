package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jask/moneyboard/internal/config"
	"github.com/jask/moneyboard/internal/database/repository"
	"github.com/jask/moneyboard/internal/demo"
	"github.com/jask/moneyboard/internal/secrets"
	"github.com/jask/moneyboard/internal/service"
	"github.com/jask/moneyboard/internal/simplefin"
	"github.com/jask/moneyboard/internal/tui"
)

// cliTimeout bounds one-shot commands that talk to the aggregator or classifier.
const cliTimeout = 45 * time.Minute

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(20)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		log.Info().Str("path", cfg.Database.Path).Msg("database up to date")
		return db.Close()
	},
}

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch accounts and transactions from SimpleFIN",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
		defer cancel()

		mode := service.SyncRecent
		if syncFull {
			mode = service.SyncFull
		}
		svc := newSyncService(db, simplefin.NewClient(cfg.SimpleFIN.Timeout), newClassifier(db))
		res, err := svc.Sync(ctx, mode)
		if err != nil {
			return err
		}
		fmt.Println(renderSync(res))
		return nil
	},
}

func renderSync(res *service.SyncResult) string {
	row := func(label string, v any) string {
		return labelStyle.Render(label) + fmt.Sprint(v)
	}
	lines := []string{
		okStyle.Render(res.Message),
		row("Mode", res.Mode),
		row("Accounts", res.Accounts),
		row("New transactions", res.NewTransactions),
		row("Transfers marked", res.UpdatedDuplicates),
	}
	if res.CategorizedCount != nil {
		lines = append(lines, row("Categorized", *res.CategorizedCount))
	}
	for _, w := range res.Warnings {
		lines = append(lines, warnStyle.Render("warning: "+w))
	}
	return strings.Join(lines, "\n")
}

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "Mark internal transfers across all transactions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		m := &service.TransferMatcher{Transactions: repository.NewTransactionRepo(db), Log: log}
		n, err := m.MarkAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("%d transactions marked as internal transfers", n)))
		return nil
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the transaction classifier",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := newClassifier(db).Train(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(run.Output)
		if !run.Succeeded() {
			return fmt.Errorf("classifier training exited with code %d", run.ExitCode)
		}
		return nil
	},
}

var backlogCmd = &cobra.Command{
	Use:   "backlog",
	Short: "Review uncategorized transactions in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := &service.BacklogService{Transactions: repository.NewTransactionRepo(db)}
		_, err = tea.NewProgram(tui.New(cmd.Context(), svc), tea.WithAltScreen()).Run()
		return err
	},
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage stored LLM provider keys",
}

var keySetCmd = &cobra.Command{
	Use:   "set <provider> <key>",
	Short: "Store an API key for a provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.DefaultStore()
		if err != nil {
			return err
		}
		if err := store.Put(args[0], args[1]); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("stored key for " + args[0]))
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Remove the stored key for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.DefaultStore()
		if err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			if errors.Is(err, secrets.ErrKeyNotFound) {
				return fmt.Errorf("no key stored for %s", args[0])
			}
			return err
		}
		fmt.Println(okStyle.Render("deleted key for " + args[0]))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("wrote " + config.Path()))
		return nil
	},
}

var demoDays int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Load sample accounts and transactions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		now := time.Now().UTC()
		sum, err := demo.Seed(cmd.Context(), db, now, demoDays, rand.New(rand.NewSource(now.UnixNano())))
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("seeded %d accounts and %d transactions", sum.Accounts, sum.Transactions)))
		return nil
	},
}

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all accounts, transactions and settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !resetConfirmed {
			return errors.New("refusing to reset without --yes")
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := (&service.MaintenanceService{DB: db, Log: log}).Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(warnStyle.Render("all data deleted"))
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "fetch the full history instead of the recent window")
	demoCmd.Flags().IntVar(&demoDays, "days", 90, "days of history to generate")
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm deleting every row")
	keyCmd.AddCommand(keySetCmd, keyDeleteCmd)
	configCmd.AddCommand(configInitCmd)
}
