package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jask/moneyboard/internal/database"
	"github.com/jask/moneyboard/internal/database/repository"
	"github.com/jask/moneyboard/internal/simplefin"
)

// EpochFloor is the earliest date ever requested from the aggregator.
var EpochFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// recentOverlap re-fetches the last day so late-posting rows are picked up.
const recentOverlap = 24 * time.Hour

// ErrSimpleFINNotConfigured is returned before any network call when no
// access URL is stored.
var ErrSimpleFINNotConfigured = errors.New("simplefin access url not configured")

// SyncMode picks the fetch window.
type SyncMode string

const (
	SyncRecent SyncMode = "recent"
	SyncFull   SyncMode = "full"
)

// AccountFetcher is the aggregator boundary.
type AccountFetcher interface {
	Accounts(ctx context.Context, accessURL string, start, end time.Time) (*simplefin.AccountSet, error)
}

// TransactionClassifier is the subset of Classifier a sync needs.
type TransactionClassifier interface {
	ClassifyIDs(ctx context.Context, ids []string) (ClassifierRun, error)
	ClassifySince(ctx context.Context, start time.Time) (ClassifierRun, error)
}

// SyncResult reports what a sync changed.
type SyncResult struct {
	Message           string   `json:"message"`
	Mode              SyncMode `json:"mode"`
	Accounts          int      `json:"accounts"`
	NewTransactions   int      `json:"newTransactions"`
	UpdatedDuplicates int64    `json:"updatedDuplicates"`
	CategorizedCount  *int     `json:"categorizedCount,omitempty"`
	ClassifierOutput  string   `json:"classifierOutput,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// SyncService pulls the aggregator's view into the store.
type SyncService struct {
	DB         *sql.DB
	Fetcher    AccountFetcher
	Classifier TransactionClassifier
	Log        zerolog.Logger
	Now        func() time.Time
}

// Sync fetches, upserts in one transaction and then runs the optional
// follow-up steps. Follow-up failures are reported in the result; the data
// already committed stays committed.
func (s *SyncService) Sync(ctx context.Context, mode SyncMode) (*SyncResult, error) {
	cfg, err := repository.NewUserConfigRepo(s.DB).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	}
	if !cfg.HasSimpleFIN() {
		return nil, ErrSimpleFINNotConfigured
	}

	start, err := s.windowStart(ctx, mode)
	if err != nil {
		return nil, err
	}
	end := s.now()
	log := s.Log.With().Str("mode", string(mode)).Time("start", start).Logger()
	log.Info().Msg("sync: fetching accounts")

	set, err := s.Fetcher.Accounts(ctx, *cfg.SimpleFINURL, start, end)
	if err != nil {
		return nil, err
	}
	for _, w := range set.Warnings {
		log.Warn().Str("warning", w).Msg("sync: aggregator warning")
	}

	newIDs, err := s.store(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("store sync: %w", err)
	}
	res := &SyncResult{
		Message:         "Accounts and transactions fetched and saved successfully",
		Mode:            mode,
		Accounts:        len(set.Accounts),
		NewTransactions: len(newIDs),
		Warnings:        set.Warnings,
	}
	log.Info().Int("accounts", res.Accounts).Int("new_transactions", res.NewTransactions).Msg("sync: stored")

	if cfg.AutoMarkDuplicates {
		matcher := &TransferMatcher{Transactions: repository.NewTransactionRepo(s.DB), Log: log}
		var n int64
		if mode == SyncFull {
			n, err = matcher.MarkAll(ctx)
		} else {
			n, err = matcher.MarkAmong(ctx, newIDs)
		}
		if err != nil {
			log.Error().Err(err).Msg("sync: transfer matching failed")
			res.Warnings = append(res.Warnings, "Internal transfer matching failed: "+err.Error())
		}
		res.UpdatedDuplicates = n
	}

	if cfg.AutoCategorize && s.Classifier != nil {
		var run ClassifierRun
		switch {
		case mode == SyncFull:
			run, err = s.Classifier.ClassifySince(ctx, start)
		case len(newIDs) > 0:
			run, err = s.Classifier.ClassifyIDs(ctx, newIDs)
		}
		switch {
		case err != nil:
			log.Error().Err(err).Msg("sync: classifier failed")
			res.Warnings = append(res.Warnings, "Auto-categorization failed: "+err.Error())
		case !run.Succeeded():
			log.Error().Int("exit_code", run.ExitCode).Msg("sync: classifier exited non-zero")
			res.Warnings = append(res.Warnings, fmt.Sprintf("Classifier exited with code %d", run.ExitCode))
		}
		res.ClassifierOutput = run.Output
		res.CategorizedCount = run.Categorized
	}
	return res, nil
}

func (s *SyncService) windowStart(ctx context.Context, mode SyncMode) (time.Time, error) {
	if mode == SyncFull {
		return EpochFloor, nil
	}
	latest, ok, err := repository.NewTransactionRepo(s.DB).LatestPosted(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest posted: %w", err)
	}
	if !ok {
		return EpochFloor, nil
	}
	return time.Unix(latest, 0).UTC().Add(-recentOverlap), nil
}

// store upserts every account and transaction atomically and returns the ids
// of transactions that did not exist before.
func (s *SyncService) store(ctx context.Context, set *simplefin.AccountSet) ([]string, error) {
	var newIDs []string
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		accounts := repository.NewAccountRepo(tx)
		txs := repository.NewTransactionRepo(tx)
		for _, a := range set.Accounts {
			if err := accounts.Upsert(ctx, repository.Account{
				ID:          a.ID,
				Name:        a.Name,
				Currency:    a.Currency,
				Balance:     a.Balance,
				BalanceDate: a.BalanceDate,
			}); err != nil {
				return fmt.Errorf("upsert account %s: %w", a.ID, err)
			}
			for _, t := range a.Transactions {
				created, err := txs.Upsert(ctx, repository.Transaction{
					ID:           t.ID,
					AccountID:    a.ID,
					Posted:       t.Posted,
					Amount:       t.Amount,
					Description:  t.Description,
					Payee:        t.Payee,
					TransactedAt: t.TransactedAt,
					Pending:      t.Pending,
				})
				if err != nil {
					return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
				}
				if created {
					newIDs = append(newIDs, t.ID)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newIDs, nil
}

func (s *SyncService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
