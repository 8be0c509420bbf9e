package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jask/moneyboard/internal/database"
	"github.com/jask/moneyboard/internal/database/repository"
)

const day = int64(86400)

func setupDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, dbPath
}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func strPtr(s string) *string { return &s }

func nopLog() zerolog.Logger { return zerolog.Nop() }

func seed(t *testing.T, ctx context.Context, db *sql.DB, accounts []string, txs ...repository.Transaction) {
	t.Helper()
	accts := repository.NewAccountRepo(db)
	for _, id := range accounts {
		require.NoError(t, accts.Upsert(ctx, repository.Account{ID: id, Name: id, Currency: "USD", Balance: "0", BalanceDate: 1}))
	}
	repo := repository.NewTransactionRepo(db)
	for _, tx := range txs {
		_, err := repo.Upsert(ctx, tx)
		require.NoError(t, err)
	}
}

// fakeRunner records invocations and replays a canned result.
type fakeRunner struct {
	calls  [][]string
	dirs   []string
	result RunResult
	err    error
	block  bool
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) (RunResult, error) {
	f.dirs = append(f.dirs, dir)
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.block {
		<-ctx.Done()
		return RunResult{}, ctx.Err()
	}
	return f.result, f.err
}
