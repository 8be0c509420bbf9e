package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/moneyboard/internal/database"
	"github.com/jask/moneyboard/internal/database/repository"
)

const day = int64(86400)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func strPtr(s string) *string { return &s }

func seedAccounts(t *testing.T, ctx context.Context, repo *repository.AccountRepo, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, repo.Upsert(ctx, repository.Account{ID: id, Name: id, Currency: "USD", Balance: "0", BalanceDate: 1}))
	}
}

func TestAccountUpsertKeepsUserOwnedColumns(t *testing.T) {
	t.Parallel()
	ctx := ctxT(t)
	db := setupDB(t)
	repo := repository.NewAccountRepo(db)

	require.NoError(t, repo.Upsert(ctx, repository.Account{ID: "a1", Name: "Bank Checking", Currency: "USD", Balance: "10.00", BalanceDate: 100}))
	require.NoError(t, repo.Rename(ctx, "a1", "Everyday"))
	require.NoError(t, repo.SetType(ctx, "a1", "checking"))
	require.NoError(t, repo.Upsert(ctx, repository.Account{ID: "a1", Name: "Bank Checking", Currency: "USD", Balance: "42.50", BalanceDate: 200}))

	got, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Everyday", got.Name)
	require.Equal(t, "checking", got.Type)
	require.Equal(t, "42.50", got.Balance)
	require.Equal(t, int64(200), got.BalanceDate)

	require.ErrorIs(t, repo.Rename(ctx, "missing", "x"), repository.ErrNotFound)
	missing, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestTransactionUpsertPreservesCategory(t *testing.T) {
	t.Parallel()
	ctx := ctxT(t)
	db := setupDB(t)
	seedAccounts(t, ctx, repository.NewAccountRepo(db), "a1")
	repo := repository.NewTransactionRepo(db)

	tx := repository.Transaction{ID: "t1", AccountID: "a1", Posted: 1000, Amount: "-12.00", Description: "COFFEE", Payee: strPtr("Cafe")}
	created, err := repo.Upsert(ctx, tx)
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, repo.SetCategory(ctx, "t1", "Dining"))
	require.NoError(t, repo.SetHidden(ctx, "t1", true))

	tx.Amount = "-13.00"
	tx.Pending = true
	created, err = repo.Upsert(ctx, tx)
	require.NoError(t, err)
	require.False(t, created)

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "Dining", got.Category)
	require.True(t, got.Hidden)
	require.Equal(t, "-13.00", got.Amount)
	require.True(t, got.Pending)
	require.Nil(t, got.TransactedAt)
	require.Equal(t, int64(1000), got.EffectiveTime())
}

func TestBacklogQueries(t *testing.T) {
	t.Parallel()
	ctx := ctxT(t)
	db := setupDB(t)
	seedAccounts(t, ctx, repository.NewAccountRepo(db), "a1")
	repo := repository.NewTransactionRepo(db)

	for i, id := range []string{"t1", "t2", "t3", "t4"} {
		_, err := repo.Upsert(ctx, repository.Transaction{ID: id, AccountID: "a1", Posted: int64(i+1) * day, Amount: "-1", Payee: strPtr("Shop")})
		require.NoError(t, err)
	}
	require.NoError(t, repo.SetCategory(ctx, "t1", "Groceries"))
	require.NoError(t, repo.SetHidden(ctx, "t2", true))

	queue, err := repo.Uncategorized(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	require.Equal(t, "t4", queue[0].ID)
	require.Equal(t, "t3", queue[1].ID)

	n, err := repo.CountUncategorized(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = repo.CountByPayee(ctx, "Shop")
	require.NoError(t, err)
	require.Equal(t, 4, n)

	updated, err := repo.SetCategoryByPayee(ctx, "Shop", "Groceries")
	require.NoError(t, err)
	require.Equal(t, int64(4), updated)

	cats, err := repo.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Groceries"}, cats)
}

func TestMarkInternalTransfersPairsOppositeAmounts(t *testing.T) {
	t.Parallel()
	ctx := ctxT(t)
	db := setupDB(t)
	seedAccounts(t, ctx, repository.NewAccountRepo(db), "A", "B", "C")
	repo := repository.NewTransactionRepo(db)

	d := int64(1_700_000_000)
	rows := []repository.Transaction{
		{ID: "a-out", AccountID: "A", Posted: d, Amount: "-25.00"},
		{ID: "b-in", AccountID: "B", Posted: d + day, Amount: "25.00"},
		// same account: never a transfer
		{ID: "a-in", AccountID: "A", Posted: d, Amount: "25.00"},
		// outside the window
		{ID: "c-late", AccountID: "C", Posted: d + 5*day, Amount: "-25.00"},
		// different magnitude
		{ID: "c-other", AccountID: "C", Posted: d, Amount: "-24.99"},
	}
	for _, r := range rows {
		_, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
	}

	marked, err := repo.MarkInternalTransfers(ctx, nil)
	require.NoError(t, err)
	// only a-out and b-in qualify
	require.Equal(t, int64(2), marked)

	for id, want := range map[string]string{
		"a-out":   repository.CategoryInternalTransfer,
		"b-in":    repository.CategoryInternalTransfer,
		"a-in":    repository.CategoryUncategorized,
		"c-late":  repository.CategoryUncategorized,
		"c-other": repository.CategoryUncategorized,
	} {
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, got.Category, id)
	}

	again, err := repo.MarkInternalTransfers(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, again)
}

func TestMarkInternalTransfersScopedToIDs(t *testing.T) {
	t.Parallel()
	ctx := ctxT(t)
	db := setupDB(t)
	seedAccounts(t, ctx, repository.NewAccountRepo(db), "A", "B")
	repo := repository.NewTransactionRepo(db)

	rows := []repository.Transaction{
		{ID: "old-out", AccountID: "A", Posted: 10 * day, Amount: "-5"},
		{ID: "old-in", AccountID: "B", Posted: 10 * day, Amount: "5"},
		{ID: "new-out", AccountID: "A", Posted: 20 * day, Amount: "-7.5"},
		{ID: "new-in", AccountID: "B", Posted: 21 * day, Amount: "7.50"},
	}
	for _, r := range rows {
		_, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
	}

	marked, err := repo.MarkInternalTransfers(ctx, []string{"new-in"})
	require.NoError(t, err)
	require.Equal(t, int64(2), marked)

	old, err := repo.Get(ctx, "old-out")
	require.NoError(t, err)
	require.Equal(t, repository.CategoryUncategorized, old.Category)
}

func TestMarkInternalTransfersLargeIDSet(t *testing.T) {
	t.Parallel()
	ctx := ctxT(t)
	db := setupDB(t)
	seedAccounts(t, ctx, repository.NewAccountRepo(db), "A", "B")
	repo := repository.NewTransactionRepo(db)

	for _, r := range []repository.Transaction{
		{ID: "out", AccountID: "A", Posted: 10 * day, Amount: "-3.33"},
		{ID: "in", AccountID: "B", Posted: 10 * day, Amount: "3.33"},
	} {
		_, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
	}

	// Well past SQLite's bind variable limit if each id were its own parameter.
	ids := make([]string, 0, 20_000)
	for i := 0; i < 19_999; i++ {
		ids = append(ids, fmt.Sprintf("missing-%05d", i))
	}
	ids = append(ids, "in")

	marked, err := repo.MarkInternalTransfers(ctx, ids)
	require.NoError(t, err)
	require.Equal(t, int64(2), marked)
}

func TestMarkInternalTransfersOneLegManyCounterparts(t *testing.T) {
	t.Parallel()
	ctx := ctxT(t)
	db := setupDB(t)
	seedAccounts(t, ctx, repository.NewAccountRepo(db), "A", "B", "C")
	repo := repository.NewTransactionRepo(db)

	d := int64(1_700_000_000)
	for _, r := range []repository.Transaction{
		{ID: "a-out", AccountID: "A", Posted: d, Amount: "-25"},
		{ID: "b-in", AccountID: "B", Posted: d, Amount: "25"},
		{ID: "c-in", AccountID: "C", Posted: d + day, Amount: "25.00"},
	} {
		_, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
	}

	marked, err := repo.MarkInternalTransfers(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), marked)

	for _, id := range []string{"a-out", "b-in", "c-in"} {
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, repository.CategoryInternalTransfer, got.Category, id)
	}

	again, err := repo.MarkInternalTransfers(ctx, []string{"a-out"})
	require.NoError(t, err)
	require.Zero(t, again)
}

func TestUserConfigLifecycle(t *testing.T) {
	t.Parallel()
	ctx := ctxT(t)
	db := setupDB(t)
	repo := repository.NewUserConfigRepo(db)

	cfg, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, repository.UserConfig{}, cfg)

	require.NoError(t, repo.SetDisplayName(ctx, "Sam"))
	require.NoError(t, repo.SetAutoCategorize(ctx, true))
	require.NoError(t, repo.SetSimpleFINURL(ctx, "https://u:p@bridge.example/simplefin"))

	cfg, err = repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Sam", *cfg.DisplayName)
	require.True(t, cfg.AutoCategorize)
	require.False(t, cfg.AutoMarkDuplicates)
	require.True(t, cfg.HasSimpleFIN())

	require.NoError(t, repo.Delete(ctx))
	cfg, err = repo.Get(ctx)
	require.NoError(t, err)
	require.False(t, cfg.HasSimpleFIN())
}
