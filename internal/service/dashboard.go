package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jask/moneyboard/internal/charts"
	"github.com/jask/moneyboard/internal/database/repository"
)

// DashboardService loads rows from the store and hands them to the chart
// aggregators.
type DashboardService struct {
	DB  *sql.DB
	Now func() time.Time
}

// CumulativeSeries is the cumulative spend chart.
type CumulativeSeries struct {
	Rows       []charts.Row `json:"rows"`
	Categories []string     `json:"categories"`
}

// Compositions pairs the spend and income pies.
type Compositions struct {
	Spend  []charts.Slice `json:"spend"`
	Income []charts.Slice `json:"income"`
}

// AccountsWithHistory lists accounts, each with days of balance history.
func (s *DashboardService) AccountsWithHistory(ctx context.Context, days int) ([]charts.AccountHistory, error) {
	accounts, txs, err := s.load(ctx, 0)
	if err != nil {
		return nil, err
	}
	return charts.Histories(accounts, txs, days, s.now()), nil
}

// Balances is the per-day balance chart by account or by account type.
func (s *DashboardService) Balances(ctx context.Context, r charts.TimeRange, view charts.BalanceView) ([]charts.Row, error) {
	histories, err := s.histories(ctx, int(r)+1)
	if err != nil {
		return nil, err
	}
	return charts.FilterRows(charts.AccountBalances(histories, view), charts.Cutoff(s.now(), r)), nil
}

// Weekly is the stacked weekly balances chart.
func (s *DashboardService) Weekly(ctx context.Context) ([]charts.Row, error) {
	histories, err := s.histories(ctx, (charts.WeeksShown+1)*7)
	if err != nil {
		return nil, err
	}
	return charts.WeeklyStacked(histories), nil
}

func (s *DashboardService) CashSavingsInvestments(ctx context.Context, r charts.TimeRange) ([]charts.Row, error) {
	histories, err := s.histories(ctx, int(r)+1)
	if err != nil {
		return nil, err
	}
	return charts.FilterRows(charts.CashSavingsInvestments(histories), charts.Cutoff(s.now(), r)), nil
}

func (s *DashboardService) CumulativeSpend(ctx context.Context, r charts.TimeRange) (CumulativeSeries, error) {
	txs, err := s.window(ctx, r)
	if err != nil {
		return CumulativeSeries{}, err
	}
	rows, categories := charts.CumulativeSpend(txs)
	return CumulativeSeries{Rows: rows, Categories: categories}, nil
}

func (s *DashboardService) Spend(ctx context.Context, r charts.TimeRange, period charts.Period) ([]charts.Row, error) {
	txs, err := s.window(ctx, r)
	if err != nil {
		return nil, err
	}
	return charts.SpendByPeriod(txs, period), nil
}

func (s *DashboardService) Composition(ctx context.Context, r charts.TimeRange) (Compositions, error) {
	cutoff := charts.Cutoff(s.now(), r)
	accounts, txs, err := s.load(ctx, cutoff.Unix())
	if err != nil {
		return Compositions{}, err
	}
	txs = charts.FilterSince(txs, cutoff)
	return Compositions{
		Spend:  charts.SpendComposition(txs),
		Income: charts.IncomeComposition(txs, accounts),
	}, nil
}

func (s *DashboardService) Summary(ctx context.Context, r charts.TimeRange) (charts.Totals, error) {
	txs, err := s.window(ctx, r)
	if err != nil {
		return charts.Totals{}, err
	}
	return charts.Summary(txs), nil
}

func (s *DashboardService) histories(ctx context.Context, days int) ([]charts.AccountHistory, error) {
	accounts, txs, err := s.load(ctx, 0)
	if err != nil {
		return nil, err
	}
	return charts.Histories(accounts, txs, days, s.now()), nil
}

func (s *DashboardService) window(ctx context.Context, r charts.TimeRange) ([]repository.Transaction, error) {
	cutoff := charts.Cutoff(s.now(), r)
	txs, err := repository.NewTransactionRepo(s.DB).List(ctx, repository.TransactionFilters{Since: cutoff.Unix()})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return charts.FilterSince(txs, cutoff), nil
}

// load reads accounts and visible transactions one after the other; the
// single connection pool cannot serve both at once.
func (s *DashboardService) load(ctx context.Context, since int64) ([]repository.Account, []repository.Transaction, error) {
	accounts, err := repository.NewAccountRepo(s.DB).List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := repository.NewTransactionRepo(s.DB).List(ctx, repository.TransactionFilters{Since: since})
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	return accounts, txs, nil
}

func (s *DashboardService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
