package charts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/moneyboard/internal/database/repository"
)

func at(y int, m time.Month, d, h int) int64 {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC).Unix()
}

func tx(id, account string, when int64, amt, category string) repository.Transaction {
	return repository.Transaction{ID: id, AccountID: account, Posted: when, Amount: amt, Category: category}
}

// Sunday 2024-03-10, mid afternoon.
var now = time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)

func TestParseTimeRange(t *testing.T) {
	require.Equal(t, Range7d, ParseTimeRange("7d"))
	require.Equal(t, Range30d, ParseTimeRange("30D"))
	require.Equal(t, Range365d, ParseTimeRange("365d"))
	require.Equal(t, Range90d, ParseTimeRange(""))
	require.Equal(t, Range90d, ParseTimeRange("2w"))
	require.Equal(t, "7d", Range7d.String())
}

func TestCutoffSevenDayBoundaryIsInclusive(t *testing.T) {
	cutoff := Cutoff(now, Range7d)
	require.Equal(t, time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), cutoff)

	txs := []repository.Transaction{
		tx("edge", "a", at(2024, time.March, 3, 0), "-1", "x"),
		tx("before", "a", at(2024, time.March, 3, 0)-1, "-1", "x"),
		tx("today", "a", at(2024, time.March, 10, 9), "-1", "x"),
	}
	hidden := tx("hidden", "a", at(2024, time.March, 9, 0), "-1", "x")
	hidden.Hidden = true
	txs = append(txs, hidden)

	got := FilterSince(txs, cutoff)
	ids := []string{}
	for _, g := range got {
		ids = append(ids, g.ID)
	}
	require.Equal(t, []string{"edge", "today"}, ids)
}

func TestBalanceHistoryWalksBackwards(t *testing.T) {
	acct := repository.Account{ID: "chk", Balance: "100.00"}
	hidden := tx("h", "chk", at(2024, time.March, 9, 8), "-1000", "")
	hidden.Hidden = true
	txs := []repository.Transaction{
		tx("t0", "chk", at(2024, time.March, 10, 1), "-5.00", ""),
		tx("t1", "chk", at(2024, time.March, 9, 23), "20", ""),
		tx("t3", "chk", at(2024, time.March, 7, 12), "-7.25", ""),
		tx("future", "chk", at(2024, time.March, 11, 1), "50", ""),
		tx("other", "sav", at(2024, time.March, 9, 1), "999", ""),
		hidden,
	}

	got := BalanceHistory(acct, txs, 5, now)
	require.Equal(t, []BalancePoint{
		{Date: "2024-03-06", Balance: 92.25},
		{Date: "2024-03-07", Balance: 85},
		{Date: "2024-03-08", Balance: 85},
		{Date: "2024-03-09", Balance: 105},
		{Date: "2024-03-10", Balance: 100},
	}, got)

	require.Nil(t, BalanceHistory(acct, txs, 0, now))
}

func TestBalanceHistoryDailyDifferenceEqualsNet(t *testing.T) {
	acct := repository.Account{ID: "a", Balance: "1234.56"}
	var txs []repository.Transaction
	amounts := []string{"-12.34", "5", "-0.01", "250.00", "-99.99", "3.33", "-7"}
	for i := 0; i < 60; i++ {
		when := now.AddDate(0, 0, -(i % 30)).Add(-time.Duration(i) * time.Minute)
		txs = append(txs, tx("t", "a", when.Unix(), amounts[i%len(amounts)], ""))
	}

	points := BalanceHistory(acct, txs, 30, now)
	require.Len(t, points, 30)
	require.Equal(t, 1234.56, points[len(points)-1].Balance)

	net := map[string]decimal.Decimal{}
	for _, tr := range txs {
		k := DayKey(tr.EffectiveTime())
		net[k] = net[k].Add(decimal.RequireFromString(tr.Amount))
	}
	for i := 1; i < len(points); i++ {
		diff := decimal.NewFromFloat(points[i].Balance).Sub(decimal.NewFromFloat(points[i-1].Balance))
		require.True(t, diff.Equal(net[points[i].Date]), "day %s: diff %s net %s", points[i].Date, diff, net[points[i].Date])
	}
}

func TestAccountBalancesPivot(t *testing.T) {
	histories := []AccountHistory{
		{Account: repository.Account{ID: "a", Type: "checking"}, History: []BalancePoint{{"2024-03-09", 10}, {"2024-03-10", 12}}},
		{Account: repository.Account{ID: "b", Type: "checking"}, History: []BalancePoint{{"2024-03-09", 1}, {"2024-03-10", 2}}},
		{Account: repository.Account{ID: "c"}, History: []BalancePoint{{"2024-03-10", 100}}},
	}

	byAccount := AccountBalances(histories, ViewByAccount)
	require.Len(t, byAccount, 2)
	require.Equal(t, map[string]float64{"a": 12, "b": 2, "c": 100, TotalKey: 114}, byAccount[1].Values)

	byType := AccountBalances(histories, ViewByType)
	require.Equal(t, map[string]float64{"checking": 11, TotalKey: 11}, byType[0].Values)
	require.Equal(t, map[string]float64{"checking": 14, repository.AccountTypeUncategorized: 100, TotalKey: 114}, byType[1].Values)
}

func TestWeeklyStackedTakesFirstPointOfSundayWeeks(t *testing.T) {
	var points []BalancePoint
	for i := 0; i < 8; i++ {
		day := time.Date(2024, time.March, 3+i, 0, 0, 0, 0, time.UTC)
		points = append(points, BalancePoint{Date: day.Format(dayLayout), Balance: float64(i+1) + 0.004})
	}
	rows := WeeklyStacked([]AccountHistory{{Account: repository.Account{ID: "a"}, History: points}})
	require.Len(t, rows, 2)
	require.Equal(t, "2024-03-03", rows[0].Date)
	require.Equal(t, 1.0, rows[0].Values["a"])
	require.Equal(t, "2024-03-10", rows[1].Date)
	require.Equal(t, 8.0, rows[1].Values["a"])

	long := Histories([]repository.Account{{ID: "a", Balance: "5"}}, nil, 200, now)
	rows = WeeklyStacked(long)
	require.Len(t, rows, WeeksShown)
	require.Equal(t, "2024-03-10", rows[len(rows)-1].Date)
	for _, r := range rows {
		require.Equal(t, time.Sunday, parseDay(r.Date).Weekday())
	}
}

func TestCashSavingsInvestments(t *testing.T) {
	point := []BalancePoint{{"2024-03-10", 0}}
	mk := func(id, typ string, bal float64) AccountHistory {
		p := append([]BalancePoint(nil), point...)
		p[0].Balance = bal
		return AccountHistory{Account: repository.Account{ID: id, Type: typ}, History: p}
	}
	rows := CashSavingsInvestments([]AccountHistory{
		mk("1", "Checking", 500),
		mk("2", "Credit Card", -120.5),
		mk("3", "High-Yield SAVINGS", 1000),
		mk("4", "Brokerage", 2500),
		mk("5", "Retirement investments", 300),
		mk("6", "uncategorized", 9999),
	})
	require.Len(t, rows, 1)
	require.Equal(t, map[string]float64{
		SeriesCash:        379.5,
		SeriesSavings:     1000,
		SeriesInvestments: 2800,
		SeriesTotal:       14178.5,
	}, rows[0].Values)
}

func TestCashSavingsInvestmentsUnclassifiedAndOverlappingTypes(t *testing.T) {
	rows := CashSavingsInvestments([]AccountHistory{
		{Account: repository.Account{ID: "chk", Type: "Checking"}, History: []BalancePoint{{"2024-03-10", 100}}},
		{Account: repository.Account{ID: "other", Type: repository.AccountTypeUncategorized}, History: []BalancePoint{{"2024-03-10", 50}, {"2024-03-11", 50}}},
		{Account: repository.Account{ID: "both", Type: "Credit Savings"}, History: []BalancePoint{{"2024-03-11", 10}}},
	})
	require.Len(t, rows, 2)
	require.Equal(t, "2024-03-10", rows[0].Date)
	require.Equal(t, map[string]float64{SeriesCash: 100, SeriesSavings: 0, SeriesInvestments: 0, SeriesTotal: 150}, rows[0].Values)
	require.Equal(t, "2024-03-11", rows[1].Date)
	require.Equal(t, map[string]float64{SeriesCash: 10, SeriesSavings: 10, SeriesInvestments: 0, SeriesTotal: 60}, rows[1].Values)
}

func spendFixture() []repository.Transaction {
	hidden := tx("hidden", "a", at(2024, time.March, 2, 1), "-7", "Groceries")
	hidden.Hidden = true
	return []repository.Transaction{
		tx("g1", "a", at(2024, time.March, 1, 10), "-10.00", "Groceries"),
		tx("d1", "a", at(2024, time.March, 1, 11), "-5", "Dining"),
		tx("u1", "a", at(2024, time.March, 2, 9), "-1", ""),
		tx("pay", "a", at(2024, time.March, 2, 9), "100", "Income"),
		tx("xfer", "a", at(2024, time.March, 2, 9), "-50", repository.CategoryInternalTransfer),
		tx("g2", "a", at(2024, time.March, 4, 9), "-2.50", "Groceries"),
		hidden,
	}
}

func TestCumulativeSpend(t *testing.T) {
	rows, categories := CumulativeSpend(spendFixture())
	require.Equal(t, []string{"Groceries", "Dining", repository.CategoryUncategorized}, categories)

	dates := []string{}
	for _, r := range rows {
		dates = append(dates, r.Date)
	}
	require.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"}, dates)

	last := rows[len(rows)-1].Values
	require.Equal(t, 12.5, last["Groceries"])
	require.Equal(t, 5.0, last["Dining"])
	require.Equal(t, 1.0, last[repository.CategoryUncategorized])

	for i := 1; i < len(rows); i++ {
		for _, c := range categories {
			require.GreaterOrEqual(t, rows[i].Values[c], rows[i-1].Values[c])
		}
	}

	empty, cats := CumulativeSpend(nil)
	require.Empty(t, empty)
	require.Empty(t, cats)
}

func TestSpendByPeriod(t *testing.T) {
	daily := SpendByPeriod(spendFixture(), PeriodDay)
	require.Len(t, daily, 3)
	require.Equal(t, map[string]float64{"Groceries": 10, "Dining": 5, SpendTotalKey: 15}, daily[0].Values)

	txs := []repository.Transaction{
		tx("mon", "a", at(2024, time.March, 4, 9), "-1", "A"),
		tx("sun", "a", at(2024, time.March, 10, 9), "-2", "A"),
		tx("next", "a", at(2024, time.March, 11, 9), "-4", "B"),
	}
	weekly := SpendByPeriod(txs, PeriodWeek)
	require.Len(t, weekly, 2)
	require.Equal(t, "2024-03-04", weekly[0].Date)
	require.Equal(t, 3.0, weekly[0].Values[SpendTotalKey])
	require.Equal(t, "2024-03-11", weekly[1].Date)
	require.Equal(t, 4.0, weekly[1].Values["B"])
}

func TestCompositions(t *testing.T) {
	spend := SpendComposition(spendFixture())
	require.Equal(t, []Slice{
		{Label: "Groceries", Value: 12.5, Percent: 67.6},
		{Label: "Dining", Value: 5, Percent: 27},
		{Label: repository.CategoryUncategorized, Value: 1, Percent: 5.4},
	}, spend)

	tie := SpendComposition([]repository.Transaction{
		tx("1", "a", 1, "-3", "Zeta"),
		tx("2", "a", 1, "-3", "Alpha"),
	})
	require.Equal(t, "Zeta", tie[0].Label)
	require.Equal(t, "Alpha", tie[1].Label)

	income := IncomeComposition([]repository.Transaction{
		tx("p1", "chk", 1, "2000", "Income"),
		tx("p2", "gone", 1, "50", "Income"),
		tx("x", "chk", 1, "500", repository.CategoryInternalTransfer),
	}, []repository.Account{{ID: "chk", Name: "Everyday"}})
	require.Equal(t, []Slice{
		{Label: "Everyday", Value: 2000, Percent: 97.6},
		{Label: UnknownAccount, Value: 50, Percent: 2.4},
	}, income)
}

func TestSummary(t *testing.T) {
	got := Summary(spendFixture())
	require.Equal(t, Totals{Spend: 18.5, Income: 100, CashFlow: 81.5, Count: 5}, got)
}

func TestRowMarshalsFlat(t *testing.T) {
	b, err := json.Marshal(Row{Date: "2024-03-10", Values: map[string]float64{"Groceries": 1.5}})
	require.NoError(t, err)
	require.JSONEq(t, `{"date":"2024-03-10","Groceries":1.5}`, string(b))
}
