package charts

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyboard/internal/database/repository"
)

// BalancePoint is an account's closing balance on a UTC day.
type BalancePoint struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

// AccountHistory pairs an account with its reconstructed daily balances.
type AccountHistory struct {
	Account repository.Account `json:"account"`
	History []BalancePoint     `json:"balanceHistory,omitempty"`
}

// BalanceHistory rebuilds days closing balances, oldest first, ending today.
// It walks backwards from the account's current balance: the close of
// yesterday is today's close minus today's net movement, and so on. Only
// visible transactions of acct dated up to today contribute.
func BalanceHistory(acct repository.Account, txs []repository.Transaction, days int, now time.Time) []BalancePoint {
	if days <= 0 {
		return nil
	}
	today := midnight(now)
	todayKey := today.Format(dayLayout)

	net := map[string]decimal.Decimal{}
	for _, t := range txs {
		if t.AccountID != acct.ID || t.Hidden {
			continue
		}
		key := DayKey(t.EffectiveTime())
		if key > todayKey {
			continue
		}
		net[key] = net[key].Add(amount(t.Amount))
	}

	points := make([]BalancePoint, days)
	running := amount(acct.Balance)
	for i := 0; i < days; i++ {
		key := today.AddDate(0, 0, -i).Format(dayLayout)
		points[days-1-i] = BalancePoint{Date: key, Balance: money(running)}
		running = running.Sub(net[key])
	}
	return points
}

// Histories computes BalanceHistory for every account.
func Histories(accounts []repository.Account, txs []repository.Transaction, days int, now time.Time) []AccountHistory {
	byAccount := map[string][]repository.Transaction{}
	for _, t := range txs {
		byAccount[t.AccountID] = append(byAccount[t.AccountID], t)
	}
	out := make([]AccountHistory, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountHistory{Account: a, History: BalanceHistory(a, byAccount[a.ID], days, now)})
	}
	return out
}

// BalanceView selects how AccountBalances keys its series.
type BalanceView string

const (
	ViewByAccount BalanceView = "account"
	ViewByType    BalanceView = "type"
)

// TotalKey is the series holding the sum of all other series in a row.
const TotalKey = "totalBalance"

// AccountBalances pivots histories into one row per day with a series per
// account id (or per account type) plus totalBalance.
func AccountBalances(histories []AccountHistory, view BalanceView) []Row {
	byDate := map[string]map[string]decimal.Decimal{}
	for _, h := range histories {
		key := h.Account.ID
		if view == ViewByType {
			key = h.Account.Type
			if key == "" {
				key = repository.AccountTypeUncategorized
			}
		}
		for _, p := range h.History {
			vals, ok := byDate[p.Date]
			if !ok {
				vals = map[string]decimal.Decimal{}
				byDate[p.Date] = vals
			}
			bal := decimal.NewFromFloat(p.Balance)
			vals[key] = vals[key].Add(bal)
			vals[TotalKey] = vals[TotalKey].Add(bal)
		}
	}

	rows := make([]Row, 0, len(byDate))
	for _, date := range sortedKeys(byDate) {
		row := Row{Date: date, Values: map[string]float64{}}
		for k, v := range byDate[date] {
			row.Values[k] = money(v)
		}
		rows = append(rows, row)
	}
	return rows
}

// WeeksShown is how many weeks WeeklyStacked keeps.
const WeeksShown = 13

// WeeklyStacked samples each account once per Sunday-start week, taking the
// earliest daily point seen in that week, and keeps the most recent weeks.
func WeeklyStacked(histories []AccountHistory) []Row {
	byWeek := map[string]map[string]float64{}
	for _, h := range histories {
		seen := map[string]bool{}
		points := append([]BalancePoint(nil), h.History...)
		sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
		for _, p := range points {
			week := weekStart(parseDay(p.Date), time.Sunday)
			if seen[week] {
				continue
			}
			seen[week] = true
			vals, ok := byWeek[week]
			if !ok {
				vals = map[string]float64{}
				byWeek[week] = vals
			}
			vals[h.Account.ID] = money(decimal.NewFromFloat(p.Balance))
		}
	}

	weeks := sortedKeys(byWeek)
	if len(weeks) > WeeksShown {
		weeks = weeks[len(weeks)-WeeksShown:]
	}
	rows := make([]Row, 0, len(weeks))
	for _, w := range weeks {
		rows = append(rows, Row{Date: w, Values: byWeek[w]})
	}
	return rows
}

// Asset class series produced by CashSavingsInvestments.
const (
	SeriesCash        = "cash"
	SeriesSavings     = "savings"
	SeriesInvestments = "investments"
	SeriesTotal       = "total"
)

// assetClasses lists every series an account type feeds, by case-insensitive
// substring. Checking and credit each count toward cash, so a type naming
// both feeds cash twice.
func assetClasses(accountType string) []string {
	t := strings.ToLower(accountType)
	var out []string
	if strings.Contains(t, "checking") {
		out = append(out, SeriesCash)
	}
	if strings.Contains(t, "credit") {
		out = append(out, SeriesCash)
	}
	if strings.Contains(t, "savings") {
		out = append(out, SeriesSavings)
	}
	if strings.Contains(t, "investment") || strings.Contains(t, "brokerage") {
		out = append(out, SeriesInvestments)
	}
	return out
}

// CashSavingsInvestments sums balances per asset class per day. Cash is
// checking plus credit. Total covers every account, classified or not, and
// every day any account has a point gets a row.
func CashSavingsInvestments(histories []AccountHistory) []Row {
	byDate := map[string]map[string]decimal.Decimal{}
	for _, h := range histories {
		classes := assetClasses(h.Account.Type)
		for _, p := range h.History {
			vals, ok := byDate[p.Date]
			if !ok {
				vals = map[string]decimal.Decimal{
					SeriesCash: decimal.Zero, SeriesSavings: decimal.Zero,
					SeriesInvestments: decimal.Zero, SeriesTotal: decimal.Zero,
				}
				byDate[p.Date] = vals
			}
			bal := decimal.NewFromFloat(p.Balance)
			for _, class := range classes {
				vals[class] = vals[class].Add(bal)
			}
			vals[SeriesTotal] = vals[SeriesTotal].Add(bal)
		}
	}

	rows := make([]Row, 0, len(byDate))
	for _, date := range sortedKeys(byDate) {
		row := Row{Date: date, Values: map[string]float64{}}
		for k, v := range byDate[date] {
			row.Values[k] = money(v)
		}
		rows = append(rows, row)
	}
	return rows
}
