package charts

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyboard/internal/database/repository"
)

// outflows returns visible, non-transfer spend grouped by day and category,
// as positive magnitudes.
func outflows(txs []repository.Transaction) map[string]map[string]decimal.Decimal {
	byDay := map[string]map[string]decimal.Decimal{}
	for _, t := range txs {
		if !spendable(t) {
			continue
		}
		amt := amount(t.Amount)
		if !amt.IsNegative() {
			continue
		}
		day := DayKey(t.EffectiveTime())
		cats, ok := byDay[day]
		if !ok {
			cats = map[string]decimal.Decimal{}
			byDay[day] = cats
		}
		cat := categoryOf(t)
		cats[cat] = cats[cat].Add(amt.Abs())
	}
	return byDay
}

// CumulativeSpend returns one row per UTC day from the first to the last
// spend day, each carrying the running spend total of every category. The
// category list is ordered by overall total, largest first.
func CumulativeSpend(txs []repository.Transaction) ([]Row, []string) {
	byDay := outflows(txs)
	if len(byDay) == 0 {
		return []Row{}, []string{}
	}

	totals := map[string]decimal.Decimal{}
	for _, cats := range byDay {
		for c, v := range cats {
			totals[c] = totals[c].Add(v)
		}
	}
	categories := sortedKeys(totals)
	sort.SliceStable(categories, func(i, j int) bool {
		return totals[categories[i]].GreaterThan(totals[categories[j]])
	})

	days := sortedKeys(byDay)
	first, last := parseDay(days[0]), parseDay(days[len(days)-1])

	running := map[string]decimal.Decimal{}
	var rows []Row
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		for c, v := range byDay[key] {
			running[c] = running[c].Add(v)
		}
		row := Row{Date: key, Values: make(map[string]float64, len(categories))}
		for _, c := range categories {
			row.Values[c] = money(running[c])
		}
		rows = append(rows, row)
	}
	return rows, categories
}

// Period selects SpendByPeriod bucketing.
type Period string

const (
	PeriodDay  Period = "day"
	PeriodWeek Period = "week"
)

// SpendTotalKey is the per-row sum across categories in SpendByPeriod.
const SpendTotalKey = "total"

// SpendByPeriod stacks spend per category by day or by Monday-start week.
func SpendByPeriod(txs []repository.Transaction, period Period) []Row {
	buckets := map[string]map[string]decimal.Decimal{}
	for day, cats := range outflows(txs) {
		key := day
		if period == PeriodWeek {
			key = weekStart(parseDay(day), time.Monday)
		}
		vals, ok := buckets[key]
		if !ok {
			vals = map[string]decimal.Decimal{}
			buckets[key] = vals
		}
		for c, v := range cats {
			vals[c] = vals[c].Add(v)
			vals[SpendTotalKey] = vals[SpendTotalKey].Add(v)
		}
	}

	rows := make([]Row, 0, len(buckets))
	for _, key := range sortedKeys(buckets) {
		row := Row{Date: key, Values: map[string]float64{}}
		for c, v := range buckets[key] {
			row.Values[c] = money(v)
		}
		rows = append(rows, row)
	}
	return rows
}

// Slice is one wedge of a composition chart.
type Slice struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// UnknownAccount labels income whose account row is missing.
const UnknownAccount = "Unknown Account"

// SpendComposition splits spend by category.
func SpendComposition(txs []repository.Transaction) []Slice {
	var c composer
	for _, t := range txs {
		if !spendable(t) {
			continue
		}
		if amt := amount(t.Amount); amt.IsNegative() {
			c.add(categoryOf(t), amt.Abs())
		}
	}
	return c.slices()
}

// IncomeComposition splits income by receiving account name.
func IncomeComposition(txs []repository.Transaction, accounts []repository.Account) []Slice {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	var c composer
	for _, t := range txs {
		if !spendable(t) {
			continue
		}
		if amt := amount(t.Amount); amt.IsPositive() {
			label, ok := names[t.AccountID]
			if !ok || label == "" {
				label = UnknownAccount
			}
			c.add(label, amt)
		}
	}
	return c.slices()
}

// composer accumulates labelled totals in first-seen order.
type composer struct {
	order  []string
	totals map[string]decimal.Decimal
}

func (c *composer) add(label string, v decimal.Decimal) {
	if c.totals == nil {
		c.totals = map[string]decimal.Decimal{}
	}
	if _, ok := c.totals[label]; !ok {
		c.order = append(c.order, label)
	}
	c.totals[label] = c.totals[label].Add(v)
}

// slices returns wedges largest first; equal totals keep first-seen order.
func (c *composer) slices() []Slice {
	sum := decimal.Zero
	for _, v := range c.totals {
		sum = sum.Add(v)
	}
	out := make([]Slice, 0, len(c.order))
	for _, label := range c.order {
		v := c.totals[label]
		pct := 0.0
		if sum.IsPositive() {
			pct = v.Div(sum).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
		out = append(out, Slice{Label: label, Value: money(v), Percent: pct})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// Totals summarizes a window of transactions.
type Totals struct {
	Spend    float64 `json:"spend"`
	Income   float64 `json:"income"`
	CashFlow float64 `json:"cashFlow"`
	Count    int     `json:"count"`
}

// Summary adds up spend, income and net cash flow, skipping hidden rows and
// internal transfers.
func Summary(txs []repository.Transaction) Totals {
	spend, income := decimal.Zero, decimal.Zero
	var n int
	for _, t := range txs {
		if !spendable(t) {
			continue
		}
		n++
		amt := amount(t.Amount)
		if amt.IsNegative() {
			spend = spend.Add(amt.Abs())
		} else {
			income = income.Add(amt)
		}
	}
	return Totals{Spend: money(spend), Income: money(income), CashFlow: money(income.Sub(spend)), Count: n}
}
