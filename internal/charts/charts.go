// Package charts turns accounts and transactions into chart-ready series.
// Every function here is pure: callers load the rows, pass a clock value and
// serialize the result.
package charts

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyboard/internal/database/repository"
)

const dayLayout = "2006-01-02"

// TimeRange is a trailing window measured in days.
type TimeRange int

const (
	Range7d   TimeRange = 7
	Range30d  TimeRange = 30
	Range90d  TimeRange = 90
	Range365d TimeRange = 365
)

// ParseTimeRange maps "7d", "30d", "90d" and "365d"; anything else is 90d.
func ParseTimeRange(s string) TimeRange {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "7d":
		return Range7d
	case "30d":
		return Range30d
	case "365d":
		return Range365d
	default:
		return Range90d
	}
}

func (r TimeRange) String() string { return strconv.Itoa(int(r)) + "d" }

// Cutoff is today's UTC midnight minus the range. Buckets on or after it are in range.
func Cutoff(now time.Time, r TimeRange) time.Time {
	return midnight(now).AddDate(0, 0, -int(r))
}

// DayKey is the UTC calendar day of a unix timestamp.
func DayKey(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(dayLayout)
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDay(key string) time.Time {
	t, _ := time.Parse(dayLayout, key)
	return t
}

// weekStart returns the key of the week containing day, weeks starting on first.
func weekStart(day time.Time, first time.Weekday) string {
	offset := (int(day.Weekday()) - int(first) + 7) % 7
	return day.AddDate(0, 0, -offset).Format(dayLayout)
}

// amount parses a stored decimal string. Malformed values never reach the
// store, but are treated as zero rather than poisoning a whole series.
func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Row is one x-axis point: a date plus one numeric value per series. It
// serializes flat, e.g. {"date":"2024-01-02","Groceries":12.5}.
type Row struct {
	Date   string
	Values map[string]float64
}

func (r Row) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out["date"] = r.Date
	return json.Marshal(out)
}

// FilterSince keeps visible transactions whose UTC day is on or after cutoff.
func FilterSince(txs []repository.Transaction, cutoff time.Time) []repository.Transaction {
	from := cutoff.UTC().Format(dayLayout)
	var out []repository.Transaction
	for _, t := range txs {
		if t.Hidden {
			continue
		}
		if DayKey(t.EffectiveTime()) >= from {
			out = append(out, t)
		}
	}
	return out
}

// FilterRows keeps rows dated on or after cutoff.
func FilterRows(rows []Row, cutoff time.Time) []Row {
	from := cutoff.UTC().Format(dayLayout)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Date >= from {
			out = append(out, r)
		}
	}
	return out
}

// spendable reports whether t counts toward spend or income aggregations.
func spendable(t repository.Transaction) bool {
	return !t.Hidden && t.Category != repository.CategoryInternalTransfer
}

func categoryOf(t repository.Transaction) string {
	if strings.TrimSpace(t.Category) == "" {
		return repository.CategoryUncategorized
	}
	return t.Category
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
