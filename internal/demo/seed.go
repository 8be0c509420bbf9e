// Package demo fills an empty database with sample accounts and transactions.
package demo

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyboard/internal/database"
	"github.com/jask/moneyboard/internal/database/repository"
)

const (
	checkingID = "demo-checking"
	savingsID  = "demo-savings"
	brokerID   = "demo-brokerage"
)

// Summary counts what Seed wrote.
type Summary struct {
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
}

type merchant struct {
	Payee    string
	Label    string
	Category string
	Min, Max int64 // cents
}

var demoAccounts = []repository.Account{
	{ID: checkingID, Name: "Everyday", Type: "checking"},
	{ID: savingsID, Name: "Savings", Type: "savings"},
	{ID: brokerID, Name: "Brokerage", Type: "investment"},
}

// Categories are left empty on some merchants so the backlog has work.
var merchants = []merchant{
	{"Woolworths", "WOOLWORTHS 1234 SYDNEY", "Groceries", 2000, 18000},
	{"Coles", "COLES 0456 NEWTOWN", "Groceries", 1500, 12000},
	{"Uber", "UBER *TRIP HELP.UBER.COM", "", 900, 4500},
	{"Uber Eats", "UBER EATS* SUSHI TRAIN", "Dining", 1800, 6000},
	{"Spotify", "SPOTIFY P1A2B3C4", "Subscriptions", 1299, 1299},
	{"Amazon", "AMAZON.COM.AU*XYZ", "", 1500, 25000},
	{"Shell", "SHELL COLES EXPRESS", "Transport", 4000, 9000},
	{"Chemist Warehouse", "CHEMIST WAREHOUSE 88", "", 800, 6000},
}

// Seed writes days of sample history ending at now: card spending on the
// checking account, a fortnightly salary, and a monthly savings transfer
// recorded on both sides. Transfer legs stay uncategorized for the matcher.
// Reseeding overwrites the same ids.
func Seed(ctx context.Context, db *sql.DB, now time.Time, days int, rng *rand.Rand) (Summary, error) {
	if days <= 0 {
		days = 90
	}
	var sum Summary
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		accounts := repository.NewAccountRepo(tx)
		txs := repository.NewTransactionRepo(tx)

		balances := map[string]decimal.Decimal{
			checkingID: decimal.NewFromInt(2500),
			savingsID:  decimal.NewFromInt(12000),
			brokerID:   decimal.NewFromInt(30000),
		}
		saveAccounts := func() error {
			for _, a := range demoAccounts {
				a.Currency = "AUD"
				a.Balance = balances[a.ID].StringFixed(2)
				a.BalanceDate = now.Unix()
				if err := accounts.Upsert(ctx, a); err != nil {
					return fmt.Errorf("seed account: %w", err)
				}
			}
			return nil
		}
		if err := saveAccounts(); err != nil {
			return err
		}

		type categorized struct{ id, category string }
		var cats []categorized
		n := 0
		add := func(accountID string, at time.Time, cents int64, label string, payee *string, category string) error {
			n++
			amount := decimal.New(cents, -2)
			t := repository.Transaction{
				ID:          fmt.Sprintf("demo-%05d", n),
				AccountID:   accountID,
				Posted:      at.Unix(),
				Amount:      amount.StringFixed(2),
				Description: label,
				Payee:       payee,
			}
			if _, err := txs.Upsert(ctx, t); err != nil {
				return fmt.Errorf("seed transaction: %w", err)
			}
			balances[accountID] = balances[accountID].Add(amount)
			if category != "" {
				cats = append(cats, categorized{t.ID, category})
			}
			sum.Transactions++
			return nil
		}

		start := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -days)
		for d := 0; d <= days; d++ {
			day := start.AddDate(0, 0, d).Add(time.Duration(9+rng.Intn(10)) * time.Hour)
			for i := rng.Intn(3); i > 0; i-- {
				m := merchants[rng.Intn(len(merchants))]
				cents := m.Min
				if m.Max > m.Min {
					cents += rng.Int63n(m.Max - m.Min)
				}
				payee := m.Payee
				if err := add(checkingID, day, -cents, m.Label, &payee, m.Category); err != nil {
					return err
				}
			}
			if d%14 == 0 {
				employer := "Acme Pty Ltd"
				if err := add(checkingID, day, 420000, "SALARY ACME PTY LTD", &employer, "Salary"); err != nil {
					return err
				}
			}
			if day.Day() == 1 {
				if err := add(checkingID, day, -50000, "TRANSFER TO SAVINGS", nil, ""); err != nil {
					return err
				}
				if err := add(savingsID, day, 50000, "TRANSFER FROM EVERYDAY", nil, ""); err != nil {
					return err
				}
			}
		}

		if err := saveAccounts(); err != nil {
			return err
		}
		sum.Accounts = len(demoAccounts)
		for _, c := range cats {
			if err := txs.SetCategory(ctx, c.id, c.category); err != nil {
				return err
			}
		}
		return nil
	})
	return sum, err
}
