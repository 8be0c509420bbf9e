package simplefin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidPayload wraps every shape violation found in an account set.
var ErrInvalidPayload = errors.New("invalid SimpleFIN payload")

// AccountSet is a validated /accounts response.
type AccountSet struct {
	Accounts []Account
	// Warnings are non-fatal messages the bridge returned alongside data.
	Warnings []string
}

// Account is a validated account with its transactions.
type Account struct {
	ID           string
	Name         string
	Currency     string
	Balance      string
	BalanceDate  int64
	Transactions []Transaction
}

// Transaction is a validated transaction. Amount is a decimal string.
type Transaction struct {
	ID           string
	Posted       int64
	Amount       string
	Description  string
	Payee        *string
	TransactedAt *int64
	Pending      bool
}

type wireSet struct {
	Errors   []string      `json:"errors"`
	Accounts *[]wireAccount `json:"accounts"`
}

type wireAccount struct {
	ID           *string           `json:"id"`
	Name         *string           `json:"name"`
	Currency     *string           `json:"currency"`
	Balance      json.RawMessage   `json:"balance"`
	BalanceDate  json.RawMessage   `json:"balance-date"`
	Transactions []wireTransaction `json:"transactions"`
}

type wireTransaction struct {
	ID           *string         `json:"id"`
	Posted       json.RawMessage `json:"posted"`
	Amount       json.RawMessage `json:"amount"`
	Description  *string         `json:"description"`
	Payee        *string         `json:"payee"`
	TransactedAt json.RawMessage `json:"transacted_at"`
	Pending      *bool           `json:"pending"`
}

// DecodeAccountSet parses and validates a response body in one step. Either
// every account and transaction is well formed or an error is returned.
func DecodeAccountSet(body []byte) (*AccountSet, error) {
	var w wireSet
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if w.Accounts == nil {
		return nil, fmt.Errorf("%w: missing accounts", ErrInvalidPayload)
	}

	set := &AccountSet{Warnings: w.Errors}
	for i, wa := range *w.Accounts {
		a, err := wa.validate()
		if err != nil {
			return nil, fmt.Errorf("%w: account %d: %v", ErrInvalidPayload, i, err)
		}
		set.Accounts = append(set.Accounts, a)
	}
	return set, nil
}

func (wa wireAccount) validate() (Account, error) {
	if wa.ID == nil || strings.TrimSpace(*wa.ID) == "" {
		return Account{}, errors.New("id is required")
	}
	a := Account{ID: *wa.ID}
	if wa.Name != nil {
		a.Name = *wa.Name
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	if wa.Currency != nil {
		a.Currency = *wa.Currency
	}
	bal, err := decimalField(wa.Balance)
	if err != nil {
		return Account{}, fmt.Errorf("balance: %w", err)
	}
	a.Balance = bal
	if a.BalanceDate, err = unixField(wa.BalanceDate); err != nil {
		return Account{}, fmt.Errorf("balance-date: %w", err)
	}
	for j, wt := range wa.Transactions {
		t, err := wt.validate()
		if err != nil {
			return Account{}, fmt.Errorf("transaction %d: %w", j, err)
		}
		a.Transactions = append(a.Transactions, t)
	}
	return a, nil
}

func (wt wireTransaction) validate() (Transaction, error) {
	if wt.ID == nil || strings.TrimSpace(*wt.ID) == "" {
		return Transaction{}, errors.New("id is required")
	}
	t := Transaction{ID: *wt.ID}
	if wt.Payee != nil && *wt.Payee != "" {
		t.Payee = wt.Payee
	}
	var err error
	if t.Posted, err = unixField(wt.Posted); err != nil {
		return Transaction{}, fmt.Errorf("posted: %w", err)
	}
	if t.Amount, err = decimalField(wt.Amount); err != nil {
		return Transaction{}, fmt.Errorf("amount: %w", err)
	}
	if wt.Description != nil {
		t.Description = *wt.Description
	}
	if isPresent(wt.TransactedAt) {
		ts, err := unixField(wt.TransactedAt)
		if err != nil {
			return Transaction{}, fmt.Errorf("transacted_at: %w", err)
		}
		if ts > 0 {
			t.TransactedAt = &ts
		}
	}
	if wt.Pending != nil {
		t.Pending = *wt.Pending
	}
	return t, nil
}

func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// decimalField accepts a JSON string or number holding a decimal and returns
// its canonical text.
func decimalField(raw json.RawMessage) (string, error) {
	if !isPresent(raw) {
		return "", errors.New("is required")
	}
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", err
		}
	} else {
		text = string(raw)
	}
	text = strings.TrimSpace(text)
	if _, err := decimal.NewFromString(text); err != nil {
		return "", fmt.Errorf("%q is not a decimal", text)
	}
	return text, nil
}

// unixField accepts an integral JSON number of seconds.
func unixField(raw json.RawMessage) (int64, error) {
	if !isPresent(raw) {
		return 0, errors.New("is required")
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("not a timestamp: %s", raw)
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("not a timestamp: %s", raw)
	}
	return int64(f), nil
}
