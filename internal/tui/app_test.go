package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/moneyboard/internal/database/repository"
	"github.com/jask/moneyboard/internal/service"
)

type fakeBacklog struct {
	items    []repository.Transaction
	assigned map[string]string
	bulk     map[string]string
	payeeN   int
}

func (f *fakeBacklog) Next(_ context.Context, skip int) (*service.BacklogItem, error) {
	var open []repository.Transaction
	for _, t := range f.items {
		if _, done := f.assigned[t.ID]; !done {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return nil, nil
	}
	pos := skip % len(open)
	return &service.BacklogItem{Transaction: open[pos], Position: pos, Remaining: len(open), Suggestions: []string{"Groceries", "Dining"}}, nil
}

func (f *fakeBacklog) Assign(_ context.Context, id, category string) (*service.AssignResult, error) {
	f.assigned[id] = category
	res := &service.AssignResult{ID: id, Category: category}
	for _, t := range f.items {
		if t.ID == id && t.Payee != nil {
			res.Payee = t.Payee
			res.PayeeCount = f.payeeN
			res.SuggestBulk = f.payeeN > 3
		}
	}
	return res, nil
}

func (f *fakeBacklog) AssignPayee(_ context.Context, payee, category string) (int64, error) {
	f.bulk[payee] = category
	return int64(f.payeeN), nil
}

func keyMsg(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// drive applies msg and then every message produced by resulting commands.
func drive(t *testing.T, a *App, msg tea.Msg) *App {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next, cmd := a.Update(queue[0])
		a = next.(*App)
		queue = queue[1:]
		if cmd != nil {
			if out := cmd(); out != nil {
				queue = append(queue, out)
			}
		}
	}
	return a
}

func newFake() *fakeBacklog {
	payee := "Uber"
	return &fakeBacklog{
		items: []repository.Transaction{
			{ID: "a", Amount: "-12.00", Description: "UBER TRIP", Payee: &payee, Posted: 1710000000},
			{ID: "b", Amount: "40.00", Description: "REFUND", Posted: 1709900000},
		},
		assigned: map[string]string{},
		bulk:     map[string]string{},
	}
}

func TestReviewerPicksSuggestionAndSkips(t *testing.T) {
	f := newFake()
	a := New(context.Background(), f)
	a = drive(t, a, a.Init()())
	require.Equal(t, "a", a.item.Transaction.ID)
	require.Contains(t, a.View(), "1 of 2")
	require.Contains(t, a.View(), "[1] Groceries")

	a = drive(t, a, keyMsg("s"))
	require.Equal(t, "b", a.item.Transaction.ID)

	a = drive(t, a, keyMsg("2"))
	require.Equal(t, "Dining", f.assigned["b"])
	require.Equal(t, "a", a.item.Transaction.ID)

	a = drive(t, a, keyMsg("t"))
	require.Equal(t, repository.CategoryInternalTransfer, f.assigned["a"])
	require.Nil(t, a.item)
	require.Contains(t, a.View(), "Backlog is empty. 2 categorized")
}

func TestReviewerCustomCategoryAndBulkPrompt(t *testing.T) {
	f := newFake()
	f.payeeN = 5
	a := New(context.Background(), f)
	a = drive(t, a, a.Init()())

	a = drive(t, a, keyMsg("c"))
	require.Equal(t, modalCustom, a.modal)
	for _, r := range "Ride" {
		a = drive(t, a, keyMsg(string(r)))
	}
	a = drive(t, a, tea.KeyMsg{Type: tea.KeySpace})
	for _, r := range "share" {
		a = drive(t, a, keyMsg(string(r)))
	}
	a = drive(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "Ride share", f.assigned["a"])
	require.Equal(t, modalBulk, a.modal)
	require.True(t, strings.Contains(a.View(), "all 5 transactions from Uber"))

	a = drive(t, a, keyMsg("y"))
	require.Equal(t, modalNone, a.modal)
	require.Equal(t, "Ride share", f.bulk["Uber"])
	require.Contains(t, a.status, "5 transactions from Uber")
}

func TestReviewerQuits(t *testing.T) {
	a := New(context.Background(), newFake())
	_, cmd := a.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}
