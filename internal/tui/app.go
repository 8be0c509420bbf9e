// Package tui is a terminal reviewer for the categorization backlog.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/moneyboard/internal/database/repository"
	"github.com/jask/moneyboard/internal/service"
)

// Backlog is the subset of service.BacklogService the reviewer drives.
type Backlog interface {
	Next(ctx context.Context, skip int) (*service.BacklogItem, error)
	Assign(ctx context.Context, id, category string) (*service.AssignResult, error)
	AssignPayee(ctx context.Context, payee, category string) (int64, error)
}

type modalState string

const (
	modalNone   modalState = ""
	modalCustom modalState = "custom"
	modalBulk   modalState = "bulk"
)

// App shows one uncategorized transaction at a time.
type App struct {
	ctx     context.Context
	backlog Backlog
	item    *service.BacklogItem
	skip    int
	done    int
	modal   modalState
	input   string
	bulk    *service.AssignResult
	status  string
	loaded  bool
}

func New(ctx context.Context, backlog Backlog) *App {
	return &App{ctx: ctx, backlog: backlog}
}

func (a *App) Init() tea.Cmd {
	return a.loadItem()
}

func (a *App) loadItem() tea.Cmd {
	skip := a.skip
	return func() tea.Msg {
		item, err := a.backlog.Next(a.ctx, skip)
		if err != nil {
			return errMsg{err}
		}
		return itemMsg{item}
	}
}

func (a *App) assignCmd(id, category string) tea.Cmd {
	return func() tea.Msg {
		res, err := a.backlog.Assign(a.ctx, id, category)
		if err != nil {
			return errMsg{err}
		}
		return assignedMsg{res}
	}
}

func (a *App) assignPayeeCmd(payee, category string) tea.Cmd {
	return func() tea.Msg {
		n, err := a.backlog.AssignPayee(a.ctx, payee, category)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg(fmt.Sprintf("%d transactions from %s set to %s", n, payee, category))
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		return a.handleKey(m)
	case itemMsg:
		a.item = m.item
		a.loaded = true
		if a.item != nil {
			a.skip = a.item.Position
		}
	case assignedMsg:
		a.done++
		a.status = fmt.Sprintf("set to %s", m.res.Category)
		if m.res.SuggestBulk && m.res.Payee != nil {
			a.bulk = m.res
			a.modal = modalBulk
		}
		return a, a.loadItem()
	case statusMsg:
		a.status = string(m)
		return a, a.loadItem()
	case errMsg:
		a.status = "error: " + m.Error()
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c", "esc":
		return a, tea.Quit
	}
	if a.item == nil {
		return a, nil
	}
	id := a.item.Transaction.ID
	switch key := m.String(); key {
	case "1", "2", "3":
		idx := int(key[0] - '1')
		if idx >= len(a.item.Suggestions) {
			a.status = "no suggestion " + key
			return a, nil
		}
		return a, a.assignCmd(id, a.item.Suggestions[idx])
	case "t":
		return a, a.assignCmd(id, repository.CategoryInternalTransfer)
	case "c":
		a.modal = modalCustom
		a.input = ""
	case "s":
		a.skip++
		a.status = "skipped"
		return a, a.loadItem()
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalBulk:
		switch m.String() {
		case "y", "Y":
			res := a.bulk
			a.modal, a.bulk = modalNone, nil
			return a, a.assignPayeeCmd(*res.Payee, res.Category)
		case "n", "N", "esc":
			a.modal, a.bulk = modalNone, nil
		}
	case modalCustom:
		switch m.Type {
		case tea.KeyEsc:
			a.modal, a.input = modalNone, ""
		case tea.KeyEnter:
			text := strings.TrimSpace(a.input)
			if text == "" {
				a.status = "enter a category"
				return a, nil
			}
			a.modal, a.input = modalNone, ""
			if a.item == nil {
				return a, nil
			}
			return a, a.assignCmd(a.item.Transaction.ID, text)
		case tea.KeyBackspace:
			if r := []rune(a.input); len(r) > 0 {
				a.input = string(r[:len(r)-1])
			}
		case tea.KeySpace:
			a.input += " "
		case tea.KeyRunes:
			a.input += string(m.Runes)
		}
	}
	return a, nil
}

type itemMsg struct{ item *service.BacklogItem }

type assignedMsg struct{ res *service.AssignResult }

type statusMsg string

type errMsg struct{ error }

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	amountStyle = lipgloss.NewStyle().Bold(true)
	outStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	inStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
	modalStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Categorization backlog"))
	b.WriteString("\n")

	switch {
	case !a.loaded:
		b.WriteString("loading...\n")
	case a.item == nil:
		fmt.Fprintf(&b, "Backlog is empty. %d categorized this session.\n", a.done)
		b.WriteString(helpStyle.Render("[q] Quit"))
	default:
		b.WriteString(a.renderItem())
	}
	if a.modal != modalNone {
		b.WriteString("\n\n" + a.renderModal())
	}
	if a.status != "" {
		b.WriteString("\n" + a.status)
	}
	return b.String()
}

func (a *App) renderItem() string {
	tx := a.item.Transaction
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d\n\n", a.item.Position+1, a.item.Remaining)
	fmt.Fprintf(&b, "%s  %s\n", time.Unix(tx.EffectiveTime(), 0).UTC().Format("2006-01-02"), tx.Description)
	if tx.Payee != nil && *tx.Payee != "" {
		fmt.Fprintf(&b, "Payee: %s\n", *tx.Payee)
	}
	style := inStyle
	if strings.HasPrefix(strings.TrimSpace(tx.Amount), "-") {
		style = outStyle
	}
	b.WriteString(amountStyle.Inherit(style).Render(tx.Amount))
	if tx.Pending {
		b.WriteString(" (pending)")
	}
	b.WriteString("\n\n")
	for i, s := range a.item.Suggestions {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, s)
	}
	b.WriteString(helpStyle.Render("[c] Custom  [t] Internal transfer  [s] Skip  [q] Quit"))
	return b.String()
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalCustom:
		return modalStyle.Render("Category: " + a.input + "_\n[enter] Save  [esc] Cancel")
	case modalBulk:
		return modalStyle.Render(fmt.Sprintf("Apply %s to all %d transactions from %s? [y/n]", a.bulk.Category, a.bulk.PayeeCount, *a.bulk.Payee))
	}
	return ""
}
