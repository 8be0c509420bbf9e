package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/jask/moneyboard/internal/database/repository"
)

const (
	maxSuggestions = 3
	// bulkPayeeThreshold is the payee row count above which a bulk
	// recategorization is offered.
	bulkPayeeThreshold = 3
	minSimilarity      = 0.6
)

var ErrEmptyCategory = errors.New("category must not be empty")

// BacklogItem is one uncategorized transaction plus its place in the queue.
type BacklogItem struct {
	Transaction repository.Transaction `json:"transaction"`
	Position    int                    `json:"position"`
	Remaining   int                    `json:"remaining"`
	Suggestions []string               `json:"suggestions"`
}

// AssignResult reports a single categorization.
type AssignResult struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Payee       *string `json:"payee,omitempty"`
	PayeeCount  int     `json:"payeeCount"`
	SuggestBulk bool    `json:"suggestBulk"`
}

// BacklogService walks the user through visible uncategorized transactions.
type BacklogService struct {
	Transactions *repository.TransactionRepo
}

// Count is the backlog size.
func (s *BacklogService) Count(ctx context.Context) (int, error) {
	return s.Transactions.CountUncategorized(ctx)
}

// Next returns the item at skip, wrapping past the end so skipped items come
// round again. A nil item means the backlog is empty.
func (s *BacklogService) Next(ctx context.Context, skip int) (*BacklogItem, error) {
	items, err := s.Transactions.Uncategorized(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	if skip < 0 {
		skip = 0
	}
	pos := skip % len(items)
	tx := items[pos]

	suggestions, err := s.Suggest(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &BacklogItem{Transaction: tx, Position: pos, Remaining: len(items), Suggestions: suggestions}, nil
}

// Suggest ranks categories for tx: first those used on similar labels, then
// the most used categories overall.
func (s *BacklogService) Suggest(ctx context.Context, tx repository.Transaction) ([]string, error) {
	examples, err := s.Transactions.LabelExamples(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := s.Transactions.CategoryUsage(ctx)
	if err != nil {
		return nil, err
	}

	label := normalizeLabel(counterparty(tx))
	best := map[string]float64{}
	for _, ex := range examples {
		score := similarity(label, normalizeLabel(ex.Label))
		if score >= minSimilarity && score > best[ex.Category] {
			best[ex.Category] = score
		}
	}
	ranked := make([]string, 0, len(best))
	for c := range best {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if best[ranked[i]] == best[ranked[j]] {
			return ranked[i] < ranked[j]
		}
		return best[ranked[i]] > best[ranked[j]]
	})

	out := make([]string, 0, maxSuggestions)
	seen := map[string]bool{}
	add := func(c string) {
		if len(out) < maxSuggestions && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range ranked {
		add(c)
	}
	for _, u := range usage {
		add(u.Category)
	}
	return out, nil
}

// Categories lists the categories a user can pick from.
func (s *BacklogService) Categories(ctx context.Context) ([]string, error) {
	all, err := s.Transactions.Categories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, c := range all {
		if c != repository.CategoryUncategorized && strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// Assign sets one transaction's category.
func (s *BacklogService) Assign(ctx context.Context, id, category string) (*AssignResult, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrEmptyCategory
	}
	if err := s.Transactions.SetCategory(ctx, id, category); err != nil {
		return nil, err
	}
	tx, err := s.Transactions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &AssignResult{ID: id, Category: category}
	if tx != nil && tx.Payee != nil && *tx.Payee != "" {
		n, err := s.Transactions.CountByPayee(ctx, *tx.Payee)
		if err != nil {
			return nil, err
		}
		res.Payee = tx.Payee
		res.PayeeCount = n
		res.SuggestBulk = n > bulkPayeeThreshold
	}
	return res, nil
}

// AssignPayee sets the category of every transaction from payee.
func (s *BacklogService) AssignPayee(ctx context.Context, payee, category string) (int64, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return 0, ErrEmptyCategory
	}
	if strings.TrimSpace(payee) == "" {
		return 0, errors.New("payee must not be empty")
	}
	return s.Transactions.SetCategoryByPayee(ctx, payee, category)
}

func counterparty(t repository.Transaction) string {
	if t.Payee != nil && *t.Payee != "" {
		return *t.Payee
	}
	return t.Description
}

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// similarity is 1 minus the edit distance over the longer length.
func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
