// Package insights turns a natural-language question into a read-only SQL
// query via a language model and runs it.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jask/moneyboard/internal/llm"
)

// Error carries the HTTP status a failure maps to and, for model output
// problems, the raw text for debugging.
type Error struct {
	Status  int
	Message string
	Raw     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// CategorySource lists the categories described to the model.
type CategorySource interface {
	SchemaCategories(ctx context.Context) ([]string, error)
}

// Querier executes a vetted read statement.
type Querier interface {
	Query(ctx context.Context, query string) ([]map[string]any, error)
}

// Result is a successful answer.
type Result struct {
	Chart string           `json:"chart"`
	Rows  []map[string]any `json:"rows"`
	SQL   string           `json:"sql"`
}

// Bridge wires the model, the category list and the read-only store.
type Bridge struct {
	Generator  llm.Generator
	Categories CategorySource
	Store      Querier
	Log        zerolog.Logger
}

var firstObject = regexp.MustCompile(`\{[\s\S]*\}`)

// Ask answers prompt. Every failure is an *Error.
func (b *Bridge) Ask(ctx context.Context, prompt string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: "Missing prompt"}
	}
	if b.Generator == nil {
		return nil, &Error{Status: http.StatusServiceUnavailable, Message: "AI insights are not configured", Err: llm.ErrNoAPIKey}
	}

	var categories []string
	if b.Categories != nil {
		cats, err := b.Categories.SchemaCategories(ctx)
		if err != nil {
			b.Log.Warn().Err(err).Msg("insights: category lookup failed, continuing without")
		}
		categories = cats
	}

	text, err := b.Generator.Generate(ctx, BuildPrompt(prompt, categories))
	if err != nil {
		if errors.Is(err, llm.ErrNoAPIKey) {
			return nil, &Error{Status: http.StatusServiceUnavailable, Message: "AI insights are not configured", Err: err}
		}
		return nil, &Error{Status: http.StatusBadGateway, Message: "Model request failed", Err: err}
	}

	sql, chart, ok := ParseModelOutput(text)
	if !ok {
		return nil, &Error{Status: http.StatusBadGateway, Message: "Invalid model response", Raw: text}
	}

	stmt, err := CheckSQL(sql)
	if err != nil {
		b.Log.Warn().Str("sql", sql).Msg("insights: rejected generated sql")
		return nil, &Error{Status: http.StatusBadRequest, Message: "Unsafe SQL detected", Err: err}
	}

	rows, err := b.Store.Query(ctx, stmt)
	if err != nil {
		return nil, &Error{Status: http.StatusBadGateway, Message: "Generated query failed", Raw: sql, Err: err}
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return &Result{Chart: chart, Rows: rows, SQL: sql}, nil
}

// ParseModelOutput extracts {sql, chart} from the first JSON object in text.
func ParseModelOutput(text string) (sql, chart string, ok bool) {
	match := firstObject.FindString(text)
	if match == "" {
		return "", "", false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return "", "", false
	}
	sql, isString := payload["sql"].(string)
	if !isString {
		return "", "", false
	}
	chart, _ = payload["chart"].(string)
	if !validChart(chart) {
		return "", "", false
	}
	return sql, chart, true
}
