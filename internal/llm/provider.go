// Package llm wraps hosted language models behind a single text-in,
// text-out interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNoAPIKey is returned when a provider has no credential configured.
var ErrNoAPIKey = errors.New("llm: api key not configured")

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// KeyLookup fetches a stored key for a provider name.
type KeyLookup func(provider string) (string, error)

// ResolveAPIKey prefers the named env var, then the explicit key, then the key store.
func ResolveAPIKey(provider, envName, explicit string, lookup KeyLookup) string {
	if envName != "" {
		if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if lookup != nil {
		if v, err := lookup(provider); err == nil {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// New returns the generator for provider. An empty apiKey yields a generator
// that fails with ErrNoAPIKey on use, so callers can still start up.
func New(provider, apiKey, model string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "gemini":
		return NewGeminiProvider(apiKey, model), nil
	case "openai":
		return NewOpenAIProvider(apiKey, model), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}

// WithTimeout bounds every Generate call on g by d. A non-positive d returns g.
func WithTimeout(g Generator, d time.Duration) Generator {
	if d <= 0 {
		return g
	}
	return timeoutGenerator{next: g, timeout: d}
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

func (t timeoutGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, prompt)
}
