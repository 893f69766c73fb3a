// Package llm wraps the language-model providers used to write replies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"forumscout/app/config"
	"log/slog"

	"github.com/samber/do"
)

var (
	ErrMissingCredential = errors.New("llm api key is not configured")
	ErrEmptyCompletion   = errors.New("llm returned no text")
)

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

func NewClient(di *do.Injector) (Completer, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	return New(ctx, cfg.LLM)
}

// New builds the configured provider. A missing API key is not an error here:
// the returned Completer fails every call with ErrMissingCredential instead.
func New(ctx context.Context, cfg config.LLM) (Completer, error) {
	if cfg.APIKey == "" {
		slog.Warn("LLM api key not set, LLM replies will fall back to phrases", "provider", cfg.Provider)
		return missingCredential{}, nil
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg)
	case config.ProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

type missingCredential struct{}

func (missingCredential) Complete(context.Context, string) (string, error) {
	return "", ErrMissingCredential
}
