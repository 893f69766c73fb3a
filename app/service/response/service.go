package response

import (
	"context"
	"fmt"
	"forumscout/app/client/llm"
	"forumscout/app/client/scraper"
	"forumscout/app/config"

	"github.com/samber/do"
)

// Service composes reply text with the strategy selected by the configured mode.
type Service struct {
	mode     string
	strategy Strategy
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	picker := NewPicker(nil, cfg.Agent.FallbackPhrase)

	switch cfg.Agent.Mode {
	case config.ModeLLM:
		return NewService(cfg.Agent.Mode, NewLLMStrategy(
			picker,
			do.MustInvoke[*scraper.Client](di),
			do.MustInvoke[llm.Completer](di),
			cfg.Agent.ContextLength,
		))
	case config.ModeAugmented:
		return NewService(cfg.Agent.Mode, NewAugmentedStrategy(
			picker,
			do.MustInvoke[*scraper.Client](di),
			cfg.Agent.SnippetLength,
		))
	default:
		return NewService(cfg.Agent.Mode, NewTemplateStrategy(picker))
	}
}

func NewService(mode string, strategy Strategy) (*Service, error) {
	if strategy == nil {
		return nil, fmt.Errorf("no strategy for mode %q", mode)
	}

	return &Service{
		mode:     mode,
		strategy: strategy,
	}, nil
}

func (s *Service) Generate(ctx context.Context, req Request) string {
	return s.strategy.Generate(ctx, req)
}

func (s *Service) Mode() string {
	return s.mode
}
