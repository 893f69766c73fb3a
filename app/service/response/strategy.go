package response

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type TemplateStrategy struct {
	picker *Picker
}

func NewTemplateStrategy(picker *Picker) *TemplateStrategy {
	return &TemplateStrategy{picker: picker}
}

func (s *TemplateStrategy) Generate(_ context.Context, req Request) string {
	return s.picker.Pick(req.Phrases)
}

// AugmentedStrategy quotes a snippet of the augmentation page under the phrase.
type AugmentedStrategy struct {
	picker        *Picker
	fetcher       Fetcher
	snippetLength int
}

func NewAugmentedStrategy(picker *Picker, fetcher Fetcher, snippetLength int) *AugmentedStrategy {
	return &AugmentedStrategy{
		picker:        picker,
		fetcher:       fetcher,
		snippetLength: snippetLength,
	}
}

func (s *AugmentedStrategy) Generate(ctx context.Context, req Request) string {
	phrase := s.picker.Pick(req.Phrases)

	if req.URL == "" {
		return phrase
	}

	text, err := s.fetcher.FetchText(ctx, req.URL, req.Proxy)
	if err != nil {
		slog.Warn("Augmentation fetch failed, using plain phrase", "url", req.URL, "error", err)
		return phrase
	}

	snippet, truncated := truncate(text, s.snippetLength)
	snippet = strings.TrimSpace(snippet)
	if truncated {
		snippet += "..."
	}

	return fmt.Sprintf("%s\n\nHere's something I found: \"%s\"\n\n(Source: %s)", phrase, snippet, req.URL)
}

// LLMStrategy asks the language model to write the reply.
type LLMStrategy struct {
	picker        *Picker
	fetcher       Fetcher
	completer     Completer
	contextLength int
}

func NewLLMStrategy(picker *Picker, fetcher Fetcher, completer Completer, contextLength int) *LLMStrategy {
	return &LLMStrategy{
		picker:        picker,
		fetcher:       fetcher,
		completer:     completer,
		contextLength: contextLength,
	}
}

func (s *LLMStrategy) Generate(ctx context.Context, req Request) string {
	prompt := s.buildPrompt(ctx, req)
	if strings.TrimSpace(prompt) == "" {
		return s.picker.Pick(req.Phrases)
	}

	text, err := s.completer.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("LLM response failed, falling back to phrase", "error", err)
		return s.picker.Pick(req.Phrases)
	}

	return text
}

func (s *LLMStrategy) buildPrompt(ctx context.Context, req Request) string {
	var sb strings.Builder

	sb.WriteString(req.PromptPrefix)

	if req.Post != nil {
		fmt.Fprintf(&sb, "\n\nUser post title: %s\nUser post body: %s", req.Post.Title, req.Post.Body)
	}

	if req.URL != "" {
		text, err := s.fetcher.FetchText(ctx, req.URL, req.Proxy)
		if err != nil {
			slog.Warn("LLM context fetch failed, continuing without it", "url", req.URL, "error", err)
		} else {
			excerpt, _ := truncate(text, s.contextLength)
			fmt.Fprintf(&sb, "\n\nHere is some context from a webpage: %s...\n\n", strings.TrimSpace(excerpt))
		}
	}

	return sb.String()
}

// truncate cuts text to at most n characters.
func truncate(text string, n int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= n {
		return text, false
	}

	return string(runes[:n]), true
}
