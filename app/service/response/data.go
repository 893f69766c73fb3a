package response

import "context"

// Request carries everything a strategy needs; strategies keep no state
// between calls.
type Request struct {
	Phrases []string
	// URL of the page used for augmentation, empty to disable it.
	URL string
	// Proxy used for the augmentation fetch, empty for a direct connection.
	Proxy        string
	PromptPrefix string
	// Post is the post being answered, nil outside the agent loop.
	Post *PostContext
}

type PostContext struct {
	Title string
	Body  string
}

type Fetcher interface {
	FetchText(ctx context.Context, url, proxy string) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Strategy produces reply text. Implementations never fail: every error on
// the augmentation path falls back to a plain phrase.
type Strategy interface {
	Generate(ctx context.Context, req Request) string
}
