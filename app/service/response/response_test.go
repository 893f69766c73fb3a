package response

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	text  string
	err   error
	calls []string
}

func (f *fakeFetcher) FetchText(_ context.Context, url, proxy string) (string, error) {
	f.calls = append(f.calls, url+"|"+proxy)
	return f.text, f.err
}

type fakeCompleter struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func seeded(seed uint64) *Picker {
	return NewPicker(rand.New(rand.NewPCG(seed, seed)), "Hello there!")
}

var phrases = []string{"Hi!", "Hey there!", "Sounds fun!", "Count me in", "Welcome!"}

func TestLoadPhrases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "response_phrases.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hi!\n\n   \n  Hey there!  \n"), 0o644))

	got, err := LoadPhrases(path)
	require.NoError(t, err)
	assert.Equal(t, Phrases{"Hi!", "Hey there!"}, got)

	missing, err := LoadPhrases(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestPicker_EmptyUsesFallback(t *testing.T) {
	assert.Equal(t, "Hello there!", seeded(1).Pick(nil))
	assert.Equal(t, DefaultFallback, NewPicker(nil, "").Pick(nil))
}

func TestPicker_DrawsFromPhrases(t *testing.T) {
	p := seeded(7)
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		got := p.Pick(phrases)
		assert.Contains(t, phrases, got)
		seen[got] = true
	}

	assert.Len(t, seen, len(phrases))
}

func TestTemplateStrategy_NeverEmpty(t *testing.T) {
	s := NewTemplateStrategy(seeded(1))

	assert.Equal(t, "Hello there!", s.Generate(context.Background(), Request{}))
	assert.Equal(t, "Hi!", s.Generate(context.Background(), Request{Phrases: []string{"Hi!"}}))
}

func TestAugmentedStrategy_Snippet(t *testing.T) {
	fetcher := &fakeFetcher{text: strings.Repeat("a", 150) + "  " + strings.Repeat("b", 100)}
	s := NewAugmentedStrategy(seeded(1), fetcher, 200)

	got := s.Generate(context.Background(), Request{
		Phrases: []string{"Hi!"},
		URL:     "https://example.com/",
		Proxy:   "http://p1:8080",
	})

	want := "Hi!\n\nHere's something I found: \"" + strings.Repeat("a", 150) + "  " + strings.Repeat("b", 48) + "...\"\n\n(Source: https://example.com/)"
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"https://example.com/|http://p1:8080"}, fetcher.calls)
}

func TestAugmentedStrategy_ShortTextNoEllipsis(t *testing.T) {
	s := NewAugmentedStrategy(seeded(1), &fakeFetcher{text: "  Board games every Friday. "}, 200)

	got := s.Generate(context.Background(), Request{Phrases: []string{"Hi!"}, URL: "https://example.com/"})
	assert.Equal(t, "Hi!\n\nHere's something I found: \"Board games every Friday.\"\n\n(Source: https://example.com/)", got)
}

func TestAugmentedStrategy_CountsCharactersNotBytes(t *testing.T) {
	s := NewAugmentedStrategy(seeded(1), &fakeFetcher{text: "привет мир"}, 6)

	got := s.Generate(context.Background(), Request{Phrases: []string{"Hi!"}, URL: "https://example.com/"})
	assert.Contains(t, got, "\"привет...\"")
}

func TestAugmentedStrategy_FetchFailureMatchesTemplate(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		template := NewTemplateStrategy(seeded(seed))
		augmented := NewAugmentedStrategy(seeded(seed), &fakeFetcher{err: errors.New("timeout")}, 200)

		req := Request{Phrases: phrases, URL: "https://example.com/"}
		assert.Equal(t, template.Generate(context.Background(), req), augmented.Generate(context.Background(), req))
	}
}

func TestAugmentedStrategy_NoURL(t *testing.T) {
	fetcher := &fakeFetcher{text: "ignored"}
	s := NewAugmentedStrategy(seeded(1), fetcher, 200)

	assert.Equal(t, "Hi!", s.Generate(context.Background(), Request{Phrases: []string{"Hi!"}}))
	assert.Empty(t, fetcher.calls)
}

func TestLLMStrategy_Prompt(t *testing.T) {
	completer := &fakeCompleter{text: "Have you tried a board game cafe?"}
	fetcher := &fakeFetcher{text: strings.Repeat("x", 1200)}
	s := NewLLMStrategy(seeded(1), fetcher, completer, 1000)

	got := s.Generate(context.Background(), Request{
		Phrases:      []string{"Hi!"},
		URL:          "https://example.com/",
		Proxy:        "http://p1:8080",
		PromptPrefix: "You are friendly.",
		Post:         &PostContext{Title: "Lonely in Berlin", Body: "any meetups?"},
	})

	assert.Equal(t, "Have you tried a board game cafe?", got)
	require.Len(t, completer.prompts, 1)
	assert.Equal(t,
		"You are friendly.\n\nUser post title: Lonely in Berlin\nUser post body: any meetups?"+
			"\n\nHere is some context from a webpage: "+strings.Repeat("x", 1000)+"...\n\n",
		completer.prompts[0])
}

func TestLLMStrategy_ContextFetchFailureStillCallsLLM(t *testing.T) {
	completer := &fakeCompleter{text: "reply"}
	s := NewLLMStrategy(seeded(1), &fakeFetcher{err: errors.New("dns")}, completer, 1000)

	got := s.Generate(context.Background(), Request{PromptPrefix: "Be nice.", URL: "https://example.com/"})
	assert.Equal(t, "reply", got)
	assert.Equal(t, []string{"Be nice."}, completer.prompts)
}

func TestLLMStrategy_FallsBack(t *testing.T) {
	tests := []struct {
		name      string
		completer *fakeCompleter
	}{
		{name: "error", completer: &fakeCompleter{err: errors.New("llm api key is not configured")}},
		{name: "blank", completer: &fakeCompleter{text: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewLLMStrategy(seeded(3), &fakeFetcher{}, tt.completer, 1000)
			want := NewTemplateStrategy(seeded(3)).Generate(context.Background(), Request{Phrases: phrases})

			got := s.Generate(context.Background(), Request{Phrases: phrases, PromptPrefix: "Be nice."})
			assert.Equal(t, want, got)
		})
	}
}

func TestLLMStrategy_EmptyPromptSkipsLLM(t *testing.T) {
	completer := &fakeCompleter{text: "never"}
	s := NewLLMStrategy(seeded(1), &fakeFetcher{}, completer, 1000)

	assert.Equal(t, "Hello there!", s.Generate(context.Background(), Request{}))
	assert.Empty(t, completer.prompts)
}

func TestService(t *testing.T) {
	_, err := NewService("template", nil)
	assert.Error(t, err)

	s, err := NewService("template", NewTemplateStrategy(seeded(1)))
	require.NoError(t, err)
	assert.Equal(t, "template", s.Mode())
	assert.Equal(t, "Hi!", s.Generate(context.Background(), Request{Phrases: []string{"Hi!"}}))
}
