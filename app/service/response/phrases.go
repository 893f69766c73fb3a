package response

import (
	"bufio"
	"errors"
	"fmt"
	"forumscout/app/config"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/samber/do"
)

// Phrases is the immutable set of reply templates loaded at startup.
type Phrases []string

func NewPhrases(di *do.Injector) (Phrases, error) {
	cfg := do.MustInvoke[*config.Config](di)

	phrases, err := LoadPhrases(cfg.Files.Phrases)
	if err != nil {
		slog.Warn("Could not load response phrases", "path", cfg.Files.Phrases, "error", err)
		return nil, nil
	}

	if len(phrases) == 0 {
		slog.Warn("No response phrases loaded, using fallback phrase", "path", cfg.Files.Phrases)
	} else {
		slog.Info("Loaded response phrases", "path", cfg.Files.Phrases, "count", len(phrases))
	}

	return phrases, nil
}

// LoadPhrases reads one phrase per line, ignoring blank lines.
// A missing file yields no phrases.
func LoadPhrases(path string) (Phrases, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open phrases file: %w", err)
	}
	defer file.Close()

	var phrases Phrases

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		phrases = append(phrases, line)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read phrases file: %w", err)
	}

	return phrases, nil
}

const DefaultFallback = "Hello there!"

// Picker draws phrases uniformly at random.
type Picker struct {
	fallback string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPicker(rng *rand.Rand, fallback string) *Picker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if fallback == "" {
		fallback = DefaultFallback
	}

	return &Picker{
		fallback: fallback,
		rng:      rng,
	}
}

// Pick returns a random phrase, or the fallback when phrases is empty.
func (p *Picker) Pick(phrases []string) string {
	if len(phrases) == 0 {
		return p.fallback
	}

	p.mu.Lock()
	i := p.rng.IntN(len(phrases))
	p.mu.Unlock()

	return phrases[i]
}
