package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"forumscout/app/config"
	"forumscout/app/util/proxyhttp"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/samber/do"
)

// Service cycles through proxy endpoints in file order. The cursor is
// process-local and starts at the first entry.
type Service struct {
	mu     sync.Mutex
	pool   []string
	cursor int
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	pool, err := Load(cfg.Files.Proxies)
	if err != nil {
		slog.Warn("Could not load proxies, running without them", "path", cfg.Files.Proxies, "error", err)
	} else if len(pool) == 0 {
		slog.Warn("No proxies loaded, running without them", "path", cfg.Files.Proxies)
	} else {
		slog.Info("Loaded proxies", "path", cfg.Files.Proxies, "count", len(pool))
	}

	return NewRotator(pool), nil
}

func NewRotator(pool []string) *Service {
	return &Service{
		pool: append([]string(nil), pool...),
	}
}

// Load reads one endpoint per line, skipping blank lines and # comments.
// Lines that do not parse as a proxy endpoint are logged and dropped.
// A missing file yields an empty pool.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open proxies file: %w", err)
	}
	defer file.Close()

	var pool []string

	lineNo := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if _, err = proxyhttp.ParseProxy(line); err != nil {
			slog.Warn("Skipping malformed proxy", "path", path, "line", lineNo, "error", err)
			continue
		}

		pool = append(pool, line)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxies file: %w", err)
	}

	return pool, nil
}

// Next returns the next endpoint, wrapping after the last one.
// It returns false forever when the pool is empty.
func (s *Service) Next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pool) == 0 {
		return "", false
	}

	proxy := s.pool[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.pool)

	return proxy, true
}

func (s *Service) Len() int {
	return len(s.pool)
}
