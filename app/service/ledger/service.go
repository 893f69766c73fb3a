package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"forumscout/app/config"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/do"
)

var ErrLoad = errors.New("ledger load failed")

var _ do.Shutdownable = (*Service)(nil)

// Service is the durable record of post ids that already received a reply.
// The file is the source of truth; the set mirrors it for the process lifetime.
type Service struct {
	mu      sync.RWMutex
	replied map[string]struct{}
	file    *os.File
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return Open(cfg.Files.Ledger, cfg.Ledger.LoadPolicy == config.LoadPolicyFailClosed)
}

// Open loads path and opens it for appending. A missing file is an empty
// ledger. Any other read error is logged and degrades to an empty ledger,
// unless failClosed is set, in which case it is returned.
func Open(path string, failClosed bool) (*Service, error) {
	replied, err := Load(path)
	if err != nil {
		if failClosed {
			return nil, err
		}

		slog.Warn("Could not read reply ledger, starting empty", "path", path, "error", err)
		replied = make(map[string]struct{})
	}

	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0755)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}

	slog.Info("Loaded reply ledger", "path", path, "count", len(replied))

	return &Service{
		replied: replied,
		file:    file,
	}, nil
}

// Load reads one id per line. Duplicate lines collapse.
func Load(path string) (map[string]struct{}, error) {
	replied := make(map[string]struct{})

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return replied, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}

		replied[id] = struct{}{}
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return replied, nil
}

func (s *Service) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.replied[id]
	return ok
}

// Record appends id to the file and syncs it before returning. The id joins
// the in-memory set even when the write fails, so the current process does
// not answer the same post twice; the write error is returned to the caller.
func (s *Service) Record(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.appendLine(id)
	s.replied[id] = struct{}{}

	if err != nil {
		return fmt.Errorf("failed to record %s: %w", id, err)
	}

	return nil
}

func (s *Service) appendLine(id string) error {
	if s.file == nil {
		return os.ErrClosed
	}

	if _, err := s.file.WriteString(id + "\n"); err != nil {
		return err
	}

	return s.file.Sync()
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.replied)
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil

	return err
}
