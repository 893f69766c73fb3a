package engine

import (
	"context"
	"fmt"
	"forumscout/app/client/reddit"
	"forumscout/app/config"
	"forumscout/app/service/ledger"
	"forumscout/app/service/proxy"
	"forumscout/app/service/relevance"
	"forumscout/app/service/response"
	"forumscout/app/util/mylog"
	"forumscout/app/util/pace"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
)

const previewLength = 100

type Service struct {
	cfg       *config.Config
	forum     Forum
	rotator   Rotator
	ledger    Ledger
	generator Generator
	phrases   response.Phrases
	filter    *relevance.Filter
	sleeper   pace.Sleeper
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*reddit.Client](di),
		do.MustInvoke[*proxy.Service](di),
		do.MustInvoke[*ledger.Service](di),
		do.MustInvoke[*response.Service](di),
		do.MustInvoke[response.Phrases](di),
		pace.TimerSleeper{},
	), nil
}

func NewService(
	cfg *config.Config,
	forum Forum,
	rotator Rotator,
	replies Ledger,
	generator Generator,
	phrases response.Phrases,
	sleeper pace.Sleeper,
) *Service {
	return &Service{
		cfg:       cfg,
		forum:     forum,
		rotator:   rotator,
		ledger:    replies,
		generator: generator,
		phrases:   phrases,
		filter:    relevance.New(cfg.Agent.Keywords),
		sleeper:   sleeper,
	}
}

// Run executes one cycle, or keeps repeating cycles every interval when
// interval is positive, until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			slog.Error("Cycle stopped early", "error", err)
		}

		if interval <= 0 {
			return nil
		}

		slog.Info("Waiting for next cycle", "interval", interval)

		if err := s.sleeper.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// RunCycle scans every configured forum once. A forum failure rotates the
// proxy and moves on to the next forum; running out of proxies ends the cycle.
func (s *Service) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	log := slog.With("cycle_id", uuid.NewString())
	log.Info("Starting agent cycle",
		"forums", len(s.cfg.Agent.Forums),
		"keywords", s.filter.Keywords(),
		"proxies", s.rotator.Len())

	start := time.Now()
	defer func() {
		log.Info("Agent cycle finished",
			"forums", stats.Forums,
			"failed_forums", stats.FailedForums,
			"scanned", stats.Scanned,
			"relevant", stats.Relevant,
			"skipped", stats.Skipped,
			"replied", stats.Replied,
			"failed", stats.Failed,
			"duration", time.Since(start))
	}()

	currentProxy, _ := s.rotator.Next()
	if err := s.forum.SetProxy(currentProxy); err != nil {
		log.Warn("Could not apply proxy, rotating", "proxy", currentProxy, "error", err)

		if currentProxy, err = s.failover(log, s.rotator.Len()-1); err != nil {
			return stats, err
		}
	}

	for i, forum := range s.cfg.Agent.Forums {
		if i > 0 {
			if err := s.sleeper.Sleep(ctx, s.cfg.Agent.ForumDelay); err != nil {
				return stats, err
			}
		}

		stats.Forums++

		forumLog := log.With("forum", forum)
		forumLog.Info("Browsing forum for new posts", "limit", s.cfg.Agent.PostLimit)

		err := s.processForum(ctx, forumLog, forum, currentProxy, &stats)
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return stats, context.Cause(ctx)
		}

		stats.FailedForums++
		forumLog.Error("Error running agent for forum", "proxy", currentProxy, "error", err)

		if currentProxy, err = s.failover(forumLog, s.rotator.Len()); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// failover advances the rotation until the forum client accepts an endpoint,
// trying at most attempts entries.
func (s *Service) failover(log *slog.Logger, attempts int) (string, error) {
	for range attempts {
		next, ok := s.rotator.Next()
		if !ok {
			break
		}

		if err := s.forum.SetProxy(next); err != nil {
			log.Warn("Skipping unusable proxy", "proxy", next, "error", err)
			continue
		}

		log.Info("Switched to next proxy", "proxy", next)

		return next, nil
	}

	log.Error("No more proxies available, agent stopping")

	return "", ErrProxiesExhausted
}

func (s *Service) processForum(ctx context.Context, log *slog.Logger, forum, currentProxy string, stats *CycleStats) error {
	posts, err := s.forum.NewPosts(ctx, forum, s.cfg.Agent.PostLimit)
	if err != nil {
		return fmt.Errorf("NewPosts: %w", err)
	}

	for _, post := range posts {
		stats.Scanned++

		if !s.filter.Match(post.Title, post.Body) {
			continue
		}
		stats.Relevant++

		postLog := log.With("post_id", post.ID)

		if s.ledger.Contains(post.ID) {
			stats.Skipped++
			postLog.Debug("Already replied to post")
			continue
		}

		postLog.Info("Detected relevant post", "title", post.Title, "author", post.Author)

		if err = s.reply(ctx, postLog, post, currentProxy); err != nil {
			stats.Failed++
			return err
		}
		stats.Replied++

		if err = s.sleeper.Sleep(ctx, s.cfg.Agent.ReplyCooldown); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) reply(ctx context.Context, log *slog.Logger, post reddit.Post, currentProxy string) error {
	text := s.generator.Generate(ctx, response.Request{
		Phrases:      s.phrases,
		URL:          s.cfg.Agent.AugmentationURL,
		Proxy:        currentProxy,
		PromptPrefix: s.cfg.Agent.PromptPrefix,
		Post:         &response.PostContext{Title: post.Title, Body: post.Body},
	})

	log.Debug("Generated response", "preview", preview(text))

	atMostOnce := s.cfg.Ledger.Delivery == config.DeliveryAtMostOnce
	if atMostOnce {
		if err := s.ledger.Record(post.ID); err != nil {
			log.Error("Failed to pre-record post", "error", err)
		}
	}

	if err := s.forum.Reply(ctx, post.ID, text); err != nil {
		if atMostOnce {
			log.Warn("Reply failed after pre-record, post will not be retried", "error", err)
		}
		return fmt.Errorf("Reply %s: %w", post.ID, err)
	}

	log.Info("Replied to post", "title", post.Title, "url", post.URL, "text", text, mylog.Notify())

	if !atMostOnce {
		if err := s.ledger.Record(post.ID); err != nil {
			log.Error("Failed to record replied post", "error", err)
		}
	}

	return nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}

	return string(runes[:previewLength]) + "..."
}
