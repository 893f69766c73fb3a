package main

import (
	"context"
	"errors"
	"forumscout/app/client/llm"
	"forumscout/app/client/reddit"
	"forumscout/app/client/scraper"
	"forumscout/app/config"
	"forumscout/app/service/engine"
	"forumscout/app/service/ledger"
	"forumscout/app/service/proxy"
	"forumscout/app/service/response"
	"forumscout/app/util/mylog"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errInterrupted = errors.New("interrupted")

func main() {
	var (
		configPath string
		every      time.Duration
	)

	rootCmd := &cobra.Command{
		Use:   "forumscout",
		Short: "Scan forums for relevant posts and reply to them",
		Long: "Runs one scan cycle over the configured forums and exits. " +
			"Pass --every to keep repeating cycles until interrupted.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, every)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config")
	rootCmd.Flags().DurationVar(&every, "every", 0, "repeat cycles at this interval (0 runs a single cycle)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, every time.Duration) error {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	if ctx == nil {
		ctx = context.Background()
	}
	appCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg.Log); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, reddit.NewClient)
	do.Provide(di, scraper.NewClient)
	do.Provide(di, llm.NewClient)
	do.Provide(di, proxy.New)
	do.Provide(di, ledger.New)
	do.Provide(di, response.NewPhrases)
	do.Provide(di, response.New)
	do.Provide(di, engine.New)

	agent, err := do.Invoke[*engine.Service](di)
	if err != nil {
		log.Fatalf("agent init failed: %v", err)
	}

	slog.Info("Service started",
		"forums", cfg.Agent.Forums,
		"mode", do.MustInvoke[*response.Service](di).Mode(),
		"replied_posts", do.MustInvoke[*ledger.Service](di).Len(),
		"augmentation_url", cfg.Agent.AugmentationURL,
		"dry_run", cfg.Reddit.DryRun,
	)

	g, gctx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
			log.Info("Shutting down...")
			cancel(errInterrupted)
		case <-gctx.Done():
		}

		return nil
	})

	g.Go(func() error {
		defer cancel(nil)

		return agent.Run(appCtx, every)
	})

	if err = g.Wait(); err != nil && !errors.Is(err, errInterrupted) {
		slog.Error("Agent stopped", "error", err)
		return err
	}

	return nil
}
