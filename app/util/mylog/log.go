package mylog

import (
	"context"
	"forumscout/app/config"
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// NotifyKey tags records that are mirrored to the Telegram chat regardless of level.
const NotifyKey = "telegram"

// Notify returns the attribute that routes a record to Telegram.
func Notify() slog.Attr {
	return slog.Bool(NotifyKey, true)
}

// Preinit installs a console logger used until the config is loaded.
func Preinit() {
	slog.SetDefault(slog.New(consoleHandler(slog.LevelDebug)))
}

func Init(cfg config.Log) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return err
	}

	router := slogmulti.Router().Add(consoleHandler(level))

	if cfg.Telegram.Token != "" {
		router = router.Add(
			slogtelegram.Option{
				Level:     slog.LevelDebug,
				Token:     cfg.Telegram.Token,
				Username:  cfg.Telegram.ChatID,
				AddSource: true,
			}.NewTelegramHandler(),
			shouldNotify,
		)
	}

	slog.SetDefault(slog.New(router.Handler()))

	return nil
}

func consoleHandler(level slog.Level) slog.Handler {
	return console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     level,
	})
}

func shouldNotify(_ context.Context, r slog.Record) bool {
	if r.Level >= slog.LevelError {
		return true
	}

	notify := false
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != NotifyKey {
			return true
		}
		notify = attr.Value.Kind() == slog.KindBool && attr.Value.Bool()
		return false
	})

	return notify
}
