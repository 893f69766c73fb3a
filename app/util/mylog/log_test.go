package mylog

import (
	"context"
	"forumscout/app/config"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldNotify(t *testing.T) {
	ctx := context.Background()

	record := func(level slog.Level, attrs ...slog.Attr) slog.Record {
		r := slog.NewRecord(time.Now(), level, "msg", 0)
		r.AddAttrs(attrs...)
		return r
	}

	assert.False(t, shouldNotify(ctx, record(slog.LevelInfo)))
	assert.False(t, shouldNotify(ctx, record(slog.LevelWarn, slog.String("post_id", "abc"))))
	assert.True(t, shouldNotify(ctx, record(slog.LevelInfo, Notify())))
	assert.False(t, shouldNotify(ctx, record(slog.LevelInfo, slog.Bool(NotifyKey, false))))
	assert.True(t, shouldNotify(ctx, record(slog.LevelError)))
	assert.True(t, shouldNotify(ctx, record(slog.LevelError+4)))
}

func TestInit(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	assert.Error(t, Init(config.Log{Level: "chatty"}))
	assert.NoError(t, Init(config.Log{Level: "warn"}))
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
}
