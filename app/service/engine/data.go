package engine

import (
	"context"
	"errors"
	"forumscout/app/client/reddit"
	"forumscout/app/service/response"
)

var ErrProxiesExhausted = errors.New("no more proxies available")

type Forum interface {
	SetProxy(proxy string) error
	NewPosts(ctx context.Context, forum string, limit int) ([]reddit.Post, error)
	Reply(ctx context.Context, postID, text string) error
}

type Ledger interface {
	Contains(id string) bool
	Record(id string) error
}

type Rotator interface {
	Next() (string, bool)
	Len() int
}

type Generator interface {
	Generate(ctx context.Context, req response.Request) string
}

// CycleStats summarizes one pass over all forums.
type CycleStats struct {
	Forums       int
	FailedForums int
	Scanned      int
	Relevant     int
	Skipped      int
	Replied      int
	Failed       int
}
