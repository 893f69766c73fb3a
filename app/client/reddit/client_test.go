package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"forumscout/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReddit struct {
	tokenCalls   atomic.Int32
	mu           sync.Mutex
	comments     []map[string]string
	commentReply string
	listStatus   int
}

func (f *fakeReddit) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "password", r.FormValue("grant_type"))
		assert.Equal(t, "bot", r.FormValue("username"))

		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})

	mux.HandleFunc("/r/social/new", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.UserAgent())
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		if f.listStatus != 0 {
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(f.listStatus)
			return
		}

		_, _ = w.Write([]byte(`{"kind":"Listing","data":{"children":[
			{"kind":"t3","data":{"id":"abc123","title":"Any hangout ideas?","selftext":"new in town","author":"alice","permalink":"/r/social/comments/abc123/x/"}},
			{"kind":"t3","data":{"id":"def456","title":"Hello","selftext":"","author":""}}
		]}}`))
	})

	mux.HandleFunc("/api/comment", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.comments = append(f.comments, map[string]string{
			"thing_id": r.FormValue("thing_id"),
			"text":     r.FormValue("text"),
			"api_type": r.FormValue("api_type"),
		})
		f.mu.Unlock()

		reply := f.commentReply
		if reply == "" {
			reply = `{"json":{"errors":[],"data":{}}}`
		}
		_, _ = w.Write([]byte(reply))
	})

	return mux
}

func (f *fakeReddit) posted() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]map[string]string(nil), f.comments...)
}

func newTestClient(t *testing.T, f *fakeReddit, dryRun bool) *Client {
	t.Helper()

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c, err := New(config.Reddit{
		ClientID:     "client",
		ClientSecret: "secret",
		Username:     "bot",
		Password:     "pass",
		UserAgent:    "test-agent",
		AuthURL:      srv.URL + "/api/v1/access_token",
		APIURL:       srv.URL,
		DryRun:       dryRun,
	})
	require.NoError(t, err)

	return c
}

func TestNewPosts(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, false)

	posts, err := c.NewPosts(context.Background(), "social", 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, Post{
		ID:     "abc123",
		Forum:  "social",
		Title:  "Any hangout ideas?",
		Body:   "new in town",
		Author: "alice",
		URL:    "https://www.reddit.com/r/social/comments/abc123/x/",
	}, posts[0])
	assert.Equal(t, "[deleted]", posts[1].Author)

	_, err = c.NewPosts(context.Background(), "social", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.tokenCalls.Load(), "token should be cached")
}

func TestNewPosts_RateLimited(t *testing.T) {
	f := &fakeReddit{listStatus: http.StatusTooManyRequests}
	c := newTestClient(t, f, false)

	_, err := c.NewPosts(context.Background(), "social", 2)
	assert.ErrorContains(t, err, "429")
}

func TestReply(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, false)

	require.NoError(t, c.Reply(context.Background(), "abc123", "Hi!"))
	comments := f.posted()
	require.Len(t, comments, 1)
	assert.Equal(t, map[string]string{"thing_id": "t3_abc123", "text": "Hi!", "api_type": "json"}, comments[0])
}

func TestReply_Rejected(t *testing.T) {
	f := &fakeReddit{commentReply: `{"json":{"errors":[["RATELIMIT","you are doing that too much","ratelimit"]]}}`}
	c := newTestClient(t, f, false)

	err := c.Reply(context.Background(), "abc123", "Hi!")
	assert.ErrorContains(t, err, "RATELIMIT")
}

func TestReply_DryRun(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, true)

	require.NoError(t, c.Reply(context.Background(), "abc123", "Hi!"))
	assert.Empty(t, f.posted())
	assert.EqualValues(t, 0, f.tokenCalls.Load())
}

func TestSetProxy(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, false)

	_, err := c.NewPosts(context.Background(), "social", 2)
	require.NoError(t, err)

	assert.Error(t, c.SetProxy("ftp://bad:21"))

	// Re-selecting the current route keeps the cached token.
	require.NoError(t, c.SetProxy(""))
	_, err = c.NewPosts(context.Background(), "social", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.tokenCalls.Load())
}

func TestRequestTimeout(t *testing.T) {
	c, err := New(config.Reddit{})
	require.NoError(t, err)
	assert.Zero(t, c.httpClient.Timeout, "no deadline unless configured")

	c, err = New(config.Reddit{Timeout: 30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)

	require.NoError(t, c.SetProxy("10.0.0.1:3128"))
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}
