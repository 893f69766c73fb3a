package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"forumscout/app/config"
	"forumscout/app/util/mylog"
	"forumscout/app/util/proxyhttp"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	tokenLeeway   = time.Minute
	deletedAuthor = "[deleted]"
)

type Client struct {
	cfg config.Reddit

	mu          sync.Mutex
	httpClient  *http.Client
	proxy       string
	token       string
	tokenExpiry time.Time
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Reddit)
}

func New(cfg config.Reddit) (*Client, error) {
	httpClient, err := proxyhttp.NewClient("", cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

// SetProxy routes subsequent requests through proxy; "" means direct.
// The cached token is dropped so the next call re-authenticates through the
// new route.
func (c *Client) SetProxy(proxy string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if proxy == c.proxy {
		return nil
	}

	httpClient, err := proxyhttp.NewClient(proxy, c.cfg.Timeout)
	if err != nil {
		return err
	}

	c.httpClient = httpClient
	c.proxy = proxy
	c.token = ""
	c.tokenExpiry = time.Time{}

	return nil
}

// NewPosts returns the newest limit submissions of forum, newest first.
func (c *Client) NewPosts(ctx context.Context, forum string, limit int) ([]Post, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")

	var result listing
	if err := c.call(ctx, http.MethodGet, "/r/"+url.PathEscape(forum)+"/new?"+query.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("failed to list r/%s: %w", forum, err)
	}

	posts := make([]Post, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}

		data := child.Data
		author := data.Author
		if author == "" {
			author = deletedAuthor
		}

		post := Post{
			ID:     data.ID,
			Forum:  forum,
			Title:  data.Title,
			Body:   data.Selftext,
			Author: author,
		}
		if data.Permalink != "" {
			post.URL = "https://www.reddit.com" + data.Permalink
		}

		posts = append(posts, post)
	}

	return posts, nil
}

// Reply posts text as a top-level comment on the submission.
func (c *Client) Reply(ctx context.Context, postID, text string) error {
	if c.cfg.DryRun {
		slog.Info("Replied to post (dry run)", "post_id", postID, "text", text, mylog.Notify())
		return nil
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", "t3_"+postID)
	form.Set("text", text)

	var result commentResponse
	if err := c.call(ctx, http.MethodPost, "/api/comment", form, &result); err != nil {
		return fmt.Errorf("failed to reply to %s: %w", postID, err)
	}

	if len(result.JSON.Errors) > 0 {
		return oops.
			In("reddit").
			With("post_id", postID).
			With("errors", result.JSON.Errors).
			Errorf("reply rejected: %v", result.JSON.Errors[0])
	}

	return nil
}

func (c *Client) call(ctx context.Context, method, path string, form url.Values, out any) error {
	token, httpClient, err := c.authenticate(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.APIURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, path)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) authenticate(ctx context.Context) (string, *http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, c.httpClient, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, statusError(resp, "access_token")
	}

	var token tokenResponse
	if err = json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", nil, fmt.Errorf("failed to decode token: %w", err)
	}

	if token.Error != "" || token.AccessToken == "" {
		return "", nil, oops.In("reddit").With("error", token.Error).Errorf("authentication rejected")
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenLeeway)

	slog.Debug("Authenticated with reddit", "username", c.cfg.Username, "expires_in", token.ExpiresIn)

	return c.token, c.httpClient, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
}

func statusError(resp *http.Response, path string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	return oops.
		In("reddit").
		With("status", resp.StatusCode).
		With("path", path).
		With("retry_after", resp.Header.Get("Retry-After")).
		Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
