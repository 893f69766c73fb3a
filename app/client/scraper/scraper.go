package scraper

import (
	"context"
	"errors"
	"fmt"
	"forumscout/app/config"
	"forumscout/app/util/proxyhttp"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/do"
	"golang.org/x/net/html"
)

var ErrEmptyContent = errors.New("page has no readable text")

type Client struct {
	timeout   time.Duration
	userAgent string
	maxBytes  int64
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Fetch), nil
}

func New(cfg config.Fetch) *Client {
	return &Client{
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
	}
}

// FetchText downloads url through proxy (direct when empty) and returns its
// visible text with whitespace collapsed.
func (c *Client) FetchText(ctx context.Context, url, proxy string) (string, error) {
	httpClient, err := proxyhttp.NewClient(proxy, c.timeout)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch %s: HTTP %d", url, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if c.maxBytes > 0 {
		body = io.LimitReader(resp.Body, c.maxBytes)
	}

	text, err := ExtractText(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", url, err)
	}

	if text == "" {
		return "", ErrEmptyContent
	}

	slog.Debug("Extracted page content", "url", url, "chars", len(text))

	return text, nil
}

// ExtractText parses an HTML document and returns its text nodes joined by
// single spaces. script, style and noscript contents are dropped.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	collectText(doc, &sb)

	return strings.Join(strings.Fields(sb.String()), " "), nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		sb.WriteString(" ")
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	case html.CommentNode:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
