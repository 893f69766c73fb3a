// Package relevance decides whether a post is on topic.
package relevance

import (
	"strings"

	"github.com/elliotchance/pie/v2"
)

// IsRelevant reports whether any keyword occurs, case-insensitively, as a
// substring of title or body. There is no tokenization, so "meetup" also
// matches "meetupcrasher".
func IsRelevant(title, body string, keywords []string) bool {
	title = strings.ToLower(title)
	body = strings.ToLower(body)

	for _, keyword := range keywords {
		keyword = strings.ToLower(keyword)
		if strings.Contains(title, keyword) || strings.Contains(body, keyword) {
			return true
		}
	}

	return false
}

// Filter holds a normalized keyword set.
type Filter struct {
	keywords []string
}

func New(keywords []string) *Filter {
	return &Filter{
		keywords: pie.Unique(pie.Map(keywords, strings.ToLower)),
	}
}

func (f *Filter) Match(title, body string) bool {
	return IsRelevant(title, body, f.keywords)
}

func (f *Filter) Keywords() []string {
	return pie.Sort(f.keywords)
}
