// Package news fetches a digest of recent headlines from newsapi.org.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://newsapi.org"
	pageSize       = 10
)

type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	query    string
	language string
}

// New creates a news client. baseURL is overridable for tests; empty means
// the public newsapi.org endpoint.
func New(apiKey, baseURL, query, language string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  baseURL,
		apiKey:   apiKey,
		query:    query,
		language: language,
	}
}

type article struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type everythingResponse struct {
	Articles []article `json:"articles"`
}

// Top returns up to 10 of the freshest headlines formatted as an HTML
// bullet list of links.
func (c *Client) Top(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("q", c.query)
	q.Set("language", c.language)
	q.Set("pageSize", fmt.Sprint(pageSize))
	q.Set("sortBy", "publishedAt")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/everything?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build news request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch news: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("news api returned status %d", resp.StatusCode)
	}

	var data everythingResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode news response: %w", err)
	}
	if len(data.Articles) == 0 {
		return "", fmt.Errorf("news api returned no articles")
	}

	items := make([]string, 0, len(data.Articles))
	for _, a := range data.Articles {
		title := a.Title
		if title == "" {
			title = "Без названия"
		}
		link := a.URL
		if link == "" {
			link = "#"
		}
		items = append(items, fmt.Sprintf("• <a href=%q>%s</a>", link, title))
	}
	return strings.Join(items, "\n\n"), nil
}

var linkRe = regexp.MustCompile(`<a href="([^"]+)">([^<]+)</a>`)

// StripLinks rewrites HTML anchors as plain "title — url" text, for the copy
// of the digest kept in conversation memory.
func StripLinks(text string) string {
	return linkRe.ReplaceAllString(text, "$2 — $1")
}
