// Package pocket wraps the Pocket retrieve API used as the article
// source for learning plans.
package pocket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DefaultBaseURL = "https://getpocket.com"
	DefaultTimeout = 15 * time.Second
)

// Article is a read-only projection of a saved Pocket item.
type Article struct {
	ItemID    string `json:"item_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Excerpt   string `json:"excerpt,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
}

type Client struct {
	baseURL     string
	consumerKey string
	accessToken string
	http        *http.Client
}

type Options struct {
	BaseURL     string
	ConsumerKey string
	AccessToken string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:     baseURL,
		consumerKey: opts.ConsumerKey,
		accessToken: opts.AccessToken,
		http:        httpClient,
	}
}

// Configured reports whether both Pocket credentials are present.
func (c *Client) Configured() bool {
	return c.consumerKey != "" && c.accessToken != ""
}

// Retrieve fetches up to count of the user's newest saved articles.
func (c *Client) Retrieve(ctx context.Context, count int) ([]Article, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("pocket: consumer key or access token not configured")
	}

	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "consumer_key", c.consumerKey)
	body, _ = sjson.SetBytes(body, "access_token", c.accessToken)
	body, _ = sjson.SetBytes(body, "count", count)
	body, _ = sjson.SetBytes(body, "sort", "newest")
	body, _ = sjson.SetBytes(body, "detailType", "simple")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/get", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pocket: unexpected status %d", resp.StatusCode)
	}

	var articles []Article
	gjson.GetBytes(raw, "list").ForEach(func(key, item gjson.Result) bool {
		title := item.Get("resolved_title").String()
		if title == "" {
			title = item.Get("given_title").String()
		}
		url := item.Get("resolved_url").String()
		if url == "" {
			url = item.Get("given_url").String()
		}
		if title == "" && url == "" {
			return true
		}
		articles = append(articles, Article{
			ItemID:    key.String(),
			Title:     title,
			URL:       url,
			Excerpt:   item.Get("excerpt").String(),
			WordCount: int(item.Get("word_count").Int()),
		})
		return true
	})
	return articles, nil
}
