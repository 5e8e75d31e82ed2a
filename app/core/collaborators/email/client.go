// Package email wraps the email search service.
package email

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

const DefaultTimeout = 15 * time.Second

// Message is a read-only projection of a search hit.
type Message struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Sender    string `json:"sender,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // ISO-8601 as reported by the service
	Body      string `json:"body,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: opts.BaseURL,
		http:    httpClient,
	}
}

// SearchEmails runs a natural-language query against the search
// service. The query string carries any date bounds.
func (c *Client) SearchEmails(ctx context.Context, userID, query string, limit int) ([]Message, error) {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "user_id", userID)
	body, _ = sjson.SetBytes(body, "query", query)
	body, _ = sjson.SetBytes(body, "limit", limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search-emails", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("email: unexpected status %d", resp.StatusCode)
	}
	if !gjson.GetBytes(raw, "ok").Bool() {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = "email search reported failure"
		}
		return nil, fmt.Errorf("email: %s", msg)
	}

	var messages []Message
	gjson.GetBytes(raw, "data").ForEach(func(_, item gjson.Result) bool {
		messages = append(messages, Message{
			ID:        item.Get("id").String(),
			Subject:   item.Get("subject").String(),
			Sender:    item.Get("sender").String(),
			Timestamp: item.Get("timestamp").String(),
			Body:      item.Get("body").String(),
		})
		return true
	})
	return messages, nil
}
