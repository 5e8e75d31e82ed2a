// Package calendar wraps the calendar service that lists a user's
// events. The service is consumed as a black box over HTTP/JSON.
package calendar

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

type Attendee struct {
	Email          string `json:"email,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// Event is a thin read-only projection of a calendar event, created
// per request and discarded after response serialization.
type Event struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	HTMLLink    string     `json:"htmlLink,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// Duration returns the event length.
func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
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

// ListEvents fetches up to limit events for the user. A zero timeMin
// or timeMax leaves that bound open.
func (c *Client) ListEvents(ctx context.Context, userID string, limit int, timeMin, timeMax time.Time) ([]Event, error) {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "user_id", userID)
	body, _ = sjson.SetBytes(body, "limit", limit)
	if !timeMin.IsZero() {
		body, _ = sjson.SetBytes(body, "time_min", timeMin.Format(time.RFC3339))
	}
	if !timeMax.IsZero() {
		body, _ = sjson.SetBytes(body, "time_max", timeMax.Format(time.RFC3339))
	}

	raw, err := c.post(ctx, "/list-events", body)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(raw, "ok").Bool() {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = "calendar service reported failure"
		}
		return nil, fmt.Errorf("calendar: %s", msg)
	}

	var events []Event
	gjson.GetBytes(raw, "data").ForEach(func(_, item gjson.Result) bool {
		events = append(events, eventFromJSON(item))
		return true
	})
	return events, nil
}

func eventFromJSON(item gjson.Result) Event {
	event := Event{
		ID:          item.Get("id").String(),
		Summary:     item.Get("summary").String(),
		Description: item.Get("description").String(),
		HTMLLink:    item.Get("htmlLink").String(),
	}
	if t, err := time.Parse(time.RFC3339, item.Get("startTime").String()); err == nil {
		event.StartTime = t
	}
	if t, err := time.Parse(time.RFC3339, item.Get("endTime").String()); err == nil {
		event.EndTime = t
	}
	item.Get("attendees").ForEach(func(_, a gjson.Result) bool {
		event.Attendees = append(event.Attendees, Attendee{
			Email:          a.Get("email").String(),
			DisplayName:    a.Get("displayName").String(),
			ResponseStatus: a.Get("responseStatus").String(),
		})
		return true
	})
	return event
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
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
		return nil, fmt.Errorf("calendar: unexpected status %d", resp.StatusCode)
	}
	return raw, nil
}
