// Package notion wraps the Notion-backed note and task service. Search
// results and task rows arrive with uneven field coverage, so mapping
// applies the same fallback chains the service's other consumers use.
package notion

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

const snippetLength = 150

// Page is a read-only projection of a Notion search hit.
type Page struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	URL            string `json:"url,omitempty"`
	ContentPreview string `json:"content_preview,omitempty"`
	Content        string `json:"content,omitempty"`
}

// Task is a read-only projection of a Notion task row.
type Task struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	URL         string `json:"url,omitempty"`

	// LastEditedTime is zero when the backend did not report it. The
	// digest's completed-task approximation depends on this field.
	LastEditedTime time.Time `json:"last_edited_time,omitempty"`
}

type PageRef struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// TaskQuery mirrors the query surface of the task service. Zero-valued
// fields are omitted from the request.
type TaskQuery struct {
	DatabaseID          string
	DescriptionContains string
	Status              string
	StatusNotIn         []string
	Priority            string
	DueDateAfter        string // YYYY-MM-DD
	DueDateBefore       string // YYYY-MM-DD
	Limit               int
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

// Search runs a free-text search over the user's Notion workspace.
func (c *Client) Search(ctx context.Context, userID, query string, limit int) ([]Page, error) {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "user_id", userID)
	body, _ = sjson.SetBytes(body, "query", query)
	body, _ = sjson.SetBytes(body, "limit", limit)

	raw, err := c.post(ctx, "/search-notion", body)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(raw, "ok").Bool() {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = "notion search reported failure"
		}
		return nil, fmt.Errorf("notion: %s", msg)
	}

	var pages []Page
	gjson.GetBytes(raw, "data").ForEach(func(_, item gjson.Result) bool {
		pages = append(pages, pageFromJSON(item))
		return true
	})
	return pages, nil
}

// QueryTasks queries the tasks database. The service answers with the
// legacy {success, tasks} envelope rather than {ok, data}.
func (c *Client) QueryTasks(ctx context.Context, userID string, q TaskQuery) ([]Task, error) {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "user_id", userID)
	body, _ = sjson.SetBytes(body, "notion_tasks_db_id", q.DatabaseID)
	if q.DescriptionContains != "" {
		body, _ = sjson.SetBytes(body, "description_contains", q.DescriptionContains)
	}
	if q.Status != "" {
		body, _ = sjson.SetBytes(body, "status", q.Status)
	}
	if len(q.StatusNotIn) > 0 {
		body, _ = sjson.SetBytes(body, "status_not_equals", q.StatusNotIn)
	}
	if q.Priority != "" {
		body, _ = sjson.SetBytes(body, "priority", q.Priority)
	}
	if q.DueDateAfter != "" {
		body, _ = sjson.SetBytes(body, "due_date_after", q.DueDateAfter)
	}
	if q.DueDateBefore != "" {
		body, _ = sjson.SetBytes(body, "due_date_before", q.DueDateBefore)
	}
	if q.Limit > 0 {
		body, _ = sjson.SetBytes(body, "limit", q.Limit)
	}

	raw, err := c.post(ctx, "/query-notion-tasks", body)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(raw, "success").Bool() {
		msg := gjson.GetBytes(raw, "error").String()
		if msg == "" {
			msg = "notion task query reported failure"
		}
		return nil, fmt.Errorf("notion: %s", msg)
	}

	var tasks []Task
	gjson.GetBytes(raw, "tasks").ForEach(func(_, item gjson.Result) bool {
		task := Task{
			ID:          item.Get("id").String(),
			Description: item.Get("description").String(),
			DueDate:     item.Get("due_date").String(),
			Status:      item.Get("status").String(),
			Priority:    item.Get("priority").String(),
			URL:         item.Get("url").String(),
		}
		if t, err := time.Parse(time.RFC3339, item.Get("last_edited_time").String()); err == nil {
			task.LastEditedTime = t
		}
		tasks = append(tasks, task)
		return true
	})
	return tasks, nil
}

// CreatePage creates one page inside the given database. Used by the
// learning-plan writer.
func (c *Client) CreatePage(ctx context.Context, userID, databaseID, title, content string) (PageRef, error) {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "user_id", userID)
	body, _ = sjson.SetBytes(body, "parent_database_id", databaseID)
	body, _ = sjson.SetBytes(body, "title", title)
	body, _ = sjson.SetBytes(body, "content", content)

	raw, err := c.post(ctx, "/create-notion-page", body)
	if err != nil {
		return PageRef{}, err
	}
	if !gjson.GetBytes(raw, "ok").Bool() {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = "notion page creation reported failure"
		}
		return PageRef{}, fmt.Errorf("notion: %s", msg)
	}
	return PageRef{
		ID:  gjson.GetBytes(raw, "data.id").String(),
		URL: gjson.GetBytes(raw, "data.url").String(),
	}, nil
}

func pageFromJSON(item gjson.Result) Page {
	page := Page{
		ID:      item.Get("id").String(),
		Content: item.Get("content").String(),
	}

	page.Title = item.Get("title").String()
	if page.Title == "" {
		page.Title = item.Get("properties.title.title.0.plain_text").String()
	}
	if page.Title == "" {
		page.Title = "Untitled Notion Page"
	}

	page.URL = item.Get("url").String()
	if page.URL == "" {
		page.URL = item.Get("properties.URL.url").String()
	}

	page.ContentPreview = item.Get("content_preview").String()
	if page.ContentPreview == "" && page.Content != "" {
		page.ContentPreview = truncate(page.Content, snippetLength)
	}
	if page.ContentPreview == "" {
		page.ContentPreview = truncate(item.Get("properties.Description.rich_text.0.plain_text").String(), snippetLength)
	}
	return page
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
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
		return nil, fmt.Errorf("notion: unexpected status %d", resp.StatusCode)
	}
	return raw, nil
}
