package notion

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func TestSearchAppliesFieldFallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search-notion" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok": true, "data": [
			{"id": "p-1", "title": "Roadmap Review", "url": "https://notion.so/p-1", "content_preview": "Q3 notes"},
			{"id": "p-2", "properties": {"title": {"title": [{"plain_text": "Fallback Title"}]}, "URL": {"url": "https://notion.so/p-2"}}},
			{"id": "p-3", "content": "A long body that should be cut down to the snippet length. It keeps going well past one hundred and fifty characters so the preview truncation has something to trim away entirely."}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	pages, err := client.Search(context.Background(), "u-1", "roadmap", 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[0].Title != "Roadmap Review" || pages[0].ContentPreview != "Q3 notes" {
		t.Fatalf("unexpected first page: %+v", pages[0])
	}
	if pages[1].Title != "Fallback Title" || pages[1].URL != "https://notion.so/p-2" {
		t.Fatalf("fallback mapping failed: %+v", pages[1])
	}
	if pages[2].Title != "Untitled Notion Page" {
		t.Fatalf("expected untitled fallback, got %q", pages[2].Title)
	}
	if len(pages[2].ContentPreview) != 150 {
		t.Fatalf("expected 150-char preview, got %d", len(pages[2].ContentPreview))
	}
}

func TestQueryTasksBuildsRequestAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query-notion-tasks" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body failed: %v", err)
		}
		if gjson.GetBytes(body, "notion_tasks_db_id").String() != "db-1" {
			t.Fatalf("missing database id: %s", body)
		}
		if gjson.GetBytes(body, "status_not_equals.1").String() != "Cancelled" {
			t.Fatalf("missing status exclusions: %s", body)
		}
		if gjson.GetBytes(body, "due_date_after").String() != "2024-07-25" {
			t.Fatalf("missing due date bound: %s", body)
		}
		w.Write([]byte(`{"success": true, "tasks": [
			{"id": "t-1", "description": "Finish report", "status": "In Progress", "priority": "High",
			 "url": "https://notion.so/t-1", "last_edited_time": "2024-07-23T09:00:00Z"},
			{"id": "t-2", "description": "No edit time"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	tasks, err := client.QueryTasks(context.Background(), "u-1", TaskQuery{
		DatabaseID:    "db-1",
		Priority:      "High",
		StatusNotIn:   []string{"Done", "Cancelled"},
		DueDateAfter:  "2024-07-25",
		DueDateBefore: "2024-07-31",
		Limit:         5,
	})
	if err != nil {
		t.Fatalf("query tasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].LastEditedTime.IsZero() {
		t.Fatalf("expected parsed last edited time")
	}
	if !tasks[1].LastEditedTime.IsZero() {
		t.Fatalf("expected zero last edited time for t-2")
	}
}

func TestQueryTasksLegacyFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "database not shared with integration"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.QueryTasks(context.Background(), "u-1", TaskQuery{DatabaseID: "db-1"})
	if err == nil {
		t.Fatal("expected error for success:false response")
	}
}

func TestCreatePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/create-notion-page" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok": true, "data": {"id": "page-9", "url": "https://notion.so/page-9"}}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	ref, err := client.CreatePage(context.Background(), "u-1", "db-1", "Week 1", "content")
	if err != nil {
		t.Fatalf("create page failed: %v", err)
	}
	if ref.ID != "page-9" {
		t.Fatalf("unexpected page id: %s", ref.ID)
	}
}
