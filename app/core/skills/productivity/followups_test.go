package productivity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	config "atomagent/app/configs"
	"atomagent/app/core/collaborators/calendar"
	"atomagent/app/core/collaborators/llm"
	"atomagent/app/core/collaborators/notion"
	"atomagent/app/pkg/types"
)

func followUpConfig() config.SkillsConfig {
	return config.SkillsConfig{
		NotionTasksDatabaseID:  "db-1",
		MaxFollowUps:           7,
		CollaboratorTimeoutSec: 5,
	}
}

func longDocument() string {
	return strings.Repeat("We agreed to migrate the billing service next sprint. ", 4)
}

func notionWithPage(page notion.Page) *fakeNotion {
	return &fakeNotion{
		search: func(ctx context.Context, userID, query string, limit int) ([]notion.Page, error) {
			return []notion.Page{page}, nil
		},
	}
}

func TestSuggestFollowUpsRequiresIdentifier(t *testing.T) {
	a := newTestAssistant(followUpConfig())

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "   ", "")
	if result.Ok {
		t.Fatal("expected validation failure")
	}
	if result.Error.Code != types.ErrValidation {
		t.Fatalf("unexpected code: %s", result.Error.Code)
	}
}

func TestSuggestFollowUpsDocumentNotFound(t *testing.T) {
	a := newTestAssistant(followUpConfig())

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "Roadmap draft", "document")
	if result.Ok {
		t.Fatal("expected failure when no document matches")
	}
	if result.Error.Code != types.ErrContextNotFound {
		t.Fatalf("unexpected code: %s", result.Error.Code)
	}
	if !strings.Contains(result.Error.Message, "Roadmap draft") {
		t.Fatalf("unexpected message: %q", result.Error.Message)
	}
}

func TestSuggestFollowUpsProjectNotFound(t *testing.T) {
	a := newTestAssistant(followUpConfig())

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "Apollo", "project")
	if result.Ok {
		t.Fatal("expected failure when no project document matches")
	}
	if !strings.Contains(result.Error.Message, "Could not find project document") {
		t.Fatalf("unexpected message: %q", result.Error.Message)
	}
}

func TestSuggestFollowUpsRetrievalError(t *testing.T) {
	a := newTestAssistant(followUpConfig())
	a.Notion = &fakeNotion{
		search: func(ctx context.Context, userID, query string, limit int) ([]notion.Page, error) {
			return nil, errors.New("search backend down")
		},
	}

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "Roadmap draft", "document")
	if result.Ok {
		t.Fatal("expected failure when retrieval errors")
	}
	if result.Error.Code != types.ErrContextRetrievalError {
		t.Fatalf("unexpected code: %s", result.Error.Code)
	}
}

func TestSuggestFollowUpsShortDocumentSkipsAnalysis(t *testing.T) {
	a := newTestAssistant(followUpConfig())
	a.Notion = notionWithPage(notion.Page{ID: "p-1", Title: "Stub", Content: "too short"})
	a.Analyzer = analyzerFunc(func(ctx context.Context, text, contextDescription string) (llm.Extraction, error) {
		t.Fatal("analyzer must not run on a short document")
		return llm.Extraction{}, nil
	})

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "Stub", "document")
	if !result.Ok {
		t.Fatalf("short document is a soft failure: %+v", result.Error)
	}
	if !strings.Contains(result.Data.ErrorMessage, "too short or empty") {
		t.Fatalf("unexpected message: %q", result.Data.ErrorMessage)
	}
	if len(result.Data.Suggestions) != 0 {
		t.Fatalf("unexpected suggestions: %+v", result.Data.Suggestions)
	}
}

func TestSuggestFollowUpsMeetingFallbackDocument(t *testing.T) {
	base := frozenWednesday()
	meeting := calendar.Event{
		ID:        "ev-1",
		Summary:   "Platform Weekly",
		StartTime: base.Add(2 * time.Hour),
		EndTime:   base.Add(3 * time.Hour),
		Attendees: []calendar.Attendee{{DisplayName: "Sam"}, {Email: "lee@example.com"}},
	}

	a := newTestAssistant(followUpConfig())
	a.Calendar = staticCalendar([]calendar.Event{meeting})

	var analyzed string
	a.Analyzer = analyzerFunc(func(ctx context.Context, text, contextDescription string) (llm.Extraction, error) {
		analyzed = text
		return llm.Extraction{
			ActionItems: []llm.ExtractedItem{{Description: "Share the incident report", Assignee: "Sam"}},
		}, nil
	})

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "platform weekly sync", "")
	if !result.Ok {
		t.Fatalf("unexpected failure: %+v", result.Error)
	}
	d := result.Data

	if !strings.Contains(analyzed, "Meeting Title: Platform Weekly") ||
		!strings.Contains(analyzed, "Description: N/A") ||
		!strings.Contains(analyzed, "Attendees: Sam, lee@example.com") {
		t.Fatalf("pseudo-document malformed:\n%s", analyzed)
	}
	if !strings.Contains(d.ErrorMessage, "Could not find specific notes or transcript") {
		t.Fatalf("missing-notes warning not recorded: %q", d.ErrorMessage)
	}
	if !strings.HasPrefix(d.ContextName, "Meeting: Platform Weekly on ") {
		t.Fatalf("unexpected context name: %q", d.ContextName)
	}
	if len(d.Suggestions) != 1 || d.Suggestions[0].Type != FollowUpActionItem {
		t.Fatalf("unexpected suggestions: %+v", d.Suggestions)
	}
}

func TestSuggestFollowUpsMeetingNotFound(t *testing.T) {
	a := newTestAssistant(followUpConfig())

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "platform weekly meeting", "")
	if result.Ok {
		t.Fatal("expected failure with no matching meeting")
	}
	if result.Error.Code != types.ErrContextNotFound {
		t.Fatalf("unexpected code: %s", result.Error.Code)
	}
	if !strings.Contains(result.Error.Message, "Could not find meeting") {
		t.Fatalf("unexpected message: %q", result.Error.Message)
	}
}

func TestSuggestFollowUpsCrossReferencesActionItems(t *testing.T) {
	a := newTestAssistant(followUpConfig())

	var lookups []notion.TaskQuery
	a.Notion = &fakeNotion{
		search: func(ctx context.Context, userID, query string, limit int) ([]notion.Page, error) {
			return []notion.Page{{ID: "p-1", Title: "Retro notes", URL: "https://notion.so/p-1", Content: longDocument()}}, nil
		},
		queryTasks: func(ctx context.Context, userID string, q notion.TaskQuery) ([]notion.Task, error) {
			lookups = append(lookups, q)
			if strings.HasPrefix(q.DescriptionContains, "Migrate billing") {
				return []notion.Task{{ID: "t-9", URL: "https://notion.so/t-9"}}, nil
			}
			return nil, nil
		},
	}
	a.Analyzer = analyzerFunc(func(ctx context.Context, text, contextDescription string) (llm.Extraction, error) {
		return llm.Extraction{
			ActionItems: []llm.ExtractedItem{
				{Description: "Migrate billing service", Assignee: "Lee"},
				{Description: "Draft rollout comms"},
			},
			Decisions: []llm.ExtractedItem{{Description: "Ship behind a flag"}},
			Questions: []llm.ExtractedItem{{Description: "Who owns the runbook?"}},
		}, nil
	})

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "Retro notes", "document")
	if !result.Ok {
		t.Fatalf("unexpected failure: %+v", result.Error)
	}
	d := result.Data

	if len(d.Suggestions) != 4 {
		t.Fatalf("expected 4 suggestions, got %+v", d.Suggestions)
	}
	first := d.Suggestions[0]
	if !first.ExistingTaskFound || first.ExistingTaskID != "t-9" {
		t.Fatalf("existing task not cross-referenced: %+v", first)
	}
	if d.Suggestions[1].ExistingTaskFound {
		t.Fatalf("unmatched action item wrongly flagged: %+v", d.Suggestions[1])
	}
	if d.Suggestions[2].Type != FollowUpDecision || d.Suggestions[3].Type != FollowUpQuestion {
		t.Fatalf("suggestion ordering wrong: %+v", d.Suggestions)
	}
	// Only action items get a task lookup.
	if len(lookups) != 2 {
		t.Fatalf("expected 2 lookups, got %d", len(lookups))
	}
	for _, q := range lookups {
		if q.Limit != 1 || len(q.StatusNotIn) != 2 {
			t.Fatalf("unexpected lookup query: %+v", q)
		}
	}
}

func TestSuggestFollowUpsTruncation(t *testing.T) {
	a := newTestAssistant(followUpConfig())
	a.Notion = notionWithPage(notion.Page{ID: "p-1", Title: "Notes", Content: longDocument()})
	a.Analyzer = analyzerFunc(func(ctx context.Context, text, contextDescription string) (llm.Extraction, error) {
		var items []llm.ExtractedItem
		for i := 0; i < 10; i++ {
			items = append(items, llm.ExtractedItem{Description: "Do a thing"})
		}
		return llm.Extraction{Decisions: items}, nil
	})

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "Notes", "document")
	if got := len(result.Data.Suggestions); got != 7 {
		t.Fatalf("suggestions not truncated: %d", got)
	}
}

func TestSuggestFollowUpsAnalyzerFailure(t *testing.T) {
	a := newTestAssistant(followUpConfig())
	a.Notion = notionWithPage(notion.Page{ID: "p-1", Title: "Notes", Content: longDocument()})
	a.Analyzer = analyzerFunc(func(ctx context.Context, text, contextDescription string) (llm.Extraction, error) {
		return llm.Extraction{}, errors.New("model overloaded")
	})

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "Notes", "document")
	if !result.Ok {
		t.Fatal("analysis failure is a soft failure")
	}
	if !strings.Contains(result.Data.ErrorMessage, "LLM analysis failed") {
		t.Fatalf("unexpected message: %q", result.Data.ErrorMessage)
	}
}

func TestSuggestFollowUpsNothingIdentified(t *testing.T) {
	a := newTestAssistant(followUpConfig())
	a.Notion = notionWithPage(notion.Page{ID: "p-1", Title: "Notes", Content: longDocument()})

	result := a.HandleSuggestFollowUps(context.Background(), "u-1", "Notes", "document")
	if !result.Ok {
		t.Fatalf("unexpected failure: %+v", result.Error)
	}
	if !strings.Contains(result.Data.ErrorMessage, "No specific follow-up items were identified") {
		t.Fatalf("unexpected message: %q", result.Data.ErrorMessage)
	}
}
