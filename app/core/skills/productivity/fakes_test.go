package productivity

import (
	"context"
	"time"

	config "atomagent/app/configs"
	"atomagent/app/core/collaborators/calendar"
	"atomagent/app/core/collaborators/email"
	"atomagent/app/core/collaborators/llm"
	"atomagent/app/core/collaborators/notion"
)

type calendarFunc func(ctx context.Context, userID string, limit int, timeMin, timeMax time.Time) ([]calendar.Event, error)

func (f calendarFunc) ListEvents(ctx context.Context, userID string, limit int, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	return f(ctx, userID, limit, timeMin, timeMax)
}

type fakeNotion struct {
	search     func(ctx context.Context, userID, query string, limit int) ([]notion.Page, error)
	queryTasks func(ctx context.Context, userID string, q notion.TaskQuery) ([]notion.Task, error)
}

func (f *fakeNotion) Search(ctx context.Context, userID, query string, limit int) ([]notion.Page, error) {
	if f.search == nil {
		return nil, nil
	}
	return f.search(ctx, userID, query, limit)
}

func (f *fakeNotion) QueryTasks(ctx context.Context, userID string, q notion.TaskQuery) ([]notion.Task, error) {
	if f.queryTasks == nil {
		return nil, nil
	}
	return f.queryTasks(ctx, userID, q)
}

type emailFunc func(ctx context.Context, userID, query string, limit int) ([]email.Message, error)

func (f emailFunc) SearchEmails(ctx context.Context, userID, query string, limit int) ([]email.Message, error) {
	return f(ctx, userID, query, limit)
}

type analyzerFunc func(ctx context.Context, text, contextDescription string) (llm.Extraction, error)

func (f analyzerFunc) AnalyzeTextForFollowUps(ctx context.Context, text, contextDescription string) (llm.Extraction, error) {
	return f(ctx, text, contextDescription)
}

func emptyCalendar() calendarFunc {
	return func(ctx context.Context, userID string, limit int, timeMin, timeMax time.Time) ([]calendar.Event, error) {
		return nil, nil
	}
}

func emptyEmail() emailFunc {
	return func(ctx context.Context, userID, query string, limit int) ([]email.Message, error) {
		return nil, nil
	}
}

func emptyAnalyzer() analyzerFunc {
	return func(ctx context.Context, text, contextDescription string) (llm.Extraction, error) {
		return llm.Extraction{}, nil
	}
}

// frozenWednesday is the reference instant used across digest tests.
func frozenWednesday() time.Time {
	return time.Date(2024, time.July, 24, 11, 30, 0, 0, time.Local)
}

func newTestAssistant(cfg config.SkillsConfig) *Assistant {
	a := NewAssistant(emptyCalendar(), &fakeNotion{}, emptyEmail(), emptyAnalyzer(), cfg)
	a.Now = frozenWednesday
	return a
}
