// Package productivity implements the weekly digest, meeting
// preparation and follow-up suggestion skills. Every external system is
// consumed through a collaborator interface so tests can substitute
// fakes and no call can outlive its per-branch timeout.
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

type CalendarService interface {
	ListEvents(ctx context.Context, userID string, limit int, timeMin, timeMax time.Time) ([]calendar.Event, error)
}

type NotionService interface {
	Search(ctx context.Context, userID, query string, limit int) ([]notion.Page, error)
	QueryTasks(ctx context.Context, userID string, q notion.TaskQuery) ([]notion.Task, error)
}

type EmailService interface {
	SearchEmails(ctx context.Context, userID, query string, limit int) ([]email.Message, error)
}

type FollowUpAnalyzer interface {
	AnalyzeTextForFollowUps(ctx context.Context, text, contextDescription string) (llm.Extraction, error)
}

type Assistant struct {
	Calendar CalendarService
	Notion   NotionService
	Email    EmailService
	Analyzer FollowUpAnalyzer
	Config   config.SkillsConfig

	// Now is the clock used by all date logic. Defaults to time.Now;
	// tests freeze it.
	Now func() time.Time
}

func NewAssistant(cal CalendarService, notionSvc NotionService, emailSvc EmailService, analyzer FollowUpAnalyzer, cfg config.SkillsConfig) *Assistant {
	return &Assistant{
		Calendar: cal,
		Notion:   notionSvc,
		Email:    emailSvc,
		Analyzer: analyzer,
		Config:   cfg,
		Now:      time.Now,
	}
}

func (a *Assistant) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// branchCtx bounds one collaborator branch. A timeout is treated like
// any other branch failure by the caller.
func (a *Assistant) branchCtx(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(a.Config.CollaboratorTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

func (a *Assistant) maxDigestItems() int {
	if a.Config.MaxDigestItems > 0 {
		return a.Config.MaxDigestItems
	}
	return 5
}

func (a *Assistant) maxPrepItems() int {
	if a.Config.MaxPrepItems > 0 {
		return a.Config.MaxPrepItems
	}
	return 3
}

func (a *Assistant) maxFollowUps() int {
	if a.Config.MaxFollowUps > 0 {
		return a.Config.MaxFollowUps
	}
	return 7
}

func (a *Assistant) emailLookbackDays() int {
	if a.Config.EmailLookbackDays > 0 {
		return a.Config.EmailLookbackDays
	}
	return 7
}
