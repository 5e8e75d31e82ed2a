package productivity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"atomagent/app/core/collaborators/calendar"
	"atomagent/app/core/collaborators/llm"
	"atomagent/app/core/collaborators/notion"
	"atomagent/app/pkg/logger"
	"atomagent/app/pkg/types"
)

const (
	FollowUpActionItem = "action_item"
	FollowUpDecision   = "decision"
	FollowUpQuestion   = "question"
)

// minAnalyzableChars is the shortest document worth sending to the LLM.
const minAnalyzableChars = 50

type PotentialFollowUp struct {
	Type              string `json:"type"`
	Description       string `json:"description"`
	SuggestedAssignee string `json:"suggestedAssignee,omitempty"`
	SourceContext     string `json:"sourceContext"`
	ExistingTaskFound bool   `json:"existingTaskFound"`
	ExistingTaskID    string `json:"existingTaskId,omitempty"`
	ExistingTaskURL   string `json:"existingTaskUrl,omitempty"`
}

type FollowUpData struct {
	ContextName           string                `json:"contextName"`
	SourceDocumentSummary string                `json:"sourceDocumentSummary,omitempty"`
	SourceDocumentURL     string                `json:"sourceDocumentUrl,omitempty"`
	Suggestions           []PotentialFollowUp   `json:"suggestions"`
	Failures              types.PartialFailures `json:"failures,omitempty"`
	ErrorMessage          string                `json:"errorMessage,omitempty"`
}

type FollowUpResult struct {
	Ok    bool              `json:"ok"`
	Data  *FollowUpData     `json:"data,omitempty"`
	Error *types.SkillError `json:"error,omitempty"`
}

var meetingKeywordRe = regexp.MustCompile(`(?i)meeting|call|sync`)

// HandleSuggestFollowUps resolves a context document, extracts
// follow-up candidates from it via the LLM collaborator, and flags
// candidates that look like existing tasks.
func (a *Assistant) HandleSuggestFollowUps(ctx context.Context, userID, contextIdentifier, contextType string) FollowUpResult {
	contextIdentifier = strings.TrimSpace(contextIdentifier)
	if contextIdentifier == "" {
		return FollowUpResult{
			Ok:    false,
			Error: types.NewSkillError(types.ErrValidation, "Context identifier is required."),
		}
	}

	data := &FollowUpData{
		ContextName: contextIdentifier,
		Suggestions: []PotentialFollowUp{},
	}
	var failures types.PartialFailures

	text, title, terminal := a.resolveFollowUpContext(ctx, userID, contextIdentifier, contextType, data, &failures)
	if terminal != nil {
		return FollowUpResult{Ok: false, Error: terminal}
	}

	if len(strings.TrimSpace(text)) < minAnalyzableChars {
		failures.Add("analysis", fmt.Sprintf("The source document found for %q was too short or empty for useful analysis", title))
		data.Failures = failures
		data.ErrorMessage = failures.Combined()
		return FollowUpResult{Ok: true, Data: data}
	}

	var extraction llm.Extraction
	{
		bctx, cancel := a.branchCtx(ctx)
		result, err := a.Analyzer.AnalyzeTextForFollowUps(bctx, text, title)
		cancel()
		if err != nil {
			logger.Error("[FollowUps] LLM analysis failed: %v", err)
			failures.Add("llm_analysis", "LLM analysis failed: "+err.Error())
		} else {
			extraction = result
		}
	}

	dbID := strings.TrimSpace(a.Config.NotionTasksDatabaseID)
	add := func(item llm.ExtractedItem, followUpType string) {
		suggestion := PotentialFollowUp{
			Type:              followUpType,
			Description:       item.Description,
			SuggestedAssignee: item.Assignee,
			SourceContext:     title,
		}
		if followUpType == FollowUpActionItem && dbID != "" {
			bctx, cancel := a.branchCtx(ctx)
			tasks, err := a.Notion.QueryTasks(bctx, userID, notion.TaskQuery{
				DatabaseID:          dbID,
				DescriptionContains: firstChars(item.Description, 50),
				StatusNotIn:         []string{"Done", "Cancelled"},
				Limit:               1,
			})
			cancel()
			if err != nil {
				logger.Error("[FollowUps] Existing-task lookup failed for %q: %v", item.Description, err)
			} else if len(tasks) > 0 {
				suggestion.ExistingTaskFound = true
				suggestion.ExistingTaskID = tasks[0].ID
				suggestion.ExistingTaskURL = tasks[0].URL
			}
		}
		data.Suggestions = append(data.Suggestions, suggestion)
	}

	for _, item := range extraction.ActionItems {
		add(item, FollowUpActionItem)
	}
	for _, item := range extraction.Decisions {
		add(item, FollowUpDecision)
	}
	for _, item := range extraction.Questions {
		add(item, FollowUpQuestion)
	}

	if max := a.maxFollowUps(); len(data.Suggestions) > max {
		data.Suggestions = data.Suggestions[:max]
	}
	if len(data.Suggestions) == 0 && len(failures) == 0 {
		failures.Add("analysis", "No specific follow-up items were identified from the context provided")
	}

	data.Failures = failures
	data.ErrorMessage = failures.Combined()
	return FollowUpResult{Ok: true, Data: data}
}

// resolveFollowUpContext locates the document to analyze. It returns
// the document text and display title, or a terminal error when no
// document and no fallback text can be constructed.
func (a *Assistant) resolveFollowUpContext(ctx context.Context, userID, contextIdentifier, contextType string, data *FollowUpData, failures *types.PartialFailures) (string, string, *types.SkillError) {
	lowered := strings.ToLower(contextIdentifier)
	isMeeting := contextType == "meeting" ||
		(contextType == "" && (strings.Contains(lowered, "meeting") ||
			strings.Contains(lowered, "call") ||
			strings.Contains(lowered, "sync")))

	switch {
	case isMeeting:
		cleaned := strings.TrimSpace(stripFirstMatch(meetingKeywordRe, contextIdentifier))
		meeting, err := a.findTargetMeeting(ctx, userID, cleaned, "")
		if err != nil {
			return "", "", types.NewSkillError(types.ErrContextRetrievalError, "Error retrieving context: "+err.Error())
		}
		if meeting == nil {
			return "", "", types.NewSkillError(types.ErrContextNotFound, "Could not find meeting: "+contextIdentifier)
		}

		title := fmt.Sprintf("Meeting: %s on %s", meeting.Summary, meeting.StartTime.Format("2006-01-02"))
		data.ContextName = title
		data.SourceDocumentURL = meeting.HTMLLink

		bctx, cancel := a.branchCtx(ctx)
		query := fmt.Sprintf("notes for meeting %q date %s", meeting.Summary, meeting.StartTime.Format("2006-01-02"))
		pages, err := a.Notion.Search(bctx, userID, query, 1)
		cancel()
		if err != nil {
			logger.Error("[FollowUps] Notes search failed: %v", err)
			failures.Add("context", "Could not search for meeting notes: "+err.Error())
		}
		if len(pages) > 0 {
			page := pages[0]
			text := page.Content
			if text == "" {
				text = page.Title
			}
			if page.Title != "" {
				title = page.Title
				data.ContextName = title
			}
			if page.URL != "" {
				data.SourceDocumentURL = page.URL
			}
			data.SourceDocumentSummary = fmt.Sprintf("Using Notion page: %q", title)
			return text, title, nil
		}

		// No notes found: synthesize a pseudo-document from the event
		// itself so short meetings still get a best-effort analysis.
		failures.Add("context", fmt.Sprintf("Could not find specific notes or transcript for meeting %q, analysis may be less accurate", meeting.Summary))
		data.SourceDocumentSummary = fmt.Sprintf("Using calendar event details for %q as context.", meeting.Summary)
		return meetingPseudoDocument(*meeting), title, nil

	case contextType == "project":
		data.ContextName = "Project: " + contextIdentifier
		bctx, cancel := a.branchCtx(ctx)
		query := fmt.Sprintf("project plan or summary for %q", contextIdentifier)
		pages, err := a.Notion.Search(bctx, userID, query, 1)
		cancel()
		if err != nil {
			return "", "", types.NewSkillError(types.ErrContextRetrievalError, "Error retrieving context: "+err.Error())
		}
		if len(pages) == 0 {
			return "", "", types.NewSkillError(types.ErrContextNotFound, "Could not find project document: "+contextIdentifier)
		}
		page := pages[0]
		title := page.Title
		text := page.Content
		if text == "" {
			text = page.Title
		}
		data.SourceDocumentURL = page.URL
		data.SourceDocumentSummary = fmt.Sprintf("Using Notion page: %q for project context.", title)
		return text, title, nil

	default:
		bctx, cancel := a.branchCtx(ctx)
		pages, err := a.Notion.Search(bctx, userID, contextIdentifier, 1)
		cancel()
		if err != nil {
			return "", "", types.NewSkillError(types.ErrContextRetrievalError, "Error retrieving context: "+err.Error())
		}
		if len(pages) == 0 {
			return "", "", types.NewSkillError(types.ErrContextNotFound, "Could not find document for context: "+contextIdentifier)
		}
		page := pages[0]
		title := page.Title
		text := page.Content
		if text == "" {
			text = page.Title
		}
		data.ContextName = "Context: " + title
		data.SourceDocumentURL = page.URL
		data.SourceDocumentSummary = fmt.Sprintf("Using Notion page: %q as context.", title)
		return text, title, nil
	}
}

func meetingPseudoDocument(event calendar.Event) string {
	description := event.Description
	if description == "" {
		description = "N/A"
	}
	names := make([]string, 0, len(event.Attendees))
	for _, attendee := range event.Attendees {
		if attendee.DisplayName != "" {
			names = append(names, attendee.DisplayName)
		} else if attendee.Email != "" {
			names = append(names, attendee.Email)
		}
	}
	return fmt.Sprintf("Meeting Title: %s\nDescription: %s\nAttendees: %s\nTime: %s - %s",
		event.Summary,
		description,
		strings.Join(names, ", "),
		event.StartTime.Format(time.RFC3339),
		event.EndTime.Format(time.RFC3339))
}

func stripFirstMatch(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

func firstChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
