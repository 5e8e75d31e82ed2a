package productivity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"atomagent/app/core/collaborators/calendar"
	"atomagent/app/core/collaborators/notion"
	"atomagent/app/pkg/logger"
	"atomagent/app/pkg/types"
)

type RelatedNotionPage struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url,omitempty"`
	BriefSnippet string `json:"briefSnippet,omitempty"`
}

type RelatedEmail struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Sender       string `json:"sender,omitempty"`
	ReceivedDate string `json:"receivedDate,omitempty"`
	BriefSnippet string `json:"briefSnippet,omitempty"`
}

type RelatedTask struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate,omitempty"`
	Status      string `json:"status,omitempty"`
	URL         string `json:"url,omitempty"`
}

type MeetingPreparationData struct {
	TargetMeeting      calendar.Event        `json:"targetMeeting"`
	RelatedNotionPages []RelatedNotionPage   `json:"relatedNotionPages,omitempty"`
	RelatedEmails      []RelatedEmail        `json:"relatedEmails,omitempty"`
	RelatedTasks       []RelatedTask         `json:"relatedTasks,omitempty"`
	Failures           types.PartialFailures `json:"failures,omitempty"`
	ErrorMessage       string                `json:"errorMessage,omitempty"`
}

type MeetingPrepResult struct {
	Ok    bool                    `json:"ok"`
	Data  *MeetingPreparationData `json:"data,omitempty"`
	Error *types.SkillError       `json:"error,omitempty"`
}

// findTargetMeeting picks one event from the user's upcoming calendar.
// Absence is signaled by a nil event, not an error; errors mean the
// calendar collaborator itself failed.
//
// meetingDateTime is accepted but not yet used for filtering.
func (a *Assistant) findTargetMeeting(ctx context.Context, userID, meetingIdentifier, meetingDateTime string) (*calendar.Event, error) {
	bctx, cancel := a.branchCtx(ctx)
	defer cancel()

	events, err := a.Calendar.ListEvents(bctx, userID, 20, a.now(), time.Time{})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	if meetingDateTime != "" {
		logger.Info("[MeetingResolver] Date/time filtering for %q is not implemented; relying on identifier matching only", meetingDateTime)
	}

	identifier := strings.ToLower(strings.TrimSpace(meetingIdentifier))
	if identifier != "" && identifier != "next meeting" && identifier != "my next meeting" {
		filtered := events[:0:0]
		for _, event := range events {
			if eventMatchesIdentifier(event, identifier) {
				filtered = append(filtered, event)
			}
		}
		events = filtered
	}
	if len(events) == 0 {
		return nil, nil
	}

	earliest := events[0]
	for _, event := range events[1:] {
		if event.StartTime.Before(earliest.StartTime) {
			earliest = event
		}
	}
	return &earliest, nil
}

func eventMatchesIdentifier(event calendar.Event, identifier string) bool {
	if strings.Contains(strings.ToLower(event.Summary), identifier) {
		return true
	}
	for _, attendee := range event.Attendees {
		if attendee.Email != "" && strings.Contains(strings.ToLower(attendee.Email), identifier) {
			return true
		}
		if attendee.DisplayName != "" && strings.Contains(strings.ToLower(attendee.DisplayName), identifier) {
			return true
		}
	}
	return false
}

// HandlePrepareForMeeting resolves a meeting and fans out three
// best-effort enrichment queries. Once a meeting is resolved the result
// is always ok=true; enrichment failures only accumulate.
func (a *Assistant) HandlePrepareForMeeting(ctx context.Context, userID, meetingIdentifier, meetingDateTime string) MeetingPrepResult {
	meeting, err := a.findTargetMeeting(ctx, userID, meetingIdentifier, meetingDateTime)
	if err != nil {
		logger.Error("[MeetingPrep] Calendar lookup failed: %v", err)
	}
	if meeting == nil {
		return MeetingPrepResult{
			Ok:    false,
			Error: types.NewSkillError(types.ErrMeetingNotFound, "Could not find the specified meeting."),
		}
	}
	logger.Info("[MeetingPrep] Target meeting %q at %s", meeting.Summary, meeting.StartTime.Format(time.RFC3339))

	data := &MeetingPreparationData{TargetMeeting: *meeting}
	max := a.maxPrepItems()

	var mu sync.Mutex
	var failures types.PartialFailures
	fail := func(source, message string) {
		mu.Lock()
		failures.Add(source, message)
		mu.Unlock()
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		bctx, cancel := a.branchCtx(ctx)
		defer cancel()

		query := fmt.Sprintf("content related to: %s", meeting.Summary)
		pages, err := a.Notion.Search(bctx, userID, query, max)
		if err != nil {
			logger.Error("[MeetingPrep] Notion search failed: %v", err)
			fail("notion_pages", "Could not fetch Notion documents: "+err.Error())
			return
		}
		related := make([]RelatedNotionPage, 0, max)
		for _, page := range pages {
			related = append(related, RelatedNotionPage{
				ID:           page.ID,
				Title:        page.Title,
				URL:          page.URL,
				BriefSnippet: page.ContentPreview,
			})
			if len(related) == max {
				break
			}
		}
		mu.Lock()
		data.RelatedNotionPages = related
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		bctx, cancel := a.branchCtx(ctx)
		defer cancel()

		now := a.now()
		from := now.AddDate(0, 0, -a.emailLookbackDays())
		parts := []string{fmt.Sprintf("about %q", meeting.Summary)}
		if emails := attendeeEmails(meeting.Attendees); len(emails) > 0 {
			parts = append(parts, fmt.Sprintf("with attendees (%s)", strings.Join(emails, " OR ")))
		}
		parts = append(parts, fmt.Sprintf("between %s and %s", from.Format("2006-01-02"), now.Format("2006-01-02")))

		messages, err := a.Email.SearchEmails(bctx, userID, strings.Join(parts, " "), max)
		if err != nil {
			logger.Error("[MeetingPrep] Email search failed: %v", err)
			fail("emails", "Could not fetch relevant emails: "+err.Error())
			return
		}
		related := make([]RelatedEmail, 0, max)
		for _, msg := range messages {
			related = append(related, RelatedEmail{
				ID:           msg.ID,
				Subject:      msg.Subject,
				Sender:       msg.Sender,
				ReceivedDate: msg.Timestamp,
				BriefSnippet: snippet(msg.Body, 150),
			})
			if len(related) == max {
				break
			}
		}
		mu.Lock()
		data.RelatedEmails = related
		mu.Unlock()
	}()

	dbID := strings.TrimSpace(a.Config.NotionTasksDatabaseID)
	if dbID == "" {
		failures.Add("related_tasks", "Notion tasks database ID not configured")
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bctx, cancel := a.branchCtx(ctx)
			defer cancel()

			tasks, err := a.Notion.QueryTasks(bctx, userID, notion.TaskQuery{
				DatabaseID:          dbID,
				DescriptionContains: meeting.Summary,
				StatusNotIn:         []string{"Done"},
				Limit:               max,
			})
			if err != nil {
				logger.Error("[MeetingPrep] Task query failed: %v", err)
				fail("related_tasks", "Could not fetch related tasks: "+err.Error())
				return
			}
			related := make([]RelatedTask, 0, max)
			for _, task := range tasks {
				related = append(related, RelatedTask{
					ID:          task.ID,
					Description: task.Description,
					DueDate:     task.DueDate,
					Status:      task.Status,
					URL:         task.URL,
				})
				if len(related) == max {
					break
				}
			}
			mu.Lock()
			data.RelatedTasks = related
			mu.Unlock()
		}()
	}

	wg.Wait()

	data.Failures = failures
	data.ErrorMessage = failures.Combined()
	return MeetingPrepResult{Ok: true, Data: data}
}

func attendeeEmails(attendees []calendar.Attendee) []string {
	var emails []string
	for _, attendee := range attendees {
		if attendee.Email != "" {
			emails = append(emails, attendee.Email)
		}
	}
	return emails
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
