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

type WeeklyDigestData struct {
	PeriodStart              string                `json:"periodStart"`
	PeriodEnd                string                `json:"periodEnd"`
	CompletedTasks           []notion.Task         `json:"completedTasks"`
	AttendedMeetings         []calendar.Event      `json:"attendedMeetings"`
	UpcomingCriticalTasks    []notion.Task         `json:"upcomingCriticalTasks"`
	UpcomingCriticalMeetings []calendar.Event      `json:"upcomingCriticalMeetings"`
	Failures                 types.PartialFailures `json:"failures,omitempty"`
	ErrorMessage             string                `json:"errorMessage,omitempty"`
}

type WeeklyDigestPayload struct {
	Digest           WeeklyDigestData `json:"digest"`
	FormattedSummary string           `json:"formattedSummary"`
}

type WeeklyDigestResult struct {
	Ok    bool                 `json:"ok"`
	Data  *WeeklyDigestPayload `json:"data,omitempty"`
	Error *types.SkillError    `json:"error,omitempty"`
}

// HandleGenerateWeeklyDigest assembles the weekly digest from four
// independent collaborator queries. A branch failure never aborts the
// others and never flips the envelope to ok=false: failures surface
// only inside the digest itself.
func (a *Assistant) HandleGenerateWeeklyDigest(ctx context.Context, userID, timePeriod string) WeeklyDigestResult {
	r := DetermineDateRange(timePeriod, a.now())
	logger.Info("[WeeklyDigest] User %s, period %s to %s", userID, r.StartDate.Format(time.RFC3339), r.EndDate.Format(time.RFC3339))

	digest := WeeklyDigestData{
		PeriodStart:              r.StartDate.Format(time.RFC3339),
		PeriodEnd:                r.EndDate.Format(time.RFC3339),
		CompletedTasks:           []notion.Task{},
		AttendedMeetings:         []calendar.Event{},
		UpcomingCriticalTasks:    []notion.Task{},
		UpcomingCriticalMeetings: []calendar.Event{},
	}

	var mu sync.Mutex
	var failures types.PartialFailures
	fail := func(source, message string) {
		mu.Lock()
		failures.Add(source, message)
		mu.Unlock()
	}

	max := a.maxDigestItems()
	dbID := strings.TrimSpace(a.Config.NotionTasksDatabaseID)
	if dbID == "" {
		// Missing database id scopes out only the two task branches.
		failures.Add("completed_tasks", "Notion tasks database ID not configured for completed tasks")
		failures.Add("upcoming_tasks", "Notion tasks database ID not configured for upcoming tasks")
	}

	var wg sync.WaitGroup

	if dbID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bctx, cancel := a.branchCtx(ctx)
			defer cancel()

			// The task backend has no completed-at filter. Over-fetch
			// "Done" tasks and approximate with last_edited_time; this
			// is a known-imprecise heuristic, kept deliberately.
			tasks, err := a.Notion.QueryTasks(bctx, userID, notion.TaskQuery{
				DatabaseID: dbID,
				Status:     "Done",
				Limit:      max * 3,
			})
			if err != nil {
				logger.Error("[WeeklyDigest] Completed task query failed: %v", err)
				fail("completed_tasks", "Could not fetch completed tasks: "+err.Error())
				return
			}
			kept := make([]notion.Task, 0, max)
			for _, task := range tasks {
				if task.LastEditedTime.IsZero() {
					logger.Info("[WeeklyDigest] Task %s has no last edited time, cannot verify completion period", task.ID)
					continue
				}
				if task.LastEditedTime.Before(r.StartDate) || task.LastEditedTime.After(r.EndDate) {
					continue
				}
				kept = append(kept, task)
				if len(kept) == max {
					break
				}
			}
			mu.Lock()
			digest.CompletedTasks = kept
			mu.Unlock()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		bctx, cancel := a.branchCtx(ctx)
		defer cancel()

		events, err := a.Calendar.ListEvents(bctx, userID, max*2, r.StartDate, r.EndDate)
		if err != nil {
			logger.Error("[WeeklyDigest] Attended meeting fetch failed: %v", err)
			fail("attended_meetings", "Could not fetch attended meetings: "+err.Error())
			return
		}
		kept := make([]calendar.Event, 0, max)
		for _, event := range events {
			if event.Duration() <= 25*time.Minute {
				continue
			}
			if strings.Contains(strings.ToLower(event.Summary), "focus time") {
				continue
			}
			kept = append(kept, event)
			if len(kept) == max {
				break
			}
		}
		mu.Lock()
		digest.AttendedMeetings = kept
		mu.Unlock()
	}()

	if dbID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bctx, cancel := a.branchCtx(ctx)
			defer cancel()

			tasks, err := a.Notion.QueryTasks(bctx, userID, notion.TaskQuery{
				DatabaseID:    dbID,
				Priority:      "High",
				StatusNotIn:   []string{"Done", "Cancelled"},
				DueDateAfter:  r.NextPeriodStartDate.Format("2006-01-02"),
				DueDateBefore: r.NextPeriodEndDate.Format("2006-01-02"),
				Limit:         max,
			})
			if err != nil {
				logger.Error("[WeeklyDigest] Upcoming task query failed: %v", err)
				fail("upcoming_tasks", "Could not fetch upcoming tasks: "+err.Error())
				return
			}
			if len(tasks) > max {
				tasks = tasks[:max]
			}
			mu.Lock()
			digest.UpcomingCriticalTasks = tasks
			mu.Unlock()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		bctx, cancel := a.branchCtx(ctx)
		defer cancel()

		events, err := a.Calendar.ListEvents(bctx, userID, max*2, r.NextPeriodStartDate, r.NextPeriodEndDate)
		if err != nil {
			logger.Error("[WeeklyDigest] Upcoming meeting fetch failed: %v", err)
			fail("upcoming_meetings", "Could not fetch upcoming meetings: "+err.Error())
			return
		}
		kept := make([]calendar.Event, 0, max)
		for _, event := range events {
			if event.Duration() <= 45*time.Minute && !a.hasExternalAttendee(event) {
				continue
			}
			kept = append(kept, event)
			if len(kept) == max {
				break
			}
		}
		mu.Lock()
		digest.UpcomingCriticalMeetings = kept
		mu.Unlock()
	}()

	wg.Wait()

	digest.Failures = failures
	digest.ErrorMessage = failures.Combined()

	return WeeklyDigestResult{
		Ok: true,
		Data: &WeeklyDigestPayload{
			Digest:           digest,
			FormattedSummary: buildDigestSummary(digest, r.DisplayRange),
		},
	}
}

// hasExternalAttendee reports whether any attendee's email falls
// outside the configured internal domain. With no domain configured,
// every attendee with an email counts as external.
func (a *Assistant) hasExternalAttendee(event calendar.Event) bool {
	domain := strings.ToLower(strings.TrimSpace(a.Config.InternalEmailDomain))
	for _, attendee := range event.Attendees {
		if attendee.Email == "" {
			continue
		}
		if domain == "" {
			return true
		}
		if !strings.HasSuffix(strings.ToLower(attendee.Email), "@"+domain) {
			return true
		}
	}
	return false
}

func buildDigestSummary(d WeeklyDigestData, displayRange string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly Digest: %s\n", displayRange)

	b.WriteString("\nCompleted tasks:\n")
	if len(d.CompletedTasks) == 0 {
		b.WriteString("- none\n")
	}
	for _, task := range d.CompletedTasks {
		fmt.Fprintf(&b, "- %s\n", task.Description)
	}

	b.WriteString("\nMeetings attended:\n")
	if len(d.AttendedMeetings) == 0 {
		b.WriteString("- none\n")
	}
	for _, event := range d.AttendedMeetings {
		fmt.Fprintf(&b, "- %s (%s)\n", event.Summary, event.StartTime.Format("Mon Jan 2 15:04"))
	}

	b.WriteString("\nUpcoming critical tasks:\n")
	if len(d.UpcomingCriticalTasks) == 0 {
		b.WriteString("- none\n")
	}
	for _, task := range d.UpcomingCriticalTasks {
		line := task.Description
		if task.DueDate != "" {
			line += " (due " + task.DueDate + ")"
		}
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\nUpcoming critical meetings:\n")
	if len(d.UpcomingCriticalMeetings) == 0 {
		b.WriteString("- none\n")
	}
	for _, event := range d.UpcomingCriticalMeetings {
		fmt.Fprintf(&b, "- %s (%s)\n", event.Summary, event.StartTime.Format("Mon Jan 2 15:04"))
	}

	if d.ErrorMessage != "" {
		fmt.Fprintf(&b, "\nNote: %s\n", d.ErrorMessage)
	}
	return b.String()
}
