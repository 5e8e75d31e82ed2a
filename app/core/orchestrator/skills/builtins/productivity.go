// Package builtins adapts the concrete skill implementations to the
// registry's generic Skill interface.
package builtins

import (
	"context"
	"fmt"

	"atomagent/app/core/skills/productivity"
	"atomagent/app/pkg/types"
)

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func requireUserID(args map[string]interface{}) (string, error) {
	userID := stringArg(args, "user_id")
	if userID == "" {
		return "", fmt.Errorf("missing user_id")
	}
	return userID, nil
}

type WeeklyDigestSkill struct {
	assistant *productivity.Assistant
}

func NewWeeklyDigestSkill(assistant *productivity.Assistant) *WeeklyDigestSkill {
	return &WeeklyDigestSkill{assistant: assistant}
}

func (s *WeeklyDigestSkill) Manifest() types.SkillManifest {
	return types.SkillManifest{
		Name:        "weekly-digest",
		Description: "Summarize completed work and upcoming critical items for a week",
		Parameters: map[string]interface{}{
			"user_id":     "string - user whose data to summarize",
			"time_period": "string - 'this week' (default) or 'last week'",
		},
	}
}

func (s *WeeklyDigestSkill) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	userID, err := requireUserID(args)
	if err != nil {
		return nil, err
	}
	return s.assistant.HandleGenerateWeeklyDigest(ctx, userID, stringArg(args, "time_period")), nil
}

type MeetingPrepSkill struct {
	assistant *productivity.Assistant
}

func NewMeetingPrepSkill(assistant *productivity.Assistant) *MeetingPrepSkill {
	return &MeetingPrepSkill{assistant: assistant}
}

func (s *MeetingPrepSkill) Manifest() types.SkillManifest {
	return types.SkillManifest{
		Name:        "meeting-prep",
		Description: "Gather related documents, emails and tasks for an upcoming meeting",
		Parameters: map[string]interface{}{
			"user_id":            "string - user whose calendar to search",
			"meeting_identifier": "string - meeting title fragment, attendee, or 'next meeting'",
			"meeting_date_time":  "string - optional date/time hint",
		},
	}
}

func (s *MeetingPrepSkill) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	userID, err := requireUserID(args)
	if err != nil {
		return nil, err
	}
	return s.assistant.HandlePrepareForMeeting(ctx, userID,
		stringArg(args, "meeting_identifier"),
		stringArg(args, "meeting_date_time")), nil
}

type FollowUpSkill struct {
	assistant *productivity.Assistant
}

func NewFollowUpSkill(assistant *productivity.Assistant) *FollowUpSkill {
	return &FollowUpSkill{assistant: assistant}
}

func (s *FollowUpSkill) Manifest() types.SkillManifest {
	return types.SkillManifest{
		Name:        "follow-ups",
		Description: "Extract action items, decisions and questions from a meeting or document",
		Parameters: map[string]interface{}{
			"user_id":            "string - user whose workspace to search",
			"context_identifier": "string - meeting, project or document to analyze",
			"context_type":       "string - optional: 'meeting', 'project' or 'document'",
		},
	}
}

func (s *FollowUpSkill) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	userID, err := requireUserID(args)
	if err != nil {
		return nil, err
	}
	return s.assistant.HandleSuggestFollowUps(ctx, userID,
		stringArg(args, "context_identifier"),
		stringArg(args, "context_type")), nil
}
