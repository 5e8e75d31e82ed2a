package builtins

import (
	"context"

	"atomagent/app/core/skills/learning"
	"atomagent/app/pkg/types"
)

type LearningPlanSkill struct {
	planner *learning.Planner
}

func NewLearningPlanSkill(planner *learning.Planner) *LearningPlanSkill {
	return &LearningPlanSkill{planner: planner}
}

func (s *LearningPlanSkill) Manifest() types.SkillManifest {
	return types.SkillManifest{
		Name:        "learning-plan",
		Description: "Build a weekly study plan from saved reading-list articles",
		Parameters: map[string]interface{}{
			"user_id":            "string - user the plan pages belong to",
			"notion_database_id": "string - database the plan pages are created in",
		},
	}
}

func (s *LearningPlanSkill) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	userID, err := requireUserID(args)
	if err != nil {
		return nil, err
	}
	return s.planner.HandleGenerateLearningPlan(ctx, userID, stringArg(args, "notion_database_id")), nil
}
