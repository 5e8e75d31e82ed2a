// Package learning turns saved reading-list articles into a
// week-by-week study plan written back to Notion.
package learning

import (
	"context"
	"fmt"
	"strings"

	config "atomagent/app/configs"
	"atomagent/app/core/collaborators/llm"
	"atomagent/app/core/collaborators/notion"
	"atomagent/app/core/collaborators/pocket"
	"atomagent/app/pkg/logger"
	"atomagent/app/pkg/types"
)

// ArticleSource yields saved articles, newest first.
type ArticleSource interface {
	Configured() bool
	Retrieve(ctx context.Context, count int) ([]pocket.Article, error)
}

// PlanGenerator shapes articles into weekly themes.
type PlanGenerator interface {
	GenerateLearningPlan(ctx context.Context, articles []llm.PlanArticle, weeks int) ([]llm.PlanWeek, error)
}

// PageWriter persists one page per plan week.
type PageWriter interface {
	CreatePage(ctx context.Context, userID, databaseID, title, content string) (notion.PageRef, error)
}

type LearningPlanData struct {
	Weeks        []llm.PlanWeek   `json:"weeks"`
	CreatedPages []notion.PageRef `json:"createdPages"`
	ArticleCount int              `json:"articleCount"`
}

type LearningPlanResult struct {
	Ok    bool              `json:"ok"`
	Data  *LearningPlanData `json:"data,omitempty"`
	Error *types.SkillError `json:"error,omitempty"`
}

type Planner struct {
	Articles  ArticleSource
	Generator PlanGenerator
	Pages     PageWriter
	Config    config.CollaboratorsConfig
}

func NewPlanner(articles ArticleSource, generator PlanGenerator, pages PageWriter, cfg config.CollaboratorsConfig) *Planner {
	return &Planner{Articles: articles, Generator: generator, Pages: pages, Config: cfg}
}

// HandleGenerateLearningPlan pulls recent articles, asks the LLM for a
// weekly plan, and writes one Notion page per week. Unlike the digest
// skills this pipeline is sequential and each stage is a hard
// dependency of the next, so any stage failure fails the whole run.
func (p *Planner) HandleGenerateLearningPlan(ctx context.Context, userID, notionDatabaseID string) LearningPlanResult {
	notionDatabaseID = strings.TrimSpace(notionDatabaseID)
	if notionDatabaseID == "" {
		return LearningPlanResult{
			Ok:    false,
			Error: types.NewSkillError(types.ErrValidation, "Notion database ID is required."),
		}
	}
	if !p.Articles.Configured() {
		return LearningPlanResult{
			Ok:    false,
			Error: types.NewSkillError(types.ErrConfig, "Pocket credentials are not configured."),
		}
	}

	count := p.Config.LearningPlanArticles
	if count <= 0 {
		count = 12
	}
	articles, err := p.Articles.Retrieve(ctx, count)
	if err != nil {
		logger.Error("[LearningPlan] Article retrieval failed: %v", err)
		return LearningPlanResult{
			Ok:    false,
			Error: types.NewSkillError(types.ErrContextRetrievalError, "Could not fetch saved articles: "+err.Error()),
		}
	}
	if len(articles) == 0 {
		return LearningPlanResult{
			Ok:    false,
			Error: types.NewSkillError(types.ErrContextNotFound, "No saved articles found to build a plan from."),
		}
	}

	planInput := make([]llm.PlanArticle, 0, len(articles))
	for _, article := range articles {
		planInput = append(planInput, llm.PlanArticle{
			Title:   article.Title,
			URL:     article.URL,
			Excerpt: article.Excerpt,
		})
	}

	weeks, err := p.Generator.GenerateLearningPlan(ctx, planInput, p.Config.LearningPlanWeeks)
	if err != nil {
		logger.Error("[LearningPlan] Plan generation failed: %v", err)
		return LearningPlanResult{
			Ok:    false,
			Error: types.NewSkillError(types.ErrConfig, "Could not generate the learning plan: "+err.Error()),
		}
	}

	urlByTitle := make(map[string]string, len(articles))
	for _, article := range articles {
		urlByTitle[strings.ToLower(article.Title)] = article.URL
	}

	created := make([]notion.PageRef, 0, len(weeks))
	for _, week := range weeks {
		title := fmt.Sprintf("Learning Plan - Week %d: %s", week.Week, week.Theme)
		ref, err := p.Pages.CreatePage(ctx, userID, notionDatabaseID, title, weekPageContent(week, urlByTitle))
		if err != nil {
			logger.Error("[LearningPlan] Page creation failed for week %d: %v", week.Week, err)
			return LearningPlanResult{
				Ok:    false,
				Error: types.NewSkillError(types.ErrContextRetrievalError, fmt.Sprintf("Could not create the page for week %d: %s", week.Week, err.Error())),
			}
		}
		created = append(created, ref)
	}

	logger.Info("[LearningPlan] User %s, %d weeks planned from %d articles", userID, len(weeks), len(articles))
	return LearningPlanResult{
		Ok: true,
		Data: &LearningPlanData{
			Weeks:        weeks,
			CreatedPages: created,
			ArticleCount: len(articles),
		},
	}
}

func weekPageContent(week llm.PlanWeek, urlByTitle map[string]string) string {
	var b strings.Builder
	if week.Focus != "" {
		fmt.Fprintf(&b, "%s\n\n", week.Focus)
	}
	b.WriteString("Reading list:\n")
	if len(week.Articles) == 0 {
		b.WriteString("- none\n")
	}
	for _, title := range week.Articles {
		line := title
		if url := urlByTitle[strings.ToLower(title)]; url != "" {
			line += " (" + url + ")"
		}
		fmt.Fprintf(&b, "- %s\n", line)
	}
	return b.String()
}
