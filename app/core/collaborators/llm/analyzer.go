// Package llm wraps the OpenAI text-analysis collaborator. A missing
// API key degrades every call to an explicit error so callers can
// record it as a partial failure instead of crashing.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/gjson"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("llm: OpenAI API key not configured, analysis skipped")

type ExtractedItem struct {
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
}

// Extraction holds the three follow-up categories. Empty categories
// are empty slices, never an error.
type Extraction struct {
	ActionItems []ExtractedItem `json:"action_items"`
	Decisions   []ExtractedItem `json:"decisions"`
	Questions   []ExtractedItem `json:"questions"`
}

type PlanArticle struct {
	Title   string
	URL     string
	Excerpt string
}

type PlanWeek struct {
	Week     int      `json:"week"`
	Theme    string   `json:"theme"`
	Focus    string   `json:"focus"`
	Articles []string `json:"articles"`
}

type completionFunc func(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)

type Analyzer struct {
	model    string
	enabled  bool
	complete completionFunc
}

func NewAnalyzer(apiKey, model string) *Analyzer {
	a := &Analyzer{model: model}
	if strings.TrimSpace(apiKey) == "" {
		return a
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	a.enabled = true
	a.complete = func(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
		completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			},
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
		})
		if err != nil {
			return "", err
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("llm: empty completion")
		}
		return completion.Choices[0].Message.Content, nil
	}
	return a
}

const followUpSystemPrompt = `You are an AI assistant specialized in identifying follow-up items from text.
Your goal is to extract:
1. Distinct actionable items or tasks. If an assignee is mentioned or clearly implied, note the assignee.
2. Key decisions that were explicitly made.
3. Open questions, unresolved issues, or topics marked for future discussion.

Provide your response strictly as a JSON object with the following structure:
{
  "action_items": [
    { "description": "Complete summary of action item 1...", "assignee": "Name or 'unassigned'" }
  ],
  "decisions": [
    { "description": "Summary of decision 1..." }
  ],
  "questions": [
    { "description": "Summary of question 1..." }
  ]
}
Ensure each description is concise and directly extracted or summarized from the provided text.
If no items are found for a category, return an empty array for that category.
Do not invent information not present in the text. Stick strictly to the document content.`

// AnalyzeTextForFollowUps extracts action items, decisions and open
// questions from the given document.
func (a *Analyzer) AnalyzeTextForFollowUps(ctx context.Context, text, contextDescription string) (Extraction, error) {
	if !a.enabled {
		return Extraction{}, ErrNotConfigured
	}

	userPrompt := "Analyze the following document"
	if contextDescription != "" {
		userPrompt += fmt.Sprintf(" regarding %q", contextDescription)
	}
	userPrompt += ":\n\n\"\"\"\n" + text + "\n\"\"\"\n\n" +
		"Based only on the information within the document provided, identify action items, decisions, and questions according to the JSON structure specified in the system instructions."

	content, err := a.complete(ctx, a.model, followUpSystemPrompt, userPrompt)
	if err != nil {
		return Extraction{}, fmt.Errorf("llm: analysis failed: %w", err)
	}
	return parseExtraction(content), nil
}

func parseExtraction(content string) Extraction {
	var out Extraction
	collect := func(path string) []ExtractedItem {
		var items []ExtractedItem
		gjson.Get(content, path).ForEach(func(_, item gjson.Result) bool {
			desc := strings.TrimSpace(item.Get("description").String())
			if desc == "" {
				return true
			}
			items = append(items, ExtractedItem{
				Description: desc,
				Assignee:    strings.TrimSpace(item.Get("assignee").String()),
			})
			return true
		})
		return items
	}
	out.ActionItems = collect("action_items")
	out.Decisions = collect("decisions")
	out.Questions = collect("questions")
	return out
}

const learningPlanSystemPrompt = `You are an AI assistant that builds weekly learning plans from a reading backlog.
Group the provided articles into coherent weekly themes.

Respond strictly as a JSON object:
{
  "weeks": [
    { "theme": "Week theme", "focus": "One-paragraph study focus", "articles": ["Exact article title", "..."] }
  ]
}
Use only the article titles provided. Every week must have at least one article.`

// GenerateLearningPlan shapes the given articles into a week-by-week
// study plan.
func (a *Analyzer) GenerateLearningPlan(ctx context.Context, articles []PlanArticle, weeks int) ([]PlanWeek, error) {
	if !a.enabled {
		return nil, ErrNotConfigured
	}
	if len(articles) == 0 {
		return nil, errors.New("llm: no articles to plan")
	}
	if weeks <= 0 {
		weeks = 4
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Build a %d-week learning plan from these saved articles:\n\n", weeks)
	for _, article := range articles {
		fmt.Fprintf(&b, "- %s", article.Title)
		if article.Excerpt != "" {
			fmt.Fprintf(&b, " — %s", article.Excerpt)
		}
		b.WriteString("\n")
	}

	content, err := a.complete(ctx, a.model, learningPlanSystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("llm: plan generation failed: %w", err)
	}

	var plan []PlanWeek
	gjson.Get(content, "weeks").ForEach(func(_, item gjson.Result) bool {
		week := PlanWeek{
			Week:  len(plan) + 1,
			Theme: strings.TrimSpace(item.Get("theme").String()),
			Focus: strings.TrimSpace(item.Get("focus").String()),
		}
		item.Get("articles").ForEach(func(_, title gjson.Result) bool {
			week.Articles = append(week.Articles, title.String())
			return true
		})
		plan = append(plan, week)
		return true
	})
	if len(plan) == 0 {
		return nil, errors.New("llm: plan response contained no weeks")
	}
	return plan, nil
}
