package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/models"
)

// AdviceRequest is everything sent to the advisory service. It is built
// from a privacy-stripped plan.
type AdviceRequest struct {
	WeekStart   string                   `json:"week_start"`
	History     models.CompletionHistory `json:"history"`
	Stats       models.WeeklyStats       `json:"stats"`
	Blocks      []BlockOutcome           `json:"blocks"`
	Suggestions []Suggestion             `json:"local_suggestions,omitempty"`
}

// BlockOutcome is a readable summary of one tracked block.
type BlockOutcome struct {
	Date   string             `json:"date"`
	Title  string             `json:"title"`
	Type   models.BlockType   `json:"type"`
	Start  string             `json:"start"`
	Status models.BlockStatus `json:"status"`
}

type Advice struct {
	Insight  string `json:"insight"`
	HabitTip string `json:"habit_tip"`
}

// Advisor produces free-text guidance for a week.
type Advisor interface {
	Advise(ctx context.Context, req AdviceRequest) (Advice, error)
}

const systemPrompt = `You review one week of a personal schedule made of workouts, meals and meal prep.
Reply with a JSON object {"insight": "...", "habit_tip": "..."}.
"insight" is one or two sentences on what went well or badly. "habit_tip" is one concrete, small change for next week.`

// OpenAIAdvisor asks an OpenAI chat model for guidance.
type OpenAIAdvisor struct {
	client openai.Client
	model  string
}

func NewOpenAIAdvisor(apiKey, model string, opts ...option.RequestOption) *OpenAIAdvisor {
	if model == "" {
		model = constants.DefaultAdvisoryModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIAdvisor{client: openai.NewClient(opts...), model: model}
}

func (a *OpenAIAdvisor) Advise(ctx context.Context, req AdviceRequest) (Advice, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Advice{}, err
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(string(payload)),
		},
	})
	if err != nil {
		return Advice{}, fmt.Errorf("advisory request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Advice{}, fmt.Errorf("advisory service returned no choices")
	}
	return parseAdvice(resp.Choices[0].Message.Content), nil
}

// parseAdvice accepts the requested JSON object, optionally inside a code
// fence. Anything else is kept verbatim as the insight.
func parseAdvice(content string) Advice {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}

	var advice Advice
	if err := json.Unmarshal([]byte(text), &advice); err == nil && advice.Insight != "" {
		return advice
	}
	return Advice{Insight: strings.TrimSpace(content)}
}
