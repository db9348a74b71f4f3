package asi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
)

const systemPrompt = `You are a portfolio advisor for crypto assets. Given a token, the user's
portfolio, current market prices and the user's context, recommend one action.
Reply with a single JSON object with the fields:
action ("buy", "sell" or "hold"), confidence (0..1), reasoning (string),
risk_assessment ("low", "moderate" or "high"), suggested_amount_percentage (number),
price_target (number or null), stop_loss (number or null), timeframe (string).`

// OpenAiReasoner asks an OpenAI compatible chat model, such as ASI:One, for an insight.
type OpenAiReasoner struct {
	model  string
	client *openai.Client
}

var _ Reasoner = (*OpenAiReasoner)(nil)

func NewOpenAiReasoner(apiKey string, baseUrl string, model string) *OpenAiReasoner {
	config := openai.DefaultConfig(apiKey)
	if baseUrl != "" {
		config.BaseURL = baseUrl
	}

	return &OpenAiReasoner{
		model:  model,
		client: openai.NewClientWithConfig(config),
	}
}

func (r *OpenAiReasoner) Analyze(ctx context.Context, input Input) (*Insight, error) {
	prompt, err := generatePrompt(input)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return parseLlmContent(input.Token, resp.Choices[0].Message.Content)
}

func generatePrompt(input Input) (string, error) {
	data, err := json.Marshal(analyzeData{
		Token:     input.Token,
		Portfolio: orEmptyObject(input.Portfolio),
		Market:    orEmptyObject(input.Market),
		User:      orEmptyObject(input.Context),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal prompt: %w", err)
	}
	return fmt.Sprintf("Analyze %s.\n\n%s", input.Token, data), nil
}

func parseLlmContent(token string, content string) (*Insight, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	if !gjson.Valid(content) {
		return nil, fmt.Errorf("model returned invalid json")
	}
	result := gjson.Parse(content)

	action := strings.ToLower(result.Get("action").String())
	switch action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return nil, fmt.Errorf("model returned unknown action %q", action)
	}

	return &Insight{
		TokenSymbol:               token,
		Action:                    action,
		Confidence:                clamp(floatOr(result.Get("confidence"), 0.5), 0, 1),
		Reasoning:                 stringOr(result.Get("reasoning"), "AI analysis completed"),
		RiskAssessment:            stringOr(result.Get("risk_assessment"), "moderate"),
		SuggestedAmountPercentage: floatOr(result.Get("suggested_amount_percentage"), 0),
		PriceTarget:               optionalFloat(result.Get("price_target")),
		StopLoss:                  optionalFloat(result.Get("stop_loss")),
		Timeframe:                 stringOr(result.Get("timeframe"), "medium-term"),
		Source:                    SourceLlm,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
