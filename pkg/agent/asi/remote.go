package asi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type Reasoner interface {
	Analyze(ctx context.Context, input Input) (*Insight, error)
}

// RemoteAgent talks to a hosted ASI Alliance agent.
type RemoteAgent struct {
	endpoint   string
	httpClient *http.Client
}

var _ Reasoner = (*RemoteAgent)(nil)

func NewRemoteAgent(endpoint string, httpClient *http.Client) *RemoteAgent {
	return &RemoteAgent{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
	}
}

type analyzeRequest struct {
	AgentId string      `json:"agent_id"`
	Task    string      `json:"task"`
	Data    analyzeData `json:"data"`
}

type analyzeData struct {
	Token     string          `json:"token"`
	Portfolio json.RawMessage `json:"portfolio"`
	Market    json.RawMessage `json:"market"`
	User      json.RawMessage `json:"user"`
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

func (a *RemoteAgent) Analyze(ctx context.Context, input Input) (*Insight, error) {
	body, err := json.Marshal(analyzeRequest{
		AgentId: agentId,
		Task:    "portfolio_analysis",
		Data: analyzeData{
			Token:     input.Token,
			Portfolio: orEmptyObject(input.Portfolio),
			Market:    orEmptyObject(input.Market),
			User:      orEmptyObject(input.Context),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/api/agent/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := a.do(req)
	if err != nil {
		return nil, err
	}

	return parseAgentResponse(input.Token, respBody)
}

// Status returns the raw status document of the remote agent.
func (a *RemoteAgent) Status(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/api/agent/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := a.do(req)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}

	return body, nil
}

func (a *RemoteAgent) do(req *http.Request) ([]byte, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach asi agent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return body, nil
}

func parseAgentResponse(token string, body []byte) (*Insight, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}

	result := gjson.GetBytes(body, "result")

	return &Insight{
		TokenSymbol:               token,
		Action:                    stringOr(result.Get("recommendation"), ActionHold),
		Confidence:                floatOr(result.Get("confidence"), 0.7),
		Reasoning:                 stringOr(result.Get("analysis"), "AI analysis completed"),
		RiskAssessment:            stringOr(result.Get("risk"), "moderate"),
		SuggestedAmountPercentage: floatOr(result.Get("allocation"), 5.0),
		PriceTarget:               optionalFloat(result.Get("price_target")),
		StopLoss:                  optionalFloat(result.Get("stop_loss")),
		Timeframe:                 stringOr(result.Get("timeframe"), "medium-term"),
		Source:                    SourceRemote,
	}, nil
}

func stringOr(v gjson.Result, fallback string) string {
	if !v.Exists() || v.Type == gjson.Null {
		return fallback
	}
	return v.String()
}

func floatOr(v gjson.Result, fallback float64) float64 {
	if !v.Exists() || v.Type == gjson.Null {
		return fallback
	}
	return v.Float()
}

func optionalFloat(v gjson.Result) *float64 {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	f := v.Float()
	return &f
}
