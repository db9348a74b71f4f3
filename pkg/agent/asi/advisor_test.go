package asi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/asi"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type mockReasoner struct {
	AnalyzeFunc func(ctx context.Context, input asi.Input) (*asi.Insight, error)
}

func (m *mockReasoner) Analyze(ctx context.Context, input asi.Input) (*asi.Insight, error) {
	return m.AnalyzeFunc(ctx, input)
}

const (
	ethMarket = `{"ETH": {"price": 2400.5, "confidence": 1.2, "source": "pyth"}}`
	// ETH holds 5% of a 1000 USD portfolio.
	balancedPortfolio = `{"tokens": [
		{"symbol": "ETH", "value_usd": 50},
		{"symbol": "USDC", "value_usd": "950"}
	]}`
	ethOnlyPortfolio = `{"tokens": [{"symbol": "eth", "value_usd": 1000}]}`
)

func heuristicInput(portfolio, market, userContext string) asi.Input {
	input := asi.Input{Token: "eth"}
	if portfolio != "" {
		input.Portfolio = json.RawMessage(portfolio)
	}
	if market != "" {
		input.Market = json.RawMessage(market)
	}
	if userContext != "" {
		input.Context = json.RawMessage(userContext)
	}
	return input
}

func TestGenerateInsight_HeuristicBuy(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{Rand: fixedRand(1)})

	insight, err := advisor.GenerateInsight(context.Background(), heuristicInput(balancedPortfolio, ethMarket, ""))
	require.NoError(t, err)

	assert.Equal(t, "ETH", insight.TokenSymbol)
	assert.Equal(t, asi.ActionBuy, insight.Action)
	assert.Equal(t, asi.SourceHeuristic, insight.Source)
	assert.InDelta(t, 0.95, insight.Confidence, 1e-9)
	assert.InDelta(t, 5.0, insight.SuggestedAmountPercentage, 1e-9)
	assert.Equal(t, "low", insight.RiskAssessment)
	assert.Equal(t, "medium-term", insight.Timeframe)
	require.NotNil(t, insight.PriceTarget)
	require.NotNil(t, insight.StopLoss)
	assert.InDelta(t, 2400.5*1.25, *insight.PriceTarget, 1e-6)
	assert.InDelta(t, 2400.5*0.95, *insight.StopLoss, 1e-6)
	assert.Contains(t, insight.Reasoning, "Analysis for ETH: Strong market sentiment (0.90)")

	require.NotNil(t, insight.AnalysisDetails)
	assert.InDelta(t, 5.0, insight.AnalysisDetails.PortfolioAllocation.CurrentAllocation, 1e-9)
	assert.InDelta(t, 1000.0, insight.AnalysisDetails.PortfolioAllocation.TotalPortfolioValue, 1e-9)
	assert.Equal(t, "moderate", insight.AnalysisDetails.RiskTolerance)
}

func TestGenerateInsight_HeuristicHold(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{Rand: fixedRand(0)})

	insight, err := advisor.GenerateInsight(context.Background(), heuristicInput(balancedPortfolio, ethMarket, ""))
	require.NoError(t, err)

	assert.Equal(t, asi.ActionHold, insight.Action)
	assert.Equal(t, 0.7, insight.Confidence)
	assert.Equal(t, "moderate", insight.RiskAssessment)
	assert.Equal(t, "Analysis for ETH: Balanced allocation (5.0%). Neutral market conditions (0.50)", insight.Reasoning)
	assert.Nil(t, insight.PriceTarget)
	assert.Nil(t, insight.StopLoss)
}

func TestGenerateInsight_HeuristicSellWhenOverallocated(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{Rand: fixedRand(0.5)})

	insight, err := advisor.GenerateInsight(context.Background(), heuristicInput(ethOnlyPortfolio, ethMarket, ""))
	require.NoError(t, err)

	assert.Equal(t, asi.ActionSell, insight.Action)
	assert.InDelta(t, 10.0, insight.SuggestedAmountPercentage, 1e-9)
	assert.Equal(t, "high", insight.RiskAssessment)
	assert.Contains(t, insight.Reasoning, "Overallocated (100.0%)")
	assert.NotContains(t, insight.Reasoning, "Weak market sentiment")
	assert.Nil(t, insight.PriceTarget)
	require.NotNil(t, insight.StopLoss)
	assert.InDelta(t, 2400.5*0.85, *insight.StopLoss, 1e-6)
}

func TestGenerateInsight_HeuristicSellOnWeakSentiment(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{Rand: fixedRand(0)})

	// Without a market price volatility defaults to 0.5.
	insight, err := advisor.GenerateInsight(context.Background(), heuristicInput(balancedPortfolio, "", ""))
	require.NoError(t, err)

	assert.Equal(t, asi.ActionSell, insight.Action)
	assert.Contains(t, insight.Reasoning, "Weak market sentiment (0.33)")
	assert.Nil(t, insight.StopLoss, "no stop loss without a price")
}

func TestGenerateInsight_RiskTolerance(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{Rand: fixedRand(1)})

	insight, err := advisor.GenerateInsight(context.Background(),
		heuristicInput(balancedPortfolio, ethMarket, `{"risk_tolerance": "conservative"}`))
	require.NoError(t, err)

	// 5% already meets the conservative ceiling.
	assert.Equal(t, asi.ActionHold, insight.Action)
	assert.Equal(t, "conservative", insight.AnalysisDetails.RiskTolerance)
}

func TestGenerateInsight_InvalidInputFallsBack(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{Rand: fixedRand(1)})

	insight, err := advisor.GenerateInsight(context.Background(), heuristicInput(`{"tokens": [`, "", ""))
	require.NoError(t, err)

	assert.Equal(t, asi.ActionHold, insight.Action)
	assert.Equal(t, 0.5, insight.Confidence)
	assert.Equal(t, asi.SourceFallback, insight.Source)
	assert.Equal(t, "short-term", insight.Timeframe)
}

func TestGenerateInsight_DefaultsToken(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{Rand: fixedRand(0)})

	insight, err := advisor.GenerateInsight(context.Background(), asi.Input{})
	require.NoError(t, err)
	assert.Equal(t, asi.DefaultToken, insight.TokenSymbol)
}

func TestGenerateInsight_RemoteAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/agent/analyze", r.URL.Path)

		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "portfolio_advisor_agent", payload["agent_id"])
		assert.Equal(t, "portfolio_analysis", payload["task"])

		_, _ = w.Write([]byte(`{"result": {
			"recommendation": "buy",
			"confidence": "0.82",
			"analysis": "Momentum is strong",
			"allocation": 3,
			"price_target": 2600
		}}`))
	}))
	defer server.Close()

	llm := &mockReasoner{AnalyzeFunc: func(ctx context.Context, input asi.Input) (*asi.Insight, error) {
		t.Fatal("llm should not be called when the remote agent answers")
		return nil, nil
	}}

	advisor := asi.NewAdvisor(asi.AdvisorOptions{Endpoint: server.URL, Llm: llm, Rand: fixedRand(0)})

	insight, err := advisor.GenerateInsight(context.Background(), heuristicInput(balancedPortfolio, ethMarket, ""))
	require.NoError(t, err)

	assert.Equal(t, asi.SourceRemote, insight.Source)
	assert.Equal(t, asi.ActionBuy, insight.Action)
	assert.InDelta(t, 0.82, insight.Confidence, 1e-9)
	assert.Equal(t, "Momentum is strong", insight.Reasoning)
	assert.Equal(t, "moderate", insight.RiskAssessment)
	assert.Equal(t, 3.0, insight.SuggestedAmountPercentage)
	require.NotNil(t, insight.PriceTarget)
	assert.Equal(t, 2600.0, *insight.PriceTarget)
	assert.Nil(t, insight.StopLoss)
	assert.Equal(t, "medium-term", insight.Timeframe)
}

func TestGenerateInsight_FallbackChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	llmCalls := 0
	llm := &mockReasoner{AnalyzeFunc: func(ctx context.Context, input asi.Input) (*asi.Insight, error) {
		llmCalls++
		if llmCalls == 1 {
			return &asi.Insight{TokenSymbol: input.Token, Action: asi.ActionSell, Source: asi.SourceLlm}, nil
		}
		return nil, errors.New("quota exceeded")
	}}

	advisor := asi.NewAdvisor(asi.AdvisorOptions{Endpoint: server.URL, Llm: llm, Rand: fixedRand(0)})

	insight, err := advisor.GenerateInsight(context.Background(), heuristicInput(balancedPortfolio, ethMarket, ""))
	require.NoError(t, err)
	assert.Equal(t, asi.SourceLlm, insight.Source)

	insight, err = advisor.GenerateInsight(context.Background(), heuristicInput(balancedPortfolio, ethMarket, ""))
	require.NoError(t, err)
	assert.Equal(t, asi.SourceHeuristic, insight.Source)
}

func TestBatchAnalyze(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{Rand: fixedRand(0), BatchConcurrency: 2})

	tokens := []string{"ETH", "usdc", "MATIC", "BTC"}
	insights, err := advisor.BatchAnalyze(context.Background(), tokens, heuristicInput(balancedPortfolio, ethMarket, ""))
	require.NoError(t, err)
	require.Len(t, insights, len(tokens))

	assert.Equal(t, "ETH", insights[0].TokenSymbol)
	assert.Equal(t, "USDC", insights[1].TokenSymbol)
	assert.Equal(t, "MATIC", insights[2].TokenSymbol)
	assert.Equal(t, "BTC", insights[3].TokenSymbol)
}

func TestGetAgentStatus(t *testing.T) {
	advisor := asi.NewAdvisor(asi.AdvisorOptions{})

	status := advisor.GetAgentStatus(context.Background())
	assert.Equal(t, "mock_mode", status.Status)
	assert.Equal(t, "portfolio_advisor_agent", status.AgentId)
	assert.Equal(t, "1.0.0", status.Version)
	assert.Len(t, status.Capabilities, 3)
	assert.False(t, status.LlmEnabled)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agent/status" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status": "active", "uptime": 42}`))
	}))

	status = asi.NewAdvisor(asi.AdvisorOptions{Endpoint: server.URL}).GetAgentStatus(context.Background())
	assert.Equal(t, "active", status.Status)
	assert.JSONEq(t, `{"status": "active", "uptime": 42}`, string(status.Remote))

	server.Close()
	status = asi.NewAdvisor(asi.AdvisorOptions{Endpoint: server.URL}).GetAgentStatus(context.Background())
	assert.Equal(t, "error", status.Status)
	assert.NotEmpty(t, status.Message)
}
