package asi

import "encoding/json"

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"

	SourceRemote    = "asi_alliance"
	SourceLlm       = "asi_llm"
	SourceHeuristic = "asi_mock"
	SourceFallback  = "fallback"

	agentId = "portfolio_advisor_agent"
)

// Input is the material an insight is generated from. Portfolio, Market and
// Context are passed through as raw JSON so callers can forward request
// bodies untouched.
type Input struct {
	Token     string          `json:"token"`
	Portfolio json.RawMessage `json:"portfolio,omitempty"`
	Market    json.RawMessage `json:"market,omitempty"`
	Context   json.RawMessage `json:"context,omitempty"`
}

type Insight struct {
	TokenSymbol               string           `json:"token_symbol"`
	Action                    string           `json:"action"`
	Confidence                float64          `json:"confidence"`
	Reasoning                 string           `json:"reasoning"`
	RiskAssessment            string           `json:"risk_assessment"`
	SuggestedAmountPercentage float64          `json:"suggested_amount_percentage"`
	PriceTarget               *float64         `json:"price_target"`
	StopLoss                  *float64         `json:"stop_loss"`
	Timeframe                 string           `json:"timeframe"`
	Source                    string           `json:"source"`
	AnalysisDetails           *AnalysisDetails `json:"analysis_details,omitempty"`
}

type AnalysisDetails struct {
	PortfolioAllocation Allocation `json:"portfolio_allocation"`
	MarketSentiment     Sentiment  `json:"market_sentiment"`
	RiskTolerance       string     `json:"risk_tolerance"`
}

type Allocation struct {
	CurrentAllocation   float64 `json:"current_allocation"`
	TokenValue          float64 `json:"token_value"`
	TotalPortfolioValue float64 `json:"total_portfolio_value"`
	IsOverallocated     bool    `json:"is_overallocated"`
	IsUnderallocated    bool    `json:"is_underallocated"`
}

type Sentiment struct {
	SentimentScore  float64 `json:"sentiment_score"`
	TechnicalScore  float64 `json:"technical_score"`
	MomentumScore   float64 `json:"momentum_score"`
	VolatilityScore float64 `json:"volatility_score"`
	CurrentPrice    float64 `json:"current_price"`
	PriceConfidence float64 `json:"price_confidence"`
}

type Status struct {
	Status       string          `json:"status"`
	AgentId      string          `json:"agent_id,omitempty"`
	Capabilities []string        `json:"capabilities,omitempty"`
	Version      string          `json:"version,omitempty"`
	Message      string          `json:"message,omitempty"`
	LlmEnabled   bool            `json:"llm_enabled"`
	Remote       json.RawMessage `json:"remote,omitempty"`
}

func fallbackInsight(token string) *Insight {
	return &Insight{
		TokenSymbol:               token,
		Action:                    ActionHold,
		Confidence:                0.5,
		Reasoning:                 "Unable to generate detailed analysis for " + token + ". Recommending hold position.",
		RiskAssessment:            "moderate",
		SuggestedAmountPercentage: 0,
		Timeframe:                 "short-term",
		Source:                    SourceFallback,
	}
}
