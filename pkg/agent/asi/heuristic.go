package asi

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// riskProfiles maps a risk tolerance to the largest allocation, in percent,
// a buy may grow the position to.
var riskProfiles = map[string]float64{
	"conservative": 5,
	"moderate":     10,
	"aggressive":   20,
}

const (
	defaultRiskTolerance = "moderate"

	overallocatedPercent  = 15
	underallocatedPercent = 2
)

// Rand is the source of the simulated technical and momentum scores.
type Rand interface {
	Float64() float64
}

func uniform(r Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

func decodeRaw(raw []byte) (gjson.Result, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, errors.New("invalid json")
	}
	return gjson.ParseBytes(raw), nil
}

// analyze runs the local portfolio heuristic.
func analyze(r Rand, input Input) (*Insight, error) {
	portfolio, err := decodeRaw(input.Portfolio)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio: %w", err)
	}
	market, err := decodeRaw(input.Market)
	if err != nil {
		return nil, fmt.Errorf("failed to read market data: %w", err)
	}
	userContext, err := decodeRaw(input.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to read user context: %w", err)
	}

	allocation := analyzeAllocation(input.Token, portfolio)
	sentiment := analyzeSentiment(r, input.Token, market)

	riskTolerance := userContext.Get("risk_tolerance").String()
	if riskTolerance == "" {
		riskTolerance = defaultRiskTolerance
	}

	return recommend(r, input.Token, allocation, sentiment, riskTolerance), nil
}

func analyzeAllocation(token string, portfolio gjson.Result) Allocation {
	var total, tokenValue float64

	for _, t := range portfolio.Get("tokens").Array() {
		value := t.Get("value_usd").Float()
		total += value
		if strings.EqualFold(t.Get("symbol").String(), token) {
			tokenValue = value
		}
	}

	var percent float64
	if total > 0 {
		percent = tokenValue / total * 100
	}

	return Allocation{
		CurrentAllocation:   percent,
		TokenValue:          tokenValue,
		TotalPortfolioValue: total,
		IsOverallocated:     percent > overallocatedPercent,
		IsUnderallocated:    percent < underallocatedPercent,
	}
}

func analyzeSentiment(r Rand, token string, market gjson.Result) Sentiment {
	data := market.Get(gjson.Escape(strings.ToUpper(token)))
	price := data.Get("price").Float()
	confidence := data.Get("confidence").Float()

	technical := uniform(r, 0.3, 0.9)
	momentum := uniform(r, 0.2, 0.8)

	volatility := 0.5
	if price > 0 {
		volatility = confidence / price
	}

	return Sentiment{
		SentimentScore:  (technical + momentum + (1 - volatility)) / 3,
		TechnicalScore:  technical,
		MomentumScore:   momentum,
		VolatilityScore: volatility,
		CurrentPrice:    price,
		PriceConfidence: confidence,
	}
}

func recommend(r Rand, token string, allocation Allocation, sentiment Sentiment, riskTolerance string) *Insight {
	maxAllocation, ok := riskProfiles[riskTolerance]
	if !ok {
		maxAllocation = riskProfiles[defaultRiskTolerance]
	}

	current := allocation.CurrentAllocation
	score := sentiment.SentimentScore

	action := ActionHold
	var confidence, suggested float64
	var reasons []string

	switch {
	case score > 0.7 && current < maxAllocation:
		action = ActionBuy
		confidence = math.Min(0.95, score+0.1)
		suggested = math.Min(5.0, maxAllocation-current)
		reasons = append(reasons,
			fmt.Sprintf("Strong market sentiment (%.2f)", score),
			fmt.Sprintf("Current allocation (%.1f%%) below target", current),
		)
	case score < 0.4 || current > maxAllocation*1.5:
		action = ActionSell
		confidence = math.Min(0.9, 1-score+0.2)
		suggested = math.Min(current*0.3, 10.0)
		if score < 0.4 {
			reasons = append(reasons, fmt.Sprintf("Weak market sentiment (%.2f)", score))
		}
		if current > maxAllocation*1.5 {
			reasons = append(reasons, fmt.Sprintf("Overallocated (%.1f%%)", current))
		}
	default:
		confidence = 0.7
		reasons = append(reasons,
			fmt.Sprintf("Balanced allocation (%.1f%%)", current),
			fmt.Sprintf("Neutral market conditions (%.2f)", score),
		)
	}

	insight := &Insight{
		TokenSymbol:               token,
		Action:                    action,
		Confidence:                confidence,
		Reasoning:                 fmt.Sprintf("Analysis for %s: %s", token, strings.Join(reasons, ". ")),
		RiskAssessment:            riskLevel(confidence),
		SuggestedAmountPercentage: suggested,
		Timeframe:                 "medium-term",
		Source:                    SourceHeuristic,
		AnalysisDetails: &AnalysisDetails{
			PortfolioAllocation: allocation,
			MarketSentiment:     sentiment,
			RiskTolerance:       riskTolerance,
		},
	}

	// Targets are only meaningful with a known price.
	if price := sentiment.CurrentPrice; price > 0 {
		switch action {
		case ActionBuy:
			target := price * uniform(r, 1.05, 1.25)
			stop := price * uniform(r, 0.85, 0.95)
			insight.PriceTarget, insight.StopLoss = &target, &stop
		case ActionSell:
			stop := price * uniform(r, 0.80, 0.90)
			insight.StopLoss = &stop
		}
	}

	return insight
}

func riskLevel(confidence float64) string {
	switch {
	case confidence > 0.8:
		return "low"
	case confidence > 0.6:
		return "moderate"
	default:
		return "high"
	}
}
