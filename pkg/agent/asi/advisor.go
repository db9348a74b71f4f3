package asi

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/tidwall/gjson"
)

const (
	DefaultToken = "ETH"

	defaultTimeout          = 30 * time.Second
	defaultBatchConcurrency = 4
)

// Advisor produces trading insights. A configured remote agent is asked
// first, then the LLM, then the local heuristic.
type Advisor struct {
	remote *RemoteAgent
	llm    Reasoner

	mu  sync.Mutex
	rng Rand

	batchConcurrency int
}

type AdvisorOptions struct {
	Endpoint         string
	HttpClient       *http.Client
	Llm              Reasoner
	Rand             Rand
	BatchConcurrency int
}

func NewAdvisor(opts AdvisorOptions) *Advisor {
	if opts.HttpClient == nil {
		opts.HttpClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.Rand == nil {
		now := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(now, now>>1))
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = defaultBatchConcurrency
	}

	advisor := &Advisor{
		llm:              opts.Llm,
		rng:              opts.Rand,
		batchConcurrency: opts.BatchConcurrency,
	}
	if opts.Endpoint != "" {
		advisor.remote = NewRemoteAgent(opts.Endpoint, opts.HttpClient)
	}

	return advisor
}

func (a *Advisor) GenerateInsight(ctx context.Context, input Input) (*Insight, error) {
	input.Token = strings.ToUpper(strings.TrimSpace(input.Token))
	if input.Token == "" {
		input.Token = DefaultToken
	}

	slog.Info("generating insight", "token", input.Token)

	if a.remote != nil {
		insight, err := a.remote.Analyze(ctx, input)
		if err == nil {
			return insight, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("failed to fetch insight from asi agent", "token", input.Token, "error", err)
	}

	if a.llm != nil {
		insight, err := a.llm.Analyze(ctx, input)
		if err == nil {
			return insight, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("failed to generate insight with llm", "token", input.Token, "error", err)
	}

	a.mu.Lock()
	insight, err := analyze(a.rng, input)
	a.mu.Unlock()
	if err != nil {
		slog.Warn("failed to analyze portfolio, using fallback insight", "token", input.Token, "error", err)
		return fallbackInsight(input.Token), nil
	}

	return insight, nil
}

// BatchAnalyze generates one insight per token, in the order of tokens.
func (a *Advisor) BatchAnalyze(ctx context.Context, tokens []string, input Input) ([]*Insight, error) {
	pool := pond.NewResultPool[*Insight](a.batchConcurrency, pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for _, token := range tokens {
		tokenInput := input
		tokenInput.Token = token
		group.SubmitErr(func() (*Insight, error) {
			return a.GenerateInsight(ctx, tokenInput)
		})
	}

	return group.Wait()
}

func (a *Advisor) GetAgentStatus(ctx context.Context) *Status {
	if a.remote == nil {
		return &Status{
			Status:       "mock_mode",
			AgentId:      agentId,
			Capabilities: []string{"portfolio_analysis", "risk_assessment", "market_sentiment"},
			Version:      "1.0.0",
			LlmEnabled:   a.llm != nil,
		}
	}

	remote, err := a.remote.Status(ctx)
	if err != nil {
		return &Status{Status: "error", Message: err.Error(), LlmEnabled: a.llm != nil}
	}

	return &Status{
		Status:     stringOr(gjson.GetBytes(remote, "status"), "online"),
		AgentId:    agentId,
		LlmEnabled: a.llm != nil,
		Remote:     remote,
	}
}
