package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/asi"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/metrics"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/oneinch"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/polygon"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/pyth"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/setup"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/thegraph"
)

type PortfolioFetcher interface {
	GetUserPortfolio(ctx context.Context, address string) (*thegraph.Portfolio, error)
	GetTokenTransfers(ctx context.Context, address string, limit int) ([]thegraph.Transfer, error)
	GetProtocolPositions(ctx context.Context, address string) ([]thegraph.Position, error)
}

type PriceService interface {
	GetTokenPrices(ctx context.Context, symbols []string) (map[string]pyth.Price, error)
	GetHistoricalPrices(ctx context.Context, symbol string, start, end int64) ([]pyth.HistoryPoint, error)
	GetPriceFeedInfo(ctx context.Context, symbol string) (*pyth.FeedInfo, error)
}

type InsightAdvisor interface {
	GenerateInsight(ctx context.Context, input asi.Input) (*asi.Insight, error)
	BatchAnalyze(ctx context.Context, tokens []string, input asi.Input) ([]*asi.Insight, error)
	GetAgentStatus(ctx context.Context) *asi.Status
}

type SwapQuoter interface {
	GetSwapQuote(ctx context.Context, req oneinch.QuoteRequest) (*oneinch.Quote, error)
}

type ChainConnector interface {
	GetLatestBlock(ctx context.Context) (*polygon.BlockInfo, error)
	GetNetworkInfo(ctx context.Context) (*polygon.NetworkInfo, error)
	GetBalance(ctx context.Context, address string) (*polygon.Balance, error)
	GetTokenBalance(ctx context.Context, tokenAddress string, userAddress string) (*polygon.TokenBalance, error)
	GetTransaction(ctx context.Context, hash string) (*polygon.TransactionInfo, error)
	GetGasPrices(ctx context.Context) (*polygon.GasPrices, error)
	GetBlockByNumber(ctx context.Context, number uint64) (*polygon.BlockInfo, error)
	WaitForTransaction(ctx context.Context, hash string, timeout time.Duration) (*polygon.ReceiptInfo, error)
	SendRawTransaction(ctx context.Context, rawTx string) (common.Hash, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) uint64
	CheckConnection(ctx context.Context) *polygon.ConnectionStatus
}

var (
	_ PortfolioFetcher = (*thegraph.Fetcher)(nil)
	_ PriceService     = (*pyth.Service)(nil)
	_ InsightAdvisor   = (*asi.Advisor)(nil)
	_ SwapQuoter       = (*oneinch.Client)(nil)
	_ ChainConnector   = (*polygon.Connector)(nil)
)

type Agent struct {
	graph   PortfolioFetcher
	prices  PriceService
	advisor InsightAdvisor
	quoter  SwapQuoter
	chain   ChainConnector

	metrics   *metrics.Metrics
	apiRouter *gin.Engine
	handler   http.Handler

	apiIpPort         string
	corsOrigins       []string
	testWalletAddress string
	shutdownTimeout   time.Duration
}

// AgentConfig carries the integrations the agent serves. A nil integration
// is reported as uninitialized by /health and its endpoints fail.
type AgentConfig struct {
	Graph   PortfolioFetcher
	Prices  PriceService
	Advisor InsightAdvisor
	Quoter  SwapQuoter
	Chain   ChainConnector
	Metrics *metrics.Metrics

	ApiIpPort         string
	CorsOrigins       []string
	TestWalletAddress string
	ShutdownTimeout   time.Duration
}

const defaultShutdownTimeout = 10 * time.Second

func NewAgent(config *AgentConfig) (*Agent, error) {
	if config == nil {
		return nil, errors.New("config is nil")
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewMetrics()
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}

	agent := &Agent{
		graph:   config.Graph,
		prices:  config.Prices,
		advisor: config.Advisor,
		quoter:  config.Quoter,
		chain:   config.Chain,

		metrics: config.Metrics,

		apiIpPort:         config.ApiIpPort,
		corsOrigins:       config.CorsOrigins,
		testWalletAddress: config.TestWalletAddress,
		shutdownTimeout:   config.ShutdownTimeout,
	}

	agent.apiRouter = agent.generateRouter()
	agent.handler = withCors(agent.apiRouter, agent.corsOrigins)

	return agent, nil
}

func NewAgentConfigFromSetupResult(ctx context.Context, setupResult *setup.SetupResult) (*AgentConfig, error) {
	if setupResult == nil {
		return nil, errors.New("setup result is nil")
	}

	ethClient, err := polygon.Dial(ctx, setupResult.PolygonRpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to dial polygon client: %w", err)
	}

	connector, err := polygon.NewConnector(polygon.ConnectorOptions{
		Client:  ethClient,
		RpcUrl:  setupResult.PolygonRpcUrl,
		ChainId: setupResult.PolygonChainId,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create polygon connector: %w", err)
	}

	var llm asi.Reasoner
	if setupResult.AsiLlmApiKey != "" {
		llm = asi.NewOpenAiReasoner(setupResult.AsiLlmApiKey, setupResult.AsiLlmBaseUrl, setupResult.AsiLlmModel)
	}

	var testWallet string
	if setupResult.HasTestWallet {
		testWallet = setupResult.TestWalletAddress.Hex()
	}

	return &AgentConfig{
		Graph: thegraph.NewFetcher(thegraph.FetcherOptions{
			ApiKey:     setupResult.TheGraphApiKey,
			GatewayUrl: setupResult.TheGraphGatewayUrl,
		}),
		Prices: pyth.NewService(pyth.ServiceOptions{
			HermesUrl: setupResult.PythHermesUrl,
		}),
		Advisor: asi.NewAdvisor(asi.AdvisorOptions{
			Endpoint: setupResult.AsiAgentEndpoint,
			Llm:      llm,
		}),
		Quoter: oneinch.NewClient(oneinch.ClientOptions{
			ApiKey:  setupResult.OneInchApiKey,
			ApiUrl:  setupResult.OneInchApiUrl,
			ChainId: setupResult.PolygonChainId.Int64(),
		}),
		Chain:   connector,
		Metrics: metrics.NewMetrics(),

		ApiIpPort:         setupResult.ApiIpPort,
		CorsOrigins:       setupResult.CorsOrigins,
		TestWalletAddress: testWallet,
	}, nil
}

// Start serves the API until ctx is cancelled.
func (a *Agent) Start(ctx context.Context) error {
	return a.StartServer(ctx)
}

func (a *Agent) GetRouter() *gin.Engine {
	return a.apiRouter
}

// Handler is the router wrapped with CORS handling.
func (a *Agent) Handler() http.Handler {
	return a.handler
}

func (a *Agent) ApiIpPort() string {
	return a.apiIpPort
}

func (a *Agent) TestWalletAddress() string {
	return a.testWalletAddress
}

func (a *Agent) StartServer(ctx context.Context) error {
	if a.apiIpPort == "" {
		return errors.New("api ip port is empty")
	}

	slog.Info("starting server", "address", a.apiIpPort)

	server := &http.Server{
		Addr:              a.apiIpPort,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	return nil
}

func isValidAddress(address string) bool {
	return common.IsHexAddress(address)
}
