package agent

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/asi"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/oneinch"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/polygon"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/pyth"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/wallet"
)

const (
	serviceTheGraph = "The Graph"
	servicePyth     = "Pyth Network"
	serviceAsi      = "ASI Alliance"
	serviceOneInch  = "1inch"
	servicePolygon  = "Polygon"

	defaultTransferLimit = 10
	defaultHistoryWindow = 24 * time.Hour
	maxBatchTokens       = 20
	defaultWaitTimeout   = 30 * time.Second
	maxWaitTimeout       = 2 * time.Minute
)

var (
	errInvalidRequest        = errors.New("invalid request")
	errServiceNotInitialized = errors.New("service not initialized")
)

func (a *Agent) generateRouter() *gin.Engine {
	router := gin.New()
	router.Use(requestId(), accessLog(), a.metrics.Middleware(), recovery())

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	router.GET("/", a.handleRoot)
	router.GET("/health", a.handleHealth)
	router.GET("/docs", handleDocs)
	router.GET("/openapi.json", handleOpenApi)
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	test := router.Group("/test")
	{
		test.GET("/thegraph/:address", a.handleTestTheGraph)
		test.GET("/pyth/:symbols", a.handleTestPyth)
		test.POST("/asi", a.handleTestAsi)
		test.POST("/1inch/quote", a.handleTestOneInchQuote)
		test.GET("/polygon", a.handleTestPolygon)
		test.POST("/all", a.handleTestAll)
	}

	chain := router.Group("/polygon")
	{
		chain.GET("/balance/:address", a.handlePolygonBalance)
		chain.GET("/token-balance/:token/:address", a.handlePolygonTokenBalance)
		chain.GET("/tx/:hash", a.handlePolygonTransaction)
		chain.GET("/tx/:hash/wait", a.handlePolygonWaitTransaction)
		chain.POST("/tx", a.handlePolygonSendTransaction)
		chain.GET("/block/:number", a.handlePolygonBlock)
		chain.GET("/gas", a.handlePolygonGas)
		chain.POST("/estimate-gas", a.handlePolygonEstimateGas)
		chain.GET("/connection", a.handlePolygonConnection)
		chain.GET("/validate/:address", handleValidateAddress)
	}

	prices := router.Group("/pyth")
	{
		prices.GET("/feeds/:symbol", a.handlePythFeed)
		prices.GET("/history/:symbol", a.handlePythHistory)
	}

	graph := router.Group("/thegraph")
	{
		graph.GET("/transfers/:address", a.handleTheGraphTransfers)
		graph.GET("/positions/:address", a.handleTheGraphPositions)
	}

	advisor := router.Group("/asi")
	{
		advisor.GET("/status", a.handleAsiStatus)
		advisor.POST("/batch", a.handleAsiBatch)
	}

	return router
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, wallet.ErrInvalidAddress),
		errors.Is(err, polygon.ErrInvalidHash),
		errors.Is(err, polygon.ErrNotToken),
		errors.Is(err, polygon.ErrInvalidTransaction),
		errors.Is(err, polygon.ErrInvalidCall),
		errors.Is(err, oneinch.ErrInvalidQuoteRequest),
		errors.Is(err, pyth.ErrInvalidTimeRange),
		errors.Is(err, pyth.ErrTimeRangeTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, polygon.ErrNotFound),
		errors.Is(err, pyth.ErrUnknownFeed):
		return http.StatusNotFound
	case errors.Is(err, polygon.ErrWaitTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// abortWithError answers with a {"detail"} body naming the failing service.
func abortWithError(c *gin.Context, service string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "service", service, "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": fmt.Sprintf("%s error: %v", service, err)})
}

func invalidRequest(err error) error {
	return fmt.Errorf("%w: %v", errInvalidRequest, err)
}

// bindOptionalJSON treats an empty body as an empty object.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return invalidRequest(err)
	}
	return nil
}

func (a *Agent) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "AI Portfolio Agent - Core Testing API",
		"endpoints": gin.H{
			"test_thegraph": "GET /test/thegraph/{address} - Test wallet data fetching",
			"test_pyth":     "GET /test/pyth/{symbols} - Test price feeds (ETH,BTC,MATIC)",
			"test_asi":      "POST /test/asi - Test AI reasoning",
			"test_1inch":    "POST /test/1inch/quote - Test trade quotes",
			"test_polygon":  "GET /test/polygon - Test blockchain connection",
			"test_all":      "POST /test/all - Test all services together",
			"health":        "GET /health - Service health check",
			"docs":          "GET /docs - API documentation",
			"metrics":       "GET /metrics - Prometheus metrics",
		},
		"example_usage": gin.H{
			"wallet_test":     `POST /test/all with {"address": "0x..."}`,
			"price_test":      "GET /test/pyth/ETH,BTC,MATIC",
			"blockchain_test": "GET /test/polygon",
		},
	})
}

func (a *Agent) services() map[string]bool {
	return map[string]bool{
		"thegraph":     a.graph != nil,
		"pyth":         a.prices != nil,
		"asi_alliance": a.advisor != nil,
		"oneinch":      a.quoter != nil,
		"polygon":      a.chain != nil,
	}
}

func (a *Agent) handleHealth(c *gin.Context) {
	services := a.services()

	initialized := 0
	for _, ok := range services {
		if ok {
			initialized++
		}
	}

	status := "healthy"
	if initialized < len(services) {
		status = "degraded"
	}

	response := gin.H{
		"status":               status,
		"services":             services,
		"initialized_services": initialized,
		"total_services":       len(services),
	}
	if a.chain != nil {
		response["polygon_connection"] = a.chain.CheckConnection(c.Request.Context())
	}

	c.JSON(http.StatusOK, response)
}

func (a *Agent) handleTestTheGraph(c *gin.Context) {
	if a.graph == nil {
		abortWithError(c, serviceTheGraph, errServiceNotInitialized)
		return
	}

	address := c.Param("address")
	slog.Info("testing the graph", "address", address)

	portfolio, err := a.graph.GetUserPortfolio(c.Request.Context(), address)
	a.metrics.RecordIntegration("thegraph", err)
	if err != nil {
		abortWithError(c, serviceTheGraph, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service": serviceTheGraph,
		"status":  "success",
		"address": address,
		"data":    portfolio,
	})
}

// parseSymbols splits a comma separated list, trimming and upper-casing each entry.
func parseSymbols(raw string) []string {
	var symbols []string
	for _, symbol := range strings.Split(raw, ",") {
		if symbol = pyth.NormalizeSymbol(symbol); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

func (a *Agent) handleTestPyth(c *gin.Context) {
	if a.prices == nil {
		abortWithError(c, servicePyth, errServiceNotInitialized)
		return
	}

	symbols := parseSymbols(c.Param("symbols"))
	if len(symbols) == 0 {
		abortWithError(c, servicePyth, invalidRequest(errors.New("no symbols given")))
		return
	}

	slog.Info("testing pyth price feeds", "symbols", symbols)

	prices, err := a.prices.GetTokenPrices(c.Request.Context(), symbols)
	a.metrics.RecordIntegration("pyth", err)
	if err != nil {
		abortWithError(c, servicePyth, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service": servicePyth,
		"status":  "success",
		"symbols": symbols,
		"prices":  prices,
	})
}

func (a *Agent) handleTestAsi(c *gin.Context) {
	if a.advisor == nil {
		abortWithError(c, serviceAsi, errServiceNotInitialized)
		return
	}

	var input asi.Input
	if err := bindOptionalJSON(c, &input); err != nil {
		abortWithError(c, serviceAsi, err)
		return
	}

	insight, err := a.advisor.GenerateInsight(c.Request.Context(), input)
	a.metrics.RecordIntegration("asi_alliance", err)
	if err != nil {
		abortWithError(c, serviceAsi, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service": serviceAsi,
		"status":  "success",
		"insight": insight,
	})
}

func (a *Agent) handleTestOneInchQuote(c *gin.Context) {
	if a.quoter == nil {
		abortWithError(c, serviceOneInch, errServiceNotInitialized)
		return
	}

	var req oneinch.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, serviceOneInch, invalidRequest(err))
		return
	}

	slog.Info("testing 1inch quote", "from", req.TokenFrom, "to", req.TokenTo)

	quote, err := a.quoter.GetSwapQuote(c.Request.Context(), req)
	a.metrics.RecordIntegration("oneinch", err)
	if err != nil {
		abortWithError(c, serviceOneInch, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service": serviceOneInch,
		"status":  "success",
		"quote":   quote,
	})
}

func (a *Agent) handleTestPolygon(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	ctx := c.Request.Context()

	block, err := a.chain.GetLatestBlock(ctx)
	if err == nil {
		var network *polygon.NetworkInfo
		network, err = a.chain.GetNetworkInfo(ctx)
		if err == nil {
			a.metrics.RecordIntegration("polygon", nil)
			c.JSON(http.StatusOK, gin.H{
				"service":      servicePolygon,
				"status":       "success",
				"latest_block": block,
				"network_info": network,
			})
			return
		}
	}

	a.metrics.RecordIntegration("polygon", err)
	abortWithError(c, servicePolygon, err)
}

func (a *Agent) handlePolygonBalance(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	balance, err := a.chain.GetBalance(c.Request.Context(), c.Param("address"))
	if err != nil {
		abortWithError(c, servicePolygon, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (a *Agent) handlePolygonTokenBalance(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	balance, err := a.chain.GetTokenBalance(c.Request.Context(), c.Param("token"), c.Param("address"))
	if err != nil {
		abortWithError(c, servicePolygon, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (a *Agent) handlePolygonTransaction(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	tx, err := a.chain.GetTransaction(c.Request.Context(), c.Param("hash"))
	if err != nil {
		abortWithError(c, servicePolygon, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (a *Agent) handlePolygonGas(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	prices, err := a.chain.GetGasPrices(c.Request.Context())
	if err != nil {
		abortWithError(c, servicePolygon, err)
		return
	}

	c.JSON(http.StatusOK, prices)
}

func (a *Agent) handlePolygonWaitTransaction(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	timeout := defaultWaitTimeout
	if raw := c.Query("timeout"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 || time.Duration(seconds)*time.Second > maxWaitTimeout {
			abortWithError(c, servicePolygon, invalidRequest(
				fmt.Errorf("timeout must be between 1 and %d seconds", int(maxWaitTimeout/time.Second))))
			return
		}
		timeout = time.Duration(seconds) * time.Second
	}

	receipt, err := a.chain.WaitForTransaction(c.Request.Context(), c.Param("hash"), timeout)
	if err != nil {
		abortWithError(c, servicePolygon, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

type sendTransactionRequest struct {
	RawTx string `json:"raw_tx" binding:"required"`
}

func (a *Agent) handlePolygonSendTransaction(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	var req sendTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, servicePolygon, invalidRequest(err))
		return
	}

	hash, err := a.chain.SendRawTransaction(c.Request.Context(), req.RawTx)
	if err != nil {
		abortWithError(c, servicePolygon, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hash": hash.Hex()})
}

func (a *Agent) handlePolygonBlock(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	number, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil {
		abortWithError(c, servicePolygon, invalidRequest(errors.New("block number must be a non-negative integer")))
		return
	}

	block, err := a.chain.GetBlockByNumber(c.Request.Context(), number)
	if err != nil {
		abortWithError(c, servicePolygon, err)
		return
	}

	c.JSON(http.StatusOK, block)
}

func (a *Agent) handlePolygonEstimateGas(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	var req polygon.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, servicePolygon, invalidRequest(err))
		return
	}

	msg, err := req.CallMsg()
	if err != nil {
		abortWithError(c, servicePolygon, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gas_limit": a.chain.EstimateGas(c.Request.Context(), msg)})
}

func (a *Agent) handlePolygonConnection(c *gin.Context) {
	if a.chain == nil {
		abortWithError(c, servicePolygon, errServiceNotInitialized)
		return
	}

	c.JSON(http.StatusOK, a.chain.CheckConnection(c.Request.Context()))
}

func handleValidateAddress(c *gin.Context) {
	c.JSON(http.StatusOK, wallet.ValidateAddress(c.Param("address")))
}

func (a *Agent) handlePythFeed(c *gin.Context) {
	if a.prices == nil {
		abortWithError(c, servicePyth, errServiceNotInitialized)
		return
	}

	info, err := a.prices.GetPriceFeedInfo(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		abortWithError(c, servicePyth, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func parseUnixQuery(c *gin.Context, key string, fallback int64) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalidRequest(fmt.Errorf("%s must be a unix timestamp", key))
	}
	return value, nil
}

func (a *Agent) handlePythHistory(c *gin.Context) {
	if a.prices == nil {
		abortWithError(c, servicePyth, errServiceNotInitialized)
		return
	}

	end, err := parseUnixQuery(c, "end", time.Now().Unix())
	if err != nil {
		abortWithError(c, servicePyth, err)
		return
	}
	defaultStart := end - int64(defaultHistoryWindow/time.Second)
	if defaultStart > end {
		defaultStart = math.MinInt64
	}
	start, err := parseUnixQuery(c, "start", defaultStart)
	if err != nil {
		abortWithError(c, servicePyth, err)
		return
	}

	symbol := pyth.NormalizeSymbol(c.Param("symbol"))

	history, err := a.prices.GetHistoricalPrices(c.Request.Context(), symbol, start, end)
	if err != nil {
		abortWithError(c, servicePyth, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"start":   start,
		"end":     end,
		"history": history,
	})
}

func (a *Agent) handleTheGraphTransfers(c *gin.Context) {
	if a.graph == nil {
		abortWithError(c, serviceTheGraph, errServiceNotInitialized)
		return
	}

	limit := defaultTransferLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, serviceTheGraph, invalidRequest(errors.New("limit must be a positive integer")))
			return
		}
		limit = parsed
	}

	address := c.Param("address")
	transfers, err := a.graph.GetTokenTransfers(c.Request.Context(), address, limit)
	if err != nil {
		abortWithError(c, serviceTheGraph, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address, "transfers": transfers})
}

func (a *Agent) handleTheGraphPositions(c *gin.Context) {
	if a.graph == nil {
		abortWithError(c, serviceTheGraph, errServiceNotInitialized)
		return
	}

	address := c.Param("address")
	positions, err := a.graph.GetProtocolPositions(c.Request.Context(), address)
	if err != nil {
		abortWithError(c, serviceTheGraph, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address, "positions": positions})
}

func (a *Agent) handleAsiStatus(c *gin.Context) {
	if a.advisor == nil {
		abortWithError(c, serviceAsi, errServiceNotInitialized)
		return
	}

	c.JSON(http.StatusOK, a.advisor.GetAgentStatus(c.Request.Context()))
}

type batchRequest struct {
	Tokens []string `json:"tokens" binding:"required,min=1"`
	asi.Input
}

func (a *Agent) handleAsiBatch(c *gin.Context) {
	if a.advisor == nil {
		abortWithError(c, serviceAsi, errServiceNotInitialized)
		return
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, serviceAsi, invalidRequest(err))
		return
	}
	if len(req.Tokens) > maxBatchTokens {
		abortWithError(c, serviceAsi, invalidRequest(fmt.Errorf("at most %d tokens per batch", maxBatchTokens)))
		return
	}

	insights, err := a.advisor.BatchAnalyze(c.Request.Context(), req.Tokens, req.Input)
	a.metrics.RecordIntegration("asi_alliance", err)
	if err != nil {
		abortWithError(c, serviceAsi, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"insights": insights})
}
