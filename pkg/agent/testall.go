package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alitto/pond/v2"
	"github.com/gin-gonic/gin"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/asi"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/oneinch"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/pyth"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/thegraph"
)

const (
	// WETH and WMATIC on Polygon PoS.
	sampleTokenFrom   = "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"
	sampleTokenTo     = "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"
	sampleQuoteAmount = "100000000000000000"

	testAllConcurrency = 4
)

var testAllSymbols = []string{"ETH", "BTC", "MATIC"}

type testAllRequest struct {
	Address string `json:"address"`
}

// serviceResult is one entry of the /test/all results map.
type serviceResult map[string]any

func succeeded(key string, value any) serviceResult {
	return serviceResult{"status": "success", key: value}
}

func failed(err error) serviceResult {
	return serviceResult{"status": "failed", "error": err.Error()}
}

func (a *Agent) handleTestAll(c *gin.Context) {
	var req testAllRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, "Comprehensive test", err)
		return
	}

	address := req.Address
	if address == "" {
		address = a.testWalletAddress
	}
	if address == "" {
		abortWithError(c, "Comprehensive test", invalidRequest(errors.New("address is required")))
		return
	}
	if !isValidAddress(address) {
		abortWithError(c, "Comprehensive test", invalidRequest(fmt.Errorf("%q is not an address", address)))
		return
	}

	slog.Info("running comprehensive test", "address", address)

	results := a.testAll(c.Request.Context(), address)

	successful := 0
	for _, result := range results {
		if result["status"] == "success" {
			successful++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"comprehensive_test":  true,
		"address":             address,
		"success_rate":        fmt.Sprintf("%.1f%%", float64(successful)/float64(len(results))*100),
		"successful_services": successful,
		"total_services":      len(results),
		"results":             results,
	})
}

// testAll queries the independent integrations concurrently, then asks the
// advisor about ETH using the gathered portfolio and prices.
func (a *Agent) testAll(ctx context.Context, address string) map[string]serviceResult {
	var (
		portfolio *thegraph.Portfolio
		prices    map[string]pyth.Price

		graphResult, pythResult, quoteResult, chainResult serviceResult
	)

	pool := pond.NewPool(testAllConcurrency, pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	group.Submit(
		func() {
			var err error
			portfolio, err = a.callGraph(ctx, address)
			a.metrics.RecordIntegration("thegraph", err)
			if err != nil {
				graphResult = failed(err)
				return
			}
			graphResult = succeeded("data", portfolio)
		},
		func() {
			var err error
			prices, err = a.callPrices(ctx)
			a.metrics.RecordIntegration("pyth", err)
			if err != nil {
				pythResult = failed(err)
				return
			}
			pythResult = succeeded("prices", prices)
		},
		func() {
			quote, err := a.callQuoter(ctx, address)
			a.metrics.RecordIntegration("oneinch", err)
			if err != nil {
				quoteResult = failed(err)
				return
			}
			quoteResult = succeeded("quote", quote)
		},
		func() {
			if a.chain == nil {
				chainResult = failed(errServiceNotInitialized)
				return
			}
			block, err := a.chain.GetLatestBlock(ctx)
			a.metrics.RecordIntegration("polygon", err)
			if err != nil {
				chainResult = failed(err)
				return
			}
			chainResult = succeeded("block", block)
		},
	)

	if err := group.Wait(); err != nil {
		slog.Warn("comprehensive test interrupted", "error", err)
	}

	results := map[string]serviceResult{
		"thegraph": orFailed(ctx, graphResult),
		"pyth":     orFailed(ctx, pythResult),
		"oneinch":  orFailed(ctx, quoteResult),
		"polygon":  orFailed(ctx, chainResult),
	}

	insight, err := a.callAdvisor(ctx, address, portfolio, prices)
	a.metrics.RecordIntegration("asi_alliance", err)
	if err != nil {
		results["asi_alliance"] = failed(err)
	} else {
		results["asi_alliance"] = succeeded("insight", insight)
	}

	return results
}

// orFailed covers tasks the pool dropped because ctx ended first.
func orFailed(ctx context.Context, result serviceResult) serviceResult {
	if result != nil {
		return result
	}
	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	return failed(errors.New("not run"))
}

func (a *Agent) callGraph(ctx context.Context, address string) (*thegraph.Portfolio, error) {
	if a.graph == nil {
		return nil, errServiceNotInitialized
	}
	return a.graph.GetUserPortfolio(ctx, address)
}

func (a *Agent) callPrices(ctx context.Context) (map[string]pyth.Price, error) {
	if a.prices == nil {
		return nil, errServiceNotInitialized
	}
	return a.prices.GetTokenPrices(ctx, testAllSymbols)
}

func (a *Agent) callQuoter(ctx context.Context, address string) (*oneinch.Quote, error) {
	if a.quoter == nil {
		return nil, errServiceNotInitialized
	}
	return a.quoter.GetSwapQuote(ctx, oneinch.QuoteRequest{
		TokenFrom:   sampleTokenFrom,
		TokenTo:     sampleTokenTo,
		Amount:      sampleQuoteAmount,
		UserAddress: address,
	})
}

func (a *Agent) callAdvisor(ctx context.Context, address string, portfolio *thegraph.Portfolio, prices map[string]pyth.Price) (*asi.Insight, error) {
	if a.advisor == nil {
		return nil, errServiceNotInitialized
	}

	input := asi.Input{Token: asi.DefaultToken}

	if portfolio != nil {
		usd := make(map[string]float64, len(prices))
		for symbol, price := range prices {
			usd[symbol] = price.Price
		}

		raw, err := json.Marshal(portfolio.WithPrices(usd))
		if err != nil {
			return nil, fmt.Errorf("failed to encode portfolio: %w", err)
		}
		input.Portfolio = raw
	}

	if prices != nil {
		raw, err := json.Marshal(prices)
		if err != nil {
			return nil, fmt.Errorf("failed to encode prices: %w", err)
		}
		input.Market = raw
	}

	userContext, err := json.Marshal(map[string]string{"address": address})
	if err != nil {
		return nil, fmt.Errorf("failed to encode context: %w", err)
	}
	input.Context = userContext

	return a.advisor.GenerateInsight(ctx, input)
}
