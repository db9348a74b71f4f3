package thegraph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/thegraph"
)

const testAddress = "0xAbC0000000000000000000000000000000000001"

type graphqlPayload struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newGraphServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/test-key/subgraphs/id/HdVdERFUe8h61vm2fDyycHgxjsde5PbB832NHgJfZNqK", r.URL.Path)

		var payload graphqlPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Contains(t, payload.Query, "accounts(where: {id: $id})")
		assert.Equal(t, "0xabc0000000000000000000000000000000000001", payload.Variables["id"])

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetUserPortfolio_DemoKeyUsesMock(t *testing.T) {
	fetcher := thegraph.NewFetcher(thegraph.FetcherOptions{GatewayUrl: "http://127.0.0.1:1"})

	portfolio, err := fetcher.GetUserPortfolio(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, "0xabc0000000000000000000000000000000000001", portfolio.Address)
	assert.Equal(t, thegraph.DataSourceMock, portfolio.DataSource)
	require.Len(t, portfolio.Tokens, 3)
	assert.Equal(t, "ETH", portfolio.Tokens[0].Symbol)
	assert.Equal(t, "2.5", portfolio.Tokens[0].Balance)
	require.Len(t, portfolio.Positions, 1)
	assert.Equal(t, "Uniswap V3", portfolio.Positions[0].Protocol)
}

func TestGetUserPortfolio_RealData(t *testing.T) {
	var calls atomic.Int32
	server := newGraphServer(t, http.StatusOK, `{
		"data": {
			"accounts": [{
				"id": "0xabc0000000000000000000000000000000000001",
				"balances": [
					{"amount": "2500000000000000000", "token": {"id": "0xeth", "symbol": "WETH", "name": "Wrapped Ether", "decimals": "18"}},
					{"amount": "1500500000", "token": {"id": "0xusdc", "symbol": "USDC", "name": "USD Coin", "decimals": 6}}
				]
			}]
		}
	}`, &calls)

	fetcher := thegraph.NewFetcher(thegraph.FetcherOptions{ApiKey: "test-key", GatewayUrl: server.URL})

	portfolio, err := fetcher.GetUserPortfolio(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, thegraph.DataSourceReal, portfolio.DataSource)
	require.Len(t, portfolio.Tokens, 2)
	assert.Equal(t, thegraph.Token{
		Symbol:          "WETH",
		Name:            "Wrapped Ether",
		Balance:         "2.5",
		ContractAddress: "0xeth",
		Decimals:        18,
	}, portfolio.Tokens[0])
	assert.Equal(t, "1500.5", portfolio.Tokens[1].Balance)

	_, err = fetcher.GetUserPortfolio(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup should be served from cache")
}

func TestGetUserPortfolio_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "graphql errors", status: http.StatusOK, body: `{"errors": [{"message": "bad query"}]}`},
		{name: "unknown account", status: http.StatusOK, body: `{"data": {"accounts": []}}`},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "invalid json", status: http.StatusOK, body: `{"data":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := newGraphServer(t, tt.status, tt.body, &calls)

			fetcher := thegraph.NewFetcher(thegraph.FetcherOptions{ApiKey: "test-key", GatewayUrl: server.URL})

			portfolio, err := fetcher.GetUserPortfolio(context.Background(), testAddress)
			require.NoError(t, err)
			assert.Equal(t, thegraph.DataSourceMock, portfolio.DataSource)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestGetTokenTransfersAndPositions(t *testing.T) {
	fetcher := thegraph.NewFetcher(thegraph.FetcherOptions{})

	transfers, err := fetcher.GetTokenTransfers(context.Background(), testAddress, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", transfers[0].To)
	assert.Equal(t, uint64(50000000), transfers[0].BlockNumber)

	positions, err := fetcher.GetProtocolPositions(context.Background(), testAddress)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "Aave", positions[1].Protocol)
	assert.Equal(t, "4.2", positions[1].Apr)
}

func TestPortfolio_WithPrices(t *testing.T) {
	fetcher := thegraph.NewFetcher(thegraph.FetcherOptions{})

	portfolio, err := fetcher.GetUserPortfolio(context.Background(), testAddress)
	require.NoError(t, err)

	priced := portfolio.WithPrices(map[string]float64{"ETH": 2000, "MATIC": 0.5})

	assert.InDelta(t, 5000, priced.Tokens[0].ValueUsd, 1e-9)
	assert.Zero(t, priced.Tokens[1].ValueUsd)
	assert.InDelta(t, 50, priced.Tokens[2].ValueUsd, 1e-9)
	assert.Zero(t, portfolio.Tokens[0].ValueUsd, "original portfolio must not change")
}

func TestGetUserPortfolio_AddressIsNeverPartOfQuery(t *testing.T) {
	const injected = `x"}) { id } tokens(first: 1000) { id } accounts(where: {id: "y`

	var payloads []graphqlPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload graphqlPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		payloads = append(payloads, payload)

		_, _ = w.Write([]byte(`{"data": {"accounts": []}}`))
	}))
	t.Cleanup(server.Close)

	fetcher := thegraph.NewFetcher(thegraph.FetcherOptions{ApiKey: "test-key", GatewayUrl: server.URL})

	_, err := fetcher.GetUserPortfolio(context.Background(), testAddress)
	require.NoError(t, err)

	portfolio, err := fetcher.GetUserPortfolio(context.Background(), injected)
	require.NoError(t, err)
	assert.Equal(t, thegraph.DataSourceMock, portfolio.DataSource)

	require.Len(t, payloads, 2)
	assert.Equal(t, payloads[0].Query, payloads[1].Query)
	assert.NotContains(t, payloads[1].Query, "tokens(first")
	assert.Equal(t, injected, payloads[1].Variables["id"])
}
