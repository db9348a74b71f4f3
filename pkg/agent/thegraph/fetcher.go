package thegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tidwall/gjson"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/units"
)

const (
	DemoApiKey = "demo-key"

	// Polygon token balances subgraph.
	balancesSubgraphId = "HdVdERFUe8h61vm2fDyycHgxjsde5PbB832NHgJfZNqK"

	defaultCacheSize = 256
	defaultCacheTTL  = time.Minute
	defaultTimeout   = 15 * time.Second
)

const balancesQuery = `query Balances($id: ID!) {
  accounts(where: {id: $id}) {
    id
    balances {
      amount
      token {
        id
        symbol
        name
        decimals
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type Fetcher struct {
	apiKey     string
	gatewayUrl string
	httpClient *http.Client

	cache *expirable.LRU[string, *Portfolio]
}

type FetcherOptions struct {
	ApiKey     string
	GatewayUrl string
	HttpClient *http.Client
	CacheTTL   time.Duration
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.ApiKey == "" {
		opts.ApiKey = DemoApiKey
	}
	if opts.HttpClient == nil {
		opts.HttpClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	return &Fetcher{
		apiKey:     opts.ApiKey,
		gatewayUrl: strings.TrimRight(opts.GatewayUrl, "/"),
		httpClient: opts.HttpClient,
		cache:      expirable.NewLRU[string, *Portfolio](defaultCacheSize, nil, opts.CacheTTL),
	}
}

// HasApiKey reports whether real subgraph queries are attempted.
func (f *Fetcher) HasApiKey() bool {
	return f.apiKey != DemoApiKey
}

// GetUserPortfolio returns token balances for address. When the subgraph
// cannot serve the address the mock portfolio is returned instead.
func (f *Fetcher) GetUserPortfolio(ctx context.Context, address string) (*Portfolio, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	slog.Info("fetching portfolio", "address", address)

	if cached, ok := f.cache.Get(address); ok {
		return cached, nil
	}

	if f.HasApiKey() {
		portfolio, err := f.fetchPortfolio(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("failed to fetch portfolio from the graph", "address", address, "error", err)
		} else if portfolio != nil {
			slog.Info("using real data from the graph", "address", address, "tokens", len(portfolio.Tokens))
			f.cache.Add(address, portfolio)
			return portfolio, nil
		} else {
			slog.Info("no data found for address in the graph", "address", address)
		}
	}

	slog.Info("using mock portfolio", "address", address)
	portfolio := mockPortfolio(address)
	f.cache.Add(address, portfolio)

	return portfolio, nil
}

func (f *Fetcher) GetTokenTransfers(ctx context.Context, address string, limit int) ([]Transfer, error) {
	transfers := mockTransfers(address)
	if limit > 0 && len(transfers) > limit {
		transfers = transfers[:limit]
	}
	return transfers, nil
}

func (f *Fetcher) GetProtocolPositions(ctx context.Context, address string) ([]Position, error) {
	return mockProtocolPositions(), nil
}

func (f *Fetcher) subgraphUrl() string {
	return fmt.Sprintf("%s/%s/subgraphs/id/%s", f.gatewayUrl, f.apiKey, balancesSubgraphId)
}

// fetchPortfolio returns nil without error when the subgraph has no account for address.
func (f *Fetcher) fetchPortfolio(ctx context.Context, address string) (*Portfolio, error) {
	body, err := json.Marshal(graphqlRequest{
		Query:     balancesQuery,
		Variables: map[string]any{"id": address},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.subgraphUrl(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query subgraph: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subgraph returned %s: %s", resp.Status, string(respBody))
	}

	return parseBalancesResponse(respBody)
}

func parseBalancesResponse(body []byte) (*Portfolio, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}

	parsed := gjson.ParseBytes(body)
	if errs := parsed.Get("errors"); errs.Exists() {
		return nil, fmt.Errorf("graphql errors: %s", errs.Raw)
	}

	account := parsed.Get("data.accounts.0")
	if !account.Exists() {
		return nil, nil
	}

	tokens := []Token{}
	for _, balance := range account.Get("balances").Array() {
		decimals := int(balance.Get("token.decimals").Int())

		amount, ok := new(big.Int).SetString(balance.Get("amount").String(), 10)
		if !ok {
			slog.Warn("skipping balance with invalid amount", "token", balance.Get("token.id").String())
			continue
		}

		tokens = append(tokens, Token{
			Symbol:          balance.Get("token.symbol").String(),
			Name:            balance.Get("token.name").String(),
			Balance:         units.Format(amount, decimals),
			ContractAddress: balance.Get("token.id").String(),
			Decimals:        decimals,
		})
	}

	return &Portfolio{
		Address:      account.Get("id").String(),
		Tokens:       tokens,
		Positions:    []Position{},
		Transactions: []Transfer{},
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
		DataSource:   DataSourceReal,
	}, nil
}
