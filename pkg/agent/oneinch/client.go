package oneinch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// PlaceholderApiKey is the value scaffolded into a fresh .env file.
	PlaceholderApiKey = "your-1inch-api-key"

	SourceOneInch = "1inch"
	SourceMock    = "mock"

	defaultTimeout = 15 * time.Second
	mockGas        = 150000
)

var ErrInvalidQuoteRequest = errors.New("invalid quote request")

type QuoteRequest struct {
	TokenFrom   string `json:"token_from"`
	TokenTo     string `json:"token_to"`
	Amount      string `json:"amount"`
	UserAddress string `json:"user_address"`
}

type Quote struct {
	FromToken    string          `json:"from_token"`
	ToToken      string          `json:"to_token"`
	FromAmount   string          `json:"from_amount"`
	ToAmount     string          `json:"to_amount"`
	EstimatedGas uint64          `json:"estimated_gas"`
	ChainId      int64           `json:"chain_id"`
	UserAddress  string          `json:"user_address"`
	Protocols    json.RawMessage `json:"protocols,omitempty"`
	Source       string          `json:"source"`
}

type Client struct {
	apiKey     string
	apiUrl     string
	chainId    int64
	httpClient *http.Client
	limiter    *rate.Limiter
}

type ClientOptions struct {
	ApiKey     string
	ApiUrl     string
	ChainId    int64
	HttpClient *http.Client
	// RateLimit is the number of requests per second sent to the API.
	RateLimit rate.Limit
}

func NewClient(opts ClientOptions) *Client {
	if opts.HttpClient == nil {
		opts.HttpClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 1
	}

	return &Client{
		apiKey:     opts.ApiKey,
		apiUrl:     strings.TrimRight(opts.ApiUrl, "/"),
		chainId:    opts.ChainId,
		httpClient: opts.HttpClient,
		limiter:    rate.NewLimiter(opts.RateLimit, 1),
	}
}

// HasApiKey reports whether quotes are requested from the 1inch API.
func (c *Client) HasApiKey() bool {
	return c.apiKey != "" && c.apiKey != PlaceholderApiKey
}

func (r QuoteRequest) Validate() (*big.Int, error) {
	if !common.IsHexAddress(r.TokenFrom) {
		return nil, fmt.Errorf("%w: token_from must be a token address", ErrInvalidQuoteRequest)
	}
	if !common.IsHexAddress(r.TokenTo) {
		return nil, fmt.Errorf("%w: token_to must be a token address", ErrInvalidQuoteRequest)
	}
	if common.HexToAddress(r.TokenFrom) == common.HexToAddress(r.TokenTo) {
		return nil, fmt.Errorf("%w: token_from and token_to must differ", ErrInvalidQuoteRequest)
	}
	if !common.IsHexAddress(r.UserAddress) {
		return nil, fmt.Errorf("%w: user_address must be an address", ErrInvalidQuoteRequest)
	}

	amount, ok := new(big.Int).SetString(strings.TrimSpace(r.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer in base units", ErrInvalidQuoteRequest)
	}

	return amount, nil
}

// GetSwapQuote prices a swap without executing it.
func (c *Client) GetSwapQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	amount, err := req.Validate()
	if err != nil {
		return nil, err
	}

	slog.Info("getting swap quote", "from", req.TokenFrom, "to", req.TokenTo, "amount", amount)

	if !c.HasApiKey() {
		return c.mockQuote(req, amount), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	query := url.Values{}
	query.Set("src", req.TokenFrom)
	query.Set("dst", req.TokenTo)
	query.Set("amount", amount.String())
	query.Set("includeGas", "true")
	query.Set("includeProtocols", "true")

	endpoint := fmt.Sprintf("%s/swap/v6.0/%d/quote?%s", c.apiUrl, c.chainId, query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to request quote: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		description := gjson.GetBytes(body, "description").String()
		if description == "" {
			description = string(body)
		}
		return nil, fmt.Errorf("1inch returned %s: %s", resp.Status, description)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}

	parsed := gjson.ParseBytes(body)
	toAmount := parsed.Get("dstAmount").String()
	if toAmount == "" {
		return nil, fmt.Errorf("quote response has no dstAmount")
	}

	quote := &Quote{
		FromToken:    req.TokenFrom,
		ToToken:      req.TokenTo,
		FromAmount:   amount.String(),
		ToAmount:     toAmount,
		EstimatedGas: parsed.Get("gas").Uint(),
		ChainId:      c.chainId,
		UserAddress:  req.UserAddress,
		Source:       SourceOneInch,
	}
	if protocols := parsed.Get("protocols"); protocols.Exists() {
		quote.Protocols = json.RawMessage(protocols.Raw)
	}

	return quote, nil
}

// mockQuote applies a flat 0.3% fee to the input amount.
func (c *Client) mockQuote(req QuoteRequest, amount *big.Int) *Quote {
	toAmount := new(big.Int).Mul(amount, big.NewInt(997))
	toAmount.Quo(toAmount, big.NewInt(1000))

	return &Quote{
		FromToken:    req.TokenFrom,
		ToToken:      req.TokenTo,
		FromAmount:   amount.String(),
		ToAmount:     toAmount.String(),
		EstimatedGas: mockGas,
		ChainId:      c.chainId,
		UserAddress:  req.UserAddress,
		Source:       SourceMock,
	}
}
