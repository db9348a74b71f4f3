package pyth

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tidwall/gjson"
)

const (
	SourcePyth = "pyth"
	SourceMock = "mock"

	defaultCacheSize = 64
	defaultCacheTTL  = 10 * time.Second
	defaultTimeout   = 10 * time.Second

	historyInterval  = time.Hour
	maxHistoryPoints = 24 * 31
)

var (
	ErrUnknownFeed       = errors.New("price feed not available")
	ErrInvalidTimeRange  = errors.New("end time must not be before start time")
	ErrTimeRangeTooLarge = fmt.Errorf("time range exceeds %d hourly points", maxHistoryPoints)
)

type Price struct {
	Price       float64 `json:"price"`
	Confidence  float64 `json:"confidence"`
	PublishTime int64   `json:"publish_time"`
	Source      string  `json:"source"`
}

type HistoryPoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

type FeedInfo struct {
	Symbol      string `json:"symbol"`
	FeedId      string `json:"feed_id"`
	Description string `json:"description"`
	AssetType   string `json:"asset_type"`
	Status      string `json:"status"`
}

type Service struct {
	hermesUrl  string
	httpClient *http.Client
	now        func() time.Time

	cache *expirable.LRU[string, Price]
}

type ServiceOptions struct {
	HermesUrl  string
	HttpClient *http.Client
	CacheTTL   time.Duration
	Now        func() time.Time
}

func NewService(opts ServiceOptions) *Service {
	if opts.HttpClient == nil {
		opts.HttpClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		hermesUrl:  strings.TrimRight(opts.HermesUrl, "/"),
		httpClient: opts.HttpClient,
		now:        opts.Now,
		cache:      expirable.NewLRU[string, Price](defaultCacheSize, nil, opts.CacheTTL),
	}
}

// GetTokenPrices returns a price for every requested symbol, keyed by the
// upper-cased symbol. Symbols Hermes cannot price are filled with mock data.
func (s *Service) GetTokenPrices(ctx context.Context, symbols []string) (map[string]Price, error) {
	prices := make(map[string]Price, len(symbols))
	missing := make(map[string]string)

	for _, symbol := range symbols {
		symbol = NormalizeSymbol(symbol)
		if symbol == "" {
			continue
		}

		if cached, ok := s.cache.Get(symbol); ok {
			prices[symbol] = cached
			continue
		}

		feedId, ok := priceFeedIds[symbol]
		if !ok {
			slog.Warn("price feed not available", "symbol", symbol)
			prices[symbol] = s.mockPrice(symbol)
			continue
		}
		missing[symbol] = feedId
	}

	if len(missing) == 0 {
		return prices, nil
	}

	feedIds := make([]string, 0, len(missing))
	for _, feedId := range missing {
		feedIds = append(feedIds, feedId)
	}

	latest, err := s.fetchLatestPrices(ctx, feedIds)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("failed to fetch prices from hermes, using mock prices", "error", err)
	}

	for symbol, feedId := range missing {
		price, ok := latest[normalizeFeedId(feedId)]
		if !ok {
			prices[symbol] = s.mockPrice(symbol)
			continue
		}
		s.cache.Add(symbol, price)
		prices[symbol] = price
	}

	return prices, nil
}

// fetchLatestPrices returns parsed prices keyed by feed id without the 0x prefix.
func (s *Service) fetchLatestPrices(ctx context.Context, feedIds []string) (map[string]Price, error) {
	query := url.Values{}
	for _, feedId := range feedIds {
		query.Add("ids[]", feedId)
	}
	query.Set("parsed", "true")

	endpoint := s.hermesUrl + "/v2/updates/price/latest?" + query.Encode()
	slog.Debug("fetching prices from hermes", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query hermes: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hermes returned %s: %s", resp.Status, string(body))
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}

	prices := make(map[string]Price)
	for _, feed := range gjson.GetBytes(body, "parsed").Array() {
		priceInfo := feed.Get("price")
		if !priceInfo.Exists() {
			continue
		}

		expo := int(priceInfo.Get("expo").Int())
		publishTime := priceInfo.Get("publish_time").Int()
		if publishTime == 0 {
			publishTime = s.now().Unix()
		}

		prices[normalizeFeedId(feed.Get("id").String())] = Price{
			Price:       scale(priceInfo.Get("price").Int(), expo),
			Confidence:  scale(priceInfo.Get("conf").Int(), expo),
			PublishTime: publishTime,
			Source:      SourcePyth,
		}
	}

	slog.Debug("fetched prices from hermes", "requested", len(feedIds), "received", len(prices))

	return prices, nil
}

// scale returns value * 10^expo.
func scale(value int64, expo int) float64 {
	if expo < 0 {
		return float64(value) / math.Pow10(-expo)
	}
	return float64(value) * math.Pow10(expo)
}

func (s *Service) mockPrice(symbol string) Price {
	quote, ok := mockQuotes[NormalizeSymbol(symbol)]
	if !ok {
		quote = defaultMockQuote
	}

	return Price{
		Price:       quote.price,
		Confidence:  quote.confidence,
		PublishTime: s.now().Unix(),
		Source:      SourceMock,
	}
}

// GetHistoricalPrices returns simulated hourly prices between start and end
// (inclusive, unix seconds) around the mock price of symbol.
func (s *Service) GetHistoricalPrices(ctx context.Context, symbol string, start, end int64) ([]HistoryPoint, error) {
	if end < start {
		return nil, ErrInvalidTimeRange
	}

	// The span is computed unsigned so extreme bounds cannot wrap.
	step := uint64(historyInterval / time.Second)
	points := (uint64(end)-uint64(start))/step + 1
	if points > maxHistoryPoints {
		return nil, ErrTimeRangeTooLarge
	}

	base := s.mockPrice(symbol).Price

	history := make([]HistoryPoint, 0, points)
	for i := uint64(0); i < points; i++ {
		ts := start + int64(i*step)
		history = append(history, HistoryPoint{
			Timestamp: ts,
			Price:     base * (1 + priceDrift(ts)),
			Volume:    1_000_000,
		})
	}

	return history, nil
}

// priceDrift maps a timestamp to a deterministic change within ±1%.
func priceDrift(ts int64) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(ts, 10)))
	return float64(int(h.Sum32()%200)-100) / 10000
}

func (s *Service) GetPriceFeedInfo(ctx context.Context, symbol string) (*FeedInfo, error) {
	symbol = NormalizeSymbol(symbol)

	feedId, ok := priceFeedIds[symbol]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrUnknownFeed, symbol)
	}

	return &FeedInfo{
		Symbol:      symbol,
		FeedId:      feedId,
		Description: symbol + "/USD price feed",
		AssetType:   "crypto",
		Status:      "active",
	}, nil
}
