package pyth_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/pyth"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func newService(hermesUrl string) *pyth.Service {
	return pyth.NewService(pyth.ServiceOptions{
		HermesUrl: hermesUrl,
		Now:       func() time.Time { return fixedNow },
	})
}

func TestGetTokenPrices_ScalesByExponent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, "/v2/updates/price/latest", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("parsed"))
		assert.ElementsMatch(t, []string{
			"0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
			"0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
		}, r.URL.Query()["ids[]"])

		_, _ = w.Write([]byte(`{
			"binary": {"encoding": "hex", "data": []},
			"parsed": [
				{"id": "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
				 "price": {"price": "4350012345678", "conf": "2500000000", "expo": -8, "publish_time": 1700000100}},
				{"id": "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
				 "price": {"price": "240050000000", "conf": "120000000", "expo": -8, "publish_time": 1700000200}}
			]
		}`))
	}))
	defer server.Close()

	service := newService(server.URL)

	prices, err := service.GetTokenPrices(context.Background(), []string{" eth", "btc "})
	require.NoError(t, err)
	require.Len(t, prices, 2)

	assert.InDelta(t, 2400.50, prices["ETH"].Price, 1e-9)
	assert.InDelta(t, 1.20, prices["ETH"].Confidence, 1e-9)
	assert.Equal(t, int64(1700000200), prices["ETH"].PublishTime)
	assert.Equal(t, pyth.SourcePyth, prices["ETH"].Source)

	assert.InDelta(t, 43500.12345678, prices["BTC"].Price, 1e-6)
	assert.InDelta(t, 25.0, prices["BTC"].Confidence, 1e-9)

	_, err = service.GetTokenPrices(context.Background(), []string{"ETH", "BTC"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "cached prices should not refetch")
}

func TestGetTokenPrices_MissingFeedUsesMock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"parsed": [
			{"id": "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
			 "price": {"price": "250000", "conf": "10", "expo": -2, "publish_time": 1700000300}}
		]}`))
	}))
	defer server.Close()

	prices, err := newService(server.URL).GetTokenPrices(context.Background(), []string{"ETH", "MATIC", "DOGE"})
	require.NoError(t, err)

	assert.Equal(t, pyth.Price{Price: 2500, Confidence: 0.1, PublishTime: 1700000300, Source: pyth.SourcePyth}, prices["ETH"])
	assert.Equal(t, pyth.Price{Price: 0.85, Confidence: 0.01, PublishTime: fixedNow.Unix(), Source: pyth.SourceMock}, prices["MATIC"])
	assert.Equal(t, pyth.Price{Price: 1.00, Confidence: 0.01, PublishTime: fixedNow.Unix(), Source: pyth.SourceMock}, prices["DOGE"])
}

func TestGetTokenPrices_HermesFailureUsesMock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	prices, err := newService(server.URL).GetTokenPrices(context.Background(), []string{"ETH", "BTC", "USDT"})
	require.NoError(t, err)

	assert.Equal(t, 2400.50, prices["ETH"].Price)
	assert.Equal(t, 43500.00, prices["BTC"].Price)
	assert.Equal(t, 0.001, prices["USDT"].Confidence)
	for _, price := range prices {
		assert.Equal(t, pyth.SourceMock, price.Source)
	}
}

func TestGetHistoricalPrices(t *testing.T) {
	service := newService("http://127.0.0.1:1")
	start := fixedNow.Unix()

	history, err := service.GetHistoricalPrices(context.Background(), "eth", start, start+3*3600)
	require.NoError(t, err)
	require.Len(t, history, 4)

	for i, point := range history {
		assert.Equal(t, start+int64(i)*3600, point.Timestamp)
		assert.InEpsilon(t, 2400.50, point.Price, 0.0101)
		assert.Equal(t, float64(1_000_000), point.Volume)
	}

	again, err := service.GetHistoricalPrices(context.Background(), "ETH", start, start+3*3600)
	require.NoError(t, err)
	assert.Equal(t, history, again)

	_, err = service.GetHistoricalPrices(context.Background(), "ETH", start, start-1)
	assert.ErrorIs(t, err, pyth.ErrInvalidTimeRange)

	_, err = service.GetHistoricalPrices(context.Background(), "ETH", start, start+365*24*3600)
	assert.ErrorIs(t, err, pyth.ErrTimeRangeTooLarge)
}

func TestGetHistoricalPrices_Bounds(t *testing.T) {
	service := newService("http://127.0.0.1:1")
	start := fixedNow.Unix()

	tests := []struct {
		name       string
		start      int64
		end        int64
		wantPoints int
		wantErr    error
	}{
		{"single point", start, start, 1, nil},
		{"partial hour", start, start + 3599, 1, nil},
		{"end before start", start, start - 1, 0, pyth.ErrInvalidTimeRange},
		{"max points", start, start + 743*3600, 744, nil},
		{"one point over max", start, start + 744*3600, 0, pyth.ErrTimeRangeTooLarge},
		{"near max int64", math.MaxInt64 - 3600, math.MaxInt64, 2, nil},
		{"ending at max int64", math.MaxInt64 - 743*3600, math.MaxInt64, 744, nil},
		{"near min int64", math.MinInt64, math.MinInt64 + 3600, 2, nil},
		{"full int64 range", math.MinInt64, math.MaxInt64, 0, pyth.ErrTimeRangeTooLarge},
		{"negative to positive", -3600, 3600, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := service.GetHistoricalPrices(context.Background(), "ETH", tt.start, tt.end)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, history)
				return
			}

			require.NoError(t, err)
			require.Len(t, history, tt.wantPoints)
			assert.Equal(t, tt.start, history[0].Timestamp)
			for i := 1; i < len(history); i++ {
				assert.Equal(t, history[i-1].Timestamp+3600, history[i].Timestamp)
				assert.LessOrEqual(t, history[i].Timestamp, tt.end)
			}
		})
	}
}

func TestGetPriceFeedInfo(t *testing.T) {
	service := newService("http://127.0.0.1:1")

	info, err := service.GetPriceFeedInfo(context.Background(), "link")
	require.NoError(t, err)
	assert.Equal(t, &pyth.FeedInfo{
		Symbol:      "LINK",
		FeedId:      "0x8ac0c70fff57e9aefdf5edf44b51d62c2d433653cbb2cf5cc06bb115af04d221",
		Description: "LINK/USD price feed",
		AssetType:   "crypto",
		Status:      "active",
	}, info)

	_, err = service.GetPriceFeedInfo(context.Background(), "DOGE")
	assert.ErrorIs(t, err, pyth.ErrUnknownFeed)
}
