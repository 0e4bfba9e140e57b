package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuoteTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPricesParsesSnapshots(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("APCA-API-KEY-ID")
		w.Write([]byte(`{
			"AAPL": {"latestTrade": {"p": 150.25}, "dailyBar": {"c": 149.00}},
			"PFF":  {"dailyBar": {"c": 25.10}},
			"HALT": {"latestTrade": {"p": 0}, "dailyBar": {"c": 0}}
		}`))
	}))
	defer srv.Close()

	client := NewQuoteClient(QuoteClientConfig{
		BaseURL: srv.URL,
		APIKey:  "key",
		Timeout: time.Second,
	}, zerolog.Nop())

	prices, err := client.FetchPrices(context.Background(), []string{"AAPL", "PFF", "HALT"})
	require.NoError(t, err)

	assert.Equal(t, "/v2/stocks/snapshots", gotPath)
	assert.Equal(t, "key", gotKey)
	assert.Equal(t, 150.25, prices["AAPL"], "latest trade wins over daily bar")
	assert.Equal(t, 25.10, prices["PFF"], "daily close is the fallback")
	_, ok := prices["HALT"]
	assert.False(t, ok, "symbols with no usable price are omitted")
}

func TestFetchPricesNotFoundIsEmptyNotError(t *testing.T) {
	srv := newQuoteTestServer(t, http.StatusNotFound, `{"message":"not found"}`)

	client := NewQuoteClient(QuoteClientConfig{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())

	prices, err := client.FetchPrices(context.Background(), []string{"NOPE"})
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestFetchPricesServerErrorFailsBatch(t *testing.T) {
	srv := newQuoteTestServer(t, http.StatusInternalServerError, "")

	client := NewQuoteClient(QuoteClientConfig{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())

	_, err := client.FetchPrices(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestFetchPricesEmptyBatch(t *testing.T) {
	client := NewQuoteClient(QuoteClientConfig{BaseURL: "http://unused", Timeout: time.Second}, zerolog.Nop())

	prices, err := client.FetchPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices, "no request is made for an empty batch")
}
