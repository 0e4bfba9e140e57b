package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// QuoteSource is the batch quote-fetching capability the engine depends on.
// A failed batch returns an error; symbols missing from a successful response
// are simply absent from the result map.
type QuoteSource interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// QuoteClient fetches latest trade prices from an Alpaca-style market data API.
type QuoteClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// QuoteClientConfig holds quote client configuration.
type QuoteClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	// RequestsPerSecond paces successive batch requests against provider
	// rate limits. Zero disables pacing.
	RequestsPerSecond float64
}

// NewQuoteClient creates a new market data client.
func NewQuoteClient(cfg QuoteClientConfig, log zerolog.Logger) *QuoteClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &QuoteClient{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		log:       log.With().Str("client", "quotes").Logger(),
	}
}

// snapshotPayload mirrors the provider's per-symbol snapshot shape.
type snapshotPayload struct {
	LatestTrade *struct {
		Price float64 `json:"p"`
	} `json:"latestTrade"`
	DailyBar *struct {
		Close float64 `json:"c"`
	} `json:"dailyBar"`
}

// FetchPrices fetches the latest prices for one batch of symbols.
// Symbols the provider does not know are left out of the result; transport
// and HTTP errors fail the whole batch.
func (c *QuoteClient) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v2/stocks/snapshots?symbols=%s",
		c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	// Unknown symbols come back as 404; treat the batch as empty rather
	// than failed so the remaining batches still run.
	if resp.StatusCode == http.StatusNotFound {
		c.log.Warn().Strs("symbols", symbols).Msg("Symbols not found at quote provider")
		return map[string]float64{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	var payload map[string]snapshotPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}

	prices := make(map[string]float64, len(payload))
	for symbol, snap := range payload {
		switch {
		case snap.LatestTrade != nil && snap.LatestTrade.Price > 0:
			prices[normalizeSymbol(symbol)] = snap.LatestTrade.Price
		case snap.DailyBar != nil && snap.DailyBar.Close > 0:
			// Fall back to the daily close when no trade happened yet
			prices[normalizeSymbol(symbol)] = snap.DailyBar.Close
		}
	}

	return prices, nil
}
