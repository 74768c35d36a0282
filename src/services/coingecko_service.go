// backend/src/services/coingecko_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
	"golang.org/x/time/rate"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// coinGeckoIDs maps ticker symbols to CoinGecko coin identifiers.
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"UNI":   "uniswap",
	"LTC":   "litecoin",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"SOL":   "solana",
	"AVAX":  "avalanche-2",
	"ATOM":  "cosmos",
	"ALGO":  "algorand",
}

type coinGeckoHistoryResponse struct {
	MarketData struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
}

// CoinGeckoSource fetches historical crypto prices denominated in the base
// currency from the CoinGecko public API. Requests are throttled client-side
// because the free tier rate-limits aggressively.
type CoinGeckoSource struct {
	httpClient http.Client
	baseURL    string
	vsCurrency string
	limiter    *rate.Limiter
}

func NewCoinGeckoSource(baseURL, baseCurrency string) *CoinGeckoSource {
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}
	return &CoinGeckoSource{
		httpClient: http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
		vsCurrency: strings.ToLower(baseCurrency),
		limiter:    rate.NewLimiter(rate.Every(1200*time.Millisecond), 1),
	}
}

func (s *CoinGeckoSource) Supports(currency string) bool {
	_, ok := coinGeckoIDs[strings.ToUpper(currency)]
	return ok
}

func (s *CoinGeckoSource) FetchRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	coinID, ok := coinGeckoIDs[strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("unsupported cryptocurrency: %s", currency)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	// CoinGecko wants dd-mm-yyyy for history lookups.
	historyURL := fmt.Sprintf("%s/coins/%s/history?date=%s&localization=false",
		s.baseURL, coinID, date.Format("02-01-2006"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, historyURL, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko request for %s: %w", currency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Zero, fmt.Errorf("coingecko rate limit exceeded for %s", currency)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko API returned status %d for %s", resp.StatusCode, currency)
	}

	var data coinGeckoHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return decimal.Zero, fmt.Errorf("decoding coingecko response for %s: %w", currency, err)
	}

	price, ok := data.MarketData.CurrentPrice[s.vsCurrency]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("no %s price for %s on %s", strings.ToUpper(s.vsCurrency), currency, date.Format("2006-01-02"))
	}

	logger.L.Debug("Fetched crypto rate from CoinGecko", "currency", currency, "date", date.Format("2006-01-02"), "rate", price)
	return price, nil
}
