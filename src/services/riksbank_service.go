// backend/src/services/riksbank_service.go
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
)

const defaultRiksbankBaseURL = "https://swea.riksbank.se/sweaWS/services/SweaWebServiceHttpSoap12Endpoint"

// riksbankSeries maps fiat symbols to the SEK cross series the Riksbank
// SOAP endpoint publishes.
var riksbankSeries = map[string]string{
	"USD": "USDSEK",
	"EUR": "EURSEK",
	"GBP": "GBPSEK",
	"JPY": "JPYSEK",
	"NOK": "NOKSEK",
	"DKK": "DKKSEK",
	"CHF": "CHFSEK",
}

var riksbankValueRe = regexp.MustCompile(`<value>([0-9.]+)</value>`)

// RiksbankSource fetches historical fiat/SEK rates from the Swedish central
// bank's SOAP web service.
type RiksbankSource struct {
	httpClient http.Client
	baseURL    string
}

func NewRiksbankSource(baseURL string) *RiksbankSource {
	if baseURL == "" {
		baseURL = defaultRiksbankBaseURL
	}
	return &RiksbankSource{
		httpClient: http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
	}
}

func (s *RiksbankSource) Supports(currency string) bool {
	_, ok := riksbankSeries[strings.ToUpper(currency)]
	return ok
}

func (s *RiksbankSource) FetchRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	seriesID, ok := riksbankSeries[strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("unsupported fiat currency: %s", currency)
	}

	dateStr := date.Format("2006-01-02")
	body := buildRiksbankRequest(seriesID, dateStr)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(body))
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Content-Type", "application/soap+xml;charset=UTF-8")
	req.Header.Set("Accept", "application/soap+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("riksbank request for %s on %s: %w", currency, dateStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("riksbank API returned status %d for %s on %s", resp.StatusCode, currency, dateStr)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading riksbank response: %w", err)
	}

	matches := riksbankValueRe.FindSubmatch(payload)
	if len(matches) < 2 {
		return decimal.Zero, fmt.Errorf("no rate found in riksbank response for %s on %s", currency, dateStr)
	}

	rate, err := decimal.NewFromString(string(matches[1]))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate value in riksbank response: %w", err)
	}

	logger.L.Debug("Fetched fiat rate from Riksbank", "currency", currency, "date", dateStr, "rate", rate)
	return rate, nil
}

func buildRiksbankRequest(seriesID, date string) string {
	return fmt.Sprintf(`<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope"
                xmlns:xsd="http://www.riksbank.se/xsd">
  <soap12:Body>
    <xsd:getInterestAndExchangeRates>
      <searchRequestParameters>
        <aggregateMethod>D</aggregateMethod>
        <datefrom>%s</datefrom>
        <dateto>%s</dateto>
        <languageid>en</languageid>
        <series_id>%s</series_id>
      </searchRequestParameters>
    </xsd:getInterestAndExchangeRates>
  </soap12:Body>
</soap12:Envelope>`, date, date, seriesID)
}
