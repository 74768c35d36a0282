// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/models"
)

var (
	ErrParsingFailed = errors.New("file parsing failed")
	ErrAssetNotFound = errors.New("asset not found")
)

// CurrencyService converts amounts into the base reporting currency.
// GetRate returns units of the base currency per one unit of the given
// currency on the given date. Calls may perform blocking network I/O and
// are cached independently per currency/date pair.
type CurrencyService interface {
	GetRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
	Convert(ctx context.Context, amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, error)
}

// RateSource fetches a historical exchange rate from one upstream provider.
// Implementations declare which currency symbols they can serve so the
// converter can dispatch crypto symbols and fiat symbols separately.
type RateSource interface {
	Supports(currency string) bool
	FetchRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
}

// RateStore persists fetched rates across runs. The date key is formatted
// as 2006-01-02. Implementations only need get-or-put semantics; concurrent
// writers for the same pair are acceptable because values are idempotent.
type RateStore interface {
	GetRate(currency, date string) (rate decimal.Decimal, fetchedAt time.Time, found bool, err error)
	PutRate(currency, date string, rate decimal.Decimal, fetchedAt time.Time) error
}

// UploadSummary reports what an upload changed.
type UploadSummary struct {
	EventsParsed      int `json:"events_parsed"`
	EventsInserted    int `json:"events_inserted"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
}

// ReportService is the core orchestration surface: event ingestion plus
// ledger and tax report builds. Every build is a full replay of the stored
// event set; adding events invalidates all derived state, which is rebuilt
// on the next read. Rebuild is the only supported mutation.
type ReportService interface {
	ProcessUpload(fileReader io.Reader, source string) (*UploadSummary, error)
	GetLedgers() ([]*models.AssetLedger, error)
	GetLedger(asset string) (*models.AssetLedger, error)
	GetTaxReport(ctx context.Context, year int, method models.CostBasisMethod) (*models.TaxYearReport, error)
	DeleteAllEvents() error
}
