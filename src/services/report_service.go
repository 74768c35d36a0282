// backend/src/services/report_service.go
package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/database"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
	"github.com/username/cryptofolio/backend/src/parsers"
	"github.com/username/cryptofolio/backend/src/processors"
)

const (
	ckAllLedgers = "res_all_ledgers"
	ckTaxReport  = "res_tax_report_%d_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type reportServiceImpl struct {
	taxProcessor *processors.TaxReportProcessor
	reportCache  *cache.Cache
}

// NewReportService wires the tax report processor with a result cache.
// Cached results are never patched in place: any ingestion invalidates them
// and the next read triggers a full rebuild from the stored event set.
func NewReportService(taxProcessor *processors.TaxReportProcessor, reportCache *cache.Cache) ReportService {
	return &reportServiceImpl{
		taxProcessor: taxProcessor,
		reportCache:  reportCache,
	}
}

func (s *reportServiceImpl) ProcessUpload(fileReader io.Reader, source string) (*UploadSummary, error) {
	startTime := time.Now()
	logger.L.Info("ProcessUpload START", "source", source)

	parser, err := parsers.GetParser(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	events, err := parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	summary := &UploadSummary{EventsParsed: len(events)}
	if len(events) == 0 {
		return summary, nil
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO events
		(id, date, kind, asset, amount, unit_price, price_currency, fee_amount, fee_currency, platform, description, tx_hash, hash_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.Exec(
			ev.ID, ev.Date.UTC().Format(time.RFC3339), string(ev.Kind), ev.Asset,
			ev.Amount.String(), ev.UnitPrice.String(), ev.PriceCurrency,
			ev.FeeAmount.String(), ev.FeeCurrency, ev.Platform, ev.Description,
			ev.TxHash, ev.HashID,
		)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate event on upload", "hashID", ev.HashID)
				summary.DuplicatesSkipped++
				continue
			}
			return nil, fmt.Errorf("error inserting event %s: %w", ev.ID, err)
		}
		summary.EventsInserted++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing events: %w", err)
	}

	// New events change lot consumption for every later disposal, so all
	// derived state is discarded; the next read rebuilds from scratch.
	s.invalidateCache()

	logger.L.Info("ProcessUpload END", "source", source,
		"parsed", summary.EventsParsed, "inserted", summary.EventsInserted,
		"duplicates", summary.DuplicatesSkipped, "duration", time.Since(startTime))
	return summary, nil
}

func (s *reportServiceImpl) GetLedgers() ([]*models.AssetLedger, error) {
	if cached, found := s.reportCache.Get(ckAllLedgers); found {
		logger.L.Debug("Cache hit for GetLedgers")
		return cached.([]*models.AssetLedger), nil
	}
	logger.L.Info("Cache miss for ledgers, rebuilding from DB")

	events, err := fetchAllEvents()
	if err != nil {
		return nil, err
	}

	ledgerProcessor := processors.NewLedgerProcessor()
	ledgerProcessor.ProcessAll(events)
	ledgers := ledgerProcessor.AllLedgers()

	s.reportCache.Set(ckAllLedgers, ledgers, cache.NoExpiration)
	return ledgers, nil
}

func (s *reportServiceImpl) GetLedger(asset string) (*models.AssetLedger, error) {
	ledgers, err := s.GetLedgers()
	if err != nil {
		return nil, err
	}
	for _, ledger := range ledgers {
		if strings.EqualFold(ledger.Asset, asset) {
			return ledger, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
}

func (s *reportServiceImpl) GetTaxReport(ctx context.Context, year int, method models.CostBasisMethod) (*models.TaxYearReport, error) {
	cacheKey := fmt.Sprintf(ckTaxReport, year, method)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for tax report", "year", year, "method", method)
		return cached.(*models.TaxYearReport), nil
	}
	logger.L.Info("Cache miss for tax report, rebuilding from DB", "year", year, "method", method)

	events, err := fetchAllEvents()
	if err != nil {
		return nil, err
	}

	report, err := s.taxProcessor.BuildSummary(ctx, events, year, method)
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	return report, nil
}

func (s *reportServiceImpl) DeleteAllEvents() error {
	if _, err := database.DB.Exec(`DELETE FROM events`); err != nil {
		return fmt.Errorf("error deleting events: %w", err)
	}
	s.invalidateCache()
	logger.L.Info("Deleted all events")
	return nil
}

func (s *reportServiceImpl) invalidateCache() {
	s.reportCache.Flush()
	logger.L.Info("Invalidated all report caches")
}

// fetchAllEvents loads the full stored event set in date order, ties broken
// by insertion sequence.
func fetchAllEvents() ([]models.Event, error) {
	rows, err := database.DB.Query(`
		SELECT id, date, kind, asset, amount, unit_price, price_currency,
			fee_amount, fee_currency, platform, description, tx_hash, hash_id
		FROM events
		ORDER BY date ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		var dateStr, kindStr, amountStr, priceStr, feeStr string
		if err := rows.Scan(
			&ev.ID, &dateStr, &kindStr, &ev.Asset, &amountStr, &priceStr,
			&ev.PriceCurrency, &feeStr, &ev.FeeCurrency, &ev.Platform,
			&ev.Description, &ev.TxHash, &ev.HashID,
		); err != nil {
			return nil, fmt.Errorf("error scanning event: %w", err)
		}

		ev.Kind = models.EventKind(kindStr)
		if ev.Date, err = time.Parse(time.RFC3339, dateStr); err != nil {
			logger.L.Warn("skipping stored event with invalid date", "eventID", ev.ID, "date", dateStr)
			continue
		}
		if ev.Amount, err = decimal.NewFromString(amountStr); err != nil {
			logger.L.Warn("skipping stored event with invalid amount", "eventID", ev.ID, "amount", amountStr)
			continue
		}
		if ev.UnitPrice, err = decimal.NewFromString(priceStr); err != nil {
			ev.UnitPrice = decimal.Zero
		}
		if ev.FeeAmount, err = decimal.NewFromString(feeStr); err != nil {
			ev.FeeAmount = decimal.Zero
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
