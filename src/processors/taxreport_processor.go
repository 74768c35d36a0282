// backend/src/processors/taxreport_processor.go
package processors

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
)

// TaxReportProcessor aggregates realized gains, losses, fees and other
// income for one fiscal year. For every asset the full event history up to
// and including the report year is replayed through a fresh cost basis
// processor, so lots and averages opened in earlier years are consumed
// correctly; only disposals dated inside the target year contribute to the
// summary.
//
// All monetary amounts are converted into the base reporting currency at
// the rate of the event's own date, never the report-generation date. Unit
// prices are converted before events enter the cost basis state, so a basis
// blended from acquisitions quoted in different currencies stays correct
// when the disposal is quoted in yet another one.
type TaxReportProcessor struct {
	converter    CurrencyConverter
	baseCurrency string
	taxRate      decimal.Decimal
}

func NewTaxReportProcessor(converter CurrencyConverter, baseCurrency string, taxRate decimal.Decimal) *TaxReportProcessor {
	return &TaxReportProcessor{
		converter:    converter,
		baseCurrency: baseCurrency,
		taxRate:      taxRate,
	}
}

// BuildSummary computes the tax year report for the given method. A missing
// exchange rate is fatal to the whole build and is surfaced with enough
// context (asset, year, date) to retry or fix source data.
func (p *TaxReportProcessor) BuildSummary(ctx context.Context, events []models.Event, year int, method models.CostBasisMethod) (*models.TaxYearReport, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedMethod, method)
	}

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	models.SortEventsByDate(sorted)

	// Partition by asset; the stable sort above keeps per-asset order.
	byAsset := make(map[string][]models.Event)
	for _, ev := range sorted {
		if ev.Date.Year() > year {
			continue
		}
		byAsset[ev.Asset] = append(byAsset[ev.Asset], ev)
	}

	assets := make([]string, 0, len(byAsset))
	for asset := range byAsset {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	report := &models.TaxYearReport{
		Year:         year,
		Method:       method,
		BaseCurrency: p.baseCurrency,
	}
	summary := &report.Summary

	for _, asset := range assets {
		assetEvents := byAsset[asset]

		// Re-denominate every priced event into the base currency at its
		// own date. From here on proceeds, cost basis and income are all in
		// the base currency and never need a second conversion.
		for i := range assetEvents {
			ev := assetEvents[i]
			if !ev.HasPrice() || ev.PriceCurrency == "" || ev.PriceCurrency == p.baseCurrency {
				continue
			}
			converted, err := p.converter.Convert(ctx, ev.UnitPrice, ev.PriceCurrency, ev.Date)
			if err != nil {
				return nil, fmt.Errorf("tax report %d: asset %s: unit price on %s: %w", year, asset, ev.Date.Format("2006-01-02"), err)
			}
			assetEvents[i].UnitPrice = converted
			assetEvents[i].PriceCurrency = p.baseCurrency
		}

		proc, err := NewCostBasisProcessor(method)
		if err != nil {
			return nil, err
		}
		results := proc.Process(assetEvents)

		row := models.TaxReportRow{Asset: asset}
		rowHasSales := false

		for _, res := range results {
			if res.Date.Year() != year {
				continue
			}
			report.Disposals = append(report.Disposals, res)

			// Transfers out and paid fees consume inventory but are not
			// taxable sales; only sells realize capital gains.
			if res.Kind != models.KindSell {
				continue
			}

			proceeds := res.Proceeds
			costBasis := res.CostBasis
			gain := proceeds.Sub(costBasis)

			if gain.IsPositive() {
				summary.RealizedGains = summary.RealizedGains.Add(gain)
			} else {
				summary.RealizedLosses = summary.RealizedLosses.Add(gain.Neg())
			}
			summary.Proceeds = summary.Proceeds.Add(proceeds)
			summary.CostBasis = summary.CostBasis.Add(costBasis)

			row.Proceeds = row.Proceeds.Add(proceeds)
			row.CostBasis = row.CostBasis.Add(costBasis)
			row.RealizedGain = row.RealizedGain.Add(gain)
			rowHasSales = true

			if res.Shortfall.IsPositive() {
				logger.L.Warn("tax report includes zero-basis shortfall", "year", year, "asset", asset, "eventID", res.EventID, "shortfall", res.Shortfall)
			}
		}

		for _, ev := range assetEvents {
			if ev.Date.Year() != year {
				continue
			}
			if ev.Kind.IsIncome() && ev.HasPrice() {
				summary.OtherIncome = summary.OtherIncome.Add(ev.Amount.Mul(ev.UnitPrice))
			}
			if ev.FeeAmount.IsPositive() {
				feeCurrency := ev.FeeCurrency
				if feeCurrency == "" {
					feeCurrency = ev.Asset
				}
				fee, err := p.convert(ctx, ev.FeeAmount, feeCurrency, ev.Date)
				if err != nil {
					return nil, fmt.Errorf("tax report %d: asset %s: fee on %s: %w", year, asset, ev.Date.Format("2006-01-02"), err)
				}
				summary.Fees = summary.Fees.Add(fee)
			}
		}

		if rowHasSales {
			row.TaxableAmount = row.RealizedGain.Mul(p.taxRate)
			summary.TaxableAmount = summary.TaxableAmount.Add(row.TaxableAmount)
			report.Rows = append(report.Rows, row)
		}
	}

	summary.NetCapitalGains = summary.RealizedGains.
		Sub(summary.RealizedLosses).
		Sub(summary.Fees)

	// Stable export ordering: largest consumed cost basis first, ties by
	// asset symbol.
	sort.SliceStable(report.Rows, func(i, j int) bool {
		if !report.Rows[i].CostBasis.Equal(report.Rows[j].CostBasis) {
			return report.Rows[i].CostBasis.GreaterThan(report.Rows[j].CostBasis)
		}
		return report.Rows[i].Asset < report.Rows[j].Asset
	})

	return report, nil
}

func (p *TaxReportProcessor) convert(ctx context.Context, amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, error) {
	if currency == "" || currency == p.baseCurrency {
		return amount, nil
	}
	return p.converter.Convert(ctx, amount, currency, date)
}
