// backend/src/models/tax.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostBasisMethod selects how disposals are matched against acquisitions.
type CostBasisMethod string

const (
	MethodFIFO        CostBasisMethod = "FIFO"
	MethodAverageCost CostBasisMethod = "AVERAGE_COST"
)

// Valid reports whether the method is supported.
func (m CostBasisMethod) Valid() bool {
	return m == MethodFIFO || m == MethodAverageCost
}

// Lot is a discrete acquired quantity of an asset at a specific unit cost,
// consumed oldest-first under FIFO. A lot whose Remaining reaches zero is
// evicted from the queue.
type Lot struct {
	AcquisitionDate time.Time       `json:"acquisition_date"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Remaining       decimal.Decimal `json:"remaining"`
}

// AverageCostState is the running inventory state for the average cost
// method. Average unit cost = RunningCost / RunningAmount while
// RunningAmount is positive, undefined otherwise.
type AverageCostState struct {
	RunningAmount decimal.Decimal `json:"running_amount"`
	RunningCost   decimal.Decimal `json:"running_cost"`
}

// DisposalResult records the outcome of matching one disposal event against
// the open inventory. Gain is always Proceeds - CostBasis. Shortfall is the
// portion of the disposed amount that no open inventory covered and which
// was therefore costed at zero basis.
type DisposalResult struct {
	EventID       string          `json:"event_id"`
	Date          time.Time       `json:"date"`
	Asset         string          `json:"asset"`
	Kind          EventKind       `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Gain          decimal.Decimal `json:"gain"`
	PriceCurrency string          `json:"price_currency"`
	Shortfall     decimal.Decimal `json:"shortfall"`
}

// TaxYearSummary aggregates all assets for one fiscal year, denominated in
// the base (reporting) currency.
type TaxYearSummary struct {
	RealizedGains   decimal.Decimal `json:"realized_gains"`
	RealizedLosses  decimal.Decimal `json:"realized_losses"`
	Proceeds        decimal.Decimal `json:"proceeds"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	Fees            decimal.Decimal `json:"fees"`
	OtherIncome     decimal.Decimal `json:"other_income"`
	NetCapitalGains decimal.Decimal `json:"net_capital_gains"`
	TaxableAmount   decimal.Decimal `json:"taxable_amount"`
}

// TaxReportRow is one flat, export-ready line of the report: one asset, one
// year. Suitable for any CSV/tabular writer downstream.
type TaxReportRow struct {
	Asset         string          `json:"asset"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	RealizedGain  decimal.Decimal `json:"realized_gain"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
}

// TaxYearReport is the full output of a tax report build for one year.
type TaxYearReport struct {
	Year         int              `json:"year"`
	Method       CostBasisMethod  `json:"method"`
	BaseCurrency string           `json:"base_currency"`
	Summary      TaxYearSummary   `json:"summary"`
	Rows         []TaxReportRow   `json:"rows"`
	Disposals    []DisposalResult `json:"disposals"`
}
