// backend/src/processors/fifo_processor.go
package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
)

// FIFOProcessor tracks open purchase lots for a single asset and matches
// disposals against them oldest-first. Acquisitions without a known unit
// price open no lot; the queue head is always the oldest lot still holding
// a positive remainder.
type FIFOProcessor struct {
	lots []*models.Lot
}

func NewFIFOProcessor() *FIFOProcessor {
	return &FIFOProcessor{}
}

// Process walks one asset's date-ordered events, opening lots on
// acquisitions and consuming them on disposals.
func (p *FIFOProcessor) Process(events []models.Event) []models.DisposalResult {
	var results []models.DisposalResult
	for _, ev := range events {
		switch {
		case ev.Kind.IsAcquisition():
			if ev.HasPrice() {
				p.lots = append(p.lots, &models.Lot{
					AcquisitionDate: ev.Date,
					UnitCost:        ev.UnitPrice,
					Remaining:       ev.Amount,
				})
			}
		case ev.Kind.IsDisposal():
			results = append(results, p.dispose(ev))
		default:
			logger.L.Warn("skipping event with unknown kind during cost basis matching", "eventID", ev.ID, "asset", ev.Asset, "kind", ev.Kind)
		}
	}
	return results
}

func (p *FIFOProcessor) dispose(ev models.Event) models.DisposalResult {
	toConsume := ev.Amount
	costBasis := decimal.Zero

	for toConsume.IsPositive() && len(p.lots) > 0 {
		lot := p.lots[0]
		consumed := decimal.Min(toConsume, lot.Remaining)
		costBasis = costBasis.Add(consumed.Mul(lot.UnitCost))
		lot.Remaining = lot.Remaining.Sub(consumed)
		toConsume = toConsume.Sub(consumed)
		if lot.Remaining.IsZero() {
			p.lots = p.lots[1:]
		}
	}

	proceeds := decimal.Zero
	if ev.HasPrice() {
		proceeds = ev.Amount.Mul(ev.UnitPrice)
	}

	// Any quantity left over after the queue is exhausted was sold without a
	// recorded acquisition. It is costed at zero basis and reported as a
	// shortfall rather than treated as an error.
	if toConsume.IsPositive() {
		logger.L.Warn("disposal exceeds open lots, excess costed at zero basis",
			"asset", ev.Asset, "eventID", ev.ID, "shortfall", toConsume)
	}

	return models.DisposalResult{
		EventID:       ev.ID,
		Date:          ev.Date,
		Asset:         ev.Asset,
		Kind:          ev.Kind,
		Amount:        ev.Amount,
		Proceeds:      proceeds,
		CostBasis:     costBasis,
		Gain:          proceeds.Sub(costBasis),
		PriceCurrency: ev.PriceCurrency,
		Shortfall:     toConsume,
	}
}

// OpenLots returns copies of the residual lot queue, oldest first.
func (p *FIFOProcessor) OpenLots() []models.Lot {
	lots := make([]models.Lot, 0, len(p.lots))
	for _, lot := range p.lots {
		lots = append(lots, *lot)
	}
	return lots
}
