// backend/src/processors/average_processor.go
package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
)

// AverageCostProcessor tracks a single blended average unit cost for one
// asset. Every acquisition with a known price folds into the running total;
// every disposal consumes at the current average and re-bases the running
// cost so the average of the remaining units is preserved. When the running
// amount hits zero the state is fully re-based to zero, so a later
// re-acquisition starts a fresh average.
type AverageCostProcessor struct {
	state models.AverageCostState
}

func NewAverageCostProcessor() *AverageCostProcessor {
	return &AverageCostProcessor{}
}

// Process walks one asset's date-ordered events and yields a result per
// disposal.
func (p *AverageCostProcessor) Process(events []models.Event) []models.DisposalResult {
	var results []models.DisposalResult
	for _, ev := range events {
		switch {
		case ev.Kind.IsAcquisition():
			if ev.HasPrice() {
				p.state.RunningCost = p.state.RunningCost.Add(ev.Amount.Mul(ev.UnitPrice))
				p.state.RunningAmount = p.state.RunningAmount.Add(ev.Amount)
			}
		case ev.Kind.IsDisposal():
			results = append(results, p.dispose(ev))
		default:
			logger.L.Warn("skipping event with unknown kind during cost basis matching", "eventID", ev.ID, "asset", ev.Asset, "kind", ev.Kind)
		}
	}
	return results
}

func (p *AverageCostProcessor) dispose(ev models.Event) models.DisposalResult {
	averageCost := decimal.Zero
	costBasis := decimal.Zero
	shortfall := decimal.Zero

	// Guard: disposing with nothing held yields a zero cost basis instead
	// of a division by zero.
	if p.state.RunningAmount.IsPositive() {
		averageCost = p.state.RunningCost.Div(p.state.RunningAmount)
		costBasis = decimal.Min(ev.Amount, p.state.RunningAmount).Mul(averageCost)
	}

	// Quantity beyond the held amount has no recorded acquisition and is
	// costed at zero basis.
	if ev.Amount.GreaterThan(p.state.RunningAmount) {
		shortfall = ev.Amount.Sub(p.state.RunningAmount)
	}

	remaining := p.state.RunningAmount.Sub(ev.Amount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	p.state.RunningAmount = remaining
	p.state.RunningCost = remaining.Mul(averageCost)

	proceeds := decimal.Zero
	if ev.HasPrice() {
		proceeds = ev.Amount.Mul(ev.UnitPrice)
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
		Shortfall:     shortfall,
	}
}

// State returns the residual running inventory state.
func (p *AverageCostProcessor) State() models.AverageCostState {
	return p.state
}
