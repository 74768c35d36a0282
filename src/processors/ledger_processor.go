// backend/src/processors/ledger_processor.go
package processors

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
)

// LedgerProcessor builds per-asset running ledgers from canonical events.
// State transitions are only valid when events are applied in non-decreasing
// date order; when the underlying event set changes, the whole processor is
// discarded and rebuilt from the merged, re-sorted list (see ProcessAll).
// Reads never recompute: Ledger and AllLedgers are projections of whatever
// has been processed so far.
type LedgerProcessor struct {
	ledgers map[string]*models.AssetLedger
}

func NewLedgerProcessor() *LedgerProcessor {
	return &LedgerProcessor{
		ledgers: make(map[string]*models.AssetLedger),
	}
}

// ProcessAll rebuilds all ledgers from scratch out of the given event set.
// The slice is copied and stably sorted by date, so same-date events keep
// their arrival order. Events violating the canonical contract are skipped
// with a warning; one bad record must not abort a multi-year rebuild.
func (p *LedgerProcessor) ProcessAll(events []models.Event) []models.LedgerEntry {
	p.ledgers = make(map[string]*models.AssetLedger)

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	models.SortEventsByDate(sorted)

	entries := make([]models.LedgerEntry, 0, len(sorted))
	for _, ev := range sorted {
		entry, err := p.ProcessEvent(ev)
		if err != nil {
			logger.L.Warn("skipping event during ledger rebuild", "eventID", ev.ID, "asset", ev.Asset, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// ProcessEvent applies a single event to its asset ledger and returns the
// appended entry. The caller is responsible for feeding events in date order.
func (p *LedgerProcessor) ProcessEvent(ev models.Event) (models.LedgerEntry, error) {
	if !ev.Kind.Valid() {
		return models.LedgerEntry{}, fmt.Errorf("%w: event %s has unknown kind %q", models.ErrUnparseableEvent, ev.ID, ev.Kind)
	}
	if ev.Amount.IsNegative() {
		return models.LedgerEntry{}, fmt.Errorf("%w: event %s has negative amount %s", models.ErrUnparseableEvent, ev.ID, ev.Amount)
	}
	if ev.Date.IsZero() {
		return models.LedgerEntry{}, fmt.Errorf("%w: event %s has no date", models.ErrUnparseableEvent, ev.ID)
	}

	ledger := p.getOrCreateLedger(ev.Asset)

	change := ev.SignedChange()
	previousBalance := ledger.CurrentBalance
	newBalance := previousBalance.Add(change)

	entry := models.LedgerEntry{
		ID:       ev.ID + "-ledger",
		Date:     ev.Date,
		EventID:  ev.ID,
		Asset:    ev.Asset,
		Change:   change,
		Balance:  newBalance,
		Platform: ev.Platform,
		Kind:     ev.Kind,
	}

	// Source data can legitimately drive a balance negative (missing earlier
	// acquisitions); record it instead of failing the pipeline.
	if newBalance.IsNegative() {
		entry.NegativeBalance = true
		logger.L.Warn("disposal drives balance below zero", "asset", ev.Asset, "eventID", ev.ID, "balance", newBalance)
	}

	// Weighted average acquisition cost. Disposals consume existing basis
	// and leave the average of the remaining units untouched.
	if ev.Kind.IsAcquisition() && ev.HasPrice() && newBalance.IsPositive() {
		// An overdrawn balance holds no basis; only actually held units may
		// weight the blended average.
		weightBase := previousBalance
		if weightBase.IsNegative() {
			weightBase = decimal.Zero
		}
		previousValue := weightBase.Mul(ledger.AverageCost)
		acquiredValue := ev.Amount.Mul(ev.UnitPrice)
		ledger.AverageCost = previousValue.Add(acquiredValue).Div(newBalance)
	}
	entry.AverageCost = ledger.AverageCost

	ledger.Entries = append(ledger.Entries, entry)
	ledger.CurrentBalance = newBalance
	return entry, nil
}

// Ledger returns the ledger for one asset, if any events touched it.
func (p *LedgerProcessor) Ledger(asset string) (*models.AssetLedger, bool) {
	ledger, ok := p.ledgers[asset]
	return ledger, ok
}

// AllLedgers returns every asset ledger, ordered by asset symbol.
func (p *LedgerProcessor) AllLedgers() []*models.AssetLedger {
	assets := make([]string, 0, len(p.ledgers))
	for asset := range p.ledgers {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	ledgers := make([]*models.AssetLedger, 0, len(assets))
	for _, asset := range assets {
		ledgers = append(ledgers, p.ledgers[asset])
	}
	return ledgers
}

func (p *LedgerProcessor) getOrCreateLedger(asset string) *models.AssetLedger {
	if ledger, ok := p.ledgers[asset]; ok {
		return ledger
	}
	ledger := &models.AssetLedger{Asset: asset}
	p.ledgers[asset] = ledger
	return ledger
}
