// backend/src/models/event.go
package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind is the closed set of canonical event classifications. Parsers are
// responsible for mapping whatever loosely-typed operation names a platform
// export uses onto one of these; the engine never sees raw strings.
type EventKind string

const (
	KindBuy           EventKind = "BUY"
	KindSell          EventKind = "SELL"
	KindTransferIn    EventKind = "TRANSFER_IN"
	KindTransferOut   EventKind = "TRANSFER_OUT"
	KindStakingReward EventKind = "STAKING_REWARD"
	KindAirdrop       EventKind = "AIRDROP"
	KindMining        EventKind = "MINING"
	KindFee           EventKind = "FEE"
)

// IsAcquisition reports whether the kind adds units to a holding.
func (k EventKind) IsAcquisition() bool {
	switch k {
	case KindBuy, KindTransferIn, KindStakingReward, KindAirdrop, KindMining:
		return true
	}
	return false
}

// IsDisposal reports whether the kind removes units from a holding.
func (k EventKind) IsDisposal() bool {
	switch k {
	case KindSell, KindTransferOut, KindFee:
		return true
	}
	return false
}

// IsIncome reports whether the kind counts as non-disposal taxable income.
func (k EventKind) IsIncome() bool {
	switch k {
	case KindStakingReward, KindAirdrop, KindMining:
		return true
	}
	return false
}

// Valid reports whether the kind is a member of the canonical set.
func (k EventKind) Valid() bool {
	return k.IsAcquisition() || k.IsDisposal()
}

// Event is the unified, immutable representation of a single financial event.
// Amount is always a non-negative magnitude; direction is derived from Kind.
// UnitPrice is denominated in PriceCurrency and is considered unknown when it
// is not strictly positive.
type Event struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Kind          EventKind       `json:"kind"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	PriceCurrency string          `json:"price_currency"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	FeeCurrency   string          `json:"fee_currency"`
	Platform      string          `json:"platform"`
	Description   string          `json:"description"`
	TxHash        string          `json:"tx_hash,omitempty"`
	HashID        string          `json:"hash_id"`
}

// HasPrice reports whether the event carries a usable unit price.
func (e Event) HasPrice() bool {
	return e.UnitPrice.IsPositive()
}

// SignedChange returns the balance delta this event causes for its asset.
func (e Event) SignedChange() decimal.Decimal {
	if e.Kind.IsDisposal() {
		return e.Amount.Neg()
	}
	return e.Amount
}

// SortEventsByDate orders events by date ascending. The sort is stable so
// that same-date events keep their original arrival sequence, which keeps lot
// consumption deterministic across rebuilds.
func SortEventsByDate(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}
