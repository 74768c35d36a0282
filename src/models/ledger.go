// backend/src/models/ledger.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one append-only row in an asset's running ledger.
// Change is signed; Balance is the running balance after applying it.
// AverageCost is the asset's weighted average acquisition cost as of this
// entry.
type LedgerEntry struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	EventID         string          `json:"event_id"`
	Asset           string          `json:"asset"`
	Change          decimal.Decimal `json:"change"`
	Balance         decimal.Decimal `json:"balance"`
	AverageCost     decimal.Decimal `json:"average_cost"`
	Platform        string          `json:"platform"`
	Kind            EventKind       `json:"kind"`
	NegativeBalance bool            `json:"negative_balance,omitempty"`
}

// AssetLedger owns the ordered entry history and running state for one asset.
// CurrentBalance always equals the sum of Change over Entries; AverageCost is
// the weighted mean acquisition price of the units currently held and is only
// meaningful while the balance is positive.
type AssetLedger struct {
	Asset          string          `json:"asset"`
	Entries        []LedgerEntry   `json:"entries"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	AverageCost    decimal.Decimal `json:"average_cost"`
}
