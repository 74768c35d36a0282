// backend/src/processors/interfaces.go
package processors

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/models"
)

// CostBasisProcessor matches one asset's chronologically ordered events
// against its open inventory and yields one DisposalResult per disposal.
// A processor instance holds the mutable inventory state for exactly one
// asset and one pass; it must not be shared across assets or reused.
type CostBasisProcessor interface {
	Process(events []models.Event) []models.DisposalResult
}

// NewCostBasisProcessor returns a fresh processor for the given method.
func NewCostBasisProcessor(method models.CostBasisMethod) (CostBasisProcessor, error) {
	switch method {
	case models.MethodFIFO:
		return NewFIFOProcessor(), nil
	case models.MethodAverageCost:
		return NewAverageCostProcessor(), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedMethod, method)
	}
}

// CurrencyConverter converts an amount denominated in some currency into the
// base reporting currency at the rate of the given date. Implementations may
// perform blocking network I/O; an empty currency means the amount is
// already denominated in the reporting currency.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, error)
}
