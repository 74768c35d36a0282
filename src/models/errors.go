// backend/src/models/errors.go
package models

import "errors"

var (
	// ErrUnparseableEvent marks an event that violates the canonical
	// contract (unknown kind, negative amount, zero date). The engines skip
	// such events with a warning instead of aborting a whole rebuild.
	ErrUnparseableEvent = errors.New("unparseable event")

	// ErrRateUnavailable means no live and no cached exchange rate exists
	// for a currency/date pair. It is fatal to the report aggregation that
	// needed the rate.
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// ErrUnsupportedMethod marks a cost basis method outside the closed set.
	ErrUnsupportedMethod = errors.New("unsupported cost basis method")
)
