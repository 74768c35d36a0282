package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RateStore persists exchange rates in the rate_cache table so a restart
// does not re-fetch rates the previous run already resolved. Values are
// idempotent per currency/date pair, so last-write-wins upserts are safe.
type RateStore struct {
	db *sql.DB
}

func NewRateStore(db *sql.DB) *RateStore {
	return &RateStore{db: db}
}

func (s *RateStore) GetRate(currency, date string) (decimal.Decimal, time.Time, bool, error) {
	var rateStr string
	var fetchedAt time.Time

	err := s.db.QueryRow(
		`SELECT rate, fetched_at FROM rate_cache WHERE currency = ? AND date = ?`,
		currency, date,
	).Scan(&rateStr, &fetchedAt)
	if err == sql.ErrNoRows {
		return decimal.Zero, time.Time{}, false, nil
	}
	if err != nil {
		return decimal.Zero, time.Time{}, false, fmt.Errorf("querying rate_cache for %s/%s: %w", currency, date, err)
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, time.Time{}, false, fmt.Errorf("invalid stored rate for %s/%s: %w", currency, date, err)
	}
	return rate, fetchedAt, true, nil
}

func (s *RateStore) PutRate(currency, date string, rate decimal.Decimal, fetchedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO rate_cache (currency, date, rate, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(currency, date) DO UPDATE SET rate = excluded.rate, fetched_at = excluded.fetched_at`,
		currency, date, rate.String(), fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("storing rate for %s/%s: %w", currency, date, err)
	}
	return nil
}
