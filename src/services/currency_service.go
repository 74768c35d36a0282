// backend/src/services/currency_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
)

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// currencyServiceImpl resolves rates through a layered lookup: fresh
// in-memory cache, fresh persistent store, live source fetch, and finally a
// stale cached value rather than failing outright. Freshness is judged
// against the injected clock so TTL behaviour is testable.
type currencyServiceImpl struct {
	baseCurrency string
	ttl          time.Duration
	rateCache    *cache.Cache
	store        RateStore
	sources      []RateSource
	now          func() time.Time
}

// NewCurrencyService builds a converter for the given base currency. The
// store may be nil (no cross-run persistence); a nil clock means time.Now.
// Sources are consulted in order, first one supporting the symbol wins.
func NewCurrencyService(baseCurrency string, ttl time.Duration, store RateStore, now func() time.Time, sources ...RateSource) CurrencyService {
	if now == nil {
		now = time.Now
	}
	return &currencyServiceImpl{
		baseCurrency: strings.ToUpper(baseCurrency),
		ttl:          ttl,
		rateCache:    cache.New(cache.NoExpiration, 0),
		store:        store,
		sources:      sources,
		now:          now,
	}
}

func (s *currencyServiceImpl) GetRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == s.baseCurrency {
		return decimal.NewFromInt(1), nil
	}

	dateStr := date.Format("2006-01-02")
	key := currency + "|" + dateStr

	var stale *cachedRate

	if v, found := s.rateCache.Get(key); found {
		rec := v.(cachedRate)
		if s.fresh(rec.fetchedAt) {
			return rec.rate, nil
		}
		stale = &rec
	}

	// The store is consulted even after a stale memory hit: another run may
	// have persisted a fresher rate since this process cached its copy.
	if s.store != nil {
		rate, fetchedAt, found, err := s.store.GetRate(currency, dateStr)
		if err != nil {
			logger.L.Warn("rate store lookup failed", "currency", currency, "date", dateStr, "error", err)
		} else if found {
			rec := cachedRate{rate: rate, fetchedAt: fetchedAt}
			if s.fresh(fetchedAt) {
				s.rateCache.Set(key, rec, cache.NoExpiration)
				return rate, nil
			}
			if stale == nil || fetchedAt.After(stale.fetchedAt) {
				stale = &rec
			}
		}
	}

	rate, err := s.fetch(ctx, currency, date)
	if err == nil {
		rec := cachedRate{rate: rate, fetchedAt: s.now()}
		s.rateCache.Set(key, rec, cache.NoExpiration)
		if s.store != nil {
			if storeErr := s.store.PutRate(currency, dateStr, rec.rate, rec.fetchedAt); storeErr != nil {
				logger.L.Warn("failed to persist rate", "currency", currency, "date", dateStr, "error", storeErr)
			}
		}
		return rate, nil
	}

	// Fetch failed. An expired cached value is still better than aborting
	// the whole report.
	if stale != nil {
		logger.L.Warn("using expired cached rate after fetch failure", "currency", currency, "date", dateStr, "fetchError", err)
		return stale.rate, nil
	}

	return decimal.Zero, fmt.Errorf("%w: %s on %s: %v", models.ErrRateUnavailable, currency, dateStr, err)
}

func (s *currencyServiceImpl) Convert(ctx context.Context, amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == s.baseCurrency {
		return amount, nil
	}
	rate, err := s.GetRate(ctx, currency, date)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

func (s *currencyServiceImpl) fresh(fetchedAt time.Time) bool {
	return s.now().Sub(fetchedAt) <= s.ttl
}

func (s *currencyServiceImpl) fetch(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	for _, source := range s.sources {
		if !source.Supports(currency) {
			continue
		}
		rate, err := source.FetchRate(ctx, currency, date)
		if err != nil {
			return decimal.Zero, err
		}
		return rate, nil
	}
	return decimal.Zero, fmt.Errorf("no rate source supports currency %s", currency)
}
