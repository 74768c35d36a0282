package processors

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
)

func d(s string) decimal.Decimal {
	dec, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return dec
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func buy(id string, date time.Time, asset, amount, price string) models.Event {
	return models.Event{
		ID: id, Date: date, Kind: models.KindBuy, Asset: asset,
		Amount: d(amount), UnitPrice: d(price), PriceCurrency: "SEK",
	}
}

func sell(id string, date time.Time, asset, amount, price string) models.Event {
	return models.Event{
		ID: id, Date: date, Kind: models.KindSell, Asset: asset,
		Amount: d(amount), UnitPrice: d(price), PriceCurrency: "SEK",
	}
}

func TestFIFOProcessor_OldestLotsConsumedFirst(t *testing.T) {
	p := NewFIFOProcessor()
	results := p.Process([]models.Event{
		buy("b1", day(2023, time.January, 1), "BTC", "2", "100"),
		buy("b2", day(2023, time.February, 1), "BTC", "3", "200"),
		sell("s1", day(2023, time.March, 1), "BTC", "4", "300"),
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 disposal result, got %d", len(results))
	}
	res := results[0]

	if !res.CostBasis.Equal(d("600")) {
		t.Errorf("cost basis = %s, want 600 (2*100 + 2*200)", res.CostBasis)
	}
	if !res.Proceeds.Equal(d("1200")) {
		t.Errorf("proceeds = %s, want 1200", res.Proceeds)
	}
	if !res.Gain.Equal(d("600")) {
		t.Errorf("gain = %s, want 600", res.Gain)
	}
	if !res.Shortfall.IsZero() {
		t.Errorf("shortfall = %s, want 0", res.Shortfall)
	}

	lots := p.OpenLots()
	if len(lots) != 1 {
		t.Fatalf("expected 1 residual lot, got %d", len(lots))
	}
	if !lots[0].Remaining.Equal(d("1")) || !lots[0].UnitCost.Equal(d("200")) {
		t.Errorf("residual lot = %s @ %s, want 1 @ 200", lots[0].Remaining, lots[0].UnitCost)
	}
}

func TestFIFOProcessor_ExactLotEviction(t *testing.T) {
	p := NewFIFOProcessor()
	p.Process([]models.Event{
		buy("b1", day(2023, time.January, 1), "ETH", "5", "10"),
		sell("s1", day(2023, time.January, 2), "ETH", "5", "12"),
	})

	if lots := p.OpenLots(); len(lots) != 0 {
		t.Errorf("expected empty lot queue after exact consumption, got %d lots", len(lots))
	}
}

func TestFIFOProcessor_ShortfallCostedAtZero(t *testing.T) {
	p := NewFIFOProcessor()
	results := p.Process([]models.Event{
		buy("b1", day(2023, time.January, 1), "SOL", "3", "50"),
		sell("s1", day(2023, time.June, 1), "SOL", "5", "80"),
	})

	res := results[0]
	if !res.Shortfall.Equal(d("2")) {
		t.Errorf("shortfall = %s, want 2", res.Shortfall)
	}
	if !res.CostBasis.Equal(d("150")) {
		t.Errorf("cost basis = %s, want 150 (excess units at zero basis)", res.CostBasis)
	}
	if !res.Proceeds.Equal(d("400")) {
		t.Errorf("proceeds = %s, want 400", res.Proceeds)
	}
	if len(p.OpenLots()) != 0 {
		t.Errorf("expected exhausted lot queue")
	}
}

func TestFIFOProcessor_UnpricedAcquisitionOpensNoLot(t *testing.T) {
	p := NewFIFOProcessor()
	p.Process([]models.Event{
		{ID: "t1", Date: day(2023, time.January, 1), Kind: models.KindTransferIn, Asset: "BTC", Amount: d("1")},
	})

	if lots := p.OpenLots(); len(lots) != 0 {
		t.Errorf("transfer without price should open no lot, got %d lots", len(lots))
	}
}

func TestFIFOProcessor_DisposalKindsAllConsumeLots(t *testing.T) {
	tests := []struct {
		name string
		kind models.EventKind
	}{
		{"sell", models.KindSell},
		{"transfer out", models.KindTransferOut},
		{"fee", models.KindFee},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewFIFOProcessor()
			results := p.Process([]models.Event{
				buy("b1", day(2023, time.January, 1), "BTC", "2", "100"),
				{ID: "d1", Date: day(2023, time.February, 1), Kind: tc.kind, Asset: "BTC", Amount: d("1")},
			})

			if len(results) != 1 {
				t.Fatalf("expected 1 disposal result, got %d", len(results))
			}
			if !results[0].CostBasis.Equal(d("100")) {
				t.Errorf("cost basis = %s, want 100", results[0].CostBasis)
			}
			lots := p.OpenLots()
			if len(lots) != 1 || !lots[0].Remaining.Equal(d("1")) {
				t.Errorf("expected 1 unit remaining in lot queue")
			}
		})
	}
}

func TestCostBasisProcessors_WarnOnUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.L
	logger.L = slog.New(slog.NewTextHandler(&buf, nil))
	defer func() { logger.L = prev }()

	bad := models.Event{ID: "x1", Date: day(2023, time.January, 1), Kind: "REBASE", Asset: "BTC", Amount: d("1")}

	if results := NewFIFOProcessor().Process([]models.Event{bad}); len(results) != 0 {
		t.Errorf("FIFO produced %d results for unknown kind, want 0", len(results))
	}
	if results := NewAverageCostProcessor().Process([]models.Event{bad}); len(results) != 0 {
		t.Errorf("average produced %d results for unknown kind, want 0", len(results))
	}

	logged := buf.String()
	if strings.Count(logged, "REBASE") != 2 {
		t.Errorf("expected both processors to warn about the unknown kind, got log output: %s", logged)
	}
}

func TestFIFOProcessor_PartialConsumptionAcrossManyLots(t *testing.T) {
	p := NewFIFOProcessor()
	results := p.Process([]models.Event{
		buy("b1", day(2022, time.January, 1), "ADA", "10", "1"),
		buy("b2", day(2022, time.June, 1), "ADA", "10", "2"),
		buy("b3", day(2023, time.January, 1), "ADA", "10", "3"),
		sell("s1", day(2023, time.June, 1), "ADA", "25", "5"),
	})

	res := results[0]
	// 10*1 + 10*2 + 5*3
	if !res.CostBasis.Equal(d("45")) {
		t.Errorf("cost basis = %s, want 45", res.CostBasis)
	}

	lots := p.OpenLots()
	if len(lots) != 1 {
		t.Fatalf("expected 1 residual lot, got %d", len(lots))
	}
	if !lots[0].Remaining.Equal(d("5")) || !lots[0].UnitCost.Equal(d("3")) {
		t.Errorf("residual lot = %s @ %s, want 5 @ 3", lots[0].Remaining, lots[0].UnitCost)
	}
}
