package processors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/models"
)

type fakeConverter struct {
	rates map[string]decimal.Decimal
	err   error
	calls int
}

func (f *fakeConverter) Convert(_ context.Context, amount decimal.Decimal, currency string, _ time.Time) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	rate, ok := f.rates[currency]
	if !ok {
		return decimal.Zero, models.ErrRateUnavailable
	}
	return amount.Mul(rate), nil
}

func newTestProcessor(conv CurrencyConverter) *TaxReportProcessor {
	return NewTaxReportProcessor(conv, "SEK", d("0.30"))
}

func TestTaxReportProcessor_PriorYearLotsCarryForward(t *testing.T) {
	conv := &fakeConverter{}
	p := newTestProcessor(conv)

	events := []models.Event{
		buy("b1", day(2022, time.November, 1), "BTC", "2", "100"),
		sell("s1", day(2023, time.March, 1), "BTC", "2", "300"),
	}

	report, err := p.BuildSummary(context.Background(), events, 2023, models.MethodFIFO)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Summary.Proceeds.Equal(d("600")) {
		t.Errorf("proceeds = %s, want 600", report.Summary.Proceeds)
	}
	if !report.Summary.CostBasis.Equal(d("200")) {
		t.Errorf("cost basis = %s, want 200 (lot opened in prior year)", report.Summary.CostBasis)
	}
	if !report.Summary.RealizedGains.Equal(d("400")) {
		t.Errorf("realized gains = %s, want 400", report.Summary.RealizedGains)
	}
	if len(report.Disposals) != 1 {
		t.Errorf("expected 1 disposal in report, got %d", len(report.Disposals))
	}
}

func TestTaxReportProcessor_OnlyTargetYearDisposalsCount(t *testing.T) {
	p := newTestProcessor(&fakeConverter{})

	events := []models.Event{
		buy("b1", day(2022, time.January, 1), "BTC", "4", "100"),
		sell("s1", day(2022, time.June, 1), "BTC", "1", "200"),
		sell("s2", day(2023, time.June, 1), "BTC", "1", "300"),
		sell("s3", day(2024, time.June, 1), "BTC", "1", "400"),
	}

	report, err := p.BuildSummary(context.Background(), events, 2023, models.MethodFIFO)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Disposals) != 1 {
		t.Fatalf("expected 1 in-year disposal, got %d", len(report.Disposals))
	}
	if report.Disposals[0].EventID != "s2" {
		t.Errorf("disposal = %s, want s2", report.Disposals[0].EventID)
	}
	if !report.Summary.Proceeds.Equal(d("300")) {
		t.Errorf("proceeds = %s, want 300", report.Summary.Proceeds)
	}
}

func TestTaxReportProcessor_GainsAndLossesSplit(t *testing.T) {
	p := newTestProcessor(&fakeConverter{})

	events := []models.Event{
		buy("b1", day(2023, time.January, 1), "BTC", "1", "100"),
		sell("s1", day(2023, time.March, 1), "BTC", "1", "250"),
		buy("b2", day(2023, time.April, 1), "ETH", "1", "400"),
		sell("s2", day(2023, time.May, 1), "ETH", "1", "300"),
	}

	report, err := p.BuildSummary(context.Background(), events, 2023, models.MethodAverageCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Summary.RealizedGains.Equal(d("150")) {
		t.Errorf("realized gains = %s, want 150", report.Summary.RealizedGains)
	}
	if !report.Summary.RealizedLosses.Equal(d("100")) {
		t.Errorf("realized losses = %s, want 100 (stored positive)", report.Summary.RealizedLosses)
	}
	if !report.Summary.NetCapitalGains.Equal(d("50")) {
		t.Errorf("net capital gains = %s, want 50", report.Summary.NetCapitalGains)
	}
	if !report.Summary.TaxableAmount.Equal(d("15")) {
		t.Errorf("taxable amount = %s, want 15 (30%% of net row gains)", report.Summary.TaxableAmount)
	}
}

func TestTaxReportProcessor_NonSellDisposalsNotTaxed(t *testing.T) {
	p := newTestProcessor(&fakeConverter{})

	events := []models.Event{
		buy("b1", day(2023, time.January, 1), "BTC", "2", "100"),
		{ID: "w1", Date: day(2023, time.March, 1), Kind: models.KindTransferOut, Asset: "BTC", Amount: d("1"), UnitPrice: d("500"), PriceCurrency: "SEK"},
	}

	report, err := p.BuildSummary(context.Background(), events, 2023, models.MethodFIFO)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The transfer still consumes a lot but realizes nothing.
	if len(report.Disposals) != 1 {
		t.Fatalf("expected transfer in disposal list, got %d entries", len(report.Disposals))
	}
	if !report.Summary.Proceeds.IsZero() || !report.Summary.RealizedGains.IsZero() {
		t.Errorf("transfer out must not contribute proceeds or gains")
	}
	if len(report.Rows) != 0 {
		t.Errorf("expected no rows without sales, got %d", len(report.Rows))
	}
}

func TestTaxReportProcessor_IncomeAndFees(t *testing.T) {
	p := newTestProcessor(&fakeConverter{})

	events := []models.Event{
		{ID: "r1", Date: day(2023, time.February, 1), Kind: models.KindStakingReward, Asset: "ETH", Amount: d("2"), UnitPrice: d("50"), PriceCurrency: "SEK"},
		buy("b1", day(2023, time.March, 1), "BTC", "1", "100"),
		sell("s2", day(2023, time.April, 1), "BTC", "1", "200"),
	}
	events[2].FeeAmount = d("10")
	events[2].FeeCurrency = "SEK"

	report, err := p.BuildSummary(context.Background(), events, 2023, models.MethodFIFO)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Summary.OtherIncome.Equal(d("100")) {
		t.Errorf("other income = %s, want 100", report.Summary.OtherIncome)
	}
	if !report.Summary.Fees.Equal(d("10")) {
		t.Errorf("fees = %s, want 10", report.Summary.Fees)
	}
	if !report.Summary.NetCapitalGains.Equal(d("90")) {
		t.Errorf("net capital gains = %s, want 90 (gain 100 minus fees 10)", report.Summary.NetCapitalGains)
	}
}

func TestTaxReportProcessor_ConvertsForeignCurrencyAtEventDate(t *testing.T) {
	conv := &fakeConverter{rates: map[string]decimal.Decimal{"USD": d("10")}}
	p := newTestProcessor(conv)

	events := []models.Event{
		{ID: "b1", Date: day(2023, time.January, 1), Kind: models.KindBuy, Asset: "BTC", Amount: d("1"), UnitPrice: d("100"), PriceCurrency: "USD"},
		{ID: "s1", Date: day(2023, time.June, 1), Kind: models.KindSell, Asset: "BTC", Amount: d("1"), UnitPrice: d("150"), PriceCurrency: "USD"},
	}

	report, err := p.BuildSummary(context.Background(), events, 2023, models.MethodFIFO)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Summary.Proceeds.Equal(d("1500")) {
		t.Errorf("proceeds = %s, want 1500 SEK", report.Summary.Proceeds)
	}
	if !report.Summary.CostBasis.Equal(d("1000")) {
		t.Errorf("cost basis = %s, want 1000 SEK", report.Summary.CostBasis)
	}
	if conv.calls == 0 {
		t.Error("expected converter to be consulted for USD amounts")
	}
}

func TestTaxReportProcessor_MixedCurrencyCostBasis(t *testing.T) {
	conv := &fakeConverter{rates: map[string]decimal.Decimal{"USDT": d("10")}}
	p := newTestProcessor(conv)

	// Acquired against USDT, disposed against SEK. The basis must be
	// converted at the acquisition's own date, not re-labeled into the
	// disposal's currency.
	events := []models.Event{
		{ID: "b1", Date: day(2023, time.January, 1), Kind: models.KindBuy, Asset: "BTC", Amount: d("1"), UnitPrice: d("100"), PriceCurrency: "USDT"},
		sell("s1", day(2023, time.June, 1), "BTC", "1", "1000"),
	}

	for _, method := range []models.CostBasisMethod{models.MethodFIFO, models.MethodAverageCost} {
		t.Run(string(method), func(t *testing.T) {
			report, err := p.BuildSummary(context.Background(), events, 2023, method)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !report.Summary.CostBasis.Equal(d("1000")) {
				t.Errorf("cost basis = %s, want 1000 SEK (100 USDT at rate 10)", report.Summary.CostBasis)
			}
			if !report.Summary.Proceeds.Equal(d("1000")) {
				t.Errorf("proceeds = %s, want 1000 SEK", report.Summary.Proceeds)
			}
			if !report.Summary.RealizedGains.IsZero() || !report.Summary.RealizedLosses.IsZero() {
				t.Errorf("gains/losses = %s/%s, want 0/0", report.Summary.RealizedGains, report.Summary.RealizedLosses)
			}
		})
	}
}

func TestTaxReportProcessor_MissingRateIsFatal(t *testing.T) {
	conv := &fakeConverter{err: models.ErrRateUnavailable}
	p := newTestProcessor(conv)

	events := []models.Event{
		{ID: "b1", Date: day(2023, time.January, 1), Kind: models.KindBuy, Asset: "BTC", Amount: d("1"), UnitPrice: d("100"), PriceCurrency: "USD"},
		{ID: "s1", Date: day(2023, time.June, 1), Kind: models.KindSell, Asset: "BTC", Amount: d("1"), UnitPrice: d("150"), PriceCurrency: "USD"},
	}

	_, err := p.BuildSummary(context.Background(), events, 2023, models.MethodFIFO)
	if !errors.Is(err, models.ErrRateUnavailable) {
		t.Fatalf("error = %v, want ErrRateUnavailable", err)
	}
}

func TestTaxReportProcessor_UnsupportedMethod(t *testing.T) {
	p := newTestProcessor(&fakeConverter{})
	_, err := p.BuildSummary(context.Background(), nil, 2023, models.CostBasisMethod("HIFO"))
	if !errors.Is(err, models.ErrUnsupportedMethod) {
		t.Fatalf("error = %v, want ErrUnsupportedMethod", err)
	}
}

func TestTaxReportProcessor_RowOrdering(t *testing.T) {
	p := newTestProcessor(&fakeConverter{})

	events := []models.Event{
		buy("b1", day(2023, time.January, 1), "ADA", "10", "5"),
		sell("s1", day(2023, time.June, 1), "ADA", "10", "6"),
		buy("b2", day(2023, time.January, 1), "BTC", "1", "500"),
		sell("s2", day(2023, time.June, 1), "BTC", "1", "600"),
		buy("b3", day(2023, time.January, 1), "ETH", "2", "25"),
		sell("s3", day(2023, time.June, 1), "ETH", "2", "30"),
	}

	report, err := p.BuildSummary(context.Background(), events, 2023, models.MethodFIFO)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// BTC basis 500, then ADA and ETH tie at 50 and order alphabetically.
	want := []string{"BTC", "ADA", "ETH"}
	if len(report.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(report.Rows))
	}
	for i, asset := range want {
		if report.Rows[i].Asset != asset {
			t.Errorf("row %d = %s, want %s", i, report.Rows[i].Asset, asset)
		}
	}
}
