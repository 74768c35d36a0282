// backend/src/parsers/binance/parser.go
package binance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
	"github.com/username/cryptofolio/backend/src/utils"
)

const platformName = "binance"

// operationKinds maps Binance transaction-history operation names onto
// canonical kinds. Unknown operations default to transfers in, matching how
// Binance reports miscellaneous credits.
var operationKinds = map[string]models.EventKind{
	"Deposit":                       models.KindTransferIn,
	"Withdrawal":                    models.KindTransferOut,
	"Buy":                           models.KindBuy,
	"Sell":                          models.KindSell,
	"Fee":                           models.KindFee,
	"Commission History":            models.KindFee,
	"Commission Rebate":             models.KindTransferIn,
	"Distribution":                  models.KindStakingReward,
	"Savings distribution":          models.KindStakingReward,
	"Simple Earn Flexible Interest": models.KindStakingReward,
	"Staking Rewards":               models.KindStakingReward,
	"Transaction Related":           models.KindTransferIn,
}

// quoteAssets are the common quote legs used to split a Binance market
// symbol like BTCUSDT into base and quote.
var quoteAssets = []string{"USDT", "BUSD", "BTC", "ETH", "BNB", "EUR"}

// Parser handles the two CSV layouts Binance exports: trade history
// (Date,Market,Type,Price,Amount,Total,Fee,Fee Coin) and transaction
// history (User_ID,UTC_Time,Account,Operation,Coin,Change,Remark).
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(file io.Reader) ([]models.Event, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	headerLine := strings.ToLower(strings.Join(header, ","))
	var parseRow func(record []string) (models.Event, error)
	switch {
	case strings.Contains(headerLine, "market") && strings.Contains(headerLine, "price"):
		parseRow = p.parseTradeRow
	case strings.Contains(headerLine, "utc_time") && strings.Contains(headerLine, "operation"):
		parseRow = p.parseTransactionRow
	default:
		return nil, fmt.Errorf("unrecognized Binance CSV format: %s", headerLine)
	}

	var events []models.Event
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.L.Warn("Skipping malformed CSV row", "line", line, "error", err)
			continue
		}
		ev, err := parseRow(record)
		if err != nil {
			logger.L.Warn("Skipping unparseable row", "line", line, "error", err)
			continue
		}
		events = append(events, ev)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("no valid events found in file")
	}
	return events, nil
}

// parseTradeRow handles: Date,Market,Type,Price,Amount,Total,Fee,Fee Coin
func (p *Parser) parseTradeRow(record []string) (models.Event, error) {
	if len(record) < 5 {
		return models.Event{}, fmt.Errorf("trade row has %d columns, want at least 5", len(record))
	}

	date, err := utils.ParseEventDate(record[0])
	if err != nil {
		return models.Event{}, err
	}

	market := strings.TrimSpace(record[1])
	side := strings.TrimSpace(record[2])
	price, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid price %q: %w", record[3], err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid amount %q: %w", record[4], err)
	}

	baseAsset, quoteAsset := splitMarket(market)

	kind := models.KindSell
	if strings.Contains(strings.ToLower(side), "buy") {
		kind = models.KindBuy
	}

	ev := models.Event{
		ID:            uuid.NewString(),
		Date:          date,
		Kind:          kind,
		Asset:         baseAsset,
		Amount:        amount.Abs(),
		UnitPrice:     price,
		PriceCurrency: quoteAsset,
		Platform:      platformName,
		Description:   fmt.Sprintf("%s %s", side, market),
		HashID:        utils.HashFields(append([]string{platformName}, record...)...),
	}
	if len(record) >= 8 {
		if fee, err := decimal.NewFromString(strings.TrimSpace(record[6])); err == nil {
			ev.FeeAmount = fee.Abs()
			ev.FeeCurrency = strings.TrimSpace(record[7])
		}
	}
	return ev, nil
}

// parseTransactionRow handles: User_ID,UTC_Time,Account,Operation,Coin,Change,Remark
func (p *Parser) parseTransactionRow(record []string) (models.Event, error) {
	if len(record) < 6 {
		return models.Event{}, fmt.Errorf("transaction row has %d columns, want at least 6", len(record))
	}

	date, err := utils.ParseEventDate(record[1])
	if err != nil {
		return models.Event{}, err
	}

	operation := strings.TrimSpace(record[3])
	coin := strings.ToUpper(strings.TrimSpace(record[4]))
	change, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(record[5]), ",", ""))
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid change %q: %w", record[5], err)
	}
	if coin == "" {
		return models.Event{}, fmt.Errorf("transaction row has no coin")
	}

	kind, ok := operationKinds[operation]
	if !ok {
		logger.L.Warn("Unknown Binance operation, defaulting to transfer in", "operation", operation)
		kind = models.KindTransferIn
	}
	// The operation map cannot see the sign; a negative change on an
	// acquisition-mapped operation is an outflow.
	if change.IsNegative() && kind.IsAcquisition() {
		kind = models.KindTransferOut
	}

	description := operation
	if account := strings.TrimSpace(record[2]); account != "" {
		description = fmt.Sprintf("%s (%s)", operation, account)
	}

	return models.Event{
		ID:          uuid.NewString(),
		Date:        date,
		Kind:        kind,
		Asset:       coin,
		Amount:      change.Abs(),
		Platform:    platformName,
		Description: description,
		HashID:      utils.HashFields(append([]string{platformName}, record...)...),
	}, nil
}

func splitMarket(market string) (string, string) {
	for _, quote := range quoteAssets {
		if strings.HasSuffix(market, quote) && len(market) > len(quote) {
			return market[:len(market)-len(quote)], quote
		}
	}
	// Fallback: split in the middle.
	mid := (len(market) + 1) / 2
	return market[:mid], market[mid:]
}
