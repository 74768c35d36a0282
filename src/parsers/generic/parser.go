// backend/src/parsers/generic/parser.go
package generic

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

const platformName = "generic"

// columnAliases maps the canonical column names to the header spellings
// seen in the wild (Koinly-style exports, localized variants included).
var columnAliases = map[string][]string{
	"date":               {"date", "time", "timestamp", "datum"},
	"sent_amount":        {"sent amount", "sent_amount", "debit"},
	"sent_currency":      {"sent currency", "sent_currency", "debit currency"},
	"received_amount":    {"received amount", "received_amount", "credit"},
	"received_currency":  {"received currency", "received_currency", "credit currency"},
	"fee_amount":         {"fee amount", "fee_amount", "fee"},
	"fee_currency":       {"fee currency", "fee_currency"},
	"net_worth_amount":   {"net worth amount", "net_worth_amount", "net worth"},
	"net_worth_currency": {"net worth currency", "net_worth_currency"},
	"label":              {"label", "type", "tag"},
	"description":        {"description", "notes", "comment"},
	"txhash":             {"txhash", "tx hash", "transaction hash", "transaction id"},
}

// labelKinds maps export labels onto canonical kinds. Deposits and
// withdrawals normalize to transfers; the engine has no separate kinds for
// them.
var labelKinds = map[string]models.EventKind{
	"buy":            models.KindBuy,
	"sell":           models.KindSell,
	"deposit":        models.KindTransferIn,
	"withdrawal":     models.KindTransferOut,
	"transfer_in":    models.KindTransferIn,
	"transfer_out":   models.KindTransferOut,
	"staking":        models.KindStakingReward,
	"staking_reward": models.KindStakingReward,
	"reward":         models.KindStakingReward,
	"airdrop":        models.KindAirdrop,
	"mining":         models.KindMining,
	"fee":            models.KindFee,
}

// Parser handles header-mapped CSV exports with sent/received columns. A
// row with both a sent and a received amount is a trade and normalizes into
// two canonical events: a disposal of the sent asset and an acquisition of
// the received one.
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

	indices := mapHeaders(header)
	if _, ok := indices["date"]; !ok {
		return nil, fmt.Errorf("no date column recognized in header")
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

		rowEvents, err := p.parseRecord(record, indices)
		if err != nil {
			logger.L.Warn("Skipping unparseable row", "line", line, "error", err)
			continue
		}
		events = append(events, rowEvents...)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("no valid events found in file")
	}
	return events, nil
}

func (p *Parser) parseRecord(record []string, indices map[string]int) ([]models.Event, error) {
	get := func(column string) string {
		idx, ok := indices[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := utils.ParseEventDate(get("date"))
	if err != nil {
		return nil, err
	}

	sentAmount := parseAmount(get("sent_amount"))
	receivedAmount := parseAmount(get("received_amount"))
	if !sentAmount.IsPositive() && !receivedAmount.IsPositive() {
		return nil, fmt.Errorf("row has neither a sent nor a received amount")
	}

	feeAmount := parseAmount(get("fee_amount"))
	netWorth := parseAmount(get("net_worth_amount"))
	netWorthCurrency := strings.ToUpper(get("net_worth_currency"))
	label := strings.ToLower(strings.ReplaceAll(get("label"), " ", "_"))
	labelKind, hasLabelKind := labelKinds[label]

	rawHash := utils.HashFields(append([]string{platformName}, record...)...)

	base := models.Event{
		Date:        date,
		FeeAmount:   feeAmount,
		FeeCurrency: strings.ToUpper(get("fee_currency")),
		Platform:    platformName,
		Description: get("description"),
		TxHash:      get("txhash"),
	}

	// Trade row: one disposal of the sent asset plus one acquisition of the
	// received asset. Unit prices derive from the row's net worth when
	// present; fees attach to the disposal leg only.
	if sentAmount.IsPositive() && receivedAmount.IsPositive() {
		sell := base
		sell.ID = uuid.NewString()
		sell.Kind = models.KindSell
		sell.Asset = strings.ToUpper(get("sent_currency"))
		sell.Amount = sentAmount
		sell.HashID = rawHash + "-out"

		buy := base
		buy.ID = uuid.NewString()
		buy.Kind = models.KindBuy
		buy.Asset = strings.ToUpper(get("received_currency"))
		buy.Amount = receivedAmount
		buy.FeeAmount = decimal.Zero
		buy.FeeCurrency = ""
		buy.HashID = rawHash + "-in"

		if netWorth.IsPositive() {
			sell.UnitPrice = netWorth.Div(sentAmount)
			sell.PriceCurrency = netWorthCurrency
			buy.UnitPrice = netWorth.Div(receivedAmount)
			buy.PriceCurrency = netWorthCurrency
		}
		return []models.Event{sell, buy}, nil
	}

	ev := base
	ev.ID = uuid.NewString()
	ev.HashID = rawHash

	if sentAmount.IsPositive() {
		ev.Kind = models.KindTransferOut
		ev.Asset = strings.ToUpper(get("sent_currency"))
		ev.Amount = sentAmount
		if hasLabelKind && labelKind.IsDisposal() {
			ev.Kind = labelKind
		}
		if netWorth.IsPositive() {
			ev.UnitPrice = netWorth.Div(sentAmount)
			ev.PriceCurrency = netWorthCurrency
		}
	} else {
		ev.Kind = models.KindTransferIn
		ev.Asset = strings.ToUpper(get("received_currency"))
		ev.Amount = receivedAmount
		if hasLabelKind && labelKind.IsAcquisition() {
			ev.Kind = labelKind
		}
		if netWorth.IsPositive() {
			ev.UnitPrice = netWorth.Div(receivedAmount)
			ev.PriceCurrency = netWorthCurrency
		}
	}

	if ev.Asset == "" {
		return nil, fmt.Errorf("row has an amount but no currency")
	}
	return []models.Event{ev}, nil
}

func mapHeaders(header []string) map[string]int {
	indices := make(map[string]int)
	for column, aliases := range columnAliases {
		for i, h := range header {
			name := strings.ToLower(strings.TrimSpace(h))
			for _, alias := range aliases {
				if strings.Contains(name, alias) {
					indices[column] = i
					break
				}
			}
			if _, ok := indices[column]; ok {
				break
			}
		}
	}
	return indices
}

func parseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Abs()
}
