package storeConverter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/model/storeModel"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingFields = errors.New("document must contain assets and transactions")
	ErrInvalidRecord = errors.New("invalid record")
)

var transactionTypes = map[string]model.TransactionType{
	"buy":  model.Buy,
	"sell": model.Sell,
	"买入":   model.Buy,
	"卖出":   model.Sell,
}

type document struct {
	Assets       []model.Asset       `json:"assets"`
	Transactions []model.Transaction `json:"transactions"`
	ExchangeRate decimal.Decimal     `json:"exchangeRate"`
	LastUpdate   *time.Time          `json:"lastUpdate,omitempty"`
	NextID       int64               `json:"nextId"`
}

// Encode renders the state as the indented JSON document used for storage and export.
func Encode(state model.State) ([]byte, error) {
	doc := document{
		Assets:       state.Assets,
		Transactions: state.Transactions,
		ExchangeRate: state.ExchangeRate,
		NextID:       state.NextID,
	}
	if doc.Assets == nil {
		doc.Assets = []model.Asset{}
	}
	if doc.Transactions == nil {
		doc.Transactions = []model.Transaction{}
	}
	if !state.LastUpdate.IsZero() {
		lastUpdate := state.LastUpdate
		doc.LastUpdate = &lastUpdate
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses a stored or imported document. strict demands both the assets and
// the transactions field; otherwise a bare asset array from older versions is
// accepted as well.
func Decode(data []byte, strict bool) (model.State, error) {
	data = bytes.TrimSpace(data)

	if !strict && bytes.HasPrefix(data, []byte("[")) {
		return decodeParts(data, nil, nil, nil, 0)
	}

	doc := storeModel.Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.State{}, fmt.Errorf("decode document: %w", err)
	}

	if strict && (isAbsent(doc.Assets) || isAbsent(doc.Transactions)) {
		return model.State{}, ErrMissingFields
	}

	return decodeParts(doc.Assets, doc.Transactions, doc.ExchangeRate, doc.LastUpdate, doc.NextID)
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeParts(rawAssets, rawTxs json.RawMessage, rate *decimal.Decimal, lastUpdate *time.Time, nextID int64) (model.State, error) {
	state := model.State{
		Assets:       []model.Asset{},
		Transactions: []model.Transaction{},
		ExchangeRate: model.DefaultExchangeRate,
	}
	if rate != nil && rate.IsPositive() {
		state.ExchangeRate = *rate
	}
	if lastUpdate != nil {
		state.LastUpdate = *lastUpdate
	}

	var assets []storeModel.Asset
	if !isAbsent(rawAssets) {
		if err := json.Unmarshal(rawAssets, &assets); err != nil {
			return model.State{}, fmt.Errorf("decode assets: %w", err)
		}
	}
	var txs []storeModel.Transaction
	if !isAbsent(rawTxs) {
		if err := json.Unmarshal(rawTxs, &txs); err != nil {
			return model.State{}, fmt.Errorf("decode transactions: %w", err)
		}
	}

	maxID := int64(0)
	seen := make(map[int64]struct{}, len(assets))
	for i, raw := range assets {
		a, err := ConvertAsset(raw)
		if err != nil {
			return model.State{}, fmt.Errorf("asset #%d: %w", i+1, err)
		}
		if a.ID != 0 {
			if _, dup := seen[a.ID]; dup {
				return model.State{}, fmt.Errorf("asset #%d: %w: duplicate id %d", i+1, ErrInvalidRecord, a.ID)
			}
			seen[a.ID] = struct{}{}
			maxID = max(maxID, a.ID)
		}
		state.Assets = append(state.Assets, a)
	}

	for i, raw := range txs {
		tx, err := ConvertTransaction(raw)
		if err != nil {
			return model.State{}, fmt.Errorf("transaction #%d: %w", i+1, err)
		}
		maxID = max(maxID, tx.ID)
		state.Transactions = append(state.Transactions, tx)
	}

	state.NextID = max(nextID, maxID+1)
	for i := range state.Assets {
		if state.Assets[i].ID == 0 {
			state.Assets[i].ID = state.NextID
			state.NextID++
		}
	}
	for i := range state.Transactions {
		if state.Transactions[i].ID == 0 {
			state.Transactions[i].ID = state.NextID
			state.NextID++
		}
	}

	return state, nil
}

func ConvertAsset(raw storeModel.Asset) (model.Asset, error) {
	id, err := convertID(raw.ID)
	if err != nil {
		return model.Asset{}, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if symbol == "" {
		return model.Asset{}, fmt.Errorf("%w: empty symbol", ErrInvalidRecord)
	}

	classRaw := raw.AssetClass
	if classRaw == "" {
		classRaw = raw.Type
	}
	class, ok := model.ParseAssetClass(classRaw)
	if !ok {
		return model.Asset{}, fmt.Errorf("%w: unknown asset class %q", ErrInvalidRecord, classRaw)
	}

	quantity := firstOf(raw.Quantity, raw.Shares)
	if quantity == nil {
		return model.Asset{}, fmt.Errorf("%w: %s has no quantity", ErrInvalidRecord, symbol)
	}
	if quantity.IsNegative() {
		return model.Asset{}, fmt.Errorf("%w: %s has negative quantity", ErrInvalidRecord, symbol)
	}

	cost := decimal.Zero
	if c := firstOf(raw.CostBasis, raw.AvgCost, raw.Cost); c != nil {
		cost = *c
	}
	if cost.IsNegative() {
		return model.Asset{}, fmt.Errorf("%w: %s has negative cost basis", ErrInvalidRecord, symbol)
	}

	currency := class.DefaultCurrency()
	if raw.Currency != "" {
		currency = model.Currency(strings.ToUpper(raw.Currency))
		if !currency.Valid() {
			return model.Asset{}, fmt.Errorf("%w: unknown currency %q", ErrInvalidRecord, raw.Currency)
		}
	}

	lastKnown := cost
	if p := firstOf(raw.LastKnownPrice, raw.Price); p != nil && !p.IsNegative() {
		lastKnown = *p
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = model.LookupName(class, symbol)
	}

	return model.Asset{
		ID:             id,
		Symbol:         symbol,
		Name:           name,
		Class:          class,
		Quantity:       *quantity,
		CostBasis:      cost,
		Currency:       currency,
		LastKnownPrice: lastKnown,
	}, nil
}

func ConvertTransaction(raw storeModel.Transaction) (model.Transaction, error) {
	id, err := convertID(raw.ID)
	if err != nil {
		return model.Transaction{}, err
	}

	txType, ok := transactionTypes[strings.ToLower(strings.TrimSpace(raw.Type))]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidRecord, raw.Type)
	}

	date, err := parseDate(raw.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: date %q", ErrInvalidRecord, raw.Date)
	}

	quantity := decimal.Zero
	if q := firstOf(raw.Quantity, raw.Shares); q != nil {
		quantity = *q
	}
	price := decimal.Zero
	if raw.Price != nil {
		price = *raw.Price
	}
	amount := price.Mul(quantity)
	if raw.Amount != nil {
		amount = *raw.Amount
	}

	currency := model.Currency(strings.ToUpper(raw.Currency))
	if raw.Currency != "" && !currency.Valid() {
		return model.Transaction{}, fmt.Errorf("%w: unknown currency %q", ErrInvalidRecord, raw.Currency)
	}

	return model.Transaction{
		ID:       id,
		Date:     date,
		Symbol:   strings.ToUpper(strings.TrimSpace(raw.Symbol)),
		Type:     txType,
		Quantity: quantity,
		Price:    price,
		Amount:   amount,
		Currency: currency,
	}, nil
}

// convertID accepts integer ids as well as the float timestamps older versions wrote.
func convertID(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if id, err := n.Int64(); err == nil {
		if id < 0 {
			return 0, fmt.Errorf("%w: negative id %d", ErrInvalidRecord, id)
		}
		return id, nil
	}
	f, err := decimal.NewFromString(n.String())
	if err != nil || f.IsNegative() {
		return 0, fmt.Errorf("%w: id %q", ErrInvalidRecord, n)
	}
	return f.IntPart(), nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func firstOf(values ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
