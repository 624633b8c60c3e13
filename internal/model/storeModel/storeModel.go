package storeModel

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Document is the JSON object persisted under the store key and used for
// export/import. Assets and Transactions stay raw until the two-field check passes.
type Document struct {
	Assets       json.RawMessage  `json:"assets"`
	Transactions json.RawMessage  `json:"transactions"`
	ExchangeRate *decimal.Decimal `json:"exchangeRate,omitempty"`
	LastUpdate   *time.Time       `json:"lastUpdate,omitempty"`
	NextID       int64            `json:"nextId,omitempty"`
}

// Asset accepts the current field names as well as the older ones
// (type/shares/avgCost/price and type/quantity/cost).
type Asset struct {
	ID             json.Number      `json:"id"`
	Symbol         string           `json:"symbol"`
	Name           string           `json:"name,omitempty"`
	AssetClass     string           `json:"assetClass,omitempty"`
	Type           string           `json:"type,omitempty"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	Shares         *decimal.Decimal `json:"shares,omitempty"`
	CostBasis      *decimal.Decimal `json:"costBasis,omitempty"`
	AvgCost        *decimal.Decimal `json:"avgCost,omitempty"`
	Cost           *decimal.Decimal `json:"cost,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	LastKnownPrice *decimal.Decimal `json:"lastKnownPrice,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
}

type Transaction struct {
	ID       json.Number      `json:"id"`
	Date     string           `json:"date"`
	Symbol   string           `json:"symbol"`
	Type     string           `json:"type"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	Shares   *decimal.Decimal `json:"shares,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
}
