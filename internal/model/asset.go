package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AssetClass string

const (
	EquityDomestic AssetClass = "equity-domestic"
	EquityForeign  AssetClass = "equity-foreign"
	Crypto         AssetClass = "crypto"
	Fund           AssetClass = "fund"
)

// AssetClasses is the display order of the dashboard tabs.
var AssetClasses = []AssetClass{EquityForeign, EquityDomestic, Crypto, Fund}

var assetClassAliases = map[string]AssetClass{
	"equity-domestic": EquityDomestic,
	"equity-foreign":  EquityForeign,
	"crypto":          Crypto,
	"fund":            Fund,
	"stock":           EquityForeign,
	"us":              EquityForeign,
	"a-share":         EquityDomestic,
	"cn":              EquityDomestic,
	"美股":              EquityForeign,
	"a股":              EquityDomestic,
	"虚拟货币":            Crypto,
	"基金":              Fund,
}

// ParseAssetClass accepts the canonical names plus the short and legacy aliases
// found in older exports.
func ParseAssetClass(s string) (AssetClass, bool) {
	class, ok := assetClassAliases[strings.ToLower(strings.TrimSpace(s))]
	return class, ok
}

func (c AssetClass) Valid() bool {
	switch c {
	case EquityDomestic, EquityForeign, Crypto, Fund:
		return true
	}
	return false
}

func (c AssetClass) DefaultCurrency() Currency {
	switch c {
	case EquityDomestic, Fund:
		return CNY
	default:
		return USD
	}
}

func (c AssetClass) Source() PriceSource {
	switch c {
	case Crypto:
		return SourceCrypto
	case Fund:
		return SourceFund
	default:
		return SourceEquity
	}
}

type Currency string

const (
	USD Currency = "USD"
	CNY Currency = "CNY"
)

func (c Currency) Valid() bool {
	return c == USD || c == CNY
}

// PriceSource groups asset classes by the fetcher that prices them.
type PriceSource string

const (
	SourceEquity PriceSource = "equity"
	SourceCrypto PriceSource = "crypto"
	SourceFund   PriceSource = "fund"
)

type Asset struct {
	ID             int64           `json:"id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Class          AssetClass      `json:"assetClass"`
	Quantity       decimal.Decimal `json:"quantity"`
	CostBasis      decimal.Decimal `json:"costBasis"`
	Currency       Currency        `json:"currency"`
	LastKnownPrice decimal.Decimal `json:"lastKnownPrice"`
}

func (a Asset) Ref() SymbolRef {
	return SymbolRef{Class: a.Class, Symbol: a.Symbol}
}

type AssetInput struct {
	Class     AssetClass
	Symbol    string
	Name      string
	Quantity  decimal.Decimal
	CostBasis decimal.Decimal
	Currency  Currency
}

// AssetPatch replaces only the non-nil fields.
type AssetPatch struct {
	Quantity  *decimal.Decimal
	CostBasis *decimal.Decimal
	Name      *string
}

type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

type Transaction struct {
	ID       int64           `json:"id"`
	Date     time.Time       `json:"date"`
	Symbol   string          `json:"symbol"`
	Type     TransactionType `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// State is everything the store persists under its key.
type State struct {
	Assets       []Asset
	Transactions []Transaction
	ExchangeRate decimal.Decimal
	LastUpdate   time.Time
	NextID       int64
}

func (s State) Clone() State {
	res := s
	res.Assets = append([]Asset(nil), s.Assets...)
	res.Transactions = append([]Transaction(nil), s.Transactions...)
	return res
}
