package quoteModel

import "github.com/shopspring/decimal"

// CoingeckoPrices is the simple/price payload: id -> vs currency -> price.
type CoingeckoPrices map[string]map[string]decimal.Decimal

type ExchangeRates struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FundEstimate is the body of the fundgz JSONP callback. All values arrive as strings.
type FundEstimate struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	Jzrq     string `json:"jzrq"`
	Dwjz     string `json:"dwjz"`
	Gsz      string `json:"gsz"`
	Gszzl    string `json:"gszzl"`
	Gztime   string `json:"gztime"`
}

type StockQuote struct {
	Symbol    string
	Name      string
	Price     decimal.Decimal
	PrevClose decimal.Decimal
}

type FundNav struct {
	Code  string
	Name  string
	Price decimal.Decimal
}
