package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceStatus string

const (
	// PriceLive is a price fetched by the last refresh.
	PriceLive PriceStatus = "live"
	// PriceCached is the last known price of a symbol that has not been fetched yet.
	PriceCached PriceStatus = "cached"
	// PriceSimulated is a price produced by the simulator.
	PriceSimulated PriceStatus = "simulated"
	// PriceStale is the last known price kept after a failed fetch.
	PriceStale PriceStatus = "stale"
	// PriceUnknown marks a failed fetch valued at zero.
	PriceUnknown PriceStatus = "unknown"
)

type AssetValuation struct {
	Asset         Asset           `json:"asset"`
	Price         decimal.Decimal `json:"price"`
	PriceStatus   PriceStatus     `json:"priceStatus"`
	PriceError    string          `json:"priceError,omitempty"`
	CurrentValue  decimal.Decimal `json:"currentValue"`
	CostValue     decimal.Decimal `json:"costValue"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profitPercent"`
}

type ClassSummary struct {
	Class    AssetClass      `json:"class"`
	Count    int             `json:"count"`
	TotalUSD decimal.Decimal `json:"totalUSD"`
	TotalCNY decimal.Decimal `json:"totalCNY"`
}

type Snapshot struct {
	Assets       []AssetValuation `json:"assets"`
	Classes      []ClassSummary   `json:"classes"`
	TotalUSD     decimal.Decimal  `json:"totalUSD"`
	TotalCNY     decimal.Decimal  `json:"totalCNY"`
	TotalInUSD   decimal.Decimal  `json:"totalInUSD"`
	TotalInCNY   decimal.Decimal  `json:"totalInCNY"`
	ExchangeRate decimal.Decimal  `json:"exchangeRate"`
	RateLive     bool             `json:"rateLive"`
	RateError    string           `json:"rateError,omitempty"`
	FailedQuotes int              `json:"failedQuotes"`
	Simulated    bool             `json:"simulated"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// ByClass returns the valuations of one class in store order.
func (s Snapshot) ByClass(class AssetClass) []AssetValuation {
	res := make([]AssetValuation, 0)
	for _, v := range s.Assets {
		if v.Asset.Class == class {
			res = append(res, v)
		}
	}
	return res
}

type RefreshState string

const (
	Idle     RefreshState = "idle"
	Fetching RefreshState = "fetching"
)

type RefreshStatus struct {
	State        RefreshState `json:"state"`
	LastRun      time.Time    `json:"lastRun"`
	LastDuration string       `json:"lastDuration,omitempty"`
	FailedQuotes int          `json:"failedQuotes"`
	RateLive     bool         `json:"rateLive"`
	Simulated    bool         `json:"simulated"`
	LastError    string       `json:"lastError,omitempty"`
	// StoreWarning is set while the portfolio runs on defaults because the stored
	// one could not be decoded.
	StoreWarning string `json:"storeWarning,omitempty"`
}

// Connected reports whether the last refresh reached every real source.
func (s RefreshStatus) Connected() bool {
	return !s.LastRun.IsZero() && s.FailedQuotes == 0 && s.RateLive && !s.Simulated &&
		s.LastError == "" && s.StoreWarning == ""
}
