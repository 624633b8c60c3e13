package model

import "github.com/shopspring/decimal"

// DefaultExchangeRate is the USD->CNY rate used whenever no live rate is available.
var DefaultExchangeRate = decimal.RequireFromString("7.15")

type SymbolRef struct {
	Class  AssetClass
	Symbol string
}

type Quote struct {
	Price decimal.Decimal
	Name  string
	// Err is nil for a successful quote. It wraps one of the externalApi errors otherwise.
	Err error
	// Simulated quotes are never stored as a last known price.
	Simulated bool
}

func (q Quote) OK() bool {
	return q.Err == nil
}

type PriceBook map[SymbolRef]Quote

// Merge copies every quote of other into b.
func (b PriceBook) Merge(other PriceBook) {
	for ref, q := range other {
		b[ref] = q
	}
}

func (b PriceBook) Failed() int {
	n := 0
	for _, q := range b {
		if !q.OK() {
			n++
		}
	}
	return n
}

// Simulated reports whether any quote of b came from the simulator.
func (b PriceBook) Simulated() bool {
	for _, q := range b {
		if q.Simulated {
			return true
		}
	}
	return false
}

type Rate struct {
	Value     decimal.Decimal
	Live      bool
	Simulated bool
	Err       error
}

type FailurePolicy string

const (
	// RetainOnFailure keeps the last known price of a symbol whose quote failed.
	RetainOnFailure FailurePolicy = "retain"
	// ZeroOnFailure values a symbol whose quote failed at zero.
	ZeroOnFailure FailurePolicy = "zero"
)

func ParseFailurePolicy(s string) (FailurePolicy, bool) {
	switch FailurePolicy(s) {
	case RetainOnFailure, ZeroOnFailure:
		return FailurePolicy(s), true
	}
	return "", false
}

type PriceMode string

const (
	LiveMode      PriceMode = "live"
	SimulatedMode PriceMode = "simulated"
)

func ParsePriceMode(s string) (PriceMode, bool) {
	switch PriceMode(s) {
	case LiveMode, SimulatedMode:
		return PriceMode(s), true
	}
	return "", false
}
