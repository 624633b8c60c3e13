package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAssetClass(t *testing.T) {
	tests := []struct {
		in   string
		want AssetClass
		ok   bool
	}{
		{in: "crypto", want: Crypto, ok: true},
		{in: " Equity-Foreign ", want: EquityForeign, ok: true},
		{in: "stock", want: EquityForeign, ok: true},
		{in: "a-share", want: EquityDomestic, ok: true},
		{in: "基金", want: Fund, ok: true},
		{in: "A股", want: EquityDomestic, ok: true},
		{in: "bonds", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAssetClass(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssetClass_Routing(t *testing.T) {
	assert.Equal(t, CNY, EquityDomestic.DefaultCurrency())
	assert.Equal(t, CNY, Fund.DefaultCurrency())
	assert.Equal(t, USD, EquityForeign.DefaultCurrency())
	assert.Equal(t, USD, Crypto.DefaultCurrency())

	assert.Equal(t, SourceEquity, EquityDomestic.Source())
	assert.Equal(t, SourceEquity, EquityForeign.Source())
	assert.Equal(t, SourceCrypto, Crypto.Source())
	assert.Equal(t, SourceFund, Fund.Source())

	assert.False(t, AssetClass("bonds").Valid())
}

func TestPriceBook(t *testing.T) {
	book := PriceBook{
		{Class: Crypto, Symbol: "BTC"}: {Price: decimal.NewFromInt(1)},
	}
	book.Merge(PriceBook{
		{Class: Fund, Symbol: "001186"}: {Err: errors.New("timeout")},
		{Class: Crypto, Symbol: "ETH"}:  {Err: errors.New("not found")},
	})

	assert.Len(t, book, 3)
	assert.Equal(t, 2, book.Failed())
}

func TestState_CloneIsIndependent(t *testing.T) {
	orig := DemoState()
	clone := orig.Clone()

	clone.Assets[0].Symbol = "CHANGED"
	clone.Transactions = append(clone.Transactions, Transaction{ID: 99})

	assert.Equal(t, "AAPL", orig.Assets[0].Symbol)
	assert.Len(t, orig.Transactions, 4)
}

func TestCatalog(t *testing.T) {
	assert.Equal(t, "bitcoin", CoingeckoID("btc"))
	assert.Equal(t, "pepe", CoingeckoID("PEPE"))
	assert.Equal(t, "Apple", LookupName(EquityForeign, "aapl"))
	assert.Equal(t, "贵州茅台", LookupName(EquityDomestic, "600519"))
	assert.Empty(t, LookupName(Fund, "001186"))
}

func TestRefreshStatus_Connected(t *testing.T) {
	now := time.Now()
	assert.False(t, RefreshStatus{}.Connected())
	assert.True(t, RefreshStatus{LastRun: now, RateLive: true}.Connected())
	assert.False(t, RefreshStatus{LastRun: now, RateLive: true, FailedQuotes: 1}.Connected())
	assert.False(t, RefreshStatus{LastRun: now}.Connected())
	assert.False(t, RefreshStatus{LastRun: now, RateLive: true, LastError: "disk full"}.Connected())
	assert.False(t, RefreshStatus{LastRun: now, RateLive: true, Simulated: true}.Connected())
	assert.False(t, RefreshStatus{LastRun: now, RateLive: true, StoreWarning: "set aside"}.Connected())
}

func TestSnapshot_ByClass(t *testing.T) {
	state := DemoState()
	snap := Snapshot{}
	for _, a := range state.Assets {
		snap.Assets = append(snap.Assets, AssetValuation{Asset: a})
	}

	crypto := snap.ByClass(Crypto)
	assert.Len(t, crypto, 2)
	assert.Equal(t, "BTC", crypto[0].Asset.Symbol)
	assert.Empty(t, snap.ByClass(Fund))
}

func TestParseConfigEnums(t *testing.T) {
	p, ok := ParseFailurePolicy("zero")
	assert.True(t, ok)
	assert.Equal(t, ZeroOnFailure, p)
	_, ok = ParseFailurePolicy("ignore")
	assert.False(t, ok)

	m, ok := ParsePriceMode("simulated")
	assert.True(t, ok)
	assert.Equal(t, SimulatedMode, m)
	_, ok = ParsePriceMode("")
	assert.False(t, ok)
}
