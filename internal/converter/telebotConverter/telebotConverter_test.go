package telebotConverter

import (
	"testing"
	"time"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/model/tgCallback"
	"github.com/KotFed0t/asset_tracker/internal/valuation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoSnapshot() model.Snapshot {
	state := model.DemoState()
	return valuation.Valuate(valuation.Input{
		Assets: state.Assets,
		Rate:   model.Rate{Value: state.ExchangeRate, Live: true},
		Policy: model.RetainOnFailure,
	})
}

func TestPortfolioResponse_Overview(t *testing.T) {
	status := model.RefreshStatus{LastRun: time.Now(), RateLive: false, FailedQuotes: 1}

	text, markup := PortfolioResponse(demoSnapshot(), status, "")

	assert.Contains(t, text, "1 USD = ")
	assert.Contains(t, text, "Crypto")
	assert.Contains(t, text, "1 quote(s) unavailable, fallback exchange rate")
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], len(model.AssetClasses))
	assert.Equal(t, tgCallback.ShowClass, markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, string(model.EquityForeign), markup.InlineKeyboard[0][0].Data)
}

func TestPortfolioResponse_Class(t *testing.T) {
	text, _ := PortfolioResponse(demoSnapshot(), model.RefreshStatus{}, model.EquityForeign)

	assert.Contains(t, text, "AAPL")
	assert.NotContains(t, text, "BTC")
	assert.Contains(t, text, "waiting for the first refresh")
}

func TestPortfolioResponse_EmptyClass(t *testing.T) {
	text, _ := PortfolioResponse(model.Snapshot{}, model.RefreshStatus{}, model.Fund)
	assert.Contains(t, text, "no assets yet")
}

func TestPortfolioResponse_Simulated(t *testing.T) {
	aapl := model.Asset{ID: 1, Symbol: "AAPL", Class: model.EquityForeign, Currency: model.USD, Quantity: decimal.NewFromInt(1)}
	snap := valuation.Valuate(valuation.Input{
		Assets: []model.Asset{aapl},
		Prices: model.PriceBook{aapl.Ref(): {Price: decimal.NewFromInt(101), Simulated: true}},
		Rate:   model.Rate{Value: decimal.NewFromInt(7), Live: true, Simulated: true},
	})
	status := model.RefreshStatus{LastRun: time.Now(), RateLive: true, Simulated: true}

	text, _ := PortfolioResponse(snap, status, model.EquityForeign)

	assert.Contains(t, text, "simulated prices")
	assert.Contains(t, text, "$101.0000~")
}

func TestPortfolioResponse_MixedCurrencyClass(t *testing.T) {
	assets := []model.Asset{
		{ID: 1, Symbol: "AAPL", Class: model.EquityForeign, Currency: model.USD, Quantity: decimal.NewFromInt(1), LastKnownPrice: decimal.NewFromInt(100)},
		{ID: 2, Symbol: "BABA", Class: model.EquityForeign, Currency: model.CNY, Quantity: decimal.NewFromInt(1), LastKnownPrice: decimal.NewFromInt(700)},
	}
	snap := valuation.Valuate(valuation.Input{Assets: assets, Rate: model.Rate{Value: decimal.NewFromInt(7)}})

	text, _ := PortfolioResponse(snap, model.RefreshStatus{}, "")

	assert.Contains(t, text, "$100.00 + 700.00 元")
}

func TestRemoveConfirmResponse(t *testing.T) {
	text, markup := RemoveConfirmResponse(model.Asset{ID: 7, Symbol: "BTC"})

	assert.Contains(t, text, "#7 BTC")
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, tgCallback.ConfirmRemove, markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "7", markup.InlineKeyboard[0][0].Data)
}
