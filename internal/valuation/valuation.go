package valuation

import (
	"time"

	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Input struct {
	Assets []model.Asset
	// Prices holds the quotes of the last refresh. Assets without an entry are valued
	// at their last known price.
	Prices model.PriceBook
	Rate   model.Rate
	Policy model.FailurePolicy
	At     time.Time
}

// Valuate computes the per-asset and aggregate figures of a portfolio. It reads its
// input only and returns the same snapshot for the same input.
func Valuate(in Input) model.Snapshot {
	rate := in.Rate.Value
	if !rate.IsPositive() {
		rate = model.DefaultExchangeRate
	}

	snap := model.Snapshot{
		Assets:       make([]model.AssetValuation, 0, len(in.Assets)),
		Classes:      make([]model.ClassSummary, 0, len(model.AssetClasses)),
		TotalUSD:     decimal.Zero,
		TotalCNY:     decimal.Zero,
		ExchangeRate: rate,
		RateLive:     in.Rate.Live,
		Simulated:    in.Rate.Simulated || in.Prices.Simulated(),
		RateError:    externalApi.Reason(in.Rate.Err),
		UpdatedAt:    in.At,
	}

	classes := make(map[model.AssetClass]*model.ClassSummary, len(model.AssetClasses))
	for _, class := range model.AssetClasses {
		classes[class] = &model.ClassSummary{Class: class, TotalUSD: decimal.Zero, TotalCNY: decimal.Zero}
	}

	for _, a := range in.Assets {
		v := valuate(a, in.Prices, in.Policy)
		if v.PriceStatus == model.PriceStale || v.PriceStatus == model.PriceUnknown {
			snap.FailedQuotes++
		}
		snap.Assets = append(snap.Assets, v)

		summary, ok := classes[a.Class]
		if !ok {
			summary = &model.ClassSummary{Class: a.Class, TotalUSD: decimal.Zero, TotalCNY: decimal.Zero}
			classes[a.Class] = summary
		}
		summary.Count++

		if a.Currency == model.CNY {
			snap.TotalCNY = snap.TotalCNY.Add(v.CurrentValue)
			summary.TotalCNY = summary.TotalCNY.Add(v.CurrentValue)
		} else {
			snap.TotalUSD = snap.TotalUSD.Add(v.CurrentValue)
			summary.TotalUSD = summary.TotalUSD.Add(v.CurrentValue)
		}
	}

	for _, class := range model.AssetClasses {
		snap.Classes = append(snap.Classes, *classes[class])
	}

	snap.TotalInUSD = snap.TotalUSD.Add(snap.TotalCNY.DivRound(rate, 8))
	snap.TotalInCNY = snap.TotalCNY.Add(snap.TotalUSD.Mul(rate))

	return snap
}

func valuate(a model.Asset, prices model.PriceBook, policy model.FailurePolicy) model.AssetValuation {
	v := model.AssetValuation{Asset: a}

	q, fetched := prices[a.Ref()]
	switch {
	case !fetched:
		v.Price = a.LastKnownPrice
		v.PriceStatus = model.PriceCached
	case q.OK():
		v.Price = q.Price
		v.PriceStatus = model.PriceLive
		if q.Simulated {
			v.PriceStatus = model.PriceSimulated
		}
	case policy == model.ZeroOnFailure:
		v.Price = decimal.Zero
		v.PriceStatus = model.PriceUnknown
		v.PriceError = externalApi.Reason(q.Err)
	default:
		v.Price = a.LastKnownPrice
		v.PriceStatus = model.PriceStale
		v.PriceError = externalApi.Reason(q.Err)
	}

	v.CurrentValue = v.Price.Mul(a.Quantity)
	v.CostValue = a.CostBasis.Mul(a.Quantity)
	v.Profit = v.CurrentValue.Sub(v.CostValue)
	v.ProfitPercent = ProfitPercent(v.Profit, v.CostValue)

	return v
}

// ProfitPercent is profit relative to cost in percent, and zero when nothing was paid.
func ProfitPercent(profit, cost decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return decimal.Zero
	}
	return profit.Div(cost).Mul(hundred)
}
