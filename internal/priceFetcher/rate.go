package priceFetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/shopspring/decimal"
)

type ExchangeRateApi interface {
	GetRate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

type RateFetcher struct {
	api     ExchangeRateApi
	timeout time.Duration
}

func NewRateFetcher(api ExchangeRateApi, timeout time.Duration) *RateFetcher {
	return &RateFetcher{api: api, timeout: timeout}
}

// Fetch returns the live USD->CNY rate, or model.DefaultExchangeRate with the reason
// when the rate can't be fetched.
func (f *RateFetcher) Fetch(ctx context.Context) (rate model.Rate) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RateFetcher.Fetch"

	defer func() {
		if r := recover(); r != nil {
			rate = model.Rate{Value: model.DefaultExchangeRate, Err: fmt.Errorf("%w: panic: %v", externalApi.ErrUnavailable, r)}
		}
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	value, err := f.api.GetRate(ctx, string(model.USD), string(model.CNY))
	if err == nil && !value.IsPositive() {
		err = fmt.Errorf("%w: non-positive rate %s", externalApi.ErrParse, value)
	}
	if err != nil {
		err = externalApi.Classify(err)
		slog.Warn("using fallback exchange rate", slog.String("rqID", rqID), slog.String("op", op), slog.String("fallback", model.DefaultExchangeRate.String()), slog.String("err", err.Error()))
		return model.Rate{Value: model.DefaultExchangeRate, Err: err}
	}

	return model.Rate{Value: value, Live: true}
}
