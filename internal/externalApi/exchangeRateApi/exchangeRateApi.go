package exchangeRateApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/internal/model/quoteModel"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type ExchangeRateApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *ExchangeRateApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.ExchangeRateApi.Url)
	return &ExchangeRateApi{client: client}
}

// GetRate returns how many units of quote one unit of base buys.
func (a *ExchangeRateApi) GetRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ExchangeRateApi.GetRate"

	slog.Debug("GetRate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("base", base), slog.String("quote", quote))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("base", base).
		Get("/v4/latest/{base}")
	if err != nil {
		slog.Warn("error while dialing ExchangeRateApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, externalApi.Classify(err)
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Warn("unexpected status from ExchangeRateApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return decimal.Zero, externalApi.StatusError(resp.StatusCode())
	}

	raw := quoteModel.ExchangeRates{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Warn("can't unmarshall response into quoteModel.ExchangeRates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, fmt.Errorf("%w: %s", externalApi.ErrParse, err.Error())
	}

	rate, ok := raw.Rates[quote]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no %s rate", externalApi.ErrNotFound, quote)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate %s", externalApi.ErrParse, rate)
	}

	slog.Debug("GetRate complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("rate", rate.String()))

	return rate, nil
}
