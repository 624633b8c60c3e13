package yahooApi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/PaesslerAG/jsonpath"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	resultPath = "$.chart.result"
	pricePath  = "$.chart.result[0].meta.regularMarketPrice"
)

type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", "Mozilla/5.0")
	return &YahooApi{client: client}
}

// GetPrice returns the regular market price of a foreign equity.
func (a *YahooApi) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetPrice"

	slog.Debug("GetPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "1d",
		}).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		slog.Warn("error while dialing YahooApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, externalApi.Classify(err)
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Warn("unexpected status from YahooApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return decimal.Zero, externalApi.StatusError(resp.StatusCode())
	}

	price, err := parsePrice(resp.Body())
	if err != nil {
		slog.Warn("can't parse YahooApi response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, err
	}

	slog.Debug("GetPrice complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("price", price.String()))

	return price, nil
}

func parsePrice(body []byte) (decimal.Decimal, error) {
	var jobj any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&jobj); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", externalApi.ErrParse, err.Error())
	}

	result, err := jsonpath.Get(resultPath, jobj)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", externalApi.ErrParse, err.Error())
	}
	if list, ok := result.([]any); !ok || len(list) == 0 {
		return decimal.Zero, externalApi.ErrNotFound
	}

	jval, err := jsonpath.Get(pricePath, jobj)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", externalApi.ErrParse, err.Error())
	}

	var price decimal.Decimal
	switch v := jval.(type) {
	case json.Number:
		price, err = decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s", externalApi.ErrParse, err.Error())
		}
	case float64:
		price = decimal.NewFromFloat(v)
	case nil:
		return decimal.Zero, externalApi.ErrNotFound
	default:
		return decimal.Zero, fmt.Errorf("%w: regularMarketPrice is %T", externalApi.ErrParse, jval)
	}

	if !price.IsPositive() {
		return decimal.Zero, externalApi.ErrNotFound
	}

	return price, nil
}
