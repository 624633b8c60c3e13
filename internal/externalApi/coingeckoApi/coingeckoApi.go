package coingeckoApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/internal/model/quoteModel"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type CoingeckoApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *CoingeckoApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.CoingeckoApi.Url)
	return &CoingeckoApi{client: client}
}

// GetPrices fetches all ids in one call. Ids the service does not know are simply
// absent from the result.
func (a *CoingeckoApi) GetPrices(ctx context.Context, ids []string, vsCurrency string) (map[string]decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CoingeckoApi.GetPrices"

	slog.Debug("GetPrices start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("ids", ids))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"ids":           strings.Join(ids, ","),
			"vs_currencies": vsCurrency,
		}).
		Get("/api/v3/simple/price")
	if err != nil {
		slog.Warn("error while dialing CoingeckoApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, externalApi.Classify(err)
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Warn("unexpected status from CoingeckoApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, externalApi.StatusError(resp.StatusCode())
	}

	raw := quoteModel.CoingeckoPrices{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Warn("can't unmarshall response into quoteModel.CoingeckoPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %s", externalApi.ErrParse, err.Error())
	}

	res := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		prices, ok := raw[id]
		if !ok {
			continue
		}
		if price, ok := prices[vsCurrency]; ok {
			res[id] = price
		}
	}

	slog.Debug("GetPrices complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("found", len(res)))

	return res, nil
}
