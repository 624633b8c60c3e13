package fundApi

import (
	"bytes"
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

var (
	jsonpPrefix = []byte("jsonpgz(")
	jsonpSuffix = []byte(");")
)

type FundApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *FundApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.FundApi.Url)
	return &FundApi{client: client}
}

// GetNav returns the intraday NAV estimate of a mutual fund, or its last published
// NAV when no estimate is available.
func (a *FundApi) GetNav(ctx context.Context, code string) (quoteModel.FundNav, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FundApi.GetNav"

	slog.Debug("GetNav start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code))

	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("code", code).
		Get("/js/{code}.js")
	if err != nil {
		slog.Warn("error while dialing FundApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return quoteModel.FundNav{}, externalApi.Classify(err)
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Warn("unexpected status from FundApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return quoteModel.FundNav{}, externalApi.StatusError(resp.StatusCode())
	}

	nav, err := parseNav(resp.Body())
	if err != nil {
		slog.Warn("can't parse FundApi response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return quoteModel.FundNav{}, err
	}

	slog.Debug("GetNav complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("price", nav.Price.String()))

	return nav, nil
}

func parseNav(body []byte) (quoteModel.FundNav, error) {
	body = bytes.TrimSpace(body)
	if !bytes.HasPrefix(body, jsonpPrefix) || !bytes.HasSuffix(body, jsonpSuffix) {
		return quoteModel.FundNav{}, fmt.Errorf("%w: not a jsonpgz callback", externalApi.ErrParse)
	}

	inner := bytes.TrimSpace(body[len(jsonpPrefix) : len(body)-len(jsonpSuffix)])
	// unknown fund codes come back as jsonpgz();
	if len(inner) == 0 {
		return quoteModel.FundNav{}, externalApi.ErrNotFound
	}

	raw := quoteModel.FundEstimate{}
	if err := json.Unmarshal(inner, &raw); err != nil {
		return quoteModel.FundNav{}, fmt.Errorf("%w: %s", externalApi.ErrParse, err.Error())
	}

	price, err := decimal.NewFromString(raw.Gsz)
	if err != nil || !price.IsPositive() {
		price, err = decimal.NewFromString(raw.Dwjz)
		if err != nil || !price.IsPositive() {
			return quoteModel.FundNav{}, fmt.Errorf("%w: no usable nav in %q/%q", externalApi.ErrParse, raw.Gsz, raw.Dwjz)
		}
	}

	return quoteModel.FundNav{Code: raw.FundCode, Name: raw.Name, Price: price}, nil
}
