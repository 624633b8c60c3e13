package tencentApi

import (
	"context"
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
	"golang.org/x/text/encoding/simplifiedchinese"
)

// field positions in the "~" separated quote line
const (
	fieldName      = 1
	fieldPrice     = 3
	fieldPrevClose = 4
)

type TencentApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *TencentApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.TencentApi.Url).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetHeader("Referer", "https://stockapp.finance.qq.com/")
	return &TencentApi{client: client}
}

// GetQuote returns the latest quote of a Shanghai or Shenzhen listed share.
func (a *TencentApi) GetQuote(ctx context.Context, symbol string) (quoteModel.StockQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TencentApi.GetQuote"
	code := Code(symbol)

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code))

	resp, err := a.client.R().
		SetContext(ctx).
		Get("/q=" + code)
	if err != nil {
		slog.Warn("error while dialing TencentApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return quoteModel.StockQuote{}, externalApi.Classify(err)
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Warn("unexpected status from TencentApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return quoteModel.StockQuote{}, externalApi.StatusError(resp.StatusCode())
	}

	content, err := gbkToUtf8(resp.Body())
	if err != nil {
		slog.Warn("can't decode gbk body", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		content = string(resp.Body())
	}

	quote, err := parseQuote(symbol, content)
	if err != nil {
		slog.Warn("can't parse TencentApi response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return quoteModel.StockQuote{}, err
	}

	slog.Debug("GetQuote complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("price", quote.Price.String()))

	return quote, nil
}

func gbkToUtf8(body []byte) (string, error) {
	res, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(res), nil
}

func parseQuote(symbol, content string) (quoteModel.StockQuote, error) {
	// unknown codes come back as v_pv_none_match="1";
	if !strings.Contains(content, "~") {
		return quoteModel.StockQuote{}, externalApi.ErrNotFound
	}

	start := strings.Index(content, `"`)
	end := strings.LastIndex(content, `"`)
	if start >= 0 && end > start {
		content = content[start+1 : end]
	}

	fields := strings.Split(content, "~")
	if len(fields) <= fieldPrevClose {
		return quoteModel.StockQuote{}, fmt.Errorf("%w: got %d fields", externalApi.ErrParse, len(fields))
	}

	price, err := decimal.NewFromString(fields[fieldPrice])
	if err != nil {
		return quoteModel.StockQuote{}, fmt.Errorf("%w: price %q", externalApi.ErrParse, fields[fieldPrice])
	}
	if !price.IsPositive() {
		return quoteModel.StockQuote{}, fmt.Errorf("%w: no price for %s", externalApi.ErrNotFound, symbol)
	}

	prevClose, _ := decimal.NewFromString(fields[fieldPrevClose])

	return quoteModel.StockQuote{
		Symbol:    symbol,
		Name:      fields[fieldName],
		Price:     price,
		PrevClose: prevClose,
	}, nil
}

// Code converts a ticker into the exchange-prefixed code the quote service expects.
func Code(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if strings.HasPrefix(symbol, "SH") {
		return "sh" + strings.TrimPrefix(symbol, "SH")
	} else if strings.HasPrefix(symbol, "SZ") {
		return "sz" + strings.TrimPrefix(symbol, "SZ")
	}

	if len(symbol) == 6 && strings.HasPrefix(symbol, "6") {
		return "sh" + symbol
	} else if len(symbol) == 6 && (strings.HasPrefix(symbol, "0") || strings.HasPrefix(symbol, "3")) {
		return "sz" + symbol
	}

	return strings.ToLower(symbol)
}
