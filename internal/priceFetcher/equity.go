package priceFetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/model/quoteModel"
	"github.com/shopspring/decimal"
)

type YahooApi interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type TencentApi interface {
	GetQuote(ctx context.Context, symbol string) (quoteModel.StockQuote, error)
}

// EquityFetcher prices A-shares through Tencent and foreign equities through Yahoo,
// one request per symbol.
type EquityFetcher struct {
	yahoo   YahooApi
	tencent TencentApi
	workers int
	timeout time.Duration
}

func NewEquityFetcher(yahoo YahooApi, tencent TencentApi, workers int, timeout time.Duration) *EquityFetcher {
	return &EquityFetcher{yahoo: yahoo, tencent: tencent, workers: workers, timeout: timeout}
}

func (f *EquityFetcher) Fetch(ctx context.Context, refs []model.SymbolRef) model.PriceBook {
	return fetchEach(ctx, "EquityFetcher.Fetch", refs, f.workers, f.timeout, f.quote)
}

func (f *EquityFetcher) quote(ctx context.Context, ref model.SymbolRef) model.Quote {
	switch ref.Class {
	case model.EquityDomestic:
		q, err := f.tencent.GetQuote(ctx, ref.Symbol)
		if err != nil {
			return model.Quote{Err: externalApi.Classify(err)}
		}
		return model.Quote{Price: q.Price, Name: q.Name}
	case model.EquityForeign:
		price, err := f.yahoo.GetPrice(ctx, ref.Symbol)
		if err != nil {
			return model.Quote{Err: externalApi.Classify(err)}
		}
		return model.Quote{Price: price}
	default:
		return model.Quote{Err: fmt.Errorf("%w: %s is not an equity", externalApi.ErrNotFound, ref.Class)}
	}
}
