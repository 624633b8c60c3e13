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

const cryptoVsCurrency = "usd"

type CoingeckoApi interface {
	GetPrices(ctx context.Context, ids []string, vsCurrency string) (map[string]decimal.Decimal, error)
}

// CryptoFetcher prices every crypto symbol with a single batched request.
type CryptoFetcher struct {
	api     CoingeckoApi
	timeout time.Duration
}

func NewCryptoFetcher(api CoingeckoApi, timeout time.Duration) *CryptoFetcher {
	return &CryptoFetcher{api: api, timeout: timeout}
}

func (f *CryptoFetcher) Fetch(ctx context.Context, refs []model.SymbolRef) model.PriceBook {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CryptoFetcher.Fetch"

	refs = unique(refs)
	book := make(model.PriceBook, len(refs))
	if len(refs) == 0 {
		return book
	}

	ids := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		id := model.CoingeckoID(ref.Symbol)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	prices, err := f.getPrices(ctx, ids)
	if err != nil {
		slog.Warn("crypto batch failed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("symbols", len(refs)), slog.String("err", err.Error()))
		for _, ref := range refs {
			book[ref] = model.Quote{Err: err}
		}
		return book
	}

	for _, ref := range refs {
		price, ok := prices[model.CoingeckoID(ref.Symbol)]
		if !ok {
			book[ref] = model.Quote{Err: fmt.Errorf("%w: %s", externalApi.ErrNotFound, ref.Symbol)}
			continue
		}
		book[ref] = model.Quote{Price: price}
	}

	return book
}

func (f *CryptoFetcher) getPrices(ctx context.Context, ids []string) (prices map[string]decimal.Decimal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", externalApi.ErrUnavailable, r)
		}
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	prices, err = f.api.GetPrices(ctx, ids, cryptoVsCurrency)
	if err != nil {
		return nil, externalApi.Classify(err)
	}
	return prices, nil
}
