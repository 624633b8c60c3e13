package priceFetcher

import (
	"context"
	"time"

	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/model/quoteModel"
)

type FundApi interface {
	GetNav(ctx context.Context, code string) (quoteModel.FundNav, error)
}

type FundFetcher struct {
	api     FundApi
	workers int
	timeout time.Duration
}

func NewFundFetcher(api FundApi, workers int, timeout time.Duration) *FundFetcher {
	return &FundFetcher{api: api, workers: workers, timeout: timeout}
}

func (f *FundFetcher) Fetch(ctx context.Context, refs []model.SymbolRef) model.PriceBook {
	return fetchEach(ctx, "FundFetcher.Fetch", refs, f.workers, f.timeout, func(ctx context.Context, ref model.SymbolRef) model.Quote {
		nav, err := f.api.GetNav(ctx, ref.Symbol)
		if err != nil {
			return model.Quote{Err: externalApi.Classify(err)}
		}
		return model.Quote{Price: nav.Price, Name: nav.Name}
	})
}
