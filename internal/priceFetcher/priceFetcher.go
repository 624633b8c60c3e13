package priceFetcher

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/utils"
	"golang.org/x/sync/errgroup"
)

// Fetcher prices one group of symbols. The returned book always holds an entry for
// every requested symbol; failures travel in Quote.Err.
type Fetcher interface {
	Fetch(ctx context.Context, refs []model.SymbolRef) model.PriceBook
}

// RateSource returns the USD->CNY rate. It never fails; a fallback rate carries the
// reason in Rate.Err.
type RateSource interface {
	Fetch(ctx context.Context) model.Rate
}

type quoteFn func(ctx context.Context, ref model.SymbolRef) model.Quote

// fetchEach runs fn once per distinct symbol with at most workers requests in flight,
// each bounded by timeout.
func fetchEach(ctx context.Context, op string, refs []model.SymbolRef, workers int, timeout time.Duration, fn quoteFn) model.PriceBook {
	rqID := utils.GetRequestIDFromCtx(ctx)
	book := make(model.PriceBook, len(refs))
	if len(refs) == 0 {
		return book
	}

	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	g := errgroup.Group{}
	g.SetLimit(workers)

	for _, ref := range unique(refs) {
		g.Go(func() error {
			q := safeQuote(ctx, ref, timeout, fn)
			if !q.OK() {
				slog.Warn("quote failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", ref.Symbol), slog.String("err", q.Err.Error()))
			}
			mu.Lock()
			book[ref] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return book
}

func safeQuote(ctx context.Context, ref model.SymbolRef, timeout time.Duration, fn quoteFn) (q model.Quote) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in quote fetch", slog.String("symbol", ref.Symbol), slog.Any("panic", r), slog.String("stacktrace", string(debug.Stack())))
			q = model.Quote{Err: fmt.Errorf("%w: panic: %v", externalApi.ErrUnavailable, r)}
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return fn(ctx, ref)
}

func unique(refs []model.SymbolRef) []model.SymbolRef {
	seen := make(map[model.SymbolRef]struct{}, len(refs))
	res := make([]model.SymbolRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		res = append(res, ref)
	}
	return res
}
