package priceFetcher

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/shopspring/decimal"
)

var (
	priceDrift = 0.02
	rateDrift  = 0.01
	rateMin    = decimal.RequireFromString("6.8")
	rateMax    = decimal.RequireFromString("7.2")
)

// PriceLookup exposes the prices a simulated walk starts from.
type PriceLookup interface {
	LastKnownPrices() map[model.SymbolRef]decimal.Decimal
}

// Walker is a random walk shared by the simulated price and rate sources.
type Walker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewWalker(rnd *rand.Rand) *Walker {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Walker{rnd: rnd}
}

// step returns a uniform value in [-1, 1).
func (w *Walker) step() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rnd.Float64()*2 - 1
}

// Price moves price by at most ±2%.
func (w *Walker) Price(price decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromFloat(1 + w.step()*priceDrift)
	return price.Mul(factor).Round(4)
}

// Rate moves rate by at most ±0.01 and keeps it within [6.8, 7.2].
func (w *Walker) Rate(rate decimal.Decimal) decimal.Decimal {
	next := rate.Add(decimal.NewFromFloat(w.step() * rateDrift)).Round(4)
	if next.LessThan(rateMin) {
		return rateMin
	}
	if next.GreaterThan(rateMax) {
		return rateMax
	}
	return next
}

// SimulatedFetcher replaces every price source in simulated mode. A symbol's walk
// starts at its last known price and continues from the previous simulated one.
type SimulatedFetcher struct {
	walker *Walker
	prices PriceLookup

	mu      sync.Mutex
	current map[model.SymbolRef]decimal.Decimal
}

func NewSimulatedFetcher(walker *Walker, prices PriceLookup) *SimulatedFetcher {
	return &SimulatedFetcher{walker: walker, prices: prices, current: map[model.SymbolRef]decimal.Decimal{}}
}

func (f *SimulatedFetcher) Fetch(_ context.Context, refs []model.SymbolRef) model.PriceBook {
	book := make(model.PriceBook, len(refs))
	if len(refs) == 0 {
		return book
	}

	last := f.prices.LastKnownPrices()

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ref := range unique(refs) {
		start, ok := f.current[ref]
		if !ok {
			start = last[ref]
		}
		price := f.walker.Price(start)
		f.current[ref] = price
		book[ref] = model.Quote{Price: price, Simulated: true}
	}
	return book
}

type SimulatedRate struct {
	walker *Walker
	mu     sync.Mutex
	rate   decimal.Decimal
}

func NewSimulatedRate(walker *Walker, start decimal.Decimal) *SimulatedRate {
	if !start.IsPositive() {
		start = model.DefaultExchangeRate
	}
	return &SimulatedRate{walker: walker, rate: start}
}

func (r *SimulatedRate) Fetch(_ context.Context) model.Rate {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rate = r.walker.Rate(r.rate)
	return model.Rate{Value: r.rate, Live: true, Simulated: true}
}
