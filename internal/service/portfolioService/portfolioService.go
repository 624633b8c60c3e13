package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/priceFetcher"
	"github.com/KotFed0t/asset_tracker/internal/service"
	"github.com/KotFed0t/asset_tracker/internal/valuation"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var ErrBackupDisabled = errors.New("error backup storage is not configured")

type Store interface {
	Assets() []model.Asset
	State() model.State
	Warning() string
	Add(ctx context.Context, in model.AssetInput) (model.Asset, error)
	Update(ctx context.Context, id int64, patch model.AssetPatch) (model.Asset, bool, error)
	Remove(ctx context.Context, id int64) (bool, error)
	ApplyRefresh(ctx context.Context, book model.PriceBook, rate model.Rate, at time.Time) error
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, blob []byte) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, snapshot model.Snapshot, transactions []model.Transaction) (fileBytes []byte, fileExtension string, err error)
}

type BackupStorage interface {
	UploadBackup(ctx context.Context, reader io.Reader) (fileID string, err error)
	PruneBackups(ctx context.Context) (deleted int, err error)
}

// Fetchers holds one price fetcher per price source plus the rate source.
type Fetchers struct {
	Equity priceFetcher.Fetcher
	Crypto priceFetcher.Fetcher
	Fund   priceFetcher.Fetcher
	Rate   priceFetcher.RateSource
}

type PortfolioService struct {
	store    Store
	fetchers Fetchers
	report   ReportGenerator
	backup   BackupStorage
	policy   model.FailurePolicy
	now      func() time.Time

	refreshGroup singleflight.Group
	background   sync.WaitGroup

	mu     sync.RWMutex
	prices model.PriceBook
	rate   *model.Rate
	status model.RefreshStatus
}

// New builds the service. backup may be nil when no backup storage is configured.
func New(store Store, fetchers Fetchers, report ReportGenerator, backup BackupStorage, policy model.FailurePolicy) *PortfolioService {
	return &PortfolioService{
		store:    store,
		fetchers: fetchers,
		report:   report,
		backup:   backup,
		policy:   policy,
		now:      time.Now,
		prices:   model.PriceBook{},
		status:   model.RefreshStatus{State: model.Idle},
	}
}

// Refresh fetches every price and the exchange rate, stores the results and returns
// the new snapshot. A call made while a refresh is running waits for that refresh
// and shares its result.
func (s *PortfolioService) Refresh(ctx context.Context) (model.Snapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Refresh"

	ch := s.refreshGroup.DoChan("refresh", func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			slog.Debug("refresh coalesced", slog.String("rqID", rqID), slog.String("op", op))
		}
		snapshot, _ := res.Val.(model.Snapshot)
		return snapshot, res.Err
	case <-ctx.Done():
		return model.Snapshot{}, ctx.Err()
	}
}

func (s *PortfolioService) refresh(ctx context.Context) (model.Snapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.refresh"
	started := s.now()

	slog.Debug("refresh start", slog.String("rqID", rqID), slog.String("op", op))

	s.mu.Lock()
	s.status.State = model.Fetching
	s.mu.Unlock()

	refs := map[model.PriceSource][]model.SymbolRef{}
	for _, a := range s.store.Assets() {
		refs[a.Class.Source()] = append(refs[a.Class.Source()], a.Ref())
	}

	var equity, crypto, fund model.PriceBook
	var rate model.Rate

	g := errgroup.Group{}
	g.Go(func() error {
		equity = s.fetchers.Equity.Fetch(ctx, refs[model.SourceEquity])
		return nil
	})
	g.Go(func() error {
		crypto = s.fetchers.Crypto.Fetch(ctx, refs[model.SourceCrypto])
		return nil
	})
	g.Go(func() error {
		fund = s.fetchers.Fund.Fetch(ctx, refs[model.SourceFund])
		return nil
	})
	g.Go(func() error {
		rate = s.fetchers.Rate.Fetch(ctx)
		return nil
	})
	_ = g.Wait()

	book := make(model.PriceBook, len(equity)+len(crypto)+len(fund))
	book.Merge(equity)
	book.Merge(crypto)
	book.Merge(fund)

	if !rate.Live && s.policy == model.RetainOnFailure {
		if last := s.store.State().ExchangeRate; last.IsPositive() {
			rate.Value = last
		}
	}

	finished := s.now()
	storeErr := s.store.ApplyRefresh(ctx, book, rate, finished)

	s.mu.Lock()
	s.prices = book
	s.rate = &rate
	s.status = model.RefreshStatus{
		State:        model.Idle,
		LastRun:      finished,
		LastDuration: finished.Sub(started).Round(time.Millisecond).String(),
		FailedQuotes: book.Failed(),
		RateLive:     rate.Live,
		Simulated:    rate.Simulated || book.Simulated(),
	}
	if storeErr != nil {
		s.status.LastError = storeErr.Error()
	}
	s.mu.Unlock()

	snapshot := s.Snapshot(ctx)

	if storeErr != nil {
		slog.Error("failed on store.ApplyRefresh", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", storeErr.Error()))
		return snapshot, storeErr
	}

	slog.Info(
		"refresh completed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int("quotes", len(book)),
		slog.Int("failedQuotes", book.Failed()),
		slog.Bool("rateLive", rate.Live),
		slog.Bool("simulated", rate.Simulated || book.Simulated()),
		slog.String("rate", rate.Value.String()),
	)

	return snapshot, nil
}

// RefreshJob is the scheduler entry point. ctx already carries the job's rqID.
func (s *PortfolioService) RefreshJob(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	return err
}

func (s *PortfolioService) refreshAsync(ctx context.Context) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx := utils.CtxWithRqID(context.Background(), rqID)
		if _, err := s.Refresh(ctx); err != nil {
			slog.Warn("background refresh failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
	}()
}

// Wait blocks until background refreshes started by mutations are done.
func (s *PortfolioService) Wait() {
	s.background.Wait()
}

// Snapshot values the current assets with the prices of the last refresh.
func (s *PortfolioService) Snapshot(ctx context.Context) model.Snapshot {
	state := s.store.State()

	s.mu.RLock()
	prices := s.prices
	rate := model.Rate{Value: state.ExchangeRate}
	if s.rate != nil {
		rate = *s.rate
	}
	s.mu.RUnlock()

	at := state.LastUpdate
	if at.IsZero() {
		at = s.now()
	}

	return valuation.Valuate(valuation.Input{
		Assets: state.Assets,
		Prices: prices,
		Rate:   rate,
		Policy: s.policy,
		At:     at,
	})
}

func (s *PortfolioService) Status() model.RefreshStatus {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	status.StoreWarning = s.store.Warning()
	return status
}

func (s *PortfolioService) Policy() model.FailurePolicy {
	return s.policy
}

// AddAsset stores a new holding and starts a refresh in the background so the new
// symbol gets priced.
func (s *PortfolioService) AddAsset(ctx context.Context, in model.AssetInput) (model.Asset, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddAsset"

	slog.Debug("AddAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", in.Symbol))

	asset, err := s.store.Add(ctx, in)
	if err != nil {
		logFailure(rqID, op, "store.Add", err)
		return model.Asset{}, err
	}

	s.refreshAsync(ctx)

	return asset, nil
}

func (s *PortfolioService) EditQuantity(ctx context.Context, id int64, quantity decimal.Decimal) (model.Asset, bool, error) {
	return s.UpdateAsset(ctx, id, model.AssetPatch{Quantity: &quantity})
}

func (s *PortfolioService) UpdateAsset(ctx context.Context, id int64, patch model.AssetPatch) (model.Asset, bool, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateAsset"

	slog.Debug("UpdateAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("id", id))

	asset, found, err := s.store.Update(ctx, id, patch)
	if err != nil {
		logFailure(rqID, op, "store.Update", err)
		return model.Asset{}, false, err
	}
	return asset, found, nil
}

func (s *PortfolioService) RemoveAsset(ctx context.Context, id int64) (bool, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RemoveAsset"

	slog.Debug("RemoveAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("id", id))

	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		logFailure(rqID, op, "store.Remove", err)
		return false, err
	}
	return removed, nil
}

func (s *PortfolioService) Export(ctx context.Context) ([]byte, error) {
	return s.store.Export(ctx)
}

// Import replaces the portfolio and reprices it in the background.
func (s *PortfolioService) Import(ctx context.Context, blob []byte) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Import"

	if err := s.store.Import(ctx, blob); err != nil {
		logFailure(rqID, op, "store.Import", err)
		return err
	}

	s.mu.Lock()
	s.prices = model.PriceBook{}
	s.rate = nil
	s.mu.Unlock()

	s.refreshAsync(ctx)

	return nil
}

func (s *PortfolioService) Report(ctx context.Context) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Report"

	snapshot := s.Snapshot(ctx)
	fileBytes, fileExtension, err = s.report.Generate(ctx, snapshot, s.store.State().Transactions)
	if err != nil {
		slog.Error("failed on report.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}
	return fileBytes, fileExtension, nil
}

// Backup uploads the exported portfolio and prunes expired backups.
func (s *PortfolioService) Backup(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Backup"

	if s.backup == nil {
		return ErrBackupDisabled
	}

	data, err := s.store.Export(ctx)
	if err != nil {
		return err
	}

	fileID, err := s.backup.UploadBackup(ctx, bytes.NewReader(data))
	if err != nil {
		slog.Error("failed on backup.UploadBackup", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	deleted, err := s.backup.PruneBackups(ctx)
	if err != nil {
		slog.Warn("failed on backup.PruneBackups", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info("backup done", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", fileID), slog.Int("pruned", deleted))

	return nil
}

// BackupJob is the scheduler entry point for backups.
func (s *PortfolioService) BackupJob(ctx context.Context) error {
	return s.Backup(ctx)
}

func logFailure(rqID, op, call string, err error) {
	if errors.Is(err, service.ErrValidation) || errors.Is(err, service.ErrInvalidImport) {
		slog.Info(call+" rejected input", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return
	}
	slog.Error("got error from "+call, slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
}

// ParseAssetInput turns the raw fields of an add request into an AssetInput. The
// numeric fields must be present and numeric; range checks happen in the store.
func ParseAssetInput(class, symbol, quantity, cost, currency string) (model.AssetInput, error) {
	assetClass, ok := model.ParseAssetClass(class)
	if !ok {
		return model.AssetInput{}, fmt.Errorf("%w: unknown asset class %q", service.ErrValidation, class)
	}

	if strings.TrimSpace(symbol) == "" {
		return model.AssetInput{}, fmt.Errorf("%w: symbol is required", service.ErrValidation)
	}

	qty, err := ParseDecimal("quantity", quantity)
	if err != nil {
		return model.AssetInput{}, err
	}
	costBasis, err := ParseDecimal("cost", cost)
	if err != nil {
		return model.AssetInput{}, err
	}

	return model.AssetInput{
		Class:     assetClass,
		Symbol:    symbol,
		Quantity:  qty,
		CostBasis: costBasis,
		Currency:  model.Currency(strings.ToUpper(strings.TrimSpace(currency))),
	}, nil
}

func ParseDecimal(field, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is required", service.ErrValidation, field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a number", service.ErrValidation, field)
	}
	return d, nil
}
