package assetStore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KotFed0t/asset_tracker/data/storage"
	"github.com/KotFed0t/asset_tracker/internal/converter/storeConverter"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/service"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/shopspring/decimal"
)

// errUnchanged aborts a mutation without writing anything.
var errUnchanged = errors.New("unchanged")

// malformedSuffix names the key a stored document that can't be decoded is
// copied to before anything is written over it.
const malformedSuffix = ".malformed"

type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// AssetStore owns the portfolio state. Every mutation is persisted before it
// becomes visible; a failed write leaves the previous state in place.
type AssetStore struct {
	mu       sync.RWMutex
	storage  Storage
	key      string
	seedDemo bool
	now      func() time.Time
	state    model.State
	// warning describes a stored document that was set aside by Load.
	warning string
}

func New(storage Storage, key string, seedDemo bool) *AssetStore {
	return &AssetStore{
		storage:  storage,
		key:      key,
		seedDemo: seedDemo,
		now:      time.Now,
		state:    emptyState(),
	}
}

func emptyState() model.State {
	return model.State{
		Assets:       []model.Asset{},
		Transactions: []model.Transaction{},
		ExchangeRate: model.DefaultExchangeRate,
		NextID:       1,
	}
}

func (s *AssetStore) defaultState() model.State {
	if s.seedDemo {
		return model.DemoState()
	}
	return emptyState()
}

// Load reads the persisted state. A missing document yields the default portfolio.
// A document that can't be decoded is first copied to key+".malformed" and then
// replaced by the default portfolio; if the copy fails Load returns the error and
// nothing is written over the document.
func (s *AssetStore) Load(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AssetStore.Load"

	slog.Debug("Load start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", s.key))

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("no stored portfolio, using defaults", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("seedDemo", s.seedDemo))
		s.state = s.defaultState()
		return nil
	}
	if err != nil {
		slog.Error("failed on storage.Get", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%w: %w", service.ErrStorage, err)
	}

	state, err := storeConverter.Decode(data, false)
	if err != nil {
		backupKey := s.key + malformedSuffix
		if setErr := s.storage.Set(ctx, backupKey, data); setErr != nil {
			slog.Error("failed to set aside malformed portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", setErr.Error()))
			return fmt.Errorf("%w: stored portfolio is malformed (%s) and can't be set aside: %w", service.ErrStorage, err.Error(), setErr)
		}

		slog.Error(
			"stored portfolio is malformed, using defaults",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("err", err.Error()),
			slog.String("savedAs", backupKey),
		)
		s.state = s.defaultState()
		s.warning = fmt.Sprintf("stored portfolio could not be read (%s); the original was kept as %q", err.Error(), backupKey)
		return nil
	}

	s.state = state
	slog.Debug("Load completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("assets", len(state.Assets)))

	return nil
}

// mutate applies fn to a copy of the state and commits the copy once it is stored.
func (s *AssetStore) mutate(ctx context.Context, fn func(st *model.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	if err := s.persist(ctx, next); err != nil {
		return err
	}

	s.state = next
	return nil
}

func (s *AssetStore) persist(ctx context.Context, state model.State) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AssetStore.persist"

	data, err := storeConverter.Encode(state)
	if err != nil {
		slog.Error("failed encode state", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%w: %w", service.ErrStorage, err)
	}

	if err = s.storage.Set(ctx, s.key, data); err != nil {
		slog.Error("failed on storage.Set", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%w: %w", service.ErrStorage, err)
	}

	return nil
}

func (s *AssetStore) Add(ctx context.Context, in model.AssetInput) (model.Asset, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AssetStore.Add"

	slog.Debug("Add start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", in.Symbol), slog.String("class", string(in.Class)))

	asset, err := newAsset(in)
	if err != nil {
		return model.Asset{}, err
	}

	err = s.mutate(ctx, func(st *model.State) error {
		asset.ID = st.NextID
		st.NextID++
		st.Assets = append(st.Assets, asset)

		st.Transactions = append(st.Transactions, model.Transaction{
			ID:       st.NextID,
			Date:     s.now(),
			Symbol:   asset.Symbol,
			Type:     model.Buy,
			Quantity: asset.Quantity,
			Price:    asset.CostBasis,
			Amount:   asset.Quantity.Mul(asset.CostBasis),
			Currency: asset.Currency,
		})
		st.NextID++
		return nil
	})
	if err != nil {
		return model.Asset{}, err
	}

	slog.Info("asset added", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("id", asset.ID), slog.String("symbol", asset.Symbol))

	return asset, nil
}

func newAsset(in model.AssetInput) (model.Asset, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return model.Asset{}, fmt.Errorf("%w: symbol is required", service.ErrValidation)
	}
	if !in.Class.Valid() {
		return model.Asset{}, fmt.Errorf("%w: unknown asset class %q", service.ErrValidation, in.Class)
	}
	if !in.Quantity.IsPositive() {
		return model.Asset{}, fmt.Errorf("%w: quantity must be positive", service.ErrValidation)
	}
	if in.CostBasis.IsNegative() {
		return model.Asset{}, fmt.Errorf("%w: cost basis must not be negative", service.ErrValidation)
	}

	currency := in.Currency
	if currency == "" {
		currency = in.Class.DefaultCurrency()
	}
	if !currency.Valid() {
		return model.Asset{}, fmt.Errorf("%w: unknown currency %q", service.ErrValidation, in.Currency)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = model.LookupName(in.Class, symbol)
	}

	return model.Asset{
		Symbol:         symbol,
		Name:           name,
		Class:          in.Class,
		Quantity:       in.Quantity,
		CostBasis:      in.CostBasis,
		Currency:       currency,
		LastKnownPrice: in.CostBasis,
	}, nil
}

// Update applies patch to the asset with id. An unknown id is a no-op reported
// through found.
func (s *AssetStore) Update(ctx context.Context, id int64, patch model.AssetPatch) (asset model.Asset, found bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AssetStore.Update"

	slog.Debug("Update start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("id", id))

	if patch.Quantity != nil && !patch.Quantity.IsPositive() {
		return model.Asset{}, false, fmt.Errorf("%w: quantity must be positive", service.ErrValidation)
	}
	if patch.CostBasis != nil && patch.CostBasis.IsNegative() {
		return model.Asset{}, false, fmt.Errorf("%w: cost basis must not be negative", service.ErrValidation)
	}

	err = s.mutate(ctx, func(st *model.State) error {
		idx := indexOf(st.Assets, id)
		if idx < 0 {
			return errUnchanged
		}
		found = true
		a := &st.Assets[idx]

		if patch.Quantity != nil && !patch.Quantity.Equal(a.Quantity) {
			delta := patch.Quantity.Sub(a.Quantity)
			txType := model.Buy
			if delta.IsNegative() {
				txType = model.Sell
			}
			st.Transactions = append(st.Transactions, model.Transaction{
				ID:       st.NextID,
				Date:     s.now(),
				Symbol:   a.Symbol,
				Type:     txType,
				Quantity: delta.Abs(),
				Price:    a.LastKnownPrice,
				Amount:   delta.Abs().Mul(a.LastKnownPrice),
				Currency: a.Currency,
			})
			st.NextID++
			a.Quantity = *patch.Quantity
		}
		if patch.CostBasis != nil {
			a.CostBasis = *patch.CostBasis
		}
		if patch.Name != nil {
			a.Name = strings.TrimSpace(*patch.Name)
		}

		asset = *a
		return nil
	})
	if err != nil {
		return model.Asset{}, false, err
	}

	if !found {
		slog.Info("update of unknown asset ignored", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("id", id))
	}

	return asset, found, nil
}

// Remove deletes the asset with id. Removing an unknown id changes nothing.
func (s *AssetStore) Remove(ctx context.Context, id int64) (removed bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AssetStore.Remove"

	slog.Debug("Remove start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("id", id))

	err = s.mutate(ctx, func(st *model.State) error {
		idx := indexOf(st.Assets, id)
		if idx < 0 {
			return errUnchanged
		}
		st.Assets = append(st.Assets[:idx], st.Assets[idx+1:]...)
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return removed, nil
}

// ApplyRefresh records the outcome of a refresh: successful quotes replace the
// last known price, failed ones leave it as it was. Fallback and simulated
// values are not stored.
func (s *AssetStore) ApplyRefresh(ctx context.Context, book model.PriceBook, rate model.Rate, at time.Time) error {
	return s.mutate(ctx, func(st *model.State) error {
		for i := range st.Assets {
			q, ok := book[st.Assets[i].Ref()]
			if !ok || !q.OK() || q.Simulated {
				continue
			}
			st.Assets[i].LastKnownPrice = q.Price
			if st.Assets[i].Name == "" && q.Name != "" {
				st.Assets[i].Name = q.Name
			}
		}
		if rate.Live && !rate.Simulated && rate.Value.IsPositive() {
			st.ExchangeRate = rate.Value
		}
		st.LastUpdate = at
		return nil
	})
}

func (s *AssetStore) Export(ctx context.Context) ([]byte, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AssetStore.Export"

	s.mu.RLock()
	state := s.state.Clone()
	s.mu.RUnlock()

	data, err := storeConverter.Encode(state)
	if err != nil {
		slog.Error("failed encode state", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return data, nil
}

// Import replaces the whole state with blob. Any problem with blob leaves the
// current state untouched.
func (s *AssetStore) Import(ctx context.Context, blob []byte) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AssetStore.Import"

	slog.Debug("Import start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("bytes", len(blob)))

	imported, err := storeConverter.Decode(blob, true)
	if err != nil {
		slog.Warn("import rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%w: %s", service.ErrInvalidImport, err.Error())
	}

	err = s.mutate(ctx, func(st *model.State) error {
		*st = imported
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.warning = ""
	s.mu.Unlock()

	slog.Info("portfolio imported", slog.String("rqID", rqID), slog.String("op", op), slog.Int("assets", len(imported.Assets)), slog.Int("transactions", len(imported.Transactions)))

	return nil
}

// Warning is non-empty while the portfolio runs on defaults because Load set the
// stored document aside. A successful Import clears it.
func (s *AssetStore) Warning() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warning
}

func (s *AssetStore) State() model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *AssetStore) Assets() []model.Asset {
	return s.State().Assets
}

func (s *AssetStore) Asset(id int64) (model.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexOf(s.state.Assets, id)
	if idx < 0 {
		return model.Asset{}, false
	}
	return s.state.Assets[idx], true
}

func (s *AssetStore) LastKnownPrices() map[model.SymbolRef]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[model.SymbolRef]decimal.Decimal, len(s.state.Assets))
	for _, a := range s.state.Assets {
		res[a.Ref()] = a.LastKnownPrice
	}
	return res
}

func indexOf(assets []model.Asset, id int64) int {
	for i, a := range assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}
