package assetStore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/asset_tracker/data/storage"
	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = "portfolioData"

type memStorage struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
	fail   error
}

func newMemStorage() *memStorage {
	return &memStorage{data: map[string][]byte{}}
}

func (m *memStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.writes++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func newLoadedStore(t *testing.T, st *memStorage, seed bool) *AssetStore {
	t.Helper()
	s := New(st, key, seed)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestLoad_Defaults(t *testing.T) {
	s := newLoadedStore(t, newMemStorage(), false)
	assert.Empty(t, s.Assets())

	s = newLoadedStore(t, newMemStorage(), true)
	assert.Len(t, s.Assets(), 8)
	assert.Len(t, s.State().Transactions, 4)

	malformed := newMemStorage()
	malformed.data[key] = []byte(`{"assets": [{"symbol": ""}]`)
	s = newLoadedStore(t, malformed, true)
	assert.Len(t, s.Assets(), 8)
}

func TestLoad_MalformedDocumentIsSetAside(t *testing.T) {
	stored := []byte(`{"assets": [` +
		`{"id": 1, "symbol": "AAPL", "assetClass": "equity-foreign", "quantity": 10, "cost": 170},` +
		`{"id": 2, "symbol": "SAP", "assetClass": "equity-foreign", "quantity": 5, "currency": "EUR"}` +
		`], "transactions": []}`)
	st := newMemStorage()
	st.data[key] = stored

	s := newLoadedStore(t, st, false)
	assert.Empty(t, s.Assets())
	assert.Contains(t, s.Warning(), key+".malformed")
	assert.Equal(t, stored, st.data[key+".malformed"])

	// the first refresh writes the defaults, the original stays recoverable
	book := model.PriceBook{{Class: model.EquityForeign, Symbol: "AAPL"}: {Price: dec("180")}}
	require.NoError(t, s.ApplyRefresh(context.Background(), book, model.Rate{Value: dec("7.2"), Live: true}, time.Now()))
	assert.Equal(t, stored, st.data[key+".malformed"])

	require.NoError(t, s.Import(context.Background(), []byte(`{"assets": [], "transactions": []}`)))
	assert.Empty(t, s.Warning())
}

func TestLoad_MalformedDocumentNotOverwrittenWhenCopyFails(t *testing.T) {
	st := newMemStorage()
	st.data[key] = []byte(`{"assets": [{"symbol": ""}]`)
	st.fail = errors.New("read-only")

	s := New(st, key, false)
	err := s.Load(context.Background())

	assert.ErrorIs(t, err, service.ErrStorage)
	assert.Equal(t, []byte(`{"assets": [{"symbol": ""}]`), st.data[key])
	assert.Zero(t, st.writes)
}

func TestLoad_StorageFailure(t *testing.T) {
	s := New(failingGet{}, key, false)
	err := s.Load(context.Background())
	assert.ErrorIs(t, err, service.ErrStorage)
}

type failingGet struct{}

func (failingGet) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingGet) Set(context.Context, string, []byte) error {
	return errors.New("connection refused")
}

func TestAdd(t *testing.T) {
	st := newMemStorage()
	s := newLoadedStore(t, st, false)

	a, err := s.Add(context.Background(), model.AssetInput{
		Class: model.EquityForeign, Symbol: " aapl ", Quantity: dec("10"), CostBasis: dec("170"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, "Apple", a.Name)
	assert.Equal(t, model.USD, a.Currency)
	assert.True(t, dec("170").Equal(a.LastKnownPrice))
	assert.Equal(t, 1, st.writes)

	state := s.State()
	require.Len(t, state.Transactions, 1)
	assert.Equal(t, model.Buy, state.Transactions[0].Type)
	assert.True(t, dec("1700").Equal(state.Transactions[0].Amount))

	b, err := s.Add(context.Background(), model.AssetInput{
		Class: model.Fund, Symbol: "001186", Quantity: dec("1000"), CostBasis: dec("1.1"),
	})
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
	assert.Equal(t, model.CNY, b.Currency)
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   model.AssetInput
	}{
		{name: "empty symbol", in: model.AssetInput{Class: model.Crypto, Symbol: "  ", Quantity: dec("1"), CostBasis: dec("1")}},
		{name: "unknown class", in: model.AssetInput{Class: "bond", Symbol: "X", Quantity: dec("1"), CostBasis: dec("1")}},
		{name: "zero quantity", in: model.AssetInput{Class: model.Crypto, Symbol: "BTC", Quantity: decimal.Zero, CostBasis: dec("1")}},
		{name: "negative cost", in: model.AssetInput{Class: model.Crypto, Symbol: "BTC", Quantity: dec("1"), CostBasis: dec("-1")}},
		{name: "bad currency", in: model.AssetInput{Class: model.Crypto, Symbol: "BTC", Quantity: dec("1"), CostBasis: dec("1"), Currency: "EUR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMemStorage()
			s := newLoadedStore(t, st, true)
			before := s.State()

			_, err := s.Add(context.Background(), tt.in)

			assert.ErrorIs(t, err, service.ErrValidation)
			assert.Equal(t, before, s.State())
			assert.Zero(t, st.writes)
		})
	}
}

func TestUpdate(t *testing.T) {
	st := newMemStorage()
	s := newLoadedStore(t, st, true)
	ctx := context.Background()

	a, found, err := s.Update(ctx, 1, model.AssetPatch{Quantity: ptr(dec("4"))})
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, dec("4").Equal(a.Quantity))

	txs := s.State().Transactions
	last := txs[len(txs)-1]
	assert.Equal(t, model.Sell, last.Type)
	assert.True(t, dec("6").Equal(last.Quantity))
	assert.True(t, dec("175.43").Equal(last.Price))

	a, found, err = s.Update(ctx, 1, model.AssetPatch{CostBasis: ptr(dec("160")), Name: ptr(" Apple Inc ")})
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, dec("160").Equal(a.CostBasis))
	assert.Equal(t, "Apple Inc", a.Name)

	_, err = func() (model.Asset, error) {
		a, _, err := s.Update(ctx, 1, model.AssetPatch{Quantity: ptr(dec("-1"))})
		return a, err
	}()
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestUpdate_UnknownIDIsNoop(t *testing.T) {
	st := newMemStorage()
	s := newLoadedStore(t, st, true)
	before := s.State()

	_, found, err := s.Update(context.Background(), 999, model.AssetPatch{Quantity: ptr(dec("1"))})

	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, before, s.State())
	assert.Zero(t, st.writes)
}

func TestRemove(t *testing.T) {
	st := newMemStorage()
	s := newLoadedStore(t, st, true)
	ctx := context.Background()

	removed, err := s.Remove(ctx, 3)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, s.Assets(), 7)
	_, ok := s.Asset(3)
	assert.False(t, ok)

	before := s.State()
	removed, err = s.Remove(ctx, 3)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, before, s.State())
	assert.Equal(t, 1, st.writes)
}

func TestPersistFailureRollsBack(t *testing.T) {
	st := newMemStorage()
	s := newLoadedStore(t, st, true)
	before := s.State()
	st.fail = errors.New("quota exceeded")
	ctx := context.Background()

	_, err := s.Add(ctx, model.AssetInput{Class: model.Crypto, Symbol: "SOL", Quantity: dec("1"), CostBasis: dec("100")})
	assert.ErrorIs(t, err, service.ErrStorage)

	_, err = s.Remove(ctx, 1)
	assert.ErrorIs(t, err, service.ErrStorage)

	_, _, err = s.Update(ctx, 1, model.AssetPatch{Quantity: ptr(dec("1"))})
	assert.ErrorIs(t, err, service.ErrStorage)

	assert.Equal(t, before, s.State())
}

func TestApplyRefresh(t *testing.T) {
	s := newLoadedStore(t, newMemStorage(), true)
	at := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	book := model.PriceBook{
		{Class: model.EquityForeign, Symbol: "AAPL"}: {Price: dec("180")},
		{Class: model.Crypto, Symbol: "BTC"}:         {Err: externalApi.ErrTimeout},
	}
	require.NoError(t, s.ApplyRefresh(context.Background(), book, model.Rate{Value: dec("7.2"), Live: true}, at))

	aapl, _ := s.Asset(1)
	btc, _ := s.Asset(3)
	assert.True(t, dec("180").Equal(aapl.LastKnownPrice))
	assert.True(t, dec("43250").Equal(btc.LastKnownPrice))
	assert.True(t, dec("7.2").Equal(s.State().ExchangeRate))
	assert.Equal(t, at, s.State().LastUpdate)

	require.NoError(t, s.ApplyRefresh(context.Background(), nil, model.Rate{Value: model.DefaultExchangeRate}, at))
	assert.True(t, dec("7.2").Equal(s.State().ExchangeRate))
}

func TestApplyRefresh_SimulatedValuesAreNotStored(t *testing.T) {
	s := newLoadedStore(t, newMemStorage(), true)
	before, _ := s.Asset(1)

	book := model.PriceBook{{Class: model.EquityForeign, Symbol: "AAPL"}: {Price: dec("999"), Simulated: true}}
	rate := model.Rate{Value: dec("6.9"), Live: true, Simulated: true}
	require.NoError(t, s.ApplyRefresh(context.Background(), book, rate, time.Now()))

	aapl, _ := s.Asset(1)
	assert.True(t, before.LastKnownPrice.Equal(aapl.LastKnownPrice))
	assert.True(t, model.DemoState().ExchangeRate.Equal(s.State().ExchangeRate))
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newLoadedStore(t, newMemStorage(), true)
	_, err := src.Add(context.Background(), model.AssetInput{Class: model.Fund, Symbol: "001186", Quantity: dec("1000.5"), CostBasis: dec("1.1")})
	require.NoError(t, err)

	blob, err := src.Export(context.Background())
	require.NoError(t, err)

	dst := newLoadedStore(t, newMemStorage(), false)
	require.NoError(t, dst.Import(context.Background(), blob))

	want, got := src.Assets(), dst.Assets()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Symbol, got[i].Symbol)
		assert.True(t, want[i].Quantity.Equal(got[i].Quantity))
		assert.True(t, want[i].CostBasis.Equal(got[i].CostBasis))
	}

	next, err := dst.Add(context.Background(), model.AssetInput{Class: model.Crypto, Symbol: "SOL", Quantity: dec("1"), CostBasis: dec("100")})
	require.NoError(t, err)
	for _, a := range want {
		assert.NotEqual(t, a.ID, next.ID)
	}
}

func TestImport_MalformedLeavesStateUntouched(t *testing.T) {
	st := newMemStorage()
	s := newLoadedStore(t, st, true)
	before := s.State()

	for _, blob := range []string{`not json`, `{"assets": []}`, `{"transactions": []}`, `{"assets": [{"symbol": ""}], "transactions": []}`} {
		err := s.Import(context.Background(), []byte(blob))
		assert.ErrorIs(t, err, service.ErrInvalidImport, blob)
	}

	assert.Equal(t, before, s.State())
	assert.Zero(t, st.writes)
}

func TestStateSurvivesReload(t *testing.T) {
	st := newMemStorage()
	s := newLoadedStore(t, st, false)
	_, err := s.Add(context.Background(), model.AssetInput{Class: model.Crypto, Symbol: "ETH", Quantity: dec("2"), CostBasis: dec("2100")})
	require.NoError(t, err)

	reloaded := newLoadedStore(t, st, true)

	require.Len(t, reloaded.Assets(), 1)
	assert.Equal(t, "ETH", reloaded.Assets()[0].Symbol)
	assert.Equal(t, s.State().NextID, reloaded.State().NextID)
}

func TestStateReturnsCopies(t *testing.T) {
	s := newLoadedStore(t, newMemStorage(), true)

	assets := s.Assets()
	assets[0].Symbol = "CHANGED"

	assert.Equal(t, "AAPL", s.Assets()[0].Symbol)
}
