package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Snapshot(ctx context.Context) model.Snapshot {
	return m.Called(ctx).Get(0).(model.Snapshot)
}

func (m *mockService) Status() model.RefreshStatus {
	return m.Called().Get(0).(model.RefreshStatus)
}

func (m *mockService) Refresh(ctx context.Context) (model.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Snapshot), args.Error(1)
}

func (m *mockService) AddAsset(ctx context.Context, in model.AssetInput) (model.Asset, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.Asset), args.Error(1)
}

func (m *mockService) EditQuantity(ctx context.Context, id int64, quantity decimal.Decimal) (model.Asset, bool, error) {
	args := m.Called(ctx, id, quantity.String())
	return args.Get(0).(model.Asset), args.Bool(1), args.Error(2)
}

func (m *mockService) RemoveAsset(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockService) Export(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockService) Import(ctx context.Context, blob []byte) error {
	return m.Called(ctx, string(blob)).Error(0)
}

func (m *mockService) Report(ctx context.Context) ([]byte, string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func newTestRouter(svc *mockService) http.Handler {
	cfg := &config.Config{HTTP: config.HTTP{MaxImportBytes: 1024}}
	return NewRouter(cfg, svc)
}

// withDashboard lets failing form posts render the dashboard.
func withDashboard(svc *mockService) {
	svc.On("Snapshot", mock.Anything).Return(model.Snapshot{}).Maybe()
	svc.On("Status").Return(model.RefreshStatus{}).Maybe()
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDashboard(t *testing.T) {
	svc := &mockService{}
	state := model.DemoState()
	svc.On("Snapshot", mock.Anything).Return(model.Snapshot{
		Assets:       []model.AssetValuation{{Asset: state.Assets[0], Price: decimal.NewFromInt(1)}},
		ExchangeRate: decimal.RequireFromString("7.15"),
	})
	svc.On("Status").Return(model.RefreshStatus{})

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?tab=equity-foreign&flash=Hello", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 USD = 7.1500 CNY")
	assert.Contains(t, rec.Body.String(), "AAPL")
	assert.Contains(t, rec.Body.String(), "Hello")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAddAsset_Form(t *testing.T) {
	svc := &mockService{}
	svc.On("AddAsset", mock.Anything, mock.MatchedBy(func(in model.AssetInput) bool {
		return in.Symbol == "BTC" && in.Class == model.Crypto && in.Quantity.Equal(decimal.RequireFromString("0.5"))
	})).Return(model.Asset{ID: 9, Symbol: "BTC", Class: model.Crypto}, nil)

	rec := httptest.NewRecorder()
	form := url.Values{"class": {"crypto"}, "symbol": {"BTC"}, "quantity": {"0.5"}, "cost": {"40000"}}
	newTestRouter(svc).ServeHTTP(rec, postForm("/assets", form))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "tab=crypto")
	svc.AssertExpectations(t)
}

func TestAddAsset_InvalidInputIsNotStored(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{name: "missing symbol", form: url.Values{"class": {"crypto"}, "quantity": {"1"}, "cost": {"1"}}},
		{name: "non numeric quantity", form: url.Values{"class": {"crypto"}, "symbol": {"BTC"}, "quantity": {"abc"}, "cost": {"1"}}},
		{name: "unknown class", form: url.Values{"class": {"bonds"}, "symbol": {"X"}, "quantity": {"1"}, "cost": {"1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			withDashboard(svc)

			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, postForm("/assets", tt.form))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "AddAsset", mock.Anything, mock.Anything)
		})
	}
}

func TestAddAsset_JSON(t *testing.T) {
	svc := &mockService{}
	svc.On("AddAsset", mock.Anything, mock.Anything).Return(model.Asset{ID: 3, Symbol: "AAPL"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/assets",
		strings.NewReader(`{"class":"equity-foreign","symbol":"AAPL","quantity":10,"cost":"170.00"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var asset model.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asset))
	assert.Equal(t, int64(3), asset.ID)
}

func TestEditQuantity(t *testing.T) {
	svc := &mockService{}
	withDashboard(svc)
	svc.On("EditQuantity", mock.Anything, int64(1), "12").Return(model.Asset{ID: 1, Symbol: "AAPL", Quantity: decimal.NewFromInt(12)}, true, nil)
	svc.On("EditQuantity", mock.Anything, int64(42), "1").Return(model.Asset{}, false, nil)

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, postForm("/assets/1/quantity", url.Values{"quantity": {"12"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, postForm("/assets/42/quantity", url.Values{"quantity": {"1"}, "tab": {"fund"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?tab=fund", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, postForm("/assets/x/quantity", url.Values{"quantity": {"1"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormPost_AcceptJSON(t *testing.T) {
	svc := &mockService{}
	svc.On("AddAsset", mock.Anything, mock.MatchedBy(func(in model.AssetInput) bool {
		return in.Symbol == "BTC" && in.Class == model.Crypto
	})).Return(model.Asset{ID: 9, Symbol: "BTC", Class: model.Crypto}, nil)
	svc.On("EditQuantity", mock.Anything, int64(9), "2").Return(model.Asset{ID: 9, Symbol: "BTC", Quantity: decimal.NewFromInt(2)}, true, nil)

	req := postForm("/assets", url.Values{"class": {"crypto"}, "symbol": {"BTC"}, "quantity": {"0.5"}, "cost": {"40000"}})
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"symbol":"BTC"`)

	req = postForm("/assets/9/quantity", url.Values{"quantity": {"2"}})
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.AssertExpectations(t)
}

func TestRemoveAsset_UnknownIDIsNoop(t *testing.T) {
	svc := &mockService{}
	svc.On("RemoveAsset", mock.Anything, int64(42)).Return(false, nil)

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, postForm("/assets/42/delete", url.Values{"tab": {"crypto"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?tab=crypto", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodPost, "/assets/42/delete", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unchanged")
}

func TestRequestIDIsEchoed(t *testing.T) {
	svc := &mockService{}
	svc.On("Status").Return(model.RefreshStatus{})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-Request-Id", "rq-123")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rq-123", rec.Header().Get("X-Request-Id"))
}

func TestRemoveAsset_StoreFailure(t *testing.T) {
	svc := &mockService{}
	svc.On("RemoveAsset", mock.Anything, int64(1)).Return(false, fmt.Errorf("%w: disk full", service.ErrStorage))

	req := httptest.NewRequest(http.MethodPost, "/assets/1/delete", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk full")
}

func TestRefresh(t *testing.T) {
	svc := &mockService{}
	svc.On("Refresh", mock.Anything).Return(model.Snapshot{FailedQuotes: 2}, nil)

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, postForm("/refresh", url.Values{"tab": {"fund"}}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "fund", loc.Query().Get("tab"))
	assert.Contains(t, loc.Query().Get("flash"), "2 quote(s) unavailable")
}

func TestExport(t *testing.T) {
	svc := &mockService{}
	svc.On("Export", mock.Anything).Return([]byte(`{"assets":[]}`), nil)

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "investment-portfolio.json")
	assert.Equal(t, `{"assets":[]}`, rec.Body.String())
}

func TestImport_Multipart(t *testing.T) {
	svc := &mockService{}
	svc.On("Import", mock.Anything, `{"assets":[],"transactions":[]}`).Return(nil)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "portfolio.json")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(`{"assets":[],"transactions":[]}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	svc.AssertExpectations(t)
}

func TestImport_Rejected(t *testing.T) {
	svc := &mockService{}
	svc.On("Import", mock.Anything, `{"assets":[]}`).Return(fmt.Errorf("%w: missing transactions", service.ErrInvalidImport))

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(`{"assets":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing transactions")
}

func TestImport_TooLarge(t *testing.T) {
	svc := &mockService{}

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(strings.Repeat("x", 2048)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Import", mock.Anything, mock.Anything)
}

func TestReport(t *testing.T) {
	svc := &mockService{}
	svc.On("Report", mock.Anything).Return([]byte("xlsx"), ".xlsx", nil)

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "portfolio.xlsx")
}
