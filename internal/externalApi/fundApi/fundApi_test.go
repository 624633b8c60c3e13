package fundApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/internal/externalApi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, body string) *FundApi {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/js/001186.js", r.URL.Path)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{API: config.API{
		Timeout: time.Second,
		FundApi: config.FundApi{Url: srv.URL},
	}}
	return New(cfg)
}

func TestGetNav(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantPrice string
		wantErr   error
	}{
		{
			name:      "estimate",
			body:      `jsonpgz({"fundcode":"001186","name":"Fund","jzrq":"2024-03-01","dwjz":"1.2345","gsz":"1.2400","gszzl":"0.45","gztime":"2024-03-04 15:00"});`,
			wantPrice: "1.24",
		},
		{
			name:      "no estimate falls back to nav",
			body:      `jsonpgz({"fundcode":"001186","name":"Fund","jzrq":"2024-03-01","dwjz":"1.2345","gsz":"","gszzl":"","gztime":""});`,
			wantPrice: "1.2345",
		},
		{name: "unknown fund", body: `jsonpgz();`, wantErr: externalApi.ErrNotFound},
		{name: "html error page", body: `<html></html>`, wantErr: externalApi.ErrParse},
		{name: "no numbers", body: `jsonpgz({"fundcode":"001186","dwjz":"","gsz":""});`, wantErr: externalApi.ErrParse},
		{name: "zero nav", body: `jsonpgz({"fundcode":"001186","dwjz":"0.0000","gsz":"0"});`, wantErr: externalApi.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestApi(t, tt.body)

			nav, err := api.GetNav(context.Background(), "001186")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantPrice).Equal(nav.Price), nav.Price.String())
			assert.Equal(t, "001186", nav.Code)
		})
	}
}
