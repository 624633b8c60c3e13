package xslsxGenerator

import (
	"bytes"
	"context"
	"testing"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/valuation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerate(t *testing.T) {
	state := model.DemoState()
	snap := valuation.Valuate(valuation.Input{Assets: state.Assets, Rate: model.Rate{Value: state.ExchangeRate}})

	data, ext, err := New().Generate(context.Background(), snap, state.Transactions)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{holdingsSheet, transactionsSheet}, f.GetSheetList())

	symbol, err := f.GetCellValue(holdingsSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)

	rows, err := f.GetRows(transactionsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, len(state.Transactions)+1)
	assert.Equal(t, "2024-01-15 00:00", rows[1][0])
}
