package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/xuri/excelize/v2"
)

const (
	holdingsSheet     = "Holdings"
	transactionsSheet = "Transactions"
	dateLayout        = "2006-01-02 15:04"
)

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate builds a workbook with the valued holdings and the transaction history.
func (g *XSLSXGenerator) Generate(ctx context.Context, snapshot model.Snapshot, transactions []model.Transaction) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("assets", len(snapshot.Assets)))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err = f.SetSheetName("Sheet1", holdingsSheet); err != nil {
		return nil, "", err
	}
	if err = g.fillHoldings(f, snapshot); err != nil {
		slog.Error("failed fill holdings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if _, err = f.NewSheet(transactionsSheet); err != nil {
		return nil, "", err
	}
	if err = g.fillTransactions(f, transactions); err != nil {
		slog.Error("failed fill transactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
}

func writeHeader(f *excelize.File, sheet string, row int, color string, titles ...string) error {
	styleID, err := headerStyle(f, color)
	if err != nil {
		return err
	}
	for i, title := range titles {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err = f.SetCellStr(sheet, cell, title); err != nil {
			return err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(titles), row)
	return f.SetCellStyle(sheet, first, last, styleID)
}

func (g *XSLSXGenerator) fillHoldings(f *excelize.File, snapshot model.Snapshot) error {
	sheet := holdingsSheet

	err := writeHeader(f, sheet, 1, "#cfe2f3",
		"symbol", "name", "class", "currency", "quantity", "cost basis", "price", "price status",
		"value", "cost", "profit", "profit %",
	)
	if err != nil {
		return err
	}

	row := 2
	for _, v := range snapshot.Assets {
		a := v.Asset
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), a.Symbol)
		_ = f.SetCellStr(sheet, fmt.Sprintf("B%d", row), a.Name)
		_ = f.SetCellStr(sheet, fmt.Sprintf("C%d", row), string(a.Class))
		_ = f.SetCellStr(sheet, fmt.Sprintf("D%d", row), string(a.Currency))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), a.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), a.CostBasis.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), v.Price.InexactFloat64())
		_ = f.SetCellStr(sheet, fmt.Sprintf("H%d", row), string(v.PriceStatus))
		_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), v.CurrentValue.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("J%d", row), v.CostValue.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("K%d", row), v.Profit.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("L%d", row), v.ProfitPercent.Round(2).InexactFloat64())
		row++
	}

	// totals
	row++
	if err = writeHeader(f, sheet, row, "#d9ead3", "total USD", "total CNY", "total in USD", "total in CNY", "USD/CNY"); err != nil {
		return err
	}
	row++
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), snapshot.TotalUSD.InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), snapshot.TotalCNY.InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), snapshot.TotalInUSD.Round(2).InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), snapshot.TotalInCNY.Round(2).InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), snapshot.ExchangeRate.InexactFloat64())

	return nil
}

func (g *XSLSXGenerator) fillTransactions(f *excelize.File, transactions []model.Transaction) error {
	sheet := transactionsSheet

	err := writeHeader(f, sheet, 1, "#cccccc", "date", "symbol", "type", "quantity", "price", "amount", "currency")
	if err != nil {
		return err
	}

	for i, tx := range transactions {
		row := i + 2
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.Format(dateLayout)
		}
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), date)
		_ = f.SetCellStr(sheet, fmt.Sprintf("B%d", row), tx.Symbol)
		_ = f.SetCellStr(sheet, fmt.Sprintf("C%d", row), string(tx.Type))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), tx.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), tx.Price.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), tx.Amount.InexactFloat64())
		_ = f.SetCellStr(sheet, fmt.Sprintf("G%d", row), string(tx.Currency))
	}

	return nil
}
