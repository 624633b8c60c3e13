package telebotConverter

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/model/tgCallback"
	"github.com/KotFed0t/asset_tracker/internal/renderer/moneyFormat"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	tele "gopkg.in/telebot.v4"
)

const HelpText = `Commands:
/portfolio [class] - portfolio overview or one class
/refresh - fetch prices now
/add <class> <symbol> <quantity> <cost> [currency] - add an asset
/edit <id> <quantity> - change quantity
/remove <id> - delete an asset
/export - portfolio JSON
/report - Excel report

Classes: equity-foreign, equity-domestic, crypto, fund`

var classTitles = map[model.AssetClass]string{
	model.EquityForeign:  "US",
	model.EquityDomestic: "A-share",
	model.Crypto:         "Crypto",
	model.Fund:           "Fund",
}

// PortfolioResponse renders the totals and either the class overview (class == "")
// or the holdings of one class. Text is meant for tele.ModeHTML.
func PortfolioResponse(snapshot model.Snapshot, status model.RefreshStatus, class model.AssetClass) (msg string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 <b>Total: %s / %s</b>\n",
		html.EscapeString(moneyFormat.Money(snapshot.TotalInUSD, model.USD)),
		html.EscapeString(moneyFormat.Money(snapshot.TotalInCNY, model.CNY))))
	sb.WriteString(fmt.Sprintf("💱 %s\n", moneyFormat.RateLine(snapshot.ExchangeRate)))
	sb.WriteString(statusLine(status) + "\n\n")

	if class.Valid() {
		sb.WriteString(fmt.Sprintf("<b>%s</b>\n", classTitles[class]))
		assets := snapshot.ByClass(class)
		if len(assets) == 0 {
			sb.WriteString("no assets yet")
		} else {
			sb.WriteString("<pre>" + html.EscapeString(holdingsTable(assets)) + "</pre>")
		}
	} else {
		sb.WriteString("<pre>" + html.EscapeString(overviewTable(snapshot)) + "</pre>")
	}

	classBtns := make([]tele.Btn, 0, len(model.AssetClasses))
	for _, c := range model.AssetClasses {
		classBtns = append(classBtns, markup.Data(classTitles[c], tgCallback.ShowClass, string(c)))
	}
	markup.Inline(
		markup.Row(classBtns...),
		markup.Row(
			markup.Data("📋 Overview", tgCallback.ShowClass, ""),
			markup.Data("🔄 Refresh", tgCallback.Refresh, string(class)),
		),
	)

	return sb.String(), markup
}

func overviewTable(snapshot model.Snapshot) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Class", "#", "Value"})
	for _, summary := range snapshot.Classes {
		value := moneyFormat.Subtotal(summary.TotalUSD, summary.TotalCNY, summary.Class.DefaultCurrency())
		t.AppendRow(table.Row{classTitles[summary.Class], summary.Count, value})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return t.Render()
}

func holdingsTable(assets []model.AssetValuation) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Symbol", "Qty", "Price", "Value", "P/L"})
	for _, v := range assets {
		price := moneyFormat.Price(v.Price, v.Asset.Currency)
		switch v.PriceStatus {
		case model.PriceStale, model.PriceUnknown:
			price += "*"
		case model.PriceSimulated:
			price += "~"
		}
		t.AppendRow(table.Row{
			v.Asset.ID,
			v.Asset.Symbol,
			v.Asset.Quantity.String(),
			price,
			moneyFormat.Money(v.CurrentValue, v.Asset.Currency),
			moneyFormat.SignedPercent(v.ProfitPercent),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return t.Render()
}

func statusLine(s model.RefreshStatus) string {
	switch {
	case s.StoreWarning != "":
		return "❌ " + html.EscapeString(s.StoreWarning)
	case s.LastRun.IsZero():
		return "⏳ waiting for the first refresh"
	case s.LastError != "":
		return "❌ refresh failed: " + html.EscapeString(s.LastError)
	case s.Simulated:
		return "🧪 simulated prices, updated " + s.LastRun.Local().Format("15:04:05")
	case s.Connected():
		return "🟢 connected, updated " + s.LastRun.Local().Format("15:04:05")
	}
	parts := make([]string, 0, 2)
	if s.FailedQuotes > 0 {
		parts = append(parts, strconv.Itoa(s.FailedQuotes)+" quote(s) unavailable")
	}
	if !s.RateLive {
		parts = append(parts, "fallback exchange rate")
	}
	return "🟡 " + strings.Join(parts, ", ")
}

func AssetSavedResponse(asset model.Asset) string {
	return fmt.Sprintf("✅ #%d %s %s: %s @ %s",
		asset.ID, asset.Symbol, classTitles[asset.Class], asset.Quantity.String(),
		moneyFormat.Price(asset.CostBasis, asset.Currency))
}

func RemoveConfirmResponse(asset model.Asset) (msg string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	id := strconv.FormatInt(asset.ID, 10)
	markup.Inline(markup.Row(
		markup.Data("🗑 Delete", tgCallback.ConfirmRemove, id),
		markup.Data("Cancel", tgCallback.CancelRemove, id),
	))
	return fmt.Sprintf("Delete #%d %s (%s)?", asset.ID, asset.Symbol, asset.Quantity.String()), markup
}
