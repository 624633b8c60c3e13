package htmlRenderer

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/renderer/moneyFormat"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templates embed.FS

var dashboardTpl = template.Must(template.ParseFS(templates, "templates/dashboard.html"))

var classTitles = map[model.AssetClass]string{
	model.EquityForeign:  "Foreign equity",
	model.EquityDomestic: "A-shares",
	model.Crypto:         "Crypto",
	model.Fund:           "Funds",
}

type Tab struct {
	Class  model.AssetClass
	Title  string
	Count  int
	Total  string
	Active bool
}

type Row struct {
	ID            int64
	Symbol        string
	Name          string
	Class         string
	Price         string
	PriceStatus   string
	PriceError    string
	Quantity      string
	Value         string
	Cost          string
	Profit        string
	ProfitPercent string
	Trend         string
}

type Status struct {
	Text  string
	Class string
}

type ClassOption struct {
	Value string
	Title string
}

// Dashboard is a fully formatted view of a snapshot. Templates only print its fields.
type Dashboard struct {
	TotalUSD   string
	TotalCNY   string
	TotalInUSD string
	TotalInCNY string
	RateLine   string
	UpdatedAt  string
	Status     Status
	Tabs       []Tab
	ActiveTab  string
	Rows       []Row
	Empty      bool
	Classes    []ClassOption
	Flash      string
	FlashError bool
}

// NewDashboard formats snapshot for the tab class. An invalid tab selects the first class.
func NewDashboard(snapshot model.Snapshot, status model.RefreshStatus, tab model.AssetClass) Dashboard {
	if !tab.Valid() {
		tab = model.AssetClasses[0]
	}

	d := Dashboard{
		TotalUSD:   moneyFormat.Money(snapshot.TotalUSD, model.USD),
		TotalCNY:   moneyFormat.Money(snapshot.TotalCNY, model.CNY),
		TotalInUSD: moneyFormat.Money(snapshot.TotalInUSD, model.USD),
		TotalInCNY: moneyFormat.Money(snapshot.TotalInCNY, model.CNY),
		RateLine:   moneyFormat.RateLine(snapshot.ExchangeRate),
		Status:     newStatus(status),
		ActiveTab:  string(tab),
	}
	if !snapshot.UpdatedAt.IsZero() {
		d.UpdatedAt = snapshot.UpdatedAt.Local().Format(time.DateTime)
	}

	for _, summary := range snapshot.Classes {
		total := moneyFormat.Subtotal(summary.TotalUSD, summary.TotalCNY, summary.Class.DefaultCurrency())
		d.Tabs = append(d.Tabs, Tab{
			Class:  summary.Class,
			Title:  classTitles[summary.Class],
			Count:  summary.Count,
			Total:  total,
			Active: summary.Class == tab,
		})
	}

	for _, class := range model.AssetClasses {
		d.Classes = append(d.Classes, ClassOption{Value: string(class), Title: classTitles[class]})
	}

	for _, v := range snapshot.ByClass(tab) {
		d.Rows = append(d.Rows, newRow(v))
	}
	d.Empty = len(d.Rows) == 0

	return d
}

// WithFlash returns a copy of d showing msg above the dashboard.
func (d Dashboard) WithFlash(msg string, isError bool) Dashboard {
	d.Flash = msg
	d.FlashError = isError
	return d
}

func Render(w io.Writer, d Dashboard) error {
	if err := dashboardTpl.Execute(w, d); err != nil {
		return fmt.Errorf("failed on dashboardTpl.Execute: %w", err)
	}
	return nil
}

func newRow(v model.AssetValuation) Row {
	cur := v.Asset.Currency
	return Row{
		ID:            v.Asset.ID,
		Symbol:        v.Asset.Symbol,
		Name:          v.Asset.Name,
		Class:         classTitles[v.Asset.Class],
		Price:         moneyFormat.Price(v.Price, cur),
		PriceStatus:   string(v.PriceStatus),
		PriceError:    v.PriceError,
		Quantity:      v.Asset.Quantity.String(),
		Value:         moneyFormat.Money(v.CurrentValue, cur),
		Cost:          moneyFormat.Money(v.CostValue, cur),
		Profit:        moneyFormat.SignedMoney(v.Profit, cur),
		ProfitPercent: moneyFormat.SignedPercent(v.ProfitPercent),
		Trend:         trendClass(v.Profit),
	}
}

func newStatus(s model.RefreshStatus) Status {
	switch {
	case s.State == model.Fetching:
		return Status{Text: "Refreshing prices", Class: "status-busy"}
	case s.StoreWarning != "":
		return Status{Text: s.StoreWarning, Class: "status-error"}
	case s.LastRun.IsZero():
		return Status{Text: "Waiting for the first refresh", Class: "status-busy"}
	case s.LastError != "":
		return Status{Text: "Refresh failed: " + s.LastError, Class: "status-error"}
	case s.Simulated:
		return Status{Text: "Simulated prices, not market data", Class: "status-sim"}
	case s.Connected():
		return Status{Text: "Connected", Class: "status-ok"}
	}

	text := fmt.Sprintf("%d quote(s) unavailable", s.FailedQuotes)
	if !s.RateLive {
		text = "Exchange rate unavailable, using fallback"
		if s.FailedQuotes > 0 {
			text = fmt.Sprintf("%d quote(s) and exchange rate unavailable", s.FailedQuotes)
		}
	}
	return Status{Text: text, Class: "status-warn"}
}

func trendClass(profit decimal.Decimal) string {
	switch profit.Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	}
	return "flat"
}
