package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var catalog = map[AssetClass]map[string]string{
	EquityForeign: {
		"AAPL":  "Apple",
		"MSFT":  "Microsoft",
		"GOOGL": "Alphabet",
		"AMZN":  "Amazon",
		"TSLA":  "Tesla",
		"NVDA":  "NVIDIA",
		"META":  "Meta",
		"NFLX":  "Netflix",
	},
	EquityDomestic: {
		"000001": "平安银行",
		"600519": "贵州茅台",
		"000858": "五粮液",
		"600036": "招商银行",
		"601318": "中国平安",
		"600030": "中信证券",
		"000002": "万科A",
		"600000": "浦发银行",
	},
	Crypto: {
		"BTC":  "Bitcoin",
		"ETH":  "Ethereum",
		"USDT": "Tether",
		"BNB":  "BNB",
		"XRP":  "XRP",
		"ADA":  "Cardano",
		"DOGE": "Dogecoin",
		"SOL":  "Solana",
	},
}

var coingeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDT": "tether",
	"BNB":  "binancecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"SOL":  "solana",
}

// LookupName returns the display name of a well-known symbol, or "" if unknown.
func LookupName(class AssetClass, symbol string) string {
	return catalog[class][strings.ToUpper(symbol)]
}

// CoingeckoID maps a ticker to the id CoinGecko expects, defaulting to the
// lowercased ticker.
func CoingeckoID(symbol string) string {
	if id, ok := coingeckoIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DemoState is the seed portfolio used when the store is empty and demo seeding is on.
func DemoState() State {
	assets := []Asset{
		{ID: 1, Symbol: "AAPL", Name: "Apple", Class: EquityForeign, LastKnownPrice: d("175.43"), Quantity: d("10"), Currency: USD, CostBasis: d("170.00")},
		{ID: 2, Symbol: "MSFT", Name: "Microsoft", Class: EquityForeign, LastKnownPrice: d("378.85"), Quantity: d("5"), Currency: USD, CostBasis: d("350.00")},
		{ID: 3, Symbol: "BTC", Name: "Bitcoin", Class: Crypto, LastKnownPrice: d("43250.00"), Quantity: d("0.5"), Currency: USD, CostBasis: d("40000.00")},
		{ID: 4, Symbol: "ETH", Name: "Ethereum", Class: Crypto, LastKnownPrice: d("2280.00"), Quantity: d("2"), Currency: USD, CostBasis: d("2100.00")},
		{ID: 5, Symbol: "000001", Name: "平安银行", Class: EquityDomestic, LastKnownPrice: d("12.85"), Quantity: d("1000"), Currency: CNY, CostBasis: d("12.00")},
		{ID: 6, Symbol: "600519", Name: "贵州茅台", Class: EquityDomestic, LastKnownPrice: d("1678.50"), Quantity: d("10"), Currency: CNY, CostBasis: d("1600.00")},
		{ID: 7, Symbol: "TSLA", Name: "Tesla", Class: EquityForeign, LastKnownPrice: d("238.45"), Quantity: d("8"), Currency: USD, CostBasis: d("250.00")},
		{ID: 8, Symbol: "NVDA", Name: "NVIDIA", Class: EquityForeign, LastKnownPrice: d("875.28"), Quantity: d("3"), Currency: USD, CostBasis: d("800.00")},
	}

	tx := func(id int64, date, symbol, shares, price string, cur Currency) Transaction {
		t := Transaction{ID: id, Symbol: symbol, Type: Buy, Quantity: d(shares), Price: d(price), Currency: cur}
		t.Amount = t.Quantity.Mul(t.Price)
		t.Date = mustDate(date)
		return t
	}

	return State{
		Assets: assets,
		Transactions: []Transaction{
			tx(1, "2024-01-15", "AAPL", "10", "170.00", USD),
			tx(2, "2024-02-01", "MSFT", "5", "350.00", USD),
			tx(3, "2024-02-15", "BTC", "0.5", "40000.00", USD),
			tx(4, "2024-03-01", "000001", "1000", "12.00", CNY),
		},
		ExchangeRate: DefaultExchangeRate,
		NextID:       9,
	}
}
