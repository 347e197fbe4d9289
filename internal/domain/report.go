package domain

import "github.com/shopspring/decimal"

// Period names a reporting window relative to the current instant.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// SalesReport aggregates the transactions of one window.
type SalesReport struct {
	Period       Period          `json:"period"`
	TotalSales   decimal.Decimal `json:"totalSales"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
	Transactions []*Transaction  `json:"transactions"`
}

// ProfitSeries holds parallel per-line-item price arrays for charting.
type ProfitSeries struct {
	SellingPrices []decimal.Decimal `json:"sellingPrices"`
	CostPrices    []decimal.Decimal `json:"costPrices"`
}

// TransactionProfit pairs a sale with the margin it realised.
type TransactionProfit struct {
	Transaction *Transaction    `json:"transaction"`
	Profit      decimal.Decimal `json:"profit"`
}

// SalesTotal is the plain revenue of a window.
type SalesTotal struct {
	Period     Period          `json:"period"`
	TotalSales decimal.Decimal `json:"totalSales"`
}
