package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostResult is an aggregated cost over a date range.
type CostResult struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Amount Money     `json:"amount"`
}

// DailyCost is the spend for a single calendar day. Sequences of DailyCost
// are always ordered chronologically with the most recent day last.
type DailyCost struct {
	Date   time.Time `json:"date"`
	Amount Money     `json:"amount"`
}

// ServiceCost is one service's share of the month's spend.
type ServiceCost struct {
	Service        string          `json:"service"`
	Amount         Money           `json:"amount"`
	PercentOfTotal decimal.Decimal `json:"percent_of_total"`
}

// ServiceBreakdown holds the top services by cost, sorted descending by
// amount with ties kept in original API order.
type ServiceBreakdown struct {
	Total    Money         `json:"total"`
	Services []ServiceCost `json:"services"`
}

// CreditUsage is the absolute value of credit and discount line items
// applied so far this month.
type CreditUsage struct {
	Used Money `json:"credits_used"`
}

// WeekOverWeek compares this week's spend (Monday through today) against the
// same elapsed days of the previous week. ChangePercent is nil when last
// week's spend is zero or this week has no elapsed days.
type WeekOverWeek struct {
	ThisWeek      Money            `json:"this_week"`
	LastWeek      Money            `json:"last_week"`
	ChangePercent *decimal.Decimal `json:"change_percent,omitempty"`
}
