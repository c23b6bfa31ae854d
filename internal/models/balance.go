package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalancePoint is one point of a derived balance time series. Series are
// run-length collapsed: a missing date means "same balance as the previous
// point".
type BalancePoint struct {
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// AccountBalanceSeries pairs an account with its collapsed balance series,
// as returned by the multi-account over-time computation.
type AccountBalanceSeries struct {
	Account Account        `json:"account"`
	Points  []BalancePoint `json:"points"`
}
