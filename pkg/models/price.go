// Package models defines the core data structures shared by the report pipeline.
package models

import (
	"time"

	"github.com/seenimoa/marketbrief/pkg/utils"
)

// PriceRecord is a point-in-time price delta for one ticker.
// All numeric fields are rounded to 2 decimals when the record is built.
type PriceRecord struct {
	Ticker        string  `json:"ticker"`
	LastClose     float64 `json:"last_close"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
}

// NewPriceRecord builds a PriceRecord from the latest price and the reference
// price it is compared against. ref must be non-zero. The percentage is taken
// from the rounded change, so a move that rounds to zero cents reports 0%.
func NewPriceRecord(ticker string, last, ref float64) PriceRecord {
	change := utils.Round2(last - ref)
	return PriceRecord{
		Ticker:        ticker,
		LastClose:     utils.Round2(last),
		Change:        change,
		PercentChange: utils.Round2(change / ref * 100),
	}
}

// Tickers returns the ticker symbols of records, in order.
func Tickers(records []PriceRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Ticker
	}
	return out
}

// Session is a single daily bar from a price history.
type Session struct {
	Date  time.Time
	Open  float64
	Close float64
}
