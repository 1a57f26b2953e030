package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RatesResponse is the latest rate table from the rate provider.
// Every rate is relative to the same pivot currency (Base).
// decimal.Decimal accepts both JSON numbers and numeric strings.
type RatesResponse struct {
	Date  string                     `json:"date,omitempty"`
	Base  string                     `json:"base,omitempty"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// PassResult summarises one full traversal of the catalog
type PassResult struct {
	ID         string          `json:"id"`
	Rate       decimal.Decimal `json:"rate"`
	Pages      int             `json:"pages"`
	Total      int             `json:"total"`
	Scanned    int             `json:"scanned"`
	Skipped    int             `json:"skipped"`
	Scheduled  int             `json:"scheduled"`
	Updated    int             `json:"updated"`
	Failed     int             `json:"failed"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// Duration returns how long the pass took
func (r PassResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
