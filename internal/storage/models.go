package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status values for a computed rate statistic. LOW means the current
// rate sits strictly below the trailing average.
const (
	StatusLow  = "LOW"
	StatusHigh = "HIGH"
)

// RateStat is one computed statistic for a currency pair. Rows are
// append-only; history is keyed by (base, target, calculated_at).
type RateStat struct {
	ID           int64
	Base         string
	Target       string
	CurrentRate  decimal.Decimal
	Avg3Y        decimal.Decimal
	Status       string
	CalculatedAt time.Time
}

// User is an external account record; this service only reads them.
type User struct {
	ID    int64
	Email string
}
