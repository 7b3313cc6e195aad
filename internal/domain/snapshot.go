package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time record of total portfolio value and invested
// capital, keyed by a caller-supplied date string. Used for historical
// charting; nothing is computed on it beyond storage and retrieval.
type Snapshot struct {
	ID            uuid.UUID
	Date          string
	TotalValue    decimal.Decimal
	TotalInvested decimal.Decimal
	CreatedAt     time.Time
}
