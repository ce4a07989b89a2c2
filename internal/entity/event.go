package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick is one observed trade, normalized by a price source adapter.
type PriceTick struct {
	Ticker    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// NewsEvent is one article or post that mentions at least one tracked ticker.
// ArticleID is a content hash of the source identifier and is the idempotency key.
type NewsEvent struct {
	ArticleID string
	Title     string
	Timestamp time.Time
	Sentiment *float64
	Mentions  []string
}
