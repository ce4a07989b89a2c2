package bus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"market-attention/internal/entity"
	"market-attention/pkg/common"

	"github.com/shopspring/decimal"
)

// ErrMalformedEntry marks a stream entry that can never be processed.
var ErrMalformedEntry = errors.New("malformed stream entry")

// NewsEntry is one decoded entry of the news stream: either an article or a mention.
type NewsEntry struct {
	Table     string
	ArticleID string
	Title     string
	Timestamp time.Time
	Ticker    string
}

// EncodePrice renders a tick as flat stream fields; numbers travel as text.
func EncodePrice(tick entity.PriceTick) map[string]interface{} {
	return map[string]interface{}{
		"ticker":    tick.Ticker,
		"price":     tick.Price.String(),
		"quantity":  tick.Quantity.String(),
		"timestamp": tick.Timestamp.UTC().Format(common.PriceTimestampLayout),
	}
}

// EncodeArticle renders the article entry of a news event.
func EncodeArticle(event entity.NewsEvent) map[string]interface{} {
	return map[string]interface{}{
		"table":      common.NewsTableArticle,
		"article_id": event.ArticleID,
		"title":      event.Title,
		"timestamp":  event.Timestamp.UTC().Format(time.RFC3339),
	}
}

// EncodeMention renders one mention entry of a news event.
func EncodeMention(articleID, ticker string) map[string]interface{} {
	return map[string]interface{}{
		"table":      common.NewsTableMention,
		"article_id": articleID,
		"ticker":     ticker,
	}
}

// DecodePrice parses a price stream entry.
func DecodePrice(values map[string]interface{}) (entity.PriceTick, error) {
	var tick entity.PriceTick

	ticker, err := field(values, "ticker")
	if err != nil {
		return tick, err
	}
	priceText, err := field(values, "price")
	if err != nil {
		return tick, err
	}
	quantityText, err := field(values, "quantity")
	if err != nil {
		return tick, err
	}
	tsText, err := field(values, "timestamp")
	if err != nil {
		return tick, err
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil || !price.IsPositive() {
		return tick, fmt.Errorf("%w: invalid price %q", ErrMalformedEntry, priceText)
	}
	quantity, err := decimal.NewFromString(quantityText)
	if err != nil || quantity.IsNegative() {
		return tick, fmt.Errorf("%w: invalid quantity %q", ErrMalformedEntry, quantityText)
	}
	ts, err := time.ParseInLocation(common.PriceTimestampLayout, tsText, time.UTC)
	if err != nil {
		return tick, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedEntry, tsText)
	}

	tick.Ticker = ticker
	tick.Price = price
	tick.Quantity = quantity
	tick.Timestamp = ts
	return tick, nil
}

// DecodeNews parses a news stream entry, dispatching on its "table" field.
func DecodeNews(values map[string]interface{}) (NewsEntry, error) {
	var entry NewsEntry

	table, err := field(values, "table")
	if err != nil {
		return entry, err
	}
	articleID, err := field(values, "article_id")
	if err != nil {
		return entry, err
	}
	entry.Table = table
	entry.ArticleID = articleID

	switch table {
	case common.NewsTableArticle:
		title, err := field(values, "title")
		if err != nil {
			return entry, err
		}
		tsText, err := field(values, "timestamp")
		if err != nil {
			return entry, err
		}
		ts, err := parseArticleTime(tsText)
		if err != nil {
			return entry, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedEntry, tsText)
		}
		entry.Title = title
		entry.Timestamp = ts.UTC()
	case common.NewsTableMention:
		ticker, err := field(values, "ticker")
		if err != nil {
			return entry, err
		}
		entry.Ticker = ticker
	default:
		return entry, fmt.Errorf("%w: unknown table %q", ErrMalformedEntry, table)
	}

	return entry, nil
}

// articleTimeLayouts are the ISO-8601 forms accepted on article entries. Layouts without a zone
// are read as UTC. Fractional seconds are accepted by every layout.
var articleTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func parseArticleTime(text string) (time.Time, error) {
	var firstErr error
	for _, layout := range articleTimeLayouts {
		ts, err := time.ParseInLocation(layout, text, time.UTC)
		if err == nil {
			return ts.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func field(values map[string]interface{}, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrMalformedEntry, key)
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty field %q", ErrMalformedEntry, key)
	}
	return s, nil
}
