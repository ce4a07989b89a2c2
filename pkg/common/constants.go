package common

const (
	RedisStreamPrices = "prices"
	RedisStreamNews   = "news"

	RedisStreamGroup    = "writer"
	RedisStreamConsumer = "writer"

	// Field values of the "table" field on news stream entries.
	NewsTableArticle = "article"
	NewsTableMention = "mention"

	// PriceTimestampLayout is the wire format of price entry timestamps (always UTC).
	PriceTimestampLayout = "2006-01-02 15:04:05"
)
