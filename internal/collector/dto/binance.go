package dto

// BinanceStreamFrame wraps a payload delivered on a combined stream.
type BinanceStreamFrame struct {
	Stream string       `json:"stream"`
	Data   BinanceTrade `json:"data"`
}

// BinanceTrade is a single trade event.
type BinanceTrade struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}
