package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"market-attention/internal/collector/dto"
	"market-attention/internal/entity"
	"market-attention/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BinanceSource streams trades for a set of symbols over a combined stream.
type BinanceSource struct {
	baseURL     string
	symbols     []string
	quoteSuffix string
	readTimeout time.Duration
	dialer      *websocket.Dialer
	log         *logger.Logger
}

// NewBinanceSource creates a trade stream source. Tickers are derived from symbols by
// stripping quoteSuffix, so "BTCUSDT" is published as "BTC".
func NewBinanceSource(baseURL string, symbols []string, quoteSuffix string, readTimeout time.Duration, log *logger.Logger) *BinanceSource {
	return &BinanceSource{
		baseURL:     baseURL,
		symbols:     symbols,
		quoteSuffix: strings.ToUpper(quoteSuffix),
		readTimeout: readTimeout,
		dialer:      websocket.DefaultDialer,
		log:         log.Named("binance"),
	}
}

func (s *BinanceSource) Name() string { return "binance" }

func (s *BinanceSource) streamURL() (string, error) {
	if len(s.symbols) == 0 {
		return "", fmt.Errorf("binance: no symbols configured")
	}
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("binance: invalid url: %w", err)
	}
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	q := u.Query()
	q.Set("streams", strings.Join(streams, "/"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *BinanceSource) Stream(ctx context.Context, sink Sink) error {
	streamURL, err := s.streamURL()
	if err != nil {
		return err
	}
	conn, err := dial(ctx, s.dialer, streamURL, s.readTimeout)
	if err != nil {
		return err
	}
	defer conn.close()

	s.log.InfoContext(ctx, "Connected to trade stream", zap.Strings("symbols", s.symbols))

	for {
		data, err := conn.read()
		if err != nil {
			return fmt.Errorf("binance: read failed: %w", err)
		}

		tick, ok, err := s.decode(data)
		if err != nil {
			s.log.WarnContext(ctx, "Dropping malformed trade frame", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if err := sink.HandlePrice(ctx, tick); err != nil {
			return err
		}
	}
}

func (s *BinanceSource) decode(data []byte) (entity.PriceTick, bool, error) {
	var frame dto.BinanceStreamFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return entity.PriceTick{}, false, err
	}
	trade := frame.Data
	if trade.EventType != "trade" {
		return entity.PriceTick{}, false, nil
	}

	price, err := decimal.NewFromString(trade.Price)
	if err != nil {
		return entity.PriceTick{}, false, fmt.Errorf("invalid price %q: %w", trade.Price, err)
	}
	quantity, err := decimal.NewFromString(trade.Quantity)
	if err != nil {
		return entity.PriceTick{}, false, fmt.Errorf("invalid quantity %q: %w", trade.Quantity, err)
	}
	ticker := strings.TrimSuffix(strings.ToUpper(trade.Symbol), s.quoteSuffix)
	if ticker == "" {
		return entity.PriceTick{}, false, fmt.Errorf("invalid symbol %q", trade.Symbol)
	}

	return entity.PriceTick{
		Ticker:    ticker,
		Price:     price,
		Quantity:  quantity,
		Timestamp: time.UnixMilli(trade.TradeTime).UTC(),
	}, true, nil
}
