package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"market-attention/internal/collector/dto"
	"market-attention/internal/entity"
	"market-attention/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	alpacaTypeSuccess      = "success"
	alpacaTypeError        = "error"
	alpacaTypeSubscription = "subscription"
	alpacaTypeTrade        = "t"

	alpacaMsgAuthenticated = "authenticated"

	// Control frames tolerated before the auth reply arrives.
	alpacaMaxHandshakeFrames = 5
)

// AlpacaSource streams equity trades after authenticating with a key pair.
type AlpacaSource struct {
	url         string
	keyID       string
	secretKey   string
	symbols     []string
	readTimeout time.Duration
	dialer      *websocket.Dialer
	log         *logger.Logger
}

func NewAlpacaSource(url, keyID, secretKey string, symbols []string, readTimeout time.Duration, log *logger.Logger) *AlpacaSource {
	upper := make([]string, len(symbols))
	for i, sym := range symbols {
		upper[i] = strings.ToUpper(sym)
	}
	return &AlpacaSource{
		url:         url,
		keyID:       keyID,
		secretKey:   secretKey,
		symbols:     upper,
		readTimeout: readTimeout,
		dialer:      websocket.DefaultDialer,
		log:         log.Named("alpaca"),
	}
}

func (s *AlpacaSource) Name() string { return "alpaca" }

func (s *AlpacaSource) Stream(ctx context.Context, sink Sink) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("alpaca: no symbols configured")
	}
	conn, err := dial(ctx, s.dialer, s.url, s.readTimeout)
	if err != nil {
		return err
	}
	defer conn.close()

	if err := s.authenticate(conn); err != nil {
		return err
	}
	if err := conn.writeJSON(dto.AlpacaSubscribeRequest{Action: "subscribe", Trades: s.symbols}); err != nil {
		return fmt.Errorf("alpaca: subscribe failed: %w", err)
	}
	s.log.InfoContext(ctx, "Subscribed to trade stream", zap.Strings("symbols", s.symbols))

	for {
		data, err := conn.read()
		if err != nil {
			return fmt.Errorf("alpaca: read failed: %w", err)
		}

		var msgs []dto.AlpacaMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			s.log.WarnContext(ctx, "Dropping malformed frame", zap.Error(err))
			continue
		}
		for _, msg := range msgs {
			switch msg.Type {
			case alpacaTypeTrade:
				tick, err := decodeAlpacaTrade(msg)
				if err != nil {
					s.log.WarnContext(ctx, "Dropping malformed trade", zap.Error(err))
					continue
				}
				if err := sink.HandlePrice(ctx, tick); err != nil {
					return err
				}
			case alpacaTypeError:
				return fmt.Errorf("alpaca: stream error %d: %s", msg.Code, msg.Msg)
			case alpacaTypeSubscription, alpacaTypeSuccess:
			default:
				s.log.DebugContext(ctx, "Ignoring message", zap.String("type", msg.Type))
			}
		}
	}
}

// authenticate sends credentials and waits for the "authenticated" acknowledgement. Any
// error reply during the handshake is reported as ErrAuthFailed.
func (s *AlpacaSource) authenticate(conn *wsConn) error {
	if err := conn.writeJSON(dto.AlpacaAuthRequest{Action: "auth", Key: s.keyID, Secret: s.secretKey}); err != nil {
		return fmt.Errorf("alpaca: auth request failed: %w", err)
	}

	for i := 0; i < alpacaMaxHandshakeFrames; i++ {
		data, err := conn.read()
		if err != nil {
			return fmt.Errorf("alpaca: read during auth failed: %w", err)
		}
		var msgs []dto.AlpacaMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			return fmt.Errorf("alpaca: malformed auth reply: %w", err)
		}
		for _, msg := range msgs {
			switch {
			case msg.Type == alpacaTypeError:
				return fmt.Errorf("alpaca: %d %s: %w", msg.Code, msg.Msg, ErrAuthFailed)
			case msg.Type == alpacaTypeSuccess && msg.Msg == alpacaMsgAuthenticated:
				return nil
			}
		}
	}
	return fmt.Errorf("alpaca: no auth acknowledgement: %w", ErrAuthFailed)
}

func decodeAlpacaTrade(msg dto.AlpacaMessage) (entity.PriceTick, error) {
	if msg.Symbol == "" {
		return entity.PriceTick{}, fmt.Errorf("missing symbol")
	}
	price, err := decimal.NewFromString(msg.Price.String())
	if err != nil {
		return entity.PriceTick{}, fmt.Errorf("invalid price %q: %w", msg.Price, err)
	}
	size := decimal.Zero
	if msg.Size != "" {
		if size, err = decimal.NewFromString(msg.Size.String()); err != nil {
			return entity.PriceTick{}, fmt.Errorf("invalid size %q: %w", msg.Size, err)
		}
	}
	ts, err := time.Parse(time.RFC3339Nano, msg.Timestamp)
	if err != nil {
		return entity.PriceTick{}, fmt.Errorf("invalid timestamp %q: %w", msg.Timestamp, err)
	}
	return entity.PriceTick{
		Ticker:    strings.ToUpper(msg.Symbol),
		Price:     price,
		Quantity:  size,
		Timestamp: ts.UTC(),
	}, nil
}
