package source

import (
	"encoding/json"
	"testing"
	"time"

	"market-attention/internal/collector/dto"
	"market-attention/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlpacaSource_AuthenticatesAndStreamsTrades(t *testing.T) {
	authCh := make(chan dto.AlpacaAuthRequest, 1)
	subCh := make(chan dto.AlpacaSubscribeRequest, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		writeText(t, conn, `[{"T":"success","msg":"connected"}]`)
		var auth dto.AlpacaAuthRequest
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		authCh <- auth
		writeText(t, conn, `[{"T":"success","msg":"authenticated"}]`)
		var sub dto.AlpacaSubscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subCh <- sub
		writeText(t, conn, `[{"T":"subscription","trades":["AAPL"]}]`)
		writeText(t, conn, `[{"T":"t","S":"AAPL","i":1,"x":"V","p":190.12,"s":100,"t":"2024-01-02T15:04:05.123456789Z"},{"T":"t","S":"AAPL","p":190.13,"s":5,"t":"garbage"}]`)
	})

	src := NewAlpacaSource(wsURL(server), "key", "secret", []string{"aapl"}, time.Minute, logger.NewNop())
	sink := &recordingSink{}

	err := streamWithTimeout(t, src, sink)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthFailed)

	auth := <-authCh
	sub := <-subCh
	assert.Equal(t, "auth", auth.Action)
	assert.Equal(t, "key", auth.Key)
	assert.Equal(t, "secret", auth.Secret)
	assert.Equal(t, []string{"AAPL"}, sub.Trades)

	require.Len(t, sink.prices, 1)
	tick := sink.prices[0]
	assert.Equal(t, "AAPL", tick.Ticker)
	assert.Equal(t, "190.12", tick.Price.String())
	assert.Equal(t, "100", tick.Quantity.String())
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 123456789, time.UTC), tick.Timestamp)
}

func TestAlpacaSource_AuthFailureIsFatal(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		writeText(t, conn, `[{"T":"success","msg":"connected"}]`)
		var auth json.RawMessage
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		writeText(t, conn, `[{"T":"error","code":402,"msg":"auth failed"}]`)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	src := NewAlpacaSource(wsURL(server), "key", "wrong", []string{"AAPL"}, time.Minute, logger.NewNop())
	sink := &recordingSink{}

	err := streamWithTimeout(t, src, sink)
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Empty(t, sink.prices)
}
