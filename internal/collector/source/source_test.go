package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"market-attention/internal/collector/dto"
	"market-attention/internal/entity"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

type recordingSink struct {
	mu     sync.Mutex
	prices []entity.PriceTick
	docs   []dto.Document
}

func (s *recordingSink) HandlePrice(_ context.Context, tick entity.PriceTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = append(s.prices, tick)
	return nil
}

func (s *recordingSink) HandleDocument(_ context.Context, doc dto.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return nil
}

func writeText(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Logf("write error: %v", err)
	}
}

func streamWithTimeout(t *testing.T, src StreamingSource, sink Sink) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return src.Stream(ctx, sink)
}
