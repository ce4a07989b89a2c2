package source

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

type wsConn struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	done        chan struct{}
}

// dial opens a websocket and closes it when ctx is cancelled, unblocking any pending read.
func dial(ctx context.Context, dialer *websocket.Dialer, url string, readTimeout time.Duration) (*wsConn, error) {
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	c := &wsConn{conn: conn, readTimeout: readTimeout, done: make(chan struct{})}
	conn.SetPongHandler(func(string) error {
		return c.extendDeadline()
	})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-c.done:
		}
	}()
	return c, nil
}

func (c *wsConn) extendDeadline() error {
	if c.readTimeout <= 0 {
		return nil
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
}

func (c *wsConn) read() ([]byte, error) {
	if err := c.extendDeadline(); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) writeJSON(v interface{}) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *wsConn) close() {
	close(c.done)
	_ = c.conn.Close()
}
