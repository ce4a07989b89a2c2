package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botServer struct {
	mu       sync.Mutex
	texts    []string
	chatIDs  []string
	release  chan struct{}
	endpoint string
}

func newBotServer(t *testing.T, release chan struct{}) *botServer {
	t.Helper()
	b := &botServer{release: release}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"alerts","username":"alerts_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if b.release != nil {
				<-b.release
			}
			_ = r.ParseForm()
			b.mu.Lock()
			b.texts = append(b.texts, r.PostForm.Get("text"))
			b.chatIDs = append(b.chatIDs, r.PostForm.Get("chat_id"))
			b.mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	b.endpoint = srv.URL + "/bot%s/%s"
	return b
}

func TestNewClient_EmptyTokenIsNop(t *testing.T) {
	n, err := NewClient("", 0)
	require.NoError(t, err)
	assert.NoError(t, n.SendMessage(context.Background(), "ignored"))
}

func TestNewClient_RequiresChatID(t *testing.T) {
	_, err := NewClient("token", 0)
	assert.Error(t, err)
}

func TestClient_SendMessage(t *testing.T) {
	b := newBotServer(t, nil)
	n, err := NewClientWithEndpoint("token", 42, b.endpoint)
	require.NoError(t, err)

	require.NoError(t, n.SendMessage(context.Background(), "*Process restarted*"))

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{"*Process restarted*"}, b.texts)
	assert.Equal(t, []string{"42"}, b.chatIDs)
}

func TestClient_SendMessageHonoursContext(t *testing.T) {
	release := make(chan struct{})
	b := newBotServer(t, release)
	defer close(release)
	n, err := NewClientWithEndpoint("token", 42, b.endpoint)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = n.SendMessage(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
