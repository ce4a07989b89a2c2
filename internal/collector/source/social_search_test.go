package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"market-attention/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1700000000, 0)

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func newTestSocialSearch(serverURL string, minFollowers int) (*SocialSearchSource, *sleepRecorder) {
	src := NewSocialSearchSource(SocialSearchOptions{
		BaseURL:        serverURL,
		BearerToken:    "token",
		Query:          `"Apple" OR "Nvidia"`,
		PageSize:       10,
		MaxPages:       5,
		MinFollowers:   minFollowers,
		RequestTimeout: 5 * time.Second,
	}, logger.NewNop())
	rec := &sleepRecorder{}
	src.now = func() time.Time { return fixedNow }
	src.sleep = rec.sleep
	return src, rec
}

func postsPage(n int, nextToken string, followers int) string {
	var posts []string
	for i := 0; i < n; i++ {
		posts = append(posts, fmt.Sprintf(`{"id":"%s-%d","text":"Apple post %d","author_id":"u1","created_at":"2023-11-14T22:13:20.000Z"}`, nextToken, i, i))
	}
	meta := fmt.Sprintf(`{"result_count":%d}`, n)
	if nextToken != "" {
		meta = fmt.Sprintf(`{"result_count":%d,"next_token":%q}`, n, nextToken)
	}
	return fmt.Sprintf(`{"data":[%s],"includes":{"users":[{"id":"u1","username":"a","public_metrics":{"followers_count":%d}}]},"meta":%s}`,
		strings.Join(posts, ","), followers, meta)
}

func TestSocialSearchSource_WaitsForRateLimitReset(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("x-rate-limit-reset", fmt.Sprint(fixedNow.Unix()+30))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, postsPage(1, "", 5000))
	}))
	defer server.Close()

	src, rec := newTestSocialSearch(server.URL, 0)
	docs, err := src.Poll(context.Background())
	require.NoError(t, err)

	assert.Len(t, docs, 1)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{30 * time.Second}, rec.waits)
}

func TestSocialSearchSource_RateLimitResetInPastDoesNotWait(t *testing.T) {
	src, _ := newTestSocialSearch("http://unused", 0)

	assert.Equal(t, time.Duration(0), src.rateLimitWait(fmt.Sprint(fixedNow.Unix()-10)))
	assert.Equal(t, defaultRateLimitWait, src.rateLimitWait(""))
}

func TestSocialSearchSource_FiltersByFollowersAndPaginates(t *testing.T) {
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		token := r.URL.Query().Get("next_token")
		tokens = append(tokens, token)
		switch token {
		case "":
			fmt.Fprint(w, postsPage(10, "p2", 5000))
		case "p2":
			fmt.Fprint(w, postsPage(3, "", 50))
		}
	}))
	defer server.Close()

	src, _ := newTestSocialSearch(server.URL, 1000)
	docs, err := src.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"", "p2"}, tokens)
	assert.Len(t, docs, 10, "second page authors are below the follower threshold")
	assert.Equal(t, fixedNow.UTC(), docs[0].Timestamp)
}

func TestSocialSearchSource_UnauthorizedIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	src, _ := newTestSocialSearch(server.URL, 0)
	_, err := src.Poll(context.Background())
	require.ErrorIs(t, err, ErrAuthFailed)
}
