package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"market-attention/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 8 << 20

type httpFetcher struct {
	name           string
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

func newHTTPFetcher(name string, timeout time.Duration, maxRequestPerMinute int, log *logger.Logger) *httpFetcher {
	limit := rate.Inf
	if maxRequestPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(maxRequestPerMinute))
	}
	return &httpFetcher{
		name:           name,
		log:            log,
		httpClient:     &http.Client{Timeout: timeout},
		requestLimiter: rate.NewLimiter(limit, 1),
	}
}

// get performs a rate-limited GET and returns the response. The caller owns the body.
func (f *httpFetcher) get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	if err := f.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.log.ErrorContext(ctx, "Failed to send upstream request",
			zap.String("source", f.name),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
