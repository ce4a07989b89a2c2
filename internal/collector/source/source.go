package source

import (
	"context"
	"errors"
	"fmt"

	"market-attention/internal/collector/dto"
	"market-attention/internal/entity"
)

var (
	// ErrAuthFailed is returned when upstream rejects the configured credentials.
	// Collectors treat it as fatal.
	ErrAuthFailed = errors.New("upstream authentication failed")
	// ErrUpstreamStatus is returned for non-success HTTP responses.
	ErrUpstreamStatus = errors.New("unexpected upstream status")
)

// Sink receives normalized records from a streaming source.
type Sink interface {
	HandlePrice(ctx context.Context, tick entity.PriceTick) error
	HandleDocument(ctx context.Context, doc dto.Document) error
}

// StreamingSource holds a long-lived upstream connection open and pushes records into
// a Sink until the connection fails or ctx is cancelled.
type StreamingSource interface {
	Name() string
	Stream(ctx context.Context, sink Sink) error
}

// PollingSource fetches a batch of documents per call. A failed call yields no partial
// result.
type PollingSource interface {
	Name() string
	Poll(ctx context.Context) ([]dto.Document, error)
}

func statusError(source string, status int) error {
	if status == 401 || status == 403 {
		return fmt.Errorf("%s: status %d: %w", source, status, ErrAuthFailed)
	}
	return fmt.Errorf("%s: status %d: %w", source, status, ErrUpstreamStatus)
}
