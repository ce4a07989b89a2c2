package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"market-attention/internal/collector/dto"
	"market-attention/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	firehoseKindCommit     = "commit"
	firehoseOpCreate       = "create"
	firehosePostCollection = "app.bsky.feed.post"
)

// FirehoseSource streams newly created posts from a public social firehose.
type FirehoseSource struct {
	url         string
	readTimeout time.Duration
	dialer      *websocket.Dialer
	log         *logger.Logger
}

func NewFirehoseSource(url string, readTimeout time.Duration, log *logger.Logger) *FirehoseSource {
	return &FirehoseSource{
		url:         url,
		readTimeout: readTimeout,
		dialer:      websocket.DefaultDialer,
		log:         log.Named("firehose"),
	}
}

func (s *FirehoseSource) Name() string { return "firehose" }

func (s *FirehoseSource) Stream(ctx context.Context, sink Sink) error {
	conn, err := dial(ctx, s.dialer, s.url, s.readTimeout)
	if err != nil {
		return err
	}
	defer conn.close()

	s.log.InfoContext(ctx, "Connected to firehose")

	for {
		data, err := conn.read()
		if err != nil {
			return fmt.Errorf("firehose: read failed: %w", err)
		}

		var event dto.FirehoseEvent
		if err := json.Unmarshal(data, &event); err != nil {
			s.log.WarnContext(ctx, "Dropping malformed frame", zap.Error(err))
			continue
		}
		doc, ok := toDocument(event)
		if !ok {
			continue
		}
		if err := sink.HandleDocument(ctx, doc); err != nil {
			return err
		}
	}
}

func toDocument(event dto.FirehoseEvent) (dto.Document, bool) {
	if event.Kind != firehoseKindCommit || event.Commit == nil || event.Commit.Record == nil {
		return dto.Document{}, false
	}
	commit := event.Commit
	if commit.Operation != firehoseOpCreate || commit.Collection != firehosePostCollection {
		return dto.Document{}, false
	}
	if event.DID == "" || commit.RKey == "" || commit.Record.Text == "" {
		return dto.Document{}, false
	}

	ts, err := time.Parse(time.RFC3339Nano, commit.Record.CreatedAt)
	if err != nil {
		ts = time.UnixMicro(event.TimeUS)
	}
	return dto.Document{
		SourceID:  fmt.Sprintf("at://%s/%s/%s", event.DID, commit.Collection, commit.RKey),
		Title:     commit.Record.Text,
		Timestamp: ts.UTC(),
	}, true
}
