package service

import (
	"context"
	"errors"
	"sync/atomic"

	"market-attention/internal/writer/config"
	"market-attention/pkg/common"
	"market-attention/pkg/logger"
	"market-attention/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// BatchHandler persists one batch of stream messages. A nil return means every message in
// the batch may be acknowledged; malformed messages are the handler's to skip.
type BatchHandler interface {
	HandleBatch(ctx context.Context, msgs []redis.XMessage) error
}

// StreamService consumes one stream through the writer consumer group.
type StreamService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
}

// NewStreamService creates a StreamService. It starts in pending mode so entries delivered
// to this consumer before a restart are processed before new ones.
func NewStreamService(stream string, handler BatchHandler, redisClient *redis.Client, cfg config.Writer, log *logger.Logger) StreamService {
	s := &streamService{
		stream:      stream,
		handler:     handler,
		redisClient: redisClient,
		cfg:         cfg,
		log:         log.Named(stream),
	}
	s.pending.Store(true)
	return s
}

type streamService struct {
	stream      string
	handler     BatchHandler
	redisClient *redis.Client
	cfg         config.Writer
	log         *logger.Logger
	pending     atomic.Bool
}

// ProcessTask reads and handles one batch. While in pending mode it re-reads entries already
// delivered to this consumer (id "0"); once none remain it switches to new entries (">").
func (s *streamService) ProcessTask(ctx context.Context) {
	pending := s.pending.Load()
	id := ">"
	if pending {
		id = "0"
	}

	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.stream, id},
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.BlockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		s.log.Error("Failed to read from stream", logger.ErrorField(err))
		_ = utils.Sleep(ctx, s.cfg.RetryBackoff)
		return
	}

	var msgs []redis.XMessage
	if len(streams) > 0 {
		msgs = streams[0].Messages
	}
	if len(msgs) == 0 {
		if pending {
			s.log.Debug("Pending entries drained, reading new entries")
			s.pending.Store(false)
		}
		return
	}

	if !s.handle(ctx, msgs) {
		_ = utils.Sleep(ctx, s.cfg.RetryBackoff)
	}
}

// ProcessRetries claims entries left idle by other consumers and handles them.
func (s *streamService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.stream,
		Group:    common.RedisStreamGroup,
		Consumer: s.cfg.Consumer,
		MinIdle:  s.cfg.MaxIdleDuration,
		Start:    "0",
		Count:    s.cfg.BatchSize,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("Failed to claim idle entries", logger.ErrorField(err))
		}
		return
	}
	if len(msgs) == 0 {
		return
	}

	s.log.Info("Claimed idle entries", logger.IntField("count", len(msgs)))
	s.handle(ctx, msgs)
}

// handle runs the batch handler and acknowledges the batch on success. The handler runs on
// a context detached from shutdown so a transaction in flight completes or rolls back by itself.
func (s *streamService) handle(ctx context.Context, msgs []redis.XMessage) bool {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HandlerTimeout)
	defer cancel()

	if err := s.handler.HandleBatch(hctx, msgs); err != nil {
		s.log.Error("Failed to process batch, will retry",
			logger.ErrorField(err),
			logger.IntField("count", len(msgs)),
			logger.StringField("first_id", msgs[0].ID),
		)
		s.pending.Store(true)
		return false
	}

	ids := make([]string, len(msgs))
	for i, msg := range msgs {
		ids[i] = msg.ID
	}
	if err := s.AckNDel(hctx, ids...); err != nil {
		s.pending.Store(true)
		return false
	}

	s.log.Debug("Batch committed", logger.IntField("count", len(msgs)))
	return true
}

// AckNDel acknowledges ids and, when configured, deletes them from the stream.
func (s *streamService) AckNDel(ctx context.Context, ids ...string) error {
	if err := s.redisClient.XAck(ctx, s.stream, common.RedisStreamGroup, ids...).Err(); err != nil {
		s.log.Error("Failed to acknowledge entries", logger.ErrorField(err), logger.IntField("count", len(ids)))
		return err
	}
	if !s.cfg.DeleteAcked {
		return nil
	}
	if err := s.redisClient.XDel(ctx, s.stream, ids...).Err(); err != nil {
		s.log.Error("Failed to delete acknowledged entries", logger.ErrorField(err), logger.IntField("count", len(ids)))
	}
	return nil
}
