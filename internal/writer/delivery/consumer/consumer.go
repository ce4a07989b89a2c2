package consumer

import (
	"context"
	"sync"
	"time"

	"market-attention/internal/writer/config"
	"market-attention/internal/writer/service"
	"market-attention/pkg/common"
	"market-attention/pkg/logger"
	"market-attention/pkg/utils"
)

// RedisConsumer runs the writer's stream handlers and periodic tasks.
type RedisConsumer struct {
	cfg             *config.Config
	priceStream     service.StreamService
	newsStream      service.StreamService
	snapshotService service.SnapshotService
	logger          *logger.Logger
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(
	cfg *config.Config,
	priceStream service.StreamService,
	newsStream service.StreamService,
	snapshotService service.SnapshotService,
	log *logger.Logger,
) *RedisConsumer {
	return &RedisConsumer{
		cfg:             cfg,
		priceStream:     priceStream,
		newsStream:      newsStream,
		snapshotService: snapshotService,
		logger:          log,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the consumer's processing loops.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	c.RegisterStreamHandler(ctx, c.priceStream.ProcessTask, common.RedisStreamPrices)
	c.RegisterStreamHandler(ctx, c.newsStream.ProcessTask, common.RedisStreamNews)

	//handle retry
	c.RegisterTickerHandler(ctx, c.priceStream.ProcessRetries, c.cfg.Writer.RetryInterval, c.cfg.Writer.HandlerTimeout, common.RedisStreamPrices+"-retry")
	c.RegisterTickerHandler(ctx, c.newsStream.ProcessRetries, c.cfg.Writer.RetryInterval, c.cfg.Writer.HandlerTimeout, common.RedisStreamNews+"-retry")

	c.RegisterTickerHandler(ctx, c.snapshotService.ProcessTask, c.cfg.Snapshot.Interval, c.cfg.Snapshot.Timeout, "snapshot")
	if c.cfg.Snapshot.S3.Enabled {
		c.RegisterTickerHandler(ctx, c.snapshotService.ProcessUpload, c.cfg.Snapshot.S3.Interval, c.cfg.Snapshot.Timeout, "snapshot-upload")
	}
}

// RegisterStreamHandler calls fn in a loop until ctx is cancelled or Stop is called. fn is
// expected to block for at most the stream read timeout when idle.
func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	loopCtx, cancel := context.WithCancel(ctx)
	c.wg.Add(1)
	utils.GoSafe(c.logger, func() {
		defer c.wg.Done()
		defer cancel()
		go func() {
			select {
			case <-c.stopChan:
				cancel()
			case <-loopCtx.Done():
			}
		}()

		for {
			select {
			case <-loopCtx.Done():
				c.logger.Info("Stream handler stopping", logger.Field("stream", streamName))
				return
			default:
				fn(loopCtx)
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(c.logger, func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer, waiting for in-flight batches to finish.
func (c *RedisConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
