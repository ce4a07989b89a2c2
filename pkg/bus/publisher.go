package bus

import (
	"context"
	"fmt"

	"market-attention/internal/entity"
	"market-attention/pkg/common"

	"github.com/redis/go-redis/v9"
)

// Publisher appends canonical events to the bus.
type Publisher interface {
	PublishPrice(ctx context.Context, tick entity.PriceTick) error
	PublishNews(ctx context.Context, event entity.NewsEvent) error
}

// NewRedisPublisher creates a Publisher backed by Redis streams.
// maxLen of zero disables approximate trimming.
func NewRedisPublisher(client *redis.Client, maxLen int64) Publisher {
	return &redisPublisher{client: client, maxLen: maxLen}
}

type redisPublisher struct {
	client *redis.Client
	maxLen int64
}

func (p *redisPublisher) PublishPrice(ctx context.Context, tick entity.PriceTick) error {
	if err := p.client.XAdd(ctx, p.args(common.RedisStreamPrices, EncodePrice(tick))).Err(); err != nil {
		return fmt.Errorf("failed to publish price: %w", err)
	}
	return nil
}

// PublishNews appends the article entry followed by its mention entries in one MULTI block,
// so a mention is never visible on the stream without its article.
func (p *redisPublisher) PublishNews(ctx context.Context, event entity.NewsEvent) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, p.args(common.RedisStreamNews, EncodeArticle(event)))
		for _, ticker := range event.Mentions {
			pipe.XAdd(ctx, p.args(common.RedisStreamNews, EncodeMention(event.ArticleID, ticker)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish news: %w", err)
	}
	return nil
}

func (p *redisPublisher) args(stream string, values map[string]interface{}) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return args
}
