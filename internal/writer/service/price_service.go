package service

import (
	"context"
	"fmt"

	"market-attention/internal/entity"
	"market-attention/internal/writer/repository"
	"market-attention/pkg/bus"
	"market-attention/pkg/common"
	"market-attention/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// PriceService persists batches from the prices stream.
type PriceService interface {
	BatchHandler
}

func NewPriceService(priceRepo repository.PriceRepository, log *logger.Logger) PriceService {
	return &priceService{
		priceRepo: priceRepo,
		log:       log.Named("price"),
	}
}

type priceService struct {
	priceRepo repository.PriceRepository
	log       *logger.Logger
}

// HandleBatch drops malformed entries and exact in-batch repeats, then writes the rest in one
// insert-or-ignore statement.
func (s *priceService) HandleBatch(ctx context.Context, msgs []redis.XMessage) error {
	seen := make(map[string]struct{}, len(msgs))
	rows := make([]entity.Price, 0, len(msgs))

	for _, msg := range msgs {
		tick, err := bus.DecodePrice(msg.Values)
		if err != nil {
			s.log.WarnContext(ctx, "Skipping malformed price entry", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
			continue
		}

		key := fmt.Sprintf("%s|%s|%s|%s", tick.Ticker, tick.Price.String(), tick.Quantity.String(), tick.Timestamp.Format(common.PriceTimestampLayout))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		rows = append(rows, entity.Price{
			Ticker:    tick.Ticker,
			Price:     tick.Price.InexactFloat64(),
			Quantity:  tick.Quantity.InexactFloat64(),
			Timestamp: tick.Timestamp,
		})
	}

	inserted, err := s.priceRepo.InsertIgnore(ctx, rows)
	if err != nil {
		return fmt.Errorf("insert prices: %w", err)
	}

	s.log.DebugContext(ctx, "Price batch stored",
		logger.IntField("entries", len(msgs)),
		logger.IntField("rows", len(rows)),
		logger.IntField("inserted", int(inserted)),
	)
	return nil
}
