package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-attention/internal/collector/dto"
	"market-attention/internal/collector/keyword"
	"market-attention/internal/collector/source"
	"market-attention/internal/entity"
	"market-attention/pkg/bus"
	"market-attention/pkg/logger"
	"market-attention/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
)

// CollectorService runs one source adapter until ctx is cancelled or the source fails fatally.
type CollectorService interface {
	Run(ctx context.Context) error
}

// eventSink normalizes source records and publishes them to the bus.
type eventSink struct {
	publisher bus.Publisher
	matcher   *keyword.Matcher
	seen      *cache.Cache
	logger    *logger.Logger
}

func newEventSink(publisher bus.Publisher, matcher *keyword.Matcher, seenTTL time.Duration, log *logger.Logger) *eventSink {
	return &eventSink{
		publisher: publisher,
		matcher:   matcher,
		seen:      cache.New(seenTTL, seenTTL/2),
		logger:    log,
	}
}

// HandlePrice publishes a validated tick with its timestamp normalized to UTC.
func (s *eventSink) HandlePrice(ctx context.Context, tick entity.PriceTick) error {
	if tick.Ticker == "" || !tick.Price.IsPositive() || tick.Quantity.IsNegative() {
		s.logger.WarnContext(ctx, "Dropping invalid price tick",
			logger.StringField("ticker", tick.Ticker),
			logger.StringField("price", tick.Price.String()),
		)
		return nil
	}
	tick.Timestamp = utils.ToUTC(tick.Timestamp)
	return s.publisher.PublishPrice(ctx, tick)
}

// HandleDocument publishes a document only when it mentions at least one tracked ticker.
// Documents already published within the seen TTL are skipped.
func (s *eventSink) HandleDocument(ctx context.Context, doc dto.Document) error {
	if doc.SourceID == "" {
		return nil
	}
	articleID := utils.HashID(doc.SourceID)
	if _, found := s.seen.Get(articleID); found {
		return nil
	}

	title := utils.SafeText(doc.Title)
	mentions := s.matcher.Match(title, doc.Body)
	if len(mentions) == 0 {
		return nil
	}

	event := entity.NewsEvent{
		ArticleID: articleID,
		Title:     title,
		Timestamp: utils.ToUTC(doc.Timestamp),
		Mentions:  mentions,
	}
	if err := s.publisher.PublishNews(ctx, event); err != nil {
		return err
	}
	s.seen.SetDefault(articleID, struct{}{})

	s.logger.DebugContext(ctx, "News event published",
		logger.StringField("article_id", articleID),
		logger.Field("mentions", mentions),
	)
	return nil
}

// NewStreamingService creates a collector that keeps src connected, reconnecting after
// reconnectDelay whenever the stream drops.
func NewStreamingService(src source.StreamingSource, publisher bus.Publisher, matcher *keyword.Matcher, seenTTL, reconnectDelay time.Duration, log *logger.Logger) CollectorService {
	log = log.Named(src.Name())
	return &streamingService{
		source:         src,
		sink:           newEventSink(publisher, matcher, seenTTL, log),
		reconnectDelay: reconnectDelay,
		logger:         log,
	}
}

type streamingService struct {
	source         source.StreamingSource
	sink           *eventSink
	reconnectDelay time.Duration
	logger         *logger.Logger
}

func (s *streamingService) Run(ctx context.Context) error {
	s.logger.Info("Streaming collector started")
	for {
		err := s.source.Stream(ctx, s.sink)
		if ctx.Err() != nil {
			s.logger.Info("Streaming collector stopping")
			return nil
		}
		if errors.Is(err, source.ErrAuthFailed) {
			s.logger.Error("Authentication rejected, giving up", logger.ErrorField(err))
			return err
		}

		s.logger.Warn("Stream disconnected, reconnecting",
			logger.ErrorField(err),
			logger.DurationField("delay", s.reconnectDelay),
		)
		if err := utils.Sleep(ctx, s.reconnectDelay); err != nil {
			s.logger.Info("Streaming collector stopping")
			return nil
		}
	}
}

// NewPollingService creates a collector that polls src immediately and then on every
// activation of the cron schedule.
func NewPollingService(src source.PollingSource, publisher bus.Publisher, matcher *keyword.Matcher, seenTTL time.Duration, schedule string, log *logger.Logger) (CollectorService, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", schedule, err)
	}

	log = log.Named(src.Name())
	return &pollingService{
		source:   src,
		sink:     newEventSink(publisher, matcher, seenTTL, log),
		schedule: sched,
		logger:   log,
		now:      time.Now,
	}, nil
}

type pollingService struct {
	source   source.PollingSource
	sink     *eventSink
	schedule cron.Schedule
	logger   *logger.Logger
	now      func() time.Time
}

func (s *pollingService) Run(ctx context.Context) error {
	s.logger.Info("Polling collector started")
	for {
		if err := s.PollOnce(ctx); err != nil {
			return err
		}

		next := s.schedule.Next(s.now())
		s.logger.Debug("Next poll scheduled", logger.Field("at", next))
		if err := utils.Sleep(ctx, time.Until(next)); err != nil {
			s.logger.Info("Polling collector stopping")
			return nil
		}
	}
}

// PollOnce runs a single poll cycle. Upstream failures are logged and the cycle yields
// nothing; only an authentication failure is returned.
func (s *pollingService) PollOnce(ctx context.Context) error {
	docs, err := s.source.Poll(ctx)
	if err != nil {
		if errors.Is(err, source.ErrAuthFailed) {
			s.logger.Error("Authentication rejected, giving up", logger.ErrorField(err))
			return err
		}
		if ctx.Err() == nil {
			s.logger.Error("Poll failed, skipping cycle", logger.ErrorField(err))
		}
		return nil
	}

	failed := 0
	for _, doc := range docs {
		if err := s.sink.HandleDocument(ctx, doc); err != nil {
			failed++
			s.logger.Error("Failed to publish news event", logger.ErrorField(err), logger.StringField("source_id", doc.SourceID))
		}
	}

	s.logger.Info("Poll cycle finished",
		logger.IntField("documents", len(docs)),
		logger.IntField("failed", failed),
	)
	return nil
}
