package service

import (
	"context"
	"fmt"

	"market-attention/internal/entity"
	"market-attention/internal/writer/repository"
	"market-attention/internal/writer/sentiment"
	"market-attention/pkg/bus"
	"market-attention/pkg/common"
	"market-attention/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// NewsService persists batches from the news stream.
type NewsService interface {
	BatchHandler
}

func NewNewsService(newsRepo repository.NewsRepository, scorer sentiment.Scorer, log *logger.Logger) NewsService {
	return &newsService{
		newsRepo: newsRepo,
		scorer:   scorer,
		log:      log.Named("news"),
	}
}

type newsService struct {
	newsRepo repository.NewsRepository
	scorer   sentiment.Scorer
	log      *logger.Logger
}

// HandleBatch scores each article title and commits the batch's articles and mentions in one
// transaction. A mention whose article is in a later batch is stored as-is, but mentions of an
// article entry rejected in this batch are dropped with it.
func (s *newsService) HandleBatch(ctx context.Context, msgs []redis.XMessage) error {
	var (
		articles    []entity.NewsArticle
		mentions    []entity.TickerMention
		seenArticle = make(map[string]struct{})
		seenMention = make(map[string]struct{})
		rejected    = make(map[string]struct{})
	)

	for _, msg := range msgs {
		entry, err := bus.DecodeNews(msg.Values)
		if err != nil {
			s.log.WarnContext(ctx, "Skipping malformed news entry", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
			if entry.Table == common.NewsTableArticle && entry.ArticleID != "" {
				rejected[entry.ArticleID] = struct{}{}
			}
			continue
		}

		switch entry.Table {
		case common.NewsTableArticle:
			if _, dup := seenArticle[entry.ArticleID]; dup {
				continue
			}
			seenArticle[entry.ArticleID] = struct{}{}
			score := s.scorer.Score(entry.Title)
			articles = append(articles, entity.NewsArticle{
				ArticleID: entry.ArticleID,
				Title:     entry.Title,
				Timestamp: entry.Timestamp,
				Sentiment: &score,
			})
		case common.NewsTableMention:
			key := entry.ArticleID + "|" + entry.Ticker
			if _, dup := seenMention[key]; dup {
				continue
			}
			seenMention[key] = struct{}{}
			mentions = append(mentions, entity.TickerMention{
				ArticleID: entry.ArticleID,
				Ticker:    entry.Ticker,
			})
		}
	}

	if len(rejected) > 0 {
		kept := mentions[:0]
		for _, m := range mentions {
			if _, drop := rejected[m.ArticleID]; drop {
				s.log.WarnContext(ctx, "Dropping mention of rejected article",
					logger.StringField("article_id", m.ArticleID),
					logger.StringField("ticker", m.Ticker),
				)
				continue
			}
			kept = append(kept, m)
		}
		mentions = kept
	}

	if err := s.newsRepo.SaveBatch(ctx, articles, mentions); err != nil {
		return fmt.Errorf("save news batch: %w", err)
	}

	s.log.DebugContext(ctx, "News batch stored",
		logger.IntField("entries", len(msgs)),
		logger.IntField("articles", len(articles)),
		logger.IntField("mentions", len(mentions)),
	)
	return nil
}
