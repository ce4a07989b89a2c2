package source

import (
	"context"
	"strings"
	"time"

	"market-attention/internal/collector/dto"
	"market-attention/pkg/extractor"
	"market-attention/pkg/logger"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// RSSSource polls a fixed list of feeds. A failing feed is skipped for the cycle without
// affecting the others.
type RSSSource struct {
	feeds     []string
	fetchBody bool
	fetcher   *httpFetcher
	parser    *gofeed.Parser
	log       *logger.Logger
	now       func() time.Time
}

func NewRSSSource(feeds []string, fetchBody bool, requestTimeout time.Duration, maxRequestPerMinute int, log *logger.Logger) *RSSSource {
	log = log.Named("rss")
	fetcher := newHTTPFetcher("rss", requestTimeout, maxRequestPerMinute, log)
	parser := gofeed.NewParser()
	parser.Client = fetcher.httpClient
	return &RSSSource{
		feeds:     feeds,
		fetchBody: fetchBody,
		fetcher:   fetcher,
		parser:    parser,
		log:       log,
		now:       time.Now,
	}
}

func (s *RSSSource) Name() string { return "rss" }

func (s *RSSSource) Poll(ctx context.Context) ([]dto.Document, error) {
	var docs []dto.Document
	for _, feedURL := range s.feeds {
		if err := s.fetcher.requestLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to fetch feed, skipping",
				zap.String("feed", feedURL),
				zap.Error(err),
			)
			continue
		}

		for _, item := range feed.Items {
			doc, ok := s.toDocument(ctx, item)
			if ok {
				docs = append(docs, doc)
			}
		}
	}
	return docs, nil
}

func (s *RSSSource) toDocument(ctx context.Context, item *gofeed.Item) (dto.Document, bool) {
	id := strings.TrimSpace(item.Link)
	if id == "" {
		id = strings.TrimSpace(item.GUID)
	}
	if id == "" || strings.TrimSpace(item.Title) == "" {
		return dto.Document{}, false
	}

	ts := s.now()
	switch {
	case item.PublishedParsed != nil:
		ts = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		ts = *item.UpdatedParsed
	}

	body := extractor.StripHTML(item.Description + " " + item.Content)
	if s.fetchBody && item.Link != "" {
		if err := s.fetcher.requestLimiter.Wait(ctx); err == nil {
			full, err := extractor.FetchBody(ctx, s.fetcher.httpClient, item.Link)
			if err != nil {
				s.log.DebugContext(ctx, "Failed to fetch article body", zap.String("url", item.Link), zap.Error(err))
			} else {
				body = full
			}
		}
	}

	return dto.Document{
		SourceID:  id,
		Title:     item.Title,
		Body:      body,
		Timestamp: ts.UTC(),
	}, true
}
