package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"market-attention/internal/entity"
	"market-attention/internal/writer/repository"
	"market-attention/pkg/logger"
	"market-attention/pkg/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *recordingUploader) Upload(_ context.Context, name, _ string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, name)
	return nil
}

func TestSnapshotService_ExportWritesEveryTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	score := -0.2

	_, err := h.priceRepo.InsertIgnore(ctx, []entity.Price{{Ticker: "AAPL", Price: 190.12, Quantity: 5, Timestamp: ts}})
	require.NoError(t, err)
	require.NoError(t, h.newsRepo.SaveBatch(ctx,
		[]entity.NewsArticle{
			{ArticleID: "h1", Title: "Apple unveils new chip", Timestamp: ts, Sentiment: &score},
			{ArticleID: "h2", Title: "Nvidia", Timestamp: ts},
		},
		[]entity.TickerMention{{ArticleID: "h1", Ticker: "AAPL"}},
	))

	dir := t.TempDir()
	uploader := &recordingUploader{}
	svc := NewSnapshotService(dir, h.priceRepo, h.newsRepo, uploader, logger.NewNop())
	require.NoError(t, svc.Export(ctx))

	prices, err := snapshot.ReadFile[entity.Price](filepath.Join(dir, "prices.parquet"))
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "AAPL", prices[0].Ticker)
	assert.True(t, prices[0].Timestamp.Equal(ts))

	articles, err := snapshot.ReadFile[entity.NewsArticle](filepath.Join(dir, "news_articles.parquet"))
	require.NoError(t, err)
	require.Len(t, articles, 2)
	require.NotNil(t, articles[0].Sentiment)
	assert.Equal(t, score, *articles[0].Sentiment)
	assert.Nil(t, articles[1].Sentiment)

	mentions, err := snapshot.ReadFile[entity.TickerMention](filepath.Join(dir, "ticker_mentions.parquet"))
	require.NoError(t, err)
	assert.Equal(t, []entity.TickerMention{{ArticleID: "h1", Ticker: "AAPL"}}, mentions)

	svc.ProcessUpload(ctx)
	assert.ElementsMatch(t, []string{"prices.parquet", "news_articles.parquet", "ticker_mentions.parquet"}, uploader.names)
}

func TestSnapshotService_ExportOverwrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dir := t.TempDir()
	svc := NewSnapshotService(dir, h.priceRepo, h.newsRepo, nil, logger.NewNop())

	require.NoError(t, svc.Export(ctx))
	prices, err := snapshot.ReadFile[entity.Price](filepath.Join(dir, "prices.parquet"))
	require.NoError(t, err)
	assert.Empty(t, prices)

	_, err = h.priceRepo.InsertIgnore(ctx, []entity.Price{{Ticker: "BTC", Price: 43000.1, Quantity: 0.5, Timestamp: time.Now().UTC().Truncate(time.Second)}})
	require.NoError(t, err)
	require.NoError(t, svc.Export(ctx))

	prices, err = snapshot.ReadFile[entity.Price](filepath.Join(dir, "prices.parquet"))
	require.NoError(t, err)
	assert.Len(t, prices, 1)

	svc.ProcessUpload(ctx)
}

// commitBetweenReads commits a new article and its mention right after the mentions table has
// been read, as a concurrent writer batch would.
type commitBetweenReads struct {
	repository.NewsRepository
	once sync.Once
	err  error
}

func (r *commitBetweenReads) FindAllMentions(ctx context.Context) ([]entity.TickerMention, error) {
	mentions, err := r.NewsRepository.FindAllMentions(ctx)
	r.once.Do(func() {
		r.err = r.NewsRepository.SaveBatch(ctx,
			[]entity.NewsArticle{{ArticleID: "h2", Title: "Nvidia rallies", Timestamp: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)}},
			[]entity.TickerMention{{ArticleID: "h2", Ticker: "NVDA"}},
		)
	})
	return mentions, err
}

func TestSnapshotService_MentionsAlwaysHaveArticles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.newsRepo.SaveBatch(ctx,
		[]entity.NewsArticle{{ArticleID: "h1", Title: "Apple unveils new chip", Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}},
		[]entity.TickerMention{{ArticleID: "h1", Ticker: "AAPL"}},
	))

	repo := &commitBetweenReads{NewsRepository: h.newsRepo}
	dir := t.TempDir()
	svc := NewSnapshotService(dir, h.priceRepo, repo, nil, logger.NewNop())
	require.NoError(t, svc.Export(ctx))
	require.NoError(t, repo.err)

	articles, err := snapshot.ReadFile[entity.NewsArticle](filepath.Join(dir, "news_articles.parquet"))
	require.NoError(t, err)
	mentions, err := snapshot.ReadFile[entity.TickerMention](filepath.Join(dir, "ticker_mentions.parquet"))
	require.NoError(t, err)

	ids := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		ids[a.ArticleID] = struct{}{}
	}
	require.NotEmpty(t, mentions)
	for _, m := range mentions {
		assert.Contains(t, ids, m.ArticleID, "mention %s/%s has no article in the snapshot", m.ArticleID, m.Ticker)
	}
	assert.Contains(t, ids, "h2")
	assert.Equal(t, []entity.TickerMention{{ArticleID: "h1", Ticker: "AAPL"}}, mentions)

	require.NoError(t, svc.Export(ctx))
	mentions, err = snapshot.ReadFile[entity.TickerMention](filepath.Join(dir, "ticker_mentions.parquet"))
	require.NoError(t, err)
	assert.Len(t, mentions, 2)
}
