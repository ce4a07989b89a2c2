package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"market-attention/internal/entity"
	"market-attention/internal/writer/repository"
	"market-attention/pkg/logger"
	"market-attention/pkg/objectstore"
	"market-attention/pkg/snapshot"
)

var snapshotTables = []string{
	entity.Price{}.TableName(),
	entity.TickerMention{}.TableName(),
	entity.NewsArticle{}.TableName(),
}

// SnapshotService materializes the Store's tables into parquet files.
type SnapshotService interface {
	Export(ctx context.Context) error
	ProcessTask(ctx context.Context)
	ProcessUpload(ctx context.Context)
}

// NewSnapshotService creates a SnapshotService writing into dir. uploader may be nil.
func NewSnapshotService(dir string, priceRepo repository.PriceRepository, newsRepo repository.NewsRepository, uploader objectstore.Uploader, log *logger.Logger) SnapshotService {
	return &snapshotService{
		dir:       dir,
		priceRepo: priceRepo,
		newsRepo:  newsRepo,
		uploader:  uploader,
		log:       log.Named("snapshot"),
	}
}

type snapshotService struct {
	dir       string
	priceRepo repository.PriceRepository
	newsRepo  repository.NewsRepository
	uploader  objectstore.Uploader
	log       *logger.Logger
}

// Export rewrites every snapshot file. Each table is read with a single query. Mentions are
// read before articles so any mention in a snapshot has its article in the same generation.
func (s *snapshotService) Export(ctx context.Context) error {
	prices, err := s.priceRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("read prices: %w", err)
	}
	if _, err := snapshot.WriteFile(s.dir, snapshotTables[0], prices); err != nil {
		return err
	}

	mentions, err := s.newsRepo.FindAllMentions(ctx)
	if err != nil {
		return fmt.Errorf("read ticker_mentions: %w", err)
	}
	articles, err := s.newsRepo.FindAllArticles(ctx)
	if err != nil {
		return fmt.Errorf("read news_articles: %w", err)
	}
	if _, err := snapshot.WriteFile(s.dir, snapshotTables[1], mentions); err != nil {
		return err
	}
	if _, err := snapshot.WriteFile(s.dir, snapshotTables[2], articles); err != nil {
		return err
	}
	return nil
}

func (s *snapshotService) ProcessTask(ctx context.Context) {
	start := time.Now()
	if err := s.Export(ctx); err != nil {
		if ctx.Err() == nil {
			s.log.Error("Failed to export snapshot", logger.ErrorField(err))
		}
		return
	}
	s.log.Debug("Snapshot exported", logger.DurationField("elapsed", time.Since(start)))
}

// ProcessUpload mirrors the latest snapshot files to object storage.
func (s *snapshotService) ProcessUpload(ctx context.Context) {
	if s.uploader == nil {
		return
	}
	for _, table := range snapshotTables {
		name := table + ".parquet"
		if err := s.uploader.Upload(ctx, name, filepath.Join(s.dir, name)); err != nil {
			s.log.Error("Failed to upload snapshot", logger.ErrorField(err), logger.StringField("table", table))
		}
	}
}
