package repository

import (
	"context"
	"fmt"

	"market-attention/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsRepository defines the interface for interacting with stored articles and mentions.
type NewsRepository interface {
	SaveBatch(ctx context.Context, articles []entity.NewsArticle, mentions []entity.TickerMention) error
	FindAllArticles(ctx context.Context) ([]entity.NewsArticle, error)
	FindAllMentions(ctx context.Context) ([]entity.TickerMention, error)
}

// NewNewsRepository creates a new instance of NewsRepository.
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepository{db: db}
}

type newsRepository struct {
	db *gorm.DB
}

// SaveBatch inserts articles then mentions in a single transaction, ignoring rows whose key
// already exists. Either every row of the batch is visible afterwards or none is.
func (r *newsRepository) SaveBatch(ctx context.Context, articles []entity.NewsArticle, mentions []entity.TickerMention) error {
	if len(articles) == 0 && len(mentions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(articles) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "article_id"}},
				DoNothing: true,
			}).Create(&articles).Error; err != nil {
				return fmt.Errorf("insert news_articles error: %w", err)
			}
		}

		if len(mentions) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "article_id"}, {Name: "ticker"}},
				DoNothing: true,
			}).Create(&mentions).Error; err != nil {
				return fmt.Errorf("insert ticker_mentions error: %w", err)
			}
		}

		return nil
	})
}

func (r *newsRepository) FindAllArticles(ctx context.Context) ([]entity.NewsArticle, error) {
	var articles []entity.NewsArticle
	err := r.db.WithContext(ctx).Order(`"timestamp", article_id`).Find(&articles).Error
	return articles, err
}

func (r *newsRepository) FindAllMentions(ctx context.Context) ([]entity.TickerMention, error) {
	var mentions []entity.TickerMention
	err := r.db.WithContext(ctx).Order("article_id, ticker").Find(&mentions).Error
	return mentions, err
}
