package repository

import (
	"context"

	"market-attention/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceRepository defines the interface for interacting with stored prices.
type PriceRepository interface {
	InsertIgnore(ctx context.Context, prices []entity.Price) (int64, error)
	FindAll(ctx context.Context) ([]entity.Price, error)
}

// NewPriceRepository creates a new instance of PriceRepository.
func NewPriceRepository(db *gorm.DB) PriceRepository {
	return &priceRepository{db: db}
}

type priceRepository struct {
	db *gorm.DB
}

// InsertIgnore writes all rows in one multi-row insert; rows whose (ticker, price, timestamp)
// already exist are skipped. It returns the number of rows actually inserted.
func (r *priceRepository) InsertIgnore(ctx context.Context, prices []entity.Price) (int64, error) {
	if len(prices) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "price"}, {Name: "timestamp"}},
		DoNothing: true,
	}).Create(&prices)
	return res.RowsAffected, res.Error
}

func (r *priceRepository) FindAll(ctx context.Context) ([]entity.Price, error) {
	var prices []entity.Price
	err := r.db.WithContext(ctx).Order(`ticker, "timestamp"`).Find(&prices).Error
	return prices, err
}
