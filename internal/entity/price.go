package entity

import "time"

// Price is the persisted projection of a PriceTick.
// Natural key is (ticker, price, timestamp); distinct trades sharing it collapse into one row.
type Price struct {
	Ticker    string    `gorm:"primaryKey;not null" json:"ticker" parquet:"ticker"`
	Price     float64   `gorm:"primaryKey;not null" json:"price" parquet:"price"`
	Quantity  float64   `gorm:"not null" json:"quantity" parquet:"quantity"`
	Timestamp time.Time `gorm:"primaryKey;column:timestamp;not null" json:"timestamp" parquet:"timestamp,timestamp"`
}

// TableName specifies the table name for the Price model.
func (Price) TableName() string {
	return "prices"
}
