package entity

import "time"

// NewsArticle is the persisted projection of a NewsEvent, enriched with sentiment at write time.
type NewsArticle struct {
	ArticleID string    `gorm:"primaryKey" json:"article_id" parquet:"article_id"`
	Title     string    `gorm:"not null" json:"title" parquet:"title"`
	Timestamp time.Time `gorm:"column:timestamp;not null" json:"timestamp" parquet:"timestamp,timestamp"`
	Sentiment *float64  `json:"sentiment,omitempty" parquet:"sentiment,optional"`
}

// TableName specifies the table name for the NewsArticle model.
func (NewsArticle) TableName() string {
	return "news_articles"
}

// TickerMention links an article to one ticker it mentions.
type TickerMention struct {
	ArticleID string `gorm:"primaryKey" json:"article_id" parquet:"article_id"`
	Ticker    string `gorm:"primaryKey" json:"ticker" parquet:"ticker"`
}

// TableName specifies the table name for the TickerMention model.
func (TickerMention) TableName() string {
	return "ticker_mentions"
}
