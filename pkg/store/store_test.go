package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "store.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_CreatesTablesAndIsRepeatable(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	for _, table := range []string{"prices", "news_articles", "ticker_mentions"} {
		assert.True(t, db.DB.Migrator().HasTable(table), "table %s missing", table)
	}
	assert.True(t, db.DB.Migrator().HasIndex("prices", "idx_prices_ticker_ts"))
	assert.True(t, db.DB.Migrator().HasIndex("news_articles", "idx_news_articles_ts"))
}

func TestRollback_DropsTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	require.NoError(t, Rollback(db))

	assert.False(t, db.DB.Migrator().HasTable("prices"))
}

func TestNewDB_RejectsUnknownDriver(t *testing.T) {
	_, err := NewDB(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(Config{User: "u", Password: "p", Host: "db", Port: 5432, DBName: "market"})
	assert.Equal(t, "postgres://u:p@db:5432/market?sslmode=disable", dsn)
}
