package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Ticker string  `parquet:"ticker"`
	Price  float64 `parquet:"price"`
}

func TestWriteFile_OverwritesAtomically(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, "prices", []row{{Ticker: "AAPL", Price: 190.12}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "prices.parquet"), path)

	_, err = WriteFile(dir, "prices", []row{{Ticker: "AAPL", Price: 190.12}, {Ticker: "MSFT", Price: 370}})
	require.NoError(t, err)

	rows, err := ReadFile[row](path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not survive")
}

func TestWriteFile_EmptyTable(t *testing.T) {
	path, err := WriteFile[row](t.TempDir(), "ticker_mentions", nil)
	require.NoError(t, err)

	rows, err := ReadFile[row](path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
