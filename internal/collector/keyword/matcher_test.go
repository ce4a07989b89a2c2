package keyword

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	m, err := New(DefaultEntities)
	require.NoError(t, err)

	cases := []struct {
		text string
		want []string
	}{
		{"Apple unveils new chip", []string{"AAPL"}},
		{"APPLE and nvidia rally", []string{"AAPL", "NVDA"}},
		{"Traders pile into $BTC after ETF news", []string{"BTC"}},
		{"Pineapple prices soar", nil},
		{"Fed holds rates steady", nil},
		{"Microsoft, MSFT, Microsoft again", []string{"MSFT"}},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Match(tc.text))
		})
	}
}

func TestMatcher_MatchesBody(t *testing.T) {
	m, err := New(map[string]string{"Amazon": "AMZN"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AMZN"}, m.Match("Retail earnings preview", "Amazon is expected to beat"))
}

func TestLoad_FromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.toml")
	require.NoError(t, os.WriteFile(path, []byte("[entities]\nTesla = \"tsla\"\n"), 0o600))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"TSLA"}, m.Match("Tesla deliveries beat"))
	assert.Equal(t, `"Tesla"`, m.OrQuery())
}

func TestLoad_DefaultWhenPathEmpty(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Len(t, m.Names(), len(DefaultEntities))
}

func TestNew_RejectsEmptyTable(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
