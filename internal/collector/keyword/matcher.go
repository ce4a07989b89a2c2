package keyword

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultEntities maps tracked entity names to their ticker symbols.
var DefaultEntities = map[string]string{
	"Google":    "GOOGL",
	"Apple":     "AAPL",
	"Amazon":    "AMZN",
	"Nvidia":    "NVDA",
	"Microsoft": "MSFT",
	"Bitcoin":   "BTC",
	"Ripple":    "XRP",
}

type pattern struct {
	re     *regexp.Regexp
	ticker string
}

// Matcher extracts ticker mentions from text. It is immutable once built and safe for
// concurrent use.
type Matcher struct {
	names    []string
	patterns []pattern
}

type keywordsFile struct {
	Entities map[string]string `toml:"entities"`
}

// Load reads an entity table from a TOML file. An empty path yields DefaultEntities.
//
//	[entities]
//	Apple = "AAPL"
func Load(path string) (*Matcher, error) {
	if path == "" {
		return New(DefaultEntities)
	}
	var f keywordsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to decode keywords file %s: %w", path, err)
	}
	return New(f.Entities)
}

// New builds a Matcher from an entity name to ticker table. Each entity matches on its
// name or its ticker as a whole word, case-insensitively.
func New(entities map[string]string) (*Matcher, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("keyword table is empty")
	}

	m := &Matcher{}
	for name, ticker := range entities {
		name = strings.TrimSpace(name)
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if name == "" || ticker == "" {
			return nil, fmt.Errorf("invalid keyword entry %q = %q", name, ticker)
		}
		expr := fmt.Sprintf(`(?i)\b(?:%s|%s)\b`, regexp.QuoteMeta(name), regexp.QuoteMeta(ticker))
		m.patterns = append(m.patterns, pattern{re: regexp.MustCompile(expr), ticker: ticker})
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	sort.Slice(m.patterns, func(i, j int) bool { return m.patterns[i].ticker < m.patterns[j].ticker })
	return m, nil
}

// Match returns the sorted, de-duplicated tickers mentioned in any of texts.
func (m *Matcher) Match(texts ...string) []string {
	seen := make(map[string]struct{})
	var tickers []string
	for _, p := range m.patterns {
		if _, ok := seen[p.ticker]; ok {
			continue
		}
		for _, text := range texts {
			if text != "" && p.re.MatchString(text) {
				seen[p.ticker] = struct{}{}
				tickers = append(tickers, p.ticker)
				break
			}
		}
	}
	return tickers
}

// Names returns the entity names in sorted order, used to build upstream search queries.
func (m *Matcher) Names() []string {
	return append([]string(nil), m.names...)
}

// OrQuery renders the entity names as a quoted OR expression.
func (m *Matcher) OrQuery() string {
	quoted := make([]string, len(m.names))
	for i, name := range m.names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return strings.Join(quoted, " OR ")
}
