package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"market-attention/internal/collector/dto"
	"market-attention/pkg/logger"

	"go.uber.org/zap"
)

const gdeltTimeLayout = "20060102150405"

// gdeltSeenDateLayout is the format of the seendate field in ArtList results.
const gdeltSeenDateLayout = "20060102T150405Z"

// GDELTSource polls the GDELT document API for articles matching the tracked entities.
type GDELTSource struct {
	baseURL  string
	query    string
	pageSize int
	maxPages int
	lookback time.Duration
	fetcher  *httpFetcher
	log      *logger.Logger
	now      func() time.Time
}

// GDELTOptions configures a GDELTSource.
type GDELTOptions struct {
	BaseURL             string
	Query               string
	PageSize            int
	MaxPages            int
	Lookback            time.Duration
	RequestTimeout      time.Duration
	MaxRequestPerMinute int
}

func NewGDELTSource(opts GDELTOptions, log *logger.Logger) *GDELTSource {
	log = log.Named("gdelt")
	return &GDELTSource{
		baseURL:  opts.BaseURL,
		query:    opts.Query,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		lookback: opts.Lookback,
		fetcher:  newHTTPFetcher("gdelt", opts.RequestTimeout, opts.MaxRequestPerMinute, log),
		log:      log,
		now:      time.Now,
	}
}

func (s *GDELTSource) Name() string { return "gdelt" }

// Poll fetches pages until a page returns fewer rows than the page size.
func (s *GDELTSource) Poll(ctx context.Context) ([]dto.Document, error) {
	end := s.now().UTC()
	start := end.Add(-s.lookback)

	var docs []dto.Document
	for page := 1; page <= s.maxPages; page++ {
		articles, err := s.fetchPage(ctx, start, end, page)
		if err != nil {
			return nil, err
		}
		for _, a := range articles {
			doc, ok := s.toDocument(ctx, a)
			if ok {
				docs = append(docs, doc)
			}
		}
		if len(articles) < s.pageSize {
			break
		}
	}
	return docs, nil
}

func (s *GDELTSource) fetchPage(ctx context.Context, start, end time.Time, page int) ([]dto.GDELTArticle, error) {
	q := url.Values{}
	q.Set("query", "("+s.query+")")
	q.Set("mode", "ArtList")
	q.Set("format", "json")
	q.Set("sort", "DateDesc")
	q.Set("maxrecords", strconv.Itoa(s.pageSize))
	q.Set("startdatetime", start.Format(gdeltTimeLayout))
	q.Set("enddatetime", end.Format(gdeltTimeLayout))
	q.Set("page", strconv.Itoa(page))

	resp, err := s.fetcher.get(ctx, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gdelt: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp)
		return nil, statusError("gdelt", resp.StatusCode)
	}

	var body dto.GDELTResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("gdelt: %w", err)
	}
	return body.Articles, nil
}

func (s *GDELTSource) toDocument(ctx context.Context, a dto.GDELTArticle) (dto.Document, bool) {
	if a.URL == "" || a.Title == "" {
		return dto.Document{}, false
	}
	ts, err := time.Parse(gdeltSeenDateLayout, a.SeenDate)
	if err != nil {
		s.log.DebugContext(ctx, "Invalid seendate, using poll time", zap.String("seendate", a.SeenDate))
		ts = s.now()
	}
	return dto.Document{
		SourceID:  a.URL,
		Title:     a.Title,
		Timestamp: ts.UTC(),
	}, true
}
