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
	"market-attention/pkg/utils"

	"go.uber.org/zap"
)

const (
	headerRateLimitReset = "x-rate-limit-reset"

	// Fallback wait when a 429 carries no usable reset header.
	defaultRateLimitWait = time.Minute
)

// SocialSearchSource polls a recent-search API with bearer authentication and drops posts
// whose author has fewer than MinFollowers followers.
type SocialSearchSource struct {
	baseURL      string
	bearerToken  string
	query        string
	pageSize     int
	maxPages     int
	minFollowers int
	fetcher      *httpFetcher
	log          *logger.Logger
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// SocialSearchOptions configures a SocialSearchSource.
type SocialSearchOptions struct {
	BaseURL             string
	BearerToken         string
	Query               string
	PageSize            int
	MaxPages            int
	MinFollowers        int
	RequestTimeout      time.Duration
	MaxRequestPerMinute int
}

func NewSocialSearchSource(opts SocialSearchOptions, log *logger.Logger) *SocialSearchSource {
	log = log.Named("socialsearch")
	pageSize := opts.PageSize
	if pageSize < 10 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return &SocialSearchSource{
		baseURL:      opts.BaseURL,
		bearerToken:  opts.BearerToken,
		query:        opts.Query,
		pageSize:     pageSize,
		maxPages:     opts.MaxPages,
		minFollowers: opts.MinFollowers,
		fetcher:      newHTTPFetcher("socialsearch", opts.RequestTimeout, opts.MaxRequestPerMinute, log),
		log:          log,
		now:          time.Now,
		sleep:        utils.Sleep,
	}
}

func (s *SocialSearchSource) Name() string { return "socialsearch" }

func (s *SocialSearchSource) Poll(ctx context.Context) ([]dto.Document, error) {
	var (
		docs      []dto.Document
		nextToken string
	)
	for page := 0; page < s.maxPages; page++ {
		resp, err := s.fetchPage(ctx, nextToken)
		if err != nil {
			return nil, err
		}

		followers := make(map[string]int, len(resp.Includes.Users))
		for _, u := range resp.Includes.Users {
			followers[u.ID] = u.PublicMetrics.FollowersCount
		}
		for _, post := range resp.Data {
			if followers[post.AuthorID] < s.minFollowers {
				continue
			}
			docs = append(docs, s.toDocument(post))
		}

		if len(resp.Data) < s.pageSize || resp.Meta.NextToken == "" {
			break
		}
		nextToken = resp.Meta.NextToken
	}
	return docs, nil
}

// fetchPage retries after a rate-limit response, waiting until the advertised reset time.
func (s *SocialSearchSource) fetchPage(ctx context.Context, nextToken string) (*dto.SocialSearchResponse, error) {
	q := url.Values{}
	q.Set("query", "("+s.query+") -is:retweet")
	q.Set("max_results", strconv.Itoa(s.pageSize))
	q.Set("tweet.fields", "created_at,author_id")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "public_metrics")
	if nextToken != "" {
		q.Set("next_token", nextToken)
	}
	reqURL := s.baseURL + "?" + q.Encode()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.bearerToken)

	for {
		resp, err := s.fetcher.get(ctx, reqURL, header)
		if err != nil {
			return nil, fmt.Errorf("socialsearch: request failed: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var body dto.SocialSearchResponse
			if err := decodeJSON(resp, &body); err != nil {
				return nil, fmt.Errorf("socialsearch: %w", err)
			}
			return &body, nil
		case http.StatusTooManyRequests:
			wait := s.rateLimitWait(resp.Header.Get(headerRateLimitReset))
			drain(resp)
			s.log.WarnContext(ctx, "Rate limited, waiting for reset", zap.Duration("wait", wait))
			if err := s.sleep(ctx, wait); err != nil {
				return nil, err
			}
		default:
			drain(resp)
			return nil, statusError("socialsearch", resp.StatusCode)
		}
	}
}

// rateLimitWait converts an epoch-seconds reset header into a wait duration, never negative.
func (s *SocialSearchSource) rateLimitWait(reset string) time.Duration {
	epoch, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return defaultRateLimitWait
	}
	wait := time.Unix(epoch, 0).Sub(s.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (s *SocialSearchSource) toDocument(post dto.SocialPost) dto.Document {
	ts, err := time.Parse(time.RFC3339Nano, post.CreatedAt)
	if err != nil {
		ts = s.now()
	}
	return dto.Document{
		SourceID:  post.ID,
		Title:     post.Text,
		Timestamp: ts.UTC(),
	}
}
