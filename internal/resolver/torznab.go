package resolver

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stwalsh4118/epgcast/internal/logger"
	"golang.org/x/time/rate"
)

const (
	defaultSearchTimeout = 30 * time.Second
	defaultIndexer       = "all"
	maxSearchBodyBytes   = 10 * 1024 * 1024
)

// SearchConfig configures the Torznab search stage
type SearchConfig struct {
	Host      string
	APIKey    string
	Indexer   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
}

// TorznabSearcher queries a Jackett-style Torznab endpoint by IMDB id
type TorznabSearcher struct {
	cfg     SearchConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewTorznabSearcher creates a search stage client. A nil client uses a dedicated client with cfg.Timeout.
func NewTorznabSearcher(cfg SearchConfig, client *http.Client) *TorznabSearcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSearchTimeout
	}
	if cfg.Indexer == "" {
		cfg.Indexer = defaultIndexer
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &TorznabSearcher{cfg: cfg, client: client, limiter: limiter}
}

type torznabFeed struct {
	Channel struct {
		Items []torznabItem `xml:"item"`
	} `xml:"channel"`
}

type torznabItem struct {
	Title     string `xml:"title"`
	Link      string `xml:"link"`
	Enclosure struct {
		URL string `xml:"url,attr"`
	} `xml:"enclosure"`
}

// searchURL builds the Torznab query for identifier
func (s *TorznabSearcher) searchURL(identifier string) string {
	q := url.Values{}
	q.Set("apikey", s.cfg.APIKey)
	q.Set("imdbid", identifier)
	return fmt.Sprintf("%s/api/v2.0/indexers/%s/results/torznab/api?%s",
		strings.TrimRight(s.cfg.Host, "/"), url.PathEscape(s.cfg.Indexer), q.Encode())
}

// Search returns every item of the feed in document order. Items without a
// link fall back to their enclosure url.
func (s *TorznabSearcher) Search(ctx context.Context, identifier string) ([]Candidate, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.searchURL(identifier), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	logger.Log.Debug().
		Str("identifier", identifier).
		Str("indexer", s.cfg.Indexer).
		Msg("Querying search index")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, upstreamError(ctx, "search request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search index returned status %d", ErrUpstream, resp.StatusCode)
	}

	var feed torznabFeed
	dec := xml.NewDecoder(io.LimitReader(resp.Body, maxSearchBodyBytes))
	dec.Entity = make(map[string]string)
	if err := dec.Decode(&feed); err != nil {
		return nil, upstreamError(ctx, "decode search feed", err)
	}

	candidates := make([]Candidate, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		ref := strings.TrimSpace(item.Link)
		if ref == "" {
			ref = strings.TrimSpace(item.Enclosure.URL)
		}
		candidates = append(candidates, Candidate{
			Title:     strings.TrimSpace(item.Title),
			Reference: ref,
		})
	}
	return candidates, nil
}
