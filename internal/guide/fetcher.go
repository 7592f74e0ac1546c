package guide

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stwalsh4118/epgcast/internal/logger"
)

const (
	headerAcceptEncoding  = "Accept-Encoding"
	headerContentEncoding = "Content-Encoding"
	acceptEncodings       = "gzip, br"
	defaultFetchTimeout   = 30 * time.Second
)

// Source provides a freshly parsed guide for one request
type Source interface {
	Fetch(ctx context.Context) (*Guide, error)
}

// FetcherConfig configures the HTTP guide fetcher
type FetcherConfig struct {
	URL      string
	Timeout  time.Duration
	DumpPath string // when set, the raw document is written here after each fetch
	MaxBytes int64
}

// Fetcher retrieves and parses the XMLTV document over HTTP. It keeps no
// state between calls: every Fetch downloads a new copy.
type Fetcher struct {
	cfg    FetcherConfig
	client *http.Client
}

// NewFetcher creates a guide fetcher. A nil client uses a dedicated client with cfg.Timeout.
func NewFetcher(cfg FetcherConfig, client *http.Client) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{cfg: cfg, client: client}
}

// URL returns the configured guide location
func (f *Fetcher) URL() string {
	return f.cfg.URL
}

// Fetch downloads and parses the guide
func (f *Fetcher) Fetch(ctx context.Context) (*Guide, error) {
	log := logger.Component("guide")

	raw, err := f.download(ctx)
	if err != nil {
		log.Error().Err(err).Str("url", f.cfg.URL).Msg("Failed to fetch guide")
		return nil, err
	}

	if f.cfg.DumpPath != "" {
		f.dump(raw)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		log.Error().Str("url", f.cfg.URL).Msg("Guide response is empty")
		return nil, fmt.Errorf("%w: empty response", ErrGuideUnavailable)
	}

	g, err := Parse(bytes.NewReader(raw), f.cfg.MaxBytes)
	if err != nil {
		log.Error().Err(err).Str("url", f.cfg.URL).Msg("Failed to parse guide")
		return nil, err
	}
	return g, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGuideUnavailable, err)
	}
	req.Header.Set(headerAcceptEncoding, acceptEncodings)

	logger.Log.Info().Str("url", f.cfg.URL).Msg("Fetching guide")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGuideUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrGuideUnavailable, resp.StatusCode)
	}

	body, err := decodeBody(resp.Body, resp.Header.Get(headerContentEncoding))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGuideUnavailable, err)
	}

	raw, err := io.ReadAll(io.LimitReader(body, f.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGuideUnavailable, err)
	}
	return raw, nil
}

// decodeBody undoes transport compression. Guides served as plain .xml.gz
// files carry no Content-Encoding, so the gzip magic is sniffed as well.
func decodeBody(body io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br":
		return brotli.NewReader(body), nil
	case "gzip":
		return gzip.NewReader(body)
	}

	br := bufio.NewReader(body)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}

func (f *Fetcher) dump(raw []byte) {
	path := filepath.Clean(f.cfg.DumpPath)
	if err := os.WriteFile(path, raw, 0o644); err != nil { // #nosec G306
		logger.Log.Error().Err(err).Str("path", path).Msg("Failed to write guide dump")
		return
	}
	logger.Log.Debug().Str("path", path).Int("bytes", len(raw)).Msg("Guide dump written")
}
