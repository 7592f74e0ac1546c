package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/stwalsh4118/epgcast/internal/logger"
)

const (
	defaultProviderTimeout = 30 * time.Second
	maxListingBodyBytes    = 5 * 1024 * 1024
)

// DefaultMediaExtensions are the container formats accepted from a file listing
var DefaultMediaExtensions = []string{".mp4", ".mkv", ".avi"}

// DefaultExcludeTokens reject preview files
var DefaultExcludeTokens = []string{"sample", "trailer"}

// File is one entry of a provider file listing
type File struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type fileListing struct {
	Files []File `json:"files"`
}

// ProviderConfig configures the materialize stage client
type ProviderConfig struct {
	URL     string
	Timeout time.Duration
}

// ProviderMaterializer asks the content-access service for the files behind a reference
type ProviderMaterializer struct {
	cfg    ProviderConfig
	client *http.Client
}

// NewProviderMaterializer creates a materialize stage client. A nil client uses a dedicated client with cfg.Timeout.
func NewProviderMaterializer(cfg ProviderConfig, client *http.Client) *ProviderMaterializer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProviderTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ProviderMaterializer{cfg: cfg, client: client}
}

// escapeReference percent-encodes every reserved character, including "/" and ":"
func escapeReference(reference string) string {
	return strings.ReplaceAll(url.QueryEscape(reference), "+", "%20")
}

// ListFiles fetches the file listing for reference
func (m *ProviderMaterializer) ListFiles(ctx context.Context, reference string) ([]File, error) {
	reqCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	target := strings.TrimRight(m.cfg.URL, "/") + "/torrent/" + escapeReference(reference)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing request: %w", err)
	}

	logger.Log.Debug().Str("url", target).Msg("Requesting file listing")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, upstreamError(ctx, "listing request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrUpstream, resp.StatusCode)
	}

	var listing fileListing
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListingBodyBytes)).Decode(&listing); err != nil {
		return nil, upstreamError(ctx, "decode file listing", err)
	}
	return listing.Files, nil
}

// SelectFile returns the first file whose extension is accepted and whose name
// contains none of the exclusion tokens. Both checks ignore case.
func SelectFile(files []File, extensions, excludeTokens []string) (File, bool) {
	for _, f := range files {
		if f.URL == "" {
			continue
		}
		name := strings.ToLower(f.Name)
		if !hasExtension(name, extensions) {
			continue
		}
		if containsAny(name, excludeTokens) {
			continue
		}
		return f, true
	}
	return File{}, false
}

func hasExtension(name string, extensions []string) bool {
	ext := path.Ext(name)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func containsAny(name string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(name, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
