// Package resolver turns the content identifier embedded in a programme
// description into a directly fetchable media locator.
//
// Resolution runs in two stages. The search stage queries a search index for
// candidates and picks one by language and quality preference; the
// materialize stage lists the files behind the chosen candidate's reference
// and picks a playable one. Neither stage retries or caches.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/stwalsh4118/epgcast/internal/logger"
)

// Searcher is the search stage collaborator
type Searcher interface {
	Search(ctx context.Context, identifier string) ([]Candidate, error)
}

// Materializer is the materialize stage collaborator
type Materializer interface {
	ListFiles(ctx context.Context, reference string) ([]File, error)
}

// Config holds the selection policy of the chain
type Config struct {
	PreferredLanguage string
	MediaExtensions   []string
	ExcludeTokens     []string
}

// Source is a resolved, playable source for one programme
type Source struct {
	Identifier      string
	Title           string
	Reference       string
	FileName        string
	Locator         string
	QualityTag      string
	LanguageMatched bool
}

// Chain runs the search and materialize stages in sequence
type Chain struct {
	cfg          Config
	searcher     Searcher
	materializer Materializer
}

// NewChain creates a resolver chain. Empty extension or exclusion lists fall
// back to DefaultMediaExtensions and DefaultExcludeTokens.
func NewChain(cfg Config, searcher Searcher, materializer Materializer) *Chain {
	if len(cfg.MediaExtensions) == 0 {
		cfg.MediaExtensions = DefaultMediaExtensions
	}
	if cfg.ExcludeTokens == nil {
		cfg.ExcludeTokens = DefaultExcludeTokens
	}

	exts := make([]string, 0, len(cfg.MediaExtensions))
	for _, e := range cfg.MediaExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	cfg.MediaExtensions = exts

	return &Chain{
		cfg:          cfg,
		searcher:     searcher,
		materializer: materializer,
	}
}

// Resolve looks up identifier and returns a playable source. Every failure
// wraps ErrResolutionFailed.
func (c *Chain) Resolve(ctx context.Context, identifier string) (*Source, error) {
	log := logger.Component("resolver").With().Str("identifier", identifier).Logger()

	candidates, err := c.searcher.Search(ctx, identifier)
	if err != nil {
		log.Error().Err(err).Msg("Search stage failed")
		return nil, fmt.Errorf("%w: search %s: %w", ErrResolutionFailed, identifier, err)
	}

	selection, ok := SelectCandidate(candidates, c.cfg.PreferredLanguage)
	if !ok {
		log.Error().Int("candidates", len(candidates)).Msg("No suitable candidate found")
		return nil, fmt.Errorf("%w: search %s: %w", ErrResolutionFailed, identifier, ErrNoCandidates)
	}

	log.Debug().
		Str("title", selection.Title).
		Str("quality", selection.QualityTag).
		Bool("language_matched", selection.LanguageMatched).
		Int("tier", selection.Tier).
		Msg("Selected candidate")

	files, err := c.materializer.ListFiles(ctx, selection.Reference)
	if err != nil {
		log.Error().Err(err).Msg("Materialize stage failed")
		return nil, fmt.Errorf("%w: materialize %s: %w", ErrResolutionFailed, identifier, err)
	}

	file, ok := SelectFile(files, c.cfg.MediaExtensions, c.cfg.ExcludeTokens)
	if !ok {
		log.Error().Int("files", len(files)).Msg("No suitable file found for streaming")
		return nil, fmt.Errorf("%w: materialize %s: %w", ErrResolutionFailed, identifier, ErrNoPlayableFile)
	}

	log.Debug().Str("file", file.Name).Str("locator", file.URL).Msg("Selected file for streaming")

	return &Source{
		Identifier:      identifier,
		Title:           selection.Title,
		Reference:       selection.Reference,
		FileName:        file.Name,
		Locator:         file.URL,
		QualityTag:      selection.QualityTag,
		LanguageMatched: selection.LanguageMatched,
	}, nil
}
