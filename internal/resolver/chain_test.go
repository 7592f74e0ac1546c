package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	searchFunc func(ctx context.Context, identifier string) ([]Candidate, error)
}

func (m *mockSearcher) Search(ctx context.Context, identifier string) ([]Candidate, error) {
	return m.searchFunc(ctx, identifier)
}

type mockMaterializer struct {
	listFunc func(ctx context.Context, reference string) ([]File, error)
}

func (m *mockMaterializer) ListFiles(ctx context.Context, reference string) ([]File, error) {
	return m.listFunc(ctx, reference)
}

func TestChain_Resolve(t *testing.T) {
	var listedRef string
	searcher := &mockSearcher{searchFunc: func(_ context.Context, id string) ([]Candidate, error) {
		assert.Equal(t, "tt0000001", id)
		return []Candidate{
			{Title: "Movie.eng.1080p", Reference: "ref-eng"},
			{Title: "Movie.hun.720p", Reference: "ref-hun"},
		}, nil
	}}
	materializer := &mockMaterializer{listFunc: func(_ context.Context, ref string) ([]File, error) {
		listedRef = ref
		return []File{
			{Name: "Movie.hun.720p.sample.mkv", URL: "http://p/sample"},
			{Name: "Movie.hun.720p.mkv", URL: "http://p/movie"},
		}, nil
	}}

	chain := NewChain(Config{PreferredLanguage: "hun"}, searcher, materializer)
	src, err := chain.Resolve(context.Background(), "tt0000001")
	require.NoError(t, err)

	assert.Equal(t, "ref-hun", listedRef)
	assert.Equal(t, &Source{
		Identifier:      "tt0000001",
		Title:           "Movie.hun.720p",
		Reference:       "ref-hun",
		FileName:        "Movie.hun.720p.mkv",
		Locator:         "http://p/movie",
		QualityTag:      Quality720p,
		LanguageMatched: true,
	}, src)
}

func TestChain_ResolveFailures(t *testing.T) {
	okFiles := func(context.Context, string) ([]File, error) {
		return []File{{Name: "a.mkv", URL: "u"}}, nil
	}
	okSearch := func(context.Context, string) ([]Candidate, error) {
		return []Candidate{{Title: "a", Reference: "r"}}, nil
	}
	upstream := errors.New("connection refused")

	tests := []struct {
		name     string
		search   func(context.Context, string) ([]Candidate, error)
		list     func(context.Context, string) ([]File, error)
		wantErr  error
		wantList bool
	}{
		{
			name:    "search error",
			search:  func(context.Context, string) ([]Candidate, error) { return nil, upstream },
			list:    okFiles,
			wantErr: upstream,
		},
		{
			name:    "no candidates",
			search:  func(context.Context, string) ([]Candidate, error) { return nil, nil },
			list:    okFiles,
			wantErr: ErrNoCandidates,
		},
		{
			name:     "listing error",
			search:   okSearch,
			list:     func(context.Context, string) ([]File, error) { return nil, upstream },
			wantErr:  upstream,
			wantList: true,
		},
		{
			name:     "no playable file",
			search:   okSearch,
			list:     func(context.Context, string) ([]File, error) { return []File{{Name: "trailer.mkv", URL: "u"}}, nil },
			wantErr:  ErrNoPlayableFile,
			wantList: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listed := false
			m := &mockMaterializer{listFunc: func(ctx context.Context, ref string) ([]File, error) {
				listed = true
				return tt.list(ctx, ref)
			}}
			chain := NewChain(Config{PreferredLanguage: "hun"}, &mockSearcher{searchFunc: tt.search}, m)

			src, err := chain.Resolve(context.Background(), "tt1")
			assert.Nil(t, src)
			assert.ErrorIs(t, err, ErrResolutionFailed)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsUnresolved(err))
			assert.Equal(t, tt.wantList, listed)
		})
	}
}

func TestNewChain_NormalizesExtensions(t *testing.T) {
	chain := NewChain(Config{MediaExtensions: []string{"MKV", " .mp4 ", ""}}, nil, nil)
	assert.Equal(t, []string{".mkv", ".mp4"}, chain.cfg.MediaExtensions)
	assert.Equal(t, DefaultExcludeTokens, chain.cfg.ExcludeTokens)

	chain = NewChain(Config{ExcludeTokens: []string{}}, nil, nil)
	assert.Equal(t, DefaultMediaExtensions, chain.cfg.MediaExtensions)
	assert.Empty(t, chain.cfg.ExcludeTokens)
}
