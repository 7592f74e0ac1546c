package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const torznabFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
  <channel>
    <title>all</title>
    <item>
      <title>Movie.eng.1080p</title>
      <link>magnet:?xt=urn:btih:eng</link>
    </item>
    <item>
      <title> Movie.hun.720p </title>
      <link></link>
      <enclosure url="http://indexer/dl/hun.torrent" length="0" type="application/x-bittorrent"/>
    </item>
    <item>
      <title>Movie.nolink</title>
    </item>
  </channel>
</rss>`

func TestTorznabSearcher_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2.0/indexers/all/results/torznab/api", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "tt0000001", r.URL.Query().Get("imdbid"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(torznabFeedXML))
	}))
	defer srv.Close()

	s := NewTorznabSearcher(SearchConfig{Host: srv.URL + "/", APIKey: "secret", Timeout: 5 * time.Second}, nil)

	candidates, err := s.Search(context.Background(), "tt0000001")
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, Candidate{Title: "Movie.eng.1080p", Reference: "magnet:?xt=urn:btih:eng"}, candidates[0])
	assert.Equal(t, Candidate{Title: "Movie.hun.720p", Reference: "http://indexer/dl/hun.torrent"}, candidates[1])
	assert.Equal(t, Candidate{Title: "Movie.nolink", Reference: ""}, candidates[2])
}

func TestTorznabSearcher_CustomIndexer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2.0/indexers/ncore/results/torznab/api", r.URL.Path)
		_, _ = w.Write([]byte(`<rss><channel></channel></rss>`))
	}))
	defer srv.Close()

	s := NewTorznabSearcher(SearchConfig{Host: srv.URL, Indexer: "ncore"}, nil)
	candidates, err := s.Search(context.Background(), "tt1")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestTorznabSearcher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "not xml",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{\"error\":true}"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewTorznabSearcher(SearchConfig{Host: srv.URL}, nil).Search(context.Background(), "tt1")
			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestTorznabSearcher_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(torznabFeedXML))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTorznabSearcher(SearchConfig{Host: srv.URL, RateLimit: 1}, nil).Search(ctx, "tt1")
	assert.Error(t, err)
}

func TestTorznabSearcher_SearchURLEscapes(t *testing.T) {
	s := NewTorznabSearcher(SearchConfig{Host: "http://jackett:9117", APIKey: "a&b"}, nil)
	got := s.searchURL("tt0000001")
	assert.Equal(t, "http://jackett:9117/api/v2.0/indexers/all/results/torznab/api?apikey=a%26b&imdbid=tt0000001", got)
}
