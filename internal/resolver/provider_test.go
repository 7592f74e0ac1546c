package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeReference(t *testing.T) {
	assert.Equal(t, "magnet%3A%3Fxt%3Durn%3Abtih%3Aabc", escapeReference("magnet:?xt=urn:btih:abc"))
	assert.Equal(t, "http%3A%2F%2Fhost%2Fa%20b.torrent", escapeReference("http://host/a b.torrent"))
}

func TestProviderMaterializer_ListFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/torrent/magnet%3A%3Fxt%3Durn%3Abtih%3Aabc", r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"name":"Movie.sample.mkv","url":"http://p/1"},{"name":"Movie.mkv","url":"http://p/2"}]}`))
	}))
	defer srv.Close()

	m := NewProviderMaterializer(ProviderConfig{URL: srv.URL + "/"}, nil)
	files, err := m.ListFiles(context.Background(), "magnet:?xt=urn:btih:abc")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, File{Name: "Movie.mkv", URL: "http://p/2"}, files[1])
}

func TestProviderMaterializer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewProviderMaterializer(ProviderConfig{URL: srv.URL}, nil).ListFiles(context.Background(), "ref")
			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestSelectFile(t *testing.T) {
	tests := []struct {
		name   string
		files  []File
		want   string
		wantOK bool
	}{
		{
			name: "first playable",
			files: []File{
				{Name: "readme.txt", URL: "u0"},
				{Name: "Movie.1080p.MKV", URL: "u1"},
				{Name: "Movie.mp4", URL: "u2"},
			},
			want: "u1", wantOK: true,
		},
		{
			name: "sample and trailer excluded",
			files: []File{
				{Name: "Sample/movie-SAMPLE.mkv", URL: "u0"},
				{Name: "Movie.Trailer.mp4", URL: "u1"},
				{Name: "Movie.avi", URL: "u2"},
			},
			want: "u2", wantOK: true,
		},
		{
			name: "missing url skipped",
			files: []File{
				{Name: "Movie.mkv"},
				{Name: "Movie.mp4", URL: "u1"},
			},
			want: "u1", wantOK: true,
		},
		{
			name:  "nothing playable",
			files: []File{{Name: "Movie.srt", URL: "u0"}, {Name: "cover.jpg", URL: "u1"}},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectFile(tt.files, DefaultMediaExtensions, DefaultExcludeTokens)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.URL)
		})
	}
}
