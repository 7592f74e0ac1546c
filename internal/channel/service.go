package channel

import (
	"context"

	"github.com/stwalsh4118/epgcast/internal/guide"
	"github.com/stwalsh4118/epgcast/internal/logger"
)

// Service serves the channel catalog from a freshly fetched guide
type Service struct {
	guides   guide.Source
	guideURL string
}

// NewService creates a channel service. guideURL is advertised to players.
func NewService(guides guide.Source, guideURL string) *Service {
	return &Service{guides: guides, guideURL: guideURL}
}

// Playlist fetches the guide and builds the catalog with stream URLs under baseURL
func (s *Service) Playlist(ctx context.Context, baseURL string) (*Playlist, error) {
	g, err := s.guides.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	p, err := Build(g, s.guideURL, baseURL)
	if err != nil {
		return nil, err
	}

	logger.Component("channel").Debug().
		Int("channels", len(p.Entries)).
		Msg("Built channel playlist")
	return p, nil
}
