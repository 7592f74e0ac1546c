// Package channel builds the client-facing channel catalog and its M3U playlist.
package channel

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/stwalsh4118/epgcast/internal/guide"
)

// Entry is one channel as offered to players
type Entry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Number    int    `json:"number"`
	StreamURL string `json:"stream_url"`
}

// Playlist is the channel catalog of one guide
type Playlist struct {
	GuideURL string  `json:"guide_url"`
	Entries  []Entry `json:"channels"`
}

// StreamURL returns the stream address of channelID under baseURL
// (scheme and host, e.g. "http://tuner:8080")
func StreamURL(baseURL, channelID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	return u.JoinPath("channel", channelID).String(), nil
}

// Build lists the guide's channels in document order, numbered from 1
func Build(g *guide.Guide, guideURL, baseURL string) (*Playlist, error) {
	channels := g.Channels()
	p := &Playlist{
		GuideURL: guideURL,
		Entries:  make([]Entry, 0, len(channels)),
	}

	for i, ch := range channels {
		stream, err := StreamURL(baseURL, ch.ID)
		if err != nil {
			return nil, err
		}
		p.Entries = append(p.Entries, Entry{
			ID:        ch.ID,
			Name:      ch.Name(),
			Number:    i + 1,
			StreamURL: stream,
		})
	}
	return p, nil
}

// M3U renders the playlist in extended M3U form. The guide location is
// advertised in the header so players can load the programme data.
//
// M3U has no escape syntax: values are written raw, with double quotes in
// attributes turned into single quotes and line breaks into spaces.
func (p *Playlist) M3U() string {
	var b strings.Builder
	guideURL := m3uAttr(p.GuideURL)
	fmt.Fprintf(&b, `#EXTM3U url-tvg="%s" x-tvg-url="%s"`, guideURL, guideURL)
	for _, e := range p.Entries {
		id := m3uAttr(e.ID)
		fmt.Fprintf(&b, "\n#EXTINF:0 tvg-id=\"%s\" channel-id=\"%s\" channel-number=\"%d\" tvg-name=\"%s\", %s\n%s",
			id, id, e.Number, id, m3uText(e.Name), e.StreamURL)
	}
	return b.String()
}

var (
	m3uTextReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")
	m3uAttrReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", `"`, "'")
)

func m3uText(s string) string {
	return m3uTextReplacer.Replace(s)
}

func m3uAttr(s string) string {
	return m3uAttrReplacer.Replace(s)
}
