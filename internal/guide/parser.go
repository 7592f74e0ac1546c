package guide

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stwalsh4118/epgcast/internal/logger"
	"golang.org/x/net/html/charset"
)

// DefaultMaxBytes bounds how much of a guide document is read
const DefaultMaxBytes = 50 * 1024 * 1024

// Parse decodes an XMLTV document. Programmes with unparseable times or
// with start not before stop are dropped with a warning; channels without
// an id are ignored.
func Parse(r io.Reader, maxBytes int64) (*Guide, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	dec := xml.NewDecoder(io.LimitReader(r, maxBytes))
	dec.Strict = true
	// No entity expansion beyond the XML builtins
	dec.Entity = make(map[string]string)
	dec.CharsetReader = charset.NewReaderLabel

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrGuideParse)
		}
		return nil, fmt.Errorf("%w: %w", ErrGuideParse, err)
	}

	log := logger.Component("guide")

	channels := make([]Channel, 0, len(doc.Channels))
	for _, ch := range doc.Channels {
		id := strings.TrimSpace(ch.ID)
		if id == "" {
			continue
		}
		channels = append(channels, Channel{
			ID:          id,
			DisplayName: firstText(ch.DisplayNames),
		})
	}

	programmes := make([]Programme, 0, len(doc.Programmes))
	var dropped int
	for _, p := range doc.Programmes {
		start, err := ParseTime(p.Start)
		if err != nil {
			log.Warn().Err(err).Str("channel_id", p.Channel).Msg("Invalid start in programme")
			dropped++
			continue
		}
		stop, err := ParseTime(p.Stop)
		if err != nil {
			log.Warn().Err(err).Str("channel_id", p.Channel).Msg("Invalid stop in programme")
			dropped++
			continue
		}
		if !start.Before(stop) {
			log.Warn().
				Str("channel_id", p.Channel).
				Time("start", start).
				Time("stop", stop).
				Msg("Programme does not end after it starts")
			dropped++
			continue
		}
		programmes = append(programmes, Programme{
			ChannelID:   strings.TrimSpace(p.Channel),
			Start:       start,
			Stop:        stop,
			Title:       firstText(p.Titles),
			Description: firstText(p.Descs),
		})
	}

	log.Debug().
		Int("channels", len(channels)).
		Int("programmes", len(programmes)).
		Int("dropped", dropped).
		Msg("Guide parsed")

	return New(channels, programmes), nil
}
