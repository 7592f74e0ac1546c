package api

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/epgcast/internal/guide"
	"github.com/stwalsh4118/epgcast/internal/resolver"
	"github.com/stwalsh4118/epgcast/internal/streaming"
)

var testNow = time.Date(2025, 3, 14, 10, 15, 0, 0, time.UTC)

type stubGuides struct {
	g   *guide.Guide
	err error
}

func (s stubGuides) Fetch(context.Context) (*guide.Guide, error) {
	return s.g, s.err
}

func sampleGuide() *guide.Guide {
	return guide.New(
		[]guide.Channel{{ID: "C1", DisplayName: "Channel One"}, {ID: "C2"}},
		[]guide.Programme{
			{
				ChannelID:   "C1",
				Start:       testNow.Add(-15 * time.Minute),
				Stop:        testNow.Add(15 * time.Minute),
				Title:       "First",
				Description: "IMDB: tt0000001",
			},
		},
	)
}

type mapResolver map[string]string

func (m mapResolver) Resolve(_ context.Context, identifier string) (*resolver.Source, error) {
	locator, ok := m[identifier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resolver.ErrResolutionFailed, identifier)
	}
	return &resolver.Source{Identifier: identifier, Locator: locator}, nil
}

// echoPlayer writes the locator of each programme step to the sink
type echoPlayer struct{}

func (echoPlayer) Play(_ context.Context, step streaming.StreamStep, sink io.Writer) streaming.StepResult {
	payload := "filler"
	if step.Source != nil {
		payload = step.Source.Locator
	}
	n, err := io.WriteString(sink, payload)
	if err != nil {
		return streaming.StepResult{Outcome: streaming.OutcomeAborted, Bytes: int64(n)}
	}
	return streaming.StepResult{Outcome: streaming.OutcomeCompleted, Bytes: int64(n)}
}

func newTestEngine(guides guide.Source) *streaming.Engine {
	return streaming.NewEngine(guides, mapResolver{"tt0000001": "http://p/1.mkv"}, echoPlayer{},
		streaming.WithClock(func() time.Time { return testNow }))
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
