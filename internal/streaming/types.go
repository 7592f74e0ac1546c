package streaming

import (
	"time"

	"github.com/stwalsh4118/epgcast/internal/resolver"
	"github.com/stwalsh4118/epgcast/internal/timeline"
)

const (
	// DefaultChunkSize is the copy buffer used between a process and the client
	DefaultChunkSize = 4096

	defaultFFmpegPath = "ffmpeg"
)

// FillerConfig fixes the shape of generated gap filler
type FillerConfig struct {
	Width         int
	Height        int
	FrameRate     int
	SampleRate    int
	ChannelLayout string
	Preset        string
	VideoCodec    string
	AudioCodec    string
}

// Config is the assembler configuration, fixed at construction
type Config struct {
	FFmpegPath string
	ChunkSize  int
	Filler     FillerConfig
}

// DefaultConfig returns a 1280x720 25fps stereo filler setup with 4 KiB chunks
func DefaultConfig() Config {
	return Config{
		FFmpegPath: defaultFFmpegPath,
		ChunkSize:  DefaultChunkSize,
		Filler: FillerConfig{
			Width:         1280,
			Height:        720,
			FrameRate:     25,
			SampleRate:    44100,
			ChannelLayout: "stereo",
			Preset:        "ultrafast",
			VideoCodec:    "libx264",
			AudioCodec:    "aac",
		},
	}
}

// StreamStep is a timeline step ready to play. Source is set for programme
// steps and nil for gaps.
type StreamStep struct {
	timeline.Step
	Source *resolver.Source
}

// Outcome is how one step ended
type Outcome string

const (
	// OutcomeCompleted means the process reached end of output normally
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed means the step could not be played; the walk continues
	OutcomeFailed Outcome = "failed"
	// OutcomeAborted means the client went away; the walk stops
	OutcomeAborted Outcome = "aborted"
	// OutcomeSkipped means the programme was never started
	OutcomeSkipped Outcome = "skipped"
)

// StepResult is what the assembler reports back for one step
type StepResult struct {
	Outcome  Outcome
	Bytes    int64
	Err      *StreamError
	Started  time.Time
	Finished time.Time
}
