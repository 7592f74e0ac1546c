// Package streaming assembles one continuous matroska stream per client from
// a channel's timeline, launching one FFmpeg process per timeline step.
package streaming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Container and pipe settings shared by both invocation shapes
const (
	outputFormat = "matroska"
	outputTarget = "pipe:1"
	logLevel     = "error"
)

// Common errors
var (
	ErrEmptyLocator     = errors.New("media locator cannot be empty")
	ErrNegativeOffset   = errors.New("seek offset cannot be negative")
	ErrInvalidDuration  = errors.New("filler duration must be positive")
	ErrInvalidFrameSize = errors.New("filler frame size must be positive")
	ErrInvalidFrameRate = errors.New("filler frame rate must be positive")
	ErrInvalidAudio     = errors.New("filler audio layout and sample rate are required")
)

// CopyParams parameterises the source-copy invocation
type CopyParams struct {
	Locator       string // URL or path of the media
	OffsetSeconds int64  // seek applied before the input is opened
}

// FillerParams parameterises the synthetic filler invocation
type FillerParams struct {
	DurationSeconds int64
	Filler          FillerConfig
}

// FFmpegCommand represents a built FFmpeg command
type FFmpegCommand struct {
	Args []string // Command arguments (without "ffmpeg" itself)
}

// String renders the command line for logs
func (c *FFmpegCommand) String() string {
	return "ffmpeg " + strings.Join(c.Args, " ")
}

// BuildCopyCommand builds the seek-and-copy command for a programme. Audio and
// video are copied without re-encoding into a matroska stream on stdout.
func BuildCopyCommand(params CopyParams) (*FFmpegCommand, error) {
	if strings.TrimSpace(params.Locator) == "" {
		return nil, ErrEmptyLocator
	}
	if params.OffsetSeconds < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeOffset, params.OffsetSeconds)
	}

	args := make([]string, 0, 18)
	args = append(args, baseArgs()...)

	// -ss before -i seeks the input rather than decoding up to the offset
	args = append(args, "-ss", strconv.FormatInt(params.OffsetSeconds, 10))
	args = append(args, "-i", params.Locator)

	args = append(args,
		"-map", "0:v",
		"-map", "0:a",
		"-c", "copy",
	)
	args = append(args, outputArgs()...)

	return &FFmpegCommand{Args: args}, nil
}

// BuildFillerCommand builds the colour-plus-silence generator for a schedule
// gap. Both tracks are encoded since there is no source to copy.
func BuildFillerCommand(params FillerParams) (*FFmpegCommand, error) {
	if err := validateFillerParams(params); err != nil {
		return nil, err
	}
	f := params.Filler

	args := make([]string, 0, 24)
	args = append(args, baseArgs()...)
	args = append(args,
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=size=%dx%d:rate=%d:duration=%d", f.Width, f.Height, f.FrameRate, params.DurationSeconds),
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", f.ChannelLayout, f.SampleRate),
		"-shortest",
	)
	args = append(args, buildVideoEncodeArgs(f)...)
	args = append(args, "-c:a", f.AudioCodec)
	args = append(args, outputArgs()...)

	return &FFmpegCommand{Args: args}, nil
}

// validateFillerParams validates all filler parameters
func validateFillerParams(params FillerParams) error {
	if params.DurationSeconds <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, params.DurationSeconds)
	}
	f := params.Filler
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrameSize, f.Width, f.Height)
	}
	if f.FrameRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrameRate, f.FrameRate)
	}
	if f.SampleRate <= 0 || f.ChannelLayout == "" {
		return ErrInvalidAudio
	}
	return nil
}

func baseArgs() []string {
	return []string{"-hide_banner", "-loglevel", logLevel}
}

func outputArgs() []string {
	return []string{"-f", outputFormat, outputTarget}
}

// buildVideoEncodeArgs builds the filler video encoder arguments. Only
// libx264 understands -preset.
func buildVideoEncodeArgs(f FillerConfig) []string {
	codec := f.VideoCodec
	if codec == "" {
		codec = "libx264"
	}
	if codec == "libx264" && f.Preset != "" {
		return []string{"-c:v", codec, "-preset", f.Preset}
	}
	return []string{"-c:v", codec}
}
