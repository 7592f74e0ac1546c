package streaming

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/stwalsh4118/epgcast/internal/logger"
)

const encoderListTimeout = 30 * time.Second

var (
	// ErrFFmpegNotFound indicates the configured ffmpeg binary cannot be resolved
	ErrFFmpegNotFound = errors.New("ffmpeg not found")
	// ErrEncoderListTimeout indicates ffmpeg did not list its encoders in time
	ErrEncoderListTimeout = errors.New("ffmpeg encoder listing timed out")
	// ErrMissingEncoder indicates the filler needs an encoder the ffmpeg build lacks
	ErrMissingEncoder = errors.New("ffmpeg encoder not available")
)

// CheckFFmpeg resolves the ffmpeg binary and verifies it can encode the
// filler with the configured video and audio codecs. Programme steps only
// remux, so the filler codecs are the only ones a stream depends on.
func CheckFFmpeg(ctx context.Context, cfg Config) error {
	binary := cfg.FFmpegPath
	if binary == "" {
		binary = defaultFFmpegPath
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFFmpegNotFound, binary, err)
	}

	ctx, cancel := context.WithTimeout(ctx, encoderListTimeout)
	defer cancel()

	// #nosec G204 -- binary comes from configuration
	output, err := exec.CommandContext(ctx, path, "-hide_banner", "-encoders").Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrEncoderListTimeout
		}
		return fmt.Errorf("failed to list encoders: %w", err)
	}

	available := parseEncoders(string(output))
	var missing []string
	for _, codec := range []string{cfg.Filler.VideoCodec, cfg.Filler.AudioCodec} {
		if codec != "" && !available[codec] {
			missing = append(missing, codec)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingEncoder, strings.Join(missing, ", "))
	}

	logger.Component("ffmpeg").Info().
		Str("binary", path).
		Int("encoders", len(available)).
		Str("video_codec", cfg.Filler.VideoCodec).
		Str("audio_codec", cfg.Filler.AudioCodec).
		Msg("ffmpeg encoders verified")
	return nil
}

// parseEncoders extracts encoder names from `ffmpeg -encoders` output. Each
// encoder line is " <6 capability flags> <name> <description>"; the flag
// legend above the list is separated by a "------" line.
func parseEncoders(output string) map[string]bool {
	encoders := make(map[string]bool)
	listing := false
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !listing {
			listing = strings.HasPrefix(fields[0], "---")
			continue
		}
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		switch fields[0][0] {
		case 'V', 'A', 'S':
			encoders[fields[1]] = true
		}
	}
	return encoders
}
