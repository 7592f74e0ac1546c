package streaming

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/stwalsh4118/epgcast/internal/logger"
)

const (
	// Process termination timeouts
	terminationTimeout = 5 * time.Second
	killTimeout        = 2 * time.Second

	// stderr lines kept for error classification
	stderrTailLines = 20
)

// Process management errors
var (
	ErrInvalidCommand = errors.New("invalid FFmpeg command")
	ErrProcessTimeout = errors.New("process termination timeout")
)

// launchedProcess is a started FFmpeg process. stdout is read by the caller;
// stderr is drained into the logger and a bounded tail.
type launchedProcess struct {
	cmd     *exec.Cmd
	stdout  *os.File
	tail    *lineTail
	drained chan struct{} // closed once stderr hits EOF
	exited  chan struct{} // closed once the process has been reaped
	exitErr error
}

// launchFFmpeg launches binary with the given command. The pipes are created
// by hand so that reaping the process never closes stdout under a reader.
func launchFFmpeg(binary string, cmd *FFmpegCommand) (*launchedProcess, error) {
	launchStartTime := time.Now()

	if cmd == nil || len(cmd.Args) == 0 {
		return nil, ErrInvalidCommand
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	execCmd := exec.Command(binary, cmd.Args...) // #nosec G204
	execCmd.Stdout = stdoutW
	execCmd.Stderr = stderrW

	if err := execCmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	// the child holds its own copies of the write ends
	closeAll(stdoutW, stderrW)

	p := &launchedProcess{
		cmd:     execCmd,
		stdout:  stdoutR,
		tail:    newLineTail(stderrTailLines),
		drained: make(chan struct{}),
		exited:  make(chan struct{}),
	}

	pid := execCmd.Process.Pid
	go func() {
		defer close(p.drained)
		defer func() {
			_ = stderrR.Close()
		}()
		captureFFmpegOutput(pid, stderrR, p.tail)
	}()
	go func() {
		p.exitErr = execCmd.Wait()
		close(p.exited)
	}()

	logger.Log.Info().
		Int("pid", pid).
		Strs("args", cmd.Args).
		Int64("total_launch_latency_ms", time.Since(launchStartTime).Milliseconds()).
		Msg("FFmpeg process launched")

	return p, nil
}

// wait blocks until the process has exited and its stderr is drained
func (p *launchedProcess) wait() error {
	<-p.exited
	<-p.drained
	return p.exitErr
}

// terminateProcess terminates a process gracefully (SIGTERM) then forcefully (SIGKILL) if needed.
// exited must be closed by whoever reaps the process.
func terminateProcess(process *os.Process, exited <-chan struct{}) error {
	terminateStartTime := time.Now()
	pid := process.Pid

	select {
	case <-exited:
		return nil
	default:
	}

	logger.Log.Debug().
		Int("pid", pid).
		Msg("Sending SIGTERM to FFmpeg process")

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			logger.Log.Debug().
				Int("pid", pid).
				Msg("Process already terminated")
			return nil
		}
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	select {
	case <-exited:
		logger.Log.Info().
			Int("pid", pid).
			Int64("terminate_latency_ms", time.Since(terminateStartTime).Milliseconds()).
			Msg("FFmpeg process terminated gracefully")
		return nil
	case <-time.After(terminationTimeout):
		logger.Log.Warn().
			Int("pid", pid).
			Dur("timeout", terminationTimeout).
			Msg("FFmpeg process didn't exit gracefully, sending SIGKILL")

		if err := process.Kill(); err != nil {
			if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
				return nil
			}
			return fmt.Errorf("failed to kill process: %w", err)
		}

		select {
		case <-exited:
			logger.Log.Info().
				Int("pid", pid).
				Int64("terminate_latency_ms", time.Since(terminateStartTime).Milliseconds()).
				Msg("FFmpeg process killed")
			return nil
		case <-time.After(killTimeout):
			logger.Log.Error().
				Int("pid", pid).
				Dur("kill_timeout", killTimeout).
				Msg("FFmpeg process did not die after SIGKILL")
			return fmt.Errorf("%w: process %d did not die after SIGKILL", ErrProcessTimeout, pid)
		}
	}
}

// captureFFmpegOutput logs FFmpeg's stderr line by line and keeps the last lines in tail
func captureFFmpegOutput(pid int, reader io.Reader, tail *lineTail) {
	scanner := bufio.NewScanner(reader)
	scanner.Split(bufio.ScanLines)

	for scanner.Scan() {
		line := scanner.Text()
		tail.add(line)
		if containsError(line) {
			logger.Log.Error().
				Int("ffmpeg_pid", pid).
				Str("output", line).
				Msg("FFmpeg error")
		} else {
			logger.Log.Debug().
				Int("ffmpeg_pid", pid).
				Str("output", line).
				Msg("FFmpeg output")
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Log.Warn().
			Err(err).
			Int("ffmpeg_pid", pid).
			Msg("Error reading FFmpeg output")
	}
}

// containsError checks if a log line contains error indicators
func containsError(line string) bool {
	lower := strings.ToLower(line)
	for _, keyword := range []string{"error", "failed", "fatal", "invalid"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// lineTail keeps the most recent lines written to it
type lineTail struct {
	mu    sync.Mutex
	lines []string
	limit int
}

func newLineTail(maxLines int) *lineTail {
	return &lineTail{limit: maxLines}
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
