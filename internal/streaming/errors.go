package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"syscall"

	"github.com/stwalsh4118/epgcast/internal/resolver"
)

// ErrorType represents the type of streaming error
type ErrorType int

const (
	// ErrorTypeTransferFailed indicates the media process exited abnormally
	ErrorTypeTransferFailed ErrorType = iota
	// ErrorTypeIdentifierMissing indicates the programme description has no content identifier
	ErrorTypeIdentifierMissing
	// ErrorTypeResolutionFailed indicates either resolver stage failed
	ErrorTypeResolutionFailed
	// ErrorTypeNoOutput indicates the media process ended without writing anything
	ErrorTypeNoOutput
	// ErrorTypeSourceUnreachable indicates the media process could not open its input
	ErrorTypeSourceUnreachable
	// ErrorTypeSourceCorrupt indicates the input could not be demuxed
	ErrorTypeSourceCorrupt
	// ErrorTypeTimeout indicates an operation timed out
	ErrorTypeTimeout
	// ErrorTypeLaunchFailed indicates the media process could not be started
	ErrorTypeLaunchFailed
	// ErrorTypeClientDisconnected indicates the client went away mid-stream
	ErrorTypeClientDisconnected
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTransferFailed:
		return "transfer_failed"
	case ErrorTypeIdentifierMissing:
		return "identifier_missing"
	case ErrorTypeResolutionFailed:
		return "resolution_failed"
	case ErrorTypeNoOutput:
		return "no_output"
	case ErrorTypeSourceUnreachable:
		return "source_unreachable"
	case ErrorTypeSourceCorrupt:
		return "source_corrupt"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeLaunchFailed:
		return "launch_failed"
	case ErrorTypeClientDisconnected:
		return "client_disconnected"
	default:
		return "unknown"
	}
}

// ErrorSeverity represents the severity of a streaming error
type ErrorSeverity int

const (
	// SeverityInfo represents expected events such as a client hanging up
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning represents a step that was skipped
	SeverityWarning
	// SeverityError represents a step that started and then failed
	SeverityError
	// SeverityCritical represents a failure that will recur for every step
	SeverityCritical
)

// String returns the string representation of ErrorSeverity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// StreamError represents a structured step error with classification.
// Recoverable errors let the walk continue with the next step.
type StreamError struct {
	Type        ErrorType
	Severity    ErrorSeverity
	Message     string
	Cause       error
	Recoverable bool
}

// NewStreamError creates a new StreamError with the given type, message, and cause
func NewStreamError(errorType ErrorType, message string, cause error) *StreamError {
	severity, recoverable := classifyErrorTypeAttributes(errorType)
	return &StreamError{
		Type:        errorType,
		Severity:    severity,
		Message:     message,
		Cause:       cause,
		Recoverable: recoverable,
	}
}

// Error implements the error interface
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// classifyErrorTypeAttributes returns severity and recoverability for an error type
func classifyErrorTypeAttributes(errorType ErrorType) (ErrorSeverity, bool) {
	switch errorType {
	case ErrorTypeIdentifierMissing, ErrorTypeResolutionFailed:
		return SeverityWarning, true
	case ErrorTypeNoOutput, ErrorTypeSourceUnreachable, ErrorTypeSourceCorrupt:
		return SeverityWarning, true
	case ErrorTypeTransferFailed, ErrorTypeTimeout:
		return SeverityError, true
	case ErrorTypeLaunchFailed:
		return SeverityCritical, true
	case ErrorTypeClientDisconnected:
		return SeverityInfo, false
	default:
		return SeverityError, false
	}
}

// IsClientGone reports whether err means the client connection is gone
func IsClientGone(err error) bool {
	if err == nil {
		return false
	}
	var streamErr *StreamError
	if errors.As(err, &streamErr) && streamErr.Type == ErrorTypeClientDisconnected {
		return true
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed)
}

// ClassifyError classifies a generic error into a StreamError
func ClassifyError(err error) *StreamError {
	if err == nil {
		return nil
	}

	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return streamErr
	}

	switch {
	case errors.Is(err, resolver.ErrIdentifierNotFound):
		return NewStreamError(ErrorTypeIdentifierMissing, "Programme has no content identifier", err)
	case resolver.IsUnresolved(err):
		return NewStreamError(ErrorTypeResolutionFailed, "Source unresolved for programme", err)
	case IsClientGone(err):
		return NewStreamError(ErrorTypeClientDisconnected, "Client disconnected", err)
	case errors.Is(err, exec.ErrNotFound):
		return NewStreamError(ErrorTypeLaunchFailed, "FFmpeg binary not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewStreamError(ErrorTypeTimeout, "Operation timed out", err)
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "timed out") {
		return NewStreamError(ErrorTypeTimeout, "Operation timed out", err)
	}

	return NewStreamError(ErrorTypeTransferFailed, "Unknown FFmpeg error", err)
}

// ParseFFmpegError parses FFmpeg stderr output to classify errors
func ParseFFmpegError(stderr string) *StreamError {
	stderrLower := strings.ToLower(stderr)

	if strings.Contains(stderrLower, "connection refused") ||
		strings.Contains(stderrLower, "server returned") ||
		strings.Contains(stderrLower, "http error") ||
		strings.Contains(stderrLower, "name or service not known") ||
		strings.Contains(stderrLower, "no such file or directory") {
		return NewStreamError(ErrorTypeSourceUnreachable, "Input could not be opened", fmt.Errorf("ffmpeg: %s", stderr))
	}

	if strings.Contains(stderrLower, "invalid data found") ||
		strings.Contains(stderrLower, "could not find codec") ||
		strings.Contains(stderrLower, "moov atom not found") {
		return NewStreamError(ErrorTypeSourceCorrupt, "Input is corrupted or invalid", fmt.Errorf("ffmpeg: %s", stderr))
	}

	if strings.Contains(stderrLower, "timed out") || strings.Contains(stderrLower, "timeout") {
		return NewStreamError(ErrorTypeTimeout, "FFmpeg operation timed out", fmt.Errorf("ffmpeg: %s", stderr))
	}

	return NewStreamError(ErrorTypeTransferFailed, "FFmpeg process failed", fmt.Errorf("ffmpeg: %s", stderr))
}

// Common streaming errors
var (
	// ErrNoOutput indicates a media process exited without writing any bytes
	ErrNoOutput = errors.New("media process produced no output")
	// ErrProducerStarted indicates Start was called twice on one producer
	ErrProducerStarted = errors.New("producer already started")
)
