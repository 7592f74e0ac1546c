package guide

import "errors"

var (
	// ErrChannelNotFound indicates the channel id is not declared by the guide
	ErrChannelNotFound = errors.New("channel not found in guide")

	// ErrGuideUnavailable indicates the guide document could not be retrieved
	ErrGuideUnavailable = errors.New("guide unavailable")

	// ErrGuideParse indicates the guide document could not be decoded
	ErrGuideParse = errors.New("guide parse error")

	// ErrInvalidTime is returned by ParseTime for malformed XMLTV timestamps
	ErrInvalidTime = errors.New("invalid xmltv time")
)

// IsChannelNotFound checks if the error is a channel not found error
func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}

// IsGuideFailure reports whether err means no timeline could be produced because
// the guide itself could not be obtained or decoded
func IsGuideFailure(err error) bool {
	return errors.Is(err, ErrGuideUnavailable) || errors.Is(err, ErrGuideParse)
}
