package channel

import "errors"

var (
	// ErrInvalidBaseURL indicates the public base URL cannot be used to build stream URLs
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// IsInvalidBaseURL checks if the error is an invalid base URL error
func IsInvalidBaseURL(err error) bool {
	return errors.Is(err, ErrInvalidBaseURL)
}
