package resolver

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrIdentifierNotFound indicates a programme description carries no content identifier
	ErrIdentifierNotFound = errors.New("content identifier not found")

	// ErrResolutionFailed wraps every failure of either resolver stage
	ErrResolutionFailed = errors.New("source unresolved")

	// ErrNoCandidates indicates the search index returned nothing usable
	ErrNoCandidates = errors.New("no usable search candidate")

	// ErrNoPlayableFile indicates the file listing had no acceptable media file
	ErrNoPlayableFile = errors.New("no playable file")

	// ErrUpstream indicates a resolver service answered with an error or undecodable body
	ErrUpstream = errors.New("resolver upstream error")
)

// IsUnresolved reports whether err is a per-programme resolution failure
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrResolutionFailed) || errors.Is(err, ErrIdentifierNotFound)
}

// upstreamError wraps err as ErrUpstream unless the caller's ctx has ended,
// in which case the upstream is not to blame and the ctx error is returned.
func upstreamError(ctx context.Context, what string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", what, ctxErr)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, what, err)
}
