package format

import "errors"

// Selection failures are surfaced synchronously to the caller; no job is
// created when any of these is returned.
var (
	// ErrInvalidRequest means the request shape is malformed for its kind
	ErrInvalidRequest = errors.New("invalid download request")

	// ErrFormatNotFound means an explicitly named format id is absent from
	// the list implied by the request kind
	ErrFormatNotFound = errors.New("format not found")

	// ErrNoMatchingFormats means no classified format can satisfy the filter
	ErrNoMatchingFormats = errors.New("no matching formats")

	// ErrInvalidSourceURL means the selected format has an empty or
	// non-http source URL
	ErrInvalidSourceURL = errors.New("invalid source url")
)
