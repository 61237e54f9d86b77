package remote

import "errors"

var (
	// ErrRejected means the sidecar refused the request (4xx).
	ErrRejected = errors.New("remote: request rejected")

	// ErrUnavailable means the sidecar could not be reached or kept failing.
	ErrUnavailable = errors.New("remote: inference service unavailable")

	// ErrMalformedResponse means a 2xx reply could not be decoded.
	ErrMalformedResponse = errors.New("remote: malformed response")

	ErrNoBaseURL = errors.New("remote: base URL is required")
)
