package errs

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrMethodNotAllowed  = errors.New("method not allowed")
	ErrUpstreamEmbedding = errors.New("upstream embedding error")
	ErrUpstreamChat      = errors.New("upstream chat error")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrMalformedUpstream = errors.New("malformed upstream response")
	ErrStoreUnavailable  = errors.New("vector store unavailable")
	ErrInvalidDimension  = errors.New("invalid vector dimension")
	ErrInternal          = errors.New("internal")
)

func IsTimeout(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout)
}

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamEmbedding) ||
		errors.Is(err, ErrUpstreamChat) ||
		errors.Is(err, ErrMalformedUpstream) ||
		errors.Is(err, ErrStoreUnavailable)
}
