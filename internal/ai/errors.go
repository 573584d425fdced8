package ai

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/xxxsen/embedgate/internal/pkg/errs"
)

var ErrUnavailable = errors.New("ai provider not configured")

// wrapUpstream classifies a raw provider failure. Deadline and network
// timeouts become ErrUpstreamTimeout, everything else is tagged with the
// given kind (ErrUpstreamChat / ErrUpstreamEmbedding).
func wrapUpstream(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", errs.ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", errs.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", kind, err)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errs.ErrMalformedUpstream, fmt.Sprintf(format, args...))
}
