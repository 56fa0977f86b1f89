package reliability

import (
	"context"
	"errors"
	"net"
)

// FailureKind tags why a provider attempt produced no usable text.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureEmpty     FailureKind = "empty"
	FailureTransport FailureKind = "transport"
	FailureTimeout   FailureKind = "timeout"
)

// Classify maps a provider error to a failure tag. Deadline expiry and
// network timeouts are timeouts; everything else is transport.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureTransport
}
