package externalApi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrNotFound    = errors.New("error not found")
	ErrTimeout     = errors.New("error timeout")
	ErrParse       = errors.New("error parse response")
	ErrUnavailable = errors.New("error source unavailable")
)

// Classify wraps a transport error into ErrTimeout or ErrUnavailable so callers can
// tell a slow source from a broken one.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrParse) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, err.Error())
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
}

// StatusError maps a non-2xx HTTP status into the taxonomy.
func StatusError(status int) error {
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: http status %d", ErrNotFound, status)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: http status %d", ErrTimeout, status)
	default:
		return fmt.Errorf("%w: http status %d", ErrUnavailable, status)
	}
}

// Reason is the short label shown next to a degraded price.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrParse):
		return "parse error"
	default:
		return "unavailable"
	}
}
