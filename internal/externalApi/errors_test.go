package externalApi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: ErrTimeout},
		{name: "net timeout", err: timeoutErr{}, want: ErrTimeout},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: ErrUnavailable},
		{name: "already classified", err: fmt.Errorf("x: %w", ErrParse), want: ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify(tt.err), tt.want)
		})
	}

	assert.NoError(t, Classify(nil))
}

func TestStatusError(t *testing.T) {
	assert.ErrorIs(t, StatusError(http.StatusNotFound), ErrNotFound)
	assert.ErrorIs(t, StatusError(http.StatusGatewayTimeout), ErrTimeout)
	assert.ErrorIs(t, StatusError(http.StatusTooManyRequests), ErrUnavailable)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "not found", Reason(ErrNotFound))
	assert.Equal(t, "timeout", Reason(fmt.Errorf("a: %w", ErrTimeout)))
	assert.Equal(t, "parse error", Reason(ErrParse))
	assert.Equal(t, "unavailable", Reason(errors.New("boom")))
}
