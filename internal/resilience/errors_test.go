package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped explicit", fmt.Errorf("search: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"eris wrapped explicit", eris.Wrap(NewTransientError(errors.New("busy"), 529), "generate: complete"), true},
		{"plain", errors.New("invalid api key"), false},
		{"conn reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"string pattern", errors.New("read: connection reset by peer"), true},
		{"unexpected eof", errors.New("stream: unexpected EOF"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestFromStatus(t *testing.T) {
	base := errors.New("tavily: unexpected status")

	assert.Nil(t, FromStatus(nil, 500))
	assert.True(t, IsTransient(FromStatus(base, 429)))
	assert.True(t, IsTransient(FromStatus(base, 503)))
	assert.False(t, IsTransient(FromStatus(base, 401)))
	assert.Same(t, base, FromStatus(base, 404))

	var te *TransientError
	assert.True(t, errors.As(FromStatus(base, 502), &te))
	assert.Equal(t, 502, te.StatusCode)
	assert.ErrorIs(t, FromStatus(base, 502), base)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
