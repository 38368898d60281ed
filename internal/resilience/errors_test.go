package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid model"), false},
		{"transient", &TransientError{Err: errors.New("busy"), StatusCode: 429}, true},
		{"wrapped transient", eris.Wrap(&TransientError{Err: errors.New("busy"), StatusCode: 503}, "session: ask"), true},
		{"net timeout", fmt.Errorf("dial: %w", timeoutErr{}), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"message pattern", errors.New("Post http://localhost:3000/api/chat: unexpected EOF"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	t.Parallel()

	base := errors.New("overloaded")
	err := &TransientError{Err: base, StatusCode: 529}
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "overloaded", err.Error())
}

func TestAny(t *testing.T) {
	t.Parallel()

	special := errors.New("special")
	pred := Any(IsTransient, func(err error) bool { return errors.Is(err, special) })

	assert.True(t, pred(special))
	assert.True(t, pred(&TransientError{Err: errors.New("x"), StatusCode: 0}))
	assert.False(t, pred(errors.New("other")))
	assert.False(t, Any()(special))
}
