package define

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	e := NewError(KindTimeout, "pool.Acquire", "no connection available")
	assert.Equal(t, "[pool.Acquire] timeout: no connection available", e.Error())

	e = SQLError("session.Execute", 1064, "syntax error")
	assert.Contains(t, e.Error(), "code 1064")

	wrapped := WrapError(KindConfig, "config.Load", "cannot read file", errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "detail: boom")
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(KindTimeout, "pool.Acquire", "deadline"))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrNotRunning)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := WrapError(KindTransportGone, "pool.createSession", "cannot connect", cause)
	assert.ErrorIs(t, err, cause)

	var de *Error
	require.ErrorAs(t, error(err), &de)
	assert.Equal(t, KindTransportGone, de.Kind)
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindConfig:             "config",
		KindNotRunning:         "not_running",
		KindTimeout:            "timeout",
		KindNoBackends:         "no_backends",
		KindTransportGone:      "transport_gone",
		KindSQL:                "sql",
		KindReconnectExhausted: "reconnect_exhausted",
		KindShutdown:           "shutdown",
		Kind(99):               "unknown",
	}
	for k, want := range kinds {
		assert.Equal(t, want, k.String())
	}
}
