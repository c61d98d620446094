package driver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myriadb/connpool/define"
)

type nopConnector struct{ name string }

func (c nopConnector) Name() string { return c.name }
func (c nopConnector) Connect(define.Backend, Options) (Conn, error) {
	return nil, fmt.Errorf("not dialable")
}

func TestRegistry(t *testing.T) {
	Register("nop", nopConnector{name: "nop"})

	c, ok := Get("nop")
	require.True(t, ok)
	assert.Equal(t, "nop", c.Name())

	// Duplicate registration keeps the first connector.
	Register("nop", nopConnector{name: "other"})
	c, _ = Get("nop")
	assert.Equal(t, "nop", c.Name())

	_, ok = Get("missing")
	assert.False(t, ok)
}

func TestRegisterNilPanics(t *testing.T) {
	assert.Panics(t, func() { Register("bad", nil) })
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 5*time.Second, o.ConnectTimeout)
	assert.Equal(t, 30*time.Second, o.ReadTimeout)
	assert.Equal(t, 30*time.Second, o.WriteTimeout)
	assert.Equal(t, "utf8mb4", o.Charset)
}

func TestTransportCodeSet(t *testing.T) {
	// The transport set is exactly these six codes.
	for _, code := range []uint16{2002, 2003, 2006, 2013, 2027, 2055} {
		assert.True(t, IsTransportCode(code), "code %d", code)
	}
	for _, code := range []uint16{0, 1045, 1064, 1146, 2000, 2001, 2004, 2005, 2012, 2014, 2026, 2028, 2054, 2056} {
		assert.False(t, IsTransportCode(code), "code %d", code)
	}
}

func TestIsTransportError(t *testing.T) {
	assert.True(t, IsTransportError(define.SQLError("op", 2013, "lost")))
	assert.True(t, IsTransportError(define.NewError(define.KindTransportGone, "op", "no handle")))
	assert.False(t, IsTransportError(define.SQLError("op", 1064, "syntax")))
	assert.False(t, IsTransportError(errors.New("plain")))
	assert.False(t, IsTransportError(nil))
}

func TestNetworkCode(t *testing.T) {
	assert.Equal(t, CRConnHostError, NetworkCode(errors.New("refused"), true))
	assert.Equal(t, CRServerGoneError, NetworkCode(io.EOF, false))
	assert.Equal(t, CRServerGoneError, NetworkCode(fmt.Errorf("read: %w", io.ErrUnexpectedEOF), false))
	assert.Equal(t, CRServerLost, NetworkCode(&net.OpError{Op: "read", Err: errors.New("reset")}, false))
	assert.Equal(t, CRServerLost, NetworkCode(errors.New("anything else"), false))
}

func TestEscapeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `plain`},
		{`it's`, `it\'s`},
		{`a"b`, `a\"b`},
		{"line\nbreak", `line\nbreak`},
		{"cr\rhere", `cr\rhere`},
		{`back\slash`, `back\\slash`},
		{"nul\x00byte", `nul\0byte`},
		{"ctrlz\x1a", `ctrlz\Z`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeString(tt.in))
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'o\'reilly'`, Quote("o'reilly"))
	assert.Equal(t, `''`, Quote(""))
}
