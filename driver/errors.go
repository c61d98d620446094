package driver

import (
	"errors"
	"io"
	"net"

	"github.com/myriadb/connpool/define"
)

// MySQL client error codes observed on a broken transport. Executing on a
// connection that fails with one of these triggers a reconnect; every other
// code is a SQL-level error and surfaces to the caller.
const (
	CRConnectionError    uint16 = 2002 // can't connect through socket
	CRConnHostError      uint16 = 2003 // can't connect to host
	CRServerGoneError    uint16 = 2006 // server has gone away
	CRServerLost         uint16 = 2013 // lost connection during query
	CRMalformedPacket    uint16 = 2027 // malformed packet
	CRServerLostExtended uint16 = 2055 // lost connection with system error
)

// IsTransportCode reports whether code denotes lost or broken connectivity.
func IsTransportCode(code uint16) bool {
	switch code {
	case CRConnectionError, CRConnHostError, CRServerGoneError,
		CRServerLost, CRMalformedPacket, CRServerLostExtended:
		return true
	}
	return false
}

// IsTransportError reports whether err is a *define.Error carrying a
// transport code, or a KindTransportGone error.
func IsTransportError(err error) bool {
	var de *define.Error
	if !errors.As(err, &de) {
		return false
	}
	if de.Kind == define.KindTransportGone {
		return true
	}
	return IsTransportCode(de.Code)
}

// NetworkCode maps a raw connection-level failure onto the matching client
// error code. Adapters use it for errors that do not come from the server:
// refused dials, resets, EOFs.
func NetworkCode(err error, dialing bool) uint16 {
	if dialing {
		return CRConnHostError
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return CRServerGoneError
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return CRServerLost
	}
	var op *net.OpError
	if errors.As(err, &op) {
		return CRServerLost
	}
	return CRServerLost
}
