package define

import "fmt"

// Kind classifies pool errors so callers can branch without string matching.
type Kind int

const (
	KindConfig             Kind = iota + 1 // invalid limits or timeouts
	KindNotRunning                         // pool used before Init or after Shutdown
	KindTimeout                            // acquire deadline elapsed
	KindNoBackends                         // selector has no descriptors, or Init opened no session
	KindTransportGone                      // session has no live handle
	KindSQL                                // driver reported an error for a statement
	KindReconnectExhausted                 // every reconnect attempt failed
	KindShutdown                           // session invalidated by pool shutdown
)

// String returns the kind name used in logs and error text.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindNotRunning:
		return "not_running"
	case KindTimeout:
		return "timeout"
	case KindNoBackends:
		return "no_backends"
	case KindTransportGone:
		return "transport_gone"
	case KindSQL:
		return "sql"
	case KindReconnectExhausted:
		return "reconnect_exhausted"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by the pool, the sessions and the
// replica selector. Code carries the driver's numeric error code when the
// error originated in the driver, zero otherwise.
type Error struct {
	Kind    Kind
	Op      string
	Code    uint16
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s: code %d: %s (detail: %v)", e.Op, e.Kind, e.Code, e.Message, e.Err)
		}
		return fmt.Sprintf("[%s] %s: code %d: %s", e.Op, e.Kind, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s (detail: %v)", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, define.ErrTimeout)
// works regardless of Op and Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrConfig             = &Error{Kind: KindConfig, Message: "invalid configuration"}
	ErrNotRunning         = &Error{Kind: KindNotRunning, Message: "pool is not running"}
	ErrTimeout            = &Error{Kind: KindTimeout, Message: "timed out waiting for a connection"}
	ErrNoBackends         = &Error{Kind: KindNoBackends, Message: "no backend databases configured"}
	ErrTransportGone      = &Error{Kind: KindTransportGone, Message: "no live connection"}
	ErrShutdown           = &Error{Kind: KindShutdown, Message: "pool has been shut down"}
	ErrReconnectExhausted = &Error{Kind: KindReconnectExhausted, Message: "reconnect attempts exhausted"}
)

// NewError builds an *Error for the given operation.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError builds an *Error around a cause.
func WrapError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// SQLError builds a KindSQL error carrying the driver error code.
func SQLError(op string, code uint16, message string) *Error {
	return &Error{Kind: KindSQL, Op: op, Code: code, Message: message}
}
