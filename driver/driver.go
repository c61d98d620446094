// Package driver defines the adapter contract between the pool and a
// concrete MySQL client implementation. Adapters register themselves by name,
// mirroring database/sql: blank-import the adapter package and name it in the
// pool configuration.
package driver

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/myriadb/connpool/define"
)

// Options carries the per-connection settings applied when dialing.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Charset        string
}

// DefaultOptions returns the standard dial settings: 5s connect, 30s
// read/write, utf8mb4.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		Charset:        "utf8mb4",
	}
}

// Conn is one live connection to a MySQL backend. Implementations are not
// safe for concurrent use; the owning session serializes access.
type Conn interface {
	// Ping checks liveness. A failure carries the driver error code.
	Ping() error

	// Execute runs one SQL text and returns the materialized result. Row
	// results carry rows and field names; update results carry the affected
	// row count. Errors are *define.Error with Kind KindSQL and the driver
	// code set.
	Execute(sql string) (*Result, error)

	// Escape escapes a string for safe inclusion in a SQL literal, honoring
	// the connection charset.
	Escape(s string) string

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Connector dials new connections for one adapter implementation.
type Connector interface {
	// Name returns the registered adapter name.
	Name() string

	// Connect dials the backend. Errors carry the driver error code (a
	// transport code for network failures) so the caller can classify them.
	Connect(backend define.Backend, opts Options) (Conn, error)
}

var (
	connectorsMu sync.RWMutex
	connectors   = make(map[string]Connector)
)

// Register makes a connector available under its name. It panics on a nil
// connector, as database/sql.Register does, and ignores duplicate
// registrations.
func Register(name string, c Connector) {
	connectorsMu.Lock()
	defer connectorsMu.Unlock()
	if c == nil {
		panic("driver: Register connector is nil")
	}
	if _, dup := connectors[name]; dup {
		return
	}
	connectors[name] = c
}

// Get returns the connector registered under name.
func Get(name string) (Connector, bool) {
	connectorsMu.RLock()
	defer connectorsMu.RUnlock()
	c, ok := connectors[name]
	return c, ok
}

var (
	loggerMu sync.RWMutex
	logger   = zerolog.Nop()
)

// SetLogger installs the logger used for non-fatal driver events such as
// result conversion failures.
func SetLogger(l zerolog.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func log() *zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return &logger
}
