package connpool

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/myriadb/connpool/define"
	"github.com/myriadb/connpool/driver"
	"github.com/myriadb/connpool/metrics"
)

const (
	sessionIDLength = 16
	maxBackoff      = 30 * time.Second
)

// Session is one live connection to one backend plus its reconnect policy.
// A session is a single-owner resource: while checked out it belongs to one
// caller, and every operation serializes on the session's own lock.
type Session struct {
	mu        sync.Mutex
	conn      driver.Conn
	connector driver.Connector
	backend   define.Backend
	opts      driver.Options
	closed    bool

	id         string
	createdAt  int64
	lastActive atomic.Int64

	reconnectInterval time.Duration
	reconnectAttempts int

	totalReconnects    atomic.Int64
	reconnectSuccesses atomic.Int64

	logQueries bool
	monitor    *metrics.Monitor
	log        zerolog.Logger
}

// NewSession builds an unconnected session against the given backend with
// the pool's reconnect policy. Call Connect before use.
func NewSession(connector driver.Connector, backend define.Backend, cfg define.PoolConfig,
	log zerolog.Logger, monitor *metrics.Monitor) *Session {
	now := define.NowMillis()
	s := &Session{
		connector:         connector,
		backend:           backend,
		opts:              driver.DefaultOptions(),
		id:                define.RandomID(sessionIDLength),
		createdAt:         now,
		reconnectInterval: cfg.ReconnectInterval,
		reconnectAttempts: cfg.ReconnectAttempts,
		logQueries:        cfg.LogQueries,
		monitor:           monitor,
		log:               log,
	}
	s.lastActive.Store(now)
	return s
}

// ID returns the 16-character session identifier.
func (s *Session) ID() string { return s.id }

// Backend returns the descriptor this session dials.
func (s *Session) Backend() define.Backend { return s.backend }

// CreatedAtMillis returns the creation wall clock in milliseconds.
func (s *Session) CreatedAtMillis() int64 { return s.createdAt }

// LastActiveMillis returns the wall clock of the last successful use.
func (s *Session) LastActiveMillis() int64 { return s.lastActive.Load() }

// TotalReconnects returns how many reconnect attempts this session has made.
func (s *Session) TotalReconnects() int64 { return s.totalReconnects.Load() }

// SuccessfulReconnects returns how many of those attempts succeeded.
func (s *Session) SuccessfulReconnects() int64 { return s.reconnectSuccesses.Load() }

func (s *Session) touch() {
	s.lastActive.Store(define.NowMillis())
}

// Connect attempts one driver connect. It reports success and never retries;
// retry behavior belongs to Reconnect.
func (s *Session) Connect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.conn != nil {
		return true
	}
	conn, err := s.connector.Connect(s.backend, s.opts)
	if err != nil {
		s.log.Warn().Err(err).Str("session", s.id).Str("backend", s.backend.String()).Msg("connect failed")
		return false
	}
	s.conn = conn
	s.touch()
	s.log.Debug().Str("session", s.id).Str("backend", s.backend.String()).Msg("session connected")
	return true
}

// CheckValid quietly reports whether the session answers a ping. No
// reconnects, no telemetry.
func (s *Session) CheckValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return false
	}
	return s.conn.Ping() == nil
}

// CheckActive is CheckValid with optional recovery: when the ping fails with
// a transport error and tryReconnect is set, it runs the reconnect loop.
func (s *Session) CheckActive(tryReconnect bool) bool {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return false
	}
	err := s.conn.Ping()
	s.mu.Unlock()

	if err == nil {
		return true
	}
	if tryReconnect && driver.IsTransportError(err) {
		return s.Reconnect()
	}
	s.log.Warn().Err(err).Str("session", s.id).Msg("ping failed")
	return false
}

// Reconnect drops the current handle and redials with bounded exponential
// backoff: delay = min(interval * 2^(attempt-1), 30s), jittered by ±20% and
// floored at 1ms. The session lock is released while sleeping.
func (s *Session) Reconnect() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}

	for attempt := 1; attempt <= s.reconnectAttempts; attempt++ {
		s.totalReconnects.Add(1)
		conn, err := s.connector.Connect(s.backend, s.opts)
		if err == nil {
			s.conn = conn
			s.touch()
			s.reconnectSuccesses.Add(1)
			s.mu.Unlock()
			s.monitor.RecordReconnection(true)
			s.log.Info().Str("session", s.id).Int("attempt", attempt).Msg("reconnected")
			return true
		}

		var de *define.Error
		code := uint16(0)
		if errors.As(err, &de) {
			code = de.Code
		}
		s.log.Warn().Err(err).Str("session", s.id).Int("attempt", attempt).Uint16("code", code).Msg("reconnect attempt failed")

		if attempt < s.reconnectAttempts {
			delay := backoffDelay(s.reconnectInterval, attempt)
			s.mu.Unlock()
			time.Sleep(delay)
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return false
			}
		}
	}
	s.mu.Unlock()

	s.monitor.RecordReconnection(false)
	s.log.Error().Str("session", s.id).Int("attempts", s.reconnectAttempts).Msg("reconnect attempts exhausted")
	return false
}

// backoffDelay computes the jittered exponential delay for one reconnect
// attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			break
		}
	}
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	jittered := time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
	if jittered < time.Millisecond {
		jittered = time.Millisecond
	}
	return jittered
}

// execute runs one statement on the current handle without any retry.
func (s *Session) execute(sqlText string) (*driver.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, define.NewError(define.KindShutdown, "session.Execute", "session closed by pool shutdown")
	}
	if s.conn == nil {
		return nil, define.NewError(define.KindTransportGone, "session.Execute", "no live connection")
	}
	s.touch()
	if s.logQueries {
		s.log.Debug().Str("session", s.id).Str("sql", sqlText).Msg("executing")
	}
	return s.conn.Execute(sqlText)
}

// Execute runs one statement with transparent recovery: transport errors
// trigger the reconnect loop and a retry, up to reconnect attempts + 1 tries
// in total. SQL-level errors surface immediately; exhaustion returns a
// KindReconnectExhausted error wrapping the last failure.
func (s *Session) Execute(sqlText string) (*driver.Result, error) {
	start := time.Now()
	tries := s.reconnectAttempts + 1
	var lastErr error

	for i := 0; i < tries; i++ {
		if i > 0 && !s.Reconnect() {
			continue
		}

		res, err := s.execute(sqlText)
		if err == nil {
			s.monitor.RecordQuery(time.Since(start), true)
			return res, nil
		}
		lastErr = err

		var de *define.Error
		if errors.As(err, &de) && de.Kind == define.KindShutdown {
			s.monitor.RecordQuery(time.Since(start), false)
			return nil, err
		}
		if !driver.IsTransportError(err) {
			s.monitor.RecordQuery(time.Since(start), false)
			return nil, err
		}
		s.log.Warn().Err(err).Str("session", s.id).Int("try", i+1).Msg("transport error during execute")
	}

	s.monitor.RecordQuery(time.Since(start), false)
	return nil, define.WrapError(define.KindReconnectExhausted, "session.Execute",
		fmt.Sprintf("all %d attempts failed for %q", tries, sqlText), lastErr)
}

// BeginTransaction starts a transaction on this session. Transactions never
// cross a reconnect, so failures report false instead of retrying.
func (s *Session) BeginTransaction() bool {
	return s.runControl("START TRANSACTION")
}

// Commit commits the open transaction.
func (s *Session) Commit() bool {
	return s.runControl("COMMIT")
}

// Rollback rolls the open transaction back.
func (s *Session) Rollback() bool {
	return s.runControl("ROLLBACK")
}

func (s *Session) runControl(stmt string) bool {
	if _, err := s.execute(stmt); err != nil {
		s.log.Warn().Err(err).Str("session", s.id).Str("statement", stmt).Msg("transaction control failed")
		return false
	}
	return true
}

// Escape escapes a string through the driver, honoring the connection
// charset.
func (s *Session) Escape(in string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return "", define.NewError(define.KindTransportGone, "session.Escape", "no live connection")
	}
	return s.conn.Escape(in), nil
}

// Close tears the session down. Further operations fail cleanly; Close is
// idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
