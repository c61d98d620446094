package connpool

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/myriadb/connpool/balance"
	"github.com/myriadb/connpool/define"
	"github.com/myriadb/connpool/driver"
	"github.com/myriadb/connpool/metrics"
)

// Pool multiplexes a bounded set of MySQL sessions among concurrent callers.
// Sessions are kept in a FIFO idle queue, checked out one caller at a time,
// and pruned/refilled by a background health loop.
type Pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg       define.PoolConfig
	connector driver.Connector
	balancer  *balance.Balancer

	idle       []*Session
	checkedOut map[string]*Session
	total      int
	running    bool

	healthStop chan struct{}
	healthDone chan struct{}

	monitor *metrics.Monitor
	log     zerolog.Logger
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithLogger installs a structured logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// WithMonitor installs a telemetry collector instead of the process default.
func WithMonitor(m *metrics.Monitor) Option {
	return func(p *Pool) { p.monitor = m }
}

// New builds an idle pool. Configure backends and call Init, or use
// InitSingle / InitMultiple, before acquiring sessions.
func New(opts ...Option) *Pool {
	p := &Pool{
		checkedOut: make(map[string]*Session),
		monitor:    metrics.Default(),
		log:        zerolog.Nop(),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, o := range opts {
		o(p)
	}
	p.balancer = balance.New(p.log)
	return p
}

// Balancer exposes the replica selector for backend mutations at runtime.
func (p *Pool) Balancer() *balance.Balancer { return p.balancer }

// Monitor exposes the telemetry collector.
func (p *Pool) Monitor() *metrics.Monitor { return p.monitor }

// Init validates the configuration, eagerly opens up to InitConnections
// sessions and starts the health loop. The replica selector must already be
// configured; InitSingle and InitMultiple do both in one call.
func (p *Pool) Init(cfg define.PoolConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return define.NewError(define.KindConfig, "pool.Init", "pool is already running")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Driver == "" {
		cfg.Driver = "mysql"
	}
	connector, ok := driver.Get(cfg.Driver)
	if !ok {
		return define.NewError(define.KindConfig, "pool.Init",
			fmt.Sprintf("unknown driver %q (missing adapter import?)", cfg.Driver))
	}
	p.cfg = cfg
	p.connector = connector
	p.monitor.SetEnabled(cfg.EnableStats)
	p.log.Info().Str("config", cfg.Summary()).Msg("initializing pool")

	target := cfg.InitConnections
	if target > cfg.MaxConnections {
		target = cfg.MaxConnections
	}
	var lastErr error
	created := 0
	for i := 0; i < target; i++ {
		s, err := p.createSession()
		if err != nil {
			lastErr = err
			p.log.Error().Err(err).Int("attempt", i).Msg("initial session creation failed")
			continue
		}
		p.idle = append(p.idle, s)
		p.total++
		created++
	}
	if target > 0 && created == 0 {
		return define.WrapError(define.KindNoBackends, "pool.Init", "could not create any initial session", lastErr)
	}
	if created < cfg.MinConnections {
		p.log.Warn().Int("created", created).Int("min", cfg.MinConnections).
			Msg("fewer initial sessions than the configured minimum")
	}

	p.running = true
	p.healthStop = make(chan struct{})
	p.healthDone = make(chan struct{})
	go p.healthLoop(p.healthStop, p.healthDone)

	p.log.Info().Int("sessions", created).Msg("pool running")
	return nil
}

// InitSingle configures the selector with the config's default backend and
// initializes the pool.
func (p *Pool) InitSingle(cfg define.PoolConfig) error {
	if err := p.balancer.InitSingle(cfg.DefaultBackend()); err != nil {
		return err
	}
	return p.Init(cfg)
}

// InitMultiple configures the selector with the given replicas and strategy
// and initializes the pool.
func (p *Pool) InitMultiple(cfg define.PoolConfig, backends []define.Backend, strategy define.Strategy) error {
	if err := p.balancer.Init(backends, strategy); err != nil {
		return err
	}
	return p.Init(cfg)
}

// createSession asks the selector for a backend, opens a session against it
// and verifies it with a quiet ping. The caller accounts for it in total.
func (p *Pool) createSession() (*Session, error) {
	backend, err := p.balancer.Next()
	if err != nil {
		p.monitor.RecordConnectionFailed()
		return nil, err
	}
	s := NewSession(p.connector, backend, p.cfg, p.log, p.monitor)
	if !s.Connect() {
		s.Close()
		p.monitor.RecordConnectionFailed()
		return nil, define.NewError(define.KindTransportGone, "pool.createSession",
			fmt.Sprintf("cannot connect to %s", backend.String()))
	}
	if !s.CheckValid() {
		s.Close()
		p.monitor.RecordConnectionFailed()
		return nil, define.NewError(define.KindTransportGone, "pool.createSession",
			fmt.Sprintf("new session to %s failed validation", backend.String()))
	}
	p.monitor.RecordConnectionCreated()
	p.log.Debug().Str("session", s.ID()).Str("backend", backend.String()).Msg("session created")
	return s, nil
}

// Acquire checks a session out, waiting up to timeout for capacity. A zero
// timeout uses the configured ConnectionTimeout. The pool lock is released
// while dialing so slow connects do not block other acquirers.
func (p *Pool) Acquire(timeout time.Duration) (*Session, error) {
	start := time.Now()

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil, define.NewError(define.KindNotRunning, "pool.Acquire", "pool is not running")
	}
	if timeout <= 0 {
		timeout = p.cfg.ConnectionTimeout
	}
	deadline := start.Add(timeout)

	for {
		// Reuse an idle session when one passes a quiet ping.
		if len(p.idle) > 0 {
			s := p.idle[0]
			p.idle = p.idle[1:]
			if s.CheckValid() {
				p.checkedOut[s.ID()] = s
				s.touch()
				p.mu.Unlock()
				p.monitor.RecordConnectionAcquired(time.Since(start))
				return s, nil
			}
			// Dead idle session: drop it. The pool shrank, nobody to wake.
			p.total--
			s.Close()
			p.log.Info().Str("session", s.ID()).Msg("discarded invalid idle session")
			continue
		}

		if p.total < p.cfg.MaxConnections {
			p.mu.Unlock()
			s, err := p.createSession()
			p.mu.Lock()
			if !p.running {
				if s != nil {
					s.Close()
				}
				p.mu.Unlock()
				return nil, define.NewError(define.KindNotRunning, "pool.Acquire", "pool shut down during acquire")
			}
			if err != nil {
				p.log.Warn().Err(err).Msg("session creation during acquire failed")
			} else if p.total >= p.cfg.MaxConnections {
				// Raced with other creators past the ceiling; give ours up.
				s.Close()
				p.log.Debug().Str("session", s.ID()).Msg("discarding surplus session created over capacity")
			} else {
				p.total++
				p.checkedOut[s.ID()] = s
				p.mu.Unlock()
				p.monitor.RecordConnectionAcquired(time.Since(start))
				return s, nil
			}
			if time.Now().After(deadline) {
				p.mu.Unlock()
				p.monitor.RecordConnectionFailed()
				return nil, define.NewError(define.KindTimeout, "pool.Acquire",
					fmt.Sprintf("no connection available within %s", timeout))
			}
			continue
		}

		// At capacity: wait for a release or the deadline.
		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.mu.Unlock()
			p.monitor.RecordConnectionFailed()
			return nil, define.NewError(define.KindTimeout, "pool.Acquire",
				fmt.Sprintf("no connection available within %s", timeout))
		}
		timer := time.AfterFunc(remaining, p.cond.Broadcast)
		p.cond.Wait()
		timer.Stop()
		if !p.running {
			p.mu.Unlock()
			return nil, define.NewError(define.KindNotRunning, "pool.Acquire", "pool shut down during acquire")
		}
	}
}

// Release checks a session back in. Invalid sessions are closed and, when
// the pool is under its minimum, replaced. Releasing nil is a no-op.
func (p *Pool) Release(s *Session) {
	if s == nil {
		p.log.Warn().Msg("attempted to release a nil session")
		return
	}

	p.mu.Lock()
	if !p.running {
		delete(p.checkedOut, s.ID())
		s.Close()
		p.mu.Unlock()
		return
	}
	delete(p.checkedOut, s.ID())
	usage := time.Duration(define.NowMillis()-s.LastActiveMillis()) * time.Millisecond

	switch {
	case p.total > p.cfg.MaxConnections:
		// Overshoot left by a shrinking reconfigure while sessions were out.
		s.Close()
		p.total--
		p.log.Debug().Str("session", s.ID()).Msg("closed surplus session on release")

	case s.CheckValid():
		p.idle = append(p.idle, s)

	default:
		s.Close()
		p.total--
		p.log.Info().Str("session", s.ID()).Msg("released session was dead, closed")
		if p.total < p.cfg.MinConnections {
			if ns, err := p.createSession(); err == nil {
				p.idle = append(p.idle, ns)
				p.total++
				p.log.Debug().Str("session", ns.ID()).Msg("replacement session created")
			} else {
				p.log.Warn().Err(err).Msg("could not create replacement session")
			}
		}
	}

	p.cond.Broadcast()
	p.mu.Unlock()
	p.monitor.RecordConnectionReleased(usage)
}

// Reconfigure swaps the live configuration. When the new ceiling is below
// the current population, idle sessions are closed synchronously; the health
// loop grows the pool back to the new minimum on its own.
func (p *Pool) Reconfigure(cfg define.PoolConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cfg.Driver == "" {
		cfg.Driver = p.cfg.Driver
	}
	if cfg.Driver != p.cfg.Driver {
		return define.NewError(define.KindConfig, "pool.Reconfigure", "driver cannot change at runtime")
	}
	p.cfg = cfg
	p.monitor.SetEnabled(cfg.EnableStats)

	for p.total > cfg.MaxConnections && len(p.idle) > 0 {
		s := p.idle[0]
		p.idle = p.idle[1:]
		s.Close()
		p.total--
		p.log.Info().Str("session", s.ID()).Msg("closed idle session to honor new ceiling")
	}
	p.log.Info().Str("config", cfg.Summary()).Msg("pool reconfigured")
	return nil
}

// SetConnectionLimits adjusts min/max (and clamps init) on the live config.
func (p *Pool) SetConnectionLimits(min, max int) error {
	if min <= 0 || max <= 0 || min > max {
		return define.NewError(define.KindConfig, "pool.SetConnectionLimits",
			fmt.Sprintf("invalid limits: min=%d max=%d", min, max))
	}
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()
	cfg.SetConnectionLimits(min, max, cfg.InitConnections)
	return p.Reconfigure(cfg)
}

// SetTimeoutSettings adjusts the acquire timeout, idle limit and health
// period on the live config.
func (p *Pool) SetTimeoutSettings(connTimeout, idleTimeout, checkPeriod time.Duration) error {
	if connTimeout <= 0 || idleTimeout <= 0 || checkPeriod <= 0 {
		return define.NewError(define.KindConfig, "pool.SetTimeoutSettings", "timeouts must all be positive")
	}
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()
	cfg.SetTimeouts(connTimeout, idleTimeout, checkPeriod)
	return p.Reconfigure(cfg)
}

// SetLoadBalanceStrategy switches the replica selection strategy.
func (p *Pool) SetLoadBalanceStrategy(strategy define.Strategy) {
	p.balancer.SetStrategy(strategy)
}

// Shutdown stops the health loop, wakes every waiter and closes all
// sessions. Checked-out sessions are invalidated in place: later operations
// on them fail (Execute with a shutdown error) instead of touching a dead
// handle.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.healthStop)
	p.cond.Broadcast()
	done := p.healthDone
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	for _, s := range p.idle {
		s.Close()
	}
	for _, s := range p.checkedOut {
		s.Close()
	}
	idleClosed, heldClosed := len(p.idle), len(p.checkedOut)
	p.idle = nil
	p.checkedOut = make(map[string]*Session)
	p.total = 0
	p.mu.Unlock()

	p.log.Info().Int("idle_closed", idleClosed).Int("checked_out_closed", heldClosed).Msg("pool shut down")
}

// Running reports whether the pool accepts acquires.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Counts returns the idle, checked-out and total session counts.
func (p *Pool) Counts() (idle, checkedOut, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), len(p.checkedOut), p.total
}

// Config returns a copy of the live configuration.
func (p *Pool) Config() define.PoolConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Status renders a human-readable snapshot of the pool state.
func (p *Pool) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("ConnectionPool{running=%t, total=%d, idle=%d, checkedOut=%d, limits=[%d,%d]}",
		p.running, p.total, len(p.idle), len(p.checkedOut),
		p.cfg.MinConnections, p.cfg.MaxConnections)
}
