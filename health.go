package connpool

import (
	"time"

	"github.com/myriadb/connpool/define"
)

// healthLoop runs one pass every HealthCheckPeriod until Shutdown: prune
// idle sessions, then refill to the minimum.
func (p *Pool) healthLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		p.mu.Lock()
		period := p.cfg.HealthCheckPeriod
		p.mu.Unlock()

		select {
		case <-stop:
			return
		case <-time.After(period):
		}

		p.mu.Lock()
		if !p.running {
			p.mu.Unlock()
			return
		}
		p.log.Debug().Msg("health pass starting")
		p.cleanupIdleLocked()
		p.ensureMinimumLocked()
		p.log.Debug().Int("total", p.total).Int("idle", len(p.idle)).Msg("health pass completed")
		p.mu.Unlock()
	}
}

// cleanupIdleLocked walks the idle queue: valid and fresh sessions stay,
// valid but stale sessions stay only while the pool is at or below its
// minimum, everything else is closed. Caller holds the pool lock.
func (p *Pool) cleanupIdleLocked() {
	now := define.NowMillis()
	maxIdle := p.cfg.MaxIdleTime.Milliseconds()
	keep := make([]*Session, 0, len(p.idle))

	for _, s := range p.idle {
		if s.CheckValid() {
			idleFor := now - s.LastActiveMillis()
			if idleFor <= maxIdle {
				keep = append(keep, s)
				continue
			}
			if p.total <= p.cfg.MinConnections {
				// Past the idle limit, but closing it would shrink below
				// the floor.
				keep = append(keep, s)
				continue
			}
			p.log.Info().Str("session", s.ID()).Int64("idle_ms", idleFor).Msg("closing idle session past max idle time")
		} else {
			p.log.Info().Str("session", s.ID()).Msg("closing dead idle session")
		}
		s.Close()
		p.total--
	}
	p.idle = keep
}

// ensureMinimumLocked opens sessions until the pool is back at its minimum,
// stopping at the first failure so a dead backend is not hammered. Caller
// holds the pool lock.
func (p *Pool) ensureMinimumLocked() {
	for p.total < p.cfg.MinConnections {
		s, err := p.createSession()
		if err != nil {
			p.log.Warn().Err(err).Msg("cannot refill pool to minimum")
			return
		}
		p.idle = append(p.idle, s)
		p.total++
		p.cond.Broadcast()
	}
}
