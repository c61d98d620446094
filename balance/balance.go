// Package balance spreads new sessions across a mutable set of backend
// replicas using random, round-robin or weighted selection.
package balance

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/myriadb/connpool/define"
)

// Balancer owns the backend list, the active strategy and the round-robin
// cursor. All methods are safe for concurrent use.
type Balancer struct {
	mu       sync.Mutex
	backends []define.Backend
	strategy define.Strategy
	cursor   int
	rng      *rand.Rand
	log      zerolog.Logger
}

// New returns an empty balancer with the weighted strategy. Call Init or
// InitSingle before asking for backends.
func New(log zerolog.Logger) *Balancer {
	return &Balancer{
		strategy: define.StrategyWeighted,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      log,
	}
}

// Init replaces the backend list and strategy. It fails on an empty list or
// any invalid descriptor, and resets the round-robin cursor.
func (b *Balancer) Init(backends []define.Backend, strategy define.Strategy) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(backends) == 0 {
		return define.NewError(define.KindNoBackends, "balance.Init", "backend list is empty")
	}
	for i, bk := range backends {
		if !bk.Valid() {
			return define.NewError(define.KindConfig, "balance.Init",
				fmt.Sprintf("backend %d (%s) is invalid", i, bk.Addr()))
		}
	}

	b.backends = append([]define.Backend(nil), backends...)
	b.strategy = strategy
	b.cursor = 0
	b.log.Info().Stringer("strategy", strategy).Int("backends", len(backends)).Msg("balancer initialized")
	return nil
}

// InitSingle configures exactly one backend with the weighted strategy.
func (b *Balancer) InitSingle(backend define.Backend) error {
	return b.Init([]define.Backend{backend}, define.StrategyWeighted)
}

// Next returns the backend to open the next session against.
func (b *Balancer) Next() (define.Backend, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.backends) == 0 {
		return define.Backend{}, define.NewError(define.KindNoBackends, "balance.Next", "no backend databases available")
	}

	var picked define.Backend
	switch b.strategy {
	case define.StrategyRandom:
		picked = b.backends[b.rng.Intn(len(b.backends))]
	case define.StrategyRoundRobin:
		picked = b.backends[b.cursor]
		b.cursor = (b.cursor + 1) % len(b.backends)
	default:
		picked = b.selectWeighted()
	}
	b.log.Debug().Str("backend", picked.String()).Stringer("strategy", b.strategy).Msg("backend selected")
	return picked, nil
}

// selectWeighted picks with probability proportional to weight. Caller holds
// the lock.
func (b *Balancer) selectWeighted() define.Backend {
	total := 0
	for _, bk := range b.backends {
		total += bk.Weight
	}
	if total <= 0 {
		return b.backends[b.rng.Intn(len(b.backends))]
	}
	pick := b.rng.Intn(total)
	acc := 0
	for _, bk := range b.backends {
		acc += bk.Weight
		if pick < acc {
			return bk
		}
	}
	return b.backends[len(b.backends)-1]
}

// Add appends a backend. Adding an endpoint that is already present is a
// warned no-op; an invalid descriptor is an error.
func (b *Balancer) Add(backend define.Backend) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !backend.Valid() {
		return define.NewError(define.KindConfig, "balance.Add",
			fmt.Sprintf("backend %s is invalid", backend.Addr()))
	}
	for _, bk := range b.backends {
		if bk.SameEndpoint(backend.Host, backend.Port) {
			b.log.Warn().Str("backend", backend.Addr()).Msg("backend already present, ignoring add")
			return nil
		}
	}
	b.backends = append(b.backends, backend)
	b.log.Info().Str("backend", backend.String()).Msg("backend added")
	return nil
}

// Remove drops the backend at host:port, reporting whether one was removed.
// The round-robin cursor is clamped to the shrunken list.
func (b *Balancer) Remove(host string, port int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, bk := range b.backends {
		if bk.SameEndpoint(host, port) {
			b.backends = append(b.backends[:i], b.backends[i+1:]...)
			if len(b.backends) == 0 {
				b.cursor = 0
			} else {
				b.cursor %= len(b.backends)
			}
			b.log.Info().Str("backend", bk.Addr()).Msg("backend removed")
			return true
		}
	}
	return false
}

// UpdateWeight changes the weight of the backend at host:port, reporting
// whether it was found.
func (b *Balancer) UpdateWeight(host string, port int, weight int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.backends {
		if b.backends[i].SameEndpoint(host, port) {
			old := b.backends[i].Weight
			b.backends[i].Weight = weight
			b.log.Info().Str("backend", b.backends[i].Addr()).Int("old", old).Int("new", weight).Msg("backend weight updated")
			return true
		}
	}
	return false
}

// SetStrategy switches the selection strategy. Switching to round-robin
// restarts the cycle at the head of the list.
func (b *Balancer) SetStrategy(strategy define.Strategy) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.strategy = strategy
	if strategy == define.StrategyRoundRobin {
		b.cursor = 0
	}
	b.log.Info().Stringer("strategy", strategy).Msg("selection strategy changed")
}

// Strategy returns the active strategy.
func (b *Balancer) Strategy() define.Strategy {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.strategy
}

// Backends returns a snapshot of the descriptor list.
func (b *Balancer) Backends() []define.Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]define.Backend(nil), b.backends...)
}

// Count returns the number of configured backends.
func (b *Balancer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.backends)
}

// Status renders a human-readable snapshot of the balancer state.
func (b *Balancer) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "LoadBalancer{strategy=%s, backends=%d}\n", b.strategy, len(b.backends))
	for i, bk := range b.backends {
		fmt.Fprintf(&sb, "  [%d] %s (weight=%d)\n", i, bk.String(), bk.Weight)
	}
	return sb.String()
}
