// Package connpool is a client-side MySQL connection pool. It multiplexes a
// bounded set of live sessions among concurrent callers, spreads new
// sessions across a set of equivalent replicas, transparently reconnects
// after transport failures, and exposes live telemetry.
//
// A driver adapter must be linked in, usually by blank import:
//
//	import (
//		"github.com/myriadb/connpool"
//		"github.com/myriadb/connpool/define"
//		_ "github.com/myriadb/connpool/driver/gomysql"
//	)
//
//	cfg := define.DefaultConfig()
//	cfg.Host, cfg.User, cfg.Password, cfg.Database = "db1", "app", "secret", "orders"
//	pool, err := connpool.Open(cfg)
//	if err != nil { ... }
//	defer pool.Shutdown()
//
//	s, err := pool.Acquire(0)
//	if err != nil { ... }
//	defer pool.Release(s)
//	res, err := s.Execute("SELECT id, name FROM users")
package connpool

import "github.com/myriadb/connpool/define"

// Open builds a pool against the single backend named in the config and
// initializes it.
func Open(cfg define.PoolConfig, opts ...Option) (*Pool, error) {
	p := New(opts...)
	if err := p.InitSingle(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// OpenCluster builds a pool over several replicas with the given selection
// strategy and initializes it.
func OpenCluster(cfg define.PoolConfig, backends []define.Backend, strategy define.Strategy, opts ...Option) (*Pool, error) {
	p := New(opts...)
	if err := p.InitMultiple(cfg, backends, strategy); err != nil {
		return nil, err
	}
	return p, nil
}
