package define

import "fmt"

// Strategy selects how the replica selector picks the next backend.
type Strategy int

const (
	StrategyRandom     Strategy = iota // uniform over backends
	StrategyRoundRobin                 // cycle in list order
	StrategyWeighted                   // probability proportional to weight
)

// String returns the strategy name used in logs and status output.
func (s Strategy) String() string {
	switch s {
	case StrategyRandom:
		return "RANDOM"
	case StrategyRoundRobin:
		return "ROUND_ROBIN"
	case StrategyWeighted:
		return "WEIGHTED"
	default:
		return "UNKNOWN"
	}
}

// Backend describes one MySQL replica plus its load-balancing weight.
// Two backends are the same endpoint when host and port match.
type Backend struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Port     int    `yaml:"port"`
	Weight   int    `yaml:"weight"`
}

// NewBackend builds a descriptor with the MySQL default port and weight 1
// when zero values are passed for them.
func NewBackend(host, user, password, database string, port, weight int) Backend {
	if port == 0 {
		port = 3306
	}
	if weight <= 0 {
		weight = 1
	}
	return Backend{Host: host, User: user, Password: password, Database: database, Port: port, Weight: weight}
}

// Valid reports whether the descriptor is complete enough to dial.
func (b Backend) Valid() bool {
	return b.Host != "" && b.User != "" && b.Database != "" && b.Port > 0
}

// Addr returns the host:port dial address.
func (b Backend) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// SameEndpoint reports whether the descriptor addresses host:port.
func (b Backend) SameEndpoint(host string, port int) bool {
	return b.Host == host && b.Port == port
}

// String renders user@host:port/database. The password is never included.
func (b Backend) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", b.User, b.Host, b.Port, b.Database)
}
