package define

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PoolConfig defines connection pool sizing, timeouts and reconnect policy,
// plus the default backend used in single-database mode.
type PoolConfig struct {
	// Driver is the name of the registered driver adapter to dial with.
	// Defaults to "mysql".
	Driver string `yaml:"driver"`

	// Default backend, used by InitSingle.
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Port     int    `yaml:"port"`

	// MinConnections is the number of sessions the pool keeps alive at all
	// times. Must be > 0 and <= MaxConnections.
	MinConnections int `yaml:"min_connections"`

	// MaxConnections is the hard ceiling on live sessions.
	MaxConnections int `yaml:"max_connections"`

	// InitConnections is the number of sessions opened eagerly by Init.
	// Must be <= MaxConnections. Zero starts an empty pool that fills lazily.
	InitConnections int `yaml:"init_connections"`

	// ConnectionTimeout bounds how long Acquire waits for a free session
	// when called with a zero timeout.
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	// MaxIdleTime is how long a session may sit idle before the health loop
	// closes it (the pool never shrinks below MinConnections this way).
	MaxIdleTime time.Duration `yaml:"max_idle_time"`

	// HealthCheckPeriod is the interval between health passes.
	HealthCheckPeriod time.Duration `yaml:"health_check_period"`

	// ReconnectInterval is the base delay of the exponential reconnect
	// backoff; ReconnectAttempts bounds the retries.
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`

	// LogQueries logs every SQL statement at debug level.
	LogQueries bool `yaml:"log_queries"`

	// EnableStats toggles telemetry collection.
	EnableStats bool `yaml:"enable_stats"`
}

// DefaultConfig returns the standard settings: a 5..20 connection pool, 5s
// acquire timeout, 10m idle limit, 30s health period and a 1s x3 reconnect
// policy against port 3306.
func DefaultConfig() PoolConfig {
	return PoolConfig{
		Driver:            "mysql",
		Port:              3306,
		MinConnections:    5,
		MaxConnections:    20,
		InitConnections:   5,
		ConnectionTimeout: 5 * time.Second,
		MaxIdleTime:       10 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ReconnectInterval: time.Second,
		ReconnectAttempts: 3,
		EnableStats:       true,
	}
}

// Validate checks the sizing and timeout invariants.
func (c PoolConfig) Validate() error {
	if c.MinConnections <= 0 || c.MaxConnections <= 0 || c.MinConnections > c.MaxConnections {
		return NewError(KindConfig, "config.Validate",
			fmt.Sprintf("connection limits invalid: min=%d max=%d", c.MinConnections, c.MaxConnections))
	}
	if c.InitConnections > c.MaxConnections {
		return NewError(KindConfig, "config.Validate",
			fmt.Sprintf("init_connections %d exceeds max_connections %d", c.InitConnections, c.MaxConnections))
	}
	if c.ConnectionTimeout <= 0 || c.MaxIdleTime <= 0 || c.HealthCheckPeriod <= 0 {
		return NewError(KindConfig, "config.Validate", "timeouts must all be positive")
	}
	return nil
}

// DefaultBackend returns the single-database descriptor embedded in the
// config, weight 1.
func (c PoolConfig) DefaultBackend() Backend {
	return NewBackend(c.Host, c.User, c.Password, c.Database, c.Port, 1)
}

// SetConnectionLimits adjusts the sizing fields. A zero init follows min and
// init is clamped to max.
func (c *PoolConfig) SetConnectionLimits(min, max, init int) {
	c.MinConnections = min
	c.MaxConnections = max
	if init == 0 {
		init = min
	}
	if init > max {
		init = max
	}
	c.InitConnections = init
}

// SetTimeouts adjusts the acquire timeout, idle limit and health period.
func (c *PoolConfig) SetTimeouts(connTimeout, idleTimeout, checkPeriod time.Duration) {
	c.ConnectionTimeout = connTimeout
	c.MaxIdleTime = idleTimeout
	c.HealthCheckPeriod = checkPeriod
}

// Summary returns a one-line digest for logs.
func (c PoolConfig) Summary() string {
	return fmt.Sprintf("PoolConfig{connections=[%d,%d] init=%d timeout=%s idle=%s health=%s}",
		c.MinConnections, c.MaxConnections, c.InitConnections,
		c.ConnectionTimeout, c.MaxIdleTime, c.HealthCheckPeriod)
}

// UnmarshalYAML overlays the YAML document onto the current value, so
// omitted fields keep whatever they already hold. Durations accept
// time.ParseDuration strings ("250ms", "2s").
func (c *PoolConfig) UnmarshalYAML(node *yaml.Node) error {
	type shadow struct {
		Driver            string `yaml:"driver"`
		Host              string `yaml:"host"`
		User              string `yaml:"user"`
		Password          string `yaml:"password"`
		Database          string `yaml:"database"`
		Port              int    `yaml:"port"`
		MinConnections    int    `yaml:"min_connections"`
		MaxConnections    int    `yaml:"max_connections"`
		InitConnections   int    `yaml:"init_connections"`
		ConnectionTimeout string `yaml:"connection_timeout"`
		MaxIdleTime       string `yaml:"max_idle_time"`
		HealthCheckPeriod string `yaml:"health_check_period"`
		ReconnectInterval string `yaml:"reconnect_interval"`
		ReconnectAttempts int    `yaml:"reconnect_attempts"`
		LogQueries        bool   `yaml:"log_queries"`
		EnableStats       bool   `yaml:"enable_stats"`
	}
	s := shadow{
		Driver:            c.Driver,
		Host:              c.Host,
		User:              c.User,
		Password:          c.Password,
		Database:          c.Database,
		Port:              c.Port,
		MinConnections:    c.MinConnections,
		MaxConnections:    c.MaxConnections,
		InitConnections:   c.InitConnections,
		ConnectionTimeout: c.ConnectionTimeout.String(),
		MaxIdleTime:       c.MaxIdleTime.String(),
		HealthCheckPeriod: c.HealthCheckPeriod.String(),
		ReconnectInterval: c.ReconnectInterval.String(),
		ReconnectAttempts: c.ReconnectAttempts,
		LogQueries:        c.LogQueries,
		EnableStats:       c.EnableStats,
	}
	if err := node.Decode(&s); err != nil {
		return err
	}

	parse := func(field, v string, out *time.Duration) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return NewError(KindConfig, "config.Load", fmt.Sprintf("invalid duration for %s: %q", field, v))
		}
		*out = d
		return nil
	}
	if err := parse("connection_timeout", s.ConnectionTimeout, &c.ConnectionTimeout); err != nil {
		return err
	}
	if err := parse("max_idle_time", s.MaxIdleTime, &c.MaxIdleTime); err != nil {
		return err
	}
	if err := parse("health_check_period", s.HealthCheckPeriod, &c.HealthCheckPeriod); err != nil {
		return err
	}
	if err := parse("reconnect_interval", s.ReconnectInterval, &c.ReconnectInterval); err != nil {
		return err
	}

	c.Driver = s.Driver
	c.Host = s.Host
	c.User = s.User
	c.Password = s.Password
	c.Database = s.Database
	c.Port = s.Port
	c.MinConnections = s.MinConnections
	c.MaxConnections = s.MaxConnections
	c.InitConnections = s.InitConnections
	c.ReconnectAttempts = s.ReconnectAttempts
	c.LogQueries = s.LogQueries
	c.EnableStats = s.EnableStats
	return nil
}

// LoadConfig reads a PoolConfig from a YAML file, applied on top of
// DefaultConfig so omitted fields keep their defaults.
func LoadConfig(path string) (PoolConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, WrapError(KindConfig, "config.Load", "cannot read config file", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, WrapError(KindConfig, "config.Load", "cannot parse config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
