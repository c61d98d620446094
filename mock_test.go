package connpool

import (
	"fmt"
	"sync"
	"time"

	"github.com/myriadb/connpool/define"
	"github.com/myriadb/connpool/driver"
)

// mockConnector is a scriptable driver adapter for tests. Register happens
// once; each test resets the script.
type mockConnector struct {
	mu        sync.Mutex
	dialCount int
	dialErr   func(dial int) error
	newConn   func() *mockConn
}

var mock = &mockConnector{}

func init() {
	driver.Register("mock", mock)
}

// reset restores the all-healthy default script.
func (m *mockConnector) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialCount = 0
	m.dialErr = nil
	m.newConn = nil
}

func (m *mockConnector) dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dialCount
}

func (m *mockConnector) Name() string { return "mock" }

func (m *mockConnector) Connect(b define.Backend, opts driver.Options) (driver.Conn, error) {
	m.mu.Lock()
	m.dialCount++
	dial := m.dialCount
	dialErr := m.dialErr
	newConn := m.newConn
	m.mu.Unlock()

	if dialErr != nil {
		if err := dialErr(dial); err != nil {
			return nil, err
		}
	}
	if newConn != nil {
		return newConn(), nil
	}
	return &mockConn{}, nil
}

// mockConn answers pings and queries according to its hooks; the zero value
// is always healthy and returns a one-row result for "SELECT 1 AS v".
type mockConn struct {
	mu      sync.Mutex
	pingErr error
	execFn  func(sql string) (*driver.Result, error)
	execs   int
	closed  bool
}

func (c *mockConn) setPingErr(err error) {
	c.mu.Lock()
	c.pingErr = err
	c.mu.Unlock()
}

func (c *mockConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return define.NewError(define.KindTransportGone, "mock.Ping", "closed")
	}
	return c.pingErr
}

func (c *mockConn) Execute(sql string) (*driver.Result, error) {
	c.mu.Lock()
	c.execs++
	fn := c.execFn
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return nil, define.SQLError("mock.Execute", driver.CRServerGoneError, "connection closed")
	}
	if fn != nil {
		return fn(sql)
	}
	if sql == "SELECT 1 AS v" {
		return driver.NewResult([]string{"v"}, [][]any{{int64(1)}}), nil
	}
	return driver.NewExecResult(0), nil
}

func (c *mockConn) Escape(s string) string {
	return driver.EscapeString(s)
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// transportErr builds a driver error from the transport set.
func transportErr(code uint16) *define.Error {
	return define.SQLError("mock.Execute", code, fmt.Sprintf("transport failure %d", code))
}

// testConfig returns a small valid config wired to the mock adapter.
func testConfig() define.PoolConfig {
	cfg := define.DefaultConfig()
	cfg.Driver = "mock"
	cfg.Host = "db1.internal"
	cfg.User = "app"
	cfg.Password = "secret"
	cfg.Database = "orders"
	cfg.MinConnections = 2
	cfg.MaxConnections = 4
	cfg.InitConnections = 2
	cfg.ReconnectInterval = 2 * time.Millisecond
	cfg.ReconnectAttempts = 2
	return cfg
}
