// Package metrics collects pool, session and query telemetry on lock-free
// counters. Readers get eventually-consistent snapshots: each counter is
// consistent on its own, ratios across counters are best-effort.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Monitor is a telemetry collector. The zero value is ready to use and
// enabled; collection can be toggled with SetEnabled.
type Monitor struct {
	disabled atomic.Bool

	connectionsCreated  atomic.Int64
	connectionsAcquired atomic.Int64
	connectionsReleased atomic.Int64
	connectionsFailed   atomic.Int64

	queriesExecuted atomic.Int64
	queriesFailed   atomic.Int64

	reconnectAttempts  atomic.Int64
	reconnectSuccesses atomic.Int64

	// accumulated durations, microseconds
	acquireTime atomic.Int64
	usageTime   atomic.Int64
	queryTime   atomic.Int64
}

// NewMonitor returns an enabled collector.
func NewMonitor() *Monitor {
	return &Monitor{}
}

var defaultMonitor = NewMonitor()

// Default returns the process-wide collector used when a pool is built
// without an explicit one.
func Default() *Monitor {
	return defaultMonitor
}

// SetEnabled toggles collection. While disabled, record calls are no-ops.
func (m *Monitor) SetEnabled(enabled bool) {
	m.disabled.Store(!enabled)
}

// Enabled reports whether the collector records updates.
func (m *Monitor) Enabled() bool {
	return !m.disabled.Load()
}

// RecordConnectionCreated counts one freshly opened session.
func (m *Monitor) RecordConnectionCreated() {
	if m.disabled.Load() {
		return
	}
	m.connectionsCreated.Add(1)
}

// RecordConnectionAcquired counts one successful acquire and its wait time.
func (m *Monitor) RecordConnectionAcquired(wait time.Duration) {
	if m.disabled.Load() {
		return
	}
	m.connectionsAcquired.Add(1)
	m.acquireTime.Add(wait.Microseconds())
}

// RecordConnectionReleased counts one release and the checkout duration.
func (m *Monitor) RecordConnectionReleased(usage time.Duration) {
	if m.disabled.Load() {
		return
	}
	m.connectionsReleased.Add(1)
	m.usageTime.Add(usage.Microseconds())
}

// RecordConnectionFailed counts one failed session open or acquire.
func (m *Monitor) RecordConnectionFailed() {
	if m.disabled.Load() {
		return
	}
	m.connectionsFailed.Add(1)
}

// RecordQuery counts one executed statement with its duration and outcome.
func (m *Monitor) RecordQuery(elapsed time.Duration, ok bool) {
	if m.disabled.Load() {
		return
	}
	m.queriesExecuted.Add(1)
	m.queryTime.Add(elapsed.Microseconds())
	if !ok {
		m.queriesFailed.Add(1)
	}
}

// RecordReconnection counts one reconnect outcome.
func (m *Monitor) RecordReconnection(ok bool) {
	if m.disabled.Load() {
		return
	}
	m.reconnectAttempts.Add(1)
	if ok {
		m.reconnectSuccesses.Add(1)
	}
}

// Reset zeroes every counter.
func (m *Monitor) Reset() {
	m.connectionsCreated.Store(0)
	m.connectionsAcquired.Store(0)
	m.connectionsReleased.Store(0)
	m.connectionsFailed.Store(0)
	m.queriesExecuted.Store(0)
	m.queriesFailed.Store(0)
	m.reconnectAttempts.Store(0)
	m.reconnectSuccesses.Store(0)
	m.acquireTime.Store(0)
	m.usageTime.Store(0)
	m.queryTime.Store(0)
}

// Stats is a point-in-time snapshot of the counters. Durations are
// accumulated microseconds.
type Stats struct {
	ConnectionsCreated  int64
	ConnectionsAcquired int64
	ConnectionsReleased int64
	ConnectionsFailed   int64

	QueriesExecuted int64
	QueriesFailed   int64

	ReconnectAttempts  int64
	ReconnectSuccesses int64

	AcquireTimeMicros int64
	UsageTimeMicros   int64
	QueryTimeMicros   int64
}

// Stats reads every counter. Each value is individually consistent.
func (m *Monitor) Stats() Stats {
	return Stats{
		ConnectionsCreated:  m.connectionsCreated.Load(),
		ConnectionsAcquired: m.connectionsAcquired.Load(),
		ConnectionsReleased: m.connectionsReleased.Load(),
		ConnectionsFailed:   m.connectionsFailed.Load(),
		QueriesExecuted:     m.queriesExecuted.Load(),
		QueriesFailed:       m.queriesFailed.Load(),
		ReconnectAttempts:   m.reconnectAttempts.Load(),
		ReconnectSuccesses:  m.reconnectSuccesses.Load(),
		AcquireTimeMicros:   m.acquireTime.Load(),
		UsageTimeMicros:     m.usageTime.Load(),
		QueryTimeMicros:     m.queryTime.Load(),
	}
}

// AvgAcquireTimeMicros returns the average acquire wait in microseconds.
func (s Stats) AvgAcquireTimeMicros() float64 {
	return avg(s.AcquireTimeMicros, s.ConnectionsAcquired)
}

// AvgUsageTimeMicros returns the average checkout duration in microseconds.
func (s Stats) AvgUsageTimeMicros() float64 {
	return avg(s.UsageTimeMicros, s.ConnectionsReleased)
}

// AvgQueryTimeMicros returns the average statement duration in microseconds.
func (s Stats) AvgQueryTimeMicros() float64 {
	return avg(s.QueryTimeMicros, s.QueriesExecuted)
}

// AcquireSuccessRate returns the percentage of acquires that did not fail.
func (s Stats) AcquireSuccessRate() float64 {
	return successRate(s.ConnectionsAcquired+s.ConnectionsFailed, s.ConnectionsFailed)
}

// QuerySuccessRate returns the percentage of statements that succeeded.
func (s Stats) QuerySuccessRate() float64 {
	return successRate(s.QueriesExecuted, s.QueriesFailed)
}

// ReconnectSuccessRate returns the percentage of reconnects that succeeded.
func (s Stats) ReconnectSuccessRate() float64 {
	if s.ReconnectAttempts == 0 {
		return 0
	}
	return float64(s.ReconnectSuccesses) / float64(s.ReconnectAttempts) * 100
}

func avg(sum, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

func successRate(total, failed int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(total-failed) / float64(total) * 100
}

// Report renders the statistics as a human-readable summary with rough
// performance grading.
func (m *Monitor) Report() string {
	s := m.Stats()
	var b strings.Builder

	b.WriteString("===== 连接池性能统计报告 =====\n")
	fmt.Fprintf(&b, "生成时间: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	b.WriteString("【连接统计】\n")
	fmt.Fprintf(&b, "  创建总数: %d 个\n", s.ConnectionsCreated)
	fmt.Fprintf(&b, "  获取总数: %d 次\n", s.ConnectionsAcquired)
	fmt.Fprintf(&b, "  释放总数: %d 次\n", s.ConnectionsReleased)
	fmt.Fprintf(&b, "  失败次数: %d 次\n", s.ConnectionsFailed)
	fmt.Fprintf(&b, "  获取成功率: %.2f%%\n", s.AcquireSuccessRate())
	fmt.Fprintf(&b, "  平均获取时间: %.2f ms\n", s.AvgAcquireTimeMicros()/1000)
	fmt.Fprintf(&b, "  平均使用时间: %.2f ms\n\n", s.AvgUsageTimeMicros()/1000)

	b.WriteString("【查询统计】\n")
	fmt.Fprintf(&b, "  执行总数: %d 次\n", s.QueriesExecuted)
	fmt.Fprintf(&b, "  失败次数: %d 次\n", s.QueriesFailed)
	fmt.Fprintf(&b, "  成功率: %.2f%%\n", s.QuerySuccessRate())
	fmt.Fprintf(&b, "  平均执行时间: %.2f ms\n\n", s.AvgQueryTimeMicros()/1000)

	b.WriteString("【重连统计】\n")
	fmt.Fprintf(&b, "  尝试次数: %d 次\n", s.ReconnectAttempts)
	fmt.Fprintf(&b, "  成功次数: %d 次\n", s.ReconnectSuccesses)
	fmt.Fprintf(&b, "  成功率: %.2f%%\n\n", s.ReconnectSuccessRate())

	b.WriteString("【性能评估】\n")
	fmt.Fprintf(&b, "  连接获取性能: %s\n", acquireGrade(s.AvgAcquireTimeMicros()))
	fmt.Fprintf(&b, "  查询执行性能: %s\n", queryGrade(s.AvgQueryTimeMicros()))
	fmt.Fprintf(&b, "  系统稳定性: %s\n", stabilityGrade(s))
	b.WriteString("================================\n")

	return b.String()
}

func acquireGrade(avgMicros float64) string {
	switch {
	case avgMicros < 1000:
		return "优秀 (< 1ms)"
	case avgMicros < 10000:
		return "良好 (< 10ms)"
	case avgMicros < 50000:
		return "一般 (< 50ms)"
	default:
		return "较差 (> 50ms)"
	}
}

func queryGrade(avgMicros float64) string {
	switch {
	case avgMicros < 10000:
		return "优秀 (< 10ms)"
	case avgMicros < 100000:
		return "良好 (< 100ms)"
	case avgMicros < 500000:
		return "一般 (< 500ms)"
	default:
		return "较差 (> 500ms)"
	}
}

func stabilityGrade(s Stats) string {
	conn, query := s.AcquireSuccessRate(), s.QuerySuccessRate()
	switch {
	case conn > 99.5 && query > 99.5:
		return "优秀 (成功率 > 99.5%)"
	case conn > 98.0 && query > 98.0:
		return "良好 (成功率 > 98%)"
	case conn > 95.0 && query > 95.0:
		return "一般 (成功率 > 95%)"
	default:
		return "较差 (成功率过低)"
	}
}
