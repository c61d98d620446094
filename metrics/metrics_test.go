package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCounters(t *testing.T) {
	m := NewMonitor()

	m.RecordConnectionCreated()
	m.RecordConnectionCreated()
	m.RecordConnectionAcquired(2 * time.Millisecond)
	m.RecordConnectionReleased(10 * time.Millisecond)
	m.RecordConnectionFailed()
	m.RecordQuery(4*time.Millisecond, true)
	m.RecordQuery(6*time.Millisecond, false)
	m.RecordReconnection(true)
	m.RecordReconnection(false)

	s := m.Stats()
	assert.Equal(t, int64(2), s.ConnectionsCreated)
	assert.Equal(t, int64(1), s.ConnectionsAcquired)
	assert.Equal(t, int64(1), s.ConnectionsReleased)
	assert.Equal(t, int64(1), s.ConnectionsFailed)
	assert.Equal(t, int64(2), s.QueriesExecuted)
	assert.Equal(t, int64(1), s.QueriesFailed)
	assert.Equal(t, int64(2), s.ReconnectAttempts)
	assert.Equal(t, int64(1), s.ReconnectSuccesses)
	assert.Equal(t, int64(2000), s.AcquireTimeMicros)
	assert.Equal(t, int64(10000), s.UsageTimeMicros)
	assert.Equal(t, int64(10000), s.QueryTimeMicros)
}

func TestDerivedRates(t *testing.T) {
	m := NewMonitor()

	m.RecordConnectionAcquired(4 * time.Millisecond)
	m.RecordConnectionAcquired(6 * time.Millisecond)
	m.RecordQuery(10*time.Millisecond, true)
	m.RecordQuery(20*time.Millisecond, false)
	m.RecordReconnection(true)
	m.RecordReconnection(true)
	m.RecordReconnection(false)

	s := m.Stats()
	assert.InDelta(t, 5000, s.AvgAcquireTimeMicros(), 0.01)
	assert.InDelta(t, 15000, s.AvgQueryTimeMicros(), 0.01)
	assert.InDelta(t, 50.0, s.QuerySuccessRate(), 0.01)
	assert.InDelta(t, 100.0, s.AcquireSuccessRate(), 0.01)
	assert.InDelta(t, 66.67, s.ReconnectSuccessRate(), 0.01)
}

func TestDerivedRatesZeroGuards(t *testing.T) {
	var s Stats
	assert.Zero(t, s.AvgAcquireTimeMicros())
	assert.Zero(t, s.AvgUsageTimeMicros())
	assert.Zero(t, s.AvgQueryTimeMicros())
	assert.Zero(t, s.AcquireSuccessRate())
	assert.Zero(t, s.QuerySuccessRate())
	assert.Zero(t, s.ReconnectSuccessRate())
}

func TestReset(t *testing.T) {
	m := NewMonitor()
	m.RecordConnectionCreated()
	m.RecordQuery(time.Millisecond, false)
	m.Reset()
	assert.Equal(t, Stats{}, m.Stats())
}

func TestDisabledMonitorRecordsNothing(t *testing.T) {
	m := NewMonitor()
	m.SetEnabled(false)
	assert.False(t, m.Enabled())

	m.RecordConnectionCreated()
	m.RecordQuery(time.Millisecond, false)
	m.RecordReconnection(true)
	assert.Equal(t, Stats{}, m.Stats())

	m.SetEnabled(true)
	m.RecordConnectionCreated()
	assert.Equal(t, int64(1), m.Stats().ConnectionsCreated)
}

func TestConcurrentRecording(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.RecordQuery(time.Microsecond, j%10 == 0)
				m.RecordConnectionAcquired(time.Microsecond)
			}
		}()
	}
	wg.Wait()

	s := m.Stats()
	assert.Equal(t, int64(8000), s.QueriesExecuted)
	assert.Equal(t, int64(8000), s.ConnectionsAcquired)
}

func TestReport(t *testing.T) {
	m := NewMonitor()
	m.RecordConnectionAcquired(500 * time.Microsecond)
	m.RecordQuery(2*time.Millisecond, true)

	report := m.Report()
	assert.Contains(t, report, "连接池性能统计报告")
	assert.Contains(t, report, "【连接统计】")
	assert.Contains(t, report, "【查询统计】")
	assert.Contains(t, report, "【重连统计】")
	assert.Contains(t, report, "优秀 (< 1ms)")
}

func TestExportCSV(t *testing.T) {
	m := NewMonitor()
	m.RecordConnectionCreated()
	m.RecordConnectionAcquired(time.Millisecond)
	m.RecordQuery(2*time.Millisecond, true)

	path := filepath.Join(t.TempDir(), "stats.csv")
	require.True(t, m.ExportCSV(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	assert.Equal(t, "统计项目,数值,单位,说明", lines[0])
	assert.Len(t, lines, 19, "header, 17 metric rows, timestamp row")
	assert.Contains(t, text, "总创建连接数,1,个,")
	assert.Contains(t, text, "查询执行成功率,100.00,%,")
	assert.Contains(t, text, "导出时间,")
}

func TestExportCSVFailure(t *testing.T) {
	m := NewMonitor()
	assert.False(t, m.ExportCSV(filepath.Join(t.TempDir(), "missing", "stats.csv")))
}

func TestDefaultMonitorIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
