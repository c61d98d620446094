package metrics

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ExportCSV writes the statistics to a UTF-8 CSV file at path: raw counters,
// accumulated times in milliseconds, derived averages and success rates, and
// a trailing export-timestamp row. It returns false on any I/O failure.
func (m *Monitor) ExportCSV(path string) bool {
	s := m.Stats()
	var b strings.Builder

	b.WriteString("统计项目,数值,单位,说明\n")

	fmt.Fprintf(&b, "总创建连接数,%d,个,累计创建的数据库连接数\n", s.ConnectionsCreated)
	fmt.Fprintf(&b, "总获取连接数,%d,次,累计获取连接的请求数\n", s.ConnectionsAcquired)
	fmt.Fprintf(&b, "总释放连接数,%d,次,累计释放连接的次数\n", s.ConnectionsReleased)
	fmt.Fprintf(&b, "连接失败次数,%d,次,获取连接失败的次数\n", s.ConnectionsFailed)

	fmt.Fprintf(&b, "总查询执行数,%d,次,累计执行的SQL查询数\n", s.QueriesExecuted)
	fmt.Fprintf(&b, "查询失败次数,%d,次,执行失败的查询数\n", s.QueriesFailed)

	fmt.Fprintf(&b, "重连尝试次数,%d,次,网络断开后的重连尝试\n", s.ReconnectAttempts)
	fmt.Fprintf(&b, "重连成功次数,%d,次,重连成功的次数\n", s.ReconnectSuccesses)

	fmt.Fprintf(&b, "总连接获取时间,%.2f,毫秒,获取连接的累计耗时\n", float64(s.AcquireTimeMicros)/1000)
	fmt.Fprintf(&b, "总连接使用时间,%.2f,毫秒,连接被占用的累计时间\n", float64(s.UsageTimeMicros)/1000)
	fmt.Fprintf(&b, "总查询执行时间,%.2f,毫秒,SQL执行的累计耗时\n", float64(s.QueryTimeMicros)/1000)

	fmt.Fprintf(&b, "平均连接获取时间,%.2f,毫秒,平均获取一个连接的时间\n", s.AvgAcquireTimeMicros()/1000)
	fmt.Fprintf(&b, "平均连接使用时间,%.2f,毫秒,平均占用连接的时间\n", s.AvgUsageTimeMicros()/1000)
	fmt.Fprintf(&b, "平均查询执行时间,%.2f,毫秒,平均执行一个查询的时间\n", s.AvgQueryTimeMicros()/1000)

	fmt.Fprintf(&b, "连接获取成功率,%.2f,%%,成功获取连接的比例\n", s.AcquireSuccessRate())
	fmt.Fprintf(&b, "查询执行成功率,%.2f,%%,查询执行成功的比例\n", s.QuerySuccessRate())
	fmt.Fprintf(&b, "重连成功率,%.2f,%%,重连尝试成功的比例\n", s.ReconnectSuccessRate())

	fmt.Fprintf(&b, "导出时间,%s,时间戳,统计数据的导出时间\n", time.Now().Format("2006-01-02 15:04:05"))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return false
	}
	return true
}
