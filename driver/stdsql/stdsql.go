// Package stdsql implements the driver adapter over database/sql with the
// go-sql-driver/mysql driver. Each adapter connection pins a single
// underlying connection so the pool keeps full control of session lifetime.
// It registers itself as "stdsql".
package stdsql

import (
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"strings"

	gosql "github.com/go-sql-driver/mysql"

	"github.com/myriadb/connpool/define"
	"github.com/myriadb/connpool/driver"
)

func init() {
	driver.Register("stdsql", Connector{})
}

// Connector dials database/sql backed connections.
type Connector struct{}

// Name returns "stdsql".
func (Connector) Name() string { return "stdsql" }

// Connect opens a single-connection sql.DB against the backend.
func (Connector) Connect(b define.Backend, opts driver.Options) (driver.Conn, error) {
	cfg := gosql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = b.Addr()
	cfg.User = b.User
	cfg.Passwd = b.Password
	cfg.DBName = b.Database
	cfg.Timeout = opts.ConnectTimeout
	cfg.ReadTimeout = opts.ReadTimeout
	cfg.WriteTimeout = opts.WriteTimeout
	if opts.Charset != "" {
		cfg.Params = map[string]string{"charset": opts.Charset}
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, wrapErr("driver.Connect", err, true)
	}
	// One session per adapter connection; pooling happens a layer up.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, wrapErr("driver.Connect", err, true)
	}
	return &conn{db: db}, nil
}

type conn struct {
	db *sql.DB
}

func (cn *conn) Ping() error {
	if err := cn.db.Ping(); err != nil {
		return wrapErr("driver.Ping", err, false)
	}
	return nil
}

func (cn *conn) Execute(sqlText string) (*driver.Result, error) {
	if returnsRows(sqlText) {
		rows, err := cn.db.Query(sqlText)
		if err != nil {
			return nil, wrapErr("driver.Execute", err, false)
		}
		defer rows.Close()
		fields, err := rows.Columns()
		if err != nil {
			return nil, wrapErr("driver.Execute", err, false)
		}
		var all [][]any
		for rows.Next() {
			vals := make([]any, len(fields))
			ptrs := make([]any, len(fields))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, wrapErr("driver.Execute", err, false)
			}
			all = append(all, vals)
		}
		if err := rows.Err(); err != nil {
			return nil, wrapErr("driver.Execute", err, false)
		}
		return driver.NewResult(fields, all), nil
	}

	res, err := cn.db.Exec(sqlText)
	if err != nil {
		return nil, wrapErr("driver.Execute", err, false)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return driver.NewExecResult(uint64(affected)), nil
}

func (cn *conn) Escape(s string) string {
	return driver.EscapeString(s)
}

func (cn *conn) Close() error {
	return cn.db.Close()
}

// returnsRows reports whether the statement produces a result set. The text
// protocol gives no way to ask up front, so the leading keyword decides.
func returnsRows(sqlText string) bool {
	head := strings.ToUpper(strings.TrimSpace(sqlText))
	for _, kw := range []string{"SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH"} {
		if strings.HasPrefix(head, kw) {
			return true
		}
	}
	return false
}

func wrapErr(op string, err error, dialing bool) *define.Error {
	var my *gosql.MySQLError
	if errors.As(err, &my) {
		return &define.Error{Kind: define.KindSQL, Op: op, Code: my.Number, Message: my.Message, Err: err}
	}
	if errors.Is(err, sqldriver.ErrBadConn) || errors.Is(err, gosql.ErrInvalidConn) {
		return &define.Error{Kind: define.KindSQL, Op: op, Code: driver.CRServerGoneError, Message: err.Error(), Err: err}
	}
	code := driver.NetworkCode(err, dialing)
	return &define.Error{Kind: define.KindSQL, Op: op, Code: code, Message: err.Error(), Err: err}
}
