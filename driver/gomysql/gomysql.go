// Package gomysql implements the driver adapter over the raw MySQL protocol
// client from github.com/go-mysql-org/go-mysql. It registers itself as
// "mysql", the default adapter name.
package gomysql

import (
	"errors"

	"github.com/go-mysql-org/go-mysql/client"
	"github.com/go-mysql-org/go-mysql/mysql"

	"github.com/myriadb/connpool/define"
	"github.com/myriadb/connpool/driver"
)

func init() {
	driver.Register("mysql", Connector{})
}

// Connector dials raw protocol connections.
type Connector struct{}

// Name returns "mysql".
func (Connector) Name() string { return "mysql" }

// Connect dials the backend and applies the charset and timeouts.
func (Connector) Connect(b define.Backend, opts driver.Options) (driver.Conn, error) {
	c, err := client.ConnectWithTimeout(b.Addr(), b.User, b.Password, b.Database, opts.ConnectTimeout)
	if err != nil {
		return nil, wrapErr("driver.Connect", err, true)
	}
	c.ReadTimeout = opts.ReadTimeout
	c.WriteTimeout = opts.WriteTimeout
	if opts.Charset != "" {
		if err := c.SetCharset(opts.Charset); err != nil {
			c.Close()
			return nil, wrapErr("driver.Connect", err, true)
		}
	}
	return &conn{c: c}, nil
}

type conn struct {
	c *client.Conn
}

func (cn *conn) Ping() error {
	if err := cn.c.Ping(); err != nil {
		return wrapErr("driver.Ping", err, false)
	}
	return nil
}

func (cn *conn) Execute(sql string) (*driver.Result, error) {
	r, err := cn.c.Execute(sql)
	if err != nil {
		return nil, wrapErr("driver.Execute", err, false)
	}
	defer r.Close()
	if r.Resultset == nil {
		return driver.NewExecResult(r.AffectedRows), nil
	}
	fields := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = string(f.Name)
	}
	rows := make([][]any, len(r.Values))
	for i, rowVals := range r.Values {
		row := make([]any, len(rowVals))
		for j := range rowVals {
			v := rowVals[j].Value()
			// String values alias the pooled resultset buffer; copy them
			// out before Close returns it.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return driver.NewResult(fields, rows), nil
}

func (cn *conn) Escape(s string) string {
	return mysql.Escape(s)
}

func (cn *conn) Close() error {
	return cn.c.Close()
}

// wrapErr turns a go-mysql error into a *define.Error. Server errors keep
// their code; connection-level failures map onto the client transport codes.
func wrapErr(op string, err error, dialing bool) *define.Error {
	var my *mysql.MyError
	if errors.As(err, &my) {
		return &define.Error{Kind: define.KindSQL, Op: op, Code: my.Code, Message: my.Message, Err: err}
	}
	code := driver.NetworkCode(err, dialing)
	return &define.Error{Kind: define.KindSQL, Op: op, Code: code, Message: err.Error(), Err: err}
}
