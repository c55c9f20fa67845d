package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// maxArgLen caps logged string arguments; bulk imports bind long text values.
const maxArgLen = 64

// loggingConnector opens sqlite3 connections whose statements are logged at
// debug level together with their duration. Statements slower than slow are
// logged at warn level.
type loggingConnector struct {
	dsn    string
	slow   time.Duration
	logger *slog.Logger
	driver *sqlite3.SQLiteDriver
}

type loggingConn struct {
	driver.Conn
	c *loggingConnector
}

type loggingStmt struct {
	driver.Stmt
	query string
	c     *loggingConnector
}

// NewLoggingConnector returns a connector for sql.OpenDB. A nil logger uses
// slog.Default(); slow <= 0 disables slow statement warnings.
func NewLoggingConnector(dsn string, logger *slog.Logger, slow time.Duration) (driver.Connector, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{dsn: dsn, slow: slow, logger: logger, driver: &sqlite3.SQLiteDriver{}}, nil
}

func (c *loggingConnector) Driver() driver.Driver { return c.driver }

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &loggingConn{Conn: conn, c: c}, nil
}

func (lc *loggingConn) Prepare(query string) (driver.Stmt, error) {
	return lc.PrepareContext(context.Background(), query)
}

func (lc *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if prep, ok := lc.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = prep.PrepareContext(ctx, query)
	} else {
		stmt, err = lc.Conn.Prepare(query)
	}
	if err != nil {
		lc.c.logger.Debug("sql", "op", "prepare", "sql", query, "error", err)
		return nil, err
	}
	return &loggingStmt{Stmt: stmt, query: query, c: lc.c}, nil
}

func (lc *loggingConn) Begin() (driver.Tx, error) {
	return lc.BeginTx(context.Background(), driver.TxOptions{})
}

func (lc *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	lc.c.logger.Debug("sql", "op", "begin")
	if b, ok := lc.Conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 fallback for drivers without ConnBeginTx
	return lc.Conn.Begin()
}

// ExecContext runs statements directly on the sqlite connection so that
// multi-statement scripts such as migrations execute in full.
func (lc *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	e, ok := lc.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := e.ExecContext(ctx, query, args)
	lc.c.log(ctx, "exec", query, args, time.Since(start), err)
	return res, err
}

func (lc *loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	q, ok := lc.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	rows, err := q.QueryContext(ctx, query, args)
	lc.c.log(ctx, "query", query, args, time.Since(start), err)
	return rows, err
}

// ResetSession lets database/sql reuse pooled connections.
func (lc *loggingConn) ResetSession(ctx context.Context) error {
	if r, ok := lc.Conn.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var (
		res driver.Result
		err error
	)
	if e, ok := s.Stmt.(driver.StmtExecContext); ok {
		res, err = e.ExecContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 fallback for statements without StmtExecContext
		res, err = s.Stmt.Exec(values(args))
	}
	s.c.log(ctx, "exec", s.query, args, time.Since(start), err)
	return res, err
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var (
		rows driver.Rows
		err  error
	)
	if q, ok := s.Stmt.(driver.StmtQueryContext); ok {
		rows, err = q.QueryContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 fallback for statements without StmtQueryContext
		rows, err = s.Stmt.Query(values(args))
	}
	s.c.log(ctx, "query", s.query, args, time.Since(start), err)
	return rows, err
}

func (c *loggingConnector) log(ctx context.Context, op, query string, args []driver.NamedValue, elapsed time.Duration, err error) {
	level := slog.LevelDebug
	if c.slow > 0 && elapsed >= c.slow {
		level = slog.LevelWarn
	}
	if !c.logger.Enabled(ctx, level) {
		return
	}
	attrs := []any{
		"op", op,
		"sql", query,
		"args", formatArgs(args),
		"elapsed_ms", float64(elapsed.Microseconds()) / 1000,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	c.logger.Log(ctx, level, "sql", attrs...)
}

func values(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}

func formatArgs(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		v := formatArg(a.Value)
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		out[i] = v
	}
	return out
}

func formatArg(v driver.Value) string {
	var s string
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		s = string(t)
	case time.Time:
		s = t.UTC().Format(time.RFC3339)
	default:
		s = fmt.Sprint(t)
	}
	if len(s) > maxArgLen {
		s = s[:maxArgLen] + "…"
	}
	return s
}
