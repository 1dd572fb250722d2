package db

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// sqlStatements is satisfied by both *sql.DB and *sql.Tx.
type sqlStatements interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var dollarParam = regexp.MustCompile(`\$(\d+)`)

// rebind turns $n placeholders into sqlite's numbered ?n form.
func rebind(query string) string {
	return dollarParam.ReplaceAllString(query, "?$1")
}

type sqliteStatements struct {
	q sqlStatements
}

func (s sqliteStatements) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s sqliteStatements) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.q.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (s sqliteStatements) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqlRow{s.q.QueryRowContext(ctx, rebind(query), args...)}
}

type sqlRow struct {
	row *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }

// SQLiteConn adapts a modernc sqlite database to Conn.
type SQLiteConn struct {
	sqliteStatements
	db *sql.DB
}

// OpenSQLite opens path (":memory:" for a private in-memory database).
// A single connection is used so that an in-memory database is shared by
// every statement and transactions serialise.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLiteConn, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("sqlite database opened", zap.String("path", path))
	return &SQLiteConn{sqliteStatements: sqliteStatements{q: sqlDB}, db: sqlDB}, nil
}

func (c *SQLiteConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{sqliteStatements: sqliteStatements{q: tx}, tx: tx}, nil
}

func (c *SQLiteConn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *SQLiteConn) Dialect() string { return DialectSQLite }

func (c *SQLiteConn) Close() { _ = c.db.Close() }

type sqliteTx struct {
	sqliteStatements
	tx *sql.Tx
}

func (t *sqliteTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback(context.Context) error { return t.tx.Rollback() }
