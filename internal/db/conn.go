package db

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Supported storage dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// ErrNoRows is returned by Row.Scan when a query matched nothing,
// regardless of the underlying driver.
var ErrNoRows = errors.New("db: no rows in result set")

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier is the statement surface shared by connections and transactions.
// Placeholders are always written $1, $2, ...
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Conn interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Dialect() string
	Close()
}

// Open connects to the storage selected by driver.
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (Conn, error) {
	switch driver {
	case DialectPostgres:
		pool, err := NewPostgresPool(ctx, dsn, log)
		if err != nil {
			return nil, err
		}
		return NewPgxConn(pool), nil
	case DialectSQLite:
		return OpenSQLite(ctx, dsn, log)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// InTx runs fn inside a transaction on conn, committing when fn returns nil.
func InTx(ctx context.Context, conn Conn, fn func(q Querier) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
