package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func NewPostgresPool(ctx context.Context, dsn string, log *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("postgres pool created", zap.Int32("max_conns", cfg.MaxConns))
	return pool, nil
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxStatements struct {
	q pgxQuerier
}

func (s pgxStatements) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s pgxStatements) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s pgxStatements) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgxRow{s.q.QueryRow(ctx, sql, args...)}
}

type pgxRow struct {
	row pgx.Row
}

func (r pgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

// PgxConn adapts a pgx pool to Conn.
type PgxConn struct {
	pgxStatements
	pool *pgxpool.Pool
}

func NewPgxConn(pool *pgxpool.Pool) *PgxConn {
	return &PgxConn{pgxStatements: pgxStatements{q: pool}, pool: pool}
}

func (c *PgxConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{pgxStatements: pgxStatements{q: tx}, tx: tx}, nil
}

func (c *PgxConn) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *PgxConn) Dialect() string { return DialectPostgres }

func (c *PgxConn) Close() { c.pool.Close() }

type pgxTx struct {
	pgxStatements
	tx pgx.Tx
}

func (t *pgxTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
