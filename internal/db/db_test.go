package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openMemory(t *testing.T) *SQLiteConn {
	t.Helper()
	conn, err := OpenSQLite(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

func TestRebind(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"WHERE id = $1", "WHERE id = ?1"},
		{"SET a = $1, b = $2 WHERE id = $10", "SET a = ?1, b = ?2 WHERE id = ?10"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, rebind(tt.in))
		})
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn := openMemory(t)

	require.NoError(t, RunMigrations(ctx, conn, zap.NewNop()))
	require.NoError(t, RunMigrations(ctx, conn, zap.NewNop()))

	var n int
	require.NoError(t, conn.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)

	_, err := conn.Exec(ctx, "SELECT id, deleted_on FROM test_results")
	assert.NoError(t, err)
}

func TestQueryRow_NormalisesNoRows(t *testing.T) {
	ctx := context.Background()
	conn := openMemory(t)
	require.NoError(t, RunMigrations(ctx, conn, zap.NewNop()))

	var name string
	err := conn.QueryRow(ctx, "SELECT name FROM test_cycles WHERE id = $1", "missing").Scan(&name)
	assert.True(t, errors.Is(err, ErrNoRows))
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	conn := openMemory(t)
	_, err := conn.Exec(ctx, "CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = InTx(ctx, conn, func(q Querier) error {
		if _, err := q.Exec(ctx, "INSERT INTO kv (k, v) VALUES ($1, $2)", "a", "1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = InTx(ctx, conn, func(q Querier) error {
		_, err := q.Exec(ctx, "INSERT INTO kv (k, v) VALUES ($1, $2)", "b", "2")
		return err
	})
	require.NoError(t, err)

	rows, err := conn.Query(ctx, "SELECT k FROM kv ORDER BY k")
	require.NoError(t, err)
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		require.NoError(t, rows.Scan(&k))
		keys = append(keys, k)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"b"}, keys)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "", zap.NewNop())
	assert.Error(t, err)
}
