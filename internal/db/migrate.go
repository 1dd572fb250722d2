package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations
var migrationFS embed.FS

var migrationsTableDDL = map[string]string{
	DialectPostgres: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT now()
		)`,
	DialectSQLite: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
}

// RunMigrations applies the embedded *.up.sql files for conn's dialect in
// lexical order, each in its own transaction.
func RunMigrations(ctx context.Context, conn Conn, log *zap.Logger) error {
	dialect := conn.Dialect()
	ddl, ok := migrationsTableDDL[dialect]
	if !ok {
		return fmt.Errorf("no migrations for dialect %q", dialect)
	}
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return err
	}

	var upFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)

	for _, f := range upFiles {
		version := strings.TrimSuffix(f, ".up.sql")

		var exists bool
		err := conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)", version).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		sql, err := fs.ReadFile(migrationFS, path.Join(dir, f))
		if err != nil {
			return err
		}

		err = InTx(ctx, conn, func(q Querier) error {
			if _, err := q.Exec(ctx, string(sql)); err != nil {
				return fmt.Errorf("migration %s: %w", version, err)
			}
			_, err := q.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
			return err
		})
		if err != nil {
			return err
		}

		log.Info("migration applied", zap.String("version", version), zap.String("dialect", dialect))
	}

	return nil
}
