package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema files bundled at compile time, applied in lexical order.
//
//go:embed schema/*.sql
var schemaFS embed.FS

// SchemaFiles returns the embedded schema file names in apply order.
func SchemaFiles() ([]string, error) {
	names, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// EnsureSchema applies every embedded schema file. The statements are
// idempotent (IF NOT EXISTS), so this is safe to run on each start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := SchemaFiles()
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	for _, name := range names {
		sql, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
