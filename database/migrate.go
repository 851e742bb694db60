package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

const migrationTable = "schema_migrations"

//go:embed migrations
var migrationFS embed.FS

// applyMigrations runs every migrations/<driver>/*.sql file not yet recorded
// in schema_migrations, in name order, each inside its own transaction.
func applyMigrations(ctx context.Context, db *sql.DB, driver string) (int, error) {
	return applyMigrationsFrom(ctx, db, driver, migrationFS, path.Join("migrations", driver))
}

func applyMigrationsFrom(ctx context.Context, db *sql.DB, driver string, fsys fs.FS, root string) (int, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", types.ErrMigrationFailed, root, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := "CREATE TABLE IF NOT EXISTS " + migrationTable + ` (
    version TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("%w: ensure %s: %w", types.ErrMigrationFailed, migrationTable, err)
	}

	applied := 0
	for _, file := range files {
		done, err := isApplied(ctx, db, driver, file)
		if err != nil {
			return applied, fmt.Errorf("%w: check %s: %w", types.ErrMigrationFailed, file, err)
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(root, file))
		if err != nil {
			return applied, fmt.Errorf("%w: read %s: %w", types.ErrMigrationFailed, file, err)
		}

		if err := applyOne(ctx, db, driver, file, string(content)); err != nil {
			return applied, fmt.Errorf("%w: %s: %w", types.ErrMigrationFailed, file, err)
		}
		applied++
	}

	return applied, nil
}

func applyOne(ctx context.Context, db *sql.DB, driver, version, upSQL string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if strings.TrimSpace(upSQL) != "" {
		if _, err := tx.ExecContext(ctx, upSQL); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	record := rebind(driver, "INSERT INTO "+migrationTable+" (version, applied_at) VALUES (?, ?)")
	if _, err := tx.ExecContext(ctx, record, version, time.Now().UTC().UnixMilli()); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func isApplied(ctx context.Context, db *sql.DB, driver, version string) (bool, error) {
	var found int
	query := rebind(driver, "SELECT 1 FROM "+migrationTable+" WHERE version = ?")
	err := db.QueryRowContext(ctx, query, version).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
