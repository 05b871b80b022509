package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func validateTable(table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid index table name %q", table)
	}
	return nil
}

// EnsureBootstrapped creates the vector extension, the index table and the meta row
// unless both the table and schema version 1 are already present.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, table string, dim int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var metaExists bool
	err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'mediasearch_meta'
		)`).
		Scan(&metaExists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}
	if !metaExists {
		return runBootstrap(ctxBoot, db, table, dim, logger)
	}

	var ready bool
	if err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (SELECT 1 FROM mediasearch_meta WHERE version = 1)
		   AND to_regclass($1) IS NOT NULL`, table).Scan(&ready); err != nil {
		return fmt.Errorf("meta version check failed: %w", err)
	}
	if !ready {
		return runBootstrap(ctxBoot, db, table, dim, logger)
	}

	logger.Debug("index schema already bootstrapped", "table", table)
	return nil
}

func renderBootstrap(table string, dim int) (string, error) {
	if err := validateTable(table); err != nil {
		return "", err
	}
	if dim <= 0 {
		return "", fmt.Errorf("invalid embedding dimension %d", dim)
	}
	sqlBytes, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return "", fmt.Errorf("read initdb.sql: %w", err)
	}
	r := strings.NewReplacer("{{table}}", table, "{{dim}}", strconv.Itoa(dim))
	return r.Replace(string(sqlBytes)), nil
}

func runBootstrap(ctx context.Context, db *sql.DB, table string, dim int, logger *slog.Logger) error {
	script, err := renderBootstrap(table, dim)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}

	logger.Info("index schema bootstrapped", "table", table, "dim", dim)
	return nil
}
