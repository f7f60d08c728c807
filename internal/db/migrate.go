package db

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Schema renders the embedded DDL for the given schema name.
func Schema(schema string) (string, error) {
	if !schemaNamePattern.MatchString(schema) {
		return "", fmt.Errorf("invalid schema name %q", schema)
	}

	return strings.ReplaceAll(schemaSQL, "{{schema}}", pgx.Identifier{schema}.Sanitize()), nil
}

// Migrate applies the schema inside a single transaction. Every statement is
// idempotent so it is safe to run on each deploy.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	ddl, err := Schema(schema)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema %s: %w", schema, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	return nil
}
