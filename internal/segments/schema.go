package segments

import (
	"context"
	_ "embed"
	"fmt"

	"voicetag/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases are rejected rather than silently reinterpreted.
const schemaVersion = 2

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return services.Wrap(services.ErrState, "state", "open",
			"state database is corrupt: missing schema version", err)
	}

	if version != schemaVersion {
		return services.Wrap(services.ErrState, "state", "open",
			fmt.Sprintf("state database has schema version %d, expected %d (delete the work directory to start over)",
				version, schemaVersion), nil)
	}

	return s.verifyTables(ctx)
}

// verifyTables rejects databases where expected tables are missing, which
// points at truncation or an unrelated database at the same path.
func (s *Store) verifyTables(ctx context.Context) error {
	for _, table := range []string{"segment_records", "segment_scores", "speakers", "stage_markers"} {
		var count int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("inspect table %s: %w", table, err)
		}
		if count == 0 {
			return services.Wrap(services.ErrState, "state", "open",
				fmt.Sprintf("state database is corrupt: table %s missing", table), nil)
		}
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
