package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the last step; its presence means the schema is complete.
const sentinelTable = "public.votes"

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_resources",
		SQL: `CREATE TABLE IF NOT EXISTS resources (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  subject_name  TEXT        NOT NULL CHECK (length(subject_name) BETWEEN 1 AND 200),
  subject_code  TEXT        NOT NULL DEFAULT '' CHECK (length(subject_code) <= 50),
  semester      SMALLINT    NOT NULL CHECK (semester BETWEEN 1 AND 8),
  resource_type TEXT        NOT NULL CHECK (resource_type IN ('Notes', 'Module', 'Question Paper', 'Question Set')),
  file_name     TEXT        NOT NULL,
  file_url      TEXT        NOT NULL,
  file_hash     CHAR(64)    NOT NULL,
  owner_id      TEXT        NOT NULL,
  upvotes       INTEGER     NOT NULL DEFAULT 0 CHECK (upvotes >= 0),
  downvotes     INTEGER     NOT NULL DEFAULT 0 CHECK (downvotes >= 0),
  score         INTEGER     NOT NULL DEFAULT 0,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT resources_file_hash_key UNIQUE (file_hash),
  CONSTRAINT resources_score_check CHECK (score = upvotes - downvotes)
);`,
	},
	{
		Name: "create_index_resources_ranking",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_resources_ranking ON resources (score DESC, created_at DESC);`,
	},
	{
		Name: "create_index_resources_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_resources_owner_id ON resources (owner_id);`,
	},
	{
		Name: "create_index_resources_type_semester",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_resources_type_semester ON resources (resource_type, semester);`,
	},
	{
		Name: "create_table_votes",
		SQL: `CREATE TABLE IF NOT EXISTS votes (
  resource_id UUID        NOT NULL REFERENCES resources (id) ON DELETE CASCADE,
  voter_id    TEXT        NOT NULL,
  direction   TEXT        NOT NULL CHECK (direction IN ('up', 'down')),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (resource_id, voter_id)
);`,
	},
}

// EnsureMigrated checks if the schema exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger, dbHost string) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "database", "db_host", dbHost)
	start := time.Now()

	log.InfoContext(ctx, "db_migration_check", "status", "starting")

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists)
	if err != nil {
		log.ErrorContext(ctx, "db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.InfoContext(ctx, "db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.InfoContext(ctx, "db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.ErrorContext(ctx, "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.InfoContext(ctx, "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.InfoContext(ctx, "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
