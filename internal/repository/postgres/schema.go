package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the prefixed tables and indexes if they do not exist.
// Run by cmd/seed against dev/test environments; production schema is managed
// through the hosting platform's migration tooling.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			position BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at TIMESTAMPTZ
		)`, tables.Folders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_position_idx ON %s (user_id, position)`,
			tables.Folders, tables.Folders),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			folder_id TEXT NOT NULL REFERENCES %s(id),
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			text TEXT NOT NULL,
			position BIGINT NOT NULL,
			is_imported_copy BOOLEAN NOT NULL DEFAULT FALSE,
			is_unedited_copy BOOLEAN NOT NULL DEFAULT FALSE,
			use_count INTEGER NOT NULL DEFAULT 0,
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at TIMESTAMPTZ
		)`, tables.Prompts, tables.Folders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_folder_idx ON %s (folder_id)`,
			tables.Prompts, tables.Prompts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_folder_position_idx ON %s (folder_id, position)`,
			tables.Prompts, tables.Prompts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			folder_id TEXT NOT NULL REFERENCES %s(id),
			owner_id TEXT NOT NULL,
			share_code TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			source_label TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, tables.SharedFolders, tables.Folders),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_code_active_idx ON %s (share_code) WHERE is_active`,
			tables.SharedFolders, tables.SharedFolders),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_folder_active_idx ON %s (folder_id) WHERE is_active`,
			tables.SharedFolders, tables.SharedFolders),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			subscriber_id TEXT NOT NULL,
			shared_folder_id TEXT NOT NULL REFERENCES %s(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (subscriber_id, shared_folder_id)
		)`, tables.Subscriptions, tables.SharedFolders),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			position BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, tables.QuickAccessFolders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_position_idx ON %s (user_id, position)`,
			tables.QuickAccessFolders, tables.QuickAccessFolders),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			quick_access_folder_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			position BIGINT NOT NULL,
			owned_prompt_id TEXT,
			subscribed_prompt_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK ((owned_prompt_id IS NULL) <> (subscribed_prompt_id IS NULL))
		)`, tables.QuickAccessItems, tables.QuickAccessFolders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_folder_position_idx ON %s (quick_access_folder_id, position)`,
			tables.QuickAccessItems, tables.QuickAccessItems),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owned_idx ON %s (owned_prompt_id) WHERE owned_prompt_id IS NOT NULL`,
			tables.QuickAccessItems, tables.QuickAccessItems),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_subscribed_idx ON %s (subscribed_prompt_id) WHERE subscribed_prompt_id IS NOT NULL`,
			tables.QuickAccessItems, tables.QuickAccessItems),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
