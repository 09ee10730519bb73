package bootstrap

import (
	"context"
	"log"

	"github.com/fluxcrm/backend/internal/infrastructure/database"
)

// schemaDDL creates the six core tables. Records of every module share one
// table with a JSON document column; the other five hold the metadata that
// gives those documents shape.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS modules (
		id            VARCHAR(36)  NOT NULL,
		name          VARCHAR(255) NOT NULL,
		singular_name VARCHAR(255) NOT NULL,
		api_name      VARCHAR(100) NOT NULL,
		icon          VARCHAR(100) NOT NULL DEFAULT '',
		description   TEXT,
		is_active     BOOLEAN      NOT NULL DEFAULT TRUE,
		is_system     BOOLEAN      NOT NULL DEFAULT FALSE,
		settings      JSON,
		display_order INT          NOT NULL DEFAULT 0,
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL,
		deleted_at    DATETIME,
		PRIMARY KEY (id),
		KEY idx_modules_api_name (api_name),
		KEY idx_modules_deleted_at (deleted_at)
	)`,

	`CREATE TABLE IF NOT EXISTS blocks (
		id             VARCHAR(36)  NOT NULL,
		module_id      VARCHAR(36)  NOT NULL,
		name           VARCHAR(255) NOT NULL,
		type           VARCHAR(50)  NOT NULL,
		display_order  INT          NOT NULL DEFAULT 0,
		column_count   INT          NOT NULL DEFAULT 2,
		is_collapsible BOOLEAN      NOT NULL DEFAULT FALSE,
		is_collapsed   BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at     DATETIME     NOT NULL,
		updated_at     DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_blocks_module_id (module_id)
	)`,

	`CREATE TABLE IF NOT EXISTS fields (
		id                VARCHAR(36)  NOT NULL,
		block_id          VARCHAR(36)  NOT NULL,
		relationship_id   VARCHAR(36),
		type              VARCHAR(50)  NOT NULL,
		api_name          VARCHAR(100) NOT NULL,
		label             VARCHAR(255) NOT NULL,
		description       TEXT,
		help_text         TEXT,
		is_required       BOOLEAN      NOT NULL DEFAULT FALSE,
		is_unique         BOOLEAN      NOT NULL DEFAULT FALSE,
		is_searchable     BOOLEAN      NOT NULL DEFAULT FALSE,
		is_visible_list   BOOLEAN      NOT NULL DEFAULT TRUE,
		is_visible_detail BOOLEAN      NOT NULL DEFAULT TRUE,
		validation_rules  JSON,
		settings          JSON,
		default_value     JSON,
		display_order     INT          NOT NULL DEFAULT 0,
		width             VARCHAR(10)  NOT NULL DEFAULT 'full',
		created_at        DATETIME     NOT NULL,
		updated_at        DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_fields_block_id (block_id),
		KEY idx_fields_api_name (api_name)
	)`,

	`CREATE TABLE IF NOT EXISTS field_options (
		id            VARCHAR(36)  NOT NULL,
		field_id      VARCHAR(36)  NOT NULL,
		label         VARCHAR(255) NOT NULL,
		value         VARCHAR(255) NOT NULL,
		color         VARCHAR(20),
		is_default    BOOLEAN      NOT NULL DEFAULT FALSE,
		is_active     BOOLEAN      NOT NULL DEFAULT TRUE,
		display_order INT          NOT NULL DEFAULT 0,
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_field_options_field_id (field_id)
	)`,

	`CREATE TABLE IF NOT EXISTS module_relationships (
		id             VARCHAR(36)  NOT NULL,
		from_module_id VARCHAR(36)  NOT NULL,
		to_module_id   VARCHAR(36)  NOT NULL,
		name           VARCHAR(255) NOT NULL,
		api_name       VARCHAR(100) NOT NULL,
		type           VARCHAR(50)  NOT NULL,
		settings       JSON,
		created_at     DATETIME     NOT NULL,
		updated_at     DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_relationships_from (from_module_id),
		KEY idx_relationships_to (to_module_id),
		KEY idx_relationships_api_name (api_name)
	)`,

	`CREATE TABLE IF NOT EXISTS module_records (
		id         VARCHAR(36) NOT NULL,
		module_id  VARCHAR(36) NOT NULL,
		data       JSON        NOT NULL,
		created_by VARCHAR(36) NOT NULL DEFAULT '',
		updated_by VARCHAR(36) NOT NULL DEFAULT '',
		created_at DATETIME    NOT NULL,
		updated_at DATETIME    NOT NULL,
		deleted_at DATETIME,
		PRIMARY KEY (id),
		KEY idx_records_module_id (module_id),
		KEY idx_records_deleted_at (deleted_at),
		KEY idx_records_module_live (module_id, deleted_at)
	)`,
}

// InitializeSchema creates the core tables if they do not exist
func InitializeSchema(db *database.MySQLConnection) error {
	ctx := context.Background()
	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	log.Println("schema tables ready")
	return nil
}
