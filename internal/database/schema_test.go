package database

import (
	"io/fs"
	"strings"
	"testing"

	"pos-backoffice/internal/config"
	"pos-backoffice/migrations"
)

func TestMigrationFilesExist(t *testing.T) {
	expectedMigrations := []string{
		"00001_create_categories_table.sql",
		"00002_create_products_table.sql",
		"00003_create_accounts_table.sql",
		"00004_create_transactions_table.sql",
		"00005_create_transaction_items_table.sql",
	}

	for _, migration := range expectedMigrations {
		if _, err := fs.Stat(migrations.FS, migration); err != nil {
			t.Errorf("Migration file %s is not embedded: %v", migration, err)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("No SQL migration files found")
	}

	for _, name := range files {
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", name, err)
			continue
		}

		contentStr := string(content)
		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", name, directive)
			}
		}
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"categories":        "00001_create_categories_table.sql",
		"products":          "00002_create_products_table.sql",
		"accounts":          "00003_create_accounts_table.sql",
		"transactions":      "00004_create_transactions_table.sql",
		"transaction_items": "00005_create_transaction_items_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		content, err := fs.ReadFile(migrations.FS, migrationFile)
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", migrationFile, err)
			continue
		}

		contentStr := string(content)
		if !strings.Contains(contentStr, "CREATE TABLE IF NOT EXISTS "+tableName+" (") {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(contentStr, "DROP TABLE IF EXISTS "+tableName+";") {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestProductsTableGuardsPrices(t *testing.T) {
	content, err := fs.ReadFile(migrations.FS, "00002_create_products_table.sql")
	if err != nil {
		t.Fatalf("Failed to read products migration: %v", err)
	}

	contentStr := string(content)
	for _, fragment := range []string{
		"uid VARCHAR(100) UNIQUE NOT NULL",
		"CHECK (selling_price >= price)",
		"status VARCHAR(20) NOT NULL DEFAULT 'active'",
		"ON DELETE RESTRICT",
	} {
		if !strings.Contains(contentStr, fragment) {
			t.Errorf("products migration missing %q", fragment)
		}
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "pos",
		Password: "p@ss",
		Database: "backoffice",
		Schema:   "public",
	})

	if !strings.HasPrefix(dsn, "postgres://pos:p%40ss@db:5432/backoffice?") {
		t.Errorf("unexpected dsn %s", dsn)
	}
	if !strings.Contains(dsn, "search_path=public") || !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("dsn missing query options: %s", dsn)
	}
}
