package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gestiq/gestiq-backend/pkg/migrate"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migration validation failed: %v", err)
	}
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventory.sql")

	checks := []string{
		"CREATE TABLE inventory_items",
		"CHECK (reserved_qty >= 0)",
		"CREATE TABLE stock_movements",
		"CHECK (quantity > 0)",
		"idx_stock_movements_source",
		"DROP TABLE IF EXISTS stock_movements",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDocumentsMigrationSeedsSequences(t *testing.T) {
	content := readMigration(t, "*_create_documents.sql")

	checks := []string{
		"CREATE TABLE document_sequences",
		"('quote', 1, 'QUO')",
		"('invoice', 1, 'INV')",
		"('intervention', 1, 'ITV')",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file found for %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
