// Package testing provides test helpers shared by the tracker packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/tracker/internal/database"
)

// NewTestDB creates a migrated SQLite database in the test's temp dir.
// The database is closed when the test finishes.
//
// Supported schema names:
//   - "tracker" - applies tracker_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileLedger,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db
}
