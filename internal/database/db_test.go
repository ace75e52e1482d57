package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "tracker.db"),
		Profile: ProfileLedger,
		Name:    "tracker",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
	// Idempotent
	require.NoError(t, db.Migrate())

	for _, table := range []string{"paper_account", "paper_holdings", "watch_configs"} {
		var name string
		err := db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	assert.NoError(t, db.QuickCheck(context.Background()))
}

func TestMigrate_UnknownNameFails(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "unknown"})
	require.NoError(t, err)
	defer db.Close()

	err = db.Migrate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema for database unknown")
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO paper_holdings (symbol, quantity, average_cost) VALUES ('AAPL', 1, 150)`); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM paper_holdings`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDB(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("bad")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}
