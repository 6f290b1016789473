package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "gsb.db")

	db, err := New(Config{Path: path}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, path)
	assert.Equal(t, path, db.Path())

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestWithTransaction_RollsBack(t *testing.T) {
	db, err := New(Config{Path: MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE etat (id TEXT PRIMARY KEY)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO etat (id) VALUES ('CR')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM etat").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestMigrator_RunIsIncremental(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "gsb.db")}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"001_states.sql": {Data: []byte("CREATE TABLE etat (id TEXT PRIMARY KEY);")},
		"README.md":      {Data: []byte("ignored")},
	}
	migrator := NewMigrator(db, zap.NewNop())

	applied, err := migrator.Run(fsys)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	fsys["002_seed.sql"] = &fstest.MapFile{Data: []byte("INSERT INTO etat (id) VALUES ('CR');")}
	applied, err = migrator.Run(fsys)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	applied, err = migrator.Run(fsys)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestLoad_RejectsBadNames(t *testing.T) {
	_, err := Load(fstest.MapFS{"initial.sql": {Data: []byte("SELECT 1;")}})
	assert.Error(t, err)

	_, err = Load(fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 1;")},
	})
	assert.Error(t, err, "duplicate version")
}

func TestLoad_SortsByVersion(t *testing.T) {
	migrations, err := Load(fstest.MapFS{
		"010_later.sql":  {Data: []byte("SELECT 10;")},
		"002_second.sql": {Data: []byte("SELECT 2;")},
	})
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 2, migrations[0].Version)
	assert.Equal(t, "second", migrations[0].Name)
	assert.Equal(t, 10, migrations[1].Version)
}
