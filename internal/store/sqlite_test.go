package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/Aman-CERP/visindex/internal/errors"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := Open("")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, "", db.Path())
	stores, err := db.Stores(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stores)
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "catalog.db")

	db, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_SchemaReadableByOtherDriver(t *testing.T) {
	// Given: a database written through the pure Go driver
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Config().Set(context.Background(), "a/b/c", "default", 0, "1,2")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// When: opened with the cgo driver
	raw, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	require.NoError(t, err)
	defer func() { _ = raw.Close() }()

	// Then: schema version and data are visible
	var version int
	require.NoError(t, raw.QueryRow(`SELECT version FROM schema_version`).Scan(&version))
	assert.Equal(t, schemaVersion, version)

	var value string
	require.NoError(t, raw.QueryRow(
		`SELECT value FROM core_config_data WHERE path = 'a/b/c'`).Scan(&value))
	assert.Equal(t, "1,2", value)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Config().Set(ctx, "x/y/z", "default", 0, "4")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	v, ok, err := db.Config().Get(ctx, "x/y/z", "default", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4", v)
}

func TestOpen_CorruptDatabaseIsNotDeleted(t *testing.T) {
	// Given: a file that is not a database
	path := filepath.Join(t.TempDir(), "catalog.db")
	garbage := []byte("this is definitely not a sqlite database file, just text padding it out")
	require.NoError(t, os.WriteFile(path, garbage, 0o644))

	// When
	_, err := Open(path)

	// Then: a corrupt-store error and the file is left alone
	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeCorruptStore, verrors.GetCode(err))
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, garbage, data)
}

func TestDB_CloseIsIdempotentAndBlocksUse(t *testing.T) {
	db, err := Open("")
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err = db.Stores(context.Background())
	assert.Error(t, err)
	_, err = db.Products().GetByID(context.Background(), 1, false, 1)
	assert.Error(t, err)
}
