package store

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_routines.sql": {Data: []byte("select 2")},
		"migrations/001_schema.sql":   {Data: []byte("select 1")},
		"migrations/README.md":        {Data: []byte("docs")},
	}

	files, err := pendingMigrations(fsys, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_schema.sql", "002_routines.sql"}, files)

	files, err = pendingMigrations(fsys, map[string]bool{"001_schema.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_routines.sql"}, files)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := pendingMigrations(migrationsFS, nil)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_schema.sql", files[0])
}
