package persistence

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSortsLexically(t *testing.T) {
	fsys := fstest.MapFS{
		"002_ratings.sql": {Data: []byte("-- ratings")},
		"001_init.sql":    {Data: []byte("-- init")},
		"010_search.sql":  {Data: []byte("-- search")},
	}

	names, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_ratings.sql", "010_search.sql"}, names)
}

func TestMigrationFilesSkipsNonSQLEntries(t *testing.T) {
	fsys := fstest.MapFS{
		"001_init.sql":       {Data: []byte("-- init")},
		"README.md":          {Data: []byte("docs")},
		"notes.txt":          {Data: []byte("scratch")},
		"archive/old_v1.sql": {Data: []byte("-- nested files are not picked up")},
	}

	names, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql"}, names)
}

func TestMigrationFilesEmptyDir(t *testing.T) {
	names, err := migrationFiles(fstest.MapFS{})
	require.NoError(t, err)
	assert.Empty(t, names)
}
