package sqliteutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `create table if not exists item (
	id integer primary key,
	name text not null
);`

func TestOpenDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	config := Config{File: path}

	db, err := config.OpenDB(testSchema)
	require.NoError(t, err)
	_, err = db.Exec("insert into item (name) values ('a')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// the schema is applied again on reopen
	db, err = config.OpenDB(testSchema)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow("select count(*) from item").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestOpenDBWithoutPath(t *testing.T) {
	_, err := Config{}.OpenDB(testSchema)
	require.Error(t, err)
}
