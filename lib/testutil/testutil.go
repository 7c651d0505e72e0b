package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"bbmp-grievances/lib/sqliteutil"
	"bbmp-grievances/lib/telemetry"
)

// SetupDB sets up telemetry for the test `name` and returns a fresh sqlite
// database in a temporary directory with `schema` applied. The database is
// closed when the test ends.
func SetupDB(t testing.TB, name, schema string) *sql.DB {
	t.Cleanup(telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", name)))

	db, err := sqliteutil.OpenFile(filepath.Join(t.TempDir(), name+".db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	_, err = db.Exec(schema)
	if err != nil {
		t.Fatal(err)
	}
	return db
}
