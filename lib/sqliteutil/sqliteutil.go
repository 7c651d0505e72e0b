package sqliteutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	devenv "bbmp-grievances/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects either a local sqlite file or a remote libsql database.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens the configured database and applies `schema` to it, the
// schema must be idempotent (create ... if not exists).
func (config Config) OpenDB(schema string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	if config.Url != "" {
		db, err = openRemote(config.Url, config.AuthToken)
	} else {
		db, err = OpenFile(config.File)
	}
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(fmt.Errorf("apply schema: %w", err))
	}
	return db, nil
}

func openRemote(rawUrl, authToken string) (*sql.DB, error) {
	link, err := url.Parse(rawUrl)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	if authToken != "" {
		query := link.Query()
		query.Set("authToken", authToken)
		link.RawQuery = query.Encode()
	}
	db, err := sql.Open("libsql", link.String())
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

// OpenFile opens a local sqlite database, creating its parent directory.
func OpenFile(path string) (*sql.DB, error) {
	if path == "" {
		return nil, wrapOpenDB(fmt.Errorf("a path was not specified"))
	}
	if path != ":memory:" {
		var err error
		path, err = devenv.ResolvePath(path)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		err = os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(err)
	}

	return db, nil
}
