package main

import (
	"fmt"
	"os"

	devenv "bbmp-grievances/dev/env"
	"bbmp-grievances/internal/config"
	"bbmp-grievances/internal/manifest"
	"bbmp-grievances/lib/configutil"
	"bbmp-grievances/lib/sqliteutil"
)

const (
	devRawDir   = "<dev_state>/raw"
	devDataDir  = "<dev_state>/data"
	devDumpDir  = "<dev_state>/http"
	devManifest = "<dev_state>/raw/manifest.db"
)

// CreateManifest creates an empty fetch manifest in the dev state directory.
func CreateManifest() error {
	path, err := devenv.ResolvePath(devManifest)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("manifest already created at", path)
		return nil
	}

	fmt.Println("creating manifest at", path)
	store, err := manifest.Open(sqliteutil.Config{File: path})
	if err != nil {
		return err
	}
	return store.Close()
}

// only a few ids so that a dev run finishes quickly
const localConfig = `// dev overrides, see grievances.json5
{
  log: {level: "debug"},
  raw_dir: "` + devRawDir + `",
  data_dir: "` + devDataDir + `",
  params: [
    {name: "complaint_id", start: 20000000, end: 20000020},
  ],
  portal: {dump_dir: "` + devDumpDir + `"},
}
`

// WriteLocalConfig points the local config override at the dev state
// directory, an existing override is left alone.
func WriteLocalConfig() error {
	path := configutil.LocalPath(config.DefaultName)
	_, err := os.Stat(path)
	if err == nil {
		fmt.Println("local config already exists at", path)
		return nil
	}
	fmt.Println("writing local config to", path)
	return os.WriteFile(path, []byte(localConfig), 0600)
}

func PrintConfigLocations() {
	fmt.Println("config:", config.DefaultName, "+", configutil.LocalPath(config.DefaultName))
	fmt.Println("raw responses:", devRawDir)
	fmt.Println("dataset:", devDataDir)
	fmt.Println("http dumps (debug log level):", devDumpDir)
}
