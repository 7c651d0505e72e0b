// Command dev prepares a local environment under dev/.state: an empty fetch
// manifest and a grievances.local.json5 that points every directory there.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	devenv "bbmp-grievances/dev/env"
)

var errNotRoot = errors.New("run the dev setup from the repository root (next to go.mod)")

func create(recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return errNotRoot
	}

	state, err := devenv.ResolvePath("<dev_state>")
	if err != nil {
		return err
	}
	if recreate {
		fmt.Println("removing", state)
		err = os.RemoveAll(state)
		if err != nil {
			return fmt.Errorf("remove dev state: %w", err)
		}
	}

	for _, dir := range []string{devRawDir, devDataDir} {
		path, err := devenv.ResolvePath(dir)
		if err != nil {
			return err
		}
		err = os.MkdirAll(path, 0777)
		if err != nil {
			return err
		}
	}

	err = CreateManifest()
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	err = WriteLocalConfig()
	if err != nil {
		return fmt.Errorf("write local config: %w", err)
	}
	PrintConfigLocations()
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "wipe dev/.state before creating it again")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("dev setup failed", "err", err.Error())
		os.Exit(1)
	}
	slog.Info("dev environment ready, run `go run ./cmd/grievances fetch`")
}
