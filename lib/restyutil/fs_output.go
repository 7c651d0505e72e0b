package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "bbmp-grievances/dev/env"
)

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears `dir` and returns an output writing one file per
// HTTP exchange into it. `dir` may use the <dev_state> prefix.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("clear %s: %w", dir, err)
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
