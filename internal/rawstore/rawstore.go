// Package rawstore is the directory of raw portal responses shared by the
// fetcher and the extractor.
package rawstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	devenv "bbmp-grievances/dev/env"
	"bbmp-grievances/internal/portal"
)

const Ext = ".html"

var ErrNotDirectory = errors.New("raw store path is not a directory")

type Store struct {
	Dir string
}

// Entry is a raw file on disk, FetchedAt is its modification time.
type Entry struct {
	Path      string
	Key       string
	FetchedAt time.Time
	Size      int64
}

// Open returns the store at `dir` without creating it.
func Open(dir string) (Store, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return Store{}, err
	}
	return Store{Dir: dir}, nil
}

// Create returns the store at `dir`, creating the directory if needed.
func Create(dir string) (Store, error) {
	s, err := Open(dir)
	if err != nil {
		return Store{}, err
	}
	err = os.MkdirAll(s.Dir, 0777)
	if err != nil {
		return Store{}, err
	}
	return s, nil
}

func (s Store) Path(key string) string {
	return filepath.Join(s.Dir, key+Ext)
}

// Exists reports whether a non-empty raw file is stored under `key`.
func (s Store) Exists(key string) (bool, error) {
	info, err := os.Stat(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Size() > 0, nil
}

// Write stores the body of `res` under its key. The file only appears
// once it is complete, and its modification time is the fetch time.
func (s Store) Write(res portal.RawResponse) (string, error) {
	path := s.Path(res.Key())

	tmp, err := os.CreateTemp(s.Dir, ".tmp-*"+Ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(res.Body)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	err = tmp.Close()
	if err != nil {
		return "", err
	}
	err = os.Chtimes(tmp.Name(), res.FetchedAt, res.FetchedAt)
	if err != nil {
		return "", err
	}
	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return "", err
	}
	return path, nil
}

// List returns every non-empty raw file sorted by key. Temporary files and
// files with other extensions are ignored.
func (s Store) List() ([]Entry, error) {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, s.Dir)
	}

	dirEntries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, d := range dirEntries {
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, Ext) || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, err
		}
		if info.Size() == 0 {
			continue
		}
		out = append(out, Entry{
			Path:      filepath.Join(s.Dir, name),
			Key:       strings.TrimSuffix(name, Ext),
			FetchedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s Store) Read(e Entry) ([]byte, error) {
	return os.ReadFile(e.Path)
}
