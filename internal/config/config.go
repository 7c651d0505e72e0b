// Package config is the configuration file of the grievances command.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"bbmp-grievances/internal/fetcher"
	"bbmp-grievances/internal/notify"
	"bbmp-grievances/internal/paramspace"
	"bbmp-grievances/internal/portal"
	"bbmp-grievances/internal/publish"
	"bbmp-grievances/lib/configutil"
	"bbmp-grievances/lib/sqliteutil"
)

// DefaultName is the config file read when --config is not given.
const DefaultName = "grievances.json5"

var (
	ErrNoRawDir  = errors.New("raw_dir must be set")
	ErrNoDataDir = errors.New("data_dir must be set")
)

type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level"`
	// Format is either text or json.
	Format string `json:"format"`
}

type Config struct {
	Log LogConfig `json:"log"`

	RawDir  string `json:"raw_dir"`
	DataDir string `json:"data_dir"`

	Portal   portal.Options         `json:"portal"`
	Params   []paramspace.Dimension `json:"params"`
	Fetch    fetcher.Options        `json:"fetch"`
	Manifest sqliteutil.Config      `json:"manifest"`

	// FullOutput also writes the parquet file with every parsed field.
	FullOutput bool `json:"full_output"`

	Publish publish.Config    `json:"publish"`
	Notify  notify.SmtpConfig `json:"notify"`
}

// Default scrapes the BBMP portal for complaint ids
// 20000000 to 21000000, one request per id.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RawDir:  "raw",
		DataDir: "data",
		Portal:  portal.DefaultOptions(),
		Params: []paramspace.Dimension{
			{Name: "complaint_id", Start: 20000000, End: 21000000},
		},
		Fetch: fetcher.DefaultOptions(),
		Publish: publish.Config{
			Prefix: "bbmp",
		},
		Notify: notify.SmtpConfig{
			Port: 587,
		},
	}
}

// Space is the configured parameter space.
func (c Config) Space() paramspace.Space {
	return paramspace.Space{Dimensions: c.Params}
}

// ManifestConfig is the manifest database, by default a sqlite file next
// to the raw responses.
func (c Config) ManifestConfig() sqliteutil.Config {
	if c.Manifest.File == "" && c.Manifest.Url == "" {
		return sqliteutil.Config{File: filepath.Join(c.RawDir, "manifest.db")}
	}
	return c.Manifest
}

func (c Config) Validate() error {
	if c.RawDir == "" {
		return ErrNoRawDir
	}
	if c.DataDir == "" {
		return ErrNoDataDir
	}
	err := c.Portal.Validate()
	if err != nil {
		return fmt.Errorf("portal: %w", err)
	}
	err = c.Space().Validate()
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	return nil
}

// Load reads `name` (and its .local override) on top of the defaults, a
// missing file means the defaults are used as-is.
func Load(name string) (Config, error) {
	config, err := configutil.ReadConfigWithDefaults(name, Default())
	if err != nil {
		return Config{}, err
	}
	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	return config, nil
}
