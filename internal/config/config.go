// Package config holds the explicit configuration of the mystery page:
// where the three source files live, where the embedded store is written,
// and how the servers behave. Values come from Default, an optional YAML
// file, and finally command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable configurations.
var ErrInvalid = errors.New("invalid configuration")

// Sources are the CSV files that back the three tables.
type Sources struct {
	Crimes    string `yaml:"crimes"`
	Criminals string `yaml:"criminals"`
	Victim    string `yaml:"victim"`
}

// Store selects the embedded store.
type Store struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string `yaml:"driver"`
	// DSN is a file path for sqlite or a go-sql-driver DSN for mysql.
	DSN string `yaml:"dsn"`
	// Fresh removes an existing sqlite file before opening it.
	Fresh bool `yaml:"fresh"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the full runtime configuration.
type Config struct {
	Listen     string  `yaml:"listen"`
	GRPCListen string  `yaml:"grpc_listen"`
	Sources    Sources `yaml:"sources"`
	// Delimiter is a single character or "auto".
	Delimiter  string `yaml:"delimiter"`
	Store      Store  `yaml:"store"`
	AssetsDir  string `yaml:"assets_dir"`
	LessonFile string `yaml:"lesson_file"`
	// ReloadOnRun reloads and rematerializes every dataset before each query.
	ReloadOnRun bool `yaml:"reload_on_run"`
	// Refresh is an optional cron spec for scheduled rematerialization.
	Refresh      string        `yaml:"refresh"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxRows      int           `yaml:"max_rows"`
	Log          Log           `yaml:"log"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Listen:     ":8080",
		GRPCListen: "",
		Sources: Sources{
			Crimes:    "data/crimes.csv",
			Criminals: "data/criminals.csv",
			Victim:    "data/victim.csv",
		},
		Delimiter: ",",
		Store: Store{
			Driver: "sqlite",
			DSN:    "example.db",
			Fresh:  true,
		},
		AssetsDir: "assets",
		Log:       Log{Level: "info"},
	}
}

// Load reads a YAML file on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// RegisterFlags binds command-line flags to cfg. Flags win over the file
// because they are parsed after Load.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Listen, "http", c.Listen, "HTTP listen address (empty to disable)")
	fs.StringVar(&c.GRPCListen, "grpc", c.GRPCListen, "gRPC listen address (empty to disable)")
	fs.StringVar(&c.Sources.Crimes, "crimes", c.Sources.Crimes, "path to crimes.csv")
	fs.StringVar(&c.Sources.Criminals, "criminals", c.Sources.Criminals, "path to criminals.csv")
	fs.StringVar(&c.Sources.Victim, "victim", c.Sources.Victim, "path to victim.csv")
	fs.StringVar(&c.Delimiter, "delimiter", c.Delimiter, "CSV delimiter or 'auto'")
	fs.StringVar(&c.Store.Driver, "driver", c.Store.Driver, "store driver (sqlite or mysql)")
	fs.StringVar(&c.Store.DSN, "dsn", c.Store.DSN, "store file path (sqlite) or DSN (mysql)")
	fs.StringVar(&c.AssetsDir, "assets", c.AssetsDir, "directory with page images")
	fs.StringVar(&c.LessonFile, "lesson", c.LessonFile, "YAML lesson file (empty for the built-in lesson)")
	fs.BoolVar(&c.ReloadOnRun, "reload-on-run", c.ReloadOnRun, "reload CSVs before every query")
	fs.StringVar(&c.Refresh, "refresh", c.Refresh, "cron spec for scheduled reloads (empty to disable)")
	fs.DurationVar(&c.QueryTimeout, "timeout", c.QueryTimeout, "query timeout (0 for none)")
	fs.IntVar(&c.MaxRows, "max-rows", c.MaxRows, "maximum rows rendered per query (0 for all)")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level")
	fs.BoolVar(&c.Log.Development, "v", c.Log.Development, "development logging")
}

// Delim returns the configured delimiter rune, or 0 for auto-detection.
func (c Config) Delim() rune {
	if strings.EqualFold(c.Delimiter, "auto") {
		return 0
	}
	if c.Delimiter == `\t` {
		return '\t'
	}
	r := []rune(c.Delimiter)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}

// Validate reports the first problem found in c.
func (c Config) Validate() error {
	if c.Sources.Crimes == "" || c.Sources.Criminals == "" || c.Sources.Victim == "" {
		return fmt.Errorf("%w: all three source paths are required", ErrInvalid)
	}
	switch c.Store.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("%w: store dsn is required", ErrInvalid)
	}
	if !strings.EqualFold(c.Delimiter, "auto") && c.Delimiter != `\t` && len([]rune(c.Delimiter)) > 1 {
		return fmt.Errorf("%w: delimiter must be one character or 'auto'", ErrInvalid)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("%w: negative query timeout", ErrInvalid)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("%w: negative max_rows", ErrInvalid)
	}
	if c.Listen == "" && c.GRPCListen == "" {
		return fmt.Errorf("%w: neither http nor grpc listen address set", ErrInvalid)
	}
	return nil
}
