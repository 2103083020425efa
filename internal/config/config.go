// Package config loads application settings from defaults, an optional TOML
// file, environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

// Defaults.
const (
	DefaultAddr       = "127.0.0.1:8080"
	DefaultStorage    = StorageSQLite
	DefaultDBPath     = "./data/todolist.db"
	DefaultDataDir    = "./data"
	DefaultSlotKey    = "tasks"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultConfigFile = "todolist.toml"
)

// Config holds application settings.
type Config struct {
	Addr      string `toml:"addr"`
	Storage   string `toml:"storage"`
	DBPath    string `toml:"db_path"`
	DataDir   string `toml:"data_dir"`
	SlotKey   string `toml:"slot_key"`
	AsyncSave bool   `toml:"async_save"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `toml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:      DefaultAddr,
		Storage:   DefaultStorage,
		DBPath:    DefaultDBPath,
		DataDir:   DefaultDataDir,
		SlotKey:   DefaultSlotKey,
		AsyncSave: true,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// Load builds the configuration:
// 1. Defaults
// 2. Config file (-config flag, TODO_CONFIG, or ./todolist.toml if present)
// 3. Environment variables
// 4. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	if fs == nil {
		fs = flag.NewFlagSet("todolist", flag.ContinueOnError)
	}

	cfg := Default()

	flags := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	path, explicit := configFilePath(*flags.config)
	if path != "" {
		if err := loadConfigFile(cfg, path, explicit); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	flags.apply(cfg, fs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr is required")
	}

	switch c.Storage {
	case StorageSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return errors.New("db_path is required for sqlite storage")
		}
	case StorageFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return errors.New("data_dir is required for file storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("storage must be '%s', '%s', or '%s'", StorageSQLite, StorageFile, StorageMemory)
	}

	if strings.TrimSpace(c.SlotKey) == "" {
		return errors.New("slot_key is required")
	}

	return nil
}

func configFilePath(flagValue string) (string, bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if v := os.Getenv("TODO_CONFIG"); v != "" {
		return v, true
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, false
	}
	return "", false
}

// loadConfigFile decodes TOML into cfg. Keys absent from the file keep their
// current values. A missing file is only an error when it was asked for.
func loadConfigFile(cfg *Config, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return err
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	cfg.ConfigFile = path
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = "127.0.0.1:" + v
	}
	if v := os.Getenv("TODO_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TODO_STORAGE"); v != "" {
		cfg.Storage = strings.ToLower(v)
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TODO_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TODO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TODO_SLOT_KEY"); v != "" {
		cfg.SlotKey = v
	}
	if v := os.Getenv("TODO_ASYNC_SAVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TODO_ASYNC_SAVE %q: %w", v, err)
		}
		cfg.AsyncSave = b
	}
	if v := os.Getenv("TODO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TODO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	return nil
}

type flagValues struct {
	config    *string
	addr      *string
	storage   *string
	dbPath    *string
	dataDir   *string
	slotKey   *string
	asyncSave *bool
	logLevel  *string
	logFormat *string
}

func defineFlags(fs *flag.FlagSet) *flagValues {
	return &flagValues{
		config:    fs.String("config", "", "path to a TOML config file"),
		addr:      fs.String("addr", "", "listen address"),
		storage:   fs.String("storage", "", "storage backend: sqlite, file, or memory"),
		dbPath:    fs.String("db", "", "SQLite database path"),
		dataDir:   fs.String("data-dir", "", "directory for file storage"),
		slotKey:   fs.String("slot-key", "", "storage key holding the task list"),
		asyncSave: fs.Bool("async-save", true, "save in the background"),
		logLevel:  fs.String("log-level", "", "debug, info, warn, or error"),
		logFormat: fs.String("log-format", "", "text, json, or logfmt"),
	}
}

// apply copies only the flags that were set on the command line.
func (f *flagValues) apply(cfg *Config, fs *flag.FlagSet) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "addr":
			cfg.Addr = *f.addr
		case "storage":
			cfg.Storage = strings.ToLower(*f.storage)
		case "db":
			cfg.DBPath = *f.dbPath
		case "data-dir":
			cfg.DataDir = *f.dataDir
		case "slot-key":
			cfg.SlotKey = *f.slotKey
		case "async-save":
			cfg.AsyncSave = *f.asyncSave
		case "log-level":
			cfg.LogLevel = *f.logLevel
		case "log-format":
			cfg.LogFormat = *f.logFormat
		}
	})
}
