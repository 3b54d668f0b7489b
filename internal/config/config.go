package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"taskpad/internal/storage"
	"taskpad/internal/task"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todo-app"
	DefaultCollection     = "tasks"
	DefaultSchemaVersion  = 1
	DefaultLogFile        = "taskpad.log"
	DefaultLogLevel       = "info"

	envConfigPath = "TASKPAD_CONFIG"
)

type Keymap struct {
	Quit           string `toml:"quit"`
	Add            string `toml:"add"`
	Up             string `toml:"up"`
	Down           string `toml:"down"`
	Toggle         string `toml:"toggle"`
	Delete         string `toml:"delete"`
	Confirm        string `toml:"confirm"`
	Cancel         string `toml:"cancel"`
	Rename         string `toml:"rename"`
	PriorityUp     string `toml:"priority_up"`
	PriorityDown   string `toml:"priority_down"`
	FilterStatus   string `toml:"filter_status"`
	FilterPriority string `toml:"filter_priority"`
	SortName       string `toml:"sort_name"`
	SortPriority   string `toml:"sort_priority"`
	SortCreated    string `toml:"sort_created"`
	SortOrder      string `toml:"sort_order"`
	ResetFilters   string `toml:"reset_filters"`
	ClearCompleted string `toml:"clear_completed"`
	Reload         string `toml:"reload"`
}

type Filters struct {
	Status    string `toml:"status"`
	Priority  string `toml:"priority"`
	SortBy    string `toml:"sort_by"`
	SortOrder string `toml:"sort_order"`
}

type Config struct {
	DataDir       string  `toml:"data_dir"`
	DBName        string  `toml:"db_name"`
	SchemaVersion int     `toml:"schema_version"`
	Collection    string  `toml:"collection"`
	LogFile       string  `toml:"log_file"`
	LogLevel      string  `toml:"log_level"`
	Filters       Filters `toml:"filters"`
	Keys          Keymap  `toml:"keys"`
}

// ResolveConfigPath returns $TASKPAD_CONFIG, else config.toml under the user
// config directory, else config.toml in the working directory.
func ResolveConfigPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, "taskpad", DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist. Blank fields are filled with defaults.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		cfg.resolve(path)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	cfg.resolve(path)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.SchemaVersion < 1 {
		return fmt.Errorf("schema_version must be at least 1, got %d", c.SchemaVersion)
	}
	if _, err := storage.New(c.StorageOptions()); err != nil {
		return err
	}
	if _, err := c.InitialFilters(); err != nil {
		return err
	}
	return nil
}

// StorageOptions describes the task database.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Dir:        c.DataDir,
		Name:       c.DBName,
		Version:    c.SchemaVersion,
		Collection: c.Collection,
	}
}

func (c Config) InitialFilters() (task.Filters, error) {
	return task.ParseFilters(c.Filters.Status, c.Filters.Priority, c.Filters.SortBy, c.Filters.SortOrder)
}

func (c *Config) fillDefaults() {
	d := defaultConfig()
	if c.DBName == "" {
		c.DBName = d.DBName
	}
	if c.SchemaVersion == 0 {
		c.SchemaVersion = d.SchemaVersion
	}
	if c.Collection == "" {
		c.Collection = d.Collection
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// resolve anchors relative paths at the directory holding the config file.
func (c *Config) resolve(path string) {
	base := filepath.Dir(path)
	if c.DataDir == "" {
		c.DataDir = base
	} else if !filepath.IsAbs(c.DataDir) {
		c.DataDir = filepath.Join(base, c.DataDir)
	}
	if !filepath.IsAbs(c.LogFile) {
		c.LogFile = filepath.Join(c.DataDir, c.LogFile)
	}
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DBName:        DefaultDBName,
		SchemaVersion: DefaultSchemaVersion,
		Collection:    DefaultCollection,
		LogFile:       DefaultLogFile,
		LogLevel:      DefaultLogLevel,
		Filters: Filters{
			Status:    string(task.StatusAll),
			Priority:  string(task.PriorityAll),
			SortBy:    string(task.SortByCreatedAt),
			SortOrder: string(task.SortDesc),
		},
		Keys: Keymap{
			Quit:           "q",
			Add:            "a",
			Up:             "k",
			Down:           "j",
			Toggle:         " ",
			Delete:         "d",
			Confirm:        "enter",
			Cancel:         "esc",
			Rename:         "r",
			PriorityUp:     "+",
			PriorityDown:   "-",
			FilterStatus:   "f",
			FilterPriority: "p",
			SortName:       "n",
			SortPriority:   "P",
			SortCreated:    "t",
			SortOrder:      "o",
			ResetFilters:   "0",
			ClearCompleted: "c",
			Reload:         "R",
		},
	}
}
