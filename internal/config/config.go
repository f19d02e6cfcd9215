package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/rebeliceyang/lazyroster/internal/export"
	"github.com/rebeliceyang/lazyroster/internal/logging"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// AppName names the config directory and the environment prefix
const AppName = "lazyroster"

// Config holds all application configuration
type Config struct {
	General  GeneralConfig           `mapstructure:"general"`
	UI       UIConfig                `mapstructure:"ui"`
	Data     DataConfig              `mapstructure:"data"`
	Engine   EngineConfig            `mapstructure:"engine"`
	Export   ExportConfig            `mapstructure:"export"`
	Presets  PresetsConfig           `mapstructure:"presets"`
	History  HistoryConfig           `mapstructure:"history"`
	Log      LogConfig               `mapstructure:"log"`
	Postgres models.ConnectionConfig `mapstructure:"postgres"`
}

type GeneralConfig struct {
	DefaultMode         string `mapstructure:"default_mode"`
	DefaultSearchColumn string `mapstructure:"default_search_column"`
}

type UIConfig struct {
	Theme        string `mapstructure:"theme"`
	MouseEnabled bool   `mapstructure:"mouse_enabled"`
}

type DataConfig struct {
	MaxCellDisplayLength int `mapstructure:"max_cell_display_length"`
	PageSize             int `mapstructure:"page_size"`
}

type EngineConfig struct {
	// Parallelism caps concurrent rule evaluation; 0 means GOMAXPROCS
	Parallelism int `mapstructure:"parallelism"`
}

type ExportConfig struct {
	DefaultFormat string `mapstructure:"default_format"`
	Directory     string `mapstructure:"directory"`
}

type PresetsConfig struct {
	Path string `mapstructure:"path"`
}

type HistoryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		General: GeneralConfig{
			DefaultMode: string(models.ModeAll),
		},
		UI: UIConfig{
			Theme:        "default",
			MouseEnabled: true,
		},
		Data: DataConfig{
			MaxCellDisplayLength: 40,
			PageSize:             50,
		},
		Export: ExportConfig{
			DefaultFormat: string(export.FormatCSV),
			Directory:     ".",
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaults()
	v.SetDefault("general.default_mode", d.General.DefaultMode)
	v.SetDefault("general.default_search_column", d.General.DefaultSearchColumn)
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("ui.mouse_enabled", d.UI.MouseEnabled)
	v.SetDefault("data.max_cell_display_length", d.Data.MaxCellDisplayLength)
	v.SetDefault("data.page_size", d.Data.PageSize)
	v.SetDefault("engine.parallelism", d.Engine.Parallelism)
	v.SetDefault("export.default_format", d.Export.DefaultFormat)
	v.SetDefault("export.directory", d.Export.Directory)
	v.SetDefault("presets.path", d.Presets.Path)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.max_entries", d.History.MaxEntries)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("postgres.dsn", "")
}

// Loader reads configuration with viper and can watch the file it used
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. An empty file searches the user config
// directory, then ".", then "./config" for config.yaml.
func NewLoader(file string) *Loader {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Add config paths in priority order
		if dir, err := GetConfigPath(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// LAZYROSTER_LOG_LEVEL overrides log.level, and so on
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return &Loader{v: v}
}

// Load loads configuration from files
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// Load reads the config file, if any, over the defaults
func (l *Loader) Load() (*Config, error) {
	// Read config (it's okay if file doesn't exist, we have defaults)
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// File returns the config file in use, or "" when running on defaults
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch re-reads the config whenever the file changes and hands the result
// to onChange. A file that fails to parse or validate is reported as an
// error and the previous config stays in effect for the caller.
func (l *Loader) Watch(onChange func(*Config, error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(l.decode())
	})
	l.v.WatchConfig()
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	if _, err := models.ParseFilterMode(c.General.DefaultMode); err != nil {
		return fmt.Errorf("general.default_mode: %w", err)
	}
	if _, err := export.ParseFormat(c.Export.DefaultFormat); err != nil {
		return fmt.Errorf("export.default_format: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if c.Data.PageSize < 1 {
		return fmt.Errorf("data.page_size must be positive, got %d", c.Data.PageSize)
	}
	if c.Engine.Parallelism < 0 {
		return fmt.Errorf("engine.parallelism must not be negative, got %d", c.Engine.Parallelism)
	}
	return nil
}

// Mode returns the parsed default filter mode
func (c *Config) Mode() models.FilterMode {
	m, err := models.ParseFilterMode(c.General.DefaultMode)
	if err != nil {
		return models.ModeAll
	}
	return m
}

// Parallelism returns the rule evaluation width; 0 in the file means GOMAXPROCS
func (c *Config) Parallelism() int {
	if c.Engine.Parallelism > 0 {
		return c.Engine.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// PresetsPath returns the saved presets file
func (c *Config) PresetsPath() string {
	return c.resolve(c.Presets.Path, "presets.yaml")
}

// HistoryPath returns the snapshot database file
func (c *Config) HistoryPath() string {
	return c.resolve(c.History.Path, "history.db")
}

func (c *Config) resolve(path, name string) string {
	if path != "" {
		return path
	}
	dir, err := GetConfigPath()
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}
