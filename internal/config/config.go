// Package config handles loading and resolving duckline configuration.
// Resolution order (last wins):
//  1. built-in defaults
//  2. .duckline.yaml in the current directory, then $HOME (or --config)
//  3. DUCKLINE_* environment variables (a .env file is loaded first)
//  4. CLI flags bound to the same keys
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yellowduckie/duckline/internal/transform"
)

const (
	DefaultConfigName  = ".duckline"
	DefaultFormat      = "table"
	DefaultDataDir     = "data"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultRate        = 5.0
	DefaultLogLevel    = "warn"
	DefaultWindow      = "all"
	EnvPrefix          = "DUCKLINE"
)

// Keys lists every configuration key in display order.
var Keys = []string{
	"data_dir", "base_url", "catalog", "format", "db_path", "timeout",
	"rate", "retries", "concurrency", "log_level", "log_file", "window",
}

// File is the on-disk representation of .duckline.yaml. Viper decodes into
// it through the mapstructure tags; WriteFile encodes it through yaml.v3.
type File struct {
	DataDir     string  `mapstructure:"data_dir" yaml:"data_dir"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	Catalog     string  `mapstructure:"catalog" yaml:"catalog"`
	Format      string  `mapstructure:"format" yaml:"format"`
	DBPath      string  `mapstructure:"db_path" yaml:"db_path"`
	Timeout     string  `mapstructure:"timeout" yaml:"timeout"`
	Rate        float64 `mapstructure:"rate" yaml:"rate"`
	Retries     int     `mapstructure:"retries" yaml:"retries"`
	Concurrency int     `mapstructure:"concurrency" yaml:"concurrency"`
	LogLevel    string  `mapstructure:"log_level" yaml:"log_level"`
	LogFile     string  `mapstructure:"log_file" yaml:"log_file"`
	Window      string  `mapstructure:"window" yaml:"window"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	DataDir     string
	BaseURL     string
	Catalog     string
	Format      string
	DBPath      string
	Timeout     time.Duration
	Rate        float64
	Retries     int
	Concurrency int
	LogLevel    string
	LogFile     string
	Window      string
	ConfigPath  string // config file that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Now     time.Time // pinned clock for windowing; zero means time.Now
}

// New returns a viper instance with duckline's defaults, env prefix and
// config search path. configFile, when non-empty, replaces the search.
func New(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	t := Template()
	v.SetDefault("data_dir", t.DataDir)
	v.SetDefault("base_url", t.BaseURL)
	v.SetDefault("catalog", t.Catalog)
	v.SetDefault("format", t.Format)
	v.SetDefault("db_path", defaultDBPath())
	v.SetDefault("timeout", t.Timeout)
	v.SetDefault("rate", t.Rate)
	v.SetDefault("retries", t.Retries)
	v.SetDefault("concurrency", t.Concurrency)
	v.SetDefault("log_level", t.LogLevel)
	v.SetDefault("log_file", t.LogFile)
	v.SetDefault("window", t.Window)
	return v
}

// Load reads the config file (if any) into v and resolves every key.
// A missing config file is not an error; a malformed one is.
func Load(v *viper.Viper) (*Config, error) {
	path := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		path = v.ConfigFileUsed()
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	cfg, err := resolve(f)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = path
	return cfg, nil
}

func resolve(f File) (*Config, error) {
	timeout, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return nil, fmt.Errorf("config timeout %q: %w", f.Timeout, err)
	}
	cfg := &Config{
		DataDir:     f.DataDir,
		BaseURL:     f.BaseURL,
		Catalog:     f.Catalog,
		Format:      f.Format,
		DBPath:      f.DBPath,
		Timeout:     timeout,
		Rate:        f.Rate,
		Retries:     f.Retries,
		Concurrency: f.Concurrency,
		LogLevel:    f.LogLevel,
		LogFile:     f.LogFile,
		Window:      f.Window,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	return cfg, cfg.Validate()
}

// Validate resolves f on its own, without defaults or environment, and
// reports the first value no command could use.
func (f File) Validate() error {
	_, err := resolve(f)
	return err
}

// Set assigns one key from its string form.
func (f *File) Set(key, val string) error {
	switch key {
	case "data_dir":
		f.DataDir = val
	case "base_url":
		f.BaseURL = val
	case "catalog":
		f.Catalog = val
	case "format":
		f.Format = val
	case "db_path":
		f.DBPath = val
	case "timeout":
		f.Timeout = val
	case "rate":
		r, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("rate must be a number")
		}
		f.Rate = r
	case "retries", "concurrency":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		if key == "retries" {
			f.Retries = n
		} else {
			f.Concurrency = n
		}
	case "log_level":
		f.LogLevel = val
	case "log_file":
		f.LogFile = val
	case "window":
		f.Window = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(Keys, ", "))
	}
	return nil
}

// ReadFile reads a config file over the template, so keys the file omits
// keep their defaults.
func ReadFile(path string) (File, error) {
	f := Template()
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Validate returns an error for values no command could use.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("config timeout must be positive, got %s", c.Timeout)
	}
	if c.Rate < 0 {
		return fmt.Errorf("config rate must be >= 0, got %g", c.Rate)
	}
	if c.Retries < 0 {
		return fmt.Errorf("config retries must be >= 0, got %d", c.Retries)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("config concurrency must be >= 1, got %d", c.Concurrency)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config log_level: %w", err)
	}
	if _, err := transform.ParseWindow(c.Window); err != nil {
		return fmt.Errorf("config window: %w", err)
	}
	return nil
}

// Clock returns the pinned clock if set, otherwise the current time.
func (c *Config) Clock() time.Time {
	if !c.Now.IsZero() {
		return c.Now
	}
	return time.Now()
}

// Values returns every key with its resolved value as a display string,
// in Keys order.
func (c *Config) Values() [][2]string {
	return [][2]string{
		{"data_dir", c.DataDir},
		{"base_url", c.BaseURL},
		{"catalog", c.Catalog},
		{"format", c.Format},
		{"db_path", c.DBPath},
		{"timeout", c.Timeout.String()},
		{"rate", fmt.Sprintf("%g", c.Rate)},
		{"retries", fmt.Sprintf("%d", c.Retries)},
		{"concurrency", fmt.Sprintf("%d", c.Concurrency)},
		{"log_level", c.LogLevel},
		{"log_file", c.LogFile},
		{"window", c.Window},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".duckline", "duckline.db")
	}
	return filepath.Join(home, ".duckline", "duckline.db")
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial .duckline.yaml via `duckline config init`.
func Template() File {
	return File{
		DataDir:     DefaultDataDir,
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout.String(),
		Rate:        DefaultRate,
		Concurrency: DefaultConcurrency,
		LogLevel:    DefaultLogLevel,
		Window:      DefaultWindow,
	}
}

// WriteFile serialises a File to the given path as YAML.
func WriteFile(path string, f File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
