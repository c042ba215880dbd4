package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "TT"
	dirName   = ".tt"
)

type GitHub struct {
	Binary  string        `mapstructure:"binary" yaml:"binary"`
	Repo    string        `mapstructure:"repo" yaml:"repo"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Limit   int           `mapstructure:"limit" yaml:"limit"`
}

type Config struct {
	DBPath   string `mapstructure:"db_path" yaml:"db_path"`
	NotesDir string `mapstructure:"notes_dir" yaml:"notes_dir"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	GitHub   GitHub `mapstructure:"github" yaml:"github"`
}

// Dir is the per-user state directory, ~/.tt.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() Config {
	dir := Dir()
	return Config{
		DBPath:   filepath.Join(dir, "tasks.db"),
		NotesDir: filepath.Join(dir, "notes"),
		LogFile:  filepath.Join(dir, "tt.log"),
		LogLevel: "info",
		GitHub: GitHub{
			Binary:  "gh",
			Timeout: 20 * time.Second,
			Limit:   100,
		},
	}
}

// Load resolves defaults, then the config file, then TT_* environment
// variables. A missing file is not an error; an explicitly named one must
// exist.
func Load(path string) (Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("notes_dir", defaults.NotesDir)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("github.binary", defaults.GitHub.Binary)
	v.SetDefault("github.repo", defaults.GitHub.Repo)
	v.SetDefault("github.timeout", defaults.GitHub.Timeout)
	v.SetDefault("github.limit", defaults.GitHub.Limit)

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.NotesDir = expandHome(cfg.NotesDir)
	cfg.LogFile = expandHome(cfg.LogFile)
	return cfg, nil
}

func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config yaml: %w", err)
	}
	return out, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
