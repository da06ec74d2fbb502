package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "YTGRAB"

	BackendYTDLP  = "ytdlp"
	BackendNative = "native"
)

type Config struct {
	DownloaderPath  string        `mapstructure:"downloader_path"`
	OutputDir       string        `mapstructure:"output_dir"`
	MetadataBackend string        `mapstructure:"metadata_backend"`
	Progress        string        `mapstructure:"progress"`
	Timeout         time.Duration `mapstructure:"timeout"`
	StallTimeout    time.Duration `mapstructure:"stall_timeout"`
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`

	// Source is the file the values were read from, empty for defaults only.
	Source string `mapstructure:"-"`
}

// fileView is the on-disk shape; durations are kept as Go duration strings.
type fileView struct {
	DownloaderPath  string `yaml:"downloader_path"`
	OutputDir       string `yaml:"output_dir"`
	MetadataBackend string `yaml:"metadata_backend"`
	Progress        string `yaml:"progress"`
	Timeout         string `yaml:"timeout"`
	StallTimeout    string `yaml:"stall_timeout"`
	MetadataTimeout string `yaml:"metadata_timeout"`
	LogLevel        string `yaml:"log_level"`
	LogFile         string `yaml:"log_file"`
}

func Defaults() Config {
	return Config{
		DownloaderPath:  "yt-dlp",
		OutputDir:       "",
		MetadataBackend: BackendYTDLP,
		Progress:        "auto",
		Timeout:         0,
		StallTimeout:    0,
		MetadataTimeout: 2 * time.Minute,
		LogLevel:        "warn",
		LogFile:         "",
	}
}

func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", "ytgrab.yml")
	}
	return filepath.Join(dir, "ytgrab", "config.yml")
}

// Load layers defaults, the YAML file and YTGRAB_* environment variables, in
// that order of precedence. An explicit path must exist; the default path is
// optional.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	d := Defaults()
	v.SetDefault("downloader_path", d.DownloaderPath)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("metadata_backend", d.MetadataBackend)
	v.SetDefault("progress", d.Progress)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("stall_timeout", d.StallTimeout)
	v.SetDefault("metadata_timeout", d.MetadataTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	explicit := strings.TrimSpace(path) != ""
	file := strings.TrimSpace(path)
	if !explicit {
		file = DefaultPath()
	}
	v.SetConfigFile(file)

	source := file
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
		slog.Debug("using defaults", slog.String("config", file))
		source = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", file, err)
	}
	cfg.Source = source
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.MetadataBackend {
	case BackendYTDLP, BackendNative:
	default:
		return fmt.Errorf("invalid metadata_backend %q (expected ytdlp or native)", c.MetadataBackend)
	}
	switch c.Progress {
	case "auto", "tui", "plain", "none":
	default:
		return fmt.Errorf("invalid progress %q (expected auto, tui, plain, or none)", c.Progress)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Timeout < 0 || c.StallTimeout < 0 || c.MetadataTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if strings.TrimSpace(c.DownloaderPath) == "" {
		return fmt.Errorf("downloader_path must not be empty")
	}
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level %q (expected debug, info, warn, or error)", s)
	}
}

func (c Config) YAML() ([]byte, error) {
	view := fileView{
		DownloaderPath:  c.DownloaderPath,
		OutputDir:       c.OutputDir,
		MetadataBackend: c.MetadataBackend,
		Progress:        c.Progress,
		Timeout:         c.Timeout.String(),
		StallTimeout:    c.StallTimeout.String(),
		MetadataTimeout: c.MetadataTimeout.String(),
		LogLevel:        c.LogLevel,
		LogFile:         c.LogFile,
	}
	out, err := yaml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}
