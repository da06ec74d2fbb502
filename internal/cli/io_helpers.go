package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"ytgrab/internal/config"

	flag "github.com/spf13/pflag"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(os.Stderr)
	return fs
}

// singleArg returns the one positional argument a command expects.
func singleArg(fs *flag.FlagSet, what string) (string, error) {
	rest := fs.Args()
	switch len(rest) {
	case 0:
		return "", fmt.Errorf("%s is required", what)
	case 1:
		return strings.TrimSpace(rest[0]), nil
	default:
		return "", fmt.Errorf("expected exactly one %s, got %d arguments", what, len(rest))
	}
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig(fs *flag.FlagSet, path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if fs.Changed("output-dir") {
		cfg.OutputDir, _ = fs.GetString("output-dir")
	}
	if fs.Changed("metadata") {
		cfg.MetadataBackend, _ = fs.GetString("metadata")
	}
	if fs.Changed("progress") {
		cfg.Progress, _ = fs.GetString("progress")
	}
	if fs.Changed("timeout") {
		cfg.Timeout, _ = fs.GetDuration("timeout")
	}
	if fs.Changed("metadata-timeout") {
		cfg.MetadataTimeout, _ = fs.GetDuration("metadata-timeout")
	}
	if fs.Changed("stall-timeout") {
		cfg.StallTimeout, _ = fs.GetDuration("stall-timeout")
	}
	if fs.Changed("log-file") {
		cfg.LogFile, _ = fs.GetString("log-file")
	}
	if fs.Changed("downloader") {
		cfg.DownloaderPath, _ = fs.GetString("downloader")
	}
	if v, _ := fs.GetBool("verbose"); v {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
