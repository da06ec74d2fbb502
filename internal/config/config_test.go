package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix+"_") {
			t.Setenv(strings.SplitN(kv, "=", 2)[0], "")
		}
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Defaults(), cfg, cmpopts.IgnoreFields(Config{}, "Source")); diff != "" {
		t.Fatalf("unexpected defaults (-want +got):\n%s", diff)
	}
	if cfg.Source != "" {
		t.Fatalf("expected no source, got %q", cfg.Source)
	}
	if cfg.Timeout != 0 || cfg.MetadataTimeout != 2*time.Minute {
		t.Fatalf("transfer and metadata limits should differ by default: %s %s", cfg.Timeout, cfg.MetadataTimeout)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	body := "output_dir: ~/Videos\nprogress: plain\ntimeout: 45m\nstall_timeout: 90s\nmetadata_timeout: 20s\nmetadata_backend: native\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YTGRAB_PROGRESS", "none")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "~/Videos" || cfg.MetadataBackend != BackendNative {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Progress != "none" {
		t.Fatalf("env should override file, got progress=%q", cfg.Progress)
	}
	if cfg.Timeout != 45*time.Minute || cfg.StallTimeout != 90*time.Second || cfg.MetadataTimeout != 20*time.Second {
		t.Fatalf("durations not decoded: %s %s %s", cfg.Timeout, cfg.StallTimeout, cfg.MetadataTimeout)
	}
	if cfg.DownloaderPath != "yt-dlp" || cfg.Source != path {
		t.Fatalf("unexpected defaults/source: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("metadata_backend: carrier-pigeon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "metadata_backend") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfigYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.StallTimeout = 2 * time.Minute
	data, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	var view map[string]string
	if err := yaml.Unmarshal(data, &view); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if view["stall_timeout"] != "2m0s" || view["progress"] != "auto" {
		t.Fatalf("unexpected rendering: %v", view)
	}

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded, cmpopts.IgnoreFields(Config{}, "Source")); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if lvl, err := ParseLevel("DEBUG"); err != nil || lvl.String() != "DEBUG" {
		t.Fatalf("unexpected level %v err=%v", lvl, err)
	}
}
