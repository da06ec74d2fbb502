package doctor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRun_ReportsMissingYTDLP(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	res := Run(Options{OutputDir: filepath.Join(t.TempDir(), "out")})
	if res.OK {
		t.Fatalf("expected failure without yt-dlp: %+v", res)
	}
	byName := map[string]Check{}
	for _, c := range res.Checks {
		byName[c.Name] = c
	}
	if c := byName["dependency:yt-dlp"]; c.OK || c.Guidance == "" {
		t.Fatalf("unexpected yt-dlp check: %+v", c)
	}
	if c := byName["directory:output"]; !c.OK {
		t.Fatalf("output dir should be created and writable: %+v", c)
	}
}

func TestRun_PassesWithoutFFmpeg(t *testing.T) {
	fakeBin := t.TempDir()
	if err := os.WriteFile(filepath.Join(fakeBin, "yt-dlp"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", fakeBin)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	res := Run(Options{OutputDir: t.TempDir()})
	if !res.OK {
		t.Fatalf("ffmpeg is optional, expected OK: %+v", res)
	}
}

func TestRun_FlagsBrokenConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(cfg, []byte("progress: rainbow\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := Run(Options{OutputDir: t.TempDir(), ConfigPath: cfg})
	for _, c := range res.Checks {
		if c.Name == "config" && c.OK {
			t.Fatalf("expected config check failure: %+v", c)
		}
	}
	if res.OK {
		t.Fatalf("expected overall failure")
	}
}
