package cli

import (
	"testing"
	"time"

	"ytgrab/internal/config"
	"ytgrab/internal/ytdlp"
)

func TestNewMetadataSource_UsesMetadataTimeout(t *testing.T) {
	cfg := config.Defaults()
	cfg.Timeout = time.Hour
	cfg.MetadataTimeout = 15 * time.Second

	c, ok := newMetadataSource(cfg).(*ytdlp.Client)
	if !ok {
		t.Fatalf("expected the yt-dlp metadata client, got %T", newMetadataSource(cfg))
	}
	if c.Timeout != 15*time.Second {
		t.Fatalf("metadata fetch should use metadata_timeout, got %s", c.Timeout)
	}
}

func TestLoadConfig_TimeoutFlagsStaySeparate(t *testing.T) {
	newHarness(t)
	fs := newFlagSet("download")
	fs.Duration("stall-timeout", 0, "")
	addSourceFlags(fs)
	if err := fs.Parse([]string{"--timeout", "1h", "--metadata-timeout", "5s"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(fs, "")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Timeout != time.Hour || cfg.MetadataTimeout != 5*time.Second || cfg.StallTimeout != 0 {
		t.Fatalf("unexpected limits: timeout=%s metadata=%s stall=%s", cfg.Timeout, cfg.MetadataTimeout, cfg.StallTimeout)
	}
}
