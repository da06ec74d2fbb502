package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytgrab/internal/model"
	"ytgrab/internal/runstore"
)

const harnessURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

const harnessFixture = `{
  "id": "dQw4w9WgXcQ",
  "title": "Sample Clip: Live!",
  "duration": 212,
  "formats": [
    {"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "abr": 129.5, "filesize": 3400000},
    {"format_id": "18", "ext": "mp4", "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "height": 360, "tbr": 500},
    {"format_id": "22", "ext": "mp4", "vcodec": "avc1.64001F", "acodec": "mp4a.40.2", "height": 720, "tbr": 1200}
  ]
}`

// fakeYTDLP answers -J from $YTDLP_FIXTURE and otherwise behaves like a
// transfer: it prints progress and creates the file named by -o.
const fakeYTDLP = `#!/usr/bin/env bash
set -euo pipefail
for a in "$@"; do
  if [ "$a" = "-J" ]; then
    cat "$YTDLP_FIXTURE"
    exit 0
  fi
done
if [ -n "${YTDLP_FAIL:-}" ]; then
  echo "ERROR: unable to download video data: HTTP Error 403: Forbidden" >&2
  exit 1
fi
out=""
prev=""
ext="mp4"
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  if [ "$a" = "-x" ]; then ext="mp3"; fi
  prev="$a"
done
target=$(printf '%s' "$out" | sed "s/%(ext)s/$ext/")
echo "[youtube] dQw4w9WgXcQ: Downloading webpage"
echo "[download]  50.0% 500 1000 3"
echo "[download] 100.0% 1000 1000 0"
mkdir -p "$(dirname "$target")"
: > "$target"
`

type harness struct {
	dir    string
	outDir string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	tmp := t.TempDir()
	fakeBin := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(fakeBin, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fakeBin, "yt-dlp"), []byte(fakeYTDLP), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fakeBin, "ffmpeg"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	fixture := filepath.Join(tmp, "info.json")
	if err := os.WriteFile(fixture, []byte(harnessFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PATH", fakeBin+":"+os.Getenv("PATH"))
	t.Setenv("YTDLP_FIXTURE", fixture)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("HOME", filepath.Join(tmp, "home"))
	for _, key := range []string{"YTGRAB_OUTPUT_DIR", "YTGRAB_PROGRESS", "YTGRAB_METADATA_BACKEND", "YTGRAB_DOWNLOADER_PATH", "YTGRAB_LOG_LEVEL", "YTGRAB_LOG_FILE", "YTGRAB_TIMEOUT", "YTGRAB_STALL_TIMEOUT", "YTGRAB_METADATA_TIMEOUT"} {
		t.Setenv(key, "")
	}
	return harness{dir: tmp, outDir: filepath.Join(tmp, "out")}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
	}()
	defer r.Close()

	fn()

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestHarnessDownloadVideoJSON(t *testing.T) {
	h := newHarness(t)

	var runErr error
	out := captureStdout(t, func() {
		runErr = Run([]string{"download", "--json", "--progress", "none", "-o", h.outDir, harnessURL})
	})
	if runErr != nil {
		t.Fatalf("download failed: %v\n%s", runErr, out)
	}

	var outcome model.Outcome
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode outcome: %v\n%s", err, out)
	}
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	want := filepath.Join(h.outDir, "SampleClipLive.mp4")
	if outcome.OutputPath != want {
		t.Fatalf("output path: got %q want %q", outcome.OutputPath, want)
	}
	if outcome.Format == nil || outcome.Format.ID != "22" {
		t.Fatalf("expected format 22, got %+v", outcome.Format)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestHarnessBareURLAudioWithReport(t *testing.T) {
	h := newHarness(t)
	reportPath := filepath.Join(h.dir, "report.json")

	var runErr error
	out := captureStdout(t, func() {
		runErr = Run([]string{"https://youtu.be/dQw4w9WgXcQ", "-a", "--progress", "plain", "-o", h.outDir, "--report", reportPath})
	})
	if runErr != nil {
		t.Fatalf("download failed: %v\n%s", runErr, out)
	}
	want := filepath.Join(h.outDir, "SampleClipLive.mp3")
	if !strings.Contains(out, "Downloaded audio to "+want) {
		t.Fatalf("unexpected output: %q", out)
	}

	report, err := runstore.ReadReport(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	if report.State != model.StateCompleted || report.Format == nil || report.Format.ID != "140" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestHarnessPlaylistRejected(t *testing.T) {
	newHarness(t)

	var runErr error
	out := captureStdout(t, func() {
		runErr = Run([]string{"https://www.youtube.com/playlist?list=PL123", "--progress", "none"})
	})
	if runErr == nil {
		t.Fatalf("expected playlist link to fail")
	}
	if !strings.Contains(runErr.Error(), string(model.KindPlaylistUnsupported)) {
		t.Fatalf("unexpected error: %v", runErr)
	}
	if !strings.Contains(out, "Please check the link") {
		t.Fatalf("missing hint in output: %q", out)
	}
}

func TestHarnessTransferFailureAsksForRetry(t *testing.T) {
	h := newHarness(t)
	t.Setenv("YTDLP_FAIL", "1")

	var runErr error
	out := captureStdout(t, func() {
		runErr = Run([]string{"download", "--progress", "none", "-o", h.outDir, harnessURL})
	})
	if runErr == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(out, "HTTP Error 403") {
		t.Fatalf("expected yt-dlp diagnostic in output: %q", out)
	}
	if !strings.Contains(out, "Please retry the same command.") {
		t.Fatalf("expected retry hint: %q", out)
	}
}

func TestHarnessFormatsJSON(t *testing.T) {
	newHarness(t)

	var runErr error
	out := captureStdout(t, func() {
		runErr = Run([]string{"formats", "--json", harnessURL})
	})
	if runErr != nil {
		t.Fatalf("formats failed: %v", runErr)
	}
	var report formatsReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if report.BestVideo == nil || report.BestVideo.ID != "22" {
		t.Fatalf("best video: %+v", report.BestVideo)
	}
	if report.BestAudio == nil || report.BestAudio.ID != "140" {
		t.Fatalf("best audio: %+v", report.BestAudio)
	}
	if len(report.Muxed) != 2 || len(report.AudioOnly) != 1 {
		t.Fatalf("unexpected grouping: muxed=%d audio=%d", len(report.Muxed), len(report.AudioOnly))
	}
}

func TestHarnessFormatsTable(t *testing.T) {
	newHarness(t)

	out := captureStdout(t, func() {
		if err := Run([]string{"formats", harnessURL}); err != nil {
			t.Errorf("formats failed: %v", err)
		}
	})
	for _, want := range []string{"Sample Clip: Live!", "muxed", "video pick: 22", "audio pick: 140"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestHarnessDoctorJSON(t *testing.T) {
	h := newHarness(t)

	var runErr error
	out := captureStdout(t, func() {
		runErr = Run([]string{"doctor", "--json", "-o", h.outDir})
	})
	if runErr != nil {
		t.Fatalf("doctor failed: %v\n%s", runErr, out)
	}
	if !strings.Contains(out, `"dependency:yt-dlp"`) || !strings.Contains(out, `"ok": true`) {
		t.Fatalf("unexpected doctor output: %s", out)
	}
}

func TestHarnessConfigInitAndPrint(t *testing.T) {
	h := newHarness(t)
	cfgPath := filepath.Join(h.dir, "ytgrab.yml")

	out := captureStdout(t, func() {
		if err := Run([]string{"config", "--init", "--config", cfgPath}); err != nil {
			t.Errorf("config --init failed: %v", err)
		}
	})
	if !strings.Contains(out, "config: wrote "+cfgPath) {
		t.Fatalf("unexpected init output: %q", out)
	}
	if err := Run([]string{"config", "--init", "--config", cfgPath}); err == nil {
		t.Fatalf("expected second --init without --force to fail")
	}

	out = captureStdout(t, func() {
		if err := Run([]string{"config", "--config", cfgPath}); err != nil {
			t.Errorf("config failed: %v", err)
		}
	})
	if !strings.Contains(out, "# "+cfgPath) || !strings.Contains(out, "metadata_backend: ytdlp") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var runErr error
	captureStdout(t, func() {
		runErr = Run([]string{"frobnicate"})
	})
	if runErr == nil || !strings.Contains(runErr.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", runErr)
	}
}

func TestRetryHint(t *testing.T) {
	cases := map[model.ErrorKind]string{
		model.KindInvalidLink:    "Please check the link and run the command again.",
		model.KindTransferFailed: "Please retry the same command.",
		model.KindInterrupted:    "Please retry the same command.",
	}
	for kind, want := range cases {
		if got := retryHint(kind); got != want {
			t.Fatalf("%s: got %q want %q", kind, got, want)
		}
	}
	every := []model.ErrorKind{
		model.KindInvalidLink, model.KindPlaylistUnsupported, model.KindMetadataFetchFailed,
		model.KindNoSuitableFormat, model.KindToolMissing, model.KindDirectoryCreationFailed,
		model.KindTransferFailed, model.KindInterrupted, model.KindOutputLocked,
	}
	for _, kind := range every {
		if hint := retryHint(kind); !strings.Contains(hint, "run the command again") && !strings.Contains(hint, "retry the same command") {
			t.Fatalf("%s: hint does not ask for a retry: %q", kind, hint)
		}
	}
}
