package ytdlp

import (
	"context"
	"strings"
	"testing"

	"ytgrab/internal/model"

	"github.com/google/go-cmp/cmp"
)

const sampleInfo = `{
  "_type": "video",
  "id": "xRBAsdx9Ve0",
  "title": "Sample Clip",
  "duration": 100,
  "formats": [
    {"format_id": "sb0", "ext": "mhtml", "vcodec": "none", "acodec": "none", "protocol": "mhtml"},
    {"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "abr": 129.5, "filesize": 1600000},
    {"format_id": "249", "ext": "webm", "vcodec": "none", "acodec": "opus", "tbr": 50.1},
    {"format_id": "18", "ext": "mp4", "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "height": 360, "tbr": 500, "filesize_approx": 6000000},
    {"format_id": "137", "ext": "mp4", "vcodec": "avc1.640028", "acodec": "none", "height": 1080, "tbr": 4000}
  ]
}`

func TestDecodeMetadata(t *testing.T) {
	got, err := DecodeMetadata([]byte(sampleInfo))
	if err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}
	want := model.VideoMetadata{
		ID:       "xRBAsdx9Ve0",
		Title:    "Sample Clip",
		Duration: 100,
		Formats: []model.FormatDescriptor{
			{ID: "140", Ext: "m4a", HasAudio: true, AudioBitrate: 129.5, QualityRank: 130, ApproxSizeBytes: 1600000},
			{ID: "249", Ext: "webm", HasAudio: true, AudioBitrate: 50.1, QualityRank: 50, ApproxSizeBytes: 626250},
			{ID: "18", Ext: "mp4", HasVideo: true, HasAudio: true, QualityRank: 360, ApproxSizeBytes: 6000000},
			{ID: "137", Ext: "mp4", HasVideo: true, QualityRank: 1080, ApproxSizeBytes: 50000000},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected metadata (-want +got):\n%s", diff)
	}
}

func TestDecodeMetadata_RejectsIncompleteDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"not json":   "{",
		"no title":   `{"id":"a","formats":[{"format_id":"18","vcodec":"avc1","acodec":"mp4a"}]}`,
		"no formats": `{"id":"a","title":"t","formats":[]}`,
		"only sb":    `{"id":"a","title":"t","formats":[{"format_id":"sb0","vcodec":"none","acodec":"none"}]}`,
		"playlist":   `{"_type":"playlist","id":"PL","title":"t"}`,
	}
	for name, doc := range cases {
		if _, err := DecodeMetadata([]byte(doc)); model.KindOf(err) != model.KindMetadataFetchFailed {
			t.Fatalf("%s: expected MetadataFetchFailed, got %v", name, err)
		}
	}
}

func TestClientFetchMetadata_UsesYTDLP(t *testing.T) {
	installFakeTools(t, `#!/usr/bin/env bash
set -euo pipefail
if [ "$1" != "-J" ]; then
  echo "unexpected args: $*" >&2
  exit 3
fi
cat <<'JSON'
`+sampleInfo+`
JSON
`, false)

	ref, _ := model.NewVideoRef("xRBAsdx9Ve0")
	meta, err := (&Client{}).FetchMetadata(context.Background(), ref)
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if meta.Title != "Sample Clip" || len(meta.Formats) != 4 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestClientFetchMetadata_Failures(t *testing.T) {
	installFakeTools(t, `#!/usr/bin/env bash
echo "ERROR: Video unavailable" >&2
exit 1
`, false)
	ref, _ := model.NewVideoRef("gone")
	_, err := (&Client{}).FetchMetadata(context.Background(), ref)
	if model.KindOf(err) != model.KindMetadataFetchFailed || !strings.Contains(err.Error(), "Video unavailable") {
		t.Fatalf("expected MetadataFetchFailed with stderr, got %v", err)
	}

	t.Setenv("PATH", t.TempDir())
	_, err = (&Client{}).FetchMetadata(context.Background(), ref)
	if model.KindOf(err) != model.KindToolMissing {
		t.Fatalf("expected ToolMissing, got %v", err)
	}
}

func TestDependencyStatus(t *testing.T) {
	installFakeTools(t, "#!/bin/sh\nexit 0\n", true)
	report := DependencyStatus("")
	if !report.YTDLPFound || !report.FFmpegFound {
		t.Fatalf("expected both tools found: %+v", report)
	}
	if report := DependencyStatus("definitely-not-installed-ytdlp"); report.YTDLPFound {
		t.Fatalf("unexpected yt-dlp match: %+v", report)
	}
}
