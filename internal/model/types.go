package model

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// VideoRef identifies one validated video. The zero value is not a usable
// reference; values come from NewVideoRef, which link.Validate calls after
// classifying the raw input.
type VideoRef struct {
	id string
}

func NewVideoRef(id string) (VideoRef, error) {
	if !IsVideoID(id) {
		return VideoRef{}, fmt.Errorf("invalid video id %q", id)
	}
	return VideoRef{id: id}, nil
}

// IsVideoID reports whether id is non-empty and uses only [A-Za-z0-9_-].
func IsVideoID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

func (r VideoRef) ID() string   { return r.id }
func (r VideoRef) IsZero() bool { return r.id == "" }

// URL returns the canonical watch URL. Tracking parameters and alternate hosts
// from the original input are not preserved.
func (r VideoRef) URL() string {
	if r.id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(r.id)
}

func (r VideoRef) String() string { return r.URL() }

type VideoMetadata struct {
	ID       string             `json:"id,omitempty"`
	Title    string             `json:"title"`
	Duration float64            `json:"duration_seconds,omitempty"`
	Formats  []FormatDescriptor `json:"formats"`
}

type FormatDescriptor struct {
	ID              string  `json:"id"`
	Ext             string  `json:"ext,omitempty"`
	HasVideo        bool    `json:"has_video"`
	HasAudio        bool    `json:"has_audio"`
	QualityRank     int     `json:"quality_rank"`
	AudioBitrate    float64 `json:"audio_bitrate_kbps,omitempty"`
	ApproxSizeBytes int64   `json:"approx_size_bytes,omitempty"`
	Note            string  `json:"note,omitempty"`
}

func (f FormatDescriptor) IsMuxed() bool     { return f.HasVideo && f.HasAudio }
func (f FormatDescriptor) IsAudioOnly() bool { return f.HasAudio && !f.HasVideo }

type DownloadRequest struct {
	Ref       VideoRef
	OutputDir string
	AudioOnly bool
}

func NewDownloadRequest(ref VideoRef, outputDir string, audioOnly bool) (DownloadRequest, error) {
	if ref.IsZero() {
		return DownloadRequest{}, fmt.Errorf("download request requires a validated video reference")
	}
	if !filepath.IsAbs(outputDir) {
		return DownloadRequest{}, fmt.Errorf("output directory must be absolute: %q", outputDir)
	}
	return DownloadRequest{Ref: ref, OutputDir: filepath.Clean(outputDir), AudioOnly: audioOnly}, nil
}

// Extension is the container the finished file ends up in.
func (r DownloadRequest) Extension() string {
	if r.AudioOnly {
		return "mp3"
	}
	return "mp4"
}

const (
	PhasePreparing      = "preparing"
	PhaseDownloading    = "downloading"
	PhasePostprocessing = "postprocessing"
	PhaseDone           = "done"
)

// ProgressUnits is the absolute position of a completed transfer.
const ProgressUnits = 10000

type ProgressState struct {
	Percent          float64 `json:"percent"`
	Units            int     `json:"units"`
	TransferredBytes int64   `json:"transferred_bytes,omitempty"`
	TotalBytes       int64   `json:"total_bytes,omitempty"`
	ETASeconds       int     `json:"eta_seconds"`
	Phase            string  `json:"phase,omitempty"`
}

type Outcome struct {
	AttemptID  string            `json:"attempt_id"`
	URL        string            `json:"url"`
	State      State             `json:"state"`
	History    []State           `json:"history,omitempty"`
	Title      string            `json:"title,omitempty"`
	Format     *FormatDescriptor `json:"format,omitempty"`
	OutputPath string            `json:"output_path,omitempty"`
	Kind       ErrorKind         `json:"error_kind,omitempty"`
	Message    string            `json:"message,omitempty"`
	Guidance   string            `json:"guidance,omitempty"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at"`
}

func (o Outcome) Succeeded() bool {
	return o.Kind == "" && o.State == StateCompleted
}
