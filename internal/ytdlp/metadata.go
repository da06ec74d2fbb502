package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os/exec"
	"strings"
	"time"

	"ytgrab/internal/model"
)

// Client fetches metadata with `yt-dlp -J`.
type Client struct {
	BinaryPath string
	Timeout    time.Duration
}

type rawInfo struct {
	Type     string      `json:"_type"`
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Duration *float64    `json:"duration"`
	Formats  []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Vcodec         string   `json:"vcodec"`
	Acodec         string   `json:"acodec"`
	Height         *int     `json:"height"`
	Abr            *float64 `json:"abr"`
	Tbr            *float64 `json:"tbr"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
	FormatNote     string   `json:"format_note"`
	Protocol       string   `json:"protocol"`
}

func (c *Client) FetchMetadata(ctx context.Context, ref model.VideoRef) (model.VideoMetadata, error) {
	bin, err := resolveBinary(c.BinaryPath)
	if err != nil {
		return model.VideoMetadata{}, err
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, "-J", "--no-playlist", "--no-warnings", "--", ref.URL())
	configureProcess(cmd)
	cmd.WaitDelay = waitDelay
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Info("retrieving metadata", slog.String("url", ref.URL()))
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return model.VideoMetadata{}, model.NewError(model.KindToolMissing, "cannot start "+bin, err).
				WithGuidance(YTDLPInstallGuidance)
		}
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return model.VideoMetadata{}, model.NewError(model.KindInterrupted, "metadata fetch interrupted", ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return model.VideoMetadata{}, model.NewError(model.KindMetadataFetchFailed, "yt-dlp could not read video metadata", err)
	}
	return DecodeMetadata(stdout.Bytes())
}

// DecodeMetadata converts a yt-dlp info JSON document into VideoMetadata.
// Entries that carry neither audio nor video (storyboards, manifests) are
// dropped.
func DecodeMetadata(data []byte) (model.VideoMetadata, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return model.VideoMetadata{}, model.Errorf(model.KindMetadataFetchFailed, "yt-dlp returned empty output")
	}
	var info rawInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return model.VideoMetadata{}, model.NewError(model.KindMetadataFetchFailed, "malformed metadata from yt-dlp", err)
	}
	if info.Type == "playlist" {
		return model.VideoMetadata{}, model.Errorf(model.KindMetadataFetchFailed, "yt-dlp returned a playlist instead of a single video")
	}
	title := strings.TrimSpace(info.Title)
	if title == "" {
		return model.VideoMetadata{}, model.Errorf(model.KindMetadataFetchFailed, "metadata is missing the video title")
	}

	var duration float64
	if info.Duration != nil && *info.Duration > 0 {
		duration = *info.Duration
	}
	out := model.VideoMetadata{
		ID:       info.ID,
		Title:    title,
		Duration: duration,
		Formats:  make([]model.FormatDescriptor, 0, len(info.Formats)),
	}
	for _, f := range info.Formats {
		if d, ok := convertFormat(f, duration); ok {
			out.Formats = append(out.Formats, d)
		}
	}
	if len(out.Formats) == 0 {
		return model.VideoMetadata{}, model.Errorf(model.KindMetadataFetchFailed, "metadata lists no downloadable formats")
	}
	return out, nil
}

func convertFormat(f rawFormat, duration float64) (model.FormatDescriptor, bool) {
	id := strings.TrimSpace(f.FormatID)
	hasVideo := hasCodec(f.Vcodec)
	hasAudio := hasCodec(f.Acodec)
	if id == "" || (!hasVideo && !hasAudio) || f.Protocol == "mhtml" {
		return model.FormatDescriptor{}, false
	}

	d := model.FormatDescriptor{
		ID:       id,
		Ext:      f.Ext,
		HasVideo: hasVideo,
		HasAudio: hasAudio,
		Note:     f.FormatNote,
	}
	if hasAudio {
		switch {
		case f.Abr != nil && *f.Abr > 0:
			d.AudioBitrate = *f.Abr
		case !hasVideo && f.Tbr != nil && *f.Tbr > 0:
			d.AudioBitrate = *f.Tbr
		}
	}
	if hasVideo {
		if f.Height != nil {
			d.QualityRank = *f.Height
		}
	} else {
		d.QualityRank = int(math.Round(d.AudioBitrate))
	}

	d.ApproxSizeBytes = firstPositive(f.Filesize, f.FilesizeApprox)
	if d.ApproxSizeBytes <= 0 && f.Tbr != nil {
		d.ApproxSizeBytes = estimateBytesFromBitrate(duration, *f.Tbr)
	}
	return d, true
}

func hasCodec(codec string) bool {
	c := strings.TrimSpace(strings.ToLower(codec))
	return c != "" && c != "none"
}

// estimateBytesFromBitrate uses the total bitrate in kbit/s.
func estimateBytesFromBitrate(durationSec, kbps float64) int64 {
	if durationSec <= 0 || kbps <= 0 {
		return 0
	}
	bits := durationSec * kbps * 1000
	return int64(math.Round(bits / 8.0))
}

func firstPositive(values ...*float64) int64 {
	for _, v := range values {
		if v == nil || *v <= 0 {
			continue
		}
		return int64(math.Round(*v))
	}
	return 0
}
