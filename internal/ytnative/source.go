// Package ytnative reads video metadata directly from YouTube without
// spawning yt-dlp. Format ids are itags, which yt-dlp accepts unchanged for
// the transfer step.
package ytnative

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ytgrab/internal/model"

	"github.com/kkdai/youtube/v2"
)

type Source struct {
	client *youtube.Client
}

func New(timeout time.Duration) *Source {
	return &Source{
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: timeout},
		},
	}
}

func (s *Source) FetchMetadata(ctx context.Context, ref model.VideoRef) (model.VideoMetadata, error) {
	slog.Info("retrieving metadata", slog.String("url", ref.URL()), slog.String("backend", "native"))
	video, err := s.client.GetVideoContext(ctx, ref.ID())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return model.VideoMetadata{}, model.NewError(model.KindInterrupted, "metadata fetch interrupted", err)
		}
		return model.VideoMetadata{}, model.NewError(model.KindMetadataFetchFailed, "could not read video metadata", err).
			WithGuidance(guidanceFor(err))
	}
	return FromVideo(video)
}

func guidanceFor(err error) string {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired), errors.Is(err, youtube.ErrVideoPrivate):
		return "the video needs a signed-in account, which ytgrab does not support"
	case errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return "retry with --metadata ytdlp"
	default:
		return "retry the same command, or switch to --metadata ytdlp"
	}
}

// FromVideo converts a decoded video into VideoMetadata.
func FromVideo(video *youtube.Video) (model.VideoMetadata, error) {
	if video == nil || strings.TrimSpace(video.Title) == "" {
		return model.VideoMetadata{}, model.Errorf(model.KindMetadataFetchFailed, "metadata is missing the video title")
	}
	out := model.VideoMetadata{
		ID:       video.ID,
		Title:    strings.TrimSpace(video.Title),
		Duration: video.Duration.Seconds(),
		Formats:  make([]model.FormatDescriptor, 0, len(video.Formats)),
	}
	for _, f := range video.Formats {
		if d, ok := convertFormat(f); ok {
			out.Formats = append(out.Formats, d)
		}
	}
	if len(out.Formats) == 0 {
		return model.VideoMetadata{}, model.Errorf(model.KindMetadataFetchFailed, "metadata lists no downloadable formats")
	}
	return out, nil
}

func convertFormat(f youtube.Format) (model.FormatDescriptor, bool) {
	mime := strings.ToLower(f.MimeType)
	hasVideo := strings.HasPrefix(mime, "video/")
	hasAudio := f.AudioChannels > 0 || strings.HasPrefix(mime, "audio/")
	if f.ItagNo <= 0 || (!hasVideo && !hasAudio) {
		return model.FormatDescriptor{}, false
	}

	d := model.FormatDescriptor{
		ID:              strconv.Itoa(f.ItagNo),
		Ext:             extFromMime(mime),
		HasVideo:        hasVideo,
		HasAudio:        hasAudio,
		ApproxSizeBytes: f.ContentLength,
		Note:            f.QualityLabel,
	}
	bitrate := f.AverageBitrate
	if bitrate <= 0 {
		bitrate = f.Bitrate
	}
	if hasAudio && !hasVideo {
		d.AudioBitrate = float64(bitrate) / 1000
		d.QualityRank = int(math.Round(d.AudioBitrate))
		d.Note = f.AudioQuality
	} else {
		d.QualityRank = f.Height
	}
	return d, true
}

func extFromMime(mime string) string {
	_, rest, ok := strings.Cut(mime, "/")
	if !ok {
		return ""
	}
	sub, _, _ := strings.Cut(rest, ";")
	sub = strings.TrimSpace(sub)
	if sub == "mp4" && strings.HasPrefix(mime, "audio/") {
		return "m4a"
	}
	return sub
}
