package formats

import (
	"fmt"

	"ytgrab/internal/model"
)

var ErrNoSuitableFormat = &model.Error{Kind: model.KindNoSuitableFormat}

// SelectBest picks the format to transfer. Audio-only requests take the
// audio-only format with the highest bitrate; everything else takes the muxed
// format with the highest quality rank. Ties keep the earliest candidate.
func SelectBest(fs []model.FormatDescriptor, audioOnly bool) (model.FormatDescriptor, error) {
	if audioOnly {
		candidates := AudioOnly(fs)
		if len(candidates) == 0 {
			return model.FormatDescriptor{}, model.Errorf(model.KindNoSuitableFormat,
				"no audio-only format available among %d formats", len(fs)).
				WithGuidance("try again without --audio-only")
		}
		best := candidates[0]
		for _, f := range candidates[1:] {
			if betterAudio(f, best) {
				best = f
			}
		}
		return best, nil
	}

	candidates := Muxed(fs)
	if len(candidates) == 0 {
		return model.FormatDescriptor{}, model.Errorf(model.KindNoSuitableFormat,
			"no progressive (audio+video) format available among %d formats", len(fs)).
			WithGuidance("try --audio-only, or run `ytgrab formats <url>` to inspect what is offered")
	}
	best := candidates[0]
	for _, f := range candidates[1:] {
		if f.QualityRank > best.QualityRank {
			best = f
		}
	}
	return best, nil
}

func betterAudio(f, best model.FormatDescriptor) bool {
	if f.AudioBitrate != best.AudioBitrate {
		return f.AudioBitrate > best.AudioBitrate
	}
	return f.QualityRank > best.QualityRank
}

func Muxed(fs []model.FormatDescriptor) []model.FormatDescriptor {
	out := make([]model.FormatDescriptor, 0, len(fs))
	for _, f := range fs {
		if f.IsMuxed() {
			out = append(out, f)
		}
	}
	return out
}

func AudioOnly(fs []model.FormatDescriptor) []model.FormatDescriptor {
	out := make([]model.FormatDescriptor, 0, len(fs))
	for _, f := range fs {
		if f.IsAudioOnly() {
			out = append(out, f)
		}
	}
	return out
}

// Describe renders a one-line summary used in logs and the formats listing.
func Describe(f model.FormatDescriptor) string {
	kind := "muxed"
	switch {
	case f.IsAudioOnly():
		kind = "audio"
	case f.HasVideo && !f.HasAudio:
		kind = "video"
	}
	quality := fmt.Sprintf("%dp", f.QualityRank)
	if kind == "audio" {
		quality = fmt.Sprintf("%.0fk", f.AudioBitrate)
	}
	out := fmt.Sprintf("%s %s %s", f.ID, kind, quality)
	if f.Ext != "" {
		out += " " + f.Ext
	}
	return out
}
