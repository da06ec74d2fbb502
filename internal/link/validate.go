package link

import (
	"fmt"
	"net/url"
	"strings"

	"ytgrab/internal/model"
)

type Classification string

const (
	Valid         Classification = "valid"
	InvalidFormat Classification = "invalid_format"
	IsPlaylist    Classification = "playlist"
)

type Result struct {
	Class  Classification
	Ref    model.VideoRef
	Reason string
}

var watchHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

var shortHosts = map[string]bool{
	"youtu.be":     true,
	"www.youtu.be": true,
}

// Validate classifies raw as a single video, a playlist or an invalid link.
// Any URL carrying a list parameter is a playlist, even when it also names a
// video.
func Validate(raw string) Result {
	s := strings.TrimSpace(raw)
	if s == "" {
		return invalid("empty link")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return invalid("unparseable link")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return invalid(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	q := u.Query()
	if q.Has("list") {
		return Result{Class: IsPlaylist, Reason: "link refers to a playlist"}
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case watchHosts[host]:
		if strings.TrimSuffix(u.Path, "/") != "/watch" {
			return invalid("not a watch link")
		}
		id = q.Get("v")
	case shortHosts[host]:
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) != 1 {
			return invalid("short link must have exactly one path segment")
		}
		id = segments[0]
	default:
		return invalid(fmt.Sprintf("unsupported host %q", host))
	}

	ref, err := model.NewVideoRef(id)
	if err != nil {
		return invalid("missing or malformed video id")
	}
	return Result{Class: Valid, Ref: ref}
}

func invalid(reason string) Result {
	return Result{Class: InvalidFormat, Reason: reason}
}

// Err returns nil for a valid link and the matching typed error otherwise.
func (r Result) Err() error {
	switch r.Class {
	case Valid:
		return nil
	case IsPlaylist:
		return model.Errorf(model.KindPlaylistUnsupported,
			"playlists are not supported; pass a link to a single video").
			WithGuidance("remove the list= parameter or use the video's own watch link")
	default:
		msg := "invalid video link"
		if r.Reason != "" {
			msg += ": " + r.Reason
		}
		return model.Errorf(model.KindInvalidLink, "%s", msg).
			WithGuidance("expected https://www.youtube.com/watch?v=<id> or https://youtu.be/<id>")
	}
}
