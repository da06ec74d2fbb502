package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ytgrab/internal/formats"
	"ytgrab/internal/link"
	"ytgrab/internal/model"
	"ytgrab/internal/pathutil"
	"ytgrab/internal/progress"
	"ytgrab/internal/runstore"

	"github.com/google/uuid"
)

type MetadataSource interface {
	FetchMetadata(ctx context.Context, ref model.VideoRef) (model.VideoMetadata, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, req model.DownloadRequest, format model.FormatDescriptor, outputPath string, onLine func(string)) error
}

type Options struct {
	URL       string
	OutputDir string
	AudioOnly bool
}

// Engine runs one download attempt from raw link to a terminal Outcome.
type Engine struct {
	Metadata MetadataSource
	Fetcher  Fetcher
	Sink     progress.Sink
	Now      func() time.Time
}

type attemptRun struct {
	attempt *model.Attempt
	outcome model.Outcome
	log     *slog.Logger
	now     func() time.Time
}

// Run never returns an error: every failure is folded into the Outcome.
func (e *Engine) Run(ctx context.Context, opts Options) model.Outcome {
	now := e.Now
	if now == nil {
		now = time.Now
	}
	id := uuid.NewString()
	r := &attemptRun{
		attempt: model.NewAttempt(id),
		log:     slog.With(slog.String("attempt_id", id)),
		now:     now,
		outcome: model.Outcome{
			AttemptID: id,
			URL:       opts.URL,
			StartedAt: now().UTC().Format(time.RFC3339),
		},
	}

	r.advance(model.StateValidating)
	res := link.Validate(opts.URL)
	if err := res.Err(); err != nil {
		return r.fail(err)
	}
	dir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return r.fail(model.NewError(model.KindDirectoryCreationFailed, "cannot resolve output directory "+opts.OutputDir, err))
	}
	req, err := model.NewDownloadRequest(res.Ref, dir, opts.AudioOnly)
	if err != nil {
		return r.fail(model.NewError(model.KindInvalidLink, "cannot build download request", err))
	}
	r.outcome.URL = req.Ref.URL()

	r.advance(model.StateFetchingMetadata)
	meta, err := e.Metadata.FetchMetadata(ctx, req.Ref)
	if err != nil {
		if model.KindOf(err) == "" {
			err = model.NewError(model.KindMetadataFetchFailed, "could not read video metadata", err)
		}
		return r.fail(err)
	}
	r.outcome.Title = meta.Title
	r.log.Info("metadata fetched", slog.String("title", meta.Title), slog.Int("formats", len(meta.Formats)))

	r.advance(model.StateSelectingFormat)
	selected, err := formats.SelectBest(meta.Formats, req.AudioOnly)
	if err != nil {
		return r.fail(err)
	}
	r.outcome.Format = &selected
	outputPath := OutputPath(req, meta.Title)
	r.outcome.OutputPath = outputPath
	r.log.Info("format selected", slog.String("format", formats.Describe(selected)), slog.String("output", outputPath))

	r.advance(model.StateTransferring)
	lock, err := runstore.AcquireOutputLock(outputPath, id, req.Ref.URL())
	if err != nil {
		return r.fail(err)
	}
	monitor := progress.NewMonitor(e.Sink)
	monitor.Start(meta.Title)
	fetchErr := e.Fetcher.Fetch(ctx, req, selected, outputPath, monitor.OnLine)
	if err := lock.Release(); err != nil {
		r.log.Warn("release output lock", slog.Any("error", err))
	}
	if fetchErr != nil {
		monitor.Clear()
		if model.KindOf(fetchErr) == "" {
			fetchErr = model.NewError(model.KindTransferFailed, "transfer failed", fetchErr)
		}
		return r.fail(fetchErr)
	}
	monitor.Finish()

	if _, err := os.Stat(outputPath); err != nil {
		r.log.Warn("downloader exited cleanly but output file is missing", slog.String("output", outputPath))
	}
	r.advance(model.StateCompleted)
	return r.finish()
}

// OutputPath is {dir}/{sanitized title}.{mp3|mp4}. A title with no usable
// characters falls back to the video id.
func OutputPath(req model.DownloadRequest, title string) string {
	name := pathutil.SanitizeFilename(title)
	if name == "" {
		name = pathutil.SanitizeFilename(req.Ref.ID())
	}
	if name == "" {
		name = "video"
	}
	return filepath.Join(req.OutputDir, name+"."+req.Extension())
}

func (r *attemptRun) advance(to model.State) {
	from := r.attempt.State
	if err := r.attempt.Transition(to); err != nil {
		r.log.Error("state machine violation", slog.Any("error", err))
		return
	}
	r.log.Debug("state transition", slog.String("from", string(from)), slog.String("to", string(to)))
}

func (r *attemptRun) fail(err error) model.Outcome {
	r.advance(model.StateFailed)
	kind := model.KindOf(err)
	if kind == "" {
		kind = model.KindTransferFailed
	}
	r.outcome.Kind = kind
	r.outcome.Message = err.Error()
	r.outcome.Guidance = model.GuidanceOf(err)
	r.log.Warn("download failed", slog.String("kind", string(kind)), slog.Any("error", err))
	return r.finish()
}

func (r *attemptRun) finish() model.Outcome {
	r.outcome.State = r.attempt.State
	r.outcome.History = append([]model.State(nil), r.attempt.History...)
	r.outcome.FinishedAt = r.now().UTC().Format(time.RFC3339)
	return r.outcome
}

// Summary is the one-line human result.
func Summary(o model.Outcome) string {
	if o.Succeeded() {
		return fmt.Sprintf("Downloaded %q to %s", o.Title, o.OutputPath)
	}
	return fmt.Sprintf("Download failed (%s): %s", o.Kind, o.Message)
}
