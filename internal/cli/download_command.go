package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ytgrab/internal/config"
	"ytgrab/internal/download"
	"ytgrab/internal/model"
	"ytgrab/internal/pathutil"
	"ytgrab/internal/progress"
	"ytgrab/internal/runstore"
	"ytgrab/internal/ytdlp"
	"ytgrab/internal/ytnative"

	flag "github.com/spf13/pflag"
)

func addSourceFlags(fs *flag.FlagSet) {
	fs.String("metadata", config.BackendYTDLP, "metadata backend: ytdlp|native")
	fs.String("downloader", ytdlp.DefaultBinary, "yt-dlp executable name or path")
	fs.Duration("timeout", 0, "abort the yt-dlp transfer after this long (0 = no limit)")
	fs.Duration("metadata-timeout", config.Defaults().MetadataTimeout, "abort the metadata fetch after this long (0 = no limit)")
	fs.String("config", "", "config file (default "+config.DefaultPath()+")")
	fs.BoolP("verbose", "v", false, "debug logging on stderr")
}

func runDownload(args []string) error {
	fs := newFlagSet("download")
	fs.StringP("output-dir", "o", "", "output directory (default ~/Downloads, else .)")
	audioOnly := fs.BoolP("audio-only", "a", false, "download audio only and convert to mp3")
	fs.String("progress", progress.ModeAuto, "progress display: auto|tui|plain|none")
	fs.Duration("stall-timeout", 0, "abort when yt-dlp prints nothing for this long (0 = never)")
	rawOutput := fs.Bool("raw-output", false, "print raw yt-dlp output lines instead of the progress display")
	fs.String("log-file", "", "append the raw yt-dlp transcript to this file")
	reportPath := fs.String("report", "", "write the outcome as JSON to this path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	addSourceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rawURL, err := singleArg(fs, "video URL")
	if err != nil {
		return err
	}
	configPath, _ := fs.GetString("config")
	cfg, err := loadConfig(fs, configPath)
	if err != nil {
		return err
	}
	if err := setupLogging(os.Stderr, cfg.LogLevel); err != nil {
		return err
	}

	outputDir, err := pathutil.ResolveOutputDir(cfg.OutputDir)
	if err != nil {
		return err
	}

	mode := cfg.Progress
	if *rawOutput {
		mode = progress.ModeNone
	}
	sink, err := progress.NewSink(mode, os.Stderr)
	if err != nil {
		return err
	}

	driver := &ytdlp.Driver{
		BinaryPath:   cfg.DownloaderPath,
		Timeout:      cfg.Timeout,
		StallTimeout: cfg.StallTimeout,
		EchoOutput:   *rawOutput,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
	}
	if *jsonOut {
		driver.Stdout = os.Stderr
	}
	if strings.TrimSpace(cfg.LogFile) != "" {
		logFile, err := openLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer logFile.Close()
		driver.LogWriter = logFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := &download.Engine{
		Metadata: newMetadataSource(cfg),
		Fetcher:  driver,
		Sink:     sink,
	}
	outcome := engine.Run(ctx, download.Options{
		URL:       rawURL,
		OutputDir: outputDir,
		AudioOnly: *audioOnly,
	})

	if p := strings.TrimSpace(*reportPath); p != "" {
		if err := runstore.WriteReport(p, outcome); err != nil {
			slog.Warn("write report", slog.String("path", p), slog.Any("error", err))
		}
	}

	if *jsonOut {
		if err := printJSON(outcome); err != nil {
			return err
		}
	} else {
		printOutcome(os.Stdout, outcome)
	}
	if !outcome.Succeeded() {
		return fmt.Errorf("download failed (%s)", outcome.Kind)
	}
	return nil
}

func newMetadataSource(cfg config.Config) download.MetadataSource {
	if cfg.MetadataBackend == config.BackendNative {
		return ytnative.New(cfg.MetadataTimeout)
	}
	return &ytdlp.Client{BinaryPath: cfg.DownloaderPath, Timeout: cfg.MetadataTimeout}
}

func openLogFile(path string) (*os.File, error) {
	p, err := pathutil.ExpandTilde(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	if err := runstore.Mkdir(filepath.Dir(p)); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func printOutcome(w io.Writer, o model.Outcome) {
	if o.Succeeded() {
		what := "video"
		if strings.HasSuffix(o.OutputPath, ".mp3") {
			what = "audio"
		}
		fmt.Fprintf(w, "Downloaded %s to %s\n", what, o.OutputPath)
		return
	}
	fmt.Fprintln(w, download.Summary(o))
	if o.Guidance != "" {
		fmt.Fprintln(w, o.Guidance)
	}
	if hint := retryHint(o.Kind); hint != "" {
		fmt.Fprintln(w, hint)
	}
}

func retryHint(kind model.ErrorKind) string {
	switch kind {
	case model.KindInvalidLink, model.KindPlaylistUnsupported:
		return "Please check the link and run the command again."
	case model.KindToolMissing:
		return "Please retry the same command once the tool is installed."
	case model.KindNoSuitableFormat:
		return "Please retry the same command; if it keeps failing, try --audio-only or `ytgrab formats <url>`."
	default:
		return "Please retry the same command."
	}
}
