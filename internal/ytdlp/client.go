package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ytgrab/internal/model"
	"ytgrab/internal/runstore"

	"github.com/alessio/shellescape"
	"golang.org/x/sync/errgroup"
)

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

const (
	DefaultBinary = "yt-dlp"
	ffmpegBinary  = "ffmpeg"

	// ProgressTemplate makes yt-dlp print one machine-readable line per update:
	// percent, downloaded bytes, total bytes and ETA seconds ("NA" when unknown).
	ProgressTemplate = "download:[download] %(progress._percent_str)s %(progress.downloaded_bytes)s %(progress.total_bytes,progress.total_bytes_estimate)s %(progress.eta)s"

	YTDLPInstallGuidance = "install yt-dlp and make sure it is on PATH:\n" +
		"  macOS:         brew install yt-dlp\n" +
		"  Debian/Ubuntu: sudo apt install yt-dlp\n" +
		"  Windows:       winget install yt-dlp  (or: choco install yt-dlp)\n" +
		"  any platform:  pip install -U yt-dlp"
	FFmpegInstallGuidance = "audio extraction needs ffmpeg on PATH:\n" +
		"  macOS:         brew install ffmpeg\n" +
		"  Debian/Ubuntu: sudo apt install ffmpeg\n" +
		"  Windows:       winget install ffmpeg  (or: choco install ffmpeg)\n" +
		"  downloads:     https://ffmpeg.org/download.html"

	waitDelay = 5 * time.Second
)

var (
	errStalled = errors.New("yt-dlp produced no output")
	errTimeout = errors.New("yt-dlp exceeded the transfer timeout")
)

// Driver runs one yt-dlp transfer and supervises it until exit.
type Driver struct {
	BinaryPath   string
	Timeout      time.Duration
	StallTimeout time.Duration
	LogWriter    io.Writer
	EchoOutput   bool
	Stdout       io.Writer
	Stderr       io.Writer
}

type DependencyReport struct {
	YTDLPFound  bool   `json:"yt_dlp_found"`
	YTDLPPath   string `json:"yt_dlp_path,omitempty"`
	FFmpegFound bool   `json:"ffmpeg_found"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
}

func DependencyStatus(binary string) DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath(binaryOrDefault(binary)); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
	}
	if path, err := exec.LookPath(ffmpegBinary); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	return report
}

func binaryOrDefault(binary string) string {
	if b := strings.TrimSpace(binary); b != "" {
		return b
	}
	return DefaultBinary
}

func resolveBinary(binary string) (string, error) {
	name := binaryOrDefault(binary)
	path, err := exec.LookPath(name)
	if err != nil {
		return "", model.NewError(model.KindToolMissing, fmt.Sprintf("%s was not found", name), err).
			WithGuidance(YTDLPInstallGuidance)
	}
	return path, nil
}

// DownloadArgs builds the yt-dlp argument list for one transfer. The output
// extension is left to yt-dlp through %(ext)s; the post-processing flags make
// the final container match outputPath.
func DownloadArgs(req model.DownloadRequest, format model.FormatDescriptor, outputPath string, withProgress bool) []string {
	dir, file := filepath.Split(outputPath)
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	tmpl := strings.ReplaceAll(dir, "%", "%%") + stem + ".%(ext)s"

	args := []string{
		"--no-playlist",
		"-f", format.ID,
		"-o", tmpl,
	}
	if req.AudioOnly {
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", "0")
	} else {
		args = append(args, "--remux-video", "mp4")
	}
	if withProgress {
		args = append(args,
			"--newline",
			"--no-colors",
			"--progress",
			"--progress-template", ProgressTemplate,
		)
	}
	return append(args, "--", req.Ref.URL())
}

// Fetch creates the output directory, starts yt-dlp and blocks until it
// exits. Every stdout line is handed to onLine in arrival order. Partial
// output is left on disk on failure.
func (d *Driver) Fetch(ctx context.Context, req model.DownloadRequest, format model.FormatDescriptor, outputPath string, onLine func(string)) error {
	dir := filepath.Dir(outputPath)
	if err := runstore.Mkdir(dir); err != nil {
		return model.NewError(model.KindDirectoryCreationFailed, "cannot create output directory "+dir, err).
			WithGuidance("check permissions or pass a different --output-dir")
	}

	bin, err := resolveBinary(d.BinaryPath)
	if err != nil {
		return err
	}
	if req.AudioOnly {
		if _, err := exec.LookPath(ffmpegBinary); err != nil {
			return model.NewError(model.KindToolMissing, "ffmpeg was not found", err).
				WithGuidance(FFmpegInstallGuidance)
		}
	}

	args := DownloadArgs(req, format, outputPath, onLine != nil)
	slog.Debug("starting yt-dlp",
		slog.String("command", shellescape.QuoteCommand(append([]string{bin}, args...))),
		slog.String("format", format.ID),
	)
	return d.run(ctx, bin, args, onLine)
}

func (d *Driver) run(parent context.Context, bin string, args []string, onLine func(string)) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)
	if d.Timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeoutCause(ctx, d.Timeout, errTimeout)
		defer stop()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	configureProcess(cmd)
	cmd.WaitDelay = waitDelay

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return model.NewError(model.KindToolMissing, "cannot start "+bin, err).
				WithGuidance(YTDLPInstallGuidance)
		}
		return model.NewError(model.KindTransferFailed, "cannot start "+bin, err)
	}

	var outBuf strings.Builder
	var errBuf strings.Builder
	var mu sync.Mutex

	var watchdog *time.Timer
	if d.StallTimeout > 0 {
		watchdog = time.AfterFunc(d.StallTimeout, func() { cancel(errStalled) })
		defer watchdog.Stop()
	}

	read := func(stream OutputStream, r io.Reader, echoW io.Writer) func() error {
		return func() error {
			scanner := bufio.NewScanner(r)
			buf := make([]byte, 0, 64*1024)
			scanner.Buffer(buf, 1024*1024)
			scanner.Split(splitByNewlineOrCR)
			for scanner.Scan() {
				line := scanner.Text()
				mu.Lock()
				if watchdog != nil {
					watchdog.Reset(d.StallTimeout)
				}
				appendLimited(&outBuf, &errBuf, stream, line)
				if d.LogWriter != nil {
					_, _ = io.WriteString(d.LogWriter, line+"\n")
				}
				mu.Unlock()

				if d.EchoOutput && echoW != nil {
					_, _ = io.WriteString(echoW, line+"\n")
				}
				switch stream {
				case StreamStdout:
					if onLine != nil {
						onLine(line)
					}
				case StreamStderr:
					slog.Debug("yt-dlp stderr", slog.String("line", line))
				}
			}
			if err := scanner.Err(); err != nil {
				// keep draining so the child never blocks on a full pipe
				_, _ = io.Copy(io.Discard, r)
				return fmt.Errorf("read yt-dlp %s: %w", stream, err)
			}
			return nil
		}
	}

	var g errgroup.Group
	g.Go(read(StreamStdout, stdoutPipe, d.Stdout))
	g.Go(read(StreamStderr, stderrPipe, d.Stderr))
	readErr := g.Wait()
	waitErr := cmd.Wait()

	mu.Lock()
	diag := strings.TrimSpace(errBuf.String())
	if diag == "" {
		diag = strings.TrimSpace(outBuf.String())
	}
	mu.Unlock()
	if err := d.exitError(context.Cause(ctx), waitErr, diag); err != nil {
		return err
	}
	if readErr != nil {
		return model.NewError(model.KindTransferFailed, "yt-dlp output could not be read", readErr)
	}
	return nil
}

// exitError classifies how yt-dlp ended. A clean exit is success even when a
// deadline or the watchdog fired at the same moment.
func (d *Driver) exitError(cause, waitErr error, diag string) error {
	if waitErr == nil {
		return nil
	}
	switch {
	case errors.Is(cause, errStalled):
		return model.NewError(model.KindTransferFailed,
			fmt.Sprintf("yt-dlp stalled: no output for %s", d.StallTimeout), cause).
			WithGuidance("the connection may have dropped; retry the same command")
	case errors.Is(cause, errTimeout):
		return model.NewError(model.KindTransferFailed,
			fmt.Sprintf("yt-dlp did not finish within %s", d.Timeout), cause).
			WithGuidance("raise --timeout or set it to 0 to disable the limit")
	case cause != nil:
		return model.NewError(model.KindInterrupted, "download interrupted", cause)
	}
	if isDependencyError(diag) {
		return model.NewError(model.KindToolMissing, "yt-dlp could not post-process the download",
			fmt.Errorf("%w\n%s", waitErr, diag)).WithGuidance(FFmpegInstallGuidance)
	}
	if diag == "" {
		return model.NewError(model.KindTransferFailed, "yt-dlp failed", waitErr)
	}
	return model.NewError(model.KindTransferFailed, "yt-dlp failed", fmt.Errorf("%w\n%s", waitErr, diag))
}

func isDependencyError(s string) bool {
	text := strings.ToLower(s)
	hints := []string{
		"ffmpeg not found",
		"ffmpeg could not be found",
		"ffprobe could not be found",
		"ffprobe and ffmpeg not found",
	}
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}

// splitByNewlineOrCR yields lines terminated by \n or \r. Runs of separators
// are consumed with the next line, never returned on their own: a nil token
// after EOF ends bufio.Scanner and drops what is still buffered.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isLineBreak(data[start]) {
		start++
	}
	for i := start; i < len(data); i++ {
		if isLineBreak(data[i]) {
			return i + 1, data[start:i], nil
		}
	}
	if atEOF {
		if start < len(data) {
			return len(data), data[start:], nil
		}
		return len(data), nil, nil
	}
	return start, nil, nil
}

func isLineBreak(b byte) bool {
	return b == '\n' || b == '\r'
}

func appendLimited(outBuf, errBuf *strings.Builder, stream OutputStream, line string) {
	const maxKeep = 8192
	b := outBuf
	if stream == StreamStderr {
		b = errBuf
	}
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	remain := maxKeep - b.Len()
	if len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
