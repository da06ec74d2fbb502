package doctor

import (
	"os"
	"strings"

	"ytgrab/internal/config"
	"ytgrab/internal/runstore"
	"ytgrab/internal/ytdlp"
)

type Options struct {
	BinaryPath string
	OutputDir  string
	ConfigPath string
}

type Result struct {
	OK     bool    `json:"ok"`
	Checks []Check `json:"checks"`
}

type Check struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Required bool   `json:"required"`
	Message  string `json:"message"`
	Guidance string `json:"guidance,omitempty"`
}

// Run checks the tools and directories a download needs. ffmpeg is reported
// but only audio-only downloads require it, so its absence does not fail the
// result.
func Run(opts Options) Result {
	checks := make([]Check, 0, 4)
	dep := ytdlp.DependencyStatus(opts.BinaryPath)
	ytdlpName := strings.TrimSpace(opts.BinaryPath)
	if ytdlpName == "" {
		ytdlpName = ytdlp.DefaultBinary
	}
	checks = append(checks, Check{
		Name:     "dependency:yt-dlp",
		OK:       dep.YTDLPFound,
		Required: true,
		Message:  dependencyMessage(dep.YTDLPFound, dep.YTDLPPath, ytdlpName),
		Guidance: guidanceIf(!dep.YTDLPFound, ytdlp.YTDLPInstallGuidance),
	})
	checks = append(checks, Check{
		Name:     "dependency:ffmpeg",
		OK:       dep.FFmpegFound,
		Message:  dependencyMessage(dep.FFmpegFound, dep.FFmpegPath, "ffmpeg") + " (needed for --audio-only)",
		Guidance: guidanceIf(!dep.FFmpegFound, ytdlp.FFmpegInstallGuidance),
	})

	outOK, outMessage := ensureWritableDir(opts.OutputDir)
	checks = append(checks, Check{
		Name:     "directory:output",
		OK:       outOK,
		Required: true,
		Message:  outMessage,
	})

	cfgOK, cfgMessage := checkConfig(opts.ConfigPath)
	checks = append(checks, Check{
		Name:     "config",
		OK:       cfgOK,
		Required: true,
		Message:  cfgMessage,
	})

	ok := true
	for _, c := range checks {
		if c.Required && !c.OK {
			ok = false
			break
		}
	}
	return Result{OK: ok, Checks: checks}
}

func dependencyMessage(ok bool, path, name string) string {
	if ok {
		return name + " found at " + path
	}
	return name + " not found on PATH"
}

func guidanceIf(cond bool, guidance string) string {
	if cond {
		return guidance
	}
	return ""
}

func ensureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := runstore.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, ".ytgrab-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, path + " is writable"
}

func checkConfig(path string) (bool, string) {
	cfg, err := config.Load(path)
	if err != nil {
		return false, err.Error()
	}
	if cfg.Source == "" {
		return true, "no config file, using defaults (" + config.DefaultPath() + ")"
	}
	return true, "loaded " + cfg.Source
}
