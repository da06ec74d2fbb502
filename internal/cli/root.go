package cli

import (
	"fmt"
	"strings"
)

// Version is overridden at build time with -ldflags "-X ytgrab/internal/cli.Version=...".
var Version = "dev"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "download":
		return runDownload(args[1:])
	case "formats":
		return runFormats(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "config":
		return runConfig(args[1:])
	case "version", "--version":
		fmt.Println("ytgrab " + Version)
		return nil
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	}
	if !strings.HasPrefix(args[0], "-") && !looksLikeLink(args[0]) {
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return runDownload(args)
}

// looksLikeLink lets `ytgrab <url>` work without the download subcommand.
func looksLikeLink(arg string) bool {
	return strings.Contains(arg, ".") || strings.Contains(arg, "/")
}

func printRootUsage() {
	fmt.Println("ytgrab: download a single YouTube video (or its audio) with yt-dlp")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ytgrab [flags] <url>")
	fmt.Println("  ytgrab download [flags] <url>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  download  fetch metadata, pick the best stream and download it (default)")
	fmt.Println("  formats   list the streams of a video and the pick for each mode")
	fmt.Println("  doctor    check yt-dlp, ffmpeg, the output directory and the config file")
	fmt.Println("  config    print the effective config (--init writes a default file)")
	fmt.Println("  version   print the version")
	fmt.Println()
	fmt.Println("Common flags:")
	fmt.Println("  -o, --output-dir <dir>  where to save the file (default ~/Downloads or .)")
	fmt.Println("  -a, --audio-only        extract audio as mp3 (needs ffmpeg)")
	fmt.Println("      --progress <mode>   auto|tui|plain|none")
	fmt.Println("      --json              print JSON output")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Playlists are not supported; pass a single watch or youtu.be link")
	fmt.Println("  - Settings are read from " + "$XDG_CONFIG_HOME/ytgrab/config.yml and YTGRAB_* env vars")
}
