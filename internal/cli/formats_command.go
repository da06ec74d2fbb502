package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"ytgrab/internal/formats"
	"ytgrab/internal/link"
	"ytgrab/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

type formatsReport struct {
	URL       string                   `json:"url"`
	Title     string                   `json:"title"`
	Duration  float64                  `json:"duration_seconds,omitempty"`
	Muxed     []model.FormatDescriptor `json:"muxed"`
	AudioOnly []model.FormatDescriptor `json:"audio_only"`
	BestVideo *model.FormatDescriptor  `json:"best_video,omitempty"`
	BestAudio *model.FormatDescriptor  `json:"best_audio,omitempty"`
}

var formatsHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var formatsCellStyle = lipgloss.NewStyle().Padding(0, 1)

func runFormats(args []string) error {
	fs := newFlagSet("formats")
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

	res := link.Validate(rawURL)
	if err := res.Err(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	meta, err := newMetadataSource(cfg).FetchMetadata(ctx, res.Ref)
	if err != nil {
		return err
	}

	report := formatsReport{
		URL:       res.Ref.URL(),
		Title:     meta.Title,
		Duration:  meta.Duration,
		Muxed:     formats.Muxed(meta.Formats),
		AudioOnly: formats.AudioOnly(meta.Formats),
	}
	if f, err := formats.SelectBest(meta.Formats, false); err == nil {
		report.BestVideo = &f
	}
	if f, err := formats.SelectBest(meta.Formats, true); err == nil {
		report.BestAudio = &f
	}
	if *jsonOut {
		return printJSON(report)
	}

	fmt.Printf("%s (%s)\n", meta.Title, report.URL)
	fmt.Println(renderFormatsTable(report))
	fmt.Printf("video pick: %s\n", describeOrNone(report.BestVideo))
	fmt.Printf("audio pick: %s\n", describeOrNone(report.BestAudio))
	return nil
}

func renderFormatsTable(r formatsReport) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "KIND", "EXT", "QUALITY", "AUDIO", "SIZE", "NOTE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return formatsHeaderStyle
			}
			return formatsCellStyle
		})
	add := func(kind string, list []model.FormatDescriptor) {
		for _, f := range list {
			t.Row(f.ID, kind, f.Ext, strconv.Itoa(f.QualityRank), bitrateLabel(f.AudioBitrate), sizeLabel(f.ApproxSizeBytes), f.Note)
		}
	}
	add("muxed", r.Muxed)
	add("audio", r.AudioOnly)
	return t.Render()
}

func bitrateLabel(kbps float64) string {
	if kbps <= 0 {
		return "-"
	}
	return strconv.FormatFloat(kbps, 'f', 0, 64) + "k"
}

func sizeLabel(n int64) string {
	if n <= 0 {
		return "?"
	}
	return "~" + humanize.IBytes(uint64(n))
}

func describeOrNone(f *model.FormatDescriptor) string {
	if f == nil {
		return "none"
	}
	return formats.Describe(*f)
}
