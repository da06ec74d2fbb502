package progress

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"ytgrab/internal/model"

	"github.com/mattn/go-isatty"
)

// Sink displays progress. Update may be called concurrently with itself but
// never after Finish or Clear; exactly one of those is called per transfer.
type Sink interface {
	Start(title string)
	Update(state model.ProgressState)
	Finish(state model.ProgressState)
	Clear()
}

const (
	ModeAuto  = "auto"
	ModeTUI   = "tui"
	ModePlain = "plain"
	ModeNone  = "none"
)

func NewSink(mode string, w io.Writer) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeAuto:
		if IsTerminal(w) {
			return NewTUI(w), nil
		}
		return NewLine(w), nil
	case ModeTUI:
		return NewTUI(w), nil
	case ModePlain:
		return NewLine(w), nil
	case ModeNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("invalid progress mode %q (expected auto, tui, plain, or none)", mode)
	}
}

func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type Nop struct{}

func (Nop) Start(string)               {}
func (Nop) Update(model.ProgressState) {}
func (Nop) Finish(model.ProgressState) {}
func (Nop) Clear()                     {}

func formatETASeconds(seconds int) string {
	if seconds < 0 {
		return ""
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %02ds", minutes, seconds%60)
	}
	hours := minutes / 60
	remMinutes := minutes % 60
	if remMinutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, remMinutes)
}

// formatElapsed renders a duration as hh:mm:ss.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

func fraction(s model.ProgressState) float64 {
	f := float64(s.Units) / model.ProgressUnits
	return math.Max(0, math.Min(1, f))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
