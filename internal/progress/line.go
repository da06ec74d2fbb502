package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ytgrab/internal/model"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

const lineBarWidth = 25

// Line redraws a single terminal line in place. Redraws are rate limited so a
// chatty downloader does not flood slow terminals; the final state always
// renders.
type Line struct {
	w       io.Writer
	limiter *rate.Limiter

	now func() time.Time

	mu      sync.Mutex
	title   string
	started time.Time
}

func NewLine(w io.Writer) *Line {
	return &Line{
		w:       w,
		limiter: rate.NewLimiter(rate.Every(150*time.Millisecond), 1),
		now:     time.Now,
	}
}

func (l *Line) Start(title string) {
	l.mu.Lock()
	l.title = title
	l.started = l.now()
	l.mu.Unlock()
}

func (l *Line) Update(state model.ProgressState) {
	if !l.limiter.Allow() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "\r\033[2K%s", l.render(state))
}

func (l *Line) Finish(state model.ProgressState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "\r\033[2K%s\n", l.render(state))
}

func (l *Line) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.w, "\r\033[2K")
}

func (l *Line) render(s model.ProgressState) string {
	filled := int(fraction(s) * lineBarWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", lineBarWidth-filled)
	var elapsed time.Duration
	if !l.started.IsZero() {
		elapsed = l.now().Sub(l.started)
	}
	parts := []string{fmt.Sprintf("[%s] [%s] %6.2f%%", formatElapsed(elapsed), bar, s.Percent)}
	if s.TotalBytes > 0 {
		parts = append(parts, humanize.IBytes(uint64(s.TransferredBytes))+" / "+humanize.IBytes(uint64(s.TotalBytes)))
	}
	if eta := formatETASeconds(s.ETASeconds); eta != "" && s.Phase != model.PhaseDone {
		parts = append(parts, "ETA "+eta)
	}
	if s.Phase != "" && s.Phase != model.PhaseDownloading {
		parts = append(parts, s.Phase)
	}
	if l.title != "" {
		parts = append(parts, "| "+truncate(l.title, 52))
	}
	return strings.Join(parts, "  ")
}
