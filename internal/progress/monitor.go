package progress

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"ytgrab/internal/model"
)

// Monitor turns raw downloader output into a ProgressState and forwards each
// change to a Sink. OnLine may be called from any goroutine.
type Monitor struct {
	sink Sink

	mu       sync.Mutex
	state    model.ProgressState
	finished bool
}

func NewMonitor(sink Sink) *Monitor {
	if sink == nil {
		sink = Nop{}
	}
	return &Monitor{
		sink:  sink,
		state: model.ProgressState{ETASeconds: -1, Phase: model.PhasePreparing},
	}
}

func (m *Monitor) Start(title string) {
	m.sink.Start(title)
}

// OnLine consumes one output line. Lines that are not download progress only
// move the phase; unparseable progress is dropped without error.
func (m *Monitor) OnLine(line string) {
	l := strings.TrimSpace(line)
	if l == "" {
		return
	}

	m.mu.Lock()
	if m.finished {
		m.mu.Unlock()
		return
	}
	changed := false
	if strings.HasPrefix(l, "[download]") {
		if u, ok := ParseLine(l); ok {
			m.apply(u)
			changed = true
		}
	} else if phase := phaseOf(l); phase != "" && phase != m.state.Phase {
		m.state.Phase = phase
		changed = true
	}
	snap := m.state
	m.mu.Unlock()

	if changed {
		m.sink.Update(snap)
	}
}

func (m *Monitor) apply(u Update) {
	pct := u.Percent
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	m.state.Percent = pct
	m.state.Units = int(math.Round(pct * 100))
	if u.Downloaded > 0 {
		m.state.TransferredBytes = u.Downloaded
	}
	if u.Total > 0 {
		m.state.TotalBytes = u.Total
	}
	m.state.ETASeconds = u.ETASeconds
	m.state.Phase = model.PhaseDownloading
}

func (m *Monitor) Snapshot() model.ProgressState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Finish marks the transfer complete and renders the final state once.
func (m *Monitor) Finish() {
	m.mu.Lock()
	if m.finished {
		m.mu.Unlock()
		return
	}
	m.finished = true
	m.state.Percent = 100
	m.state.Units = model.ProgressUnits
	m.state.ETASeconds = 0
	m.state.Phase = model.PhaseDone
	if m.state.TotalBytes > 0 {
		m.state.TransferredBytes = m.state.TotalBytes
	}
	snap := m.state
	m.mu.Unlock()

	m.sink.Finish(snap)
}

// Clear removes the display without a completion message.
func (m *Monitor) Clear() {
	m.mu.Lock()
	if m.finished {
		m.mu.Unlock()
		return
	}
	m.finished = true
	m.mu.Unlock()

	m.sink.Clear()
}

type Update struct {
	Percent    float64
	Downloaded int64
	Total      int64
	ETASeconds int
}

// ParseLine reads a "[download]" line. It accepts both yt-dlp's default
// layout ("[download]  45.2% of 10.00MiB at ...") and the compact template
// ("[download]  45.2% <downloaded> <total> <eta>"), where any numeric field may
// be "NA".
func ParseLine(line string) (Update, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "[download]" {
		return Update{}, false
	}
	u := Update{ETASeconds: -1}
	if len(fields) >= 4 {
		u.Downloaded = parseCount(fields[2])
		u.Total = parseCount(fields[3])
	}
	if len(fields) >= 5 {
		if eta, err := strconv.Atoi(fields[4]); err == nil && eta >= 0 {
			u.ETASeconds = eta
		}
	}

	pct, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64)
	if err != nil || math.IsNaN(pct) || math.IsInf(pct, 0) {
		if u.Downloaded > 0 && u.Total > 0 {
			return Update{
				Percent:    float64(u.Downloaded) / float64(u.Total) * 100,
				Downloaded: u.Downloaded,
				Total:      u.Total,
				ETASeconds: u.ETASeconds,
			}, true
		}
		return Update{}, false
	}
	u.Percent = pct
	return u, true
}

func parseCount(s string) int64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(v)
}

func phaseOf(l string) string {
	switch {
	case strings.HasPrefix(l, "[ExtractAudio]"),
		strings.HasPrefix(l, "[VideoRemuxer]"),
		strings.HasPrefix(l, "[Merger]"),
		strings.HasPrefix(l, "[FixupM3u8]"),
		strings.HasPrefix(l, "[FixupM4a]"):
		return model.PhasePostprocessing
	case strings.HasPrefix(l, "[youtube]"), strings.HasPrefix(l, "[info]"):
		return model.PhasePreparing
	}
	return ""
}
