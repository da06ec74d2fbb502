package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ytgrab/internal/model"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tuiMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tuiOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

const tuiTick = 100 * time.Millisecond

// TUI renders progress with a bubbletea program. Update only stores the
// latest state; the program polls it on a tick, so the output reader never
// waits on rendering.
type TUI struct {
	out io.Writer
	now func() time.Time

	mu      sync.Mutex
	latest  model.ProgressState
	program *tea.Program
	done    chan struct{}
}

func NewTUI(out io.Writer) *TUI {
	return &TUI{out: out, now: time.Now, latest: model.ProgressState{ETASeconds: -1}}
}

func (t *TUI) Start(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.program != nil {
		return
	}
	m := newTUIModel(title, t.snapshot, t.now)
	t.program = tea.NewProgram(m,
		tea.WithOutput(t.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	t.done = make(chan struct{})
	go func(p *tea.Program, done chan struct{}) {
		defer close(done)
		_, _ = p.Run()
	}(t.program, t.done)
}

func (t *TUI) snapshot() model.ProgressState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

func (t *TUI) Update(state model.ProgressState) {
	t.mu.Lock()
	t.latest = state
	t.mu.Unlock()
}

func (t *TUI) Finish(state model.ProgressState) {
	t.Update(state)
	t.stop(tuiFinishMsg{state: state})
}

func (t *TUI) Clear() {
	t.stop(tuiClearMsg{})
}

func (t *TUI) stop(msg tea.Msg) {
	t.mu.Lock()
	p, done := t.program, t.done
	t.mu.Unlock()
	if p == nil {
		return
	}
	p.Send(msg)
	<-done
}

type tuiTickMsg time.Time

type tuiFinishMsg struct{ state model.ProgressState }

type tuiClearMsg struct{}

type tuiModel struct {
	title    string
	bar      progress.Model
	state    model.ProgressState
	snapshot func() model.ProgressState
	now      func() time.Time
	started  time.Time
	elapsed  time.Duration
	finished bool
	cleared  bool
}

func newTUIModel(title string, snapshot func() model.ProgressState, now func() time.Time) tuiModel {
	return tuiModel{
		title:    title,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		snapshot: snapshot,
		now:      now,
		started:  now(),
		state:    model.ProgressState{ETASeconds: -1},
	}
}

func tuiTickCmd() tea.Cmd {
	return tea.Tick(tuiTick, func(t time.Time) tea.Msg { return tuiTickMsg(t) })
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTickCmd()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = clampWidth(msg.Width-4, 10, 80)
		return m, nil
	case tuiTickMsg:
		m.state = m.snapshot()
		m.elapsed = m.now().Sub(m.started)
		return m, tuiTickCmd()
	case tuiFinishMsg:
		m.state = msg.state
		m.elapsed = m.now().Sub(m.started)
		m.finished = true
		return m, tea.Quit
	case tuiClearMsg:
		m.cleared = true
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.cleared {
		return ""
	}
	lines := []string{tuiTitleStyle.Render(truncate(m.title, 70))}
	lines = append(lines, m.bar.ViewAs(fraction(m.state)))

	stats := []string{formatElapsed(m.elapsed), fmt.Sprintf("%.1f%%", m.state.Percent)}
	if m.state.TotalBytes > 0 {
		stats = append(stats, humanize.IBytes(uint64(m.state.TransferredBytes))+" / "+humanize.IBytes(uint64(m.state.TotalBytes)))
	}
	if eta := formatETASeconds(m.state.ETASeconds); eta != "" && !m.finished {
		stats = append(stats, "ETA "+eta)
	}
	if m.state.Phase != "" && !m.finished {
		stats = append(stats, m.state.Phase)
	}
	lines = append(lines, tuiMutedStyle.Render(strings.Join(stats, "  ")))
	if m.finished {
		lines = append(lines, tuiOKStyle.Render("Download complete"))
	}
	return strings.Join(lines, "\n") + "\n"
}

func clampWidth(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
