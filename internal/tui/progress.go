package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"histport.dev/histport/internal/replay"
	"histport.dev/histport/internal/worker"
)

const (
	keyCtrlC = "ctrl+c"
	keyQuit  = "q"

	progressInterval = 100 * time.Millisecond
)

// StatsSource provides replay counters
type StatsSource interface {
	Snapshot() replay.Snapshot
}

// StatusSource provides the worker's status
type StatusSource interface {
	Status() worker.Status
}

type progressTickMsg time.Time

type progressStyles struct {
	title   lipgloss.Style
	state   lipgloss.Style
	count   lipgloss.Style
	dim     lipgloss.Style
	warning lipgloss.Style
	done    lipgloss.Style
	failed  lipgloss.Style
}

// ProgressModel is the bubbletea model of the export progress view. It
// polls the replay counters and the worker until the worker is idle.
type ProgressModel struct {
	title    string
	stats    StatsSource
	status   StatusSource
	abort    func()
	spinner  spinner.Model
	bar      progress.Model
	snap     replay.Snapshot
	current  worker.Status
	aborting bool
	done     bool
	styles   progressStyles
}

// NewProgressModel creates the view. abort is called once when the user
// presses Ctrl-C or q.
func NewProgressModel(title string, stats StatsSource, status StatusSource, abort func()) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ProgressModel{
		title:   title,
		stats:   stats,
		status:  status,
		abort:   abort,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		current: worker.Status{Queued: 1},
		styles: progressStyles{
			title:   lipgloss.NewStyle().Bold(true),
			state:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
			count:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
			warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			done:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
}

func tickProgress() tea.Cmd {
	return tea.Tick(progressInterval, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

// Init starts the spinner and the polling loop
func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickProgress())
}

// Update handles key presses and polling ticks
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if (msg.String() == keyCtrlC || msg.String() == keyQuit) && !m.aborting {
			m.aborting = true
			if m.abort != nil {
				m.abort()
			}
		}
		return m, nil

	case progressTickMsg:
		m.snap = m.stats.Snapshot()
		m.current = m.status.Status()
		if !m.current.Busy() {
			m.done = true
			return m, tea.Quit
		}
		return m, tickProgress()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Done reports whether the worker went idle
func (m ProgressModel) Done() bool {
	return m.done
}

// Aborting reports whether the user asked to abort
func (m ProgressModel) Aborting() bool {
	return m.aborting
}

func (m ProgressModel) stateLine() string {
	state := m.snap.State
	switch {
	case m.done && state == replay.StateDone:
		return m.styles.done.Render("✓ " + state.String())
	case m.done && (state == replay.StateFailed || state == replay.StateAborted):
		return m.styles.failed.Render("✗ " + state.String())
	case m.done:
		return m.styles.dim.Render(state.String())
	}
	return m.spinner.View() + " " + m.styles.state.Render(state.String()+"...")
}

func (m ProgressModel) count(label string, n int64) string {
	return m.styles.count.Render(humanize.Comma(n)) + " " + m.styles.dim.Render(label)
}

// View renders the progress view
func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.styles.title.Render(m.title))
	b.WriteString("\n\n")

	b.WriteString("  " + m.stateLine())
	b.WriteString("\n  ")
	b.WriteString(m.bar.ViewAs(m.snap.Progress()))
	b.WriteString(m.styles.dim.Render(fmt.Sprintf("  %s/%s changesets", humanize.Comma(m.snap.Changesets), humanize.Comma(m.snap.Total))))
	b.WriteString("\n\n  ")

	counts := []string{
		m.count("revisions", m.snap.Revisions),
		m.count("files", m.snap.Files),
		m.count("commits", m.snap.Commits),
		m.count("tags", m.snap.Tags),
	}
	b.WriteString(strings.Join(counts, m.styles.dim.Render(" · ")))
	if m.snap.Diagnostics > 0 {
		b.WriteString(m.styles.dim.Render(" · "))
		b.WriteString(m.styles.warning.Render(fmt.Sprintf("%s diagnostics", humanize.Comma(m.snap.Diagnostics))))
	}
	b.WriteString("\n")

	if m.current.Message != "" {
		b.WriteString("  " + m.styles.dim.Render(m.current.Message) + "\n")
	}
	b.WriteString("  " + m.styles.dim.Render("elapsed "+m.current.Active.Round(time.Second).String()) + "\n")

	if m.aborting && !m.done {
		b.WriteString("\n  " + m.styles.warning.Render("aborting after the current operation...") + "\n")
	} else if !m.done {
		b.WriteString("\n  " + m.styles.dim.Render("press q or ctrl+c to abort") + "\n")
	}
	return b.String()
}

// RunProgress shows the progress view until the worker is idle
func RunProgress(title string, stats StatsSource, status StatusSource, abort func()) error {
	m := NewProgressModel(title, stats, status, abort)
	program := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	_, err := program.Run()
	return err
}
