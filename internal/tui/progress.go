// internal/tui/progress.go

// Package tui renders a live progress view while a benchmark session runs.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/lmperf/internal/session"
	"github.com/mwiater/lmperf/internal/util"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	timeoutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// resultMsg carries one recorded request into the program.
type resultMsg session.RequestResult

// finishedMsg tells the program the session is over.
type finishedMsg struct{}

// tickMsg refreshes elapsed time for duration-bound sessions.
type tickMsg time.Time

// model is the Bubble Tea model for the progress view.
type model struct {
	title     string
	total     int
	duration  time.Duration
	started   time.Time
	now       time.Time
	interrupt context.CancelFunc

	spinner  spinner.Model
	bar      progress.Model
	success  int
	failure  int
	timeout  int
	last     string
	finished bool
}

func newModel(title string, total int, duration time.Duration, interrupt context.CancelFunc) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	start := time.Now()
	return &model{
		title:     title,
		total:     total,
		duration:  duration,
		started:   start,
		now:       start,
		interrupt: interrupt,
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the spinner and the elapsed-time ticker.
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Update folds results and ticks into the view state.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.interrupt != nil {
				m.interrupt()
			}
			m.last = "interrupt requested, waiting for in-flight requests"
			return m, nil
		}
	case tea.WindowSizeMsg:
		if w := msg.Width - 10; w > 10 && w < 80 {
			m.bar.Width = w
		}
	case resultMsg:
		m.apply(session.RequestResult(msg))
	case tickMsg:
		m.now = time.Time(msg)
		if m.finished {
			return m, nil
		}
		return m, tickCmd()
	case finishedMsg:
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) apply(r session.RequestResult) {
	switch r.Outcome {
	case session.OutcomeSuccess:
		m.success++
		m.last = fmt.Sprintf("#%d ok in %s", r.Sequence, r.Latency.Round(time.Millisecond))
	case session.OutcomeTimeout:
		m.timeout++
		m.last = fmt.Sprintf("#%d timed out", r.Sequence)
	default:
		m.failure++
		m.last = fmt.Sprintf("#%d failed: %s", r.Sequence, util.Clip(r.Error, 60))
	}
}

func (m *model) done() int { return m.success + m.failure + m.timeout }

// percent is request-based when the total is known and time-based otherwise.
func (m *model) percent() float64 {
	var p float64
	switch {
	case m.total > 0:
		p = float64(m.done()) / float64(m.total)
	case m.duration > 0:
		p = float64(m.now.Sub(m.started)) / float64(m.duration)
	}
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// View renders the progress bar and counters.
func (m *model) View() string {
	var b strings.Builder
	b.WriteString("\n  ")
	if !m.finished {
		b.WriteString(m.spinner.View())
	}
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n  ")
	b.WriteString(m.bar.ViewAs(m.percent()))

	progressText := fmt.Sprintf("%d", m.done())
	if m.total > 0 {
		progressText = fmt.Sprintf("%d/%d", m.done(), m.total)
	}
	elapsed := m.now.Sub(m.started).Round(time.Second)
	fmt.Fprintf(&b, "\n\n  requests %s  %s  %s  %s  elapsed %s\n",
		progressText,
		okStyle.Render(fmt.Sprintf("ok %d", m.success)),
		failStyle.Render(fmt.Sprintf("failed %d", m.failure)),
		timeoutStyle.Render(fmt.Sprintf("timeout %d", m.timeout)),
		elapsed,
	)
	if m.last != "" {
		b.WriteString("  " + helpStyle.Render(m.last) + "\n")
	}
	if !m.finished {
		b.WriteString("\n  " + helpStyle.Render("q / ctrl+c: stop and keep partial results") + "\n")
	}
	return b.String()
}

// Progress drives a Bubble Tea program from benchmark callbacks.
type Progress struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

// NewProgress prepares a progress view. total is the planned request count
// (0 when unknown) and duration bounds time-based sessions. interrupt is
// called when the user asks to stop.
func NewProgress(title string, total int, duration time.Duration, interrupt context.CancelFunc, out io.Writer) *Progress {
	m := newModel(title, total, duration, interrupt)
	return &Progress{
		program: tea.NewProgram(m, tea.WithOutput(out)),
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background.
func (p *Progress) Start() {
	go func() {
		defer close(p.done)
		_, p.err = p.program.Run()
	}()
}

// Observe forwards a result to the view. It is safe for concurrent use.
func (p *Progress) Observe(r session.RequestResult) {
	p.program.Send(resultMsg(r))
}

// Finish stops the view and waits for the final frame.
func (p *Progress) Finish() error {
	p.program.Send(finishedMsg{})
	<-p.done
	return p.err
}
