// Package tui provides a single-pane progress view for interactive copy
// sessions, trimmed from the dual drive-browser layout of the original
// file manager down to the one thing a copy operation needs to show:
// how far along it is.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/wonhada/parcopy/internal/engine"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205")).Padding(1, 2)
)

// IsTerminal reports whether a TUI can meaningfully attach to stdout.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// progressMsg wraps a Stats snapshot. Nothing in this package sends it:
// the polling ticker sends tickMsg and Update calls statsFn itself.
type progressMsg struct{ stats engine.Stats }
type doneMsg struct{ err error }
type tickMsg time.Time

// Model renders a single copy operation's live Stats against a
// caller-supplied StatsFunc, polled on a fixed interval.
type Model struct {
	src, dst string
	statsFn  func() engine.Stats
	done     <-chan error
	cancel   context.CancelFunc
	width    int

	stats      engine.Stats
	started    time.Time
	err        error
	cancelling bool
	finished   bool
}

// New builds a Model. statsFn must be safe to call concurrently with the
// running copy; done receives the final error (possibly nil) when the
// operation completes; cancel is invoked on ctrl+c and must cancel the
// same context.Context the copy was started with, so that the engine's
// own cancellation cleanup (staging file removal) actually runs before
// the program exits.
func New(src, dst string, statsFn func() engine.Stats, done <-chan error, cancel context.CancelFunc) Model {
	runewidth.DefaultCondition.EastAsianWidth = true
	return Model{
		src:     src,
		dst:     dst,
		statsFn: statsFn,
		done:    done,
		cancel:  cancel,
		width:   72,
		started: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitDoneCmd(m.done))
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitDoneCmd(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		err := <-done
		return doneMsg{err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.finished {
				return m, tea.Quit
			}
			// Cancel the copy's own ctx and wait for doneMsg (already
			// in flight via waitDoneCmd) so the engine's staging-file
			// cleanup runs before the program exits.
			if m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
			return m, nil
		case "enter", "q":
			if m.finished {
				return m, tea.Quit
			}
		}
		return m, nil
	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.stats = m.statsFn()
		return m, tickCmd()
	case doneMsg:
		m.stats = m.statsFn()
		m.finished = true
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("parcopy"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("source      "))
	b.WriteString(m.src)
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("destination "))
	b.WriteString(m.dst)
	b.WriteString("\n\n")

	elapsed := time.Since(m.started).Truncate(100 * time.Millisecond)
	b.WriteString(fmt.Sprintf("%s %d   %s %s   %s %d   %s %d\n",
		labelStyle.Render("files"), m.stats.CopiedFileCount,
		labelStyle.Render("bytes"), formatBytes(m.stats.CopiedByteCount),
		labelStyle.Render("failed"), m.stats.FailedFileCount,
		labelStyle.Render("skipped"), m.stats.SkippedFileCount,
	))
	b.WriteString(dimStyle.Render(fmt.Sprintf("elapsed %s", elapsed)))
	b.WriteString("\n\n")

	barWidth := m.width - 4
	if barWidth < 10 {
		barWidth = 10
	}
	b.WriteString(renderSpinnerBar(barWidth, m.finished))
	b.WriteString("\n\n")

	switch {
	case m.finished && m.cancelling:
		b.WriteString(warnStyle.Render("cancelled"))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("press enter or q to exit"))
	case m.finished && m.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("copy failed: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("press enter or q to exit"))
	case m.finished:
		b.WriteString(okStyle.Render("copy complete"))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("press enter or q to exit"))
	case m.cancelling:
		b.WriteString(warnStyle.Render("cancelling, waiting for cleanup..."))
	default:
		b.WriteString(dimStyle.Render("ctrl+c to cancel"))
	}

	return boxStyle.Render(b.String())
}

func renderSpinnerBar(width int, finished bool) string {
	if finished {
		return barStyle.Render(strings.Repeat("█", width))
	}
	// a simple looping band to indicate liveness without a known total;
	// the engine does not pre-count files, so there is no percentage to show.
	phase := int(time.Now().UnixMilli()/120) % width
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i == phase {
			b.WriteString(barStyle.Render("█"))
		} else {
			b.WriteString(dimStyle.Render("░"))
		}
	}
	return b.String()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
