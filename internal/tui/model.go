package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scrub/internal/queue"
)

// Model renders live scan/clean progress from queue delta updates.
type Model struct {
	updates    <-chan queue.ProgressUpdate
	started    time.Time
	width      int
	added      int
	scanned    int
	threats    int
	cleaned    int
	errors     int
	bytesSaved int64
	cleaning   bool
	quitting   bool
}

type doneMsg struct{}

type updateMsg queue.ProgressUpdate

// NewModel builds a progress model. cleaning selects the clean-phase
// layout with the cleaned counter and bytes-saved line.
func NewModel(updates <-chan queue.ProgressUpdate, cleaning bool) Model {
	return Model{updates: updates, cleaning: cleaning, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.added += msg.AddedDelta
		m.scanned += msg.ScannedDelta
		m.threats += msg.ThreatDelta
		m.cleaned += msg.CleanedDelta
		m.errors += msg.ErrorDelta
		m.bytesSaved += msg.BytesDelta
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	done := m.scanned
	if m.cleaning {
		done = m.cleaned + m.errors
	}
	ratio := 0.0
	if m.added > 0 {
		ratio = float64(done) / float64(m.added)
		if ratio > 1 {
			ratio = 1
		}
	}

	bar := renderBar(barWidth, ratio)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("scrub"),
		labelStyle.Render(fmt.Sprintf("Scanned: %d/%d", m.scanned, m.added)) + dimStyle.Render(fmt.Sprintf("  errors:%d", m.errors)),
		labelStyle.Render(fmt.Sprintf("Threats found: %d", m.threats)),
	}
	if m.cleaning {
		lines = append(lines,
			labelStyle.Render(fmt.Sprintf("Cleaned: %d", m.cleaned)),
			labelStyle.Render(fmt.Sprintf("Bytes saved: %d", m.bytesSaved)),
		)
	}
	lines = append(lines,
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	)

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan queue.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
