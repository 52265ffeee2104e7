package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/remotelab/internal/rig"
)

// SampleMsg delivers one loop sample to the live view.
type SampleMsg rig.Sample

// DoneMsg reports that the loop returned.
type DoneMsg struct{ Err error }

// LiveModel is the Bubble Tea model of the ground station screen.
type LiveModel struct {
	name    string
	plotter *Plotter
	params  rig.Configurable
	keys    []string
	onStop  func()

	selected      int
	last          rig.Sample
	count         int
	paused        bool
	stopped       bool
	done          bool
	err           error
	width, height int
}

// NewLiveModel shows samples for the named controller. When ctrl exposes
// parameters they can be tuned from the keyboard; onStop runs once when the
// user quits.
func NewLiveModel(name string, maxPoints int, ctrl rig.Controller, onStop func()) LiveModel {
	m := LiveModel{
		name:    name,
		plotter: NewPlotter(maxPoints),
		onStop:  onStop,
		width:   100,
		height:  36,
	}
	if c, ok := ctrl.(rig.Configurable); ok {
		if params := c.GetParams(); len(params) > 0 {
			m.params = c
			for k := range params {
				m.keys = append(m.keys, k)
			}
			sort.Strings(m.keys)
		}
	}
	return m
}

func (m LiveModel) Init() tea.Cmd { return nil }

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.stopped && m.onStop != nil {
				m.onStop()
			}
			m.stopped = true
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "tab":
			if len(m.keys) > 0 {
				m.selected = (m.selected + 1) % len(m.keys)
			}
		case "up", "k":
			m.adjust(1.05)
		case "down", "j":
			m.adjust(0.95)
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case SampleMsg:
		m.last = rig.Sample(msg)
		m.count++
		if !m.paused {
			m.plotter.Push(m.last)
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *LiveModel) adjust(factor float64) {
	if len(m.keys) == 0 {
		return
	}
	key := m.keys[m.selected]
	val := m.params.GetParams()[key]
	next := val * factor
	if val == 0 {
		next = 0.01 * (factor - 1) / 0.05
	}
	if err := m.params.SetParam(key, next); err != nil {
		m.err = err
		return
	}
	m.err = nil
}

// Stopped reports whether the user pressed the stop key.
func (m LiveModel) Stopped() bool { return m.stopped }

// Err is the last error reported by the loop or a rejected parameter change.
func (m LiveModel) Err() error { return m.err }

func (m LiveModel) Plotter() *Plotter { return m.plotter }

func (m LiveModel) View() string {
	status := statusRunning.Render("● RUNNING")
	switch {
	case m.stopped || m.done:
		status = statusStopped.Render("■ STOPPED")
	case m.paused:
		status = statusPaused.Render("❚❚ PAUSED")
	}
	header := headerStyle.Render(fmt.Sprintf("remotelab · %s  ", m.name)) + status

	chartWidth := max(20, m.width-46)
	chartHeight := max(4, (m.height-16)/3)
	charts := m.plotter.Render(chartWidth, chartHeight)

	var stats strings.Builder
	stats.WriteString(headerStyle.Render("Telemetry") + "\n")
	row := func(label, value string) {
		stats.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("t", fmt.Sprintf("%.2f s", m.last.T))
	row("theta", fmt.Sprintf("%+.1f deg", m.last.Angle))
	row("omega", fmt.Sprintf("%+.2f deg/s", m.last.Rate))
	row("u", fmt.Sprintf("%+.3f", m.last.Command))
	row("samples", fmt.Sprintf("%d", m.count))
	stats.WriteString(Sparkline(m.plotter.Series(KeyOmega), 28) + "\n")

	if len(m.keys) > 0 {
		stats.WriteString("\n" + headerStyle.Render("Parameters") + "\n")
		current := m.params.GetParams()
		for i, k := range m.keys {
			label := labelStyle.Render(k)
			if i == m.selected {
				label = activeParamStyle.Width(12).Render("> " + k)
			}
			stats.WriteString(label + valueStyle.Render(fmt.Sprintf("%.4g", current[k])) + "\n")
		}
	}
	if m.err != nil {
		stats.WriteString("\n" + statusStopped.Render(m.err.Error()) + "\n")
	}

	help := helpStyle.Render("q/esc: stop · space: freeze plot · tab: param · ↑/↓: adjust")
	body := lipgloss.JoinHorizontal(lipgloss.Top, charts, statsStyle.Render(stats.String()))
	return lipgloss.JoinVertical(lipgloss.Left, header, body, help)
}
