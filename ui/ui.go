package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"murmur/session"
)

type notifyMsg session.Notification
type levelMsg float64
type tickMsg time.Time

var (
	styleReady        = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleRecording    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleTranscribing = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	styleError        = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)
	styleHint         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleMeterOn      = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	styleMeterOff     = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
)

const meterWidth = 24

type model struct {
	state   session.State
	status  string
	hint    string
	level   float64
	frame   int
	version string
	device  string
	engine  string
	width   int
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tick()

	case notifyMsg:
		m.state = msg.State
		m.status = msg.Status
		m.hint = msg.Hint
		if m.state != session.StateRecording {
			m.level = 0
		}

	case levelMsg:
		if m.state == session.StateRecording {
			m.level = m.level*0.6 + float64(msg)*0.4
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if m.state == session.StateRecording {
		b.WriteString("  ")
		b.WriteString(m.meter())
		b.WriteString("\n")
	}

	if m.hint != "" {
		b.WriteString("  ")
		b.WriteString(styleHint.Render(m.hint))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	info := m.engine
	if m.device != "" {
		info += " | " + m.device
	}
	b.WriteString(styleDim.Render(info))
	b.WriteString("\n  ")
	b.WriteString(styleDim.Render("murmur " + m.version + "  (q to quit)"))
	b.WriteString("\n")

	return b.String()
}

func (m model) statusLine() string {
	switch m.state {
	case session.StateRecording:
		dot := "●"
		if m.frame%2 == 1 {
			dot = "○"
		}
		return styleRecording.Render(fmt.Sprintf("%s %s", dot, m.status))
	case session.StateTranscribing:
		return styleTranscribing.Render("◌ " + m.status)
	case session.StateError:
		return styleError.Render("✗ " + m.status)
	default:
		return styleReady.Render("○ " + m.status)
	}
}

func (m model) meter() string {
	filled := int(m.level * meterWidth * 3) // speech rarely exceeds a third of full scale
	if filled > meterWidth {
		filled = meterWidth
	}
	var b strings.Builder
	for i := 0; i < meterWidth; i++ {
		if i < filled {
			b.WriteString(styleMeterOn.Render("▮"))
		} else {
			b.WriteString(styleMeterOff.Render("▯"))
		}
	}
	return b.String()
}

// Program wraps the bubbletea program so the rest of the app can push
// updates without knowing about tea messages.
type Program struct {
	p *tea.Program
}

func New(version, engine, device string) *Program {
	m := model{
		state:   session.StateReady,
		status:  "Ready",
		version: version,
		engine:  engine,
		device:  device,
	}
	return &Program{p: tea.NewProgram(m)}
}

// Run blocks until the user quits.
func (p *Program) Run() error {
	_, err := p.p.Run()
	return err
}

func (p *Program) Notify(n session.Notification) {
	p.p.Send(notifyMsg(n))
}

func (p *Program) Level(l float64) {
	p.p.Send(levelMsg(l))
}

func (p *Program) Quit() {
	p.p.Quit()
}
