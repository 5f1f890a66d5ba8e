// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/pipeline"
	"spectra/internal/transport"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultBarRows = 12
	ceilingDecay   = 0.995 // Per frame decay of the auto-scaling ceiling.
	minCeiling     = 1e-6
)

// Partial block glyphs, from empty to full, used for the top cell of a bar.
var barGlyphs = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var (
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	onsetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
)

// Controls is the part of the pipeline the monitor may adjust.
type Controls interface {
	Options() pipeline.Options
	ToggleScaleMode() analysis.ScaleMode
	SetBins(bins int) error
}

// Capture is a source that can be paused from the monitor.
type Capture interface {
	Suspend()
	Resume()
	State() audio.State
}

// FrameMsg delivers a published frame to the monitor.
type FrameMsg struct {
	Frame *transport.Frame
}

type monitorKeyMap struct {
	Mode     key.Binding
	MoreBins key.Binding
	LessBins key.Binding
	Pause    key.Binding
	Quit     key.Binding
}

func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Mode, k.MoreBins, k.LessBins, k.Pause, k.Quit}
}

func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var monitorKeys = monitorKeyMap{
	Mode:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "lin/log")),
	MoreBins: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more bins")),
	LessBins: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer bins")),
	Pause:    key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// MonitorModel draws the display bins of the latest frame as a bar graph.
type MonitorModel struct {
	controls Controls
	capture  Capture
	frame    *transport.Frame
	ceiling  float64
	rows     int
	width    int
	peak     progress.Model
	help     help.Model
	status   string
}

// NewMonitorModel creates a monitor. controls and capture may be nil, which
// disables the adjustment and pause keys.
func NewMonitorModel(controls Controls, capture Capture) MonitorModel {
	return MonitorModel{
		controls: controls,
		capture:  capture,
		ceiling:  minCeiling,
		rows:     defaultBarRows,
		peak:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(32)),
		help:     help.New(),
	}
}

// Init has no startup work; frames arrive through FrameMsg.
func (m MonitorModel) Init() tea.Cmd {
	return nil
}

// Update handles frames, resizes and key presses.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FrameMsg:
		m.frame = msg.Frame
		top := 0.0
		for _, v := range msg.Frame.Bins {
			top = math.Max(top, float64(v))
		}
		m.ceiling = math.Max(math.Max(m.ceiling*ceilingDecay, top), minCeiling)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.rows = max(msg.Height-8, 4)
		m.peak.Width = max(min(msg.Width-12, 64), 8)
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, monitorKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, monitorKeys.Pause):
			if m.capture == nil {
				break
			}
			switch state := m.capture.State(); state {
			case audio.StateSuspended:
				m.capture.Resume()
				m.status = "resumed"
			case audio.StateReady:
				m.capture.Suspend()
				m.status = "paused"
			default:
				m.status = fmt.Sprintf("capture %s, cannot pause", state)
			}
		case m.controls == nil:
		case key.Matches(msg, monitorKeys.Mode):
			m.status = fmt.Sprintf("scale %s", m.controls.ToggleScaleMode())
		case key.Matches(msg, monitorKeys.MoreBins):
			m.status = m.resize(1)
		case key.Matches(msg, monitorKeys.LessBins):
			m.status = m.resize(-1)
		}
	}
	return m, nil
}

func (m MonitorModel) resize(delta int) string {
	bins := m.controls.Options().Bins + delta
	if err := m.controls.SetBins(bins); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%d bins", bins)
}

// View renders the header, the bars and the key help.
func (m MonitorModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Spectrum"))
	sb.WriteString("\n\n")

	if m.frame == nil {
		sb.WriteString(dimStyle.Render("Waiting for audio..."))
		sb.WriteString("\n\n")
		sb.WriteString(m.help.View(monitorKeys))
		return sb.String()
	}

	f := m.frame
	header := fmt.Sprintf("#%d  %s", f.Seq, f.State)
	if m.controls != nil {
		header += fmt.Sprintf("  %s  %d bins", m.controls.Options().Mode, len(f.Bins))
	}
	sb.WriteString(infoStyle.Render(header))
	if f.Onset {
		sb.WriteString("  " + onsetStyle.Render("●"))
	}
	if f.Silent {
		sb.WriteString("  " + dimStyle.Render("silent"))
	}
	sb.WriteString("\n")
	sb.WriteString("peak " + m.peak.ViewAs(math.Min(math.Max(f.Peak, 0), 1)))
	sb.WriteString("\n\n")

	sb.WriteString(barStyle.Render(RenderBars(f.Bins, m.rows, m.ceiling)))
	sb.WriteString("\n")

	if bands := renderBands(f.Bands); bands != "" {
		sb.WriteString(dimStyle.Render(bands))
		sb.WriteString("\n")
	}
	if m.status != "" {
		sb.WriteString(dimStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(monitorKeys))
	return sb.String()
}

// RenderBars draws bins as vertical bars of at most rows cells, scaled so that
// ceiling fills a bar. Each bin is two columns wide.
func RenderBars(bins []float32, rows int, ceiling float64) string {
	if rows <= 0 || len(bins) == 0 {
		return ""
	}
	if ceiling <= 0 {
		ceiling = minCeiling
	}

	// Height of each bar in eighths of a cell.
	eighths := make([]int, len(bins))
	for i, v := range bins {
		level := math.Min(math.Max(float64(v)/ceiling, 0), 1)
		eighths[i] = int(math.Round(level * float64(rows*8)))
	}

	var sb strings.Builder
	for row := rows - 1; row >= 0; row-- {
		for _, h := range eighths {
			fill := min(max(h-row*8, 0), 8)
			glyph := barGlyphs[fill]
			sb.WriteRune(glyph)
			sb.WriteRune(glyph)
		}
		if row > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// renderBands lists band energies in low to high order.
func renderBands(bands map[string]float64) string {
	if len(bands) == 0 {
		return ""
	}
	parts := make([]string, 0, len(bands))
	for _, b := range analysis.DefaultBands() {
		if v, ok := bands[b.Name]; ok {
			parts = append(parts, fmt.Sprintf("%s %.2f", b.Name, v))
		}
	}
	return strings.Join(parts, "  ")
}

// RunMonitor runs the monitor until the user quits or ctx is cancelled. A
// cancelled context is not an error.
func RunMonitor(ctx context.Context, p *tea.Program) error {
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// NewMonitorProgram creates the Bubble Tea program for a monitor bound to ctx.
func NewMonitorProgram(ctx context.Context, controls Controls, capture Capture) *tea.Program {
	return tea.NewProgram(
		NewMonitorModel(controls, capture),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
}
