package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"drumpractice/player"
	"drumpractice/practice"
	"drumpractice/schedule"
)

// recentHits shown in the feedback pane.
const recentHits = 8

var clickModes = []schedule.ClickMode{
	schedule.ClickBeats,
	schedule.ClickSubdivision,
	schedule.ClickAccents,
	schedule.ClickNone,
}

type Model struct {
	Player  *player.Player
	Matcher *practice.Matcher // nil without practice mode
	Trainer *practice.Trainer // nil without practice mode
	Session *practice.Session // nil without practice mode

	slots    int // compiled slots per loop, for the position strip
	beats    int
	clickIdx int
	quitting bool
}

type UpdateMsg struct{}

type HitMsg practice.Hit

func NewModel(p *player.Player, slots, beats int, click schedule.ClickMode) Model {
	return Model{Player: p, slots: slots, beats: beats, clickIdx: clickIndex(click)}
}

// clickIndex resolves the starting point of the c-key cycle so the
// header agrees with the mode playback actually started with.
func clickIndex(mode schedule.ClickMode) int {
	for i, m := range clickModes {
		if m == mode {
			return i
		}
	}
	return 0
}

// WithPractice attaches the practice subsystem panes.
func (m Model) WithPractice(matcher *practice.Matcher, trainer *practice.Trainer, session *practice.Session) Model {
	m.Matcher = matcher
	m.Trainer = trainer
	m.Session = session
	return m
}

func ListenForUpdates(p *player.Player) tea.Cmd {
	return func() tea.Msg {
		<-p.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForHits(matcher *practice.Matcher) tea.Cmd {
	return func() tea.Msg {
		hit, ok := <-matcher.HitStream()
		if !ok {
			return nil
		}
		return HitMsg(hit)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Player)}
	if m.Matcher != nil {
		cmds = append(cmds, ListenForHits(m.Matcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Player.Stop()
			return m, tea.Quit

		case "p", " ":
			if m.Player.Snapshot().State == player.StateIdle {
				m.Player.Start()
			} else {
				m.Player.Stop()
			}

		case "+", "=":
			m.Player.SetBPM(m.Player.Snapshot().BPM + 5)

		case "-", "_":
			m.Player.SetBPM(m.Player.Snapshot().BPM - 5)

		case "c":
			m.clickIdx = (m.clickIdx + 1) % len(clickModes)
			m.Player.SetClick(clickModes[m.clickIdx])

		case "m":
			if m.Matcher != nil {
				m.Matcher.SetEnabled(!m.Matcher.Enabled())
			}
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Player)

	case HitMsg:
		return m, ListenForHits(m.Matcher)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Player.Snapshot()

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	goodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("160"))

	header := headerStyle.Render(fmt.Sprintf(
		"drumpractice  %s  %3.0fbpm  loop:%d  click:%s",
		strings.ToUpper(st.State.String()), st.BPM, st.Loop+1, clickModes[m.clickIdx]))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	// Beat indicator: 1..N, filled on the current beat.
	for b := 1; b <= m.beats; b++ {
		if b == st.Beat {
			out.WriteString("● ")
		} else {
			out.WriteString("○ ")
		}
	}
	out.WriteString("\n\n")

	// Position strip across the loop's slots.
	if m.slots > 0 {
		for s := 0; s < m.slots; s++ {
			if s == st.Position {
				out.WriteString("▶")
			} else {
				out.WriteString("·")
			}
		}
		out.WriteString("\n\n")
	}

	if m.Matcher != nil {
		status := "off"
		if m.Matcher.Enabled() {
			status = "on"
		}
		acc := 0.0
		if m.Session != nil {
			acc = m.Session.LastAccuracy()
		}
		out.WriteString(fmt.Sprintf("practice:%s  accuracy:%3.0f%%", status, acc*100))
		if m.Trainer != nil {
			out.WriteString(fmt.Sprintf("  trainer:%3.0fbpm best:%3.0f", m.Trainer.BPM(), m.Trainer.Best()))
			if m.Trainer.Complete() {
				out.WriteString("  " + goodStyle.Render("target reached"))
			}
		}
		out.WriteString("\n\n")

		for _, h := range m.Matcher.RecentHits(recentHits) {
			out.WriteString(renderHit(h, goodStyle, badStyle))
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}

	out.WriteString(dimStyle.Render("space:play/stop  +/-:tempo  c:click  m:practice  q:quit"))
	return out.String()
}

func renderHit(h practice.Hit, good, bad lipgloss.Style) string {
	if h.Expected == nil || math.IsInf(h.AbsErr, 1) {
		return bad.Render("  extra hit")
	}
	side := "late"
	if h.Early {
		side = "early"
	}
	line := fmt.Sprintf("  %-9s %+5.0fms %s", h.Voice, h.Err*1000, side)
	if h.Perfect {
		return good.Render(line + "  perfect")
	}
	if h.Matched {
		return good.Render(line)
	}
	return bad.Render(line + "  missed window")
}
