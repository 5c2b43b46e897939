package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"drumpractice/player"
	"drumpractice/schedule"
)

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestClickReadoutMatchesStartingMode(t *testing.T) {
	assert := assert.New(t)

	p := player.New(player.NopSound{})
	t.Cleanup(p.Close)

	m := NewModel(p, 4, 4, schedule.ClickNone)
	assert.Contains(m.View(), "click:none")

	// Cycling advances from the starting mode, not from a fixed origin.
	updated, _ := m.Update(keyMsg('c'))
	m = updated.(Model)
	assert.Contains(m.View(), "click:beats")
}

func TestClickIndexUnknownModeFallsBack(t *testing.T) {
	assert.Equal(t, 0, clickIndex(schedule.ClickMode("bogus")))
	assert.Equal(t, 2, clickIndex(schedule.ClickAccents))
}
