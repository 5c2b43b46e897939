package schedule

import (
	"sync/atomic"

	"drumpractice/pattern"
)

// NoteMap resolves drum voices to MIDI note numbers for matching
// electronic-pad input.
type NoteMap map[pattern.Voice]uint8

// ExpectedNote is a compiled, time-stamped identity for matching live
// performer input. Owned by the matching subsystem; rebuilt whenever
// patterns or tempo change.
type ExpectedNote struct {
	Offset   float64 // seconds from loop start
	Voice    pattern.Voice
	MIDINote uint8
	Dynamic  pattern.Dynamic
	Index    int

	matched atomic.Bool
}

// Matched reports whether a hit has already claimed this note.
func (n *ExpectedNote) Matched() bool {
	return n.matched.Load()
}

// TryMatch claims the note. Exactly one caller wins: two
// near-simultaneous hits racing for the same note cannot both succeed.
func (n *ExpectedNote) TryMatch() bool {
	return n.matched.CompareAndSwap(false, true)
}

// Project derives the matching timeline from the same patterns and
// tempo as Compile, using identical timing math. Each non-rest slot
// yields one ExpectedNote per stroke; metronome clicks never appear.
// Deterministic: identical inputs produce identical output.
func Project(patterns []pattern.Pattern, polys []pattern.PolyrhythmPattern, bpm float64, notes NoteMap) ([]*ExpectedNote, error) {
	events, _, err := layout(patterns, polys, bpm, nil)
	if err != nil {
		return nil, err
	}

	var out []*ExpectedNote
	for _, ev := range events {
		for _, st := range ev.strokes {
			dyn := st.Dynamic
			if ev.accent && dyn == pattern.DynamicNormal {
				dyn = pattern.DynamicAccent
			}
			out = append(out, &ExpectedNote{
				Offset:   ev.offset,
				Voice:    st.Voice,
				MIDINote: notes[st.Voice],
				Dynamic:  dyn,
				Index:    len(out),
			})
		}
	}
	return out, nil
}

// ResetMatches clears matched flags, run on every playback restart and
// loop boundary.
func ResetMatches(notes []*ExpectedNote) {
	for _, n := range notes {
		n.matched.Store(false)
	}
}
