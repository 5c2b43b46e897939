package practice

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"drumpractice/pattern"
	"drumpractice/schedule"
)

func testConfig() MatcherConfig {
	return MatcherConfig{
		Window:      0.050,
		Perfect:     0.020,
		GhostLevel:  0.15,
		AccentLevel: 0.6,
	}
}

// armedMatcher returns a matcher with the given expected notes, an
// anchor, and practice mode on.
func armedMatcher(notes []*schedule.ExpectedNote) (*Matcher, time.Time) {
	m := NewMatcher(testConfig())
	m.SetNotes(notes)
	anchor := time.Now()
	m.SetAnchor(anchor)
	m.SetEnabled(true)
	return m, anchor
}

func snareAt(offset float64) *schedule.ExpectedNote {
	return &schedule.ExpectedNote{
		Offset:   offset,
		Voice:    pattern.VoiceSnare,
		MIDINote: 38,
		Dynamic:  pattern.DynamicNormal,
	}
}

func TestMIDIHitTenMsLate(t *testing.T) {
	// The reference case: expected at 500ms, hit at 510ms, window
	// 50ms, perfect threshold 20ms.
	assert := assert.New(t)

	note := snareAt(0.500)
	m, anchor := armedMatcher([]*schedule.ExpectedNote{note})
	m.HandleMIDI(38, 100, anchor.Add(510*time.Millisecond))

	hits := m.Hits()
	assert.Len(hits, 1)
	h := hits[0]
	assert.Same(note, h.Expected)
	assert.InDelta(0.010, h.Err, 0.001)
	assert.False(h.Early)
	assert.True(h.Matched)
	assert.True(h.Perfect)
	assert.True(note.Matched())
}

func TestMIDIHitEarly(t *testing.T) {
	assert := assert.New(t)

	note := snareAt(0.500)
	m, anchor := armedMatcher([]*schedule.ExpectedNote{note})
	m.HandleMIDI(38, 100, anchor.Add(460*time.Millisecond))

	h := m.Hits()[0]
	assert.True(h.Early)
	assert.True(h.Matched)
	assert.False(h.Perfect, "40ms is outside min(perfect, window/4)")
}

func TestMIDIExtraHit(t *testing.T) {
	assert := assert.New(t)

	m, anchor := armedMatcher([]*schedule.ExpectedNote{snareAt(0.500)})
	// Way outside the 150ms search window.
	m.HandleMIDI(38, 100, anchor.Add(900*time.Millisecond))

	hits := m.Hits()
	assert.Len(hits, 1, "extra hits are recorded, not discarded")
	h := hits[0]
	assert.Nil(h.Expected)
	assert.False(h.Matched)
	assert.True(math.IsInf(h.AbsErr, 1))
}

func TestMIDIIdentityConstraint(t *testing.T) {
	assert := assert.New(t)

	note := snareAt(0.500)
	m, anchor := armedMatcher([]*schedule.ExpectedNote{note})
	// A kick hit cannot claim a snare note, however close in time.
	m.HandleMIDI(36, 100, anchor.Add(505*time.Millisecond))

	h := m.Hits()[0]
	assert.Nil(h.Expected)
	assert.False(note.Matched())
}

func TestMIDIPicksGloballyClosest(t *testing.T) {
	assert := assert.New(t)

	a := snareAt(0.400)
	b := snareAt(0.500)
	m, anchor := armedMatcher([]*schedule.ExpectedNote{a, b})
	m.HandleMIDI(38, 100, anchor.Add(470*time.Millisecond))

	h := m.Hits()[0]
	assert.Same(b, h.Expected)
	assert.True(b.Matched())
	assert.False(a.Matched())
}

func TestMIDISkipsMatchedUnlessDoubleHit(t *testing.T) {
	assert := assert.New(t)

	a := snareAt(0.500)
	b := snareAt(0.600)
	m, anchor := armedMatcher([]*schedule.ExpectedNote{a, b})

	m.HandleMIDI(38, 100, anchor.Add(500*time.Millisecond))
	assert.True(a.Matched())

	// Second strike 30ms after the matched note: within the double-hit
	// tolerance, so it still reports against a, not b.
	m.HandleMIDI(38, 100, anchor.Add(530*time.Millisecond))
	h := m.Hits()[1]
	assert.Same(a, h.Expected)
	assert.False(b.Matched(), "double hit must not steal the next note")

	// A strike past the tolerance goes to the next unmatched note.
	m.HandleMIDI(38, 90, anchor.Add(580*time.Millisecond))
	h = m.Hits()[2]
	assert.Same(b, h.Expected)
	assert.True(b.Matched())
}

func TestMatcherGates(t *testing.T) {
	assert := assert.New(t)

	note := snareAt(0.100)
	m := NewMatcher(testConfig())
	m.SetNotes([]*schedule.ExpectedNote{note})
	now := time.Now()

	// Disabled.
	m.HandleMIDI(38, 100, now)
	assert.Empty(m.Hits())

	// Enabled but no anchor yet: a timing race, silently ignored.
	m.SetEnabled(true)
	m.HandleMIDI(38, 100, now)
	assert.Empty(m.Hits())

	// Anchored but counting in.
	m.SetAnchor(now)
	m.SetCountIn(true)
	m.HandleMIDI(38, 100, now.Add(100*time.Millisecond))
	assert.Empty(m.Hits())

	m.SetCountIn(false)
	m.HandleMIDI(38, 100, now.Add(100*time.Millisecond))
	assert.Len(m.Hits(), 1)
}

func TestLatencyOffsetApplied(t *testing.T) {
	assert := assert.New(t)

	cfg := testConfig()
	cfg.Latency = -0.010
	m := NewMatcher(cfg)
	note := snareAt(0.500)
	m.SetNotes([]*schedule.ExpectedNote{note})
	anchor := time.Now()
	m.SetAnchor(anchor)
	m.SetEnabled(true)

	m.HandleMIDI(38, 100, anchor.Add(510*time.Millisecond))
	h := m.Hits()[0]
	assert.InDelta(0, h.Err, 0.001, "latency offset cancels the transport delay")
}

func TestMicMatchesAnyVoice(t *testing.T) {
	assert := assert.New(t)

	note := snareAt(0.500)
	m, anchor := armedMatcher([]*schedule.ExpectedNote{note})
	// The microphone carries no pitch identity.
	m.HandleDetectedHit(anchor.Add(505*time.Millisecond), 0.4)

	h := m.Hits()[0]
	assert.Same(note, h.Expected)
	assert.True(h.Matched)
	assert.Equal(pattern.DynamicNormal, h.Dynamic)
	assert.True(h.DynamicMatch)
}

func TestMicDynamicClassification(t *testing.T) {
	assert := assert.New(t)

	ghost := snareAt(0.500)
	ghost.Dynamic = pattern.DynamicGhost
	m, anchor := armedMatcher([]*schedule.ExpectedNote{ghost})

	// An accented strike on an expected ghost: timing matches,
	// dynamics do not.
	m.HandleDetectedHit(anchor.Add(500*time.Millisecond), 0.9)
	h := m.Hits()[0]
	assert.True(h.Matched)
	assert.Equal(pattern.DynamicAccent, h.Dynamic)
	assert.False(h.DynamicMatch)
}

func TestConcurrentHitsMatchNoteAtMostOnce(t *testing.T) {
	assert := assert.New(t)

	note := snareAt(0.500)
	m, anchor := armedMatcher([]*schedule.ExpectedNote{note})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.HandleMIDI(38, 100, anchor.Add(500*time.Millisecond))
		}()
	}
	wg.Wait()

	assert.Len(m.Hits(), 16, "every hit is recorded")
	assert.True(note.Matched())
	assert.InDelta(1.0, m.Accuracy(), 1e-9, "one note, matched once")
}

func TestAccuracy(t *testing.T) {
	assert := assert.New(t)

	notes := []*schedule.ExpectedNote{snareAt(0.1), snareAt(0.2), snareAt(0.3), snareAt(0.4)}
	m, anchor := armedMatcher(notes)

	m.HandleMIDI(38, 100, anchor.Add(100*time.Millisecond))
	m.HandleMIDI(38, 100, anchor.Add(300*time.Millisecond))
	assert.InDelta(0.5, m.Accuracy(), 1e-9)

	m.SetNotes(notes) // loop boundary: flags reset
	assert.InDelta(0, m.Accuracy(), 1e-9)
}
