package practice

import (
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"drumpractice/pattern"
	"drumpractice/schedule"
)

// doubleHitTolerance lets a hit land on an already-matched note when it
// is this close, so genuine double-strokes on repeated notes are not
// all shoved onto later notes.
const doubleHitTolerance = 0.050

// MatcherConfig carries the timing and dynamic thresholds. All values
// are tunable; the defaults come from DefaultConfig in the config
// package.
type MatcherConfig struct {
	Window  float64 // accuracy window, seconds
	Perfect float64 // tight "perfect" threshold, seconds
	Latency float64 // input latency offset added to observed time, seconds

	// Microphone dynamic classification thresholds (input level 0..1).
	GhostLevel  float64
	AccentLevel float64
}

// Matcher assigns live input events to the nearest unmatched expected
// note. It owns the expected-note timeline exclusively; the player
// rebuilds it through SetNotes at every loop start.
type Matcher struct {
	mu      sync.Mutex
	cfg     MatcherConfig
	notes   []*schedule.ExpectedNote
	anchor  time.Time
	armed   bool
	countIn bool
	enabled bool
	hits    []Hit

	hitChan chan Hit
}

func NewMatcher(cfg MatcherConfig) *Matcher {
	return &Matcher{
		cfg:     cfg,
		hitChan: make(chan Hit, 32),
	}
}

// HitStream delivers every recorded hit to a UI subscriber. Events are
// dropped, not blocked on, when the subscriber lags.
func (m *Matcher) HitStream() <-chan Hit {
	return m.hitChan
}

// SetEnabled toggles practice mode. Input events are ignored while
// disabled.
func (m *Matcher) SetEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = on
}

func (m *Matcher) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// SetNotes replaces the expected-note timeline and resets all matched
// flags.
func (m *Matcher) SetNotes(notes []*schedule.ExpectedNote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	schedule.ResetMatches(notes)
	m.notes = notes
}

// SetAnchor establishes the time both playback and input share as
// loop-start. Hits arriving before an anchor exists are ignored.
func (m *Matcher) SetAnchor(anchor time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchor = anchor
	m.armed = true
}

// ClearAnchor disarms matching, run on stop.
func (m *Matcher) ClearAnchor() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

// SetCountIn gates matching during an active count-in window.
func (m *Matcher) SetCountIn(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countIn = active
}

// HandleMIDI processes a pad note-on. The caller has already filtered
// to note-on status with velocity > 0; channel is ignored.
func (m *Matcher) HandleMIDI(note, velocity uint8, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.gateLocked() {
		return
	}

	elapsed := at.Sub(m.anchor).Seconds() + m.cfg.Latency
	cand := m.nearestLocked(elapsed, func(n *schedule.ExpectedNote) bool {
		return n.MIDINote == note
	})

	h := m.classifyLocked(elapsed, cand)
	h.MIDINote = note
	h.Velocity = velocity
	if cand != nil {
		h.Voice = cand.Voice
	}
	m.recordLocked(h)
}

// HandleDetectedHit processes a microphone onset. The microphone
// cannot distinguish voices, so any unmatched expected note within the
// search window is eligible; dynamics are classified from the hit
// level and compared to the expected dynamic independently of timing.
func (m *Matcher) HandleDetectedHit(at time.Time, level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.gateLocked() {
		return
	}

	elapsed := at.Sub(m.anchor).Seconds() + m.cfg.Latency
	cand := m.nearestLocked(elapsed, func(*schedule.ExpectedNote) bool { return true })

	h := m.classifyLocked(elapsed, cand)
	h.Level = level
	h.Dynamic = m.classifyDynamicLocked(level)
	if cand != nil {
		h.Voice = cand.Voice
		h.DynamicMatch = h.Dynamic == cand.Dynamic
	}
	m.recordLocked(h)
}

// gateLocked applies the input preconditions: practice mode enabled,
// anchor established, count-in not active. Anything else is a timing
// race, silently ignored.
func (m *Matcher) gateLocked() bool {
	return m.enabled && m.armed && !m.countIn
}

// nearestLocked finds the globally-closest expected note of matching
// identity within 3x the accuracy window, skipping already-matched
// notes unless the candidate is within the double-hit tolerance.
func (m *Matcher) nearestLocked(elapsed float64, ident func(*schedule.ExpectedNote) bool) *schedule.ExpectedNote {
	searchWindow := 3 * m.cfg.Window
	var best *schedule.ExpectedNote
	bestDiff := math.Inf(1)

	for _, n := range m.notes {
		if !ident(n) {
			continue
		}
		d := math.Abs(elapsed - n.Offset)
		if d > searchWindow {
			continue
		}
		if n.Matched() && d > doubleHitTolerance {
			continue
		}
		if d < bestDiff {
			best = n
			bestDiff = d
		}
	}
	return best
}

// classifyLocked builds the hit record for a candidate (or the extra-
// hit record when there is none) and claims the note when matched.
func (m *Matcher) classifyLocked(elapsed float64, cand *schedule.ExpectedNote) Hit {
	if cand == nil {
		return Hit{
			Elapsed: elapsed,
			Err:     math.Inf(1),
			AbsErr:  math.Inf(1),
		}
	}

	err := elapsed - cand.Offset
	abs := math.Abs(err)
	h := Hit{
		Elapsed:  elapsed,
		Expected: cand,
		Err:      err,
		AbsErr:   abs,
		Early:    err < 0,
		Perfect:  abs <= math.Min(m.cfg.Perfect, m.cfg.Window/4),
		Matched:  abs <= m.cfg.Window,
	}
	if h.Matched {
		// At most one hit may claim a note; a double-hit keeps its
		// timing classification but cannot re-flag the note.
		cand.TryMatch()
	}
	return h
}

func (m *Matcher) classifyDynamicLocked(level float64) pattern.Dynamic {
	switch {
	case level >= m.cfg.AccentLevel:
		return pattern.DynamicAccent
	case level <= m.cfg.GhostLevel:
		return pattern.DynamicGhost
	default:
		return pattern.DynamicNormal
	}
}

// recordLocked appends the hit (always, matched or not) and publishes
// it to the stream.
func (m *Matcher) recordLocked(h Hit) {
	m.hits = append(m.hits, h)
	select {
	case m.hitChan <- h:
	default:
	}
	log.WithFields(log.Fields{
		"elapsed": h.Elapsed,
		"err":     h.Err,
		"matched": h.Matched,
	}).Debug("practice hit")
}

// Accuracy is matched expected notes over total, 0 with no timeline.
func (m *Matcher) Accuracy() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.notes) == 0 {
		return 0
	}
	matched := 0
	for _, n := range m.notes {
		if n.Matched() {
			matched++
		}
	}
	return float64(matched) / float64(len(m.notes))
}

// Hits returns a snapshot of all recorded hits.
func (m *Matcher) Hits() []Hit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Hit, len(m.hits))
	copy(out, m.hits)
	return out
}

// RecentHits returns up to n of the newest hits, oldest first.
func (m *Matcher) RecentHits(n int) []Hit {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.hits) {
		n = len(m.hits)
	}
	out := make([]Hit, n)
	copy(out, m.hits[len(m.hits)-n:])
	return out
}
