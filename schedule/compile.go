package schedule

import (
	"fmt"
	"math"
	"sort"

	"drumpractice/pattern"
)

// ClickMode controls which compiled slots carry a metronome click.
type ClickMode string

const (
	ClickBeats       ClickMode = "beats"       // first slot of every beat
	ClickSubdivision ClickMode = "subdivision" // every non-rest slot
	ClickAccents     ClickMode = "accents"     // accented non-rest slots
	ClickNone        ClickMode = "none"
)

// MeasureRange restricts compilation to bars First..Last (0-based,
// inclusive), counted across pattern repeats. Excluded bars do not
// advance time, so the compiled loop stays contiguous.
type MeasureRange struct {
	First int
	Last  int
}

func (r *MeasureRange) contains(bar int) bool {
	if r == nil {
		return true
	}
	return bar >= r.First && bar <= r.Last
}

// CompileRequest is the full input to one loop's compilation.
type CompileRequest struct {
	Patterns      []pattern.Pattern
	Polyrhythms   []pattern.PolyrhythmPattern
	BPM           float64
	Backwards     bool
	Measures      *MeasureRange
	Click         ClickMode
	DrumSounds    bool
	MetronomeOnly bool
}

// ScheduledNote is one compiled, time-stamped trigger slot. Sounds may
// be empty (a silent slot still advances the playback position).
type ScheduledNote struct {
	Offset     float64 // seconds from loop start
	Sounds     []pattern.Voice
	OnBeat     bool
	Beat       int // 1-based beat number within the bar
	Index      int // global sequence index
	PatternIdx int
	Accent     bool
}

// Sequence is one fully compiled loop iteration. Never mutated in
// place: every playback start and loop boundary recompiles from
// scratch, because tempo ramping changes note durations between loops.
type Sequence struct {
	Notes    []ScheduledNote
	Duration float64 // total loop length in seconds
}

// slotEvent is the compiler-internal timeline item shared between
// Compile and Project so both always agree on timing math.
type slotEvent struct {
	offset  float64
	strokes []pattern.Stroke
	onBeat  bool
	beat    int
	accent  bool
	patIdx  int
}

// Compile turns patterns plus tempo parameters into the ordered
// ScheduledNote sequence for one loop. Pure function: no clock, no
// shared state.
func Compile(req CompileRequest) (Sequence, error) {
	events, total, err := layout(req.Patterns, req.Polyrhythms, req.BPM, req.Measures)
	if err != nil {
		return Sequence{}, err
	}

	drums := req.DrumSounds && !req.MetronomeOnly
	notes := make([]ScheduledNote, 0, len(events))
	for _, ev := range events {
		n := ScheduledNote{
			Offset:     ev.offset,
			OnBeat:     ev.onBeat,
			Beat:       ev.beat,
			PatternIdx: ev.patIdx,
			Accent:     ev.accent,
		}
		if clickFires(req.Click, ev) {
			n.Sounds = append(n.Sounds, pattern.VoiceClick)
		}
		if drums {
			for _, st := range ev.strokes {
				n.Sounds = append(n.Sounds, st.Voice)
			}
		}
		notes = append(notes, n)
	}

	if req.Backwards && len(notes) > 0 {
		notes = reverse(notes)
	}
	for i := range notes {
		notes[i].Index = i
	}
	return Sequence{Notes: notes, Duration: total}, nil
}

// clickFires applies the click-mode policy to one slot. A compound
// multi-voice slot gets at most one click.
func clickFires(mode ClickMode, ev slotEvent) bool {
	switch mode {
	case ClickBeats:
		// The metronome keeps ticking through rests.
		return ev.onBeat
	case ClickSubdivision:
		return len(ev.strokes) > 0
	case ClickAccents:
		return ev.accent && len(ev.strokes) > 0
	default:
		return false
	}
}

// reverse flips playback direction: order reversed and times re-offset
// so the last note becomes time 0. Applying it twice is the identity.
func reverse(notes []ScheduledNote) []ScheduledNote {
	last := notes[len(notes)-1].Offset
	out := make([]ScheduledNote, len(notes))
	for i, n := range notes {
		n.Offset = last - n.Offset
		out[len(notes)-1-i] = n
	}
	return out
}

// layout runs the cumulative-time cursor over patterns then
// polyrhythms and returns the forward-ordered slot events plus the
// total loop duration.
func layout(patterns []pattern.Pattern, polys []pattern.PolyrhythmPattern, bpm float64, measures *MeasureRange) ([]slotEvent, float64, error) {
	bpm = ClampBPM(bpm)
	beatDur := 60.0 / bpm

	var events []slotEvent
	cursor := 0.0
	bar := 0

	for pi := range patterns {
		p := patterns[pi] // copy so defaults don't mutate the caller's pattern
		p.ApplyDefaults()
		if err := p.Validate(); err != nil {
			return nil, 0, fmt.Errorf("pattern %d: %w", pi, err)
		}
		tokens, accents := p.Bar()

		for r := 0; r < p.Repeat; r++ {
			included := measures.contains(bar)
			bar++
			if !included {
				continue
			}
			evs, barDur := layoutBar(&p, tokens, accents, cursor, beatDur, pi)
			events = append(events, evs...)
			cursor += barDur
		}
	}

	for qi := range polys {
		q := polys[qi]
		q.ApplyDefaults()
		if q.Over.Count < 1 || q.Under.Count < 1 {
			return nil, 0, fmt.Errorf("polyrhythm %d: ratio %d:%d", qi, q.Over.Count, q.Under.Count)
		}
		patIdx := len(patterns) + qi
		cycleDur := float64(q.Under.Count) * beatDur

		for _, phase := range polyPhases(&q) {
			for l := 0; l < phase.loops; l++ {
				included := measures.contains(bar)
				bar++
				if !included {
					continue
				}
				events = append(events, layoutCycle(&q, phase, cursor, beatDur, cycleDur, patIdx)...)
				cursor += cycleDur
			}
		}
	}

	return events, cursor, nil
}

// layoutBar emits slot events for one bar of a standard pattern.
func layoutBar(p *pattern.Pattern, tokens []pattern.Token, accents []bool, start, beatDur float64, patIdx int) ([]slotEvent, float64) {
	events := make([]slotEvent, 0, len(tokens))

	if p.Advanced() {
		local := 0.0
		slot := 0
		for b, ov := range p.PerBeat {
			noteDur := beatDur / float64(ov.Subdivision)
			for s := 0; s < ov.Subdivision; s++ {
				events = append(events, slotEvent{
					offset:  start + local,
					strokes: tokens[slot].Strokes,
					onBeat:  s == 0,
					beat:    b + 1,
					accent:  accents[slot],
					patIdx:  patIdx,
				})
				local += noteDur
				slot++
			}
		}
		return events, float64(p.TimeSig.Beats) * beatDur
	}

	perBeat := p.NotesPerBeat()
	noteDur := beatDur / float64(perBeat)
	for s := range tokens {
		events = append(events, slotEvent{
			offset:  start + float64(s)*noteDur,
			strokes: tokens[s].Strokes,
			onBeat:  s%perBeat == 0,
			beat:    s/perBeat + 1,
			accent:  accents[s],
			patIdx:  patIdx,
		})
	}
	return events, float64(p.TimeSig.Beats) * beatDur
}

// polyPhase is one stage of a polyrhythm's schedule.
type polyPhase struct {
	over  bool
	under bool
	loops int
}

// polyPhases expands learning mode into its three ordered stages, or a
// single combined stage otherwise.
func polyPhases(q *pattern.PolyrhythmPattern) []polyPhase {
	if q.Learning == nil {
		return []polyPhase{{over: true, under: true, loops: q.Repeat}}
	}
	var phases []polyPhase
	if q.Learning.RightLoops > 0 {
		phases = append(phases, polyPhase{over: true, loops: q.Learning.RightLoops})
	}
	if q.Learning.LeftLoops > 0 {
		phases = append(phases, polyPhase{under: true, loops: q.Learning.LeftLoops})
	}
	if q.Learning.TogetherLoops > 0 {
		phases = append(phases, polyPhase{over: true, under: true, loops: q.Learning.TogetherLoops})
	}
	return phases
}

// layoutCycle emits one cycle of a polyrhythm phase. Coinciding over
// and under notes merge into a single compound slot.
func layoutCycle(q *pattern.PolyrhythmPattern, phase polyPhase, start, beatDur, cycleDur float64, patIdx int) []slotEvent {
	var events []slotEvent
	add := func(side *pattern.PolyrhythmSide, count int) {
		spacing := cycleDur / float64(count)
		for i := 0; i < count; i++ {
			if !side.Active(i) {
				continue
			}
			offset := start + float64(i)*spacing
			accent := side.Accents[i]
			dyn := pattern.DynamicNormal
			if accent {
				dyn = pattern.DynamicAccent
			}
			local := float64(i) * spacing
			events = append(events, slotEvent{
				offset:  offset,
				strokes: []pattern.Stroke{{Voice: side.Voice, Dynamic: dyn}},
				onBeat:  onBeatGrid(local, beatDur),
				beat:    int(local/beatDur) + 1,
				accent:  accent,
				patIdx:  patIdx,
			})
		}
	}
	if phase.over {
		add(&q.Over, q.Over.Count)
	}
	if phase.under {
		add(&q.Under, q.Under.Count)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].offset < events[j].offset })
	return mergeCoincident(events)
}

// onBeatGrid reports whether a local offset lands on the beat grid.
func onBeatGrid(local, beatDur float64) bool {
	_, frac := math.Modf(local/beatDur + 1e-9)
	return frac < 1e-6
}

// mergeCoincident folds events at (floating-point) identical offsets
// into one compound slot, so an aligned over+under strike is a single
// scheduling slot and cannot double-trigger a click.
func mergeCoincident(events []slotEvent) []slotEvent {
	const eps = 1e-9
	out := events[:0]
	for _, ev := range events {
		if len(out) > 0 && math.Abs(out[len(out)-1].offset-ev.offset) < eps {
			prev := &out[len(out)-1]
			prev.strokes = append(prev.strokes, ev.strokes...)
			prev.onBeat = prev.onBeat || ev.onBeat
			prev.accent = prev.accent || ev.accent
			continue
		}
		out = append(out, ev)
	}
	return out
}
