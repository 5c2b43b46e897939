package practice

import (
	"drumpractice/pattern"
	"drumpractice/schedule"
)

// Hit is one observed input event with its match outcome. Hits are
// append-only records of a practice session, never mutated after
// creation.
type Hit struct {
	// Elapsed is seconds since the loop anchor, latency-adjusted.
	Elapsed float64

	// Identity as resolved from the input device. MIDINote/Velocity
	// are set for pad input, Level for microphone input.
	MIDINote uint8
	Velocity uint8
	Level    float64
	Voice    pattern.Voice

	// Expected is the note this hit was assigned to, nil for an
	// unmatched "extra hit".
	Expected *schedule.ExpectedNote

	Err     float64 // signed, observed - expected; +Inf when Expected is nil
	AbsErr  float64
	Early   bool
	Perfect bool // within the tight threshold
	Matched bool // within the accuracy window

	// Microphone dynamics, independent of the timing match.
	Dynamic      pattern.Dynamic
	DynamicMatch bool
}
