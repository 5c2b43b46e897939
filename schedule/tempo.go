package schedule

// Playable BPM range. Matches the range the playback controls clamp to.
const (
	MinBPM = 20
	MaxBPM = 300
)

// ClampBPM clamps a tempo into the playable range.
func ClampBPM(bpm float64) float64 {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// Ramp describes a tempo ramp applied across successive loop
// iterations: linear interpolation from Start to End over Steps loops.
type Ramp struct {
	Start float64
	End   float64
	Steps int
}

// BPM returns the clamped tempo for a loop index. Loop 0 is Start,
// loops at or beyond Steps are End, values between are linear.
func (r Ramp) BPM(loop int) float64 {
	if loop <= 0 {
		return ClampBPM(r.Start)
	}
	if loop >= r.Steps {
		return ClampBPM(r.End)
	}
	frac := float64(loop) / float64(r.Steps)
	return ClampBPM(r.Start + (r.End-r.Start)*frac)
}
