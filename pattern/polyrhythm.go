package pattern

// PolyrhythmSide is one of the two independent rhythms in a polyrhythm:
// Count evenly spaced notes across the shared bar cycle.
type PolyrhythmSide struct {
	Count     int          `json:"count"`
	Voice     Voice        `json:"voice"`
	Accents   map[int]bool `json:"accents,omitempty"`
	Positions []int        `json:"positions,omitempty"` // subset of 0..Count-1 to play; empty = all
}

// Active reports whether position i of this side sounds.
func (s *PolyrhythmSide) Active(i int) bool {
	if len(s.Positions) == 0 {
		return true
	}
	for _, p := range s.Positions {
		if p == i {
			return true
		}
	}
	return false
}

// LearningMode stages a polyrhythm into three ordered practice phases:
// one rhythm alone, then the other alone, then both together.
type LearningMode struct {
	RightLoops    int `json:"rightLoops"`
	LeftLoops     int `json:"leftLoops"`
	TogetherLoops int `json:"togetherLoops"`
}

// PolyrhythmPattern is an Over:Under ratio sharing one bar cycle. The
// Under side defines the beat grid; the Over side crosses it.
type PolyrhythmPattern struct {
	Over     PolyrhythmSide `json:"over"`
	Under    PolyrhythmSide `json:"under"`
	Repeat   int            `json:"repeat"`
	Learning *LearningMode  `json:"learning,omitempty"`
}

// ApplyDefaults fills missing optional fields in place.
func (p *PolyrhythmPattern) ApplyDefaults() {
	if p.Repeat == 0 {
		p.Repeat = DefaultRepeat
	}
	if p.Over.Voice == VoiceNone {
		p.Over.Voice = VoiceRide
	}
	if p.Under.Voice == VoiceNone {
		p.Under.Voice = VoiceKick
	}
}

// CycleLength is the number of base-cycle repetitions after which the
// two rhythms realign: lcm(over, under). Consumed by alignment
// visualizations, not by the scheduler.
func (p *PolyrhythmPattern) CycleLength() int {
	return lcm(p.Over.Count, p.Under.Count)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
