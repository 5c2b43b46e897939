package pattern

import "fmt"

// Defaults applied when optional fields are missing. The engine consumes
// patterns from external authoring tools and only defends against gaps,
// it does not validate authoring intent.
const (
	DefaultBeats       = 4
	DefaultUnit        = 4
	DefaultSubdivision = 16
	DefaultRepeat      = 1
)

// TimeSig is a time signature: Beats per bar over a beat Unit.
type TimeSig struct {
	Beats int `json:"beats"`
	Unit  int `json:"unit"`
}

// BeatOverride supplies per-beat subdivision and voicing for advanced
// mode, where different beats need different note density.
type BeatOverride struct {
	Subdivision int     `json:"subdivision"` // notes in this beat
	Tokens      []Token `json:"tokens"`
}

// Pattern is one bar's declarative rhythm description.
//
// Tokens may be a short phrase that tiles evenly into the bar: a 4-token
// phrase over a 16-slot bar repeats 4 times, and Accents indices apply
// per phrase (accent 0 lands on slots 0, 4, 8, 12).
type Pattern struct {
	TimeSig     TimeSig        `json:"timeSig"`
	Subdivision int            `json:"subdivision"` // notes per whole bar span of one beat unit
	Tokens      []Token        `json:"tokens"`
	Accents     map[int]bool   `json:"accents,omitempty"`
	Repeat      int            `json:"repeat"`
	PerBeat     []BeatOverride `json:"perBeat,omitempty"` // advanced mode
}

// ApplyDefaults fills missing optional fields in place.
func (p *Pattern) ApplyDefaults() {
	if p.TimeSig.Beats == 0 {
		p.TimeSig.Beats = DefaultBeats
	}
	if p.TimeSig.Unit == 0 {
		p.TimeSig.Unit = DefaultUnit
	}
	if p.Subdivision == 0 {
		p.Subdivision = DefaultSubdivision
	}
	if p.Repeat == 0 {
		p.Repeat = DefaultRepeat
	}
}

// Advanced reports whether per-beat overrides are in effect.
func (p *Pattern) Advanced() bool {
	return len(p.PerBeat) > 0
}

// NotesPerBeat is the subdivision slot count for one beat.
func (p *Pattern) NotesPerBeat() int {
	if p.TimeSig.Unit == 0 {
		return 0
	}
	return p.Subdivision / p.TimeSig.Unit
}

// NotesPerBar is the total subdivision slot count for one bar, summing
// per-beat counts in advanced mode.
func (p *Pattern) NotesPerBar() int {
	if p.Advanced() {
		n := 0
		for _, b := range p.PerBeat {
			n += b.Subdivision
		}
		return n
	}
	return p.TimeSig.Beats * p.NotesPerBeat()
}

// Validate checks the token count against the bar's slot count. A token
// phrase that divides the bar evenly is accepted (it tiles).
func (p *Pattern) Validate() error {
	if p.Repeat < 1 {
		return fmt.Errorf("repeat must be >= 1, got %d", p.Repeat)
	}
	if p.Advanced() {
		if len(p.PerBeat) != p.TimeSig.Beats {
			return fmt.Errorf("advanced mode: %d beat overrides for %d beats", len(p.PerBeat), p.TimeSig.Beats)
		}
		for i, b := range p.PerBeat {
			if b.Subdivision < 1 {
				return fmt.Errorf("advanced mode: beat %d has subdivision %d", i, b.Subdivision)
			}
			if len(b.Tokens) != b.Subdivision {
				return fmt.Errorf("advanced mode: beat %d has %d tokens for %d slots", i, len(b.Tokens), b.Subdivision)
			}
		}
		return nil
	}
	n := p.NotesPerBar()
	if n < 1 {
		return fmt.Errorf("time signature %d/%d with subdivision %d yields no slots", p.TimeSig.Beats, p.TimeSig.Unit, p.Subdivision)
	}
	if len(p.Tokens) == 0 || n%len(p.Tokens) != 0 {
		return fmt.Errorf("%d tokens do not tile a %d-slot bar", len(p.Tokens), n)
	}
	return nil
}

// Bar expands the token phrase into one full bar of slots with per-slot
// accent flags. In advanced mode the per-beat tokens are concatenated.
func (p *Pattern) Bar() ([]Token, []bool) {
	if p.Advanced() {
		var tokens []Token
		for _, b := range p.PerBeat {
			tokens = append(tokens, b.Tokens...)
		}
		accents := make([]bool, len(tokens))
		for i := range tokens {
			accents[i] = p.Accents[i]
		}
		return tokens, accents
	}

	n := p.NotesPerBar()
	phrase := len(p.Tokens)
	tokens := make([]Token, n)
	accents := make([]bool, n)
	for i := 0; i < n; i++ {
		tokens[i] = p.Tokens[i%phrase]
		accents[i] = p.Accents[i%phrase]
	}
	return tokens, accents
}

// AllRests reports whether no slot in the bar carries a stroke. Such a
// pattern still occupies time when compiled (a silent bar).
func (p *Pattern) AllRests() bool {
	tokens, _ := p.Bar()
	for _, t := range tokens {
		if !t.Rest() {
			return false
		}
	}
	return true
}
