package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTokenVoices(t *testing.T) {
	assert := assert.New(t)

	tok, err := ParseToken("K")
	assert.NoError(err)
	assert.Equal([]Stroke{{Voice: VoiceKick, Dynamic: DynamicNormal}}, tok.Strokes)

	tok, err = ParseToken("K+S")
	assert.NoError(err)
	assert.Len(tok.Strokes, 2)
	assert.Equal(VoiceKick, tok.Strokes[0].Voice)
	assert.Equal(VoiceSnare, tok.Strokes[1].Voice)

	_, err = ParseToken("X9")
	assert.Error(err)
}

func TestParseTokenRests(t *testing.T) {
	assert := assert.New(t)
	for _, s := range []string{"-", "R", "r"} {
		tok, err := ParseToken(s)
		assert.NoError(err)
		assert.True(tok.Rest(), "%q should be a rest", s)
	}
}

func TestParseTokenDynamics(t *testing.T) {
	assert := assert.New(t)

	tok, err := ParseToken("(S)")
	assert.NoError(err)
	assert.Equal(DynamicGhost, tok.Strokes[0].Dynamic)

	tok, err = ParseToken("gS")
	assert.NoError(err)
	assert.Equal(DynamicGhost, tok.Strokes[0].Dynamic)

	tok, err = ParseToken(">S")
	assert.NoError(err)
	assert.Equal(DynamicAccent, tok.Strokes[0].Dynamic)

	tok, err = ParseToken("K+(S)")
	assert.NoError(err)
	assert.Equal(DynamicNormal, tok.Strokes[0].Dynamic)
	assert.Equal(DynamicGhost, tok.Strokes[1].Dynamic)
}

func TestTomCodesFoldToInternalVoices(t *testing.T) {
	assert := assert.New(t)
	cases := map[string]Voice{
		"T1": VoiceTomHigh,
		"T2": VoiceTomMid,
		"FT": VoiceTomLow,
		"HH": VoiceHiHat,
		"OH": VoiceOpenHiHat,
	}
	for code, want := range cases {
		v, err := ParseVoice(code)
		assert.NoError(err)
		assert.Equal(want, v, code)
	}
}

func TestApplyDefaults(t *testing.T) {
	assert := assert.New(t)
	var p Pattern
	p.ApplyDefaults()
	assert.Equal(4, p.TimeSig.Beats)
	assert.Equal(4, p.TimeSig.Unit)
	assert.Equal(16, p.Subdivision)
	assert.Equal(1, p.Repeat)
}

func TestNotesPerBar(t *testing.T) {
	assert := assert.New(t)

	p := Pattern{TimeSig: TimeSig{Beats: 4, Unit: 4}, Subdivision: 16, Repeat: 1}
	assert.Equal(16, p.NotesPerBar())

	p = Pattern{TimeSig: TimeSig{Beats: 3, Unit: 4}, Subdivision: 12, Repeat: 1}
	assert.Equal(9, p.NotesPerBar())

	// Advanced mode sums per-beat counts.
	p = Pattern{
		TimeSig: TimeSig{Beats: 2, Unit: 4},
		Repeat:  1,
		PerBeat: []BeatOverride{
			{Subdivision: 4, Tokens: make([]Token, 4)},
			{Subdivision: 3, Tokens: make([]Token, 3)},
		},
	}
	assert.Equal(7, p.NotesPerBar())
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	tokens, err := ParseTokens("K H S H")
	assert.NoError(err)

	p := Pattern{TimeSig: TimeSig{Beats: 4, Unit: 4}, Subdivision: 16, Tokens: tokens, Repeat: 1}
	assert.NoError(p.Validate())

	// 5 tokens cannot tile a 16-slot bar.
	five, _ := ParseTokens("K H S H K")
	p.Tokens = five
	assert.Error(p.Validate())

	p.Tokens = tokens
	p.Repeat = 0
	assert.Error(p.Validate())
}

func TestBarTilesPhraseAndAccents(t *testing.T) {
	assert := assert.New(t)

	tokens, _ := ParseTokens("S S K S")
	p := Pattern{
		TimeSig:     TimeSig{Beats: 4, Unit: 4},
		Subdivision: 16,
		Tokens:      tokens,
		Accents:     map[int]bool{0: true},
		Repeat:      1,
	}
	bar, accents := p.Bar()
	assert.Len(bar, 16)
	for i := 0; i < 16; i++ {
		assert.Equal(i%4 == 0, accents[i], "accent at %d", i)
		assert.Equal(tokens[i%4].Strokes, bar[i].Strokes)
	}
}

func TestAllRests(t *testing.T) {
	assert := assert.New(t)

	rests, _ := ParseTokens("- - - -")
	p := Pattern{TimeSig: TimeSig{Beats: 4, Unit: 4}, Subdivision: 16, Tokens: rests, Repeat: 1}
	assert.True(p.AllRests())

	some, _ := ParseTokens("- - K -")
	p.Tokens = some
	assert.False(p.AllRests())
}

func TestPolyrhythmCycleLength(t *testing.T) {
	assert := assert.New(t)

	q := PolyrhythmPattern{Over: PolyrhythmSide{Count: 3}, Under: PolyrhythmSide{Count: 2}}
	assert.Equal(6, q.CycleLength())

	q = PolyrhythmPattern{Over: PolyrhythmSide{Count: 4}, Under: PolyrhythmSide{Count: 6}}
	assert.Equal(12, q.CycleLength())
}

func TestPolyrhythmSidePositions(t *testing.T) {
	assert := assert.New(t)

	s := PolyrhythmSide{Count: 4}
	assert.True(s.Active(0))
	assert.True(s.Active(3))

	s.Positions = []int{0, 2}
	assert.True(s.Active(0))
	assert.False(s.Active(1))
	assert.True(s.Active(2))
}
