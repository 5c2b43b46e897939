package pattern

import (
	"fmt"
	"strings"
)

// Voice identifies a drum voice. Tokens are resolved to this closed set
// once at pattern ingestion; nothing downstream re-parses strings.
type Voice uint8

const (
	VoiceNone Voice = iota
	VoiceKick
	VoiceSnare
	VoiceHiHat
	VoiceOpenHiHat
	VoiceRide
	VoiceCrash
	VoiceTomHigh
	VoiceTomMid
	VoiceTomLow
	VoiceClick // metronome, never produced by token parsing
)

// voiceCodes maps external token codes to voices. Two-letter tom codes
// fold to the single internal tom variants here, at parse time.
var voiceCodes = map[string]Voice{
	"K":  VoiceKick,
	"S":  VoiceSnare,
	"H":  VoiceHiHat,
	"HH": VoiceHiHat,
	"O":  VoiceOpenHiHat,
	"OH": VoiceOpenHiHat,
	"RD": VoiceRide,
	"C":  VoiceCrash,
	"CR": VoiceCrash,
	"T1": VoiceTomHigh,
	"T2": VoiceTomMid,
	"FT": VoiceTomLow,
}

var voiceNames = map[Voice]string{
	VoiceNone:      "none",
	VoiceKick:      "kick",
	VoiceSnare:     "snare",
	VoiceHiHat:     "hihat",
	VoiceOpenHiHat: "openhihat",
	VoiceRide:      "ride",
	VoiceCrash:     "crash",
	VoiceTomHigh:   "tom1",
	VoiceTomMid:    "tom2",
	VoiceTomLow:    "floortom",
	VoiceClick:     "click",
}

func (v Voice) String() string {
	if name, ok := voiceNames[v]; ok {
		return name
	}
	return fmt.Sprintf("voice(%d)", uint8(v))
}

// VoiceByName resolves a voice from its long name ("kick", "snare",
// ...), as used by the voice→MIDI-note table in the config file.
func VoiceByName(name string) (Voice, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for v, n := range voiceNames {
		if n == name && v != VoiceNone {
			return v, true
		}
	}
	return VoiceNone, false
}

// ParseVoice resolves a single voice code (case-insensitive).
func ParseVoice(code string) (Voice, error) {
	v, ok := voiceCodes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return VoiceNone, fmt.Errorf("unknown voice code %q", code)
	}
	return v, nil
}

// Dynamic classifies how hard a note is meant to be played.
type Dynamic uint8

const (
	DynamicNormal Dynamic = iota
	DynamicGhost
	DynamicAccent
)

func (d Dynamic) String() string {
	switch d {
	case DynamicGhost:
		return "ghost"
	case DynamicAccent:
		return "accent"
	default:
		return "normal"
	}
}

// Stroke is one voice within a token, with its dynamic markup resolved.
type Stroke struct {
	Voice   Voice
	Dynamic Dynamic
}

// Token is one subdivision slot: either a rest or a set of simultaneous
// strokes (a flam like "K+S" is one token with two strokes).
type Token struct {
	Strokes []Stroke
}

// Rest reports whether the slot is silent.
func (t Token) Rest() bool {
	return len(t.Strokes) == 0
}

// RestToken is the canonical silent slot.
var RestToken = Token{}

// ParseToken parses one voicing token. "-" and the legacy "R" are rest
// markers. "+" joins simultaneous voices. "(S)" or "gS" marks a ghost
// stroke, ">S" an accented one.
func ParseToken(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "R") {
		return RestToken, nil
	}

	var tok Token
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		dyn := DynamicNormal
		if strings.HasPrefix(part, "(") && strings.HasSuffix(part, ")") {
			dyn = DynamicGhost
			part = part[1 : len(part)-1]
		} else if strings.HasPrefix(part, "g") {
			dyn = DynamicGhost
			part = part[1:]
		} else if strings.HasPrefix(part, ">") {
			dyn = DynamicAccent
			part = part[1:]
		}
		v, err := ParseVoice(part)
		if err != nil {
			return Token{}, err
		}
		tok.Strokes = append(tok.Strokes, Stroke{Voice: v, Dynamic: dyn})
	}
	return tok, nil
}

// ParseTokens parses a whitespace-separated token sequence like
// "K - S (S)+H >S".
func ParseTokens(s string) ([]Token, error) {
	fields := strings.Fields(s)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		tok, err := ParseToken(f)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
