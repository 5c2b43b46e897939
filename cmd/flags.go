package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"drumpractice/config"
	"drumpractice/pattern"
	"drumpractice/schedule"
)

// patternFlags are the playback inputs shared by play and practice.
type patternFlags struct {
	bpm      int
	beats    int
	unit     int
	subdiv   int
	repeat   int
	accents  string
	poly     string
	learn    string
	click    string
	noDrums  bool
	metro    bool
	backward bool

	loops     int
	infinite  bool
	countIn   bool
	rampStart int
	rampEnd   int
	rampSteps int

	sampleDir string
}

func (f *patternFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.bpm, "bpm", 0, "tempo (default from config)")
	cmd.Flags().IntVar(&f.beats, "beats", pattern.DefaultBeats, "time signature beats")
	cmd.Flags().IntVar(&f.unit, "unit", pattern.DefaultUnit, "time signature beat unit")
	cmd.Flags().IntVar(&f.subdiv, "subdiv", pattern.DefaultSubdivision, "subdivision slots per bar span (16=sixteenths, 12=triplets, 24=sextuplets)")
	cmd.Flags().IntVar(&f.repeat, "repeat", pattern.DefaultRepeat, "bar repeat count")
	cmd.Flags().StringVar(&f.accents, "accents", "", "comma-separated accent indices, per token phrase")
	cmd.Flags().StringVar(&f.poly, "poly", "", "polyrhythm ratio, e.g. 3:2")
	cmd.Flags().StringVar(&f.learn, "learn", "", "polyrhythm learning loops right:left:together, e.g. 2:2:4")
	cmd.Flags().StringVar(&f.click, "click", string(schedule.ClickBeats), "click mode: beats|subdivision|accents|none")
	cmd.Flags().BoolVar(&f.noDrums, "no-drums", false, "disable drum sounds")
	cmd.Flags().BoolVar(&f.metro, "metronome-only", false, "clicks only, no drum sounds")
	cmd.Flags().BoolVar(&f.backward, "backwards", false, "play the sequence in reverse")

	cmd.Flags().IntVar(&f.loops, "loops", 4, "loop count")
	cmd.Flags().BoolVar(&f.infinite, "infinite", false, "loop until stopped")
	cmd.Flags().BoolVar(&f.countIn, "count-in", true, "four-click count-in before the first loop")
	cmd.Flags().IntVar(&f.rampStart, "ramp-start", 0, "tempo ramp start BPM")
	cmd.Flags().IntVar(&f.rampEnd, "ramp-end", 0, "tempo ramp end BPM")
	cmd.Flags().IntVar(&f.rampSteps, "ramp-steps", 0, "loops across which the ramp runs")

	cmd.Flags().StringVar(&f.sampleDir, "samples", "", "drum sample directory (default from config)")
}

// defaultTokens is the fallback groove when no tokens are given.
const defaultTokens = "K H S H"

// buildRequest turns flags plus token args into a compile request.
func (f *patternFlags) buildRequest(args []string, cfg *config.Config) (schedule.CompileRequest, error) {
	tokenStr := defaultTokens
	if len(args) > 0 {
		tokenStr = strings.Join(args, " ")
	}
	tokens, err := pattern.ParseTokens(tokenStr)
	if err != nil {
		return schedule.CompileRequest{}, err
	}

	accents, err := parseIndexSet(f.accents)
	if err != nil {
		return schedule.CompileRequest{}, fmt.Errorf("accents: %w", err)
	}

	p := pattern.Pattern{
		TimeSig:     pattern.TimeSig{Beats: f.beats, Unit: f.unit},
		Subdivision: f.subdiv,
		Tokens:      tokens,
		Accents:     accents,
		Repeat:      f.repeat,
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return schedule.CompileRequest{}, err
	}

	req := schedule.CompileRequest{
		Patterns:      []pattern.Pattern{p},
		BPM:           float64(f.effectiveBPM(cfg)),
		Backwards:     f.backward,
		Click:         schedule.ClickMode(f.click),
		DrumSounds:    !f.noDrums,
		MetronomeOnly: f.metro,
	}

	if f.poly != "" {
		poly, err := parsePoly(f.poly, f.learn)
		if err != nil {
			return schedule.CompileRequest{}, err
		}
		req.Polyrhythms = []pattern.PolyrhythmPattern{poly}
	}
	return req, nil
}

func (f *patternFlags) effectiveBPM(cfg *config.Config) int {
	if f.bpm > 0 {
		return f.bpm
	}
	return cfg.DefaultBPM
}

func (f *patternFlags) ramp() *schedule.Ramp {
	if f.rampSteps <= 0 || f.rampStart <= 0 || f.rampEnd <= 0 {
		return nil
	}
	return &schedule.Ramp{
		Start: float64(f.rampStart),
		End:   float64(f.rampEnd),
		Steps: f.rampSteps,
	}
}

func parseIndexSet(s string) (map[int]bool, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[i] = true
	}
	return out, nil
}

func parsePoly(ratio, learn string) (pattern.PolyrhythmPattern, error) {
	var poly pattern.PolyrhythmPattern
	parts := strings.Split(ratio, ":")
	if len(parts) != 2 {
		return poly, fmt.Errorf("polyrhythm ratio %q: want over:under", ratio)
	}
	over, err1 := strconv.Atoi(parts[0])
	under, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || over < 1 || under < 1 {
		return poly, fmt.Errorf("polyrhythm ratio %q: want positive over:under", ratio)
	}
	poly.Over.Count = over
	poly.Under.Count = under
	poly.ApplyDefaults()

	if learn != "" {
		parts := strings.Split(learn, ":")
		if len(parts) != 3 {
			return poly, fmt.Errorf("learning loops %q: want right:left:together", learn)
		}
		r, err1 := strconv.Atoi(parts[0])
		l, err2 := strconv.Atoi(parts[1])
		tg, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return poly, fmt.Errorf("learning loops %q: want right:left:together", learn)
		}
		poly.Learning = &pattern.LearningMode{RightLoops: r, LeftLoops: l, TogetherLoops: tg}
	}
	return poly, nil
}
