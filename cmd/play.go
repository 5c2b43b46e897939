package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"drumpractice/config"
	"drumpractice/player"
	"drumpractice/schedule"
	"drumpractice/tui"
)

var playFlags patternFlags

var playCmd = &cobra.Command{
	Use:   "play [tokens...]",
	Short: "Play a pattern with metronome clicks",
	Long: `Play compiles the given voicing tokens (default "` + defaultTokens + `")
into a timed schedule and loops it. Tokens: K S H O RD C T1 T2 FT,
"-" for a rest, "+" for simultaneous voices, "(S)" ghost, ">S" accent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		req, err := playFlags.buildRequest(args, cfg)
		if err != nil {
			return err
		}

		p, slots, err := newPlayer(&playFlags, cfg, req)
		if err != nil {
			return err
		}
		defer p.Close()

		model := tui.NewModel(p, slots, playFlags.beats, req.Click)
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	playFlags.register(playCmd)
	rootCmd.AddCommand(playCmd)
}

// newPlayer builds the audio output and scheduler from flags. The slot
// count of a reference compile sizes the TUI position strip.
func newPlayer(f *patternFlags, cfg *config.Config, req schedule.CompileRequest) (*player.Player, int, error) {
	seq, err := schedule.Compile(req)
	if err != nil {
		return nil, 0, err
	}
	if len(seq.Notes) == 0 {
		return nil, 0, fmt.Errorf("nothing to play: pattern compiled to zero notes")
	}

	sampleDir := f.sampleDir
	if sampleDir == "" {
		sampleDir = cfg.SampleDir
	}
	var sound player.Sound
	sampler, err := player.NewSampler(sampleDir)
	if err != nil {
		// No audio device is not fatal; scheduling and the position
		// display still run.
		log.Warn("audio unavailable: ", err)
		sound = player.NopSound{}
	} else {
		sound = sampler
	}

	p := player.New(sound)
	p.SetRequest(req)
	p.SetBPM(req.BPM)
	p.SetOptions(player.Options{
		CountIn:  f.countIn,
		Loops:    f.loops,
		Infinite: f.infinite,
		Ramp:     f.ramp(),
	})
	return p, len(seq.Notes), nil
}
