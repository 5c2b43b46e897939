package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"drumpractice/config"
	"drumpractice/midiin"
	"drumpractice/pattern"
	"drumpractice/practice"
	"drumpractice/schedule"
	"drumpractice/tui"
)

var practiceFlags patternFlags

var (
	practicePort  string
	onsetStream   string
	windowMs      float64
	latencyMs     float64
	trainerOn     bool
	trainerTarget int
)

var practiceCmd = &cobra.Command{
	Use:   "practice [tokens...]",
	Short: "Play a pattern and score your hits against it",
	Long: `Practice plays the pattern like play does, and additionally matches
live input against the expected timeline: MIDI pad hits from the
configured input port, or microphone onsets read as JSON lines
({"type":"hit","time":<ms>,"level":<0..1>}) from --onset-stream.

There is no built-in microphone capture: onsets come from an external
analyzer writing to --onset-stream (a fifo works well). Without it,
only MIDI input is scored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		req, err := practiceFlags.buildRequest(args, cfg)
		if err != nil {
			return err
		}

		p, slots, err := newPlayer(&practiceFlags, cfg, req)
		if err != nil {
			return err
		}
		defer p.Close()

		matcher := practice.NewMatcher(matcherConfig(cfg))
		noteMap := buildNoteMap(cfg)
		project := func(bpm float64) ([]*schedule.ExpectedNote, error) {
			return schedule.Project(req.Patterns, req.Polyrhythms, bpm, noteMap)
		}

		trainer := practice.NewTrainer(trainerConfig(cfg, &practiceFlags))
		if trainerOn {
			p.SetBPM(trainer.BPM())
		}
		saver := config.NewSaver(cfg)
		trainer.SetOnStep(func(bpm float64) {
			saver.SetBestBPM(int(bpm))
		})

		session := practice.NewSession(p, matcher, trainer, project)
		matcher.SetEnabled(true)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		port := practicePort
		if port == "" {
			port = cfg.MIDIPortName
		}
		startMIDI(ctx, matcher, port)
		if onsetStream != "" {
			startOnsets(ctx, matcher, cfg, onsetStream)
		}

		model := tui.NewModel(p, slots, practiceFlags.beats, req.Click).
			WithPractice(matcher, trainer, session)
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	practiceFlags.register(practiceCmd)
	practiceCmd.Flags().StringVar(&practicePort, "midi-port", "", "MIDI input port substring (default from config)")
	practiceCmd.Flags().StringVar(&onsetStream, "onset-stream", "", "path to a microphone onset JSON stream (fifo or file)")
	practiceCmd.Flags().Float64Var(&windowMs, "window-ms", 0, "accuracy window override in ms")
	practiceCmd.Flags().Float64Var(&latencyMs, "latency-ms", 0, "input latency offset override in ms")
	practiceCmd.Flags().BoolVar(&trainerOn, "trainer", false, "enable adaptive tempo increase")
	practiceCmd.Flags().IntVar(&trainerTarget, "target-bpm", 0, "trainer target BPM override")
	rootCmd.AddCommand(practiceCmd)
}

func matcherConfig(cfg *config.Config) practice.MatcherConfig {
	mc := practice.MatcherConfig{
		Window:      cfg.Match.AccuracyWindowMs / 1000,
		Perfect:     cfg.Match.PerfectThresholdMs / 1000,
		Latency:     cfg.Match.LatencyOffsetMs / 1000,
		GhostLevel:  cfg.Mic.GhostLevel,
		AccentLevel: cfg.Mic.AccentLevel,
	}
	if windowMs > 0 {
		mc.Window = windowMs / 1000
	}
	if latencyMs != 0 {
		mc.Latency = latencyMs / 1000
	}
	return mc
}

func trainerConfig(cfg *config.Config, f *patternFlags) practice.TrainerConfig {
	tc := practice.TrainerConfig{
		StartBPM:          float64(cfg.Trainer.StartBPM),
		TargetBPM:         float64(cfg.Trainer.TargetBPM),
		Increment:         float64(cfg.Trainer.IncrementBPM),
		BarsPerStep:       cfg.Trainer.BarsPerStep,
		AccuracyThreshold: cfg.Trainer.AccuracyThreshold,
	}
	if f.bpm > 0 {
		tc.StartBPM = float64(f.bpm)
	}
	if trainerTarget > 0 {
		tc.TargetBPM = float64(trainerTarget)
	}
	return tc
}

func buildNoteMap(cfg *config.Config) schedule.NoteMap {
	m := make(schedule.NoteMap, len(cfg.NoteMap))
	for name, note := range cfg.NoteMap {
		if v, ok := pattern.VoiceByName(name); ok {
			m[v] = note
		}
	}
	return m
}

// startMIDI watches for the practice pad and feeds its note-ons to the
// matcher. The pad may appear or vanish at any time.
func startMIDI(ctx context.Context, matcher *practice.Matcher, port string) {
	watcher := midiin.NewWatcher(port)
	go watcher.Run(ctx)
	go func() {
		for ev := range watcher.Events() {
			if ev.Type != midiin.InputConnected {
				continue
			}
			go func(in *midiin.Input) {
				for note := range in.Events() {
					matcher.HandleMIDI(note.Note, note.Velocity, note.When)
				}
			}(ev.Input)
		}
	}()
}

// startOnsets connects the low-latency microphone path: JSON onset
// messages from an external analyzer, one per line.
func startOnsets(ctx context.Context, matcher *practice.Matcher, cfg *config.Config, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("onset stream unavailable: ", err)
		return
	}

	msgs := make(chan practice.OnsetMessage, 32)
	go func() {
		defer f.Close()
		defer close(msgs)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var msg practice.OnsetMessage
			if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
				continue
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	detector := practice.SelectDetector(matcher, msgs, time.Now(), nil, practice.OnsetConfig{
		TransientRatio: cfg.Mic.TransientRatio,
		MinLevel:       cfg.Mic.MinLevel,
		AbsThreshold:   cfg.Mic.AbsThreshold,
		Cooldown:       time.Duration(cfg.Mic.CooldownMs) * time.Millisecond,
		FastCooldown:   time.Duration(cfg.Mic.FastCooldownMs) * time.Millisecond,
		FastInterval:   time.Duration(cfg.Mic.FastIntervalMs) * time.Millisecond,
	})
	go detector.Run(ctx)
}
