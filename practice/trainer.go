package practice

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"drumpractice/schedule"
)

// TrainerConfig parameterizes adaptive tempo increase.
type TrainerConfig struct {
	StartBPM          float64
	TargetBPM         float64
	Increment         float64 // BPM added per step
	BarsPerStep       int     // accurate bars required before a step
	AccuracyThreshold float64 // 0..1
}

// Trainer raises the tempo as the performer proves accurate at the
// current one. It consumes accuracy at loop boundaries and drives the
// player's per-loop BPM.
type Trainer struct {
	mu          sync.Mutex
	cfg         TrainerConfig
	bpm         float64
	barsAtTempo int
	best        float64

	// onStep fires outside the loop hot path when the tempo changes,
	// e.g. to persist the best BPM.
	onStep func(bpm float64)
}

func NewTrainer(cfg TrainerConfig) *Trainer {
	bpm := schedule.ClampBPM(cfg.StartBPM)
	return &Trainer{cfg: cfg, bpm: bpm, best: bpm}
}

// SetOnStep registers a callback for tempo increases.
func (t *Trainer) SetOnStep(fn func(bpm float64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStep = fn
}

// OnLoopEnd consumes one loop boundary. Without active practice mode
// there is no accuracy signal and progression is unconditional. An
// inaccurate bar resets the counter without touching the tempo.
func (t *Trainer) OnLoopEnd(accuracy float64, practiceActive bool) {
	t.mu.Lock()

	if practiceActive && accuracy < t.cfg.AccuracyThreshold {
		t.barsAtTempo = 0
		t.mu.Unlock()
		return
	}

	t.barsAtTempo++
	if t.barsAtTempo < t.cfg.BarsPerStep {
		t.mu.Unlock()
		return
	}

	t.barsAtTempo = 0
	next := t.bpm + t.cfg.Increment
	if next > t.cfg.TargetBPM {
		next = t.cfg.TargetBPM
	}
	t.bpm = schedule.ClampBPM(next)
	if t.bpm > t.best {
		t.best = t.bpm
	}
	step := t.onStep
	bpm := t.bpm
	t.mu.Unlock()

	log.WithFields(log.Fields{"bpm": bpm}).Debug("trainer tempo step")
	if step != nil {
		step(bpm)
	}
}

// BPM is the current target tempo for the next loop.
func (t *Trainer) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

// Best is the highest tempo reached this session.
func (t *Trainer) Best() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.best
}

// Complete reports whether the target tempo has been reached.
func (t *Trainer) Complete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm >= t.cfg.TargetBPM
}

// BarsAtTempo is the progress toward the next step.
func (t *Trainer) BarsAtTempo() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.barsAtTempo
}
