package practice

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"drumpractice/player"
	"drumpractice/schedule"
)

// ProjectFunc rebuilds the expected-note timeline at a given tempo.
// The session calls it at every loop start so the matcher always sees
// the timeline that matches the loop actually playing.
type ProjectFunc func(bpm float64) ([]*schedule.ExpectedNote, error)

// Session wires the player, matcher and trainer together for one
// practice run and accumulates its results. A session is transient,
// memory-resident state; nothing survives a restart.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	mu         sync.Mutex
	accuracies []float64 // one per completed loop

	matcher *Matcher
	trainer *Trainer
	player  *player.Player
	project ProjectFunc
}

// NewSession hooks the practice subsystem into the player's loop
// lifecycle.
func NewSession(p *player.Player, m *Matcher, t *Trainer, project ProjectFunc) *Session {
	s := &Session{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		matcher:   m,
		trainer:   t,
		player:    p,
		project:   project,
	}
	p.SetHooks(player.Hooks{
		CountingIn: s.onCountIn,
		LoopStart:  s.onLoopStart,
		LoopEnd:    s.onLoopEnd,
		Finished:   s.onFinished,
		Stopped:    s.onStopped,
	})
	return s
}

// onCountIn holds matching while the count-in clicks play, so early
// warm-up strikes are not scored against loop 0.
func (s *Session) onCountIn(active bool) {
	s.matcher.SetCountIn(active)
}

func (s *Session) onLoopStart(anchor time.Time, loop int, bpm float64) {
	notes, err := s.project(bpm)
	if err != nil {
		log.Warn("projection failed: ", err)
		notes = nil
	}
	s.matcher.SetNotes(notes)
	s.matcher.SetAnchor(anchor)
}

func (s *Session) onLoopEnd(loop int) {
	acc := s.matcher.Accuracy()
	s.mu.Lock()
	s.accuracies = append(s.accuracies, acc)
	s.mu.Unlock()

	s.trainer.OnLoopEnd(acc, s.matcher.Enabled())
	if s.matcher.Enabled() {
		// Only the trainer adjusts tempo mid-run; a plain metronome
		// session keeps whatever the user set.
		s.player.SetBPM(s.trainer.BPM())
	}
	log.WithFields(log.Fields{"loop": loop, "accuracy": acc}).Debug("loop boundary")
}

func (s *Session) onFinished() {
	log.WithFields(log.Fields{
		"session": s.ID,
		"loops":   len(s.Accuracies()),
		"best":    s.trainer.Best(),
	}).Info("session complete")
}

func (s *Session) onStopped() {
	s.matcher.ClearAnchor()
}

// Accuracies returns the per-loop accuracy history, oldest first.
func (s *Session) Accuracies() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.accuracies))
	copy(out, s.accuracies)
	return out
}

// LastAccuracy returns the most recent loop accuracy, 0 before any
// loop completes.
func (s *Session) LastAccuracy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.accuracies) == 0 {
		return 0
	}
	return s.accuracies[len(s.accuracies)-1]
}
