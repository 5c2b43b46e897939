package midiin

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// WatchEvent reports the practice pad appearing or disappearing.
type WatchEvent struct {
	Type  WatchEventType
	Input *Input
	ID    string
}

type WatchEventType int

const (
	InputConnected WatchEventType = iota
	InputDisconnected
)

// Watcher polls for the configured MIDI input until it is available
// and reconnects after unplugs. Practice-mode enablement has no effect
// until a device shows up; plain playback is unaffected either way.
type Watcher struct {
	name     string // port substring to match, empty = first port
	pollRate time.Duration

	mu      sync.Mutex
	current *Input

	events chan WatchEvent
}

func NewWatcher(name string) *Watcher {
	return &Watcher{
		name:     name,
		pollRate: time.Second,
		events:   make(chan WatchEvent, 4),
	}
}

// Events delivers connect/disconnect notifications.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Current returns the connected input, nil when absent.
func (w *Watcher) Current() *Input {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls until ctx is canceled (blocking - run in goroutine).
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	w.scan()
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.current != nil {
				w.current.Close()
				w.current = nil
			}
			w.mu.Unlock()
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *Watcher) scan() {
	w.mu.Lock()
	current := w.current
	w.mu.Unlock()

	if current != nil {
		if portPresent(current.ID()) {
			return
		}
		// Unplugged.
		current.Close()
		w.mu.Lock()
		w.current = nil
		w.mu.Unlock()
		log.WithFields(log.Fields{"port": current.ID()}).Info("pad disconnected")
		w.events <- WatchEvent{Type: InputDisconnected, ID: current.ID()}
		return
	}

	in, err := Open(w.name)
	if err != nil {
		return // keep polling
	}
	w.mu.Lock()
	w.current = in
	w.mu.Unlock()
	log.WithFields(log.Fields{"port": in.ID()}).Info("pad connected")
	w.events <- WatchEvent{Type: InputConnected, Input: in, ID: in.ID()}
}

func portPresent(id string) bool {
	for _, p := range gomidi.GetInPorts() {
		if strings.EqualFold(p.String(), id) {
			return true
		}
	}
	return false
}
