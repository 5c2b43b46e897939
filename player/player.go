package player

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"drumpractice/pattern"
	"drumpractice/schedule"
)

// State is the playback scheduler's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateCountingIn
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateCountingIn:
		return "counting-in"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

const (
	// scheduleLead separates anchor establishment from the first note
	// so the first timer never fires in the past.
	scheduleLead = 50 * time.Millisecond
	// settleDelay after the last note before the loop-boundary check.
	settleDelay = 100 * time.Millisecond
	// finalHold keeps the last note's highlight visible before reset.
	finalHold = 400 * time.Millisecond
	// countInClicks precede the first playable note of loop 0.
	countInClicks = 4
)

// Options configure one playback run.
type Options struct {
	CountIn  bool
	Loops    int  // total loop count when not infinite
	Infinite bool // loop until stopped
	Ramp     *schedule.Ramp
}

// Hooks let the practice subsystem observe scheduler transitions. All
// hooks run on the scheduler goroutine and must not block.
type Hooks struct {
	CountingIn func(active bool)
	LoopStart  func(anchor time.Time, loop int, bpm float64)
	LoopEnd    func(loop int)
	Finished   func()
	Stopped    func()
}

// Status is a snapshot of playback state for collaborators. Position
// is the current global note index, -1 when none. Beat is 1..N while
// playing and 0 when stopped.
type Status struct {
	State    State
	BPM      float64
	Loop     int
	Position int
	Beat     int
}

// Player is the real-time playback scheduler. It owns all scheduling
// state explicitly (no globals) and drives everything from a single
// min-heap timer queue serviced by one goroutine, so cancellation is
// "clear the queue".
type Player struct {
	mu    sync.Mutex
	state State
	req   schedule.CompileRequest
	opts  Options
	bpm   float64 // base tempo; a tempo ramp or the trainer overrides per loop

	queue    jobQueue
	epoch    uint64
	loop     int
	position int
	beat     int
	anchor   time.Time

	sound Sound
	hooks Hooks

	quitChan  chan struct{}
	interrupt chan struct{}

	// UpdateChan notifies the TUI that a snapshot changed.
	UpdateChan chan struct{}
}

// New creates a player and starts its scheduler goroutine.
func New(sound Sound) *Player {
	p := &Player{
		state:      StateIdle,
		bpm:        120,
		position:   -1,
		sound:      sound,
		quitChan:   make(chan struct{}),
		interrupt:  make(chan struct{}, 1),
		UpdateChan: make(chan struct{}, 1),
	}
	go p.run()
	return p
}

// SetHooks wires practice-subsystem callbacks. Call before Start.
func (p *Player) SetHooks(h Hooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = h
}

// SetRequest sets the pattern material compiled each loop. The BPM
// field of the request is ignored; tempo is read fresh per loop.
func (p *Player) SetRequest(req schedule.CompileRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.req = req
}

// SetOptions sets loop and count-in behavior for the next Start.
func (p *Player) SetOptions(opts Options) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts = opts
}

// SetBPM sets the base tempo. Takes effect at the next loop boundary;
// the tempo trainer drives this between loops.
func (p *Player) SetBPM(bpm float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bpm = schedule.ClampBPM(bpm)
}

// SetClick switches the click mode for subsequently compiled loops.
func (p *Player) SetClick(mode schedule.ClickMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.req.Click = mode
}

// Snapshot returns the current playback status.
func (p *Player) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:    p.state,
		BPM:      p.loopBPMLocked(p.loop),
		Loop:     p.loop,
		Position: p.position,
		Beat:     p.beat,
	}
}

// Start begins playback from Idle: count-in first if enabled, then
// loop 0. No-op in any other state.
func (p *Player) Start() {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return
	}

	p.loop = 0
	p.position = -1
	p.beat = 0
	now := time.Now()

	if p.opts.CountIn {
		p.state = StateCountingIn
		// Count-in clicks are spaced at loop 0's tempo, which matters
		// under tempo ramping.
		beatDur := p.beatDur(p.loopBPMLocked(0))
		for i := 0; i < countInClicks; i++ {
			accent := i == 0
			p.pushLocked(now.Add(scheduleLead+time.Duration(i)*beatDur), func() {
				// A click job popped just before Stop cleared the queue
				// must not sound after Stop returned.
				p.mu.Lock()
				counting := p.state == StateCountingIn
				p.mu.Unlock()
				if counting {
					p.sound.Click(accent)
				}
			})
		}
		// Dispatch and matching stay held until the last click's beat
		// completes.
		p.pushLocked(now.Add(scheduleLead+countInClicks*beatDur), p.beginLoop)
	} else {
		p.state = StateCountingIn
		p.pushLocked(now.Add(scheduleLead), p.beginLoop)
	}

	counting := p.opts.CountIn
	countHook := p.hooks.CountingIn
	log.WithFields(log.Fields{"countIn": counting, "bpm": p.loopBPMLocked(0)}).Debug("playback start")
	p.mu.Unlock()

	if counting && countHook != nil {
		countHook(true)
	}
	p.wake()
	p.notify()
}

// Stop cancels playback synchronously: every armed timer (count-in
// clicks, note triggers, loop continuations) is cleared before Stop
// returns, and no job fires afterwards.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state == StateIdle {
		p.mu.Unlock()
		return
	}
	p.state = StateIdle
	p.epoch++
	p.queue.clear()
	p.loop = 0
	p.position = -1
	p.beat = 0
	stopped := p.hooks.Stopped
	p.mu.Unlock()

	p.wake()
	if stopped != nil {
		stopped()
	}
	p.notify()
	log.Debug("playback stopped")
}

// Close shuts the scheduler goroutine down. The player is unusable
// afterwards.
func (p *Player) Close() {
	p.Stop()
	close(p.quitChan)
}

// beginLoop anchors and arms the current loop. Runs on the scheduler
// goroutine; loop index and tempo are read fresh here, not captured at
// arm time, because the trainer may have changed them.
func (p *Player) beginLoop() {
	p.mu.Lock()
	if p.state == StateIdle {
		p.mu.Unlock()
		return
	}

	loop := p.loop
	bpm := p.loopBPMLocked(loop)
	req := p.req
	req.BPM = bpm
	seq, err := schedule.Compile(req)
	if err != nil || len(seq.Notes) == 0 {
		// Nothing to play is not fatal: abort back to Idle.
		if err != nil {
			log.Warn("compile failed: ", err)
		}
		p.state = StateIdle
		p.queue.clear()
		p.epoch++
		p.position = -1
		p.beat = 0
		p.mu.Unlock()
		p.notify()
		return
	}

	p.state = StatePlaying
	anchor := time.Now().Add(scheduleLead)
	p.anchor = anchor

	for i := range seq.Notes {
		n := seq.Notes[i]
		p.pushLocked(anchor.Add(secs(n.Offset)), func() {
			p.fireNote(n)
		})
	}
	last := seq.Notes[len(seq.Notes)-1].Offset
	p.pushLocked(anchor.Add(secs(last)+settleDelay), p.loopEnd)

	start := p.hooks.LoopStart
	countHook := p.hooks.CountingIn
	p.mu.Unlock()

	log.WithFields(log.Fields{"loop": loop, "bpm": bpm, "notes": len(seq.Notes)}).Debug("loop armed")
	// Count-in (if any) is over before the loop's anchor is announced.
	if countHook != nil {
		countHook(false)
	}
	if start != nil {
		start(anchor, loop, bpm)
	}
	p.wake()
	p.notify()
}

// fireNote dispatches one scheduled slot: position update first (even
// for silent notes), beat indicator on beat boundaries, then each
// sound in the slot exactly once.
func (p *Player) fireNote(n schedule.ScheduledNote) {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	p.position = n.Index
	if n.OnBeat {
		p.beat = n.Beat
	}
	p.mu.Unlock()

	for _, v := range n.Sounds {
		if v == pattern.VoiceClick {
			p.sound.Click(n.Accent)
		} else {
			p.sound.Trigger(v)
		}
	}
	p.notify()
}

// loopEnd runs after the settle delay following a loop's last note.
func (p *Player) loopEnd() {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	loop := p.loop
	end := p.hooks.LoopEnd
	p.mu.Unlock()

	// The loop-boundary hook runs before the next loop's tempo is
	// read, so trainer adjustments apply immediately.
	if end != nil {
		end(loop)
	}

	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	next := loop + 1
	if p.opts.Infinite || next < p.opts.Loops {
		p.loop = next
		p.position = -1
		// One beat of silence between loops keeps boundaries audible.
		gap := p.beatDur(p.loopBPMLocked(next))
		p.pushLocked(time.Now().Add(gap), p.beginLoop)
		p.mu.Unlock()
		p.wake()
		p.notify()
		return
	}

	// Session complete: hold the final highlight briefly, then reset.
	finished := p.hooks.Finished
	p.pushLocked(time.Now().Add(finalHold), func() {
		p.mu.Lock()
		p.state = StateIdle
		p.position = -1
		p.beat = 0
		p.loop = 0
		p.mu.Unlock()
		p.notify()
	})
	p.mu.Unlock()

	if finished != nil {
		finished()
	}
	p.wake()
}

// run is the single scheduler goroutine: waits for the earliest queued
// job, re-evaluating whenever the queue changes.
func (p *Player) run() {
	for {
		p.mu.Lock()
		head := p.queue.peek()
		p.mu.Unlock()

		if head == nil {
			select {
			case <-p.quitChan:
				return
			case <-p.interrupt:
				continue
			}
		}

		if wait := time.Until(head.at); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-p.quitChan:
				timer.Stop()
				return
			case <-p.interrupt:
				// Queue changed (new job or cancellation): recalculate.
				timer.Stop()
				continue
			case <-timer.C:
			}
		}

		p.mu.Lock()
		j := p.queue.popDue(time.Now(), p.epoch)
		p.mu.Unlock()
		if j != nil {
			j.fn()
		}
	}
}

// pushLocked arms a job in the current epoch. Caller holds p.mu.
func (p *Player) pushLocked(at time.Time, fn func()) {
	p.queue.push(&job{at: at, epoch: p.epoch, fn: fn})
}

// wake signals the scheduler goroutine to re-read the queue.
func (p *Player) wake() {
	select {
	case p.interrupt <- struct{}{}:
	default:
	}
}

// notify nudges the TUI; drops if nobody is listening.
func (p *Player) notify() {
	select {
	case p.UpdateChan <- struct{}{}:
	default:
	}
}

// loopBPMLocked resolves the tempo for a loop index: the ramp when
// configured, the base tempo otherwise. Caller holds p.mu.
func (p *Player) loopBPMLocked(loop int) float64 {
	if p.opts.Ramp != nil {
		return p.opts.Ramp.BPM(loop)
	}
	return p.bpm
}

func (p *Player) beatDur(bpm float64) time.Duration {
	return time.Duration(60 / bpm * float64(time.Second))
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
