package practice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// sinkRecorder collects detected hits.
type sinkRecorder struct {
	times  []time.Time
	levels []float64
}

func (s *sinkRecorder) HandleDetectedHit(at time.Time, level float64) {
	s.times = append(s.times, at)
	s.levels = append(s.levels, level)
}

// feed runs a synthetic envelope through the detector, one sample per
// poll interval.
func feed(d *PollingDetector, start time.Time, step time.Duration, levels []float64) {
	for i, l := range levels {
		d.Process(start.Add(time.Duration(i)*step), l)
	}
}

func TestPollingTransient(t *testing.T) {
	assert := assert.New(t)

	sink := &sinkRecorder{}
	d := NewPollingDetector(sink, nil, DefaultOnsetConfig())
	start := time.Now()

	// Quiet floor, then a strike, then decay.
	feed(d, start, 10*time.Millisecond, []float64{0.02, 0.03, 0.02, 0.45, 0.30, 0.15, 0.05})

	assert.Len(sink.times, 1)
	assert.Equal(0.45, sink.levels[0])
	assert.Equal(start.Add(30*time.Millisecond), sink.times[0])
}

func TestPollingRatioWithoutMinLevel(t *testing.T) {
	assert := assert.New(t)

	sink := &sinkRecorder{}
	d := NewPollingDetector(sink, nil, DefaultOnsetConfig())
	start := time.Now()

	// 0.05 -> 0.10 doubles the previous sample: a soft but clear
	// transient even though it stays under MinLevel and AbsThreshold.
	feed(d, start, 10*time.Millisecond, []float64{0.05, 0.10, 0.08})

	assert.Len(sink.times, 1)
	assert.Equal(0.10, sink.levels[0])
}

func TestPollingSlowSwellNoHit(t *testing.T) {
	assert := assert.New(t)

	sink := &sinkRecorder{}
	cfg := DefaultOnsetConfig()
	cfg.AbsThreshold = 1.1 // isolate the transient rules
	d := NewPollingDetector(sink, nil, cfg)
	start := time.Now()

	// A gradual rise never doubles its previous sample and never
	// reaches MinLevel.
	feed(d, start, 10*time.Millisecond, []float64{0.10, 0.12, 0.14, 0.16, 0.18, 0.20})

	assert.Empty(sink.times)
}

func TestPollingAbsoluteCrossing(t *testing.T) {
	assert := assert.New(t)

	sink := &sinkRecorder{}
	d := NewPollingDetector(sink, nil, DefaultOnsetConfig())
	start := time.Now()

	// 0.10 -> 0.13 crosses AbsThreshold (0.12) upward without meeting
	// either transient rule.
	feed(d, start, 10*time.Millisecond, []float64{0.10, 0.13})

	assert.Len(sink.times, 1)
}

func TestPollingCooldownSuppressesRing(t *testing.T) {
	assert := assert.New(t)

	sink := &sinkRecorder{}
	d := NewPollingDetector(sink, nil, DefaultOnsetConfig())
	start := time.Now()

	// The strike at 10ms is followed by a rebound at 40ms, still inside
	// the 80ms cooldown. Only one hit registers.
	feed(d, start, 10*time.Millisecond, []float64{0.02, 0.50, 0.10, 0.40, 0.10, 0.05})

	assert.Len(sink.times, 1)
}

func TestPollingAdaptiveCooldown(t *testing.T) {
	assert := assert.New(t)

	sink := &sinkRecorder{}
	d := NewPollingDetector(sink, nil, DefaultOnsetConfig())
	start := time.Now()
	step := 10 * time.Millisecond

	// Two strikes 100ms apart establish a fast interval; the third
	// arrives 50ms later, inside the standard cooldown but outside the
	// shortened one.
	env := make([]float64, 16)
	env[0] = 0.50  // hit at 0ms
	env[10] = 0.50 // hit at 100ms, lastInterval = 100ms <= FastInterval
	env[15] = 0.50 // 50ms later: allowed under the 35ms fast cooldown
	feed(d, start, step, env)

	assert.Len(sink.times, 3)
}

func TestPollingStandardCooldownWhenSlow(t *testing.T) {
	assert := assert.New(t)

	sink := &sinkRecorder{}
	d := NewPollingDetector(sink, nil, DefaultOnsetConfig())
	start := time.Now()
	step := 10 * time.Millisecond

	// Strikes 300ms apart leave the standard 80ms cooldown in force, so
	// a rebound 50ms after the second strike stays suppressed.
	env := make([]float64, 40)
	env[0] = 0.50
	env[30] = 0.50 // 300ms later, lastInterval > FastInterval
	env[35] = 0.50 // 50ms after: inside the 80ms cooldown
	feed(d, start, step, env)

	assert.Len(sink.times, 2)
}

func TestStreamDetectorForwardsHits(t *testing.T) {
	assert := assert.New(t)

	sink := &sinkRecorder{}
	epoch := time.Now()
	onsets := make(chan OnsetMessage, 4)
	d := SelectDetector(sink, onsets, epoch, nil, OnsetConfig{})
	assert.IsType(&StreamDetector{}, d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	onsets <- OnsetMessage{Type: "hit", Time: 1500, Level: 0.7}
	onsets <- OnsetMessage{Type: "status", Time: 1600, Level: 0} // ignored
	onsets <- OnsetMessage{Type: "hit", Time: 1700, Level: 0.3}
	close(onsets)
	<-done

	assert.Len(sink.times, 2)
	assert.Equal(epoch.Add(1500*time.Millisecond), sink.times[0])
	assert.Equal(0.7, sink.levels[0])
	assert.Equal(epoch.Add(1700*time.Millisecond), sink.times[1])
}

func TestSelectDetectorFallsBackToPolling(t *testing.T) {
	d := SelectDetector(&sinkRecorder{}, nil, time.Time{}, nil, DefaultOnsetConfig())
	assert.IsType(t, &PollingDetector{}, d)
}
