package practice

import (
	"context"
	"time"
)

// HitSink receives converged onset detections. Both microphone paths
// end up calling HandleDetectedHit; the Matcher is the production
// sink.
type HitSink interface {
	HandleDetectedHit(at time.Time, level float64)
}

// OnsetMessage is the wire contract of the low-latency analysis path:
// spectral-flux onsets with a timestamp in milliseconds since the
// audio stream started.
type OnsetMessage struct {
	Type  string  `json:"type"` // "hit"
	Time  float64 `json:"time"` // ms since stream start
	Level float64 `json:"level"`
}

// OnsetDetector is one microphone detection strategy. Exactly one
// implementation is selected at setup based on what the capture
// backend offers; there is no per-callback fallback.
type OnsetDetector interface {
	Run(ctx context.Context)
}

// SelectDetector probes capability once: the dedicated low-latency
// onset stream when available, otherwise RMS polling.
func SelectDetector(sink HitSink, onsets <-chan OnsetMessage, epoch time.Time, src AmplitudeSource, cfg OnsetConfig) OnsetDetector {
	if onsets != nil {
		return &StreamDetector{sink: sink, onsets: onsets, epoch: epoch}
	}
	return NewPollingDetector(sink, src, cfg)
}

// StreamDetector forwards onsets from the dedicated low-latency
// analysis stream.
type StreamDetector struct {
	sink   HitSink
	onsets <-chan OnsetMessage
	epoch  time.Time // wall-clock time of stream start
}

func (d *StreamDetector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-d.onsets:
			if !ok {
				return
			}
			if msg.Type != "hit" {
				continue
			}
			at := d.epoch.Add(time.Duration(msg.Time * float64(time.Millisecond)))
			d.sink.HandleDetectedHit(at, msg.Level)
		}
	}
}

// AmplitudeSource is a polled capture backend reporting the RMS level
// of its latest time-domain buffer.
type AmplitudeSource interface {
	RMS() (level float64, at time.Time, err error)
}

// OnsetConfig holds the polling detector's thresholds. These values
// are empirically tuned; treat them as configuration, not as derived
// quantities.
type OnsetConfig struct {
	PollInterval time.Duration

	// A transient is a clear volume increase: above the previous
	// sample by TransientRatio, or simply above MinLevel.
	TransientRatio float64
	MinLevel       float64

	// AbsThreshold triggers on an upward crossing after the cooldown.
	AbsThreshold float64

	// One physical strike must not register twice. The cooldown
	// shortens when recent hits arrive FastInterval apart or closer,
	// so fast subdivisions still register every stroke.
	Cooldown     time.Duration
	FastCooldown time.Duration
	FastInterval time.Duration
}

// DefaultOnsetConfig mirrors the tuned polling thresholds.
func DefaultOnsetConfig() OnsetConfig {
	return OnsetConfig{
		PollInterval:   10 * time.Millisecond,
		TransientRatio: 1.8,
		MinLevel:       0.25,
		AbsThreshold:   0.12,
		Cooldown:       80 * time.Millisecond,
		FastCooldown:   35 * time.Millisecond,
		FastInterval:   200 * time.Millisecond,
	}
}

// PollingDetector is the fallback path: amplitude-transient detection
// over polled RMS buffers.
type PollingDetector struct {
	sink HitSink
	src  AmplitudeSource
	cfg  OnsetConfig

	prev         float64
	lastHit      time.Time
	lastInterval time.Duration
}

func NewPollingDetector(sink HitSink, src AmplitudeSource, cfg OnsetConfig) *PollingDetector {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultOnsetConfig().PollInterval
	}
	return &PollingDetector{sink: sink, src: src, cfg: cfg}
}

func (d *PollingDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			level, at, err := d.src.RMS()
			if err != nil {
				continue
			}
			d.Process(at, level)
		}
	}
}

// Process classifies one amplitude sample. Exported so tests can feed
// synthetic envelopes without a capture backend.
func (d *PollingDetector) Process(at time.Time, level float64) {
	cooldown := d.cfg.Cooldown
	if d.lastInterval > 0 && d.lastInterval <= d.cfg.FastInterval {
		cooldown = d.cfg.FastCooldown
	}
	coolingDown := !d.lastHit.IsZero() && at.Sub(d.lastHit) < cooldown

	// The ratio rule needs a real previous sample; on a cold start only
	// the absolute rules apply.
	transient := level > d.prev &&
		(level >= d.cfg.MinLevel || (d.prev > 0 && level >= d.prev*d.cfg.TransientRatio))
	crossing := level >= d.cfg.AbsThreshold && d.prev < d.cfg.AbsThreshold

	if !coolingDown && (transient || crossing) {
		if !d.lastHit.IsZero() {
			d.lastInterval = at.Sub(d.lastHit)
		}
		d.lastHit = at
		d.sink.HandleDetectedHit(at, level)
	}
	d.prev = level
}
