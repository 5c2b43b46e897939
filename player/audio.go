package player

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	log "github.com/sirupsen/logrus"

	"drumpractice/pattern"
)

// Sound is the audio trigger surface the scheduler fires into. Calls
// are fire-and-forget and must not block.
type Sound interface {
	Trigger(v pattern.Voice)
	Click(accent bool)
}

// NopSound discards all triggers. Used in tests and when no audio
// device is available; scheduling continues without sound.
type NopSound struct{}

func (NopSound) Trigger(pattern.Voice) {}
func (NopSound) Click(bool)            {}

const samplerRate = beep.SampleRate(44100)

// sampleFiles names the wav file expected per voice in the sample dir.
var sampleFiles = map[pattern.Voice]string{
	pattern.VoiceKick:      "kick.wav",
	pattern.VoiceSnare:     "snare.wav",
	pattern.VoiceHiHat:     "hihat.wav",
	pattern.VoiceOpenHiHat: "hihat-open.wav",
	pattern.VoiceRide:      "ride.wav",
	pattern.VoiceCrash:     "crash.wav",
	pattern.VoiceTomHigh:   "tom1.wav",
	pattern.VoiceTomMid:    "tom2.wav",
	pattern.VoiceTomLow:    "floortom.wav",
}

// Sampler plays drum samples and oscillator clicks through the system
// speaker. A voice with no loadable sample is skipped silently: an
// unplayable sound is not a scheduling fault.
type Sampler struct {
	buffers     map[pattern.Voice]*beep.Buffer
	click       *beep.Buffer
	accentClick *beep.Buffer
}

// NewSampler initializes the speaker and loads whatever samples exist
// under dir. Only speaker initialization can fail; missing samples are
// logged and ignored.
func NewSampler(dir string) (*Sampler, error) {
	if err := speaker.Init(samplerRate, samplerRate.N(10*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	s := &Sampler{
		buffers:     make(map[pattern.Voice]*beep.Buffer),
		click:       clickTone(880, 30*time.Millisecond),
		accentClick: clickTone(1760, 30*time.Millisecond),
	}

	for v, name := range sampleFiles {
		buf, err := loadSample(filepath.Join(dir, name))
		if err != nil {
			log.WithFields(log.Fields{"voice": v, "file": name}).Debug("sample unavailable: ", err)
			continue
		}
		s.buffers[v] = buf
	}
	return s, nil
}

func loadSample(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	defer streamer.Close()

	buf := beep.NewBuffer(beep.Format{SampleRate: samplerRate, NumChannels: 2, Precision: 2})
	if format.SampleRate == samplerRate {
		buf.Append(streamer)
	} else {
		buf.Append(beep.Resample(4, format.SampleRate, samplerRate, streamer))
	}
	return buf, nil
}

// clickTone renders a short decaying sine burst, the metronome click.
func clickTone(freq float64, dur time.Duration) *beep.Buffer {
	n := 0
	osc := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			t := float64(n) / float64(samplerRate)
			v := math.Sin(2*math.Pi*freq*t) * math.Exp(-t*120)
			samples[i][0] = v
			samples[i][1] = v
			n++
		}
		return len(samples), true
	})

	buf := beep.NewBuffer(beep.Format{SampleRate: samplerRate, NumChannels: 2, Precision: 2})
	buf.Append(beep.Take(samplerRate.N(dur), osc))
	return buf
}

func (s *Sampler) Trigger(v pattern.Voice) {
	buf, ok := s.buffers[v]
	if !ok {
		return
	}
	speaker.Play(buf.Streamer(0, buf.Len()))
}

func (s *Sampler) Click(accent bool) {
	buf := s.click
	if accent {
		buf = s.accentClick
	}
	speaker.Play(buf.Streamer(0, buf.Len()))
}
