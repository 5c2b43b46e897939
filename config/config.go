package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// MatchConfig holds hit-matching thresholds. Durations are in
// milliseconds to keep the JSON readable.
type MatchConfig struct {
	AccuracyWindowMs   float64 `json:"accuracyWindowMs"`
	PerfectThresholdMs float64 `json:"perfectThresholdMs"`
	LatencyOffsetMs    float64 `json:"latencyOffsetMs"`
}

// MicConfig holds the microphone onset-detection tuning. These are
// empirically tuned values; change them from experience, not algebra.
type MicConfig struct {
	TransientRatio float64 `json:"transientRatio"`
	MinLevel       float64 `json:"minLevel"`
	AbsThreshold   float64 `json:"absThreshold"`
	CooldownMs     int     `json:"cooldownMs"`
	FastCooldownMs int     `json:"fastCooldownMs"`
	FastIntervalMs int     `json:"fastIntervalMs"`
	GhostLevel     float64 `json:"ghostLevel"`
	AccentLevel    float64 `json:"accentLevel"`
}

// TrainerConfig holds adaptive-tempo settings plus the best tempo
// reached so far (the only field the engine writes back).
type TrainerConfig struct {
	StartBPM          int     `json:"startBpm"`
	TargetBPM         int     `json:"targetBpm"`
	IncrementBPM      int     `json:"incrementBpm"`
	BarsPerStep       int     `json:"barsPerStep"`
	AccuracyThreshold float64 `json:"accuracyThreshold"`
	BestBPM           int     `json:"bestBpm,omitempty"`
}

// Config is the main configuration structure.
type Config struct {
	DefaultBPM   int              `json:"defaultBpm"`
	SampleDir    string           `json:"sampleDir,omitempty"`
	MIDIPortName string           `json:"midiPortName,omitempty"`
	NoteMap      map[string]uint8 `json:"noteMap"`
	Match        MatchConfig      `json:"match"`
	Mic          MicConfig        `json:"mic"`
	Trainer      TrainerConfig    `json:"trainer"`
}

// DefaultConfig returns a config with sensible defaults. The note map
// follows General MIDI percussion.
func DefaultConfig() *Config {
	return &Config{
		DefaultBPM: 120,
		NoteMap: map[string]uint8{
			"kick":      36,
			"snare":     38,
			"hihat":     42,
			"openhihat": 46,
			"ride":      51,
			"crash":     49,
			"tom1":      45,
			"tom2":      43,
			"floortom":  41,
		},
		Match: MatchConfig{
			AccuracyWindowMs:   50,
			PerfectThresholdMs: 20,
			LatencyOffsetMs:    0,
		},
		Mic: MicConfig{
			TransientRatio: 1.8,
			MinLevel:       0.25,
			AbsThreshold:   0.12,
			CooldownMs:     80,
			FastCooldownMs: 35,
			FastIntervalMs: 200,
			GhostLevel:     0.15,
			AccentLevel:    0.6,
		},
		Trainer: TrainerConfig{
			StartBPM:          80,
			TargetBPM:         140,
			IncrementBPM:      5,
			BarsPerStep:       4,
			AccuracyThreshold: 0.85,
		},
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "drumpractice"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Saver debounces hot-path writes: the trainer updates best BPM at
// loop boundaries, which must never block the scheduler on disk IO.
type Saver struct {
	mu       sync.Mutex
	cfg      *Config
	debounce func(func())
}

func NewSaver(cfg *Config) *Saver {
	return &Saver{
		cfg:      cfg,
		debounce: debounce.New(2 * time.Second),
	}
}

// SetBestBPM records a new best tempo and queues a save.
func (s *Saver) SetBestBPM(bpm int) {
	s.mu.Lock()
	if bpm > s.cfg.Trainer.BestBPM {
		s.cfg.Trainer.BestBPM = bpm
	}
	s.mu.Unlock()
	s.debounce(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cfg.Save()
	})
}
