package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the optional YAML configuration of the session.
type File struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Speech        SpeechConfig        `yaml:"speech"`
	Session       SessionConfig       `yaml:"session"`
	Ducking       DuckingConfig       `yaml:"ducking"`
}

type CaptureConfig struct {
	Duration   time.Duration `yaml:"duration"`
	SampleRate int           `yaml:"sample_rate"`
	Cue        string        `yaml:"cue"` // mp3 played before listening; empty disables
}

type TranscriptionConfig struct {
	Model    string `yaml:"model"`
	ModelDir string `yaml:"model_dir"`
	Language string `yaml:"language"`
	Threads  int    `yaml:"threads"`
}

type SpeechConfig struct {
	Engine string  `yaml:"engine"` // espeak | openai
	Rate   int     `yaml:"rate"`   // words per minute
	Volume float64 `yaml:"volume"` // 0..1
	Voice  string  `yaml:"voice"`
}

// SessionConfig timeouts of 0 leave the corresponding wait unbounded.
type SessionConfig struct {
	ExitPhrases       []string      `yaml:"exit_phrases"`
	CaptureTimeout    time.Duration `yaml:"capture_timeout"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
	RespondTimeout    time.Duration `yaml:"respond_timeout"`
}

type DuckingConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Factor    float64       `yaml:"factor"`
	Fade      time.Duration `yaml:"fade"`
	MinVolume int           `yaml:"min_volume"`
}

var speechEngines = []string{"espeak", "openai"}

func Default() File {
	return File{
		Capture: CaptureConfig{
			Duration:   5 * time.Second,
			SampleRate: 16000,
		},
		Transcription: TranscriptionConfig{
			Model:    "base",
			ModelDir: "models",
			Language: "auto",
		},
		Speech: SpeechConfig{
			Engine: "espeak",
			Rate:   175,
			Volume: 1.0,
			Voice:  "en",
		},
		Session: SessionConfig{
			ExitPhrases: []string{"exit", "quit"},
		},
		Ducking: DuckingConfig{
			Factor:    0.3,
			Fade:      200 * time.Millisecond,
			MinVolume: 10,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return File{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (f *File) Validate() error {
	if err := f.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if err := f.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	if err := f.Speech.Validate(); err != nil {
		return fmt.Errorf("speech config: %w", err)
	}
	if err := f.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	if err := f.Ducking.Validate(); err != nil {
		return fmt.Errorf("ducking config: %w", err)
	}
	return nil
}

func (c *CaptureConfig) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", c.SampleRate)
	}
	return nil
}

func (c *TranscriptionConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads cannot be negative, got %d", c.Threads)
	}
	return nil
}

func (c *SpeechConfig) Validate() error {
	if !slices.Contains(speechEngines, c.Engine) {
		return fmt.Errorf("engine must be one of %v, got %q", speechEngines, c.Engine)
	}
	if c.Rate < 80 || c.Rate > 450 {
		return fmt.Errorf("rate must be between 80 and 450 wpm, got %d", c.Rate)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %g", c.Volume)
	}
	return nil
}

func (c *SessionConfig) Validate() error {
	if len(c.ExitPhrases) == 0 {
		return fmt.Errorf("exit_phrases cannot be empty")
	}
	if c.CaptureTimeout < 0 || c.TranscribeTimeout < 0 || c.RespondTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}

func (c *DuckingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Factor < 0 || c.Factor > 1 {
		return fmt.Errorf("factor must be between 0 and 1, got %g", c.Factor)
	}
	if c.Fade < 0 {
		return fmt.Errorf("fade cannot be negative")
	}
	return nil
}
