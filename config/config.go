// Package config loads the settings shared by the scrawl tools: an embedded
// default document, overridden by the user's config.yml.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/filter"
	"github.com/vsariola/scrawl/gomidi"
)

type (
	Config struct {
		Export    Export    `yaml:"export"`
		Audio     Audio     `yaml:"audio"`
		History   History   `yaml:"history"`
		Recording Recording `yaml:"recording"`
		MIDI      MIDI      `yaml:"midi"`
		Autosave  Autosave  `yaml:"autosave"`
	}

	Export struct {
		Width          int            `yaml:"width"`
		Height         int            `yaml:"height"`
		FPS            int            `yaml:"fps"`
		Encoder        string         `yaml:"encoder"`
		Quality        int            `yaml:"quality"`
		FFmpeg         string         `yaml:"ffmpeg"`
		Workers        int            `yaml:"workers"`
		Output         string         `yaml:"output"`
		Normalize      bool           `yaml:"normalize"`
		LoudnessTarget filter.Decibel `yaml:"loudness_target"`
		PeakCeiling    filter.Decibel `yaml:"peak_ceiling"`
	}

	Audio struct {
		SampleRate    int            `yaml:"sample_rate"`
		CaptureLength int            `yaml:"capture_length"` // milliseconds
		NoiseGate     filter.Decibel `yaml:"noise_gate"`
	}

	History struct {
		MaxUndo int `yaml:"max_undo"`
	}

	Recording struct {
		Speeds map[string]scrawl.Rate `yaml:"speeds"`
	}

	MIDI struct {
		Input    string          `yaml:"input"` // device name prefix
		Bindings gomidi.Bindings `yaml:"bindings"`
	}

	Autosave struct {
		Interval time.Duration `yaml:"interval"`
		Dir      string        `yaml:"dir"`
	}
)

//go:embed config.yml
var defaultConfigYml []byte

const FileName = "config.yml"

// Default returns the embedded configuration.
func Default() Config {
	var c Config
	if err := decode(bytes.NewReader(defaultConfigYml), &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// Load returns the default configuration overridden by the user's
// config.yml, if it exists. The path of the user file is returned also
// when it does not exist.
func Load() (Config, string, error) {
	c := Default()
	dir, err := os.UserConfigDir()
	if err != nil {
		return c, "", nil
	}
	path := filepath.Join(dir, "scrawl", FileName)
	err = ReadFile(path, &c)
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	return c, path, err
}

// ReadFile overrides the fields of c present in the file at path.
func ReadFile(path string, c *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := decode(f, c); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func decode(r io.Reader, c *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Speed returns the named recording speed.
func (c *Config) Speed(name string) (scrawl.Rate, error) {
	r, ok := c.Recording.Speeds[name]
	if !ok {
		return scrawl.Rate{}, fmt.Errorf("%w: unknown speed %q", scrawl.ErrInvalidRate, name)
	}
	return r, nil
}

// CaptureDuration is the length of the capture queue.
func (a Audio) CaptureDuration() time.Duration {
	return time.Duration(a.CaptureLength) * time.Millisecond
}

// AutosaveDir returns the configured autosave directory, defaulting to a
// directory under the user's cache dir.
func (a Autosave) Directory() (string, error) {
	if a.Dir != "" {
		return a.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scrawl", "autosave"), nil
}
