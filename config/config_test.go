package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()
	if c.Audio.SampleRate != scrawl.DefaultSampleRate {
		t.Errorf("sample rate %d, expected %d", c.Audio.SampleRate, scrawl.DefaultSampleRate)
	}
	if c.History.MaxUndo != 128 {
		t.Errorf("max undo %d, expected 128", c.History.MaxUndo)
	}
	r, err := c.Speed("slow")
	if err != nil {
		t.Fatalf("Speed(slow): %v", err)
	}
	if !r.Equal(scrawl.Rate{Num: 1, Den: 3}) {
		t.Errorf("slow speed %v, expected 1/3", r)
	}
	if _, err := c.Speed("ludicrous"); err == nil {
		t.Error("expected an error for an unknown speed")
	}
	if a := scrawl.DefaultAspect; c.Export.Width*a[1] != c.Export.Height*a[0] {
		t.Errorf("export size %dx%d does not match the canvas aspect %v", c.Export.Width, c.Export.Height, a)
	}
	if c.MIDI.Bindings.Channel != -1 {
		t.Errorf("midi channel %d, expected any", c.MIDI.Bindings.Channel)
	}
}

func TestUserOverride(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on XDG_CONFIG_HOME")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "scrawl"), 0o755); err != nil {
		t.Fatal(err)
	}
	yml := "export:\n  height: 720\nrecording:\n  speeds:\n    glacial: 1/100\n"
	if err := os.WriteFile(filepath.Join(dir, "scrawl", config.FileName), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	c, path, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != filepath.Join(dir, "scrawl", config.FileName) {
		t.Errorf("unexpected path %s", path)
	}
	if c.Export.Height != 720 || c.Export.Width != 1440 {
		t.Errorf("export size %dx%d, expected 1440x720", c.Export.Width, c.Export.Height)
	}
	if _, err := c.Speed("glacial"); err != nil {
		t.Errorf("user speed missing: %v", err)
	}
	if _, err := c.Speed("normal"); err != nil {
		t.Errorf("default speed lost: %v", err)
	}
}

func TestUnknownField(t *testing.T) {
	for _, yml := range []string{
		"export:\n  colour: red\n",
		"recording:\n  fade: 500ms\n",
	} {
		path := filepath.Join(t.TempDir(), config.FileName)
		if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
			t.Fatal(err)
		}
		c := config.Default()
		if err := config.ReadFile(path, &c); err == nil {
			t.Errorf("expected an error for an unknown field in %q", yml)
		}
	}
}

func TestMissingUserFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on XDG_CONFIG_HOME")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, _, err := config.Load(); err != nil {
		t.Fatalf("Load without a user file: %v", err)
	}
}
