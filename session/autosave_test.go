package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/session"
)

func TestAutosaveWritesLatest(t *testing.T) {
	dir := t.TempDir()
	broker := session.NewBroker()
	a := session.NewAutosaver(broker, filepath.Join(dir, "autosave"), "lesson")
	older := scrawl.NewTimeline(48000)
	newer := scrawl.NewTimeline(48000)
	if _, err := newer.Apply(scrawl.AppendStroke{Stroke: scrawl.Stroke{End: scrawl.Forever, Style: pen}}); err != nil {
		t.Fatal(err)
	}
	broker.RequestAutosave(older)
	broker.RequestAutosave(newer)
	go a.Run()
	broker.CloseAutosave <- struct{}{}
	if _, ok := session.TimeoutReceive(broker.FinishedAutosave, 3*time.Second); ok {
		t.Fatalf("FinishedAutosave delivered a value instead of closing")
	}
	select {
	case <-broker.FinishedAutosave:
	default:
		t.Fatalf("autosaver did not finish")
	}
	f, err := os.Open(a.Path())
	if err != nil {
		t.Fatalf("autosave file: %v", err)
	}
	defer f.Close()
	loaded, err := scrawl.ReadTimeline(f)
	if err != nil {
		t.Fatalf("ReadTimeline: %v", err)
	}
	if loaded.Curves().Len() != 1 {
		t.Fatalf("autosave holds %d strokes, expected the latest timeline with 1", loaded.Curves().Len())
	}
}
