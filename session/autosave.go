package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vsariola/scrawl"
)

// Autosaver writes the timelines requested through Broker.ToAutosave to a
// file. Only the latest request is written; requests that arrive while a
// save is in progress replace each other.
type Autosaver struct {
	broker *Broker
	path   string
}

func NewAutosaver(broker *Broker, dir, name string) *Autosaver {
	return &Autosaver{broker: broker, path: filepath.Join(dir, name+".autosave.yml")}
}

func (a *Autosaver) Path() string { return a.path }

// Run saves until Broker.CloseAutosave is signalled, then writes any pending
// request and closes Broker.FinishedAutosave. Run it in its own goroutine.
func (a *Autosaver) Run() {
	defer close(a.broker.FinishedAutosave)
	for {
		select {
		case t := <-a.broker.ToAutosave:
			a.save(t)
		case <-a.broker.CloseAutosave:
			select {
			case t := <-a.broker.ToAutosave:
				a.save(t)
			default:
			}
			return
		}
	}
}

func (a *Autosaver) save(t *scrawl.Timeline) {
	if err := a.write(t); err != nil {
		a.broker.SendAlert("AutosaveFailed", fmt.Sprintf("Autosave failed: %v", err), Error)
	}
}

func (a *Autosaver) write(t *scrawl.Timeline) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(a.path), filepath.Base(a.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if err := scrawl.WriteTimeline(f, t); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), a.path)
}
