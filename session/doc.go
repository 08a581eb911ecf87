/*
Package session contains the live editing engine of scrawl.

The Session type owns a scrawl.Timeline and is the only component that mutates
it while recording. Every mutation goes through Timeline.Apply under a single
mutation lock; queries take the lock for reading, so they always observe a
consistent timeline. The Clock maps wall time to timeline time, the History
records the edits of each finished recording for undo and redo, and the
Capture queue decouples the audio device callback from the mutation lock.

Goroutines outside the session communicate through the Broker: the session
reports alerts to Broker.Alerts and autosave requests to Broker.ToAutosave.
Those sends never block; if a channel is full, the message is dropped.
*/
package session
