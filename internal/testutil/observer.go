package testutil

import (
	"sync"

	"github.com/roach88/worm/internal/worm"
)

// Event kinds recorded by RecordingObserver.
const (
	EventGuarded  = "guarded"
	EventFixed    = "fixed"
	EventRejected = "rejected"
)

// ObserverEvent is one callback received by RecordingObserver.
type ObserverEvent struct {
	Kind   string
	Record string
	Key    string
	State  worm.State // EventGuarded only
	Op     worm.Op    // EventRejected only
	Mode   worm.Mode  // EventRejected only
}

// RecordingObserver implements worm.Observer by appending every callback
// to an in-memory log, in arrival order.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingObserver struct {
	mu     sync.Mutex
	events []ObserverEvent
}

// NewRecordingObserver creates an observer with an empty log.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

// FieldGuarded implements worm.Observer.
func (o *RecordingObserver) FieldGuarded(recordID, key string, state worm.State) {
	o.add(ObserverEvent{Kind: EventGuarded, Record: recordID, Key: key, State: state})
}

// FieldFixed implements worm.Observer.
func (o *RecordingObserver) FieldFixed(recordID, key string) {
	o.add(ObserverEvent{Kind: EventFixed, Record: recordID, Key: key})
}

// WriteRejected implements worm.Observer.
func (o *RecordingObserver) WriteRejected(recordID, key string, op worm.Op, mode worm.Mode) {
	o.add(ObserverEvent{Kind: EventRejected, Record: recordID, Key: key, Op: op, Mode: mode})
}

func (o *RecordingObserver) add(ev ObserverEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

// Events returns a copy of the log.
func (o *RecordingObserver) Events() []ObserverEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ObserverEvent, len(o.events))
	copy(out, o.events)
	return out
}

// Count returns how many events of the given kind were recorded.
func (o *RecordingObserver) Count(kind string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, ev := range o.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Reset clears the log so the observer can be reused across runs.
func (o *RecordingObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = nil
}
