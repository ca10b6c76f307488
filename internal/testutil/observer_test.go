package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worm/internal/worm"
)

var _ worm.Observer = (*RecordingObserver)(nil)

func TestRecordingObserver_RecordsGuardLifecycle(t *testing.T) {
	obs := NewRecordingObserver()
	r := worm.NewRecord(
		worm.WithObserver(obs),
		worm.WithIDGenerator(NewFixedIDGenerator("r")),
	)
	r = worm.Install(worm.Fields("a"), r)

	require.NoError(t, r.Set("a", 1))
	require.Error(t, r.Set("a", 2))

	assert.Equal(t, []ObserverEvent{
		{Kind: EventGuarded, Record: "r", Key: "a", State: worm.Unwritten},
		{Kind: EventFixed, Record: "r", Key: "a"},
		{Kind: EventRejected, Record: "r", Key: "a", Op: worm.OpSet, Mode: worm.Strict},
	}, obs.Events())
}

func TestRecordingObserver_Count(t *testing.T) {
	obs := NewRecordingObserver()
	obs.FieldGuarded("r", "a", worm.Unwritten)
	obs.FieldGuarded("r", "b", worm.Unwritten)
	obs.WriteRejected("r", "a", worm.OpDelete, worm.Lenient)

	assert.Equal(t, 2, obs.Count(EventGuarded))
	assert.Equal(t, 0, obs.Count(EventFixed))
	assert.Equal(t, 1, obs.Count(EventRejected))
}

func TestRecordingObserver_EventsIsACopy(t *testing.T) {
	obs := NewRecordingObserver()
	obs.FieldFixed("r", "a")

	events := obs.Events()
	events[0].Key = "mutated"
	assert.Equal(t, "a", obs.Events()[0].Key)
}

func TestRecordingObserver_Reset(t *testing.T) {
	obs := NewRecordingObserver()
	obs.FieldFixed("r", "a")
	obs.Reset()
	assert.Empty(t, obs.Events())
}

func TestRecordingObserver_Concurrent(t *testing.T) {
	obs := NewRecordingObserver()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs.FieldFixed("r", "a")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, obs.Count(EventFixed))
}
