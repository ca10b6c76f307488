package worm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind  string
	key   string
	state State
	op    Op
	mode  Mode
}

type recordingObserver struct {
	events []event
}

func (o *recordingObserver) FieldGuarded(_, key string, state State) {
	o.events = append(o.events, event{kind: "guarded", key: key, state: state})
}

func (o *recordingObserver) FieldFixed(_, key string) {
	o.events = append(o.events, event{kind: "fixed", key: key})
}

func (o *recordingObserver) WriteRejected(_, key string, op Op, mode Mode) {
	o.events = append(o.events, event{kind: "rejected", key: key, op: op, mode: mode})
}

func TestFromMap_SortedKeys(t *testing.T) {
	rec := FromMap(map[string]any{"zebra": 1, "apple": 2, "mango": 3})

	assert.Equal(t, []string{"apple", "mango", "zebra"}, rec.Keys())
	assert.Equal(t, 3, rec.Len())
}

func TestRecord_PlainFields(t *testing.T) {
	rec := NewRecord()

	_, ok := rec.Get("a")
	assert.False(t, ok)
	assert.False(t, rec.Has("a"))

	require.NoError(t, rec.Set("a", "x"))
	require.NoError(t, rec.Set("b", nil))
	require.NoError(t, rec.Set("a", "y"))

	assert.Equal(t, []string{"a", "b"}, rec.Keys())
	v, ok := rec.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "y", v)
	assert.True(t, rec.Has("b"))
}

func TestRecord_KeysIsACopy(t *testing.T) {
	rec := FromMap(map[string]any{"a": 1})
	keys := rec.Keys()
	keys[0] = "mutated"

	assert.Equal(t, []string{"a"}, rec.Keys())
}

func TestRecord_Delete(t *testing.T) {
	rec := FromMap(map[string]any{"a": 1, "b": 2, "c": 3})
	Install(Fields("b", "c"), rec)
	require.NoError(t, rec.Set("c", 30))

	require.NoError(t, rec.Delete("a"))
	assert.False(t, rec.Has("a"))
	assert.Equal(t, []string{"b", "c"}, rec.Keys())

	require.NoError(t, rec.Delete("missing"))

	err := rec.Delete("b")
	require.Error(t, err)
	assert.True(t, IsViolation(err))
	assert.True(t, rec.Has("b"))
	assert.Equal(t, Unwritten, rec.State("b"), "a refused delete does not spend the first write")

	err = rec.Delete("c")
	require.Error(t, err)
	assert.Equal(t, 30, mustGet(t, rec, "c"))
}

func TestRecord_DeleteLenient(t *testing.T) {
	rec := FromMap(map[string]any{"a": 1}, WithMode(Lenient))
	Install(AllFields(), rec)

	require.NoError(t, rec.Delete("a"))
	assert.True(t, rec.Has("a"))
	assert.Equal(t, 1, mustGet(t, rec, "a"))
}

func TestRecord_DeletedKeyCanBeReadded(t *testing.T) {
	rec := FromMap(map[string]any{"a": 1, "b": 2})
	require.NoError(t, rec.Delete("a"))
	require.NoError(t, rec.Set("a", 10))

	assert.Equal(t, []string{"b", "a"}, rec.Keys())
}

func TestRecord_Snapshot(t *testing.T) {
	rec := FromMap(map[string]any{"a": 1, "b": 2})
	Install(Fields("a", "c"), rec)
	require.NoError(t, rec.Set("a", 5))

	assert.Equal(t, []Field{
		{Key: "a", Value: 5, State: Written},
		{Key: "b", Value: 2, State: Unguarded},
		{Key: "c", Value: nil, State: Unwritten},
	}, rec.Snapshot())
}

func TestRecord_StateOfMissingKey(t *testing.T) {
	assert.Equal(t, Unguarded, NewRecord().State("nope"))
}

func TestRecord_ObserverEvents(t *testing.T) {
	obs := &recordingObserver{}
	rec := FromMap(map[string]any{"a": 1}, WithObserver(obs), WithMode(Lenient))

	Install(Fields("a"), rec)
	require.NoError(t, rec.Set("a", 2))
	require.NoError(t, rec.Set("a", 3))
	Install(Fields("a"), rec)
	require.NoError(t, rec.Delete("a"))

	assert.Equal(t, []event{
		{kind: "guarded", key: "a", state: Unwritten},
		{kind: "fixed", key: "a"},
		{kind: "rejected", key: "a", op: OpSet, mode: Lenient},
		{kind: "guarded", key: "a", state: Written},
		{kind: "rejected", key: "a", op: OpDelete, mode: Lenient},
	}, obs.events)
}

func TestRecord_UniqueIDs(t *testing.T) {
	a := NewRecord()
	b := NewRecord()
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestRecord_IDGenerator(t *testing.T) {
	gen := NewSequenceGenerator("rec")
	a := NewRecord(WithIDGenerator(gen))
	b := FromMap(nil, WithIDGenerator(gen))

	assert.Equal(t, "rec-1", a.ID())
	assert.Equal(t, "rec-2", b.ID())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unguarded", Unguarded.String())
	assert.Equal(t, "unwritten", Unwritten.String())
	assert.Equal(t, "written", Written.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", Strict, true},
		{"strict", Strict, true},
		{"lenient", Lenient, true},
		{"loose", Strict, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMode(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
	assert.Equal(t, "strict", Strict.String())
	assert.Equal(t, "lenient", Lenient.String())
}
