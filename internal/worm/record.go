package worm

import (
	"slices"
	"sort"
)

// State is the guard state of a single field.
type State int

const (
	// Unguarded fields behave as plain map entries.
	Unguarded State = iota

	// Unwritten fields are guarded and still accept one write.
	Unwritten

	// Written fields are fixed; no further write or delete succeeds.
	Written
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Unguarded:
		return "unguarded"
	case Unwritten:
		return "unwritten"
	case Written:
		return "written"
	default:
		return "unknown"
	}
}

// Mode selects how a record reports writes to fixed fields.
type Mode int

const (
	// Strict records return *ViolationError.
	Strict Mode = iota

	// Lenient records silently drop the write.
	Lenient
)

// String returns "strict" or "lenient".
func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// ParseMode converts "strict" or "lenient" to a Mode.
// The empty string parses as Strict.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "strict":
		return Strict, true
	case "lenient":
		return Lenient, true
	default:
		return Strict, false
	}
}

// Observer is notified of guard transitions on a record.
// Implementations must not call back into the record.
type Observer interface {
	// FieldGuarded fires each time the installer processes a key,
	// including re-guards.
	FieldGuarded(recordID, key string, state State)

	// FieldFixed fires when an Unwritten field takes its first write.
	FieldFixed(recordID, key string)

	// WriteRejected fires for every refused Set or Delete, in either mode.
	WriteRejected(recordID, key string, op Op, mode Mode)
}

type field struct {
	value any
	state State
}

// Record is an insertion-ordered mapping of string keys to arbitrary values
// whose fields can be guarded by an Installer.
//
// The zero value is not usable; create records with NewRecord or FromMap.
// A Record is not safe for concurrent use.
type Record struct {
	id       string
	mode     Mode
	ids      IDGenerator
	observer Observer

	order  []string
	fields map[string]*field
}

// RecordOption configures a Record.
type RecordOption func(*Record)

// WithMode sets the record's strictness. Default is Strict.
func WithMode(m Mode) RecordOption {
	return func(r *Record) {
		r.mode = m
	}
}

// WithObserver attaches an observer for guard transitions.
func WithObserver(o Observer) RecordOption {
	return func(r *Record) {
		r.observer = o
	}
}

// WithIDGenerator overrides the record identity source.
// Default is UUIDv7Generator.
func WithIDGenerator(g IDGenerator) RecordOption {
	return func(r *Record) {
		r.ids = g
	}
}

// NewRecord creates an empty record.
func NewRecord(opts ...RecordOption) *Record {
	r := &Record{
		ids:    UUIDv7Generator{},
		fields: make(map[string]*field),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.id = r.ids.Generate()
	return r
}

// FromMap creates a record holding the entries of m as unguarded fields.
// Keys are inserted in sorted order so iteration is deterministic.
func FromMap(m map[string]any, opts ...RecordOption) *Record {
	r := NewRecord(opts...)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.put(k, m[k], Unguarded)
	}
	return r
}

// sibling creates an empty record sharing r's mode, observer and ID source.
func (r *Record) sibling() *Record {
	return NewRecord(WithMode(r.mode), WithObserver(r.observer), WithIDGenerator(r.ids))
}

// ID returns the record's identity.
func (r *Record) ID() string { return r.id }

// Mode returns the record's strictness.
func (r *Record) Mode() Mode { return r.mode }

// Len returns the number of keys, guarded or not.
func (r *Record) Len() int { return len(r.order) }

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	return slices.Clone(r.order)
}

// Has reports whether key exists. Keys created by guarding a missing field
// exist even though their value is nil.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Get returns the value for key and whether the key exists.
func (r *Record) Get(key string) (any, bool) {
	f, ok := r.fields[key]
	if !ok {
		return nil, false
	}
	return f.value, true
}

// State returns the guard state of key. Missing keys report Unguarded.
func (r *Record) State(key string) State {
	if f, ok := r.fields[key]; ok {
		return f.state
	}
	return Unguarded
}

// Set writes value to key.
//
//   - missing or Unguarded: the value is stored, no guard applies
//   - Unwritten: the value is stored and the field becomes Written
//   - Written: the write is refused and reported according to the mode
func (r *Record) Set(key string, value any) error {
	f, ok := r.fields[key]
	if !ok {
		r.put(key, value, Unguarded)
		return nil
	}

	switch f.state {
	case Unwritten:
		f.value = value
		f.state = Written
		if r.observer != nil {
			r.observer.FieldFixed(r.id, key)
		}
		return nil
	case Written:
		return r.reject(key, OpSet, f.state)
	default:
		f.value = value
		return nil
	}
}

// Delete removes key. Unguarded keys are removed; guarded keys, in either
// state, stay for the lifetime of the record and the delete is refused
// according to the mode. Deleting a missing key is a no-op.
// This is stricter than a reconfigurable accessor: an Unwritten key cannot
// be deleted either, even though it still accepts its first write.
func (r *Record) Delete(key string) error {
	f, ok := r.fields[key]
	if !ok {
		return nil
	}
	if f.state != Unguarded {
		return r.reject(key, OpDelete, f.state)
	}
	delete(r.fields, key)
	r.order = slices.DeleteFunc(r.order, func(k string) bool { return k == key })
	return nil
}

// Field is a point-in-time view of one record entry.
type Field struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	State State  `json:"-"`
}

// Snapshot returns every field in insertion order.
// Values are not copied; nested structures are shared with the record.
func (r *Record) Snapshot() []Field {
	out := make([]Field, 0, len(r.order))
	for _, k := range r.order {
		f := r.fields[k]
		out = append(out, Field{Key: k, Value: f.value, State: f.state})
	}
	return out
}

// guard moves key into the Unwritten state seeded with its current value,
// creating the key with a nil seed when missing. Written keys are left as is.
// Reports the state the key ends in.
func (r *Record) guard(key string) State {
	f, ok := r.fields[key]
	switch {
	case !ok:
		r.put(key, nil, Unwritten)
	case f.state == Written:
		// Fixed for good; re-guarding changes nothing.
	default:
		// Unguarded or Unwritten: the current value becomes the seed.
		f.state = Unwritten
	}

	state := r.fields[key].state
	if r.observer != nil {
		r.observer.FieldGuarded(r.id, key, state)
	}
	return state
}

func (r *Record) put(key string, value any, state State) {
	if f, ok := r.fields[key]; ok {
		f.value = value
		f.state = state
		return
	}
	r.fields[key] = &field{value: value, state: state}
	r.order = append(r.order, key)
}

func (r *Record) reject(key string, op Op, state State) error {
	if r.observer != nil {
		r.observer.WriteRejected(r.id, key, op, r.mode)
	}
	if r.mode == Lenient {
		return nil
	}
	return &ViolationError{RecordID: r.id, Key: key, Op: op, State: state}
}
