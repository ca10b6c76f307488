// Package worm turns selected fields of a mutable record into write-once,
// read-many fields.
//
// A guarded field reads its seed value (the record's value at guard time, or
// nil when the key did not exist) until the first write. That write fixes the
// field for the lifetime of the record; every later write is a violation.
//
// # Field States
//
//   - Unguarded: a plain field, freely readable and writable
//   - Unwritten: guarded, reports its seed, accepts exactly one write
//   - Written:   guarded, fixed at the value of its first write
//
// The state lives in the record itself, keyed by field name. Written never
// returns to Unwritten.
//
// # Strictness
//
// How a violation surfaces is a property of the record, not of the
// installer. A Strict record returns *ViolationError from Set and Delete; a
// Lenient record drops the write and returns nil. In both modes the stored
// value is unchanged.
//
// # Usage
//
//	rec := worm.FromMap(map[string]any{"a": 1, "b": 2, "c": 3})
//	worm.Install(worm.Fields("a", "b"), rec)
//
//	_ = rec.Set("a", 1000) // ok, a is now fixed
//	err := rec.Set("a", 2000)
//	worm.IsViolation(err) // true, a still reads 1000
//
// Records are not safe for concurrent use.
package worm
