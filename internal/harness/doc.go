// Package harness runs declarative WORM scenarios against a record.
//
// A scenario seeds a record, then executes a list of steps (guard, set, get,
// has, delete). Each step is appended to a trace with its outcome, and
// optional expect clauses are checked as the flow proceeds. After the last
// step the final record state is compared against the scenario's final
// expectations.
//
// Scenarios are written in YAML or CUE:
//
//	name: first_write_wins
//	description: second write to a guarded field is refused
//	record: {a: 1, b: 2}
//	steps:
//	  - op: guard
//	    keys: [a]
//	  - op: set
//	    key: a
//	    value: 1000
//	  - op: set
//	    key: a
//	    value: 2000
//	    expect: {outcome: violation}
//	final:
//	  a: {value: 1000, state: written}
//
// Runs are deterministic: record IDs come from a sequence generator and
// trace seq numbers start at 1, so traces can be compared against golden
// files (see RunWithGolden).
package harness
