package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/worm/internal/worm"
)

// AssertionError describes one failed expectation.
type AssertionError struct {
	Where    string // "steps[3]" or "final.a"
	Field    string // what was compared
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: %s: expected %s, got %s", e.Where, e.Field, e.Expected, e.Actual)
}

// checkStep evaluates a step's expect clause against its trace event.
func checkStep(i int, step Step, ev TraceEvent, same bool, rec *worm.Record) []string {
	exp := step.Expect
	if exp == nil {
		return nil
	}

	where := fmt.Sprintf("steps[%d]", i)
	var errs []string
	fail := func(field, expected, actual string) {
		errs = append(errs, (&AssertionError{Where: where, Field: field, Expected: expected, Actual: actual}).Error())
	}

	if exp.Outcome != "" && exp.Outcome != ev.Outcome {
		fail("outcome", exp.Outcome, ev.Outcome)
	}

	if exp.SameRecord != nil && *exp.SameRecord != same {
		fail("same_record", fmt.Sprint(*exp.SameRecord), fmt.Sprint(same))
	}

	if exp.Absent {
		v, ok := rec.Get(step.Key)
		if !ok || v != nil {
			fail("absent", "present key with nil value", describe(v, ok))
		}
	}

	if exp.Value != nil && !valuesEqual(exp.Value, ev.Value) {
		fail("value", fmt.Sprintf("%v", exp.Value), fmt.Sprintf("%v", ev.Value))
	}

	return errs
}

// checkFinal evaluates final expectations in key order.
func checkFinal(rec *worm.Record, final map[string]FieldExpect) []string {
	keys := make([]string, 0, len(final))
	for k := range final {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, key := range keys {
		fe := final[key]
		where := "final." + key
		fail := func(field, expected, actual string) {
			errs = append(errs, (&AssertionError{Where: where, Field: field, Expected: expected, Actual: actual}).Error())
		}

		if rec == nil {
			fail("record", "a record", "none")
			continue
		}

		v, ok := rec.Get(key)
		if fe.Missing {
			if ok {
				fail("missing", "no such key", describe(v, ok))
			}
			continue
		}
		if !ok {
			fail("present", "key present", "missing")
			continue
		}
		if fe.State != "" && fe.State != rec.State(key).String() {
			fail("state", fe.State, rec.State(key).String())
		}
		if fe.Absent && v != nil {
			fail("absent", "nil value", fmt.Sprintf("%v", v))
		}
		if fe.Value != nil && !valuesEqual(fe.Value, v) {
			fail("value", fmt.Sprintf("%v", fe.Value), fmt.Sprintf("%v", v))
		}
	}
	return errs
}

func describe(v any, ok bool) string {
	if !ok {
		return "missing"
	}
	return fmt.Sprintf("%v", v)
}
