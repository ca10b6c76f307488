package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worm/internal/testutil"
	"github.com/roach88/worm/internal/worm"
)

func boolPtr(b bool) *bool { return &b }

func TestRun_AllFixtureScenariosPass(t *testing.T) {
	files, err := FindScenarioFiles("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_TraceOutcomes(t *testing.T) {
	scenario := &Scenario{
		Name:        "outcomes",
		Description: "each outcome shows up in the trace",
		Record:      map[string]any{"a": 1},
		Steps: []Step{
			{Op: OpGuard, Keys: []string{"a", "b"}},
			{Op: OpSet, Key: "a", Value: 2},
			{Op: OpSet, Key: "a", Value: 3},
			{Op: OpGet, Key: "zzz"},
			{Op: OpHas, Key: "b"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 5)

	assert.Equal(t, TraceEvent{Seq: 1, Op: OpGuard, Record: "record-1", Selection: "[a b]", Outcome: OutcomeOK}, result.Trace[0])
	assert.Equal(t, OutcomeOK, result.Trace[1].Outcome)
	assert.Equal(t, OutcomeViolation, result.Trace[2].Outcome)
	assert.Equal(t, OutcomeMissing, result.Trace[3].Outcome)
	assert.Equal(t, true, result.Trace[4].Value)

	assert.Equal(t, "strict", result.Mode)
	assert.Equal(t, []FieldState{
		{Key: "a", State: "written", Value: 2},
		{Key: "b", State: "unwritten", Value: nil},
	}, result.Final)
}

func TestRun_DefaultModeFromOptions(t *testing.T) {
	scenario := &Scenario{
		Name:        "lenient_default",
		Description: "runner default applies when the scenario leaves mode empty",
		Record:      map[string]any{"a": 1},
		Steps: []Step{
			{Op: OpGuard, All: true},
			{Op: OpSet, Key: "a", Value: 2},
			{Op: OpSet, Key: "a", Value: 3, Expect: &Expect{Outcome: OutcomeIgnored}},
			{Op: OpDelete, Key: "a", Expect: &Expect{Outcome: OutcomeIgnored}},
		},
	}

	result, err := RunWithOptions(scenario, Options{Mode: worm.Lenient})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "lenient", result.Mode)
}

func TestRun_ScenarioModeOverridesOptions(t *testing.T) {
	scenario := &Scenario{
		Name:        "strict_wins",
		Description: "scenario mode beats the runner default",
		Mode:        "strict",
		Record:      map[string]any{"a": 1},
		Steps: []Step{
			{Op: OpGuard, All: true},
			{Op: OpSet, Key: "a", Value: 2},
			{Op: OpSet, Key: "a", Value: 3, Expect: &Expect{Outcome: OutcomeViolation}},
		},
	}

	result, err := RunWithOptions(scenario, Options{Mode: worm.Lenient})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "every expectation is wrong",
		Record:      map[string]any{"a": 1},
		Steps: []Step{
			{Op: OpGuard, Keys: []string{"a"}, Expect: &Expect{Outcome: OutcomeWarned, SameRecord: boolPtr(false)}},
			{Op: OpGet, Key: "a", Expect: &Expect{Value: 99, Absent: true}},
		},
		Final: map[string]FieldExpect{
			"a":    {State: "written"},
			"b":    {Value: 1},
			"gone": {},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"steps[0]: outcome: expected warned, got ok",
		"steps[0]: same_record: expected false, got true",
		"steps[1]: absent: expected present key with nil value, got 1",
		"steps[1]: value: expected 99, got 1",
		"final.a: state: expected written, got unwritten",
		"final.b: present: expected key present, got missing",
		"final.gone: present: expected key present, got missing",
	}, result.Errors)
}

func TestRun_FinalMissing(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing",
		Description: "missing final key expectation",
		Record:      map[string]any{"a": 1},
		Steps:       []Step{{Op: OpGuard, Keys: []string{}}},
		Final:       map[string]FieldExpect{"a": {Missing: true}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, []string{"final.a: missing: expected no such key, got 1"}, result.Errors)
}

func TestRun_NumericValuesCompareAcrossTypes(t *testing.T) {
	scenario := &Scenario{
		Name:        "numbers",
		Description: "int and float64 that are equal compare equal",
		Record:      map[string]any{"a": 1000},
		Steps: []Step{
			{Op: OpGet, Key: "a", Expect: &Expect{Value: float64(1000)}},
			{Op: OpGuard},
		},
		Final: map[string]FieldExpect{"a": {Value: int64(1000)}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidScenario(t *testing.T) {
	_, err := Run(&Scenario{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestRun_WarningsForwardedToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	scenario := &Scenario{
		Name:        "warn",
		Description: "degenerate guard",
		Steps:       []Step{{Op: OpGuard, All: true}},
	}

	result, err := RunWithOptions(scenario, Options{Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Warnings)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "scenario=warn")
	assert.Equal(t, []FieldState{}, result.Final)
}

func TestRun_ObserverAttached(t *testing.T) {
	obs := testutil.NewRecordingObserver()
	scenario := &Scenario{
		Name:        "observed",
		Description: "observer sees guard activity, including on records the installer creates",
		Steps: []Step{
			{Op: OpGuard, Keys: []string{"a", "b"}},
			{Op: OpSet, Key: "a", Value: 1},
			{Op: OpSet, Key: "a", Value: 2},
		},
	}

	_, err := RunWithOptions(scenario, Options{Observer: obs})
	require.NoError(t, err)
	assert.Equal(t, 2, obs.Count(testutil.EventGuarded))
	assert.Equal(t, 1, obs.Count(testutil.EventFixed))
	assert.Equal(t, 1, obs.Count(testutil.EventRejected))

	events := obs.Events()
	require.Len(t, events, 4)
	assert.Equal(t, "record-1", events[0].Record, "installer-created record gets the first sequence ID")
	assert.Equal(t, testutil.ObserverEvent{
		Kind: testutil.EventRejected, Record: "record-1", Key: "a", Op: worm.OpSet, Mode: worm.Strict,
	}, events[3])
}

func TestRun_NoRecordEver(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_record",
		Description: "final expectations need a record",
		Record:      nil,
		Steps:       []Step{{Op: OpGuard, Keys: []string{"a"}}},
		Final:       map[string]FieldExpect{"a": {Absent: true, State: "unwritten"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
