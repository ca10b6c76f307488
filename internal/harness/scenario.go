package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/worm/internal/worm"
)

// Scenario defines a WORM conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario (also the golden file name).
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Mode is "strict" or "lenient". Empty falls back to the runner default.
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Record seeds the starting record. Nil means no record: the first
	// guard step passes nil to the installer.
	Record map[string]any `yaml:"record,omitempty" json:"record,omitempty"`

	// Steps run in order against the current record.
	Steps []Step `yaml:"steps" json:"steps"`

	// Final lists expected field values and states after the last step.
	Final map[string]FieldExpect `yaml:"final,omitempty" json:"final,omitempty"`
}

// Step is one operation in a scenario.
type Step struct {
	// Op is one of guard, set, get, has, delete.
	Op string `yaml:"op" json:"op"`

	// Keys is the explicit selection for guard (may be empty).
	Keys []string `yaml:"keys,omitempty" json:"keys,omitempty"`

	// All selects every field present at guard time. Excludes Keys.
	All bool `yaml:"all,omitempty" json:"all,omitempty"`

	// Key is the field for set, get, has and delete.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	// Value is the value written by set.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Expect is checked right after the step runs.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Expect is a per-step expectation. Unset fields are not checked.
type Expect struct {
	// Outcome is ok, violation, ignored, warned or missing.
	Outcome string `yaml:"outcome,omitempty" json:"outcome,omitempty"`

	// Value is the value observed by get or has.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Absent requires get to see a present key holding nil.
	Absent bool `yaml:"absent,omitempty" json:"absent,omitempty"`

	// SameRecord checks whether guard returned the record it was given.
	SameRecord *bool `yaml:"same_record,omitempty" json:"same_record,omitempty"`
}

// FieldExpect describes one field of the final record.
type FieldExpect struct {
	Value   any    `yaml:"value,omitempty" json:"value,omitempty"`
	State   string `yaml:"state,omitempty" json:"state,omitempty"`
	Absent  bool   `yaml:"absent,omitempty" json:"absent,omitempty"`
	Missing bool   `yaml:"missing,omitempty" json:"missing,omitempty"`
}

// Step operations.
const (
	OpGuard  = "guard"
	OpSet    = "set"
	OpGet    = "get"
	OpHas    = "has"
	OpDelete = "delete"
)

// Step outcomes recorded in the trace.
const (
	OutcomeOK        = "ok"
	OutcomeViolation = "violation"
	OutcomeIgnored   = "ignored"
	OutcomeWarned    = "warned"
	OutcomeMissing   = "missing"
)

var validOutcomes = map[string]bool{
	OutcomeOK:        true,
	OutcomeViolation: true,
	OutcomeIgnored:   true,
	OutcomeWarned:    true,
	OutcomeMissing:   true,
}

var validStates = map[string]bool{
	worm.Unguarded.String(): true,
	worm.Unwritten.String(): true,
	worm.Written.String():   true,
}

// LoadScenario reads and parses a scenario file. The format is chosen by
// extension: .yaml/.yml or .cue. Unknown fields are rejected in both.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&scenario); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".cue":
		if err := decodeCUE(path, data, &scenario); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported scenario file extension %q (want .yaml, .yml or .cue)", filepath.Ext(path))
	}

	normalizeScenario(&scenario)

	if err := ValidateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarioFiles walks dir and returns scenario files in lexical order.
func FindScenarioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".cue":
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// ValidateScenario checks that required fields are present and consistent.
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, ok := worm.ParseMode(s.Mode); !ok {
		return fmt.Errorf("mode must be strict or lenient, got %q", s.Mode)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	haveRecord := s.Record != nil
	for i, step := range s.Steps {
		if err := validateStep(i, &step, haveRecord); err != nil {
			return err
		}
		if step.Op == OpGuard {
			haveRecord = true
		}
	}

	for key, fe := range s.Final {
		if fe.State != "" && !validStates[fe.State] {
			return fmt.Errorf("final.%s: unknown state %q", key, fe.State)
		}
		if fe.Missing && (fe.Value != nil || fe.State != "" || fe.Absent) {
			return fmt.Errorf("final.%s: missing excludes value, state and absent", key)
		}
	}
	return nil
}

func validateStep(i int, step *Step, haveRecord bool) error {
	switch step.Op {
	case OpGuard:
		if step.All && len(step.Keys) > 0 {
			return fmt.Errorf("steps[%d]: guard takes either all or keys, not both", i)
		}
		if step.Key != "" || step.Value != nil {
			return fmt.Errorf("steps[%d]: guard does not take key or value", i)
		}
	case OpSet, OpGet, OpHas, OpDelete:
		if step.Key == "" {
			return fmt.Errorf("steps[%d]: %s requires key", i, step.Op)
		}
		if step.All || len(step.Keys) > 0 {
			return fmt.Errorf("steps[%d]: %s does not take all or keys", i, step.Op)
		}
		if step.Op != OpSet && step.Value != nil {
			return fmt.Errorf("steps[%d]: only set takes a value", i)
		}
		if !haveRecord {
			return fmt.Errorf("steps[%d]: %s before any record exists (add record or a guard step first)", i, step.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if step.Expect == nil {
		return nil
	}
	if step.Expect.Outcome != "" && !validOutcomes[step.Expect.Outcome] {
		return fmt.Errorf("steps[%d].expect: unknown outcome %q", i, step.Expect.Outcome)
	}
	if step.Expect.SameRecord != nil && step.Op != OpGuard {
		return fmt.Errorf("steps[%d].expect: same_record only applies to guard", i)
	}
	if (step.Expect.Value != nil || step.Expect.Absent) && step.Op != OpGet && step.Op != OpHas {
		return fmt.Errorf("steps[%d].expect: value and absent only apply to get and has", i)
	}
	return nil
}
