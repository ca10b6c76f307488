package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/worm/internal/harness"
	"github.com/roach88/worm/internal/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Update  bool   // regenerate golden files
	Filter  string // scenario name filter (glob pattern)
	Trace   bool   // print each scenario's trace and final state
	Metrics bool   // print Prometheus text exposition after the run
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name     string               `json:"name"`
	File     string               `json:"file"`
	Pass     bool                 `json:"pass"`
	Mode     string               `json:"mode,omitempty"`
	Warnings int                  `json:"warnings"`
	Errors   []string             `json:"errors,omitempty"`
	Trace    []harness.TraceEvent `json:"trace,omitempty"`
	Final    []harness.FieldState `json:"final,omitempty"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
	Metrics   string           `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file-or-dir>...",
		Short: "Run WORM scenarios",
		Long: `Run scenario files (.yaml, .yml, .cue) against a fresh record each.

Directories are searched recursively. When golden/<name>.golden exists next
to a scenario file, the scenario's trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad config, etc.)

Examples:
  worm run ./scenarios
  worm run ./scenarios --filter "degenerate_*" --trace
  worm run ./scenarios --update
  worm run first_write.yaml --mode lenient --format json --metrics`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by file name glob (without extension)")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print each scenario's trace and final state")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print guard metrics in Prometheus text format")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := collectScenarioFiles(paths, opts.Filter, opts.configFileUsed())
	if err != nil {
		_ = out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(files) == 0 {
		if out.IsJSON() {
			return out.Success(RunResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(out.Writer, "No scenarios found.")
		return nil
	}

	collector := metrics.NewCollector()
	result := RunResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}

	for _, file := range files {
		out.VerboseLog("running %s", file)
		sr := runScenarioFile(opts, file, collector)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Metrics {
		var buf bytes.Buffer
		if err := collector.WriteText(&buf); err != nil {
			return WrapExitError(ExitCommandError, "failed to render metrics", err)
		}
		result.Metrics = buf.String()
	}

	if out.IsJSON() {
		if err := out.Success(result); err != nil {
			return err
		}
	} else if err := writeRunText(out, opts, result); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

// runScenarioFile loads, runs and golden-checks one scenario file.
func runScenarioFile(opts *RunOptions, file string, collector *metrics.Collector) ScenarioResult {
	sr := ScenarioResult{Name: scenarioName(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("%s: %v", ErrCodeLoadFailed, err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.RunWithOptions(scenario, harness.Options{
		Mode:     opts.wormMode(),
		Observer: collector,
		Logger:   slog.Default(),
	})
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("%s: %v", ErrCodeRunFailed, err)}
		return sr
	}

	sr.Pass = result.Pass
	sr.Mode = result.Mode
	sr.Warnings = result.Warnings
	sr.Errors = append(sr.Errors, result.Errors...)
	if opts.Trace {
		sr.Trace = result.Trace
		sr.Final = result.Final
	}

	golden := goldenFilePath(file)
	data, err := harness.MarshalSnapshot(scenario.Name, result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("%s: failed to marshal trace: %v", ErrCodeGolden, err))
		return sr
	}

	if opts.Update {
		if err := writeGolden(golden, data); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("%s: %v", ErrCodeWriteFailed, err))
		}
		return sr
	}

	want, err := os.ReadFile(golden)
	switch {
	case os.IsNotExist(err):
		// No golden file: expectations alone decide.
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("%s: failed to read golden file: %v", ErrCodeGolden, err))
	case !bytes.Equal(want, data):
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("%s: trace does not match golden file (run with --update to regenerate)", ErrCodeGolden))
	}
	return sr
}

// collectScenarioFiles expands directories and applies the name filter.
// Directory walks skip configFile (an absolute path, or empty), since the
// CLI's own worm.yaml would otherwise be loaded as a scenario.
func collectScenarioFiles(paths []string, filter, configFile string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := harness.FindScenarioFiles(p)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", p, err)
		}
		for _, f := range found {
			if configFile != "" && absPath(f) == configFile {
				continue
			}
			files = append(files, f)
		}
	}

	if filter == "" {
		return files, nil
	}
	kept := files[:0]
	for _, f := range files {
		matched, err := filepath.Match(filter, scenarioName(f))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func scenarioName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// goldenFilePath returns golden/<name>.golden next to the scenario file.
func goldenFilePath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", scenarioName(scenarioFile)+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func writeRunText(out *OutputFormatter, opts *RunOptions, result RunResult) error {
	w := out.Writer
	for _, sr := range result.Scenarios {
		mark := "✓"
		if !sr.Pass {
			mark = "✗"
		}
		suffix := ""
		if opts.Update && sr.Pass {
			suffix = " (golden updated)"
		}
		fmt.Fprintf(w, "%s %s%s\n", mark, sr.Name, suffix)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}

		if opts.Trace && sr.Trace != nil {
			if err := out.Table([]string{"Seq", "Op", "Record", "Target", "Value", "Outcome"}, traceRows(sr.Trace)); err != nil {
				return err
			}
			if err := out.Table([]string{"Key", "State", "Value"}, finalRows(sr.Final)); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Metrics != "" {
		fmt.Fprintf(w, "\n%s", result.Metrics)
	}
	return nil
}

func traceRows(trace []harness.TraceEvent) [][]string {
	rows := make([][]string, len(trace))
	for i, ev := range trace {
		target := ev.Key
		if ev.Op == harness.OpGuard {
			target = ev.Selection
		}
		value := ""
		if ev.Value != nil {
			value = fmt.Sprintf("%v", ev.Value)
		}
		rows[i] = []string{fmt.Sprint(ev.Seq), ev.Op, ev.Record, target, value, ev.Outcome}
	}
	return rows
}

func finalRows(final []harness.FieldState) [][]string {
	rows := make([][]string, len(final))
	for i, f := range final {
		value := "<absent>"
		if f.Value != nil {
			value = fmt.Sprintf("%v", f.Value)
		}
		rows[i] = []string{f.Key, f.State, value}
	}
	return rows
}
