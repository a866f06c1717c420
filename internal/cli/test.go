package cli

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dealbook/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run conformance scenarios.

Each YAML scenario runs against a fresh in-memory database. When
golden/<name>.golden exists next to the scenario, the step trace and
final ledger must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  dealbook test ./scenarios
  dealbook test ./scenarios --filter "snapshot_*"
  dealbook test ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	summary := TestResult{Scenarios: []ScenarioResult{}, Total: len(files)}
	text := opts.Format != "json"
	if text && len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	for _, file := range files {
		sr := runScenario(file, opts)
		summary.Scenarios = append(summary.Scenarios, sr)
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		if text {
			writeScenarioResult(cmd, sr)
		}
	}

	if err := reportTests(cmd, opts.Format, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

// findScenarioFiles returns the .yaml and .yml files under dir whose base
// name matches filter, in lexical order.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario executes one scenario file and compares or updates its
// golden file.
func runScenario(file string, opts *TestOptions) ScenarioResult {
	name := filepath.Base(file)
	fail := func(format string, args ...any) ScenarioResult {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return fail("execution failed: %v", err)
	}

	snap := harness.NewTraceSnapshot(scenario.Name, result)
	data, err := snap.Canonical()
	if err != nil {
		return fail("failed to marshal trace: %v", err)
	}

	goldenPath := goldenFilePath(file)
	switch {
	case opts.Update:
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
	default:
		golden, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
			// Assertion-only scenario.
		case err != nil:
			return fail("failed to read golden file: %v", err)
		case string(golden) != string(data):
			result.AddError("trace does not match golden file (run with --update to regenerate)")
		}
	}

	return ScenarioResult{Name: name, Pass: result.Pass, Errors: result.Errors}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeScenarioResult(cmd *cobra.Command, sr ScenarioResult) {
	w := cmd.OutOrStdout()
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// reportTests writes the run summary. JSON output wraps it in the usual
// envelope, with status "error" when any scenario failed.
func reportTests(cmd *cobra.Command, format string, summary TestResult) error {
	w := cmd.OutOrStdout()
	if format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary}
		if summary.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "TEST_FAILED",
				Message: fmt.Sprintf("%d scenario(s) failed", summary.Failed),
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
	if summary.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return nil
}
