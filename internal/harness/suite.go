package harness

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// scenarioExts are the file extensions FindScenarios picks up.
var scenarioExts = map[string]bool{".yaml": true, ".yml": true, ".cue": true}

// FindScenarios returns the scenario files under dir, sorted by path.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if scenarioExts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find scenarios in %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// SuiteEntry is the outcome of one scenario file.
type SuiteEntry struct {
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Passed reports whether the file loaded, ran and passed.
func (e SuiteEntry) Passed() bool {
	return e.Error == "" && e.Result != nil && e.Result.Pass
}

// SuiteResult summarizes a batch of scenario files.
type SuiteResult struct {
	Entries []SuiteEntry `json:"entries"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
}

// OK reports whether every scenario passed.
func (s *SuiteResult) OK() bool {
	return s.Failed == 0
}

// RunSuite loads and runs each scenario file in order. A file that fails to
// load or start counts as failed; the remaining files still run.
func RunSuite(ctx context.Context, paths []string, opts ...RunOption) (*SuiteResult, error) {
	suite := &SuiteResult{Entries: make([]SuiteEntry, 0, len(paths))}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return suite, err
		}

		entry := SuiteEntry{Path: path}
		scenario, err := LoadScenario(path)
		if err == nil {
			entry.Result, err = Run(ctx, scenario, opts...)
		}
		if err != nil {
			entry.Error = err.Error()
		}

		if entry.Passed() {
			suite.Passed++
		} else {
			suite.Failed++
		}
		suite.Entries = append(suite.Entries, entry)
	}
	return suite, nil
}
