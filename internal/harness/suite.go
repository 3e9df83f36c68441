package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// FindScenarios returns the scenario files at path. A file is returned
// as is; a directory is walked for .yaml and .yml files, skipping golden
// directories. A non-empty filter is a glob matched against the file name
// without extension. Results are sorted.
func FindScenarios(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && p != path {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(d.Name(), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// Outcome is the result of loading and running one scenario file.
type Outcome struct {
	Path     string
	Scenario *Scenario // nil if loading failed
	Result   *Result   // nil if loading or running failed
	Err      error
}

// Pass reports whether the scenario loaded, ran and met its expectations.
func (o Outcome) Pass() bool {
	return o.Err == nil && o.Result != nil && o.Result.Pass
}

// Name is the scenario name, or the file name if loading failed.
func (o Outcome) Name() string {
	if o.Scenario != nil {
		return o.Scenario.Name
	}
	return filepath.Base(o.Path)
}

// RunFiles loads and runs each scenario file in order.
func RunFiles(paths []string) []Outcome {
	outcomes := make([]Outcome, 0, len(paths))
	for _, path := range paths {
		o := Outcome{Path: path}

		o.Scenario, o.Err = LoadScenario(path)
		if o.Err == nil {
			o.Result, o.Err = Run(o.Scenario)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}
