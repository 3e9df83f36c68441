package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance case: a CUE program, optional extra facts and
// expectations about one rendered relation.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the directory holding the CUE program. LoadScenario
	// resolves it relative to the scenario file.
	Program string `yaml:"program"`

	// Facts adds rows to relations on top of the program's own facts.
	Facts map[string][][]any `yaml:"facts,omitempty"`

	// Render is the relation whose rows are checked.
	Render string `yaml:"render"`

	// Expect holds the checks applied to the rendered rows.
	Expect Expect `yaml:"expect"`
}

// Expect lists the checks on a rendered relation. Every set field is
// evaluated; unset fields are skipped.
type Expect struct {
	// Rows is the exact expected set, order ignored.
	Rows [][]any `yaml:"rows,omitempty"`

	// Contains must each appear in the result.
	Contains [][]any `yaml:"contains,omitempty"`

	// Absent must not appear in the result.
	Absent [][]any `yaml:"absent,omitempty"`

	// Count is the expected number of distinct rows.
	Count *int `yaml:"count,omitempty"`
}

func (e Expect) empty() bool {
	return e.Rows == nil && len(e.Contains) == 0 && len(e.Absent) == 0 && e.Count == nil
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so that typos surface as errors. A relative program path is
// resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}

	info, err := os.Stat(s.Program)
	if err != nil {
		return fmt.Errorf("program directory not found: %s", s.Program)
	}
	if !info.IsDir() {
		return fmt.Errorf("program is not a directory: %s", s.Program)
	}

	if s.Render == "" {
		return fmt.Errorf("render is required")
	}

	if s.Expect.empty() {
		return fmt.Errorf("expect needs at least one of rows, contains, absent, count")
	}

	if s.Expect.Count != nil && *s.Expect.Count < 0 {
		return fmt.Errorf("expect.count must not be negative")
	}

	for rel, rows := range s.Facts {
		if rel == "" {
			return fmt.Errorf("facts: relation name is empty")
		}
		if _, err := toRows(rows); err != nil {
			return fmt.Errorf("facts.%s: %w", rel, err)
		}
	}

	checks := []struct {
		field string
		rows  [][]any
	}{
		{"expect.rows", s.Expect.Rows},
		{"expect.contains", s.Expect.Contains},
		{"expect.absent", s.Expect.Absent},
	}
	for _, c := range checks {
		if _, err := toRows(c.rows); err != nil {
			return fmt.Errorf("%s: %w", c.field, err)
		}
	}

	return nil
}
