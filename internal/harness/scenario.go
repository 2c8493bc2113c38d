package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end build scenario: a project, a sequence of
// edits and builds, and assertions on the final build.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the content of the project's promptc.cue. Optional.
	Config string `yaml:"config,omitempty"`

	// Files maps slash-separated project paths to their content.
	Files map[string]string `yaml:"files"`

	// Documents restricts every build to these paths. When empty each build
	// discovers the documents below the configured source directory.
	Documents []string `yaml:"documents,omitempty"`

	// Flow contains the build steps, executed in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the last build.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep edits the project and then builds it.
type FlowStep struct {
	// Write replaces or creates files before the build.
	Write map[string]string `yaml:"write,omitempty"`

	// Remove deletes files before the build.
	Remove []string `yaml:"remove,omitempty"`

	// Build selects the build mode.
	Build BuildStep `yaml:"build"`

	// Expect optionally checks the build's counters.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// BuildStep mirrors the build command's flags.
type BuildStep struct {
	Incremental bool `yaml:"incremental,omitempty"`
}

// ExpectClause specifies expected build counters. Unset counters are not
// checked.
type ExpectClause struct {
	Compiled *int `yaml:"compiled,omitempty"`
	Cached   *int `yaml:"cached,omitempty"`
	Failed   *int `yaml:"failed,omitempty"`
}

// Assertion validates the final build.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_contains": artifact of Document contains Text
	// - "output_not_contains": artifact of Document lacks Text
	// - "output_equals": artifact of Document is exactly Text
	// - "error_code": Document failed with Code
	// - "manifest_contains": a call of Function was recorded
	Type string `yaml:"type"`

	Document string `yaml:"document,omitempty"`
	Text     string `yaml:"text,omitempty"`
	Code     string `yaml:"code,omitempty"`
	Function string `yaml:"function,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains    = "output_contains"
	AssertOutputNotContains = "output_not_contains"
	AssertOutputEquals      = "output_equals"
	AssertErrorCode         = "error_code"
	AssertManifestContains  = "manifest_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Files) == 0 {
		return fmt.Errorf("files map is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for name := range s.Files {
		if err := validateProjectPath(name); err != nil {
			return fmt.Errorf("files: %w", err)
		}
	}

	for i, step := range s.Flow {
		for name := range step.Write {
			if err := validateProjectPath(name); err != nil {
				return fmt.Errorf("flow[%d].write: %w", i, err)
			}
		}
		for _, name := range step.Remove {
			if err := validateProjectPath(name); err != nil {
				return fmt.Errorf("flow[%d].remove: %w", i, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateProjectPath rejects paths that would escape the project.
func validateProjectPath(name string) error {
	if name == "" || path.IsAbs(name) || strings.Contains(name, `\`) {
		return fmt.Errorf("invalid project path %q", name)
	}
	if clean := path.Clean(name); clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("project path %q escapes the project", name)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputContains, AssertOutputNotContains, AssertOutputEquals:
		if a.Document == "" {
			return fmt.Errorf("assertions[%d]: document is required for %s", index, a.Type)
		}
		if a.Text == "" && a.Type != AssertOutputEquals {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertErrorCode:
		if a.Document == "" || a.Code == "" {
			return fmt.Errorf("assertions[%d]: document and code are required for error_code", index)
		}
	case AssertManifestContains:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for manifest_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
