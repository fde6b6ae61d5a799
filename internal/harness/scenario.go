package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: bundles to load into a fresh
// engine and assertions to check afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the slot schema path (YAML or CUE). Optional.
	Schema string `yaml:"schema,omitempty"`

	// Bundles lists bundle files, applied in order.
	Bundles []string `yaml:"bundles"`

	// Assertions are checked after every bundle is applied.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one engine answer. Which fields apply depends on Type.
type Assertion struct {
	Type string `yaml:"type"`

	// Scope, used by binding, gaps and reachable.
	Document string `yaml:"document,omitempty"`
	Family   string `yaml:"family,omitempty"`

	// binding
	Term string `yaml:"term,omitempty"`
	From string `yaml:"from,omitempty"` // Document of the winning binding

	// effective
	Kind string `yaml:"kind,omitempty"`
	Key  string `yaml:"key,omitempty"`

	// binding and effective
	Status string `yaml:"status,omitempty"`
	Value  string `yaml:"value,omitempty"`

	// gaps
	Missing []string `yaml:"missing,omitempty"`
	Partial []string `yaml:"partial,omitempty"`

	// reachable
	Section  string   `yaml:"section,omitempty"`
	Sections []string `yaml:"sections,omitempty"`
	Cycle    []string `yaml:"cycle,omitempty"` // Sections expected to be in a cycle

	// references
	Resolved   *int `yaml:"resolved,omitempty"`
	Unresolved *int `yaml:"unresolved,omitempty"`

	// provenance
	Inference   string `yaml:"inference,omitempty"`
	NeedsReview *bool  `yaml:"needs_review,omitempty"`
	Facts       *int   `yaml:"facts,omitempty"`
	Bindings    *int   `yaml:"bindings,omitempty"`
}

// Assertion type constants.
const (
	AssertBinding    = "binding"
	AssertEffective  = "effective"
	AssertGaps       = "gaps"
	AssertReachable  = "reachable"
	AssertReferences = "references"
	AssertProvenance = "provenance"
)

// LoadScenario reads and parses a scenario YAML file. Schema and bundle
// paths are resolved relative to the scenario file. Unknown fields are
// rejected.
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

	base := filepath.Dir(path)
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(base, scenario.Schema)
	}
	for i, p := range scenario.Bundles {
		if !filepath.IsAbs(p) {
			scenario.Bundles[i] = filepath.Join(base, p)
		}
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
	if len(s.Bundles) == 0 {
		return fmt.Errorf("bundles list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertBinding:
		if a.Term == "" {
			return fmt.Errorf("binding requires term")
		}
		if a.Document == "" && a.Family == "" {
			return fmt.Errorf("binding requires document or family")
		}
	case AssertEffective:
		if a.Family == "" || a.Kind == "" || a.Key == "" {
			return fmt.Errorf("effective requires family, kind and key")
		}
	case AssertGaps:
		if a.Document == "" && a.Family == "" {
			return fmt.Errorf("gaps requires document or family")
		}
	case AssertReachable:
		if a.Document == "" || a.Section == "" {
			return fmt.Errorf("reachable requires document and section")
		}
	case AssertReferences:
		if a.Family == "" {
			return fmt.Errorf("references requires family")
		}
	case AssertProvenance:
		if a.Inference == "" {
			return fmt.Errorf("provenance requires inference")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
