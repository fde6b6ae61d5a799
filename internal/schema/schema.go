package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/truthgraph/internal/ir"
)

// Schema maps clause types to their fact specs. It satisfies
// engine.SlotSchema.
type Schema struct {
	ClauseTypes map[string][]ir.FactSpec `json:"clause_types" yaml:"clause_types"`
}

// Specs returns a copy of the specs of a clause type, nil when the type is
// unknown.
func (s *Schema) Specs(clauseType string) []ir.FactSpec {
	if s == nil {
		return nil
	}
	specs, ok := s.ClauseTypes[clauseType]
	if !ok {
		return nil
	}
	return slices.Clone(specs)
}

// Types returns the clause types in sorted order.
func (s *Schema) Types() []string {
	types := make([]string, 0, len(s.ClauseTypes))
	for t := range s.ClauseTypes {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Validate checks every spec: a name, a known kind when set, a compilable
// pattern, and names unique within a clause type.
func (s *Schema) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	var problems []string
	for _, clauseType := range s.Types() {
		seen := make(map[string]bool)
		for i, spec := range s.ClauseTypes[clauseType] {
			where := fmt.Sprintf("%s[%d]", clauseType, i)
			if err := v.Struct(spec); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", where, err))
				continue
			}
			if spec.Kind != "" {
				if _, err := ir.ParseFactKind(string(spec.Kind)); err != nil {
					problems = append(problems, fmt.Sprintf("%s: %v", where, err))
				}
			}
			if spec.Pattern != "" {
				if _, err := regexp.Compile(spec.Pattern); err != nil {
					problems = append(problems, fmt.Sprintf("%s: pattern: %v", where, err))
				}
			}
			if seen[spec.Name] {
				problems = append(problems, fmt.Sprintf("%s: duplicate spec %q", where, spec.Name))
			}
			seen[spec.Name] = true
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid schema: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads a schema file, choosing the format by extension: .cue for
// CUE, .yaml, .yml or .json for YAML.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		return ParseCUE(data, path)
	case ".yaml", ".yml", ".json":
		return ParseYAML(data, path)
	default:
		return nil, fmt.Errorf("schema %s: unsupported extension %q", path, ext)
	}
}
