package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML (or JSON) schema. Unknown keys are rejected.
func ParseYAML(data []byte, filename string) (*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty schema", filename)
		}
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if s.ClauseTypes == nil {
		return nil, fmt.Errorf("%s: clause_types is required", filename)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &s, nil
}
