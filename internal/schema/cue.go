package schema

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/truthgraph/internal/ir"
)

//go:embed definition.cue
var definitionCUE string

// LoadError is a schema error with its source position when known.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseCUE compiles a CUE schema, unifies it with the built-in definition
// and decodes it. Uses the CUE Go API directly.
func ParseCUE(data []byte, filename string) (*Schema, error) {
	ctx := cuecontext.New()

	def := ctx.CompileString(definitionCUE, cue.Filename("definition.cue"))
	if err := def.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	types := v.LookupPath(cue.ParsePath("clause_types"))
	if !types.Exists() {
		return nil, &LoadError{Field: "clause_types", Message: "clause_types is required", Pos: v.Pos()}
	}

	v = def.Unify(v)
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Schema{ClauseTypes: make(map[string][]ir.FactSpec)}
	iter, err := v.LookupPath(cue.ParsePath("clause_types")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		clauseType := iter.Label()
		specs, err := parseSpecs(iter.Value())
		if err != nil {
			return nil, err
		}
		s.ClauseTypes[clauseType] = specs
	}

	if err := s.Validate(); err != nil {
		return nil, &LoadError{Field: "clause_types", Message: err.Error(), Pos: types.Pos()}
	}
	return s, nil
}

func parseSpecs(v cue.Value) ([]ir.FactSpec, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	specs := []ir.FactSpec{}
	for list.Next() {
		var spec ir.FactSpec
		if err := list.Value().Decode(&spec); err != nil {
			return nil, formatCUEError(err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
