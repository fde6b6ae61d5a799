package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/ir"
)

var wantTermination = []ir.FactSpec{
	{Name: "notice_period", Required: true, Pattern: "^[0-9]+ (days|months)"},
	{Name: "termination_fee"},
}

var wantPayment = []ir.FactSpec{
	{Name: "amount", EntityType: "money", Kind: ir.FactEntity, Required: true},
	{Name: "currency"},
}

func TestLoad_YAMLAndCUEAgree(t *testing.T) {
	for _, file := range []string{"contract.yaml", "contract.cue"} {
		t.Run(file, func(t *testing.T) {
			s, err := Load(filepath.Join("testdata", file))
			require.NoError(t, err)

			assert.Equal(t, []string{"payment", "termination"}, s.Types())
			assert.Equal(t, wantTermination, s.Specs("termination"))
			assert.Equal(t, wantPayment, s.Specs("payment"))
			assert.Nil(t, s.Specs("indemnity"))
		})
	}
}

func TestSpecs_ReturnsCopy(t *testing.T) {
	s := &Schema{ClauseTypes: map[string][]ir.FactSpec{"termination": {{Name: "notice_period"}}}}
	specs := s.Specs("termination")
	specs[0].Name = "changed"
	assert.Equal(t, "notice_period", s.Specs("termination")[0].Name)

	var nilSchema *Schema
	assert.Nil(t, nilSchema.Specs("termination"))
}

func TestParseYAML_Errors(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"empty":         {input: "", want: "empty schema"},
		"missing root":  {input: "other: 1\n", want: "field other not found"},
		"no types":      {input: "clause_types:\n", want: "clause_types is required"},
		"unnamed spec":  {input: "clause_types:\n  termination:\n    - required: true\n", want: "termination[0]"},
		"bad kind":      {input: "clause_types:\n  t:\n    - name: x\n      kind: paragraph\n", want: "paragraph"},
		"bad pattern":   {input: "clause_types:\n  t:\n    - name: x\n      pattern: \"(\"\n", want: "pattern"},
		"duplicate":     {input: "clause_types:\n  t:\n    - name: x\n    - name: x\n", want: `duplicate spec "x"`},
		"unknown field": {input: "clause_types:\n  t:\n    - name: x\n      optional: true\n", want: "optional"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tc.input), "schema.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseCUE_RejectsUnknownKind(t *testing.T) {
	src := `clause_types: termination: [{name: "notice_period", kind: "paragraph"}]`
	_, err := ParseCUE([]byte(src), "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind")
}

func TestParseCUE_RequiresClauseTypes(t *testing.T) {
	_, err := ParseCUE([]byte(`other: 1`), "empty.cue")
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "clause_types", loadErr.Field)
}

func TestParseCUE_SyntaxErrorHasPosition(t *testing.T) {
	_, err := ParseCUE([]byte("clause_types: {\n\ttermination: [\n"), "broken.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}
