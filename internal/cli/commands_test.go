package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/harness"
	"github.com/roach88/truthgraph/internal/ir"
)

// ingestAcme loads testdata/acme.yaml and returns the database path and the
// fact IDs by bundle ref.
func ingestAcme(t *testing.T) (string, map[string]string) {
	t.Helper()
	db := testEnv(t)
	out, err := execute(t, "--db", db, "--format", "json", "ingest", "testdata/acme.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   harness.Applied `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return db, resp.Data.Facts
}

func TestIngestCommand_TextSummary(t *testing.T) {
	db := testEnv(t)
	out, err := execute(t, "--db", db, "ingest", "testdata/acme.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  2")
	assert.Contains(t, out, "Facts:      3 inserted, 0 unchanged")
	assert.Contains(t, out, "Bindings:   2")

	out, err = execute(t, "--db", db, "ingest", "testdata/acme.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Facts:      0 inserted, 3 unchanged")
}

func TestIngestCommand_MissingBundle(t *testing.T) {
	db := testEnv(t)
	out, err := execute(t, "--db", db, "ingest", "testdata/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestResolveCommand(t *testing.T) {
	db, _ := ingestAcme(t)

	out, err := execute(t, "--db", db, "resolve", "Notice Period", "--document", "msa")
	require.NoError(t, err)
	assert.Contains(t, out, "Notice Period = sixty days")
	assert.Contains(t, out, "document: amend-1")

	out, err = execute(t, "--db", db, "resolve", "Governing Law", "--family", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Governing Law is unbound")

	out, err = execute(t, "--db", db, "--format", "json", "resolve", "notice period", "--family", "acme")
	require.NoError(t, err)
	var resp struct {
		Data ir.BindingResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ir.BindingResolved, resp.Data.Status)
	assert.Equal(t, "sixty days", resp.Data.Binding.Value)
}

func TestResolveCommand_RequiresScope(t *testing.T) {
	db := testEnv(t)
	_, err := execute(t, "--db", db, "resolve", "Notice Period")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEffectiveCommand(t *testing.T) {
	db, _ := ingestAcme(t)

	out, err := execute(t, "--db", db, "effective", "notice_period", "--family", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "notice_period = thirty days")
	assert.Contains(t, out, "document: msa")

	out, err = execute(t, "--db", db, "effective", "governing_law", "--family", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "governing_law has no value in family acme")
}

func TestGapsCommand_Strict(t *testing.T) {
	db := testEnv(t)
	_, err := execute(t, "--db", db, "--schema", "testdata/contract.yaml", "ingest", "testdata/acme.yaml")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "gaps", "--family", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Gap report for family acme")
	assert.Contains(t, out, "[msa] 1 Termination (termination)")

	_, err = execute(t, "--db", db, "gaps", "--document", "msa", "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGapsCommand_RecomputeAppliesNewSchema(t *testing.T) {
	db := testEnv(t)
	_, err := execute(t, "--db", db, "ingest", "testdata/acme.yaml")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "gaps", "--family", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Clauses with gaps: 0")

	out, err = execute(t, "--db", db, "--schema", "testdata/contract.yaml", "gaps", "--family", "acme", "--recompute")
	require.NoError(t, err)
	assert.Contains(t, out, "Clauses with gaps: 1")
	assert.Contains(t, out, "[msa] 1 Termination (termination)")

	out, err = execute(t, "--db", db, "gaps", "--document", "msa")
	require.NoError(t, err)
	assert.Contains(t, out, "Clauses with gaps: 1", "recomputed slots are stored")
}

func TestInferAndProvenanceCommands(t *testing.T) {
	db, facts := ingestAcme(t)

	out, err := execute(t, "--db", db, "--format", "json", "infer",
		"--document", "msa", "--kind", "risk",
		"--claim", "Notice period is not stated in days",
		"--fact", facts["msa-notice"],
		"--confidence", "0.3", "--producer", "analyst")
	require.NoError(t, err)
	var resp struct {
		Data ir.InferenceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	inf := resp.Data.Inference
	assert.True(t, inf.NeedsReview)
	assert.Equal(t, "fixed", inf.ConfidenceBasis)

	out, err = execute(t, "--db", db, "provenance", inf.ID, "--answer", "q1")
	require.NoError(t, err)
	assert.Contains(t, out, "Answer q1")
	assert.Contains(t, out, "thirty days")
	assert.Contains(t, out, "[msa, Section 1]")

	out, err = execute(t, "--db", db, "opinion", "--role", "buyer", "--min-confidence", "0.5", inf.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "buyer: needs_review")
}

func TestInferCommand_RejectsUnsupportedClaim(t *testing.T) {
	db, _ := ingestAcme(t)
	out, err := execute(t, "--db", db, "infer", "--family", "acme",
		"--claim", "Unsupported", "--confidence", "0.9", "--producer", "analyst")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVALID_INFERENCE")
}

func TestProvenanceCommand_BrokenChain(t *testing.T) {
	db, _ := ingestAcme(t)
	out, err := execute(t, "--db", db, "provenance", "inf-missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "BROKEN_PROVENANCE")
}

func TestExportCommand(t *testing.T) {
	db, _ := ingestAcme(t)

	out, err := execute(t, "--db", db, "export", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Graph for family acme")
	assert.Contains(t, out, "  binding    2")

	out, err = execute(t, "--db", db, "export", "acme", "--as", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")

	_, err = execute(t, "--db", db, "export", "acme", "--as", "png")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "--db", db, "export", "globex")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDeleteCommand_RestoresBaseBinding(t *testing.T) {
	db, _ := ingestAcme(t)

	out, err := execute(t, "--db", db, "delete", "amend-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted amend-1")

	out, err = execute(t, "--db", db, "resolve", "Notice Period", "--family", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Notice Period = thirty days")
}
