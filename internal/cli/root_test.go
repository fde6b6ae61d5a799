package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv isolates a command run from the user's config and environment
// and returns a database path in a scratch directory.
func testEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"DATABASE", "FORMAT", "SCHEMA", "VERBOSE"} {
		t.Setenv("TRUTHGRAPH_"+key, "")
	}
	return filepath.Join(home, "truthgraph.db")
}

// execute runs the root command and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "truthgraph", cmd.Use)
	assert.Contains(t, cmd.Long, "provenance chain")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"ingest", "resolve", "effective", "gaps", "reach", "infer", "provenance", "opinion", "export", "delete", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "schema"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	db := testEnv(t)
	_, err := execute(t, "--db", db, "--format", "xml", "delete", "msa")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "format must be text or json")
}

func TestRootCommand_ConfigFileSetsDatabase(t *testing.T) {
	db := testEnv(t)
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database: "+db+"\nschema: testdata/contract.yaml\n"), 0o644))

	_, err := execute(t, "--config", cfg, "ingest", "testdata/acme.yaml")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "gaps", "--document", "msa")
	require.NoError(t, err)
	assert.Contains(t, out, "partial  notice_period", "schema from the config file was applied")
	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "delete", "msa")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
