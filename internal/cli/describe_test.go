package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildgov/internal/compiler"
)

func TestDescribeBuiltin(t *testing.T) {
	out, _, err := execute(t, "", "describe")
	require.NoError(t, err)

	assert.Contains(t, out, "Concept: Project")
	assert.Contains(t, out, "Spec hash: ")
	assert.Contains(t, out, "Project { ")
	assert.Contains(t, out, "makePayment(to: string, amount: int)")
	assert.Contains(t, out, "requires: administrator")
	assert.Contains(t, out, "regainSafetyCompliance()")
	assert.Contains(t, out, "InsufficientBudget")
}

func TestDescribeJSON(t *testing.T) {
	out, _, err := execute(t, "", "describe", "--format", "json")
	require.NoError(t, err)

	var result DescribeResult
	decodeResponse(t, out, &result)
	require.NotNil(t, result.Concept)
	assert.Equal(t, "Project", result.Concept.Name)
	assert.Len(t, result.Concept.Actions, 12)
	assert.Len(t, result.SpecHash, 64)
}

func TestDescribeConceptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.cue")
	require.NoError(t, os.WriteFile(path, compiler.ProjectConceptSource, 0o644))

	builtin, _, err := execute(t, "", "describe", "--format", "json")
	require.NoError(t, err)
	fromFile, errOut, err := execute(t, "", "describe", "--concept", path, "--format", "json", "--verbose")
	require.NoError(t, err)

	var a, b DescribeResult
	decodeResponse(t, builtin, &a)
	decodeResponse(t, fromFile, &b)
	assert.Equal(t, a.SpecHash, b.SpecHash)
	assert.Contains(t, errOut, "compiling "+path)
}

func TestDescribeConceptErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.cue")
	require.NoError(t, os.WriteFile(path, compiler.ProjectConceptSource, 0o644))
	broken := filepath.Join(dir, "broken.cue")
	require.NoError(t, os.WriteFile(broken, []byte("concept: Project: {"), 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{"unknown_name", []string{"--concept", path, "--name", "Warehouse"}},
		{"syntax_error", []string{"--concept", broken}},
		{"missing_file", []string{"--concept", filepath.Join(dir, "missing.cue")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", append([]string{"describe"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, err.Error(), "concept does not compile")
		})
	}
}
