package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBundle = filepath.Join("..", "..", "internal", "adapters", "secondary", "ensemble", "testdata", "bundle.json")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(input, []byte("ID,f1,f2,f3\na,1,2,3\nb,0,4,5\n"), 0o644))

	out, err := run(t, "score", "--bundle", testBundle, "--input", input)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,BlendProperty1,BlendProperty2", lines[0])
	assert.Equal(t, "a,3.600000,4.400000", lines[1])
	assert.Equal(t, "b,1.600000,5.400000", lines[2])
}

func TestScoreCommand_ToFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("f1,f2,f3\n1,2,3\n"), 0o644))

	_, err := run(t, "score", "--bundle", testBundle, "--input", input, "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "BlendProperty1,BlendProperty2\n3.600000,4.400000\n", string(data))
}

func TestScoreCommand_SchemaMismatch(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(input, []byte("f1,f2\n1,2\n"), 0o644))

	_, err := run(t, "score", "--bundle", testBundle, "--input", input)
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	out, err := run(t, "inspect", "--bundle", testBundle, "--json")
	require.NoError(t, err)

	var s bundleSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, []string{"f1", "f2", "f3"}, s.Features)
	assert.Equal(t, 2, s.Targets)
	assert.Equal(t, []string{"lgbm", "catboost", "ridge"}, s.BaseLearners)
	assert.Equal(t, []string{"BlendProperty1", "BlendProperty2"}, s.Outputs)
}
