package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileText(t *testing.T) {
	path := writeTree(t, counterTree)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled "+path)
	assert.Contains(t, out, `"kind": "Counter"`)
	assert.Contains(t, out, `"start": 2`)
}

func TestCompileJSON(t *testing.T) {
	path := writeTree(t, counterTree)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Hash, 64)
	assert.JSONEq(t, `{"children":[],"kind":"Counter","props":{"start":2}}`, string(resp.Data.Tree))
}

func TestCompileHashIsStable(t *testing.T) {
	a := writeTree(t, counterTree)
	b := writeTree(t, "// same tree, different layout\ntree: props: start: 2\ntree: kind: \"Counter\"\n")

	var hashes []string
	for _, path := range []string{a, b} {
		out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), path)
		require.NoError(t, err)
		var resp struct {
			Data CompilationResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		hashes = append(hashes, resp.Data.Hash)
	}
	assert.Equal(t, hashes[0], hashes[1])
}

func TestCompileOutputToFile(t *testing.T) {
	path := writeTree(t, storiesTree)
	outFile := filepath.Join(t.TempDir(), "tree.json")

	_, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), path, "--output", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var tree map[string]any
	require.NoError(t, json.Unmarshal(data, &tree))
	assert.Equal(t, "StoryList", tree["kind"])
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		wantExit int
		wantOut  string
	}{
		{
			name:     "missing file",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.cue") },
			wantExit: ExitCommandError,
			wantOut:  "Error [E005]",
		},
		{
			name:     "empty directory",
			path:     func(t *testing.T) string { return t.TempDir() },
			wantExit: ExitCommandError,
			wantOut:  "Error [E003]",
		},
		{
			name:     "syntax error",
			path:     func(t *testing.T) string { return writeTree(t, "tree: {kind: \n") },
			wantExit: ExitFailure,
			wantOut:  "Error [E006]",
		},
		{
			name:     "unknown component",
			path:     func(t *testing.T) string { return writeTree(t, "tree: kind: \"Nope\"\n") },
			wantExit: ExitFailure,
			wantOut:  "Error [E202]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), tt.path(t))
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestCompileErrorJSON(t *testing.T) {
	path := writeTree(t, "tree: {\n\tkind: \"div\"\n\tprops: ratio: 1.5\n}\n")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E204", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "tree.cue:3:")
}
