package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTreeFile(t *testing.T) {
	loaded, err := LoadTree(writeTree(t, counterTree))
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.FileCount)

	kind, err := loaded.Tree.LookupPath(cue.ParsePath("kind")).String()
	require.NoError(t, err)
	assert.Equal(t, "Counter", kind)
}

func TestLoadTreeWithoutTreeField(t *testing.T) {
	loaded, err := LoadTree(writeTree(t, `kind: "p"`+"\n"))
	require.NoError(t, err)

	kind, err := loaded.Tree.LookupPath(cue.ParsePath("kind")).String()
	require.NoError(t, err)
	assert.Equal(t, "p", kind)
}

func TestLoadTreeErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		wantCode string
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "x.cue") }, ErrCodeNotFound},
		{"empty dir", func(t *testing.T) string { return t.TempDir() }, ErrCodeNoFiles},
		{"syntax", func(t *testing.T) string { return writeTree(t, "tree: {kind: \n") }, ErrCodeBuildFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTree(tt.path(t))
			var le *LoadError
			require.True(t, errors.As(err, &le), "got %v", err)
			assert.Equal(t, tt.wantCode, le.Code)
		})
	}
}

func TestLoadErrorPosition(t *testing.T) {
	_, err := LoadTree(writeTree(t, "tree: {\n\tkind: \n"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.True(t, le.Pos.IsValid())
	assert.Contains(t, le.Error(), "tree.cue:")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.cue", "b.cue", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.cue"), nil, 0o644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "b.cue")}, files)
}
