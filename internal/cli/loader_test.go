package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProgram(t *testing.T) {
	p, err := LoadProgram(reachabilityDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"edge", "reachable"}, p.Relations())
}

func TestLoadProgram_Errors(t *testing.T) {
	emptyDir := t.TempDir()

	file := filepath.Join(t.TempDir(), "x.cue")
	require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0644))

	tests := []struct {
		name     string
		dir      string
		wantCode string
	}{
		{"not found", "/nonexistent/program", ErrCodeNotFound},
		{"not a directory", file, ErrCodeNotFound},
		{"no cue files", emptyDir, ErrCodeNoFiles},
		{"cue syntax", writeProgram(t, "package p\n\nrelation: {\n"), ErrCodeLoadFailed},
		{"float literal", writeProgram(t, "package p\n\nrelation: r: facts: [[1.5]]\n"), ErrCodeDecode},
		{"no relations", writeProgram(t, "package p\n\nother: 1\n"), ErrCodeDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProgram(tt.dir)
			require.Error(t, err)

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.wantCode, loadErr.Code)
		})
	}
}

func TestLoadProgram_DecodeErrorHasPosition(t *testing.T) {
	dir := writeProgram(t, "package p\n\nrelation: r: facts: [[1.5]]\n")

	_, err := LoadProgram(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.True(t, loadErr.Pos.IsValid())
	assert.Equal(t, 3, loadErr.Pos.Line())
	assert.Contains(t, loadErr.Error(), "program.cue:3:")
	assert.Contains(t, loadErr.Message, "floats are forbidden")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.cue"), nil, 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}

func TestConvertCompileError(t *testing.T) {
	p, err := LoadProgram(invalidDir)
	require.NoError(t, err)

	_, err = p.Render("path")
	require.Error(t, err)

	loadErr := convertCompileError(err)
	assert.Equal(t, "E201", loadErr.Code)
	assert.Len(t, loadErr.Problems, 3)
	assert.NotContains(t, loadErr.Message, "E201:")
}
