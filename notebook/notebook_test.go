package notebook

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "nbformat": 4,
  "nbformat_minor": 5,
  "metadata": {"kernelspec": {"name": "python3"}},
  "cells": [
    {"cell_type": "markdown", "metadata": {}, "source": ["# Sales\n", "Quarterly review."]},
    {"cell_type": "code", "execution_count": 1, "metadata": {}, "outputs": [], "source": ["import pandas as pd\n", "df = pd.read_csv('sales.csv')"]},
    {"cell_type": "raw", "metadata": {}, "source": "ignored"},
    {"cell_type": "code", "execution_count": null, "metadata": {}, "outputs": [], "source": "df.head()"}
  ]
}`

func TestDecode_ReadsCellsInOrder(t *testing.T) {
	nb, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	require.Len(t, nb.Cells, 3)
	assert.Equal(t, 4, nb.Format)

	assert.Equal(t, KindMarkdown, nb.Cells[0].Kind)
	assert.Equal(t, 0, nb.Cells[0].Index)
	assert.Equal(t, "# Sales\nQuarterly review.", nb.Cells[0].Source)

	assert.Equal(t, KindCode, nb.Cells[1].Kind)
	assert.Equal(t, 1, nb.Cells[1].Index)
	require.NotNil(t, nb.Cells[1].ExecutionCount)
	assert.Equal(t, 1, *nb.Cells[1].ExecutionCount)

	// The raw cell is skipped but indices keep their document positions
	assert.Equal(t, 3, nb.Cells[2].Index)
	assert.Nil(t, nb.Cells[2].ExecutionCount)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"invalid json", `{"cells": [`, "invalid JSON"},
		{"missing cells", `{"nbformat": 3, "worksheets": []}`, `missing "cells"`},
		{"missing cell_type", `{"cells": [{"source": "x"}]}`, `cells[0]: missing "cell_type"`},
		{"unknown cell_type", `{"cells": [{"cell_type": "widget", "source": "x"}]}`, "unknown cell_type"},
		{"missing source", `{"cells": [{"cell_type": "code"}]}`, `missing "source"`},
		{"bad source", `{"cells": [{"cell_type": "code", "source": 42}]}`, "must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecode_ZeroCellsIsNotFatal(t *testing.T) {
	nb, err := Decode(strings.NewReader(`{"cells": [], "nbformat": 4}`))
	require.NoError(t, err)
	assert.Empty(t, nb.Cells)

	src, err := Extract(nb)
	assert.ErrorIs(t, err, ErrEmptyNotebook)
	require.NotNil(t, src)
	assert.True(t, src.Empty())
	assert.Empty(t, src.Program().Lines)
}

func TestLoad_SetsNameAndPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	nb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "report.ipynb", nb.Name)
	assert.Equal(t, path, nb.Path)
	assert.Equal(t, []byte(sampleDoc), nb.Identity())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ipynb"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformed))
}

func TestExtract_PartitionsAndMarksBoundaries(t *testing.T) {
	nb := New("demo.ipynb",
		Markdown("# Title"),
		Code("x = 1\ny = 2\n"),
		Markdown("Notes"),
		Code("print(x + y)"),
	)

	src, err := Extract(nb)
	require.NoError(t, err)
	require.Len(t, src.Code, 2)
	require.Len(t, src.Markdown, 2)
	assert.Equal(t, 4, src.TotalCells)
	assert.Equal(t, 1, src.Code[0].Index)
	assert.Equal(t, 3, src.Code[1].Index)

	prog := src.Program()
	want := "# %% [cell 1]\nx = 1\ny = 2\n# %% [cell 3]\nprint(x + y)\n"
	assert.Equal(t, want, prog.Text)

	require.Len(t, prog.Lines, 5)
	assert.True(t, prog.Lines[0].Boundary)
	assert.Equal(t, ProgramLine{Cell: 1, Line: 2, Text: "y = 2"}, prog.Lines[2])
	assert.Equal(t, ProgramLine{Cell: 3, Line: 1, Text: "print(x + y)"}, prog.Lines[4])
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb"))
}

func TestIdentity_InMemoryNotebooksDifferByContent(t *testing.T) {
	a := New("a.ipynb", Code("x = 1"))
	b := New("a.ipynb", Code("x = 2"))
	assert.NotEqual(t, a.Identity(), b.Identity())
	assert.Equal(t, a.Identity(), New("a.ipynb", Code("x = 1")).Identity())
}

func TestDiscover_SkipsCheckpointsAndExcludes(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"a.ipynb",
		"sub/b.ipynb",
		"sub/notes.txt",
		".ipynb_checkpoints/a-checkpoint.ipynb",
		".hidden/c.ipynb",
		"scratch/d.ipynb",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(`{"cells": []}`), 0o600))
	}

	paths, err := Discover(root, []string{"scratch"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.ipynb"),
		filepath.Join(root, "sub", "b.ipynb"),
	}, paths)
}
