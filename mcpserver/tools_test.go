package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/history"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/logging"
)

const sampleNotebook = `{"nbformat": 4, "nbformat_minor": 5, "cells": [
  {"cell_type": "markdown", "source": "# Churn"},
  {"cell_type": "code", "source": ["import pandas as pd\n", "df = pd.read_csv('churn.csv')\n"]}
]}`

func writeNotebook(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sampleNotebook), 0o644))
	return path
}

func newTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// makeReq builds a mcp.CallToolRequest with the given arguments
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func newAnalyzeTool(store *history.Store) *AnalyzeTool {
	return NewAnalyzeTool(analyzer.NewEngine(analyzer.DefaultRegistry()), store, logging.Nop())
}

func TestAnalyzeTool_Definition(t *testing.T) {
	def := newAnalyzeTool(nil).Definition()
	assert.Equal(t, "analyze_notebook", def.Name)
	for _, p := range []string{"path", "format", "exclude", "record"} {
		assert.Contains(t, def.InputSchema.Properties, p)
	}
	assert.Equal(t, []string{"path"}, def.InputSchema.Required)
}

func TestAnalyzeTool_Markdown(t *testing.T) {
	path := writeNotebook(t, t.TempDir(), "churn.ipynb")

	res, err := newAnalyzeTool(nil).Handle(context.Background(), makeReq(map[string]interface{}{"path": path}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "## churn.ipynb")
}

func TestAnalyzeTool_JSONAndRecord(t *testing.T) {
	store := newTestStore(t)
	path := writeNotebook(t, t.TempDir(), "churn.ipynb")

	res, err := newAnalyzeTool(store).Handle(context.Background(), makeReq(map[string]interface{}{
		"path":   path,
		"format": "json",
		"record": true,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &decoded))
	assert.Equal(t, "churn.ipynb", decoded["notebook"].(map[string]any)["name"])

	runs, err := store.List(context.Background(), history.Query{Notebook: "churn.ipynb"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAnalyzeTool_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeNotebook(t, dir, "churn.ipynb")

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing path", map[string]interface{}{}, "'path' is required"},
		{"html format", map[string]interface{}{"path": path, "format": "html"}, "'format' must be"},
		{"no notebooks", map[string]interface{}{"path": t.TempDir()}, "no notebooks found"},
		{"record without store", map[string]interface{}{"path": path, "record": true}, "history is disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newAnalyzeTool(nil).Handle(context.Background(), makeReq(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(res), tt.want)
		})
	}
}

func TestHistoryTool(t *testing.T) {
	store := newTestStore(t)
	tool := NewHistoryTool(store)
	assert.Equal(t, "notebook_history", tool.Definition().Name)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, "No recorded runs found.", resultText(res))

	path := writeNotebook(t, t.TempDir(), "churn.ipynb")
	analyze := newAnalyzeTool(store)
	for i := 0; i < 2; i++ {
		res, err := analyze.Handle(context.Background(), makeReq(map[string]interface{}{"path": path, "record": true}))
		require.NoError(t, err)
		require.False(t, res.IsError, resultText(res))
	}

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"notebook": "churn.ipynb", "limit": float64(5)}))
	require.NoError(t, err)
	text := resultText(res)
	assert.Contains(t, text, "Found 2 runs")
	assert.Contains(t, text, "builder_mindset=")
	assert.Contains(t, text, "Change since previous run: +0.0")
}

func listedTools(t *testing.T, engine *analyzer.Engine, store *history.Store) string {
	t.Helper()
	s := New(engine, store, logging.Test(t))
	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`))
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(out)
}

func TestNew_RegistersTools(t *testing.T) {
	engine := analyzer.NewEngine(analyzer.DefaultRegistry())

	withHistory := listedTools(t, engine, newTestStore(t))
	assert.Contains(t, withHistory, `"analyze_notebook"`)
	assert.Contains(t, withHistory, `"notebook_history"`)

	withoutHistory := listedTools(t, engine, nil)
	assert.Contains(t, withoutHistory, `"analyze_notebook"`)
	assert.NotContains(t, withoutHistory, `"notebook_history"`)
}
