package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/history"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/logging"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/reporter"
)

// AnalyzeTool handles the analyze_notebook MCP tool
type AnalyzeTool struct {
	engine *analyzer.Engine
	store  *history.Store
	lggr   logging.Logger
}

// NewAnalyzeTool creates an AnalyzeTool
func NewAnalyzeTool(engine *analyzer.Engine, store *history.Store, lggr logging.Logger) *AnalyzeTool {
	return &AnalyzeTool{engine: engine, store: store, lggr: lggr}
}

// Definition returns the MCP tool definition for analyze_notebook
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_notebook",
		mcp.WithDescription(
			"Analyze a Jupyter notebook (.ipynb) or every notebook under a directory and return "+
				"its quality report: overall score, category scores, per-metric scores with findings, "+
				"and integrated diagnostics.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a .ipynb file or a directory containing notebooks"),
		),
		mcp.WithString("format",
			mcp.Description("Report format: markdown (default) or json"),
		),
		mcp.WithString("exclude",
			mcp.Description("Comma-separated directory names to skip in directory mode"),
		),
		mcp.WithBoolean("record",
			mcp.Description("Record the reports in the run history (default: false)"),
		),
	)
}

// Handle processes the analyze_notebook tool call
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	format, err := reporter.ParseFormat(req.GetString("format", string(reporter.FormatMarkdown)))
	if err != nil || format == reporter.FormatHTML {
		return mcp.NewToolResultError("'format' must be markdown or json"), nil
	}

	reports, err := t.engine.AnalyzePath(ctx, path, splitList(req.GetString("exclude", "")))
	if err != nil {
		t.lggr.Warnw("analysis failed", "path", path, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	if boolArg(req, "record", false) {
		if t.store == nil {
			return mcp.NewToolResultError("run history is disabled"), nil
		}
		for _, r := range reports {
			if _, err := t.store.Record(ctx, r); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("recording failed: %v", err)), nil
			}
		}
	}

	var buf bytes.Buffer
	if err := reporter.Render(&buf, reports, format); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rendering failed: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// HistoryTool handles the notebook_history MCP tool
type HistoryTool struct {
	store *history.Store
}

// NewHistoryTool creates a HistoryTool
func NewHistoryTool(store *history.Store) *HistoryTool {
	return &HistoryTool{store: store}
}

// Definition returns the MCP tool definition for notebook_history
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_history",
		mcp.WithDescription(
			"List recorded analysis runs, newest first, with overall and category scores. "+
				"Use it to check whether a notebook improved since the last run.",
		),
		mcp.WithString("notebook",
			mcp.Description("Notebook name, path or id; omit to list every notebook"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max runs (default: 20)"),
		),
	)
}

// Handle processes the notebook_history tool call
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := t.store.List(ctx, history.Query{
		Notebook: req.GetString("notebook", ""),
		Limit:    intArg(req, "limit", history.DefaultLimit),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history lookup failed: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No recorded runs found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d runs:\n\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(&b, "#%d %s %s overall=%s (%s)",
			r.ID, r.GeneratedAt.Format("2006-01-02 15:04:05"), r.NotebookName, scoreText(r.OverallScore), r.OverallLevel)
		for _, c := range analyzer.Categories {
			fmt.Fprintf(&b, " %s=%s", c, scoreText(r.Categories[c]))
		}
		b.WriteString("\n")
	}
	if delta, ok := history.Delta(runs); ok && runs[0].NotebookName == runs[1].NotebookName {
		fmt.Fprintf(&b, "\nChange since previous run: %+.1f\n", delta)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func scoreText(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}
