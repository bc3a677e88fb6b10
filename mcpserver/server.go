// Package mcpserver exposes notebook analysis as Model Context Protocol tools.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/history"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

const instructions = `Notebook Health Analyzer scores Jupyter notebooks on two categories:
builder_mindset (formatting, structure, comments, conciseness, reusability,
advanced techniques, dataset joins) and business_intelligence (visualization
types and formatting). Scores range from 0 to 100.

Use analyze_notebook with a notebook file or a directory of notebooks.
Use notebook_history to see how a notebook's scores changed between runs.`

// New creates the MCP server with the analysis tools registered.
// A nil store disables the history tool and recording.
func New(engine *analyzer.Engine, store *history.Store, lggr logging.Logger) *server.MCPServer {
	lggr = lggr.Named("mcp")

	s := server.NewMCPServer(
		"nbhealth",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	analyzeTool := NewAnalyzeTool(engine, store, lggr)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	if store == nil {
		lggr.Warnw("history store disabled, notebook_history is not available")
		return s
	}

	historyTool := NewHistoryTool(store)
	s.AddTool(historyTool.Definition(), historyTool.Handle)
	return s
}

// ServeStdio serves s over stdin and stdout until the input closes
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
