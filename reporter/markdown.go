package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
)

// renderMarkdown writes one section per notebook with GitHub-flavoured tables
func renderMarkdown(w io.Writer, reports []*analyzer.Report) error {
	var sb strings.Builder
	sb.WriteString("# Notebook Health Report\n")

	for _, r := range reports {
		fmt.Fprintf(&sb, "\n## %s\n\n", r.Notebook.Name)
		fmt.Fprintf(&sb, "Overall score: **%s** (%s)  \n", formatScore(r.OverallScore), levelOrNA(r.OverallLevel))
		fmt.Fprintf(&sb, "Cells: %d (%d code, %d markdown)  \n", r.Notebook.TotalCells, r.Notebook.CodeCells, r.Notebook.MarkdownCells)
		fmt.Fprintf(&sb, "Notebook id: `%s`\n", r.NotebookID)

		sb.WriteString("\n### Categories\n\n")
		sb.WriteString(categoryTable(r).RenderMarkdown())
		sb.WriteString("\n")

		sb.WriteString("\n### Metrics\n\n")
		sb.WriteString(metricTable(r).RenderMarkdown())
		sb.WriteString("\n")

		if len(r.Diagnostics) > 0 {
			sb.WriteString("\n### Diagnostics\n\n")
			for _, d := range r.Diagnostics {
				fmt.Fprintf(&sb, "- **%s** (%s, %s): %s\n", d.Type, d.Severity, d.TargetName, d.Message)
			}
		}

		sb.WriteString("\n### Findings\n")
		for _, m := range r.Metrics {
			fmt.Fprintf(&sb, "\n#### %s\n\n", m.MetricID)
			for _, f := range m.Findings {
				mark := "+"
				if f.Polarity == analyzer.Negative {
					mark = "-"
				}
				location := ""
				if f.Cell != nil {
					location = fmt.Sprintf(" (cell %d)", *f.Cell)
				}
				fmt.Fprintf(&sb, "- [%s] %s%s\n", mark, f.Message, location)
			}
		}
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}

func categoryTable(r *analyzer.Report) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Category", "Score", "Level", "Status", "Weight"})
	for _, c := range r.Categories {
		t.AppendRow(table.Row{c.Category, formatScore(c.Score), levelOrNA(c.Level), c.Status, c.Weight})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}, {Number: 5, Align: text.AlignRight}})
	return t
}

func metricTable(r *analyzer.Report) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Category", "Score", "Level", "Status"})
	for _, m := range r.Metrics {
		t.AppendRow(table.Row{m.MetricID, m.Category, formatScore(m.Score), levelOrNA(m.Level), m.Status})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	return t
}

// SummaryTable renders a terminal table with one row per notebook
func SummaryTable(reports []*analyzer.Report) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	header := table.Row{"Notebook", "Overall", "Level"}
	for _, c := range analyzer.Categories {
		header = append(header, c)
	}
	header = append(header, "Diagnostics")
	t.AppendHeader(header)

	for _, r := range reports {
		row := table.Row{r.Notebook.Name, formatScore(r.OverallScore), levelOrNA(r.OverallLevel)}
		for _, c := range r.Categories {
			row = append(row, formatScore(c.Score))
		}
		row = append(row, len(r.Diagnostics))
		t.AppendRow(row)
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 48},
		{Number: 2, Align: text.AlignRight},
	})
	return t.Render()
}

func levelOrNA(l analyzer.Level) string {
	if l == "" {
		return "n/a"
	}
	return string(l)
}
