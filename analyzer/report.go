package analyzer

import (
	"time"

	"github.com/google/uuid"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// notebookNamespace scopes the deterministic notebook identities
var notebookNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/hiroki-yamauchi/notebook-health-analyzer"))

// NotebookID returns the deterministic identity of a notebook's name and content
func NotebookID(nb *notebook.Notebook) string {
	data := append([]byte(nb.Name+"\x00"), nb.Identity()...)
	return uuid.NewSHA1(notebookNamespace, data).String()
}

// Assemble packages metric results, their aggregation and diagnostics into a Report.
// It computes no scores; levels are read off the thresholds.
func Assemble(nb *notebook.Notebook, src *notebook.Sources, results []MetricResult, agg Aggregation, th Thresholds, generatedAt time.Time) *Report {
	info := NotebookInfo{Name: nb.Name, Path: nb.Path, Format: nb.Format}
	if src != nil {
		info.TotalCells = src.TotalCells
		info.CodeCells = len(src.Code)
		info.MarkdownCells = len(src.Markdown)
	}

	metrics := make([]MetricResult, len(results))
	for i, r := range results {
		if r.Score != nil {
			r.Level = th.Level(*r.Score)
		}
		metrics[i] = r
	}

	categories := make([]CategoryScore, len(agg.Categories))
	for i, c := range agg.Categories {
		if c.Score != nil {
			c.Level = th.Level(*c.Score)
		}
		categories[i] = c
	}

	report := &Report{
		NotebookID:   NotebookID(nb),
		Notebook:     info,
		OverallScore: agg.Overall,
		Categories:   categories,
		Metrics:      metrics,
		Diagnostics:  Diagnose(metrics, categories, th),
		GeneratedAt:  generatedAt.UTC(),
	}
	if agg.Overall != nil {
		report.OverallLevel = th.Level(*agg.Overall)
	}
	return report
}
