package reporter

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
)

//go:embed template.html
var htmlTemplate string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"levelClass": levelClass,
	"score":      formatScore,
	"cell": func(idx *int) string {
		if idx == nil {
			return ""
		}
		return fmt.Sprintf("cell %d", *idx)
	},
	"add": func(a, b int) int {
		return a + b
	},
}).Parse(htmlTemplate))

// renderHTML generates an HTML report from the analysis results
func renderHTML(w io.Writer, reports []*analyzer.Report) error {
	// Prepare template data
	data := prepareTemplateData(reports)

	// Execute template
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// TemplateData holds the data for the HTML template
type TemplateData struct {
	Summary Summary
	Reports []*analyzer.Report
}

// Summary holds summary statistics
type Summary struct {
	TotalNotebooks int
	ScoredCount    int      // Notebooks with an overall score
	AverageScore   *float64 // Mean overall score of scored notebooks
	LowScoreCount  int      // Overall level poor or critical
	FailedMetrics  int      // Metrics with status failed
	CriticalIssues int      // Critical diagnostics
	WarningIssues  int      // Warning diagnostics
}

// prepareTemplateData prepares data for the HTML template
func prepareTemplateData(reports []*analyzer.Report) TemplateData {
	// Sort notebooks by overall score (ascending) so the weakest come first
	sorted := make([]*analyzer.Report, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoreKey(sorted[i]) < scoreKey(sorted[j])
	})

	// Calculate summary statistics
	summary := Summary{TotalNotebooks: len(reports)}
	var total float64
	for _, r := range reports {
		if r.OverallScore != nil {
			summary.ScoredCount++
			total += *r.OverallScore
		}
		if r.OverallLevel == analyzer.LevelPoor || r.OverallLevel == analyzer.LevelCritical {
			summary.LowScoreCount++
		}
		for _, m := range r.Metrics {
			if m.Status == analyzer.StatusFailed {
				summary.FailedMetrics++
			}
		}

		// Count diagnostics by severity
		for _, d := range r.Diagnostics {
			if d.Severity == "Critical" {
				summary.CriticalIssues++
			} else if d.Severity == "Warning" {
				summary.WarningIssues++
			}
		}
	}
	if summary.ScoredCount > 0 {
		avg := total / float64(summary.ScoredCount)
		summary.AverageScore = &avg
	}

	return TemplateData{Summary: summary, Reports: sorted}
}

// scoreKey orders unscored notebooks before any scored one
func scoreKey(r *analyzer.Report) float64 {
	if r.OverallScore == nil {
		return -1
	}
	return *r.OverallScore
}

// levelClass maps a quality level to a traffic light color
func levelClass(level analyzer.Level) string {
	switch level {
	case analyzer.LevelExcellent, analyzer.LevelGood:
		return "green"
	case analyzer.LevelFair:
		return "yellow"
	case analyzer.LevelPoor, analyzer.LevelCritical:
		return "red"
	default:
		return "grey"
	}
}

// formatScore renders an optional score with one decimal
func formatScore(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *score)
}
