package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

const noChartsFormatScore = 50.0

var (
	titlePattern       = regexp.MustCompile(`\.(title|set_title|suptitle)\s*\(|\btitle\s*=`)
	xLabelPattern      = regexp.MustCompile(`\.(xlabel|set_xlabel|set_axis_labels)\s*\(|\bxlabel\s*=`)
	yLabelPattern      = regexp.MustCompile(`\.(ylabel|set_ylabel|set_axis_labels)\s*\(|\bylabel\s*=`)
	labelsArgPattern   = regexp.MustCompile(`\blabels\s*=`)
	legendPattern      = regexp.MustCompile(`\.legend\s*\(|\blegend\s*=\s*True`)
	seriesLabelPattern = regexp.MustCompile(`\blabel\s*=`)
)

// chartFormatting records the formatting found in one chart's window
type chartFormatting struct {
	Chart  chartCall
	Title  bool
	Axes   bool
	Legend bool
	Series int // label= occurrences in the window
}

// Complete reports whether the chart carries all the formatting it needs
func (f chartFormatting) Complete() bool {
	if !f.Title || !f.Axes {
		return false
	}
	return f.Series < 2 || f.Legend
}

// missing lists the absent formatting elements
func (f chartFormatting) missing() []string {
	var out []string
	if !f.Title {
		out = append(out, "title")
	}
	if !f.Axes {
		if f.Chart.Type == "pie" {
			out = append(out, "slice labels")
		} else {
			out = append(out, "axis labels")
		}
	}
	if f.Series >= 2 && !f.Legend {
		out = append(out, "legend")
	}
	return out
}

type visFormatAnalyzer struct {
	params Params
}

func (a *visFormatAnalyzer) ID() MetricID       { return MetricVisualFormat }
func (a *visFormatAnalyzer) Category() Category { return CategoryBusiness }

// Analyze scores the fraction of charts with a title, axis labels and,
// for multi-series charts, a legend within the chart's window
func (a *visFormatAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())

	charts := findCharts(sc)
	if len(charts) == 0 {
		res.Evidence["charts"] = 0
		return finish(res, noChartsFormatScore, "No charts found to evaluate formatting", sc)
	}

	formatted := 0
	var titled, labeled int
	for _, f := range inspectCharts(sc, charts) {
		if f.Title {
			titled++
		}
		if f.Axes {
			labeled++
		}
		if f.Complete() {
			formatted++
			continue
		}
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  fmt.Sprintf("%s chart (%s) is missing %s", f.Chart.Type, f.Chart.Func, strings.Join(f.missing(), ", ")),
			Cell:     cellRef(f.Chart.Cell),
			Severity: SeverityMinor,
		})
	}

	score := 100 * ratio(formatted, len(charts))

	res.Evidence["charts"] = len(charts)
	res.Evidence["fully_formatted"] = formatted
	res.Evidence["with_title"] = titled
	res.Evidence["with_axis_labels"] = labeled

	summary := fmt.Sprintf("%d of %d charts have complete titles, labels and legends", formatted, len(charts))
	return finish(res, score, summary, sc)
}

// inspectCharts checks each chart's window for formatting calls.
// A window spans the chart's statement up to the next chart in the same cell;
// the first chart of a cell also owns the statements before it.
func inspectCharts(sc *scan, charts []chartCall) []chartFormatting {
	stmtsByCell := make(map[int][]statement, len(sc.Cells))
	for _, c := range sc.Cells {
		stmtsByCell[c.Index] = c.Statements
	}

	out := make([]chartFormatting, 0, len(charts))
	for i, ch := range charts {
		stmts := stmtsByCell[ch.Cell]

		lo := ch.Stmt
		if i == 0 || charts[i-1].Cell != ch.Cell {
			lo = 0
		}
		hi := len(stmts) - 1
		for _, next := range charts[i+1:] {
			if next.Cell != ch.Cell {
				break
			}
			if next.Stmt > ch.Stmt {
				hi = next.Stmt - 1
				break
			}
		}

		var texts []string
		for _, s := range stmts[lo : hi+1] {
			texts = append(texts, s.Masked)
		}
		window := strings.Join(texts, "\n")

		f := chartFormatting{
			Chart:  ch,
			Title:  titlePattern.MatchString(window),
			Legend: legendPattern.MatchString(window),
			Series: len(seriesLabelPattern.FindAllString(window, -1)),
		}
		hasLabels := labelsArgPattern.MatchString(window)
		if ch.Type == "pie" {
			f.Axes = hasLabels || f.Legend
		} else {
			f.Axes = hasLabels || (xLabelPattern.MatchString(window) && yLabelPattern.MatchString(window))
		}
		out = append(out, f)
	}
	return out
}
