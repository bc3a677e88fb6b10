package analyzer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

const (
	noChartTypesScore = 20.0
	diversityWeight   = 0.7
	varietyWeight     = 0.3
)

// chartFuncs maps matplotlib, seaborn and pandas plotting methods to chart types
var chartFuncs = map[string]string{
	"plot":         "line",
	"bar":          "bar",
	"barh":         "bar",
	"scatter":      "scatter",
	"hist":         "histogram",
	"boxplot":      "box",
	"violinplot":   "violin",
	"pie":          "pie",
	"fill_between": "area",
	"stackplot":    "area",
	"imshow":       "heatmap",
	"lineplot":     "line",
	"barplot":      "bar",
	"countplot":    "bar",
	"scatterplot":  "scatter",
	"histplot":     "histogram",
	"distplot":     "histogram",
	"kdeplot":      "kde",
	"heatmap":      "heatmap",
	"pairplot":     "pair",
}

// plotlyFuncs maps plotly express functions to chart types
var plotlyFuncs = map[string]string{
	"line":            "line",
	"bar":             "bar",
	"scatter":         "scatter",
	"histogram":       "histogram",
	"box":             "box",
	"violin":          "violin",
	"pie":             "pie",
	"area":            "area",
	"density_heatmap": "heatmap",
	"imshow":          "heatmap",
	"scatter_matrix":  "pair",
}

// plotKinds maps pandas plot kinds to chart types
var plotKinds = map[string]string{
	"line":    "line",
	"bar":     "bar",
	"barh":    "bar",
	"hist":    "histogram",
	"box":     "box",
	"kde":     "kde",
	"density": "kde",
	"area":    "area",
	"pie":     "pie",
	"scatter": "scatter",
	"hexbin":  "heatmap",
}

var (
	methodCallPattern = regexp.MustCompile(`([\w.]*)\.(\w+)\s*\(`)
	kindPattern       = regexp.MustCompile(`\bkind\s*=\s*['"](\w+)['"]`)
	kindArgPattern    = regexp.MustCompile(`\bkind\s*=`)
)

// chartCall is one detected chart-producing call
type chartCall struct {
	Type string
	Func string
	Cell int
	Stmt int // Statement index within the cell
	Args string
}

type visTypesAnalyzer struct {
	params Params
}

func (a *visTypesAnalyzer) ID() MetricID       { return MetricVisualTypes }
func (a *visTypesAnalyzer) Category() Category { return CategoryBusiness }

// Analyze rewards chart-type diversity with diminishing returns:
// 100 * (0.7*(1 - 0.5^distinct) + 0.3*distinct/total)
func (a *visTypesAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())

	charts := findCharts(sc)
	byType := make(map[string]int)
	for _, c := range charts {
		byType[c.Type]++
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var score float64
	var summary string
	if len(charts) == 0 {
		score = noChartTypesScore
		summary = "No charts found; visual summaries help communicate results"
	} else {
		distinct := float64(len(types))
		score = 100 * (diversityWeight*(1-math.Pow(0.5, distinct)) + varietyWeight*distinct/float64(len(charts)))
		summary = fmt.Sprintf("%d charts of %d distinct types: %s", len(charts), len(types), strings.Join(types, ", "))
		if len(types) == 1 && len(charts) > 1 {
			res.Findings = append(res.Findings, Finding{
				Polarity: Negative,
				Message:  fmt.Sprintf("All %d charts are %s charts; consider other chart types for other questions", len(charts), types[0]),
				Severity: SeverityMinor,
			})
		}
	}

	res.Evidence["charts"] = len(charts)
	res.Evidence["distinct_types"] = len(types)
	res.Evidence["by_type"] = byType

	return finish(res, score, summary, sc)
}

// findCharts returns every chart call in program order
func findCharts(sc *scan) []chartCall {
	var out []chartCall
	for _, cell := range sc.Cells {
		for j, s := range cell.Statements {
			if s.Docstring {
				continue
			}
			kinds := kindPattern.FindAllStringSubmatch(s.Text, -1)
			nextKind := 0

			for _, m := range methodCallPattern.FindAllStringSubmatchIndex(s.Masked, -1) {
				receiver := s.Masked[m[2]:m[3]]
				name := s.Masked[m[4]:m[5]]
				args := callArguments(s.Masked, m[1]-1)
				last := receiver[strings.LastIndex(receiver, ".")+1:]

				var chartType string
				switch {
				case last == "plot":
					// pandas accessor, e.g. df.plot.bar()
					chartType = plotKinds[name]
				case last == "px":
					chartType = plotlyFuncs[name]
				case name == "plot" && kindArgPattern.MatchString(args):
					chartType = "line"
					if nextKind < len(kinds) {
						if t, ok := plotKinds[kinds[nextKind][1]]; ok {
							chartType = t
						}
						nextKind++
					}
				default:
					chartType = chartFuncs[name]
				}
				if chartType == "" {
					continue
				}

				out = append(out, chartCall{Type: chartType, Func: name, Cell: cell.Index, Stmt: j, Args: args})
			}
		}
	}
	return out
}
